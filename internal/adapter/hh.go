package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mkorchagin/vacradar/internal/model"
)

const hhBaseURL = "https://hh.ru"

var hhVacancyIDRe = regexp.MustCompile(`/vacancy/(\d+)`)

// HHAdapter scrapes hh.ru search results. Each card on the list page is
// followed to its detail page for the full description; hh renders all of
// it server-side under stable data-qa attributes.
type HHAdapter struct {
	client  *http.Client
	baseURL string
}

// NewHHAdapter creates an adapter for hh.ru.
func NewHHAdapter(client *http.Client) *HHAdapter {
	return &HHAdapter{client: client, baseURL: hhBaseURL}
}

func (a *HHAdapter) Name() string { return "hh" }

// Fetch retrieves one page of search results. page is 1-based; hh uses
// 0-based page numbers in its URLs.
func (a *HHAdapter) Fetch(ctx context.Context, query string, page int) ([]model.RawPosting, error) {
	params := url.Values{}
	params.Set("text", query)
	params.Set("area", "1")
	params.Set("page", fmt.Sprintf("%d", page-1))
	params.Set("per_page", "50")

	doc, err := fetchDocument(ctx, a.client, a.Name(), a.baseURL+"/search/vacancy?"+params.Encode())
	if err != nil {
		return nil, err
	}

	cards := doc.Find("[data-qa='vacancy-serp__vacancy']")
	var postings []model.RawPosting
	var cardErr error
	cards.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Find("a[data-qa='vacancy-serp__vacancy-title']").Attr("href")
		if !ok {
			return true
		}
		href = a.absoluteURL(href)
		id := extractID(hhVacancyIDRe, href)
		if id == "" {
			return true
		}

		posting, err := a.fetchDetails(ctx, id, href)
		if err != nil {
			if ctx.Err() != nil {
				cardErr = err
				return false
			}
			// Skip cards whose detail page failed; the rest of the page
			// is still usable.
			return true
		}
		postings = append(postings, posting)
		return true
	})
	if cardErr != nil {
		return nil, cardErr
	}

	if cards.Length() > 0 && len(postings) == 0 {
		return nil, structureError(a.Name(), "cards present but no vacancy links extracted")
	}
	return postings, nil
}

func (a *HHAdapter) fetchDetails(ctx context.Context, id, vacancyURL string) (model.RawPosting, error) {
	doc, err := fetchDocument(ctx, a.client, a.Name(), vacancyURL)
	if err != nil {
		return model.RawPosting{}, err
	}

	posting := model.RawPosting{
		Source:      a.Name(),
		ExternalID:  id,
		URL:         vacancyURL,
		Title:       cleanText(doc.Find("[data-qa='vacancy-title']").First().Text()),
		Company:     cleanText(doc.Find("[data-qa='vacancy-company-name']").First().Text()),
		Salary:      cleanText(doc.Find("[data-qa='vacancy-salary']").First().Text()),
		Location:    cleanText(doc.Find("[data-qa='vacancy-location']").First().Text()),
		Description: blockText(doc.Find("[data-qa='vacancy-description']").First()),
	}
	if posting.Title == "" {
		return model.RawPosting{}, structureError(a.Name(), "detail page missing vacancy title")
	}
	return posting, nil
}

func (a *HHAdapter) absoluteURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return a.baseURL + href
	}
	return href
}

// extractID pulls the numeric vacancy id out of a URL with the given
// pattern. Empty when the URL does not match.
func extractID(re *regexp.Regexp, vacancyURL string) string {
	m := re.FindStringSubmatch(vacancyURL)
	if len(m) > 1 {
		return m[1]
	}
	return ""
}
