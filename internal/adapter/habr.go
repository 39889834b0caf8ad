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

const habrBaseURL = "https://career.habr.com"

var habrVacancyIDRe = regexp.MustCompile(`/vacancies/(\d+)`)

// HabrAdapter scrapes career.habr.com search results. Like hh, each result
// link is followed to the vacancy page; habr has no stable data attributes,
// so selectors chain class-name fallbacks.
type HabrAdapter struct {
	client  *http.Client
	baseURL string
}

// NewHabrAdapter creates an adapter for career.habr.com.
func NewHabrAdapter(client *http.Client) *HabrAdapter {
	return &HabrAdapter{client: client, baseURL: habrBaseURL}
}

func (a *HabrAdapter) Name() string { return "habr" }

func (a *HabrAdapter) Fetch(ctx context.Context, query string, page int) ([]model.RawPosting, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", fmt.Sprintf("%d", page))

	doc, err := fetchDocument(ctx, a.client, a.Name(), a.baseURL+"/vacancies?"+params.Encode())
	if err != nil {
		return nil, err
	}

	// The same vacancy link appears several times per card; dedup by id.
	seen := map[string]bool{}
	var postings []model.RawPosting
	var cardErr error
	links := doc.Find("a[href*='/vacancies/']")
	links.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		if strings.HasPrefix(href, "/") {
			href = a.baseURL + href
		}
		id := extractID(habrVacancyIDRe, href)
		if id == "" || seen[id] {
			return true
		}
		seen[id] = true

		posting, err := a.fetchDetails(ctx, id, href)
		if err != nil {
			if ctx.Err() != nil {
				cardErr = err
				return false
			}
			return true
		}
		postings = append(postings, posting)
		return true
	})
	if cardErr != nil {
		return nil, cardErr
	}

	if len(seen) > 0 && len(postings) == 0 {
		return nil, structureError(a.Name(), "vacancy links present but no details extracted")
	}
	return postings, nil
}

func (a *HabrAdapter) fetchDetails(ctx context.Context, id, vacancyURL string) (model.RawPosting, error) {
	doc, err := fetchDocument(ctx, a.client, a.Name(), vacancyURL)
	if err != nil {
		return model.RawPosting{}, err
	}

	posting := model.RawPosting{
		Source:      a.Name(),
		ExternalID:  id,
		URL:         vacancyURL,
		Title:       cleanText(doc.Find(".vacancy-card__title, .vacancy-title, h1").First().Text()),
		Company:     cleanText(doc.Find(".vacancy-card__company, .company-name, .vacancy-company").First().Text()),
		Salary:      cleanText(doc.Find(".vacancy-card__salary, .salary, .vacancy-salary").First().Text()),
		Location:    cleanText(doc.Find(".vacancy-card__location, .location, .vacancy-location").First().Text()),
		Description: blockText(doc.Find(".vacancy-card__description, .description, .vacancy-description").First()),
	}
	if posting.Title == "" {
		return model.RawPosting{}, structureError(a.Name(), "vacancy page missing title")
	}
	return posting, nil
}
