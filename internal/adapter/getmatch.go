package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mkorchagin/vacradar/internal/model"
)

const getmatchBaseURL = "https://getmatch.ru"

var getmatchVacancyIDRe = regexp.MustCompile(`/vacancy/([\w-]+)`)

// GetmatchAdapter scrapes getmatch.ru. Everything we need is on the search
// page cards; detail pages are rendered client-side and carry nothing
// extra that a plain GET can see.
type GetmatchAdapter struct {
	client  *http.Client
	baseURL string
}

// NewGetmatchAdapter creates an adapter for getmatch.ru.
func NewGetmatchAdapter(client *http.Client) *GetmatchAdapter {
	return &GetmatchAdapter{client: client, baseURL: getmatchBaseURL}
}

func (a *GetmatchAdapter) Name() string { return "getmatch" }

func (a *GetmatchAdapter) Fetch(ctx context.Context, query string, page int) ([]model.RawPosting, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", fmt.Sprintf("%d", page))

	doc, err := fetchDocument(ctx, a.client, a.Name(), a.baseURL+"/vacancies?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var postings []model.RawPosting
	links := doc.Find("a[href*='/vacancy/']")
	links.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = a.baseURL + href
		}
		id := extractID(getmatchVacancyIDRe, href)
		if id == "" {
			return
		}

		posting := model.RawPosting{
			Source:     a.Name(),
			ExternalID: id,
			URL:        href,
			Title:      cleanText(s.Find(".vacancy-card__title").Text()),
			Company:    cleanText(s.Find(".vacancy-card__company").Text()),
			Location:   cleanText(s.Find(".vacancy-card__location").Text()),
			Salary:     cleanText(s.Find(".vacancy-card__salary").Text()),
		}
		if raw := cleanText(s.Find(".vacancy-card__date").Text()); raw != "" {
			if t, err := time.Parse("02.01.2006", raw); err == nil {
				posting.PublishedAt = &t
			}
		}
		if posting.Title == "" {
			return
		}
		postings = append(postings, posting)
	})

	if links.Length() > 0 && len(postings) == 0 {
		return nil, structureError(a.Name(), "vacancy links present but card fields missing")
	}
	return postings, nil
}
