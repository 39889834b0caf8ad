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

const geekjobBaseURL = "https://geekjob.ru"

// geekjob ids are short hex strings, not numeric.
var geekjobVacancyIDRe = regexp.MustCompile(`/vacancy/([\w-]+)`)

// geekjob ships its markup without stable attributes and reshuffles class
// names between deploys, so card lookup tries a selector ladder.
var geekjobCardSelectors = []string{
	"a[href*='/vacancy/']",
	".vacancy-card a",
	".job-card a",
	".vacancy a",
}

// GeekjobAdapter scrapes geekjob.ru search results from card markup only.
type GeekjobAdapter struct {
	client  *http.Client
	baseURL string
}

// NewGeekjobAdapter creates an adapter for geekjob.ru.
func NewGeekjobAdapter(client *http.Client) *GeekjobAdapter {
	return &GeekjobAdapter{client: client, baseURL: geekjobBaseURL}
}

func (a *GeekjobAdapter) Name() string { return "geekjob" }

func (a *GeekjobAdapter) Fetch(ctx context.Context, query string, page int) ([]model.RawPosting, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", fmt.Sprintf("%d", page))

	doc, err := fetchDocument(ctx, a.client, a.Name(), a.baseURL+"/vacancies?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var links *goquery.Selection
	for _, selector := range geekjobCardSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			links = sel
			break
		}
	}
	if links == nil {
		return nil, nil
	}

	seen := map[string]bool{}
	var postings []model.RawPosting
	links.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = a.baseURL + href
		}
		id := extractID(geekjobVacancyIDRe, href)
		if id == "" || seen[id] {
			return
		}

		title := cleanText(s.Find("h3, .title, .job-title").First().Text())
		if title == "" {
			title = cleanText(s.Text())
		}
		if title == "" {
			return
		}
		seen[id] = true

		postings = append(postings, model.RawPosting{
			Source:     a.Name(),
			ExternalID: id,
			URL:        href,
			Title:      title,
			Company:    cleanText(s.Parent().Find(".company, .employer").First().Text()),
			Location:   cleanText(s.Parent().Find(".location, .city").First().Text()),
			Salary:     cleanText(s.Parent().Find(".salary, .wage").First().Text()),
		})
	})

	if links.Length() > 0 && len(postings) == 0 {
		return nil, structureError(a.Name(), "vacancy links present but titles missing")
	}
	return postings, nil
}
