package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/mkorchagin/vacradar/internal/model"
)

const hirehiBaseURL = "https://hirehi.ru"

var hirehiVacancyIDRe = regexp.MustCompile(`/(?:vacancy|job)/([\w-]+)`)

// HirehiAdapter scrapes hirehi.ru search results. Cards carry the title,
// company and salary; there is no server-rendered detail page worth a
// second request.
type HirehiAdapter struct {
	client  *http.Client
	baseURL string
}

// NewHirehiAdapter creates an adapter for hirehi.ru.
func NewHirehiAdapter(client *http.Client) *HirehiAdapter {
	return &HirehiAdapter{client: client, baseURL: hirehiBaseURL}
}

func (a *HirehiAdapter) Name() string { return "hirehi" }

func (a *HirehiAdapter) Fetch(ctx context.Context, query string, page int) ([]model.RawPosting, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", fmt.Sprintf("%d", page))

	doc, err := fetchDocument(ctx, a.client, a.Name(), a.baseURL+"/?"+params.Encode())
	if err != nil {
		return nil, err
	}

	cards := doc.Find(".job-card")
	var postings []model.RawPosting
	cards.Each(func(i int, s *goquery.Selection) {
		title := cleanText(s.Find(".job-title, h3").First().Text())
		if title == "" {
			return
		}

		posting := model.RawPosting{
			Source:   a.Name(),
			Title:    title,
			Company:  cleanText(s.Find(".job-company-name, .company").First().Text()),
			Salary:   cleanText(s.Find(".job-salary, .salary").First().Text()),
			Location: cleanText(s.Find(".job-location, .location").First().Text()),
		}
		if href, ok := s.Find("a").First().Attr("href"); ok {
			if len(href) > 0 && href[0] == '/' {
				href = a.baseURL + href
			}
			posting.URL = href
			posting.ExternalID = extractID(hirehiVacancyIDRe, href)
		}
		// Cards without a link get a deterministic id from the card content
		// so re-ingestion still dedups.
		if posting.ExternalID == "" {
			posting.ExternalID = slugID(posting.Title + "|" + posting.Company)
		}
		postings = append(postings, posting)
	})

	if cards.Length() > 0 && len(postings) == 0 {
		return nil, structureError(a.Name(), "job cards present but titles missing")
	}
	return postings, nil
}
