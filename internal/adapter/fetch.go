// Package adapter implements per-site scrapers that normalize search
// results from Russian job boards into RawPosting values, plus the retry
// and relevance-filter decorators that wrap them.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mkorchagin/vacradar/internal/model"
)

// setBrowserHeaders makes requests look like a desktop browser. The boards
// serve stripped or blocked pages to obvious bots. Accept-Encoding is left
// to the transport so the body arrives decompressed.
func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.8,en-US;q=0.5,en;q=0.3")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// fetchDocument GETs rawURL and parses it with goquery, classifying every
// failure as a FetchError so the retry decorator and monitor can tell
// transient trouble from blocks and markup drift.
func fetchDocument(ctx context.Context, client *http.Client, source, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &model.FetchError{Source: source, Kind: model.FetchNetwork, Err: err}
	}
	setBrowserHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &model.FetchError{Source: source, Kind: model.FetchNetwork, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, &model.FetchError{
			Source:     source,
			Kind:       model.FetchBlocked,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 500:
		return nil, &model.FetchError{Source: source, Kind: model.FetchNetwork, StatusCode: resp.StatusCode}
	default:
		// A 404 or redirect loop on a search URL means the site moved.
		return nil, &model.FetchError{Source: source, Kind: model.FetchStructure, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &model.FetchError{Source: source, Kind: model.FetchNetwork, Err: err}
	}
	return doc, nil
}

// structureError flags a page where cards were present but their expected
// fields were not.
func structureError(source, detail string) error {
	return &model.FetchError{
		Source: source,
		Kind:   model.FetchStructure,
		Err:    fmt.Errorf("%s", detail),
	}
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
