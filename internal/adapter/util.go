package adapter

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// slugID derives a stable external id from card content for boards whose
// cards carry no usable link.
func slugID(s string) string {
	sum := sha1.Sum([]byte(strings.ToLower(s)))
	return hex.EncodeToString(sum[:8])
}

var (
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	// Tags whose end marks a line break in the rendered page.
	blockBreakRegex = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</li>|</ul>|</ol>|</div>|</h[1-6]>`)
)

// cleanText collapses all whitespace runs into single spaces. Used for
// single-line card fields like title and company.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// blockText converts a selection's HTML to plain text while keeping line
// breaks at block boundaries. Section headers in descriptions are detected
// by line start downstream, so a flat Text() join would hide them.
func blockText(sel *goquery.Selection) string {
	raw, err := goquery.OuterHtml(sel)
	if err != nil {
		return cleanLines(sel.Text())
	}
	raw = blockBreakRegex.ReplaceAllString(raw, "\n")
	plain := html.UnescapeString(htmlTagRegex.ReplaceAllString(raw, ""))
	return cleanLines(plain)
}

// cleanLines trims every line and squeezes runs of blank lines down to one.
func cleanLines(s string) string {
	var (
		out   []string
		blank bool
	)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
