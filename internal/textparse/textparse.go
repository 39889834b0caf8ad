// Package textparse splits a free-form vacancy description into canonical
// sections (Description / Requirements / Conditions) and normalizes each
// into paragraphs and lists. Structuring is a pure function of the input
// text and is idempotent: feeding its own output back in reproduces it.
package textparse

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Section is one titled block of a structured description.
type Section struct {
	Title   string
	Content string
}

// Structured is the engine's output. FullDescription holds everything that
// did not match a requirements- or conditions-like header; Sections holds
// at most the Requirements and Conditions buckets, in document order.
type Structured struct {
	FullDescription string
	Sections        []Section
}

// Canonical bucket titles.
const (
	TitleDescription  = "Description"
	TitleRequirements = "Requirements"
	TitleConditions   = "Conditions"
)

// Two header pattern families. Anything not matched by either collapses
// into the Description bucket, including task/benefit/company headers.
// Each match must end in a delimiter so mid-word hits don't split text.
var (
	requirementsHeaderRe = regexp.MustCompile(`(?i)(?:^|\n)[ \t]*(?:` +
		`требования|ожидания|что\s+мы\s+ждем|необходимые\s+навыки|квалификация|` +
		`опыт\s+работы|нужно|необходимо|кого\s+мы\s+ищем|ты\s+нам\s+подходишь|` +
		`кандидат|навыки|компетенции|skills?|requirements?|qualifications?` +
		`)[ \t]*[:\-—\n]`)

	conditionsHeaderRe = regexp.MustCompile(`(?i)(?:^|\n)[ \t]*(?:` +
		`условия\s+работы|условия|формат\s+работы|график\s+работы|график|локация|офис|` +
		`режим\s+работы|место\s+работы|работаем|трудоустройство|что\s+мы\s+предлагаем|` +
		`мы\s+предлагаем|льготы|преимущества|бонусы|дополнительные\s+возможности|плюсы|` +
		`перки|зарплата|компенсации|оплата|доход|benefits?|conditions?|what\s+we\s+offer` +
		`)[ \t]*[:\-—\n]`)
)

// Matches closer than this to the previous one are the same heading phrase
// split across two patterns, not a new section.
const headerProximity = 50

type headerMatch struct {
	bucket string
	start  int // offset of the header match
	end    int // offset just past the header text
}

// findHeaders returns all header occurrences sorted by offset, with
// proximity duplicates removed.
func findHeaders(text string) []headerMatch {
	var matches []headerMatch
	for _, fam := range []struct {
		re     *regexp.Regexp
		bucket string
	}{
		{requirementsHeaderRe, TitleRequirements},
		{conditionsHeaderRe, TitleConditions},
	} {
		for _, loc := range fam.re.FindAllStringIndex(text, -1) {
			matches = append(matches, headerMatch{bucket: fam.bucket, start: loc[0], end: loc[1]})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	// Proximity de-duplication: a second match of the same family right on
	// the heels of the first is the same heading phrase, not a new section.
	deduped := matches[:0]
	for i, m := range matches {
		if i > 0 {
			prev := deduped[len(deduped)-1]
			if m.bucket == prev.bucket && m.start-prev.start <= headerProximity {
				continue
			}
		}
		deduped = append(deduped, m)
	}
	return deduped
}

// Structure splits text by header spans, buckets the spans, and formats
// each bucket. Empty input yields an empty description and no sections.
func Structure(text string) Structured {
	if strings.TrimSpace(text) == "" {
		return Structured{}
	}

	headers := findHeaders(text)

	// Accumulate raw blocks per bucket in document order. The text before
	// the first header (or all of it, with no headers) is Description.
	blocks := map[string][]string{}
	var order []string
	add := func(bucket, raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		if _, seen := blocks[bucket]; !seen {
			order = append(order, bucket)
		}
		blocks[bucket] = append(blocks[bucket], raw)
	}

	if len(headers) == 0 {
		add(TitleDescription, text)
	} else {
		add(TitleDescription, text[:headers[0].start])
		for i, h := range headers {
			end := len(text)
			if i+1 < len(headers) {
				end = headers[i+1].start
			}
			add(h.bucket, text[h.end:end])
		}
	}

	var out Structured
	for _, bucket := range order {
		content := FormatBlock(strings.Join(blocks[bucket], "\n\n"))
		if content == "" {
			continue
		}
		if bucket == TitleDescription {
			out.FullDescription = content
			continue
		}
		out.Sections = append(out.Sections, Section{Title: bucket, Content: content})
	}
	return out
}

var (
	numberedItemRe = regexp.MustCompile(`^(\d+)[.)]\s+(.+)$`)
	bulletItemRe   = regexp.MustCompile(`^[-•*+]\s+(.+)$`)
)

// FormatBlock normalizes one bucket's raw text: contiguous non-empty lines
// join into a single paragraph line, numbered/bulleted lines become list
// items (renumbered for ordered lists), and a marker-class switch closes
// the current list. Elements are separated by blank lines, which keeps the
// function idempotent on its own output.
func FormatBlock(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var (
		elements  []string
		paragraph []string
		list      []string
		numbered  bool
	)

	flushParagraph := func() {
		if len(paragraph) > 0 {
			elements = append(elements, strings.Join(paragraph, " "))
			paragraph = nil
		}
	}
	flushList := func() {
		if len(list) == 0 {
			return
		}
		var b strings.Builder
		for i, item := range list {
			if i > 0 {
				b.WriteByte('\n')
			}
			if numbered {
				fmt.Fprintf(&b, "%d. %s", i+1, item)
			} else {
				b.WriteString("• " + item)
			}
		}
		elements = append(elements, b.String())
		list = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flushParagraph()
			continue
		}

		if m := numberedItemRe.FindStringSubmatch(line); m != nil {
			flushParagraph()
			if len(list) > 0 && !numbered {
				flushList()
			}
			numbered = true
			list = append(list, strings.TrimSpace(m[2]))
			continue
		}
		if m := bulletItemRe.FindStringSubmatch(line); m != nil {
			flushParagraph()
			if len(list) > 0 && numbered {
				flushList()
			}
			numbered = false
			list = append(list, strings.TrimSpace(m[1]))
			continue
		}

		flushList()
		paragraph = append(paragraph, line)
	}
	flushParagraph()
	flushList()

	return strings.Join(elements, "\n\n")
}
