// Package filter decides which scraped postings enter the pipeline.
package filter

import (
	"strings"

	"github.com/mkorchagin/vacradar/internal/model"
)

// DefaultIncludeKeywords marks postings as relevant to the design search
// profile. Matching is case-insensitive substring.
var DefaultIncludeKeywords = []string{
	"дизайн", "design", "ui", "ux", "веб-дизайн", "web design",
	"графический дизайн", "graphic design", "интерфейс", "interface",
	"пользовательский опыт", "user experience", "figma", "sketch",
	"adobe", "photoshop", "illustrator", "indesign",
	"веб-дизайнер", "web designer", "ui дизайнер", "ux дизайнер",
	"графический дизайнер", "graphic designer", "дизайнер интерфейсов",
	"product designer", "продуктовый дизайнер",
	"моушн дизайнер", "motion designer", "анимация", "animation",
	"брендинг", "branding", "логотип", "logo", "иконки", "icons",
	"типографика", "typography", "макет", "layout", "wireframe",
	"прототип", "prototype", "usability", "юзабилити",
	"адаптивный", "mobile design", "app design", "дизайн приложений",
}

// DefaultExcludeKeywords drops adjacent crafts that share vocabulary with
// digital design but are out of scope.
var DefaultExcludeKeywords = []string{
	"текстиль", "ткань", "одежда", "мода", "fashion",
	"ювелир", "украшения", "бижутерия",
	"мебель", "интерьер", "декор", "ландшафт",
	"машиностроение", "автомобильный",
	"упаковка", "полиграфия", "типография",
	"архитектурный", "строительный", "реставрация",
	"парикмахер", "маникюр", "педикюр",
	"кондитер", "повар", "флористика", "свадебный",
	"тату", "пирсинг", "фотограф", "видеомонтаж",
	"хореограф", "балет", "актер", "театр",
	"копирайтер", "переводчик", "психолог",
	"фитнес", "йога", "массаж",
}

// RelevanceFilter matches postings that contain at least one include
// keyword and no exclude keyword in their title or description. Matching is
// case-insensitive. An empty include list is treated as "match all".
type RelevanceFilter struct {
	include []string
	exclude []string
}

// NewRelevanceFilter returns a filter over the given keyword lists.
func NewRelevanceFilter(include, exclude []string) *RelevanceFilter {
	return &RelevanceFilter{include: include, exclude: exclude}
}

// NewDefaultRelevanceFilter returns a filter with the stock design-profile
// keyword lists.
func NewDefaultRelevanceFilter() *RelevanceFilter {
	return NewRelevanceFilter(DefaultIncludeKeywords, DefaultExcludeKeywords)
}

// Match reports whether the posting passes the relevance check.
func (f *RelevanceFilter) Match(posting model.RawPosting) bool {
	text := strings.ToLower(posting.Title + " " + posting.Description)

	if len(f.include) > 0 {
		matched := false
		for _, kw := range f.include {
			if strings.Contains(text, strings.ToLower(kw)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, kw := range f.exclude {
		if strings.Contains(text, strings.ToLower(kw)) {
			return false
		}
	}

	return true
}
