package enrich

import (
	"regexp"
	"strings"

	"github.com/mkorchagin/vacradar/internal/model"
)

// Canonical technology names matched case-insensitively as substrings.
// Design tools first (the original search profile), then the web stack
// that shows up in hybrid design/development postings.
var techKeywords = []string{
	"Figma", "Sketch", "Adobe XD", "Photoshop", "Illustrator", "InDesign",
	"Framer", "Principle", "After Effects", "Blender", "Cinema 4D",
	"Tilda", "Webflow", "Miro", "Zeplin", "InVision",
	"HTML", "CSS", "JavaScript", "TypeScript", "React", "Vue", "Angular",
}

var designKeywords = []string{
	"дизайн", "design", "ui", "ux", "интерфейс", "interface",
	"веб-дизайнер", "web designer", "продуктовый дизайнер", "product designer",
	"графический дизайнер", "graphic designer", "моушн", "motion",
	"брендинг", "branding", "типографика", "typography",
	"прототип", "prototype", "wireframe", "юзабилити", "usability",
}

var developmentKeywords = []string{
	"разработчик", "developer", "программист", "backend", "frontend",
	"fullstack", "инженер", "engineer", "devops",
}

// ExtractTechnologies returns the canonical names of known tools found in
// the text, in keyword-list order, without duplicates.
func ExtractTechnologies(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, tech := range techKeywords {
		if strings.Contains(lower, strings.ToLower(tech)) {
			found = append(found, tech)
		}
	}
	return found
}

// DetectExperience maps seniority keywords to the closed experience enum.
// Senior and lead markers win over junior/middle ones, mirroring how the
// original classifier ordered its checks.
func DetectExperience(text string) model.Experience {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "senior", "старший", "ведущий"):
		return model.ExperienceSenior
	case containsAny(lower, "lead", "руководитель", "арт-директор", "тимлид"):
		return model.ExperienceLead
	case containsAny(lower, "junior", "младший", "начинающий"):
		return model.ExperienceJunior
	case containsAny(lower, "middle", "средний", "опыт от 2", "опыт от 3"):
		return model.ExperienceMiddle
	default:
		return model.ExperienceUnknown
	}
}

// DetectEmployment maps employment keywords to the closed employment enum.
func DetectEmployment(text string) model.Employment {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "стажировка", "стажер", "internship", "intern "):
		return model.EmploymentInternship
	case containsAny(lower, "фриланс", "freelance"):
		return model.EmploymentFreelance
	case containsAny(lower, "проектная работа", "проектная занятость", "project-based"):
		return model.EmploymentProject
	case containsAny(lower, "волонтер", "волонтёр", "volunteer"):
		return model.EmploymentVolunteer
	case containsAny(lower, "частичная занятость", "неполный день", "part-time", "part time"):
		return model.EmploymentPartTime
	case containsAny(lower, "полная занятость", "полный день", "full-time", "full time"):
		return model.EmploymentFullTime
	default:
		return model.EmploymentUnknown
	}
}

// DetectRemote reports whether the posting allows remote work.
func DetectRemote(text string) bool {
	lower := strings.ToLower(text)
	return containsAny(lower, "удаленн", "удалённ", "remote", "из дома")
}

// DetectSpecialization assigns the coarse specialization label used for
// filtering in the reading interfaces.
func DetectSpecialization(text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, designKeywords...) {
		return "design"
	}
	if containsAny(lower, developmentKeywords...) {
		return "development"
	}
	return "other"
}

// RelevanceScore is the fraction of design keywords present, capped at 1.
// Ten distinct hits count as full confidence.
func RelevanceScore(text string) float64 {
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range designKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	score := float64(hits) / 10
	if score > 1 {
		score = 1
	}
	return score
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// Salary patterns: a full range ("150000-200000 руб"), a lower bound
// ("от 150 000 ₽") or an upper bound ("до 200000 RUB"). Digit groups may
// use spaces as thousands separators.
var (
	salaryRangeRe = regexp.MustCompile(`(?i)(\d[\d\s]*\d|\d)\s*[-–—]\s*(\d[\d\s]*\d|\d)\s*(руб|₽|rub|rur|usd|\$|eur|€)?`)
	salaryFromRe  = regexp.MustCompile(`(?i)от\s+(\d[\d\s]*\d|\d)\s*(руб|₽|rub|rur|usd|\$|eur|€)?`)
	salaryToRe    = regexp.MustCompile(`(?i)до\s+(\d[\d\s]*\d|\d)\s*(руб|₽|rub|rur|usd|\$|eur|€)?`)
	digitsOnlyRe  = regexp.MustCompile(`\D`)
)

// Amounts below this are durations ("от 2 лет"), not money.
const minSalaryAmount = 100

// ParseSalary extracts a salary range from free text. The second return
// value is false when no salary pattern matched. Currency defaults to RUB
// when absent or unrecognized.
func ParseSalary(text string) (model.SalaryRange, bool) {
	if m := salaryRangeRe.FindStringSubmatch(text); m != nil {
		lo, hi := parseAmount(m[1]), parseAmount(m[2])
		if lo >= minSalaryAmount && hi >= minSalaryAmount {
			return model.SalaryRange{Min: lo, Max: hi, Currency: normalizeCurrency(m[3])}, true
		}
	}
	if m := salaryFromRe.FindStringSubmatch(text); m != nil {
		if lo := parseAmount(m[1]); lo >= minSalaryAmount {
			return model.SalaryRange{Min: lo, Currency: normalizeCurrency(m[2])}, true
		}
	}
	if m := salaryToRe.FindStringSubmatch(text); m != nil {
		if hi := parseAmount(m[1]); hi >= minSalaryAmount {
			return model.SalaryRange{Max: hi, Currency: normalizeCurrency(m[2])}, true
		}
	}
	return model.SalaryRange{Currency: "RUB"}, false
}

func parseAmount(s string) int {
	digits := digitsOnlyRe.ReplaceAllString(s, "")
	n := 0
	for _, r := range digits {
		n = n*10 + int(r-'0')
	}
	return n
}

func normalizeCurrency(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "usd", "$":
		return "USD"
	case "eur", "€":
		return "EUR"
	default:
		return "RUB"
	}
}
