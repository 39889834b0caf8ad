package enrich

import (
	"context"
	"strings"

	"github.com/mkorchagin/vacradar/internal/model"
)

// Minimal is the last-resort stage: no section splitting, no keyword
// heuristics, just a salary regex pass over the raw text. It cannot fail.
type Minimal struct{}

// NewMinimal creates the terminal chain stage.
func NewMinimal() *Minimal {
	return &Minimal{}
}

func (m *Minimal) Name() string { return StageMinimal }

func (m *Minimal) Analyze(_ context.Context, title, description string) (model.StructuredAnalysis, error) {
	return minimalAnalysis(title, description), nil
}

// minimalAnalysis fills every field with the raw text, a sentinel or the
// unknown enum member. Nothing is ever left empty.
func minimalAnalysis(title, description string) model.StructuredAnalysis {
	analysis := model.StructuredAnalysis{
		FullDescription: strings.TrimSpace(description),
		Requirements:    model.NotSpecified,
		Tasks:           model.NotSpecified,
		Conditions:      model.NotSpecified,
		Benefits:        model.NotSpecified,
		Experience:      model.ExperienceUnknown,
		Employment:      model.EmploymentUnknown,
		Specialization:  "other",
		Salary:          model.SalaryRange{Currency: "RUB"},
	}
	if analysis.FullDescription == "" {
		analysis.FullDescription = model.NotSpecified
	}
	if salary, ok := ParseSalary(title + "\n" + description); ok {
		analysis.Salary = salary
	}
	return analysis
}
