package enrich

import (
	"context"
	"errors"
	"strings"

	"github.com/mkorchagin/vacradar/internal/model"
	"github.com/mkorchagin/vacradar/internal/textparse"
)

// Heuristic is the local fallback stage: header-based section splitting
// plus keyword classifiers. It runs entirely offline and only fails on a
// blank description, which the minimal stage then covers.
type Heuristic struct{}

// NewHeuristic creates the keyword-based chain stage.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Name() string { return StageHeuristic }

func (h *Heuristic) Analyze(_ context.Context, title, description string) (model.StructuredAnalysis, error) {
	if strings.TrimSpace(description) == "" {
		return model.StructuredAnalysis{}, errors.New("empty description")
	}

	structured := textparse.Structure(description)
	full := title + "\n" + description

	analysis := model.StructuredAnalysis{
		FullDescription: structured.FullDescription,
		Requirements:    model.NotSpecified,
		Tasks:           model.NotSpecified,
		Conditions:      model.NotSpecified,
		Benefits:        model.NotSpecified,
		Technologies:    ExtractTechnologies(full),
		Experience:      DetectExperience(full),
		Employment:      DetectEmployment(full),
		Remote:          DetectRemote(full),
		Specialization:  DetectSpecialization(full),
		RelevanceScore:  RelevanceScore(full),
		Salary:          model.SalaryRange{Currency: "RUB"},
	}

	for _, s := range structured.Sections {
		switch s.Title {
		case textparse.TitleRequirements:
			analysis.Requirements = s.Content
		case textparse.TitleConditions:
			analysis.Conditions = s.Content
		}
	}
	if analysis.FullDescription == "" {
		analysis.FullDescription = model.NotSpecified
	}
	if salary, ok := ParseSalary(full); ok {
		analysis.Salary = salary
	}
	return analysis, nil
}
