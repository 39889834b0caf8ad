package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mkorchagin/vacradar/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingStrategy struct{ name string }

func (f *failingStrategy) Name() string { return f.name }

func (f *failingStrategy) Analyze(context.Context, string, string) (model.StructuredAnalysis, error) {
	return model.StructuredAnalysis{}, errors.New("boom")
}

const sampleDescription = "Ищем senior продуктового дизайнера.\n" +
	"Требования:\n- Figma\n- Опыт от 3 лет\n" +
	"Условия:\nУдаленная работа, полная занятость, 150000-200000 руб"

func TestChain_FirstSuccessWins(t *testing.T) {
	chain := NewChain(testLogger(), NewHeuristic(), NewMinimal())
	got := chain.Enrich(context.Background(), "Продуктовый дизайнер", sampleDescription)

	if got.Stage != StageHeuristic {
		t.Fatalf("stage = %q, want %q", got.Stage, StageHeuristic)
	}
	if got.Experience != model.ExperienceSenior {
		t.Errorf("experience = %q, want senior", got.Experience)
	}
	if got.Salary.Min != 150000 || got.Salary.Max != 200000 || got.Salary.Currency != "RUB" {
		t.Errorf("salary = %+v", got.Salary)
	}
}

// A throwing first stage degrades the output, never empties it: enums and
// text fields are still populated by the fallback.
func TestChain_FallbackKeepsFieldsPopulated(t *testing.T) {
	chain := NewChain(testLogger(), &failingStrategy{name: StageAI}, NewHeuristic(), NewMinimal())
	got := chain.Enrich(context.Background(), "Дизайнер", sampleDescription)

	if got.Stage != StageHeuristic {
		t.Fatalf("stage = %q, want %q", got.Stage, StageHeuristic)
	}
	if got.Experience == "" || got.Employment == "" {
		t.Errorf("enums must never be empty: exp=%q emp=%q", got.Experience, got.Employment)
	}
	if got.FullDescription == "" || got.Requirements == "" || got.Conditions == "" {
		t.Errorf("text fields must never be empty: %+v", got)
	}
}

func TestChain_AllStagesFail_MinimalTail(t *testing.T) {
	chain := NewChain(testLogger(), &failingStrategy{name: StageAI}, &failingStrategy{name: StageHeuristic})
	got := chain.Enrich(context.Background(), "Title", "от 120000 руб в месяц")

	if got.Stage != StageMinimal {
		t.Fatalf("stage = %q, want %q", got.Stage, StageMinimal)
	}
	if got.Experience != model.ExperienceUnknown || got.Employment != model.EmploymentUnknown {
		t.Errorf("minimal stage must use unknown enums, got exp=%q emp=%q", got.Experience, got.Employment)
	}
	if got.Salary.Min != 120000 {
		t.Errorf("salary min = %d, want 120000", got.Salary.Min)
	}
	if got.Requirements != model.NotSpecified {
		t.Errorf("requirements = %q, want sentinel", got.Requirements)
	}
}

func TestHeuristic_EmptyDescriptionFails(t *testing.T) {
	_, err := NewHeuristic().Analyze(context.Background(), "Title", "   ")
	if err == nil {
		t.Fatal("expected error for blank description")
	}
}

func TestHeuristic_SectionsAndKeywords(t *testing.T) {
	got, err := NewHeuristic().Analyze(context.Background(), "UI/UX дизайнер", sampleDescription)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.Requirements, "Figma") {
		t.Errorf("requirements = %q", got.Requirements)
	}
	if !strings.Contains(got.Conditions, "Удаленная работа") {
		t.Errorf("conditions = %q", got.Conditions)
	}
	if !got.Remote {
		t.Error("remote not detected")
	}
	if got.Employment != model.EmploymentFullTime {
		t.Errorf("employment = %q, want full_time", got.Employment)
	}
	if got.Specialization != "design" {
		t.Errorf("specialization = %q, want design", got.Specialization)
	}
	if got.RelevanceScore <= 0 {
		t.Errorf("relevance = %v, want > 0", got.RelevanceScore)
	}
	found := false
	for _, tech := range got.Technologies {
		if tech == "Figma" {
			found = true
		}
	}
	if !found {
		t.Errorf("technologies = %v, want Figma present", got.Technologies)
	}
}

func TestMinimal_NeverFails(t *testing.T) {
	got, err := NewMinimal().Analyze(context.Background(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.FullDescription != model.NotSpecified {
		t.Errorf("description = %q, want sentinel", got.FullDescription)
	}
	if got.Salary.Currency != "RUB" {
		t.Errorf("currency = %q, want RUB default", got.Salary.Currency)
	}
}
