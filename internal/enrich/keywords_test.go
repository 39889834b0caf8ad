package enrich

import (
	"testing"

	"github.com/mkorchagin/vacradar/internal/model"
)

func TestParseSalary(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  model.SalaryRange
		found bool
	}{
		{
			name:  "range with currency",
			in:    "Зарплата 150000-200000 руб",
			want:  model.SalaryRange{Min: 150000, Max: 200000, Currency: "RUB"},
			found: true,
		},
		{
			name:  "range with spaces and dash variants",
			in:    "150 000 – 200 000 ₽",
			want:  model.SalaryRange{Min: 150000, Max: 200000, Currency: "RUB"},
			found: true,
		},
		{
			name:  "lower bound only",
			in:    "от 120 000 руб на руки",
			want:  model.SalaryRange{Min: 120000, Currency: "RUB"},
			found: true,
		},
		{
			name:  "upper bound only usd",
			in:    "до 3000 usd",
			want:  model.SalaryRange{Max: 3000, Currency: "USD"},
			found: true,
		},
		{
			name:  "dollar sign",
			in:    "2000-4000 $",
			want:  model.SalaryRange{Min: 2000, Max: 4000, Currency: "USD"},
			found: true,
		},
		{
			name:  "euro",
			in:    "от 2500 €",
			want:  model.SalaryRange{Min: 2500, Currency: "EUR"},
			found: true,
		},
		{
			name:  "no currency defaults to rub",
			in:    "от 90000",
			want:  model.SalaryRange{Min: 90000, Currency: "RUB"},
			found: true,
		},
		{
			name:  "experience years are not salary",
			in:    "опыт от 3 лет",
			want:  model.SalaryRange{Currency: "RUB"},
			found: false,
		},
		{
			name:  "no salary at all",
			in:    "ищем дизайнера в офис",
			want:  model.SalaryRange{Currency: "RUB"},
			found: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ParseSalary(tt.in)
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			if got != tt.want {
				t.Errorf("ParseSalary(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDetectExperience(t *testing.T) {
	tests := []struct {
		in   string
		want model.Experience
	}{
		{"Senior Product Designer", model.ExperienceSenior},
		{"ищем ведущего дизайнера", model.ExperienceSenior},
		{"тимлид команды дизайна", model.ExperienceLead},
		{"junior ui designer", model.ExperienceJunior},
		{"middle дизайнер, опыт от 2 лет", model.ExperienceMiddle},
		{"дизайнер интерфейсов", model.ExperienceUnknown},
	}
	for _, tt := range tests {
		if got := DetectExperience(tt.in); got != tt.want {
			t.Errorf("DetectExperience(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectEmployment(t *testing.T) {
	tests := []struct {
		in   string
		want model.Employment
	}{
		{"полная занятость, офис", model.EmploymentFullTime},
		{"part-time от 20 часов", model.EmploymentPartTime},
		{"проектная работа на 3 месяца", model.EmploymentProject},
		{"фриланс, оплата сдельная", model.EmploymentFreelance},
		{"оплачиваемая стажировка", model.EmploymentInternship},
		{"дизайнер в студию", model.EmploymentUnknown},
	}
	for _, tt := range tests {
		if got := DetectEmployment(tt.in); got != tt.want {
			t.Errorf("DetectEmployment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectSpecialization(t *testing.T) {
	if got := DetectSpecialization("ux-исследователь, прототипы"); got != "design" {
		t.Errorf("got %q, want design", got)
	}
	if got := DetectSpecialization("backend разработчик"); got != "development" {
		t.Errorf("got %q, want development", got)
	}
	if got := DetectSpecialization("бухгалтер"); got != "other" {
		t.Errorf("got %q, want other", got)
	}
}

func TestExtractTechnologies_OrderedNoDuplicates(t *testing.T) {
	got := ExtractTechnologies("Нужны figma и react, снова Figma")
	if len(got) != 2 || got[0] != "Figma" || got[1] != "React" {
		t.Errorf("got %v, want [Figma React]", got)
	}
}
