package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkorchagin/vacradar/internal/model"
)

// vacancyAnalysisSchema is enforced server-side via structured outputs. It
// matches rawAnalysis exactly so the response parses directly.
var vacancyAnalysisSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"full_description": map[string]any{"type": "string"},
		"requirements":     map[string]any{"type": "string"},
		"tasks":            map[string]any{"type": "string"},
		"conditions":       map[string]any{"type": "string"},
		"benefits":         map[string]any{"type": "string"},
		"technologies": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"experience_level": map[string]any{
			"type": "string",
			"enum": []string{"junior", "middle", "senior", "lead", "unknown"},
		},
		"employment_type": map[string]any{
			"type": "string",
			"enum": []string{
				"full_time", "part_time", "project",
				"freelance", "internship", "volunteer", "unknown",
			},
		},
		"remote_work":     map[string]any{"type": "boolean"},
		"salary_min":      map[string]any{"type": "integer"},
		"salary_max":      map[string]any{"type": "integer"},
		"salary_currency": map[string]any{"type": "string"},
		"specialization": map[string]any{
			"type": "string",
			"enum": []string{"design", "development", "other"},
		},
	},
	"required": []string{
		"full_description", "requirements", "tasks", "conditions", "benefits",
		"technologies", "experience_level", "employment_type", "remote_work",
		"salary_min", "salary_max", "salary_currency", "specialization",
	},
}

// rawAnalysis mirrors vacancyAnalysisSchema.
type rawAnalysis struct {
	FullDescription string   `json:"full_description"`
	Requirements    string   `json:"requirements"`
	Tasks           string   `json:"tasks"`
	Conditions      string   `json:"conditions"`
	Benefits        string   `json:"benefits"`
	Technologies    []string `json:"technologies"`
	ExperienceLevel string   `json:"experience_level"`
	EmploymentType  string   `json:"employment_type"`
	RemoteWork      bool     `json:"remote_work"`
	SalaryMin       int      `json:"salary_min"`
	SalaryMax       int      `json:"salary_max"`
	SalaryCurrency  string   `json:"salary_currency"`
	Specialization  string   `json:"specialization"`
}

const aiSystemPrompt = "You are a precise structured data extractor for job vacancy descriptions. " +
	"Split the text into description, requirements, tasks, conditions and benefits, " +
	"keeping the original language. Use 0 for unknown salary bounds and \"unknown\" " +
	"for fields you cannot determine."

// AIClassifier calls an OpenAI-compatible /chat/completions endpoint with
// structured outputs. One attempt per vacancy; retries are the chain's job
// (it falls through to the heuristic stage instead).
type AIClassifier struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewAIClassifier creates the AI chain stage. timeout bounds each request so
// a slow provider degrades the pipeline to heuristics instead of stalling it.
func NewAIClassifier(baseURL, apiKey, modelName string, timeout time.Duration) *AIClassifier {
	return &AIClassifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      modelName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *AIClassifier) Name() string { return StageAI }

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    int            `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string         `json:"type"`
	JSONSchema jsonSchemaSpec `json:"json_schema"`
}

type jsonSchemaSpec struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *AIClassifier) Analyze(ctx context.Context, title, description string) (model.StructuredAnalysis, error) {
	prompt := fmt.Sprintf("Title: %s\n\nDescription:\n%s", title, description)

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: aiSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   2048,
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchemaSpec{
				Name:   "vacancy_analysis",
				Schema: vacancyAnalysisSchema,
			},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return model.StructuredAnalysis{}, fmt.Errorf("marshal llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return model.StructuredAnalysis{}, fmt.Errorf("create llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.StructuredAnalysis{}, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.StructuredAnalysis{}, fmt.Errorf("read llm response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.StructuredAnalysis{}, fmt.Errorf("llm returned HTTP %d: %s", resp.StatusCode, string(respBytes))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return model.StructuredAnalysis{}, fmt.Errorf("parse llm response: %w", err)
	}
	if chatResp.Error != nil {
		return model.StructuredAnalysis{}, fmt.Errorf("llm error (%s): %s", chatResp.Error.Type, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return model.StructuredAnalysis{}, fmt.Errorf("llm returned no choices")
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &raw); err != nil {
		return model.StructuredAnalysis{}, fmt.Errorf("parse llm content: %w", err)
	}
	return normalizeRaw(raw, title, description), nil
}

// normalizeRaw coerces the model's output into the closed enums and fills
// sentinels so a well-formed but sparse response still yields a complete
// analysis. Relevance scoring stays keyword-based for comparability across
// stages.
func normalizeRaw(raw rawAnalysis, title, description string) model.StructuredAnalysis {
	analysis := model.StructuredAnalysis{
		FullDescription: textOrSentinel(raw.FullDescription),
		Requirements:    textOrSentinel(raw.Requirements),
		Tasks:           textOrSentinel(raw.Tasks),
		Conditions:      textOrSentinel(raw.Conditions),
		Benefits:        textOrSentinel(raw.Benefits),
		Technologies:    raw.Technologies,
		Experience:      validExperience(raw.ExperienceLevel),
		Employment:      validEmployment(raw.EmploymentType),
		Remote:          raw.RemoteWork,
		Specialization:  validSpecialization(raw.Specialization),
		RelevanceScore:  RelevanceScore(title + "\n" + description),
		Salary: model.SalaryRange{
			Min:      max(raw.SalaryMin, 0),
			Max:      max(raw.SalaryMax, 0),
			Currency: normalizeCurrency(raw.SalaryCurrency),
		},
	}
	if analysis.FullDescription == model.NotSpecified {
		analysis.FullDescription = textOrSentinel(description)
	}
	return analysis
}

func textOrSentinel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.NotSpecified
	}
	return s
}

func validExperience(s string) model.Experience {
	switch e := model.Experience(s); e {
	case model.ExperienceJunior, model.ExperienceMiddle, model.ExperienceSenior, model.ExperienceLead:
		return e
	default:
		return model.ExperienceUnknown
	}
}

func validEmployment(s string) model.Employment {
	switch e := model.Employment(s); e {
	case model.EmploymentFullTime, model.EmploymentPartTime, model.EmploymentProject,
		model.EmploymentFreelance, model.EmploymentInternship, model.EmploymentVolunteer:
		return e
	default:
		return model.EmploymentUnknown
	}
}

func validSpecialization(s string) string {
	switch s {
	case "design", "development":
		return s
	default:
		return "other"
	}
}
