package model

import (
	"context"
	"time"
)

// NotSpecified is the sentinel stored in analysis fields that no pipeline
// stage could fill. Fields are never left empty.
const NotSpecified = "not specified"

// RawPosting is one vacancy as scraped from a single source page, before
// structuring and enrichment. It is never persisted directly.
type RawPosting struct {
	Source      string     // adapter name, e.g. "hh"
	ExternalID  string     // unique within the source
	URL         string     // direct link to the vacancy
	Title       string     // vacancy title
	Company     string     // employer name
	Location    string     // location string as shown on the card
	Salary      string     // raw salary text, empty if absent
	Description string     // plain-text description blob
	PublishedAt *time.Time // nullable (not every card carries a date)
}

// Experience is the closed seniority enum.
type Experience string

const (
	ExperienceJunior  Experience = "junior"
	ExperienceMiddle  Experience = "middle"
	ExperienceSenior  Experience = "senior"
	ExperienceLead    Experience = "lead"
	ExperienceUnknown Experience = "unknown"
)

// Employment is the closed employment-type enum.
type Employment string

const (
	EmploymentFullTime   Employment = "full_time"
	EmploymentPartTime   Employment = "part_time"
	EmploymentProject    Employment = "project"
	EmploymentFreelance  Employment = "freelance"
	EmploymentInternship Employment = "internship"
	EmploymentVolunteer  Employment = "volunteer"
	EmploymentUnknown    Employment = "unknown"
)

// SalaryRange is a parsed salary. Zero Min/Max means the bound is absent.
type SalaryRange struct {
	Min      int
	Max      int
	Currency string // ISO-ish code; "RUB" when absent or ambiguous
}

// StructuredAnalysis is the normalized output of the enrichment pipeline.
// Every string field holds extracted content or NotSpecified; exactly one
// pipeline stage produces the whole struct, never a mix of stages.
type StructuredAnalysis struct {
	FullDescription string
	Requirements    string
	Tasks           string
	Conditions      string
	Benefits        string
	Technologies    []string
	Experience      Experience
	Employment      Employment
	Remote          bool
	Salary          SalaryRange
	Specialization  string  // coarse label, e.g. "design"
	RelevanceScore  float64 // 0..1 keyword-based confidence
	Stage           string  // "ai", "heuristic" or "minimal"
}

// Status is the moderation state of a stored vacancy.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ModerationAction is a requested moderation transition.
type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
)

// VacancyRecord is the canonical persisted vacancy: scraped fields plus
// enrichment output plus moderation and audit state. Identity for
// deduplication is (Source, ExternalID); ID is the surrogate key exposed
// to external consumers.
type VacancyRecord struct {
	ID          string
	Source      string
	ExternalID  string
	URL         string
	Title       string
	Company     string
	Location    string
	Description string
	PublishedAt *time.Time

	Analysis StructuredAnalysis

	Status            Status
	Moderator         string
	ModerationNotes   string
	ModeratedAt       *time.Time
	DescriptionEdited bool // moderator edited Description; survives re-ingestion

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SourceAdapter fetches one page of search results from a single site.
// A page with no matching cards returns an empty slice and nil error;
// failures are FetchError values.
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context, query string, page int) ([]RawPosting, error)
}

// Enricher turns a raw description into a StructuredAnalysis. It never
// fails: the last pipeline stage always produces a usable result.
type Enricher interface {
	Enrich(ctx context.Context, title, description string) StructuredAnalysis
}

// VacancyStore persists vacancy records keyed by (source, external_id).
type VacancyStore interface {
	// Upsert inserts rec as pending or merges it into the existing record
	// with the same (source, external_id). Moderation state and
	// moderator-entered fields survive the merge unless override is set.
	// Returns the surrogate id and whether a new record was created.
	Upsert(ctx context.Context, rec *VacancyRecord, override bool) (id string, created bool, err error)
	GetByID(ctx context.Context, id string) (*VacancyRecord, error)
	GetByStatus(ctx context.Context, status Status) ([]VacancyRecord, error)
	GetAll(ctx context.Context) ([]VacancyRecord, error)
	// Search runs a free-text match over title, company and description.
	Search(ctx context.Context, query string) ([]VacancyRecord, error)
	// SetModeration records a moderation decision. Callers are expected to
	// validate the transition first (see the moderation package).
	SetModeration(ctx context.Context, id string, status Status, moderator, notes string) error
	// UpdateDescription stores a moderator-edited description and marks it
	// so re-ingestion will not overwrite it.
	UpdateDescription(ctx context.Context, id, description, moderator string) error
	// Purge deletes records older than the given age. Never called by
	// ingestion; maintenance only.
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Notifier reports newly queued vacancies to an external channel.
type Notifier interface {
	Notify(records []VacancyRecord) error
}
