package model

import (
	"fmt"
	"time"
)

// FetchKind classifies adapter failures.
type FetchKind string

const (
	// FetchNetwork covers transport errors, timeouts and 5xx responses.
	FetchNetwork FetchKind = "network"
	// FetchBlocked means the site refused us (403/429).
	FetchBlocked FetchKind = "blocked"
	// FetchStructure means cards were found but field extraction failed,
	// i.e. the site markup changed under our selectors.
	FetchStructure FetchKind = "structure-changed"
)

// FetchError wraps a source adapter failure so the retry decorator and the
// monitor can inspect its kind and status code.
type FetchError struct {
	Source     string
	Kind       FetchKind
	StatusCode int           // zero for non-HTTP failures
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fetch (%s): %v", e.Source, e.Kind, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch (%s): HTTP %d", e.Source, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s fetch (%s)", e.Source, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether one short-backoff retry is allowed: transient
// network failures and 429s qualify, other 4xx and markup changes do not.
func (e *FetchError) Retryable() bool {
	return e.Kind == FetchNetwork || e.StatusCode == 429
}

// ValidationError is returned for malformed moderation requests and
// disallowed state transitions. The record is left unchanged.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}
