// Package moderation enforces the vacancy review state machine: records
// enter as pending and take exactly one approve or reject decision.
package moderation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkorchagin/vacradar/internal/model"
)

// Service validates and applies moderation decisions on top of the store.
type Service struct {
	store  model.VacancyStore
	logger *slog.Logger
}

// NewService creates a moderation service.
func NewService(store model.VacancyStore, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Moderate applies an approve or reject decision to a pending record and
// returns the updated record. Invalid actions, a missing moderator name or
// a record outside the pending state yield a ValidationError and leave the
// record untouched.
func (s *Service) Moderate(ctx context.Context, id string, action model.ModerationAction, moderator, notes string) (*model.VacancyRecord, error) {
	if moderator == "" {
		return nil, &model.ValidationError{Reason: "moderator name is required"}
	}

	var status model.Status
	switch action {
	case model.ActionApprove:
		status = model.StatusApproved
	case model.ActionReject:
		status = model.StatusRejected
	default:
		return nil, &model.ValidationError{Reason: fmt.Sprintf("unknown action %q", action)}
	}

	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading vacancy %s: %w", id, err)
	}
	if rec.Status != model.StatusPending {
		return nil, &model.ValidationError{
			Reason: fmt.Sprintf("vacancy is %s, only pending records can be moderated", rec.Status),
		}
	}

	if err := s.store.SetModeration(ctx, id, status, moderator, notes); err != nil {
		return nil, fmt.Errorf("recording decision for vacancy %s: %w", id, err)
	}

	s.logger.Info("vacancy moderated",
		"id", id,
		"status", status,
		"moderator", moderator,
	)

	return s.store.GetByID(ctx, id)
}

// Get loads a single record by surrogate id.
func (s *Service) Get(ctx context.Context, id string) (*model.VacancyRecord, error) {
	return s.store.GetByID(ctx, id)
}

// Pending lists records awaiting a decision, oldest first.
func (s *Service) Pending(ctx context.Context) ([]model.VacancyRecord, error) {
	return s.store.GetByStatus(ctx, model.StatusPending)
}

// EditDescription stores a moderator-rewritten description. The edit is
// flagged so re-ingestion keeps it.
func (s *Service) EditDescription(ctx context.Context, id, description, moderator string) error {
	if moderator == "" {
		return &model.ValidationError{Reason: "moderator name is required"}
	}
	if description == "" {
		return &model.ValidationError{Reason: "description must not be empty"}
	}
	if err := s.store.UpdateDescription(ctx, id, description, moderator); err != nil {
		return fmt.Errorf("updating description of vacancy %s: %w", id, err)
	}
	s.logger.Info("vacancy description edited", "id", id, "moderator", moderator)
	return nil
}
