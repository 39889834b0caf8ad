package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkorchagin/vacradar/internal/model"
)

// MemoryStore is an in-memory VacancyStore used in dry-run mode and tests.
// Semantics mirror SQLiteStore, nothing survives a restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*model.VacancyRecord // keyed by surrogate id
	byKey   map[string]string               // (source|external_id) -> id
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*model.VacancyRecord),
		byKey:   make(map[string]string),
	}
}

func (s *MemoryStore) Upsert(_ context.Context, rec *model.VacancyRecord, override bool) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := rec.Source + "|" + rec.ExternalID

	if id, ok := s.byKey[key]; ok {
		existing := s.records[id]
		merged := *rec
		merged.ID = id
		merged.CreatedAt = existing.CreatedAt
		merged.UpdatedAt = now
		if override {
			merged.Status = model.StatusPending
			merged.Moderator = ""
			merged.ModerationNotes = ""
			merged.ModeratedAt = nil
			merged.DescriptionEdited = false
		} else {
			merged.Status = existing.Status
			merged.Moderator = existing.Moderator
			merged.ModerationNotes = existing.ModerationNotes
			merged.ModeratedAt = existing.ModeratedAt
			merged.DescriptionEdited = existing.DescriptionEdited
			if existing.DescriptionEdited {
				merged.Description = existing.Description
			}
		}
		s.records[id] = &merged
		return id, false, nil
	}

	stored := *rec
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.Status = model.StatusPending
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.records[stored.ID] = &stored
	s.byKey[key] = stored.ID
	return stored.ID, true, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*model.VacancyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) GetByStatus(_ context.Context, status model.Status) ([]model.VacancyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.VacancyRecord
	for _, rec := range s.records {
		if rec.Status == status {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetAll(_ context.Context) ([]model.VacancyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.VacancyRecord
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Search(_ context.Context, query string) ([]model.VacancyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(query)
	var out []model.VacancyRecord
	for _, rec := range s.records {
		haystack := strings.ToLower(rec.Title + " " + rec.Company + " " + rec.Description)
		if strings.Contains(haystack, needle) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SetModeration(_ context.Context, id string, status model.Status, moderator, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	rec.Status = status
	rec.Moderator = moderator
	rec.ModerationNotes = notes
	rec.ModeratedAt = &now
	rec.UpdatedAt = now
	return nil
}

func (s *MemoryStore) UpdateDescription(_ context.Context, id, description, moderator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Description = description
	rec.Moderator = moderator
	rec.DescriptionEdited = true
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Purge(_ context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var removed int64
	for id, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			delete(s.byKey, rec.Source+"|"+rec.ExternalID)
			removed++
		}
	}
	return removed, nil
}
