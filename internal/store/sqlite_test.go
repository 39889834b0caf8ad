package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mkorchagin/vacradar/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vacancies.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord() *model.VacancyRecord {
	return &model.VacancyRecord{
		Source:      "hh",
		ExternalID:  "101",
		URL:         "https://hh.ru/vacancy/101",
		Title:       "Продуктовый дизайнер",
		Company:     "Студия",
		Location:    "Москва",
		Description: "Ищем дизайнера.",
		Analysis: model.StructuredAnalysis{
			FullDescription: "Ищем дизайнера.",
			Requirements:    "Figma",
			Tasks:           model.NotSpecified,
			Conditions:      "Удаленка",
			Benefits:        model.NotSpecified,
			Technologies:    []string{"Figma"},
			Experience:      model.ExperienceMiddle,
			Employment:      model.EmploymentFullTime,
			Remote:          true,
			Salary:          model.SalaryRange{Min: 100000, Max: 150000, Currency: "RUB"},
			Specialization:  "design",
			RelevanceScore:  0.4,
			Stage:           "heuristic",
		},
	}
}

func TestUpsert_InsertThenUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, created, err := s.Upsert(ctx, sampleRecord(), false)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !created || id == "" {
		t.Fatalf("created = %v, id = %q", created, id)
	}

	got, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if got.Analysis.Salary.Min != 100000 {
		t.Errorf("salary min = %d", got.Analysis.Salary.Min)
	}
	if len(got.Analysis.Technologies) != 1 || got.Analysis.Technologies[0] != "Figma" {
		t.Errorf("technologies = %v", got.Analysis.Technologies)
	}

	// Same identity with a new salary updates in place.
	rec := sampleRecord()
	rec.Analysis.Salary.Min = 120000
	id2, created, err := s.Upsert(ctx, rec, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if created || id2 != id {
		t.Fatalf("expected merge into %s, got created=%v id=%s", id, created, id2)
	}

	got, err = s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Analysis.Salary.Min != 120000 {
		t.Errorf("salary min after update = %d, want 120000", got.Analysis.Salary.Min)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record after re-ingest, got %d", len(all))
	}
}

func TestUpsert_PreservesModerationState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _, err := s.Upsert(ctx, sampleRecord(), false)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.SetModeration(ctx, id, model.StatusApproved, "alice", "ok"); err != nil {
		t.Fatalf("moderate: %v", err)
	}

	rec := sampleRecord()
	rec.Title = "Продуктовый дизайнер (обновлено)"
	if _, _, err := s.Upsert(ctx, rec, false); err != nil {
		t.Fatalf("re-ingest: %v", err)
	}

	got, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusApproved || got.Moderator != "alice" {
		t.Errorf("moderation lost on re-ingest: status=%q moderator=%q", got.Status, got.Moderator)
	}
	if got.ModeratedAt == nil {
		t.Error("moderated_at lost on re-ingest")
	}
	if got.Title != "Продуктовый дизайнер (обновлено)" {
		t.Errorf("content not refreshed: %q", got.Title)
	}
}

func TestUpsert_PreservesEditedDescription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _, err := s.Upsert(ctx, sampleRecord(), false)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.UpdateDescription(ctx, id, "Отредактировано модератором.", "alice"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	if _, _, err := s.Upsert(ctx, sampleRecord(), false); err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	got, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != "Отредактировано модератором." {
		t.Errorf("edited description lost: %q", got.Description)
	}
	if !got.DescriptionEdited {
		t.Error("description_edited flag lost")
	}
}

func TestUpsert_OverrideResetsModerationAndEdits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _, err := s.Upsert(ctx, sampleRecord(), false)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.SetModeration(ctx, id, model.StatusRejected, "alice", "spam"); err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if err := s.UpdateDescription(ctx, id, "правка", "alice"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	if _, _, err := s.Upsert(ctx, sampleRecord(), true); err != nil {
		t.Fatalf("override re-ingest: %v", err)
	}
	got, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusPending || got.Moderator != "" || got.ModeratedAt != nil {
		t.Errorf("override did not reset moderation: %+v", got)
	}
	if got.DescriptionEdited || got.Description != "Ищем дизайнера." {
		t.Errorf("override did not restore scraped description: edited=%v %q",
			got.DescriptionEdited, got.Description)
	}
}

func TestUpsert_ConcurrentSameKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const workers = 10
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		createdCount int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := sampleRecord()
			rec.Analysis.Salary.Min = 100000 + n
			_, created, err := s.Upsert(ctx, rec, false)
			if err != nil {
				t.Errorf("concurrent upsert: %v", err)
				return
			}
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if createdCount != 1 {
		t.Errorf("created on %d of %d upserts, want exactly 1", createdCount, workers)
	}
	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("stored %d records, want 1", len(all))
	}

	// Moderation state must survive a concurrent re-ingest storm too.
	if err := s.SetModeration(ctx, all[0].ID, model.StatusApproved, "alice", "ok"); err != nil {
		t.Fatalf("moderating: %v", err)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.Upsert(ctx, sampleRecord(), false); err != nil {
				t.Errorf("concurrent re-upsert: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.GetByID(ctx, all[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusApproved || got.Moderator != "alice" {
		t.Errorf("after re-ingest status = %q moderator = %q, want approved/alice", got.Status, got.Moderator)
	}
}

func TestGetByStatus_And_Search(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleRecord()
	id1, _, err := s.Upsert(ctx, first, false)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	second := sampleRecord()
	second.ExternalID = "102"
	second.Title = "Backend разработчик"
	if _, _, err := s.Upsert(ctx, second, false); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.SetModeration(ctx, id1, model.StatusApproved, "alice", ""); err != nil {
		t.Fatalf("moderate: %v", err)
	}

	pending, err := s.GetByStatus(ctx, model.StatusPending)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ExternalID != "102" {
		t.Errorf("pending = %v", pending)
	}

	found, err := s.Search(ctx, "backend")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ExternalID != "102" {
		t.Errorf("search = %v", found)
	}

	// LIKE wildcards in user input are literals, not patterns.
	none, err := s.Search(ctx, "%")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("wildcard search matched %d records", len(none))
	}
}

func TestSetModeration_UnknownID(t *testing.T) {
	s := newTestStore(t)
	err := s.SetModeration(context.Background(), "missing", model.StatusApproved, "alice", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPurge_RemovesOnlyOldRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _, err := s.Upsert(ctx, sampleRecord(), false)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Nothing is old enough yet.
	removed, err := s.Purge(ctx, time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed %d records, want 0", removed)
	}

	// With a zero cutoff everything qualifies.
	time.Sleep(10 * time.Millisecond)
	removed, err = s.Purge(ctx, 0)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d records, want 1", removed)
	}
	if _, err := s.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after purge, got %v", err)
	}
}
