package store

import (
	"context"
	"testing"

	"github.com/mkorchagin/vacradar/internal/model"
)

func TestMemoryStore_MatchesSQLiteSemantics(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, created, err := s.Upsert(ctx, sampleRecord(), false)
	if err != nil || !created {
		t.Fatalf("insert: created=%v err=%v", created, err)
	}

	if err := s.SetModeration(ctx, id, model.StatusApproved, "alice", ""); err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if err := s.UpdateDescription(ctx, id, "правка", "alice"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	id2, created, err := s.Upsert(ctx, sampleRecord(), false)
	if err != nil || created || id2 != id {
		t.Fatalf("re-ingest: id=%s created=%v err=%v", id2, created, err)
	}

	got, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusApproved || got.Description != "правка" {
		t.Errorf("merge lost moderation or edits: %+v", got)
	}

	id3, created, err := s.Upsert(ctx, sampleRecord(), true)
	if err != nil || created || id3 != id {
		t.Fatalf("override: id=%s created=%v err=%v", id3, created, err)
	}
	got, _ = s.GetByID(ctx, id)
	if got.Status != model.StatusPending || got.DescriptionEdited {
		t.Errorf("override did not reset: %+v", got)
	}
}
