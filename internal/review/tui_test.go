package review

import (
	"context"
	"io"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkorchagin/vacradar/internal/model"
	"github.com/mkorchagin/vacradar/internal/moderation"
	"github.com/mkorchagin/vacradar/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func keyEnter() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEnter}
}

// newTestModel seeds one pending vacancy and returns a sized review model
// over the pending queue.
func newTestModel(t *testing.T) (reviewModel, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	_, _, err := st.Upsert(context.Background(), &model.VacancyRecord{
		Source:      "hh",
		ExternalID:  "1",
		Title:       "Продуктовый дизайнер",
		Company:     "Студия",
		Description: "Ищем дизайнера.",
		Analysis:    model.StructuredAnalysis{Stage: "heuristic"},
	}, false)
	if err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	records, err := st.GetByStatus(context.Background(), model.StatusPending)
	if err != nil {
		t.Fatalf("loading pending: %v", err)
	}

	m := reviewModel{
		svc:       moderation.NewService(st, testLogger()),
		moderator: "alice",
		queue:     Queues[0],
		records:   records,
	}
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(reviewModel), st
}

func TestUpdate_ApproveMovesRecordOutOfPendingList(t *testing.T) {
	m, st := newTestModel(t)

	// Enter detail view, open the approve prompt, confirm with empty notes.
	next, _ := m.Update(keyEnter())
	m = next.(reviewModel)
	if m.view != viewDetail {
		t.Fatalf("view after enter = %d, want detail", m.view)
	}

	next, _ = m.Update(keyRune('a'))
	m = next.(reviewModel)
	if m.view != viewNotes || m.pendingAction != model.ActionApprove {
		t.Fatalf("view = %d action = %q, want notes prompt with approve", m.view, m.pendingAction)
	}

	next, cmd := m.Update(keyEnter())
	m = next.(reviewModel)
	if cmd == nil {
		t.Fatal("expected a decision command")
	}
	next, _ = m.Update(cmd())
	m = next.(reviewModel)

	if m.view != viewDetail {
		t.Errorf("view after decision = %d, want detail", m.view)
	}
	if len(m.records) != 0 {
		t.Errorf("pending list still holds %d records", len(m.records))
	}

	all, _ := st.GetAll(context.Background())
	if len(all) != 1 || all[0].Status != model.StatusApproved || all[0].Moderator != "alice" {
		t.Errorf("stored record = %+v, want approved by alice", all[0])
	}
}

func TestUpdate_DecisionKeysIgnoredOnModeratedRecord(t *testing.T) {
	m, st := newTestModel(t)

	all, _ := st.GetAll(context.Background())
	if err := st.SetModeration(context.Background(), all[0].ID, model.StatusRejected, "bob", ""); err != nil {
		t.Fatalf("moderating: %v", err)
	}
	m.records, _ = st.GetAll(context.Background())
	m.queue = Queues[3] // All

	next, _ := m.Update(keyEnter())
	m = next.(reviewModel)

	next, _ = m.Update(keyRune('a'))
	m = next.(reviewModel)
	if m.view != viewDetail {
		t.Errorf("approve key on a rejected record opened view %d, want detail unchanged", m.view)
	}

	got, _ := st.GetByID(context.Background(), all[0].ID)
	if got.Status != model.StatusRejected || got.Moderator != "bob" {
		t.Errorf("record = %q/%q, want first decision preserved", got.Status, got.Moderator)
	}
}
