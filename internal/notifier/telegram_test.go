package notifier

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mkorchagin/vacradar/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord() model.VacancyRecord {
	return model.VacancyRecord{
		Source:  "hh",
		Title:   "Продуктовый дизайнер",
		Company: "Студия <Пиксель>",
		URL:     "https://hh.ru/vacancy/101",
		Analysis: model.StructuredAnalysis{
			Experience:   model.ExperienceMiddle,
			Technologies: []string{"Figma"},
			Salary:       model.SalaryRange{Min: 150000, Max: 200000, Currency: "RUB"},
		},
	}
}

func TestTelegramNotifier_SendsMessage(t *testing.T) {
	var got telegramMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "-100123", srv.Client(), discardLogger())
	n.apiURL = srv.URL

	if err := n.Notify([]model.VacancyRecord{testRecord()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ChatID != "-100123" {
		t.Errorf("chat_id = %q", got.ChatID)
	}
	if !strings.Contains(got.Text, "Продуктовый дизайнер") {
		t.Errorf("text missing title: %q", got.Text)
	}
	if !strings.Contains(got.Text, "150000–200000 RUB") {
		t.Errorf("text missing salary: %q", got.Text)
	}
	// Angle brackets in scraped fields must be escaped for HTML parse mode.
	if !strings.Contains(got.Text, "&lt;Пиксель&gt;") {
		t.Errorf("company not escaped: %q", got.Text)
	}
}

func TestTelegramNotifier_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "chat", srv.Client(), discardLogger())
	n.apiURL = srv.URL

	if err := n.Notify([]model.VacancyRecord{testRecord()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestTelegramNotifier_AllFailuresReturnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "chat", srv.Client(), discardLogger())
	n.apiURL = srv.URL

	if err := n.Notify([]model.VacancyRecord{testRecord()}); err == nil {
		t.Fatal("expected error when every message fails")
	}
}

func TestTelegramNotifier_EmptyBatchIsNoop(t *testing.T) {
	n := NewTelegramNotifier("token", "chat", http.DefaultClient, discardLogger())
	if err := n.Notify(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
