package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mkorchagin/vacradar/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockAdapter calls a function on each invocation, tracking call count.
type mockAdapter struct {
	calls int
	fn    func(attempt int) ([]model.RawPosting, error)
}

func (m *mockAdapter) Name() string { return "mock" }

func (m *mockAdapter) Fetch(_ context.Context, _ string, _ int) ([]model.RawPosting, error) {
	m.calls++
	return m.fn(m.calls)
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	postings := []model.RawPosting{{Source: "mock", ExternalID: "1", Title: "Designer"}}
	mock := &mockAdapter{fn: func(_ int) ([]model.RawPosting, error) {
		return postings, nil
	}}

	ra := NewRetryAdapter(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := ra.Fetch(context.Background(), "designer", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ExternalID != "1" {
		t.Fatalf("unexpected postings: %v", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesOnNetwork_SucceedsOnSecondAttempt(t *testing.T) {
	postings := []model.RawPosting{{ExternalID: "1"}}
	mock := &mockAdapter{fn: func(attempt int) ([]model.RawPosting, error) {
		if attempt == 1 {
			return nil, &model.FetchError{Source: "mock", Kind: model.FetchNetwork, StatusCode: 503}
		}
		return postings, nil
	}}

	ra := NewRetryAdapter(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := ra.Fetch(context.Background(), "designer", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(got))
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn429(t *testing.T) {
	mock := &mockAdapter{fn: func(attempt int) ([]model.RawPosting, error) {
		if attempt == 1 {
			return nil, &model.FetchError{Source: "mock", Kind: model.FetchBlocked, StatusCode: 429}
		}
		return nil, nil
	}}

	ra := NewRetryAdapter(mock, 2, 10*time.Millisecond, discardLogger())
	if _, err := ra.Fetch(context.Background(), "designer", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryOnBlockOrMarkupChange(t *testing.T) {
	tests := []struct {
		name string
		err  *model.FetchError
	}{
		{"hard block", &model.FetchError{Source: "mock", Kind: model.FetchBlocked, StatusCode: 403}},
		{"markup change", &model.FetchError{Source: "mock", Kind: model.FetchStructure}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockAdapter{fn: func(_ int) ([]model.RawPosting, error) {
				return nil, tt.err
			}}

			ra := NewRetryAdapter(mock, 2, 10*time.Millisecond, discardLogger())
			_, err := ra.Fetch(context.Background(), "designer", 1)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var fetchErr *model.FetchError
			if !errors.As(err, &fetchErr) || fetchErr.Kind != tt.err.Kind {
				t.Fatalf("expected %s FetchError, got %v", tt.err.Kind, err)
			}
			if mock.calls != 1 {
				t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
			}
		})
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockAdapter{fn: func(_ int) ([]model.RawPosting, error) {
		return nil, &model.FetchError{Source: "mock", Kind: model.FetchNetwork, StatusCode: 500}
	}}

	ra := NewRetryAdapter(mock, 2, 10*time.Millisecond, discardLogger())
	_, err := ra.Fetch(context.Background(), "designer", 1)
	if err == nil {
		t.Fatal("expected error after max retries, got nil")
	}
	// 1 initial + 2 retries = 3
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", mock.calls)
	}
}

func TestRetry_SingleRetryBudget(t *testing.T) {
	mock := &mockAdapter{fn: func(_ int) ([]model.RawPosting, error) {
		return nil, &model.FetchError{Source: "mock", Kind: model.FetchNetwork, StatusCode: 500}
	}}

	ra := NewRetryAdapter(mock, 1, 10*time.Millisecond, discardLogger())
	if _, err := ra.Fetch(context.Background(), "designer", 1); err == nil {
		t.Fatal("expected error after the retry, got nil")
	}
	// 1 initial + 1 retry = 2: a transient error gets exactly one more chance.
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls (1 + 1 retry), got %d", mock.calls)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockAdapter{fn: func(_ int) ([]model.RawPosting, error) {
		return nil, &model.FetchError{Source: "mock", Kind: model.FetchNetwork, StatusCode: 500}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel immediately so the backoff sleep is interrupted.
	cancel()

	ra := NewRetryAdapter(mock, 2, time.Second, discardLogger())
	_, err := ra.Fetch(ctx, "designer", 1)
	if err == nil {
		t.Fatal("expected error from context cancellation, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// Should have made initial call, then been cancelled during backoff.
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}
