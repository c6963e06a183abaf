package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xzemt/OmniAlpha/adapter"
	"github.com/xzemt/OmniAlpha/iox"
	"github.com/xzemt/OmniAlpha/types"
)

func testEvent() *adapter.JobCompletedEvent {
	return &adapter.JobCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       adapter.EventTypeJobCompleted,
		JobID:           "job-001",
		Generation:      1,
		Kind:            types.JobKindScan,
		Status:          types.JobStatusFailed,
		Matches:         3,
		FailureReason:   "stream ended before done (3/300 processed, 3 matches)",
		Timestamp:       "2024-01-02T15:00:00Z",
		DurationMs:      1500,
	}
}

func newAdapter(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	if cfg.Backoff == 0 {
		cfg.Backoff = time.Millisecond
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(a))
	return a
}

func TestPublish_Success(t *testing.T) {
	var received adapter.JobCompletedEvent
	var idemKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		idemKey = r.Header.Get("Idempotency-Key")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := newAdapter(t, Config{URL: ts.URL})
	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if received.JobID != "job-001" {
		t.Errorf("expected job-001, got %s", received.JobID)
	}
	if received.EventType != "job_completed" {
		t.Errorf("expected job_completed, got %s", received.EventType)
	}
	if received.Status != types.JobStatusFailed {
		t.Errorf("expected failed, got %s", received.Status)
	}
	if received.FailureReason == "" {
		t.Error("expected failure_reason")
	}
	if idemKey != "job-001" {
		t.Errorf("Idempotency-Key = %q, want job-001", idemKey)
	}
}

func TestPublish_CustomHeaders(t *testing.T) {
	var authHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := newAdapter(t, Config{URL: ts.URL, Headers: map[string]string{"Authorization": "Bearer secret"}})
	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if authHeader != "Bearer secret" {
		t.Errorf("expected auth header, got %q", authHeader)
	}
}

func TestPublish_RetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := newAdapter(t, Config{URL: ts.URL, Retries: 3})
	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish should succeed after retries: %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := newAdapter(t, Config{URL: ts.URL, Retries: 10, Backoff: time.Second})

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := New(Config{URL: "http://example.com", Retries: -1}); err == nil {
		t.Error("expected error for negative retries")
	}
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(Config{URL: "http://example.com"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.config.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, a.config.Timeout)
	}
	if a.client.Timeout != DefaultTimeout {
		t.Errorf("expected client timeout %v, got %v", DefaultTimeout, a.client.Timeout)
	}
}

func TestPublish_Accepts2xxRange(t *testing.T) {
	for _, code := range []int{200, 201, 202, 204} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(code)
			}))
			defer ts.Close()

			a := newAdapter(t, Config{URL: ts.URL})
			if err := a.Publish(t.Context(), testEvent()); err != nil {
				t.Fatalf("expected success for %d, got %v", code, err)
			}
		})
	}
}

func TestPublish_AttemptsByStatus(t *testing.T) {
	tests := []struct {
		code int
		want int32
	}{
		// 4xx must not retry
		{400, 1}, {401, 1}, {403, 1}, {404, 1},
		// 1 initial + 2 retries
		{408, 3}, {429, 3}, {500, 3}, {502, 3}, {503, 3},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			var attempts atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.code)
			}))
			defer ts.Close()

			a := newAdapter(t, Config{URL: ts.URL, Retries: 2})
			if err := a.Publish(t.Context(), testEvent()); err == nil {
				t.Fatalf("expected error for %d", tt.code)
			}
			if got := attempts.Load(); got != tt.want {
				t.Errorf("expected %d attempts for %d, got %d", tt.want, tt.code, got)
			}
		})
	}
}
