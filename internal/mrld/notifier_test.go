package mrld

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

func newTestNotifier() *Notifier {
	n := NewNotifier()
	n.backoff = utils.NewExponentialBackoff(time.Millisecond, 5*time.Millisecond, 2)
	n.httpClient.Timeout = 2 * time.Second
	return n
}

func TestValidateCallbackURL(t *testing.T) {
	valid := []string{"http://localhost:9000/hook", "https://example.com/runs/{run_id}"}
	for _, u := range valid {
		if err := ValidateCallbackURL(u); err != nil {
			t.Errorf("expected %q to be valid, got %v", u, err)
		}
	}
	invalid := []string{"ftp://example.com", "example.com/hook", "http://", "://bad"}
	for _, u := range invalid {
		if err := ValidateCallbackURL(u); !errors.Is(err, ErrInvalidCallbackURL) {
			t.Errorf("expected %q to be rejected, got %v", u, err)
		}
	}
}

func TestNotifierPostsPayload(t *testing.T) {
	var (
		mu      sync.Mutex
		path    string
		secret  string
		payload NotificationPayload
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		secret = r.Header.Get(CallbackSecretHeader)
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := newTestNotifier()
	rec := RunRecord{
		Run: Run{
			ID:       "run-7",
			Status:   StatusCompleted,
			Progress: Progress{Evaluations: 4, Budget: 4, BestValue: 2.5, HasBest: true},
		},
		Result: map[string]any{"n_evals": 4},
	}
	n.Notify(server.URL+"/runs/{run_id}/done", "s3cret", rec)
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	if path != "/runs/run-7/done" {
		t.Fatalf("expected run id substituted into path, got %q", path)
	}
	if secret != "s3cret" {
		t.Fatalf("expected secret header, got %q", secret)
	}
	if payload.RunID != "run-7" || payload.Status != StatusCompleted {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Progress.BestValue != 2.5 || payload.Result["n_evals"] != float64(4) {
		t.Fatalf("unexpected payload body %+v", payload)
	}
	if payload.Timestamp == 0 {
		t.Fatalf("expected timestamp")
	}
}

func TestNotifierRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := newTestNotifier()
	n.Notify(server.URL, "", RunRecord{Run: Run{ID: "r", Status: StatusFailed}})
	n.Wait()

	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestNotifierGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := newTestNotifier()
	n.Notify(server.URL, "", RunRecord{Run: Run{ID: "r", Status: StatusFailed}})
	n.Wait()

	if got := calls.Load(); got != int32(n.maxRetries+1) {
		t.Fatalf("expected %d attempts, got %d", n.maxRetries+1, got)
	}
}

func TestNotifierSkipsEmptyURL(t *testing.T) {
	n := newTestNotifier()
	n.Notify("", "", RunRecord{Run: Run{ID: "r"}})
	n.Wait()
}

func TestExecutorNotifiesOnCompletion(t *testing.T) {
	received := make(chan NotificationPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p NotificationPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := NewRunStore()
	executor := NewRunExecutor(store, nil)
	n := newTestNotifier()
	executor.SetNotifier(n)

	if _, err := executor.Submit("notify-me", RunInput{ProblemYAML: testProblemYAML, CallbackURL: server.URL}); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	executor.Wait()
	n.Wait()

	select {
	case p := <-received:
		if p.RunID != "notify-me" || p.Status != StatusCompleted {
			t.Fatalf("unexpected payload %+v", p)
		}
		if p.Result == nil {
			t.Fatalf("expected result in payload")
		}
	default:
		t.Fatalf("expected a notification")
	}
}
