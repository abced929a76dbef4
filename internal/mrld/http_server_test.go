package mrld

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/metrics"
)

func newTestHTTPServer(t *testing.T) (*HTTPServer, *RunStore) {
	t.Helper()
	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector error: %v", err)
	}
	store := NewRunStore()
	executor := NewRunExecutor(store, collector)
	return NewHTTPServer(store, executor, collector), store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var out map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, out
}

func TestHTTPHealthz(t *testing.T) {
	srv, _ := newTestHTTPServer(t)
	rr, body := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestHTTPRunLifecycle(t *testing.T) {
	srv, store := newTestHTTPServer(t)
	h := srv.Handler()

	rr, body := doJSON(t, h, http.MethodPost, "/v1/runs", map[string]any{
		"run_id": "http-run",
		"input":  map[string]any{"problem_yaml": testProblemYAML, "budget": 6},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	run := body["run"].(map[string]any)
	if run["id"] != "http-run" || run["status"] != string(StatusRunning) {
		t.Fatalf("unexpected run %v", run)
	}

	srv.Executor.Wait()
	waitForStatus(t, store, "http-run", StatusCompleted)

	rr, body = doJSON(t, h, http.MethodGet, "/v1/runs/http-run", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	progress := body["run"].(map[string]any)["progress"].(map[string]any)
	if progress["evaluations"] != float64(6) {
		t.Fatalf("unexpected progress %v", progress)
	}

	rr, body = doJSON(t, h, http.MethodGet, "/v1/runs/http-run/result", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	result := body["result"].(map[string]any)
	if result["n_evals"] != float64(6) {
		t.Fatalf("unexpected result %v", result)
	}
	if _, ok := result["best_params"].(map[string]any); !ok {
		t.Fatalf("expected best params, got %v", result["best_params"])
	}

	rr, _ = doJSON(t, h, http.MethodPost, "/v1/runs/http-run/stop", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 stopping a completed run, got %d", rr.Code)
	}
}

func TestHTTPCreateWithoutStart(t *testing.T) {
	srv, _ := newTestHTTPServer(t)
	h := srv.Handler()

	rr, body := doJSON(t, h, http.MethodPost, "/v1/runs", map[string]any{
		"run_id": "later",
		"start":  false,
		"input":  map[string]any{"problem_yaml": testProblemYAML},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if body["run"].(map[string]any)["status"] != string(StatusPending) {
		t.Fatalf("expected pending run, got %v", body)
	}

	rr, _ = doJSON(t, h, http.MethodGet, "/v1/runs/later/result", nil)
	if rr.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", rr.Code)
	}

	rr, body = doJSON(t, h, http.MethodPost, "/v1/runs/later/stop", nil)
	if rr.Code != http.StatusOK || body["run"].(map[string]any)["status"] != string(StatusCancelled) {
		t.Fatalf("expected cancelled run, got %d %v", rr.Code, body)
	}

	rr, _ = doJSON(t, h, http.MethodPost, "/v1/runs/later/start", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 starting a cancelled run, got %d", rr.Code)
	}
}

func TestHTTPCreateRunErrors(t *testing.T) {
	srv, _ := newTestHTTPServer(t)
	h := srv.Handler()

	cases := []struct {
		name string
		body any
		code int
	}{
		{"missing input", map[string]any{}, http.StatusBadRequest},
		{"invalid problem", map[string]any{"input": map[string]any{"problem_yaml": "q: nope"}}, http.StatusBadRequest},
		{"bad run id", map[string]any{"run_id": "a b", "input": map[string]any{"problem_yaml": testProblemYAML}}, http.StatusBadRequest},
		{"bad callback", map[string]any{"input": map[string]any{"problem_yaml": testProblemYAML, "callback_url": "ftp://x"}}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rr, _ := doJSON(t, h, http.MethodPost, "/v1/runs", tc.body)
		if rr.Code != tc.code {
			t.Errorf("%s: expected %d, got %d: %s", tc.name, tc.code, rr.Code, rr.Body.String())
		}
	}

	body := map[string]any{"run_id": "dup", "start": false, "input": map[string]any{"problem_yaml": testProblemYAML}}
	if rr, _ := doJSON(t, h, http.MethodPost, "/v1/runs", body); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if rr, _ := doJSON(t, h, http.MethodPost, "/v1/runs", body); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rr.Code)
	}
}

func TestHTTPListRuns(t *testing.T) {
	srv, _ := newTestHTTPServer(t)
	h := srv.Handler()

	for _, id := range []string{"l1", "l2", "l3"} {
		body := map[string]any{"run_id": id, "start": false, "input": map[string]any{"problem_yaml": testProblemYAML}}
		if rr, _ := doJSON(t, h, http.MethodPost, "/v1/runs", body); rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rr.Code)
		}
	}

	rr, body := doJSON(t, h, http.MethodGet, "/v1/runs?limit=2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if runs := body["runs"].([]any); len(runs) != 2 || body["total"] != float64(3) {
		t.Fatalf("unexpected list %v", body)
	}

	_, body = doJSON(t, h, http.MethodGet, "/v1/runs?status=running", nil)
	if runs := body["runs"].([]any); len(runs) != 0 {
		t.Fatalf("expected no running runs, got %v", runs)
	}

	for _, q := range []string{"limit=x", "offset=-1", "status=bogus"} {
		if rr, _ := doJSON(t, h, http.MethodGet, "/v1/runs?"+q, nil); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rr.Code)
		}
	}
}

func TestHTTPRunNotFound(t *testing.T) {
	srv, _ := newTestHTTPServer(t)
	h := srv.Handler()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/runs/nope"},
		{http.MethodGet, "/v1/runs/nope/result"},
		{http.MethodPost, "/v1/runs/nope/start"},
		{http.MethodPost, "/v1/runs/nope/stop"},
	} {
		if rr, _ := doJSON(t, h, tc.method, tc.path, nil); rr.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, rr.Code)
		}
	}
}

func TestHTTPEvaluate(t *testing.T) {
	srv, _ := newTestHTTPServer(t)
	h := srv.Handler()

	rr, body := doJSON(t, h, http.MethodPost, "/v1/evaluate", map[string]any{
		"problem_yaml": testProblemYAML,
		"objective":    "sfm_up",
		"design":       map[string]any{"x_mrl": 0.5, "d_mrl": 100.0, "d_cap": 20.0, "cap": "Au"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if body["objective"] != "SFM_up" {
		t.Fatalf("unexpected objective %v", body["objective"])
	}
	if _, ok := body["value"].(float64); !ok {
		t.Fatalf("expected numeric value, got %v", body["value"])
	}
	if scenarios := body["scenarios"].([]any); len(scenarios) != 1 {
		t.Fatalf("expected one scenario, got %v", scenarios)
	}

	rr, _ = doJSON(t, h, http.MethodPost, "/v1/evaluate", map[string]any{
		"problem_yaml": testProblemYAML,
		"design":       map[string]any{"x_mrl": 0.5, "d_mrl": 100.0, "d_cap": 20.0, "cap": "Pt"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown cap, got %d", rr.Code)
	}

	rr, _ = doJSON(t, h, http.MethodPost, "/v1/evaluate", map[string]any{
		"problem_yaml": testProblemYAML,
		"objective":    "chi_squared",
		"design":       map[string]any{"x_mrl": 0.5, "d_mrl": 100.0, "d_cap": 20.0, "cap": "Au"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown objective, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "chi_squared") {
		t.Fatalf("expected objective name in error, got %s", rr.Body.String())
	}

	rr, _ = doJSON(t, h, http.MethodPost, "/v1/evaluate", map[string]any{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without problem, got %d", rr.Code)
	}
}

func TestHTTPMetricsEndpoint(t *testing.T) {
	srv, _ := newTestHTTPServer(t)
	h := srv.Handler()

	if rr, _ := doJSON(t, h, http.MethodPost, "/v1/runs", map[string]any{
		"run_id": "m1",
		"input":  map[string]any{"problem_yaml": testProblemYAML},
	}); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	srv.Executor.Wait()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), metrics.MetricEvaluations) {
		t.Fatalf("expected %s in metrics output", metrics.MetricEvaluations)
	}
}
