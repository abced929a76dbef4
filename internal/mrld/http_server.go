package mrld

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/metrics"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/problem"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/config"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/logger"
)

const defaultListLimit = 50

type HTTPServer struct {
	router   *chi.Mux
	store    *RunStore
	Executor *RunExecutor
}

// NewHTTPServer wires the REST API. collector may be nil, in which case
// /metrics is not served.
func NewHTTPServer(store *RunStore, executor *RunExecutor, collector *metrics.Collector) *HTTPServer {
	s := &HTTPServer{
		router:   chi.NewRouter(),
		store:    store,
		Executor: executor,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealthz)
	if collector != nil {
		s.router.Handle("/metrics", collector.Handler())
	}

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/runs", s.handleCreateRun)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Post("/runs/{id}/start", s.handleStartRun)
		r.Post("/runs/{id}/stop", s.handleStopRun)
		r.Get("/runs/{id}/result", s.handleGetResult)
	})

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"runs":      s.store.Count(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCreateRun handles POST /v1/runs
func (s *HTTPServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RunID string    `json:"run_id,omitempty"`
		Input *RunInput `json:"input"`
		Start *bool     `json:"start,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Input == nil {
		s.writeError(w, http.StatusBadRequest, "input is required")
		return
	}
	if req.Input.CallbackURL != "" {
		if err := ValidateCallbackURL(req.Input.CallbackURL); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	rec, err := s.Executor.Create(req.RunID, *req.Input)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	if req.Start == nil || *req.Start {
		rec, err = s.Executor.Start(rec.Run.ID)
		if err != nil {
			s.writeRunError(w, err)
			return
		}
	}

	logger.Info("run created", "run_id", rec.Run.ID, "status", string(rec.Run.Status))
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"run": runToJSON(rec.Run),
	})
}

// handleListRuns handles GET /v1/runs?limit=&offset=&status=
func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), defaultListLimit)
	if err != nil || limit < 0 {
		s.writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		s.writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	var status RunStatus
	if raw := q.Get("status"); raw != "" {
		if status = ParseRunStatus(raw); status == "" {
			s.writeError(w, http.StatusBadRequest, "invalid status: "+raw)
			return
		}
	}

	records := s.store.List(limit, offset, status)
	runs := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		runs = append(runs, runToJSON(rec.Run))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"total": s.store.Count(),
	})
}

func (s *HTTPServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": runToJSON(rec.Run),
	})
}

func (s *HTTPServer) handleStartRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Executor.Start(chi.URLParam(r, "id"))
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": runToJSON(rec.Run),
	})
}

func (s *HTTPServer) handleStopRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Executor.Stop(chi.URLParam(r, "id"))
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": runToJSON(rec.Run),
	})
}

// handleGetResult returns the run summary once the run has ended
func (s *HTTPServer) handleGetResult(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if rec.Result == nil {
		s.writeError(w, http.StatusPreconditionFailed, "result not available, run is "+string(rec.Run.Status))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run":    runToJSON(rec.Run),
		"result": rec.Result,
	})
}

// handleEvaluate scores a single design against an inline problem
func (s *HTTPServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProblemYAML string `json:"problem_yaml"`
		Objective   string `json:"objective,omitempty"`
		Design      struct {
			Composition  float64 `json:"x_mrl"`
			MRLThickness float64 `json:"d_mrl"`
			CapThickness float64 `json:"d_cap"`
			Cap          string  `json:"cap"`
		} `json:"design"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ProblemYAML == "" {
		s.writeError(w, http.StatusBadRequest, "problem_yaml is required")
		return
	}

	file, err := config.ParseConfigYAMLString(req.ProblemYAML)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := problem.NewFromFile(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	objective := req.Objective
	if objective == "" {
		objective = file.Solver.Objective
	}
	objective, err = problem.ParseObjective(objective)
	if err != nil {
		var unknown *problem.UnknownObjectiveError
		if errors.As(err, &unknown) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	b, err := p.Evaluate(r.Context(), problem.Design{
		Composition:  req.Design.Composition,
		MRLThickness: req.Design.MRLThickness,
		CapThickness: req.Design.CapThickness,
		Cap:          req.Design.Cap,
	}, objective)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, safeMap(b.ToMap()))
}

func (s *HTTPServer) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRunNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrRunExists), errors.Is(err, ErrRunTerminal):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidRunID), errors.Is(err, ErrRunIDMissing):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
