package mrld

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ParseRunStatus returns "" for unknown names
func ParseRunStatus(s string) RunStatus {
	switch st := RunStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return st
	}
	return ""
}

var (
	ErrRunExists    = errors.New("run already exists")
	ErrInvalidRunID = errors.New("run_id may only contain letters, digits, '-', '_' and '.'")
)

// RunInput is what a client submits
type RunInput struct {
	ProblemYAML    string `json:"problem_yaml"`
	Solver         string `json:"solver,omitempty"`
	Objective      string `json:"objective,omitempty"`
	Direction      string `json:"direction,omitempty"`
	Budget         int    `json:"budget,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`
	Parallelism    int    `json:"parallelism,omitempty"`
	CallbackURL    string `json:"callback_url,omitempty"`
	CallbackSecret string `json:"callback_secret,omitempty"`
}

// Progress reports how far a run has come
type Progress struct {
	Evaluations int     `json:"evaluations"`
	Budget      int     `json:"budget"`
	BestValue   float64 `json:"best_value"`
	HasBest     bool    `json:"has_best"`
}

// Run is the public state of a run
type Run struct {
	ID              string    `json:"id"`
	Status          RunStatus `json:"status"`
	Problem         string    `json:"problem,omitempty"`
	Solver          string    `json:"solver,omitempty"`
	CreatedAtUnixMs int64     `json:"created_at_unix_ms"`
	StartedAtUnixMs int64     `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64     `json:"ended_at_unix_ms,omitempty"`
	Error           string    `json:"error,omitempty"`
	Progress        Progress  `json:"progress"`
}

// RunRecord is a snapshot of a stored run. Result holds the run summary once
// the run has ended and is never modified afterwards.
type RunRecord struct {
	Run    Run
	Input  RunInput
	Result map[string]any
}

// RunStore keeps runs in memory. Every accessor returns copies.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*RunRecord),
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

func (s *RunStore) Create(runID string, input RunInput) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == "" {
		runID = utils.GenerateRunID()
	} else if !utils.IsValidRunID(runID) {
		return RunRecord{}, fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	if _, exists := s.runs[runID]; exists {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunExists, runID)
	}

	rec := &RunRecord{
		Run: Run{
			ID:              runID,
			Status:          StatusPending,
			CreatedAtUnixMs: nowUnixMs(),
			Progress:        Progress{Budget: input.Budget},
		},
		Input: input,
	}
	s.runs[runID] = rec
	return *rec, nil
}

func (s *RunStore) Get(runID string) (RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return RunRecord{}, false
	}
	return *rec, true
}

// List returns runs ordered by creation time, optionally filtered by status
func (s *RunStore) List(limit, offset int, status RunStatus) []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	all := make([]RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		if status != "" && rec.Run.Status != status {
			continue
		}
		all = append(all, *rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Run.CreatedAtUnixMs != all[j].Run.CreatedAtUnixMs {
			return all[i].Run.CreatedAtUnixMs < all[j].Run.CreatedAtUnixMs
		}
		return all[i].Run.ID < all[j].Run.ID
	})

	if offset >= len(all) {
		return []RunRecord{}
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// SetStatus moves a run to status. A run in a terminal state keeps it, the
// current record is returned unchanged.
func (s *RunStore) SetStatus(runID string, status RunStatus, errMsg string) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status.Terminal() {
		return *rec, nil
	}

	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}

	switch status {
	case StatusRunning:
		if rec.Run.StartedAtUnixMs == 0 {
			rec.Run.StartedAtUnixMs = nowUnixMs()
		}
	case StatusCompleted, StatusFailed, StatusCancelled:
		rec.Run.EndedAtUnixMs = nowUnixMs()
	}

	return *rec, nil
}

// MarkRunning moves a pending run to running. started reports whether this
// call made the transition; the current record is returned either way.
func (s *RunStore) MarkRunning(runID string) (rec RunRecord, started bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return RunRecord{}, false, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if r.Run.Status != StatusPending {
		return *r, false, nil
	}
	r.Run.Status = StatusRunning
	r.Run.StartedAtUnixMs = nowUnixMs()
	return *r, true, nil
}

// SetDescription records the problem and solver names once a run is planned
func (s *RunStore) SetDescription(runID, problem, solver string, budget int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Run.Problem = problem
	rec.Run.Solver = solver
	rec.Run.Progress.Budget = budget
	return nil
}

func (s *RunStore) SetProgress(runID string, progress Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Run.Progress = progress
	return nil
}

func (s *RunStore) SetResult(runID string, result map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Result = result
	return nil
}

// Count returns the number of stored runs
func (s *RunStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
