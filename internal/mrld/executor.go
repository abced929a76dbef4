package mrld

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/metrics"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/problem"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/solver"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/config"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/logger"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
	ErrInvalidInput = errors.New("invalid run input")
)

// plan is a run input resolved into a problem and solver settings
type plan struct {
	problem  *problem.MRLProblem
	settings *solver.Settings
}

// buildPlan parses the problem file and applies the per-run overrides
func buildPlan(input RunInput) (*plan, error) {
	if input.ProblemYAML == "" {
		return nil, fmt.Errorf("%w: problem_yaml is required", ErrInvalidInput)
	}
	file, err := config.ParseConfigYAMLString(input.ProblemYAML)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	sc := &file.Solver
	if input.Solver != "" {
		sc.Kind = input.Solver
	}
	if input.Objective != "" {
		sc.Objective = input.Objective
	}
	if input.Direction != "" {
		sc.Direction = input.Direction
	}
	if input.Budget > 0 {
		sc.Budget = input.Budget
	}
	if input.Seed != nil {
		sc.Seed = *input.Seed
	}
	if input.Parallelism > 0 {
		sc.Parallelism = input.Parallelism
	}
	// checkpoint paths are a CLI concern
	sc.Checkpoint = ""

	settings, err := solver.SettingsFromConfig(*sc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if _, err := problem.ParseObjective(settings.Objective); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	p, err := problem.NewFromFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if _, err := solver.New(settings.Kind, p.SearchSpace(), settings.Options); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return &plan{problem: p, settings: settings}, nil
}

// RunExecutor manages asynchronous run execution and per-run cancellation.
type RunExecutor struct {
	store     *RunStore
	collector *metrics.Collector
	notifier  *Notifier

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunExecutor creates an executor. collector may be nil.
func NewRunExecutor(store *RunStore, collector *metrics.Collector) *RunExecutor {
	return &RunExecutor{
		store:     store,
		collector: collector,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// SetNotifier enables completion callbacks
func (e *RunExecutor) SetNotifier(n *Notifier) {
	e.notifier = n
}

// Create validates input and stores a pending run
func (e *RunExecutor) Create(runID string, input RunInput) (RunRecord, error) {
	p, err := buildPlan(input)
	if err != nil {
		return RunRecord{}, err
	}
	rec, err := e.store.Create(runID, input)
	if err != nil {
		return RunRecord{}, err
	}
	if err := e.store.SetDescription(rec.Run.ID, p.problem.Name(), string(p.settings.Kind), p.settings.Budget); err != nil {
		return RunRecord{}, err
	}
	rec, _ = e.store.Get(rec.Run.ID)
	return rec, nil
}

// Start begins executing a run asynchronously.
// Returns the updated run state (running) or an error.
func (e *RunExecutor) Start(runID string) (RunRecord, error) {
	if runID == "" {
		return RunRecord{}, ErrRunIDMissing
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	switch {
	case rec.Run.Status == StatusRunning:
		return rec, nil
	case rec.Run.Status.Terminal():
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	p, err := buildPlan(rec.Input)
	if err != nil {
		return RunRecord{}, err
	}

	updated, started, err := e.store.MarkRunning(runID)
	if err != nil {
		return RunRecord{}, err
	}
	if !started {
		// another caller won the transition, or the run was stopped meanwhile
		if updated.Run.Status.Terminal() {
			return RunRecord{}, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
		}
		return updated, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancels[runID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go e.execute(ctx, runID, p)
	return updated, nil
}

// Submit creates and starts a run
func (e *RunExecutor) Submit(runID string, input RunInput) (RunRecord, error) {
	rec, err := e.Create(runID, input)
	if err != nil {
		return RunRecord{}, err
	}
	return e.Start(rec.Run.ID)
}

// Stop requests cancellation and marks the run cancelled. Stopping a
// cancelled run is a no-op; stopping a completed or failed run is an error.
func (e *RunExecutor) Stop(runID string) (RunRecord, error) {
	if runID == "" {
		return RunRecord{}, ErrRunIDMissing
	}
	rec, ok := e.store.Get(runID)
	if !ok {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	switch rec.Run.Status {
	case StatusCancelled:
		return rec, nil
	case StatusCompleted, StatusFailed:
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	return e.store.SetStatus(runID, StatusCancelled, "")
}

// Wait blocks until every started run has finished
func (e *RunExecutor) Wait() {
	e.wg.Wait()
}

// Shutdown cancels every active run and waits for them to finish
func (e *RunExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	ids := make([]string, 0, len(e.cancels))
	for id := range e.cancels {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	for _, id := range ids {
		if _, err := e.Stop(id); err != nil && !errors.Is(err, ErrRunTerminal) {
			logger.Warn("failed to stop run during shutdown", "run_id", id, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
}

func (e *RunExecutor) execute(ctx context.Context, runID string, p *plan) {
	defer e.wg.Done()
	defer e.cleanup(runID)

	log := logger.ForRun(runID, string(p.settings.Kind))
	every := max(p.settings.Budget/10, 1)

	runMetrics := e.collector.Callback()
	progress := solver.NewProgressCallback(func(done, budget int, best float64) {
		if err := e.store.SetProgress(runID, Progress{Evaluations: done, Budget: budget, BestValue: best, HasBest: done > 0}); err != nil {
			log.Warn("failed to record progress", "error", err)
		}
	})

	runner, err := p.settings.NewRunner(p.problem, log, solver.NewLoggingCallback(log, every), runMetrics, progress)
	if err != nil {
		e.fail(runID, log, fmt.Errorf("build runner: %w", err))
		return
	}

	log.Info("starting optimization", "problem", p.problem.Name(), "budget", p.settings.Budget)
	result, err := runner.Run(ctx)
	if err != nil {
		runMetrics.Fail()
		e.fail(runID, log, err)
		return
	}

	if err := e.store.SetResult(runID, safeMap(result.Summary())); err != nil {
		log.Error("failed to store result", "error", err)
	}

	status := StatusCompleted
	if ctx.Err() != nil {
		status = StatusCancelled
	}
	rec, err := e.store.SetStatus(runID, status, "")
	if err != nil {
		log.Error("failed to set final status", "error", err)
		return
	}
	log.Info("optimization finished", "status", string(rec.Run.Status), "n_evals", result.NEvals, "best_value", result.BestValue)
	e.notify(rec.Run.ID)
}

func (e *RunExecutor) fail(runID string, log *slog.Logger, err error) {
	log.Error("optimization failed", "error", err)
	if _, setErr := e.store.SetStatus(runID, StatusFailed, err.Error()); setErr != nil {
		log.Error("failed to set failed status", "error", setErr)
	}
	e.notify(runID)
}

func (e *RunExecutor) notify(runID string) {
	if e.notifier == nil {
		return
	}
	rec, ok := e.store.Get(runID)
	if !ok || rec.Input.CallbackURL == "" {
		return
	}
	e.notifier.Notify(rec.Input.CallbackURL, rec.Input.CallbackSecret, rec)
}
