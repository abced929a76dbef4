package solver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// RunInfo describes a run when it starts
type RunInfo struct {
	Problem   string
	Solver    string
	Objective string
	Direction Direction
	Budget    int
}

// State is passed to OnStep after every recorded evaluation.
// History is owned by the runner and must not be modified.
type State struct {
	Step    int
	Budget  int
	Record  EvaluationRecord
	Best    Incumbent
	History []EvaluationRecord
}

// Callback observes a run. Returning a *StopError from OnStep ends the run
// early with a valid result; any other error aborts the run.
type Callback interface {
	OnStart(ctx context.Context, info RunInfo) error
	OnStep(ctx context.Context, state State) error
	OnEnd(ctx context.Context, result *RunResult) error
}

// StopError asks the runner to stop after the current step
type StopError struct {
	Reason string
}

func (e *StopError) Error() string {
	return "run stopped: " + e.Reason
}

// BaseCallback implements every hook as a no-op for embedding
type BaseCallback struct{}

func (BaseCallback) OnStart(context.Context, RunInfo) error  { return nil }
func (BaseCallback) OnStep(context.Context, State) error     { return nil }
func (BaseCallback) OnEnd(context.Context, *RunResult) error { return nil }

// LoggingCallback logs run start, every Nth step and the final result
type LoggingCallback struct {
	BaseCallback
	logger *slog.Logger
	every  int
}

// NewLoggingCallback logs every step when every < 1
func NewLoggingCallback(logger *slog.Logger, every int) *LoggingCallback {
	if logger == nil {
		logger = slog.Default()
	}
	if every < 1 {
		every = 1
	}
	return &LoggingCallback{logger: logger, every: every}
}

func (c *LoggingCallback) OnStart(ctx context.Context, info RunInfo) error {
	c.logger.InfoContext(ctx, "run started",
		"problem", info.Problem,
		"solver", info.Solver,
		"objective", info.Objective,
		"direction", info.Direction.String(),
		"budget", info.Budget,
	)
	return nil
}

func (c *LoggingCallback) OnStep(ctx context.Context, state State) error {
	if (state.Step+1)%c.every != 0 && state.Step+1 != state.Budget {
		return nil
	}
	c.logger.InfoContext(ctx, "evaluation",
		"step", state.Step,
		"value", state.Record.Value,
		"best", state.Best.Value,
		"duration_seconds", state.Record.DurationSeconds,
	)
	return nil
}

func (c *LoggingCallback) OnEnd(ctx context.Context, result *RunResult) error {
	attrs := []any{"n_evals", result.NEvals}
	if result.HasBest() {
		attrs = append(attrs, "best_value", result.BestValue, "best_params", result.BestParams)
	}
	if reason, ok := result.Metadata[MetaStopReason]; ok {
		attrs = append(attrs, "stop_reason", reason)
	}
	c.logger.InfoContext(ctx, "run finished", attrs...)
	return nil
}

// EarlyStoppingCallback stops the run once a convergence strategy fires
type EarlyStoppingCallback struct {
	BaseCallback
	strategy  ConvergenceStrategy
	direction Direction
}

// NewEarlyStoppingCallback uses the combined strategy when strategy is nil
func NewEarlyStoppingCallback(strategy ConvergenceStrategy, direction Direction) *EarlyStoppingCallback {
	if strategy == nil {
		strategy = NewCombinedStrategy(nil)
	}
	return &EarlyStoppingCallback{strategy: strategy, direction: direction}
}

func (c *EarlyStoppingCallback) OnStep(_ context.Context, state State) error {
	if converged, reason := c.strategy.CheckConvergence(state.History, c.direction); converged {
		return &StopError{Reason: reason}
	}
	return nil
}

// CheckpointCallback writes the partial result summary as JSON every N steps
// and once more at the end
type CheckpointCallback struct {
	BaseCallback
	path  string
	every int
	info  RunInfo
}

// NewCheckpointCallback checkpoints every step when every < 1
func NewCheckpointCallback(path string, every int) *CheckpointCallback {
	if every < 1 {
		every = 1
	}
	return &CheckpointCallback{path: path, every: every}
}

func (c *CheckpointCallback) OnStart(_ context.Context, info RunInfo) error {
	c.info = info
	return nil
}

func (c *CheckpointCallback) OnStep(_ context.Context, state State) error {
	if (state.Step+1)%c.every != 0 {
		return nil
	}
	partial := &RunResult{
		History:  state.History,
		NEvals:   len(state.History),
		Metadata: map[string]any{MetaSolver: c.info.Solver, MetaProblem: c.info.Problem, "partial": true},
	}
	if len(state.History) > 0 {
		partial.BestVector = state.Best.Vector
		partial.BestParams = state.Best.Params
		partial.BestValue = state.Best.Value
	}
	return c.write(partial)
}

func (c *CheckpointCallback) OnEnd(_ context.Context, result *RunResult) error {
	return c.write(result)
}

func (c *CheckpointCallback) write(result *RunResult) error {
	data, err := json.MarshalIndent(result.Summary(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// ProgressFunc receives the number of completed evaluations and the best value
type ProgressFunc func(done, budget int, best float64)

// ProgressCallback forwards step progress to a function
type ProgressCallback struct {
	BaseCallback
	fn ProgressFunc
}

// NewProgressCallback wraps fn
func NewProgressCallback(fn ProgressFunc) *ProgressCallback {
	return &ProgressCallback{fn: fn}
}

func (c *ProgressCallback) OnStep(_ context.Context, state State) error {
	if c.fn != nil {
		c.fn(len(state.History), state.Budget, state.Best.Value)
	}
	return nil
}
