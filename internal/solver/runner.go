package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/space"
)

const tracerName = "github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/solver"

// Metadata keys of RunResult
const (
	MetaSolver      = "solver"
	MetaProblem     = "problem"
	MetaObjective   = "objective"
	MetaDirection   = "direction"
	MetaBudget      = "budget"
	MetaParallelism = "parallelism"
	MetaDuration    = "duration_seconds"
	MetaStopReason  = "stop_reason"
	MetaStats       = "value_stats"
)

// Runner drives a solver against a problem until the evaluation budget is spent
type Runner struct {
	problem     Problem
	solver      Solver
	budget      int
	objective   string
	parallelism int
	callbacks   []Callback
	logger      *slog.Logger
}

// NewRunner creates a sequential runner for budget evaluations of the default objective
func NewRunner(problem Problem, solver Solver, budget int) *Runner {
	return &Runner{
		problem:     problem,
		solver:      solver,
		budget:      budget,
		parallelism: 1,
		logger:      slog.Default(),
	}
}

// WithObjective selects the objective passed to the problem
func (r *Runner) WithObjective(objective string) *Runner {
	r.objective = objective
	return r
}

// WithParallelism evaluates up to k asked candidates concurrently.
// Tell order and history order stay the submission order.
func (r *Runner) WithParallelism(k int) *Runner {
	if k < 1 {
		k = 1
	}
	r.parallelism = k
	return r
}

// WithCallbacks appends run observers
func (r *Runner) WithCallbacks(callbacks ...Callback) *Runner {
	r.callbacks = append(r.callbacks, callbacks...)
	return r
}

// WithLogger sets the logger used for debug output
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	if logger != nil {
		r.logger = logger
	}
	return r
}

type evaluation struct {
	vector   []float64
	params   space.Values
	value    float64
	duration time.Duration
	err      error
}

// Run resets the solver and loops ask, clip, unpack, evaluate, tell, record.
// Evaluation errors abort the run. Context cancellation and StopError from a
// callback end it early with a valid, shorter result.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if r.problem == nil || r.solver == nil {
		return nil, fmt.Errorf("runner needs a problem and a solver")
	}
	if r.budget < 1 {
		return nil, fmt.Errorf("evaluation budget must be at least 1, got %d", r.budget)
	}

	direction := Maximize
	if d, ok := r.solver.(interface{ Direction() Direction }); ok {
		direction = d.Direction()
	}
	info := RunInfo{
		Problem:   r.problem.Name(),
		Solver:    r.solver.Name(),
		Objective: r.objective,
		Direction: direction,
		Budget:    r.budget,
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "solver.Run", trace.WithAttributes(
		attribute.String("problem", info.Problem),
		attribute.String("solver", info.Solver),
		attribute.String("objective", info.Objective),
		attribute.Int("budget", info.Budget),
		attribute.Int("parallelism", r.parallelism),
	))
	defer span.End()

	r.solver.Reset()
	for _, cb := range r.callbacks {
		if err := cb.OnStart(ctx, info); err != nil {
			return nil, r.fail(span, fmt.Errorf("callback start: %w", err))
		}
	}

	sp := r.problem.SearchSpace()
	start := time.Now()
	history := make([]EvaluationRecord, 0, min(r.budget, 4096))
	stopReason := ""

loop:
	for len(history) < r.budget {
		if err := ctx.Err(); err != nil {
			stopReason = "cancelled: " + err.Error()
			break
		}
		step := len(history)
		batch := min(r.parallelism, r.budget-step)

		vectors, err := r.solver.Ask(batch)
		if err != nil {
			return nil, r.fail(span, fmt.Errorf("ask at step %d: %w", step, err))
		}
		if len(vectors) == 0 {
			return nil, r.fail(span, fmt.Errorf("ask at step %d: solver returned no candidates", step))
		}
		if len(vectors) > batch {
			vectors = vectors[:batch]
		}

		evals := r.evaluateBatch(ctx, sp, vectors)
		for i, ev := range evals {
			if ev.err == nil {
				continue
			}
			if ctx.Err() != nil && (errors.Is(ev.err, context.Canceled) || errors.Is(ev.err, context.DeadlineExceeded)) {
				stopReason = "cancelled: " + ctx.Err().Error()
				break loop
			}
			return nil, r.fail(span, fmt.Errorf("evaluate step %d: %w", step+i, ev.err))
		}

		told := make([][]float64, len(evals))
		values := make([]float64, len(evals))
		for i, ev := range evals {
			told[i] = ev.vector
			values[i] = ev.value
		}
		if err := r.solver.Tell(told, values); err != nil {
			return nil, r.fail(span, fmt.Errorf("tell at step %d: %w", step, err))
		}
		best, _ := r.solver.Best()

		for i, ev := range evals {
			history = append(history, EvaluationRecord{
				Step:            step + i,
				Vector:          ev.vector,
				Params:          ev.params,
				Value:           ev.value,
				DurationSeconds: ev.duration.Seconds(),
			})
		}
		for i := range evals {
			state := State{
				Step:    step + i,
				Budget:  r.budget,
				Record:  history[step+i],
				Best:    best,
				History: history[:step+i+1],
			}
			if stop, err := r.notifyStep(ctx, state); err != nil {
				return nil, r.fail(span, err)
			} else if stop != "" {
				stopReason = stop
				break loop
			}
		}
		r.logger.Debug("batch evaluated", "step", step, "size", len(evals), "best", best.Value)
	}

	result := &RunResult{
		History: history,
		NEvals:  len(history),
		Metadata: map[string]any{
			MetaSolver:      info.Solver,
			MetaProblem:     info.Problem,
			MetaObjective:   info.Objective,
			MetaDirection:   direction.String(),
			MetaBudget:      r.budget,
			MetaParallelism: r.parallelism,
			MetaDuration:    time.Since(start).Seconds(),
		},
	}
	result.Metadata[MetaStats] = HistoryStats(result.Values())
	if stopReason != "" {
		result.Metadata[MetaStopReason] = stopReason
		span.SetAttributes(attribute.String("stop_reason", stopReason))
	}
	if best, ok := r.solver.Best(); ok && len(history) > 0 {
		result.BestVector = best.Vector
		result.BestParams = best.Params
		result.BestValue = best.Value
		span.SetAttributes(attribute.Float64("best_value", best.Value))
	}
	span.SetAttributes(attribute.Int("n_evals", result.NEvals))

	for _, cb := range r.callbacks {
		if err := cb.OnEnd(ctx, result); err != nil {
			return nil, r.fail(span, fmt.Errorf("callback end: %w", err))
		}
	}
	return result.clone(), nil
}

func (r *Runner) notifyStep(ctx context.Context, state State) (string, error) {
	stop := ""
	for _, cb := range r.callbacks {
		err := cb.OnStep(ctx, state)
		if err == nil {
			continue
		}
		var stopErr *StopError
		if errors.As(err, &stopErr) {
			if stop == "" {
				stop = stopErr.Reason
			}
			continue
		}
		return "", fmt.Errorf("callback at step %d: %w", state.Step, err)
	}
	return stop, nil
}

// evaluateBatch evaluates vectors, concurrently when the batch has more than one.
// Results keep the order of vectors.
func (r *Runner) evaluateBatch(ctx context.Context, sp *space.SearchSpace, vectors [][]float64) []evaluation {
	out := make([]evaluation, len(vectors))
	if len(vectors) == 1 {
		out[0] = r.evaluateOne(ctx, sp, vectors[0])
		return out
	}

	semaphore := make(chan struct{}, r.parallelism)
	var wg sync.WaitGroup
	for i, vec := range vectors {
		wg.Add(1)
		go func(idx int, v []float64) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			out[idx] = r.evaluateOne(ctx, sp, v)
		}(i, vec)
	}
	wg.Wait()
	return out
}

func (r *Runner) evaluateOne(ctx context.Context, sp *space.SearchSpace, vec []float64) evaluation {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "solver.evaluate")
	defer span.End()

	clipped, params, err := prepare(sp, vec)
	if err != nil {
		span.RecordError(err)
		return evaluation{err: err}
	}
	started := time.Now()
	value, err := r.problem.EvaluateObjective(ctx, params, r.objective)
	ev := evaluation{vector: clipped, params: params, value: value, duration: time.Since(started), err: err}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Float64("value", value))
	}
	return ev
}

func (r *Runner) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
