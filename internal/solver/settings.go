package solver

import (
	"fmt"
	"log/slog"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/config"
)

// Settings is a resolved run configuration
type Settings struct {
	Kind          Kind
	Options       Options
	Objective     string
	Budget        int
	Parallelism   int
	EarlyStopping ConvergenceStrategy
	Checkpoint    string
	// CheckpointEvery is the number of steps between checkpoint writes
	CheckpointEvery int
}

// DefaultCheckpointEvery applies when the problem file leaves checkpoint_every unset
const DefaultCheckpointEvery = 10

// SettingsFromConfig resolves the solver section of a problem file
func SettingsFromConfig(c config.Solver) (*Settings, error) {
	kind, err := ParseKind(c.Kind)
	if err != nil {
		return nil, err
	}
	direction, err := ParseDirection(c.Direction)
	if err != nil {
		return nil, err
	}
	if c.Budget < 1 {
		return nil, fmt.Errorf("evaluation budget must be at least 1, got %d", c.Budget)
	}

	s := &Settings{
		Kind: kind,
		Options: Options{
			Direction:  direction,
			Seed:       c.Seed,
			GridPoints: c.GridPoints,
		},
		Objective:   c.Objective,
		Budget:      c.Budget,
		Parallelism: max(c.Parallelism, 1),
		Checkpoint:  c.Checkpoint,

		CheckpointEvery: DefaultCheckpointEvery,
	}
	if c.CheckpointEvery < 0 {
		return nil, fmt.Errorf("checkpoint_every cannot be negative, got %d", c.CheckpointEvery)
	}
	if c.CheckpointEvery > 0 {
		s.CheckpointEvery = c.CheckpointEvery
	}

	if es := c.EarlyStopping; es != nil {
		cfg := DefaultConvergenceConfig()
		if es.Patience > 0 {
			cfg.NoImprovementEvaluations = es.Patience
			cfg.PlateauEvaluations = es.Patience
		}
		if es.MinEvaluations > 0 {
			cfg.MinEvaluations = es.MinEvaluations
		}
		if es.Tolerance > 0 {
			cfg.ScoreTolerance = es.Tolerance
		}
		if es.Threshold > 0 {
			cfg.ImprovementThreshold = es.Threshold
		}
		strategy, err := NewConvergenceStrategy(es.Strategy, cfg)
		if err != nil {
			return nil, err
		}
		s.EarlyStopping = strategy
	}
	return s, nil
}

// NewRunner builds the solver for p and a runner wired with the configured
// early stopping and checkpoint callbacks followed by extra
func (s *Settings) NewRunner(p Problem, logger *slog.Logger, extra ...Callback) (*Runner, error) {
	sv, err := New(s.Kind, p.SearchSpace(), s.Options)
	if err != nil {
		return nil, err
	}

	callbacks := make([]Callback, 0, len(extra)+2)
	if s.EarlyStopping != nil {
		callbacks = append(callbacks, NewEarlyStoppingCallback(s.EarlyStopping, s.Options.Direction))
	}
	if s.Checkpoint != "" {
		callbacks = append(callbacks, NewCheckpointCallback(s.Checkpoint, s.CheckpointEvery))
	}
	callbacks = append(callbacks, extra...)

	return NewRunner(p, sv, s.Budget).
		WithObjective(s.Objective).
		WithParallelism(s.Parallelism).
		WithLogger(logger).
		WithCallbacks(callbacks...), nil
}
