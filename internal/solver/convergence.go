package solver

import (
	"fmt"
	"math"
)

// ConvergenceStrategy defines how to detect convergence
type ConvergenceStrategy interface {
	// CheckConvergence checks if the run has converged based on its history
	CheckConvergence(history []EvaluationRecord, direction Direction) (bool, string)
	// Name returns the name of the convergence strategy
	Name() string
}

// ConvergenceConfig holds configuration for convergence detection
type ConvergenceConfig struct {
	// NoImprovementEvaluations is the number of evaluations without a new best before stopping
	NoImprovementEvaluations int
	// ImprovementThreshold is the minimum relative improvement of the best value to consider significant
	ImprovementThreshold float64
	// ScoreTolerance is the absolute tolerance for best-value changes to be considered equal
	ScoreTolerance float64
	// MinEvaluations is the minimum number of evaluations before convergence can be detected
	MinEvaluations int
	// PlateauEvaluations is the window over which the best value must stay flat
	PlateauEvaluations int
}

// DefaultConvergenceConfig returns a default convergence configuration
func DefaultConvergenceConfig() *ConvergenceConfig {
	return &ConvergenceConfig{
		NoImprovementEvaluations: 25,
		ImprovementThreshold:     0.001,
		ScoreTolerance:           1e-9,
		MinEvaluations:           10,
		PlateauEvaluations:       25,
	}
}

// bestTrace returns the running best value after each evaluation
func bestTrace(history []EvaluationRecord, direction Direction) []float64 {
	trace := make([]float64, len(history))
	for i, rec := range history {
		if i == 0 || direction.Better(rec.Value, trace[i-1]) {
			trace[i] = rec.Value
		} else {
			trace[i] = trace[i-1]
		}
	}
	return trace
}

// NoImprovementStrategy detects convergence when the best value has not
// changed for N evaluations
type NoImprovementStrategy struct {
	config *ConvergenceConfig
}

// NewNoImprovementStrategy creates a new no-improvement convergence strategy
func NewNoImprovementStrategy(config *ConvergenceConfig) *NoImprovementStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &NoImprovementStrategy{config: config}
}

func (s *NoImprovementStrategy) Name() string {
	return "no_improvement"
}

func (s *NoImprovementStrategy) CheckConvergence(history []EvaluationRecord, direction Direction) (bool, string) {
	if len(history) < s.config.MinEvaluations || len(history) == 0 {
		return false, ""
	}

	bestIndex := 0
	for i := 1; i < len(history); i++ {
		if direction.Better(history[i].Value, history[bestIndex].Value) {
			bestIndex = i
		}
	}

	since := len(history) - 1 - bestIndex
	if since >= s.config.NoImprovementEvaluations {
		return true, fmt.Sprintf("no improvement for %d evaluations (best at step %d)", since, history[bestIndex].Step)
	}
	return false, ""
}

// PlateauStrategy detects convergence when the best value moved less than
// ScoreTolerance over the last PlateauEvaluations evaluations
type PlateauStrategy struct {
	config *ConvergenceConfig
}

// NewPlateauStrategy creates a new plateau convergence strategy
func NewPlateauStrategy(config *ConvergenceConfig) *PlateauStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &PlateauStrategy{config: config}
}

func (s *PlateauStrategy) Name() string {
	return "plateau"
}

func (s *PlateauStrategy) CheckConvergence(history []EvaluationRecord, direction Direction) (bool, string) {
	window := s.config.PlateauEvaluations
	if len(history) < s.config.MinEvaluations || window < 1 || len(history) <= window {
		return false, ""
	}

	trace := bestTrace(history, direction)
	start := trace[len(trace)-1-window]
	end := trace[len(trace)-1]
	change := math.Abs(end - start)
	if change <= s.config.ScoreTolerance {
		return true, fmt.Sprintf("best value plateaued for %d evaluations (change: %.3g)", window, change)
	}
	return false, ""
}

// ThresholdStrategy detects convergence when the relative improvement of
// the best value over the recent window is below ImprovementThreshold
type ThresholdStrategy struct {
	config *ConvergenceConfig
}

// NewThresholdStrategy creates a new improvement threshold convergence strategy
func NewThresholdStrategy(config *ConvergenceConfig) *ThresholdStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &ThresholdStrategy{config: config}
}

func (s *ThresholdStrategy) Name() string {
	return "improvement_threshold"
}

func (s *ThresholdStrategy) CheckConvergence(history []EvaluationRecord, direction Direction) (bool, string) {
	window := s.config.NoImprovementEvaluations
	if len(history) < s.config.MinEvaluations+1 || window < 1 || len(history) <= window {
		return false, ""
	}

	trace := bestTrace(history, direction)
	before := trace[len(trace)-1-window]
	after := trace[len(trace)-1]
	if before == 0 {
		return false, ""
	}
	relative := math.Abs(after-before) / math.Abs(before)
	if relative < s.config.ImprovementThreshold {
		return true, fmt.Sprintf("improvement below threshold over %d evaluations (%.4f%%, threshold: %.4f%%)", window, relative*100, s.config.ImprovementThreshold*100)
	}
	return false, ""
}

// CombinedStrategy uses multiple strategies and converges if any strategy detects convergence
type CombinedStrategy struct {
	strategies []ConvergenceStrategy
}

// NewCombinedStrategy creates a combined strategy over no-improvement and plateau detection
func NewCombinedStrategy(config *ConvergenceConfig) *CombinedStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &CombinedStrategy{
		strategies: []ConvergenceStrategy{
			NewNoImprovementStrategy(config),
			NewPlateauStrategy(config),
		},
	}
}

func (s *CombinedStrategy) Name() string {
	return "combined"
}

func (s *CombinedStrategy) CheckConvergence(history []EvaluationRecord, direction Direction) (bool, string) {
	for _, strategy := range s.strategies {
		if converged, reason := strategy.CheckConvergence(history, direction); converged {
			return true, fmt.Sprintf("%s: %s", strategy.Name(), reason)
		}
	}
	return false, ""
}

// AddStrategy adds a custom strategy to the combined strategy
func (s *CombinedStrategy) AddStrategy(strategy ConvergenceStrategy) {
	s.strategies = append(s.strategies, strategy)
}

// NewConvergenceStrategy builds a strategy by name
func NewConvergenceStrategy(name string, config *ConvergenceConfig) (ConvergenceStrategy, error) {
	switch name {
	case "no_improvement":
		return NewNoImprovementStrategy(config), nil
	case "plateau":
		return NewPlateauStrategy(config), nil
	case "improvement_threshold", "threshold":
		return NewThresholdStrategy(config), nil
	case "combined", "":
		return NewCombinedStrategy(config), nil
	}
	return nil, fmt.Errorf("unknown convergence strategy %q", name)
}
