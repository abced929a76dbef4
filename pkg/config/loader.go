package config

import (
	"fmt"
	"os"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

// Defaults applied by ParseConfigYAML
const (
	DefaultLogLevel  = "info"
	DefaultAmbient   = "air"
	DefaultElementA  = "Co"
	DefaultElementB  = "Ti"
	DefaultSolver    = "random"
	DefaultBudget    = 100
	DefaultDirection = "maximize"
)

// LoadConfig loads and parses a problem file
func LoadConfig(path string) (*ProblemFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Grid returns the Q values, expanding a linear range when no explicit
// values are given
func (q QGrid) Grid() []float64 {
	if len(q.Values) > 0 {
		return append([]float64(nil), q.Values...)
	}
	return utils.Linspace(q.Min, q.Max, q.Points)
}

// SLDs returns the constituent nuclear SLDs, preferring rho_n_a/rho_n_b
// over the element-specific aliases
func (m MRL) SLDs() (a, b float64) {
	switch {
	case m.RhoNA != nil:
		a = *m.RhoNA
	case m.RhoNCo != nil:
		a = *m.RhoNCo
	}
	switch {
	case m.RhoNB != nil:
		b = *m.RhoNB
	case m.RhoNTi != nil:
		b = *m.RhoNTi
	}
	return a, b
}

// Roughness returns the alloy top-surface roughness
func (m MRL) Roughness() float64 {
	switch {
	case m.Sigma != nil:
		return *m.Sigma
	case m.SigmaMRLCap != nil:
		return *m.SigmaMRLCap
	}
	return 0
}

// SubstrateRoughness returns the roughness of the substrate/alloy interface
func (m Materials) SubstrateRoughness() float64 {
	if m.MRL.SigmaSubMRL != nil {
		return *m.MRL.SigmaSubMRL
	}
	return m.Substrate.Sigma
}

func applyDefaults(cfg *ProblemFile) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Materials.Ambient.Name == "" {
		cfg.Materials.Ambient.Name = DefaultAmbient
	}
	mrl := &cfg.Materials.MRL
	if mrl.ElementA == "" {
		mrl.ElementA = DefaultElementA
	}
	if mrl.ElementB == "" {
		mrl.ElementB = DefaultElementB
	}
	if mrl.Magnetic.Model == "" {
		mrl.Magnetic.Model = MagneticBinaryAlloy
	}
	if cfg.Solver.Kind == "" {
		cfg.Solver.Kind = DefaultSolver
	}
	if cfg.Solver.Budget == 0 {
		cfg.Solver.Budget = DefaultBudget
	}
	if cfg.Solver.Direction == "" {
		cfg.Solver.Direction = DefaultDirection
	}
}

// validateConfig checks the file structure only: log level, required keys,
// enumerations and the Q-grid shape. Catalog contents, scenarios and bounds
// are checked when the problem is built so that every violation is reported
// together.
func validateConfig(cfg *ProblemFile) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if err := validateMaterials(&cfg.Materials); err != nil {
		return fmt.Errorf("materials validation failed: %w", err)
	}

	if err := validateQGrid(cfg.Q); err != nil {
		return fmt.Errorf("q validation failed: %w", err)
	}

	if cfg.Weighting != nil {
		switch cfg.Weighting.Type {
		case WeightingUniform, WeightingQPower:
		default:
			return fmt.Errorf("invalid weighting type: %s (must be %s or %s)", cfg.Weighting.Type, WeightingUniform, WeightingQPower)
		}
	}

	if err := validateSolver(&cfg.Solver); err != nil {
		return fmt.Errorf("solver validation failed: %w", err)
	}

	return nil
}

func validateMaterials(m *Materials) error {
	mrl := m.MRL
	if mrl.RhoNA == nil && mrl.RhoNCo == nil {
		return fmt.Errorf("mrl: rho_n_a (or rho_n_Co) is required")
	}
	if mrl.RhoNB == nil && mrl.RhoNTi == nil {
		return fmt.Errorf("mrl: rho_n_b (or rho_n_Ti) is required")
	}

	switch mrl.Magnetic.Model {
	case MagneticBinaryAlloy, MagneticLinear, MagneticConstant:
	default:
		return fmt.Errorf("mrl: invalid magnetic model %s (must be %s, %s, or %s)",
			mrl.Magnetic.Model, MagneticBinaryAlloy, MagneticLinear, MagneticConstant)
	}
	return nil
}

func validateQGrid(q QGrid) error {
	if len(q.Values) > 0 {
		if q.Points != 0 {
			return fmt.Errorf("values and points are mutually exclusive")
		}
		return nil
	}
	if q.Points < 2 {
		return fmt.Errorf("either values or at least 2 points are required, got %d points", q.Points)
	}
	if q.Min >= q.Max {
		return fmt.Errorf("min %g must be below max %g", q.Min, q.Max)
	}
	return nil
}

func validateSolver(s *Solver) error {
	if s.Budget < 1 {
		return fmt.Errorf("budget must be positive, got %d", s.Budget)
	}
	if s.GridPoints < 0 {
		return fmt.Errorf("grid_points cannot be negative, got %d", s.GridPoints)
	}
	if s.Parallelism < 0 {
		return fmt.Errorf("parallelism cannot be negative, got %d", s.Parallelism)
	}
	if s.CheckpointEvery < 0 {
		return fmt.Errorf("checkpoint_every cannot be negative, got %d", s.CheckpointEvery)
	}
	if es := s.EarlyStopping; es != nil {
		if es.Patience < 0 || es.MinEvaluations < 0 {
			return fmt.Errorf("early_stopping patience and min_evaluations cannot be negative")
		}
		if es.Tolerance < 0 || es.Threshold < 0 {
			return fmt.Errorf("early_stopping tolerance and threshold cannot be negative")
		}
	}
	return nil
}
