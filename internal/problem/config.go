package problem

import (
	"fmt"
	"math"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/fom"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/materials"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

// Bounds is a closed interval
type Bounds struct {
	Lo float64
	Hi float64
}

// Clamp projects v onto the interval
func (b Bounds) Clamp(v float64) float64 {
	return utils.ClampFloat64(v, b.Lo, b.Hi)
}

func (b Bounds) finite() bool {
	return !math.IsNaN(b.Lo) && !math.IsNaN(b.Hi) && !math.IsInf(b.Lo, 0) && !math.IsInf(b.Hi, 0)
}

// Config holds everything an MRLProblem needs
type Config struct {
	Name      string
	Catalog   *materials.Catalog
	Scenarios []materials.SignalScenario
	Q         []float64

	CompositionBounds  Bounds
	MRLThicknessBounds Bounds
	CapThicknessBounds Bounds

	// Background is added to every reflectivity curve
	Background float64
	// Weights applies per-Q weighting to SFM and MCF; nil is uniform
	Weights []float64
	// TSF weights the triplet components; nil selects fom.DefaultTSFPolicy
	TSF *fom.TSFPolicy
}

// DefaultBounds returns the design bounds used when a problem file omits them
func DefaultBounds() (composition, mrl, cap Bounds) {
	return Bounds{Lo: 0, Hi: 1}, Bounds{Lo: 20, Hi: 300}, Bounds{Lo: 0, Hi: 100}
}

// Validate returns a *materials.ConfigurationError listing every problem
func (c *Config) Validate() error {
	errs := &materials.ConfigurationError{}

	switch {
	case len(c.Q) == 0:
		errs.Add("q grid must not be empty")
	case len(c.Q) < 2:
		errs.Add("q grid needs at least two points")
	}
	if len(c.Q) > 0 {
		if !utils.AllFinite(c.Q) {
			errs.Add("q grid must be finite")
		}
		for _, q := range c.Q {
			if q <= 0 {
				errs.Add("q grid must be strictly positive")
				break
			}
		}
		if !utils.IsStrictlyIncreasing(c.Q) {
			errs.Add("q grid must be strictly increasing")
		}
	}

	cb := c.CompositionBounds
	if !cb.finite() || cb.Lo < 0 || cb.Hi > 1 || cb.Lo > cb.Hi {
		errs.Add(fmt.Sprintf("composition bounds must satisfy 0 <= lo <= hi <= 1, got [%g, %g]", cb.Lo, cb.Hi))
	}
	mb := c.MRLThicknessBounds
	if !mb.finite() || mb.Lo <= 0 || mb.Lo > mb.Hi {
		errs.Add(fmt.Sprintf("mrl thickness bounds must satisfy 0 < lo <= hi, got [%g, %g]", mb.Lo, mb.Hi))
	}
	tb := c.CapThicknessBounds
	if !tb.finite() || tb.Lo < 0 || tb.Hi <= 0 || tb.Lo > tb.Hi {
		errs.Add(fmt.Sprintf("cap thickness bounds must satisfy 0 <= lo <= hi, hi > 0, got [%g, %g]", tb.Lo, tb.Hi))
	}

	if c.Catalog == nil {
		errs.Add("materials catalog is required")
	} else {
		c.Catalog.Validate(errs)
	}

	if len(c.Scenarios) == 0 {
		errs.Add("at least one signal scenario is required")
	}
	seen := make(map[string]bool, len(c.Scenarios))
	for i, s := range c.Scenarios {
		if s.Name == "" {
			errs.Add(fmt.Sprintf("scenario %d: name is required", i))
		} else if seen[s.Name] {
			errs.Add(fmt.Sprintf("scenario %s: duplicate name", s.Name))
		}
		seen[s.Name] = true
		if !(s.Thickness >= 0) || math.IsInf(s.Thickness, 0) {
			errs.Add(fmt.Sprintf("scenario %s: thickness must be finite and non-negative, got %g", s.Name, s.Thickness))
		}
		if !(s.Roughness >= 0) {
			errs.Add(fmt.Sprintf("scenario %s: roughness cannot be negative, got %g", s.Name, s.Roughness))
		}
	}

	if !(c.Background >= 0) || math.IsInf(c.Background, 0) {
		errs.Add(fmt.Sprintf("background must be finite and non-negative, got %g", c.Background))
	}
	if c.Weights != nil {
		if len(c.Weights) != len(c.Q) {
			errs.Add(fmt.Sprintf("weights length %d does not match q grid length %d", len(c.Weights), len(c.Q)))
		}
		for _, w := range c.Weights {
			if !(w >= 0) || math.IsInf(w, 0) {
				errs.Add("weights must be finite and non-negative")
				break
			}
		}
	}
	if c.TSF != nil {
		if err := c.TSF.Validate(); err != nil {
			errs.Add(err.Error())
		}
	}
	return errs.ErrOrNil()
}
