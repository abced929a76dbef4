// Package problem wraps the reflectivity and figure-of-merit engines as a
// black-box objective over the magnetic reference layer design space.
package problem

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/fom"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/materials"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/physics"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/space"
)

const tracerName = "github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/problem"

// Parameter names of the MRL search space
const (
	ParamComposition  = "x_mrl"
	ParamMRLThickness = "d_mrl"
	ParamCapThickness = "d_cap"
	ParamCap          = "cap"
)

// MRLProblem scores reference layer designs by how well they reveal the
// configured signal scenarios. It is safe for concurrent use.
type MRLProblem struct {
	name      string
	catalog   *materials.Catalog
	scenarios []materials.SignalScenario
	q         []float64
	weights   []float64
	bkg       float64
	policy    fom.TSFPolicy

	composition  Bounds
	mrlThickness Bounds
	capThickness Bounds

	space *space.SearchSpace
}

// NewMRLProblem validates cfg once and builds the problem with its search space
func NewMRLProblem(cfg Config) (*MRLProblem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy := fom.DefaultTSFPolicy()
	if cfg.TSF != nil {
		policy = *cfg.TSF
	}
	name := cfg.Name
	if name == "" {
		name = "mrl"
	}

	sp, err := space.NewSearchSpace(
		space.ContinuousParam(ParamComposition, cfg.CompositionBounds.Lo, cfg.CompositionBounds.Hi),
		space.ContinuousParam(ParamMRLThickness, cfg.MRLThicknessBounds.Lo, cfg.MRLThicknessBounds.Hi),
		space.ContinuousParam(ParamCapThickness, cfg.CapThicknessBounds.Lo, cfg.CapThicknessBounds.Hi),
		space.CategoricalParam(ParamCap, cfg.Catalog.CapNames()...),
	)
	if err != nil {
		return nil, &materials.ConfigurationError{Problems: []string{err.Error()}}
	}

	p := &MRLProblem{
		name:         name,
		catalog:      cfg.Catalog,
		scenarios:    append([]materials.SignalScenario(nil), cfg.Scenarios...),
		q:            append([]float64(nil), cfg.Q...),
		bkg:          cfg.Background,
		policy:       policy,
		composition:  cfg.CompositionBounds,
		mrlThickness: cfg.MRLThicknessBounds,
		capThickness: cfg.CapThicknessBounds,
		space:        sp,
	}
	if cfg.Weights != nil {
		p.weights = append([]float64(nil), cfg.Weights...)
	}
	return p, nil
}

// Name returns the problem name
func (p *MRLProblem) Name() string { return p.name }

// SearchSpace returns the x_mrl, d_mrl, d_cap, cap space
func (p *MRLProblem) SearchSpace() *space.SearchSpace { return p.space }

// Q returns a copy of the momentum grid
func (p *MRLProblem) Q() []float64 { return append([]float64(nil), p.q...) }

// Scenarios returns a copy of the configured scenarios
func (p *MRLProblem) Scenarios() []materials.SignalScenario {
	return append([]materials.SignalScenario(nil), p.scenarios...)
}

// DesignFromValues reads a Design out of unpacked search-space values
func (p *MRLProblem) DesignFromValues(values space.Values) (Design, error) {
	var d Design
	var err error
	if d.Composition, err = values.Float(ParamComposition); err != nil {
		return Design{}, err
	}
	if d.MRLThickness, err = values.Float(ParamMRLThickness); err != nil {
		return Design{}, err
	}
	if d.CapThickness, err = values.Float(ParamCapThickness); err != nil {
		return Design{}, err
	}
	if d.Cap, err = values.Choice(ParamCap); err != nil {
		return Design{}, err
	}
	return d, nil
}

// Clamp projects the numeric design values onto the declared bounds
func (p *MRLProblem) Clamp(d Design) Design {
	d.Composition = p.composition.Clamp(d.Composition)
	d.MRLThickness = p.mrlThickness.Clamp(d.MRLThickness)
	d.CapThickness = p.capThickness.Clamp(d.CapThickness)
	return d
}

// EvaluateObjective scores unpacked search-space values
func (p *MRLProblem) EvaluateObjective(ctx context.Context, values space.Values, objective string) (float64, error) {
	d, err := p.DesignFromValues(values)
	if err != nil {
		return 0, err
	}
	b, err := p.Evaluate(ctx, d, objective)
	if err != nil {
		return 0, err
	}
	return b.Value, nil
}

// Evaluate scores a design and returns the per-scenario breakdown.
// The reference stack is computed once and shared by every scenario.
func (p *MRLProblem) Evaluate(ctx context.Context, d Design, objective string) (*Breakdown, error) {
	objective, err := ParseObjective(objective)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "problem.Evaluate", trace.WithAttributes(
		attribute.String("problem", p.name),
		attribute.String("objective", objective),
		attribute.String("cap", d.Cap),
	))
	defer span.End()

	b, err := p.evaluate(ctx, p.Clamp(d), objective)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Float64("value", b.Value))
	return b, nil
}

func (p *MRLProblem) evaluate(ctx context.Context, d Design, objective string) (*Breakdown, error) {
	ref, err := BuildStack(p.catalog, d, nil)
	if err != nil {
		return nil, err
	}
	refUp, refDown, err := p.reflectivityPair(ref)
	if err != nil {
		return nil, fmt.Errorf("reference stack: %w", err)
	}

	b := &Breakdown{
		Objective: objective,
		Design:    d,
		Scenarios: make([]ScenarioBreakdown, 0, len(p.scenarios)),
	}
	triplets := make([]fom.Triplet, 0, len(p.scenarios))
	for i := range p.scenarios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sc := &p.scenarios[i]
		t, err := p.scoreScenario(d, sc, refUp, refDown)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		triplets = append(triplets, t)
		b.Scenarios = append(b.Scenarios, ScenarioBreakdown{
			Name:    sc.Name,
			SFMUp:   t.SFMUp,
			SFMDown: t.SFMDown,
			MCF:     t.MCF,
			Score:   p.policy.Score(t),
		})
	}
	b.Value = aggregate(objective, p.policy, triplets)
	return b, nil
}

func (p *MRLProblem) scoreScenario(d Design, sc *materials.SignalScenario, refUp, refDown []float64) (fom.Triplet, error) {
	full, err := BuildStack(p.catalog, d, sc)
	if err != nil {
		return fom.Triplet{}, err
	}
	fullUp, fullDown, err := p.reflectivityPair(full)
	if err != nil {
		return fom.Triplet{}, err
	}
	sUp, err := fom.Sensitivity(refUp, fullUp)
	if err != nil {
		return fom.Triplet{}, err
	}
	sDown, err := fom.Sensitivity(refDown, fullDown)
	if err != nil {
		return fom.Triplet{}, err
	}

	var t fom.Triplet
	if t.SFMUp, err = fom.SFM(p.q, sUp, p.weights); err != nil {
		return fom.Triplet{}, err
	}
	if t.SFMDown, err = fom.SFM(p.q, sDown, p.weights); err != nil {
		return fom.Triplet{}, err
	}
	if t.MCF, err = fom.MCF(p.q, sUp, sDown, p.weights); err != nil {
		return fom.Triplet{}, err
	}
	return t, nil
}

func (p *MRLProblem) reflectivityPair(layers []physics.Layer) (up, down []float64, err error) {
	if up, err = physics.Reflectivity(p.q, layers, physics.SpinUp, p.bkg); err != nil {
		return nil, nil, err
	}
	if down, err = physics.Reflectivity(p.q, layers, physics.SpinDown, p.bkg); err != nil {
		return nil, nil, err
	}
	return up, down, nil
}
