package problem

import (
	"fmt"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/fom"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/materials"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/config"
)

// ConfigFromFile converts a parsed problem file into a Config. Range checks
// are left to Config.Validate.
func ConfigFromFile(f *config.ProblemFile) (Config, error) {
	if f == nil {
		return Config{}, fmt.Errorf("problem file is nil")
	}

	catalog, err := CatalogFromFile(&f.Materials)
	if err != nil {
		return Config{}, err
	}

	scenarios := make([]materials.SignalScenario, len(f.Scenarios))
	for i, s := range f.Scenarios {
		scenarios[i] = materials.SignalScenario{
			Name:      s.Name,
			RhoN:      s.RhoN,
			Thickness: s.Thickness,
			Roughness: s.Sigma,
		}
	}

	q := f.Q.Grid()
	composition, mrl, capThickness := DefaultBounds()
	if r := f.Bounds.Composition; r != nil {
		composition = Bounds{Lo: r.Lo, Hi: r.Hi}
	}
	if r := f.Bounds.MRLThickness; r != nil {
		mrl = Bounds{Lo: r.Lo, Hi: r.Hi}
	}
	if r := f.Bounds.CapThickness; r != nil {
		capThickness = Bounds{Lo: r.Lo, Hi: r.Hi}
	}

	cfg := Config{
		Name:               f.Name,
		Catalog:            catalog,
		Scenarios:          scenarios,
		Q:                  q,
		CompositionBounds:  composition,
		MRLThicknessBounds: mrl,
		CapThicknessBounds: capThickness,
		Background:         f.Background,
	}

	if w := f.Weighting; w != nil && w.Type == config.WeightingQPower {
		cfg.Weights = fom.QPowerWeights(q, w.Power)
	}
	if t := f.TSF; t != nil {
		cfg.TSF = &fom.TSFPolicy{SFMUp: t.SFMUp, SFMDown: t.SFMDown, MCF: t.MCF}
	}
	return cfg, nil
}

// CatalogFromFile builds the materials catalog, resolving the magnetic model
func CatalogFromFile(m *config.Materials) (*materials.Catalog, error) {
	magnetic, err := magneticModel(m.MRL)
	if err != nil {
		return nil, err
	}
	rhoA, rhoB := m.MRL.SLDs()

	caps := make(map[string]materials.CapSpec, len(m.Caps))
	for name, c := range m.Caps {
		caps[name] = materials.CapSpec{
			Name:             name,
			RhoN:             c.RhoN,
			NominalThickness: c.Thickness,
			Roughness:        c.Sigma,
		}
	}

	return &materials.Catalog{
		Ambient: materials.AmbientSpec{Name: m.Ambient.Name},
		Substrate: materials.SubstrateSpec{
			Name:      m.Substrate.Name,
			RhoN:      m.Substrate.RhoN,
			Roughness: m.SubstrateRoughness(),
		},
		Caps: caps,
		Alloy: materials.Alloy{
			ElementA:  m.MRL.ElementA,
			ElementB:  m.MRL.ElementB,
			RhoNA:     rhoA,
			RhoNB:     rhoB,
			Roughness: m.MRL.Roughness(),
			Magnetic:  magnetic,
		},
	}, nil
}

func magneticModel(mrl config.MRL) (materials.MagneticSLDFunc, error) {
	switch mrl.Magnetic.Model {
	case config.MagneticLinear:
		return materials.LinearMagneticSLD(mrl.Magnetic.Slope), nil
	case config.MagneticConstant:
		return materials.ConstantMagneticSLD(mrl.Magnetic.Value), nil
	case config.MagneticBinaryAlloy, "":
		fn, err := materials.NewAlloyMagneticSLD(mrl.ElementA, mrl.ElementB, materials.AlloyOptions{
			MomentA: mrl.Magnetic.MomentA,
			MomentB: mrl.Magnetic.MomentB,
		})
		if err != nil {
			return nil, fmt.Errorf("magnetic model: %w", err)
		}
		return fn, nil
	}
	return nil, fmt.Errorf("unknown magnetic model %q", mrl.Magnetic.Model)
}

// NewFromFile builds a validated problem straight from a problem file
func NewFromFile(f *config.ProblemFile) (*MRLProblem, error) {
	cfg, err := ConfigFromFile(f)
	if err != nil {
		return nil, err
	}
	return NewMRLProblem(cfg)
}
