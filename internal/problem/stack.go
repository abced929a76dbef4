package problem

import (
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/materials"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/physics"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

// Design is one point of the design space in structured form.
// Composition is the fraction of the magnetic constituent, thicknesses are in Å.
type Design struct {
	Composition  float64
	MRLThickness float64
	CapThickness float64
	Cap          string
}

// sampleLayer is a layer plus the roughness of its own top surface
type sampleLayer struct {
	layer physics.Layer
	top   float64
}

// BuildStack assembles ambient, optional signal, cap, MRL and substrate,
// top to bottom. The cap is skipped when the design names none or gives it
// zero thickness. SLDs are converted from catalog units to Å⁻².
func BuildStack(catalog *materials.Catalog, d Design, scenario *materials.SignalScenario) ([]physics.Layer, error) {
	x := utils.ClampFloat64(d.Composition, 0, 1)
	rhoM, err := catalog.Alloy.MagneticSLD(x)
	if err != nil {
		return nil, err
	}

	var sample []sampleLayer
	if scenario != nil {
		sample = append(sample, sampleLayer{
			layer: physics.Layer{
				Name:      scenario.Name,
				RhoN:      scenario.RhoN * materials.SLDUnit,
				Thickness: nonNegative(scenario.Thickness),
			},
			top: nonNegative(scenario.Roughness),
		})
	}
	if d.Cap != "" {
		capSpec, err := catalog.Cap(d.Cap)
		if err != nil {
			return nil, err
		}
		if thickness := nonNegative(d.CapThickness); thickness > 0 {
			sample = append(sample, sampleLayer{
				layer: physics.Layer{
					Name:      capSpec.Name,
					RhoN:      capSpec.RhoN * materials.SLDUnit,
					Thickness: thickness,
				},
				top: nonNegative(capSpec.Roughness),
			})
		}
	}
	sample = append(sample, sampleLayer{
		layer: physics.Layer{
			Name:      catalog.Alloy.Label(),
			RhoN:      catalog.Alloy.NuclearSLD(x) * materials.SLDUnit,
			RhoM:      rhoM * materials.SLDUnit,
			Thickness: nonNegative(d.MRLThickness),
		},
		top: nonNegative(catalog.Alloy.Roughness),
	})

	substrate := physics.Substrate(catalog.Substrate.Name, catalog.Substrate.RhoN*materials.SLDUnit)

	layers := make([]physics.Layer, 0, len(sample)+2)
	ambient := physics.Ambient(sample[0].top)
	if catalog.Ambient.Name != "" {
		ambient.Name = catalog.Ambient.Name
	}
	layers = append(layers, ambient)
	for i, s := range sample {
		below := nonNegative(catalog.Substrate.Roughness)
		if i+1 < len(sample) {
			below = sample[i+1].top
		}
		s.layer.Roughness = below
		layers = append(layers, s.layer)
	}
	return append(layers, substrate), nil
}

func nonNegative(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}
