package problem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/materials"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/config"
)

const fileYAML = `
name: from-file
materials:
  substrate: {name: Si, rho_n: 2.07, sigma: 3}
  caps:
    Au: {rho_n: 4.5, thickness: 20, sigma: 4}
    SiO2: {rho_n: 3.47, thickness: 15, sigma: 3}
  mrl:
    rho_n_Co: 2.26
    rho_n_Ti: -1.91
    sigma_mrl_cap: 5
    sigma_sub_mrl: 6
scenarios:
  - {name: s1, rho_n: 3.0, thickness: 40, sigma: 2}
q: {min: 0.01, max: 0.2, points: 50}
bounds:
  mrl_thickness: {lo: 50, hi: 150}
weighting: {type: q_power, power: 2}
tsf: {sfm_up: 1, sfm_down: 0.5, mcf: 2}
`

func parseFile(t *testing.T, doc string) *config.ProblemFile {
	t.Helper()
	f, err := config.ParseConfigYAMLString(doc)
	require.NoError(t, err)
	return f
}

func TestConfigFromFile(t *testing.T) {
	cfg, err := ConfigFromFile(parseFile(t, fileYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Name)
	assert.Len(t, cfg.Q, 50)
	assert.Equal(t, Bounds{Lo: 50, Hi: 150}, cfg.MRLThicknessBounds)
	comp, _, capB := DefaultBounds()
	assert.Equal(t, comp, cfg.CompositionBounds)
	assert.Equal(t, capB, cfg.CapThicknessBounds)

	cat := cfg.Catalog
	assert.Equal(t, "air", cat.Ambient.Name)
	assert.Equal(t, 6.0, cat.Substrate.Roughness, "sigma_sub_mrl overrides the substrate sigma")
	assert.Equal(t, 5.0, cat.Alloy.Roughness)
	assert.Equal(t, 2.26, cat.Alloy.RhoNA)
	assert.Equal(t, -1.91, cat.Alloy.RhoNB)
	assert.Equal(t, []string{"Au", "SiO2"}, cat.CapNames())
	au, err := cat.Cap("Au")
	require.NoError(t, err)
	assert.Equal(t, materials.CapSpec{Name: "Au", RhoN: 4.5, NominalThickness: 20, Roughness: 4}, au)

	require.NotNil(t, cat.Alloy.Magnetic)
	m, err := cat.Alloy.MagneticSLD(0.73)
	require.NoError(t, err)
	assert.InDelta(t, 2.5893, m, 1e-3)

	require.Len(t, cfg.Weights, 50)
	assert.InDelta(t, cfg.Q[10]*cfg.Q[10], cfg.Weights[10], 1e-15)
	require.NotNil(t, cfg.TSF)
	assert.Equal(t, 0.5, cfg.TSF.SFMDown)

	assert.Equal(t, []materials.SignalScenario{{Name: "s1", RhoN: 3, Thickness: 40, Roughness: 2}}, cfg.Scenarios)
}

func TestCatalogFromFileMagneticModels(t *testing.T) {
	f := parseFile(t, fileYAML)

	f.Materials.MRL.Magnetic = config.MagneticModel{Model: config.MagneticLinear, Slope: 3}
	cat, err := CatalogFromFile(&f.Materials)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cat.Alloy.Magnetic(0.5))

	f.Materials.MRL.Magnetic = config.MagneticModel{Model: config.MagneticConstant, Value: 0.7}
	cat, err = CatalogFromFile(&f.Materials)
	require.NoError(t, err)
	assert.Equal(t, 0.7, cat.Alloy.Magnetic(0.1))

	f.Materials.MRL.ElementA = "Xx"
	f.Materials.MRL.Magnetic = config.MagneticModel{Model: config.MagneticBinaryAlloy}
	_, err = CatalogFromFile(&f.Materials)
	var unknown *materials.UnknownMaterialError
	assert.ErrorAs(t, err, &unknown)
}

func TestNewFromFileEvaluates(t *testing.T) {
	p, err := NewFromFile(parseFile(t, fileYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-file", p.Name())

	b, err := p.Evaluate(context.Background(), Design{Composition: 0.6, MRLThickness: 100, CapThickness: 10, Cap: "Au"}, "")
	require.NoError(t, err)
	assert.Equal(t, ObjectiveTSF, b.Objective)
	require.Len(t, b.Scenarios, 1)
	s := b.Scenarios[0]
	assert.InDelta(t, s.SFMUp+0.5*s.SFMDown+2*s.MCF, b.Value, 1e-12)
}

func TestNewFromFileReportsRangeProblems(t *testing.T) {
	f := parseFile(t, fileYAML)
	f.Background = -1
	f.Scenarios[0].Thickness = -5
	_, err := NewFromFile(f)
	var cfgErr *materials.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.GreaterOrEqual(t, len(cfgErr.Problems), 2)

	_, err = ConfigFromFile(nil)
	assert.Error(t, err)
}

func TestNewFromFileEnumeratesContentProblems(t *testing.T) {
	const doc = `
name: broken
materials:
  substrate: {name: Si, rho_n: 2.07, sigma: 3}
  caps: {}
  mrl:
    rho_n_Co: 2.26
    rho_n_Ti: -1.91
scenarios: []
q: {min: 0.01, max: 0.2, points: 20}
bounds:
  composition: {lo: 0.2, hi: 1.5}
`
	_, err := NewFromFile(parseFile(t, doc))
	var cfgErr *materials.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.GreaterOrEqual(t, len(cfgErr.Problems), 3)

	msg := cfgErr.Error()
	assert.Contains(t, msg, "at least one cap material")
	assert.Contains(t, msg, "at least one signal scenario")
	assert.Contains(t, msg, "composition bounds")
}
