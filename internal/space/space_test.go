package space

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

func mixedSpace(t *testing.T) *SearchSpace {
	t.Helper()
	s, err := NewSearchSpace(
		ContinuousParam("x_mrl", 0, 1),
		ContinuousParam("d_mrl", 20, 300),
		IntegerParam("repeats", 1, 5),
		CategoricalParam("cap", "Al2O3", "SiO2", "Au"),
	)
	require.NoError(t, err)
	return s
}

func TestNewSearchSpaceValidation(t *testing.T) {
	tests := []struct {
		name   string
		params []Param
	}{
		{"empty name", []Param{ContinuousParam("", 0, 1)}},
		{"inverted bounds", []Param{ContinuousParam("a", 2, 1)}},
		{"nan bound", []Param{ContinuousParam("a", math.NaN(), 1)}},
		{"infinite bound", []Param{ContinuousParam("a", 0, math.Inf(1))}},
		{"fractional integer bound", []Param{{Name: "n", Kind: Integer, Lo: 0.5, Hi: 3}}},
		{"no choices", []Param{CategoricalParam("c")}},
		{"duplicate choice", []Param{CategoricalParam("c", "a", "a")}},
		{"duplicate name", []Param{ContinuousParam("a", 0, 1), ContinuousParam("a", 0, 2)}},
		{"unknown kind", []Param{{Name: "z", Kind: Kind(9)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSearchSpace(tt.params...)
			assert.Error(t, err)
		})
	}
}

func TestNamesAndIndex(t *testing.T) {
	s := mixedSpace(t)
	assert.Equal(t, 4, s.Dim())
	assert.Equal(t, []string{"x_mrl", "d_mrl", "repeats", "cap"}, s.Names())
	assert.Equal(t, 3, s.Index("cap"))
	assert.Equal(t, -1, s.Index("nope"))
	p, ok := s.Param("d_mrl")
	require.True(t, ok)
	assert.Equal(t, Continuous, p.Kind)
}

func TestSpaceIsImmutable(t *testing.T) {
	choices := []string{"a", "b"}
	s, err := NewSearchSpace(CategoricalParam("c", choices...))
	require.NoError(t, err)
	params := s.Params()
	params[0].Choices[0] = "mutated"
	p, _ := s.Param("c")
	assert.Equal(t, "a", p.Choices[0])
}

func TestContinuousRoundTripIsExact(t *testing.T) {
	s, err := NewSearchSpace(ContinuousParam("a", 0, 1), ContinuousParam("b", -5, 5))
	require.NoError(t, err)
	for _, vec := range s.Sample(20, utils.NewRandSource(7)) {
		values, err := s.Unpack(vec)
		require.NoError(t, err)
		back, err := s.Pack(values)
		require.NoError(t, err)
		assert.Equal(t, vec, back)
	}
}

func TestDiscreteRoundTripOnGrid(t *testing.T) {
	s := mixedSpace(t)
	in := Values{"x_mrl": 0.25, "d_mrl": 120.0, "repeats": 3, "cap": "Au"}
	vec, err := s.Pack(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 120, 3, 2}, vec)

	out, err := s.Unpack(vec)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRoundTripIsIdempotentOffGrid(t *testing.T) {
	s := mixedSpace(t)
	vec := []float64{0.3, 50, 2.6, 1.4}
	values, err := s.Unpack(vec)
	require.NoError(t, err)
	assert.Equal(t, 3, values["repeats"])
	assert.Equal(t, "SiO2", values["cap"])

	once, err := s.Pack(values)
	require.NoError(t, err)
	values2, err := s.Unpack(once)
	require.NoError(t, err)
	twice, err := s.Pack(values2)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestClip(t *testing.T) {
	s := mixedSpace(t)
	clipped, err := s.Clip([]float64{1.7, -3, 9.2, 7})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 20, 5, 2}, clipped)

	clipped, err = s.Clip([]float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 20, 1, 0}, clipped)
}

func TestClipIsIdempotent(t *testing.T) {
	s := mixedSpace(t)
	rng := utils.NewRandSource(3)
	for i := 0; i < 50; i++ {
		vec := []float64{
			rng.UniformFloat64(-2, 3),
			rng.UniformFloat64(-100, 500),
			rng.UniformFloat64(-10, 10),
			rng.UniformFloat64(-4, 6),
		}
		once, err := s.Clip(vec)
		require.NoError(t, err)
		twice, err := s.Clip(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
		assert.True(t, s.Contains(once))
	}
}

func TestClipDoesNotModifyInput(t *testing.T) {
	s := mixedSpace(t)
	vec := []float64{2, 2, 2, 2}
	_, err := s.Clip(vec)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 2, 2}, vec)
}

func TestSampleIsFeasible(t *testing.T) {
	s := mixedSpace(t)
	samples := s.Sample(200, utils.NewRandSource(11))
	require.Len(t, samples, 200)
	seenInts := map[float64]bool{}
	for _, vec := range samples {
		assert.True(t, s.Contains(vec), "%v", vec)
		seenInts[vec[2]] = true
	}
	// every integer in [1, 5] is reachable, bounds included
	assert.Len(t, seenInts, 5)
	assert.Nil(t, s.Sample(0, utils.NewRandSource(1)))
}

func TestSampleIsSeeded(t *testing.T) {
	s := mixedSpace(t)
	assert.Equal(t, s.Sample(5, utils.NewRandSource(42)), s.Sample(5, utils.NewRandSource(42)))
}

func TestDimensionMismatch(t *testing.T) {
	s := mixedSpace(t)
	_, err := s.Unpack([]float64{1})
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	_, err = s.Clip(nil)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.False(t, s.Contains([]float64{0}))
}

func TestPackErrors(t *testing.T) {
	s := mixedSpace(t)
	_, err := s.Pack(Values{"x_mrl": 0.5})
	var missing *MissingValueError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "d_mrl", missing.Param)

	_, err = s.Pack(Values{"x_mrl": 0.5, "d_mrl": 30.0, "repeats": 2, "cap": "Pt"})
	var invalid *InvalidValueError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "cap", invalid.Param)

	_, err = s.Pack(Values{"x_mrl": "high", "d_mrl": 30.0, "repeats": 2, "cap": "Au"})
	assert.True(t, errors.As(err, &invalid))
}

func TestGridAxes(t *testing.T) {
	s := mixedSpace(t)
	axes := s.Grid(5)
	assert.InDeltaSlice(t, []float64{0, 0.25, 0.5, 0.75, 1}, axes[0], 1e-12)
	assert.InDeltaSlice(t, []float64{20, 90, 160, 230, 300}, axes[1], 1e-9)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, axes[2])
	assert.Equal(t, []float64{0, 1, 2}, axes[3])

	narrow, err := NewSearchSpace(IntegerParam("n", 0, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, narrow.Grid(7)[0])
}

func TestProductLastAxisFastest(t *testing.T) {
	got := Product([][]float64{{0, 1}, {10, 20, 30}})
	want := [][]float64{
		{0, 10}, {0, 20}, {0, 30},
		{1, 10}, {1, 20}, {1, 30},
	}
	assert.Equal(t, want, got)
	assert.Nil(t, Product(nil))
	assert.Nil(t, Product([][]float64{{1}, {}}))
}

func TestValuesAccessors(t *testing.T) {
	v := Values{"x": 0.5, "n": 3, "cap": "Au"}
	f, err := v.Float("x")
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)
	n, err := v.Int("n")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	c, err := v.Choice("cap")
	require.NoError(t, err)
	assert.Equal(t, "Au", c)

	_, err = v.Choice("x")
	assert.Error(t, err)
	_, err = v.Float("missing")
	assert.Error(t, err)

	clone := v.Clone()
	clone["x"] = 1.0
	assert.Equal(t, 0.5, v["x"])
}
