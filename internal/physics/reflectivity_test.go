package physics

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

const siliconSLD = 2.07e-6

func referenceStack() []Layer {
	return []Layer{
		{Name: "ambient", Roughness: 3},
		{Name: "mrl", RhoN: 1e-6, Thickness: 100, Roughness: 5},
		{Name: "Al2O3", RhoN: 3.5e-6, Thickness: 16, Roughness: 8.6},
		Substrate("Si", siliconSLD),
	}
}

func TestReflectivityReducesToFresnel(t *testing.T) {
	q := utils.Linspace(0.001, 0.3, 500)
	layers := []Layer{Ambient(0), Substrate("Si", siliconSLD)}

	r, err := Reflectivity(q, layers, SpinUp, 0)
	require.NoError(t, err)

	k1 := Wavevectors(q, 0)
	k2 := Wavevectors(q, siliconSLD)
	for i := range q {
		f := (k1[i] - k2[i]) / (k1[i] + k2[i])
		want := math.Pow(cmplx.Abs(f), 2)
		assert.InDelta(t, want, r[i], 1e-15, "Q=%g", q[i])
	}
}

func TestRoughnessDampsAmplitudeAboveCriticalEdge(t *testing.T) {
	qc := CriticalQ(siliconSLD)
	q := []float64{3 * qc, 0.05, 0.1, 0.2}
	sigmas := []float64{0, 1, 3, 6, 10}

	prev := make([]float64, len(q))
	for s, sigma := range sigmas {
		layers := []Layer{Ambient(sigma), Substrate("Si", siliconSLD)}
		gamma, err := Amplitude(q, layers, SpinUp)
		require.NoError(t, err)

		for i := range q {
			mag := cmplx.Abs(gamma[i])
			if s > 0 {
				assert.Less(t, mag, prev[i], "sigma=%g Q=%g", sigma, q[i])
			}
			prev[i] = mag
		}
	}
}

func TestBackgroundIsAdditive(t *testing.T) {
	q := utils.Linspace(0.005, 0.25, 200)
	base, err := Reflectivity(q, referenceStack(), SpinUp, 0)
	require.NoError(t, err)

	for _, bkg := range []float64{1e-7, 1e-5, 0.5} {
		r, err := Reflectivity(q, referenceStack(), SpinUp, bkg)
		require.NoError(t, err)
		for i := range q {
			assert.InDelta(t, base[i], r[i]-bkg, 1e-14)
		}
	}
}

func TestReferenceStackTotalReflection(t *testing.T) {
	q := utils.Linspace(0.005, 0.25, 1000)
	bkg := 1e-5
	r, err := Reflectivity(q, referenceStack(), SpinUp, bkg)
	require.NoError(t, err)

	edge := CriticalQ(siliconSLD)
	checked := 0
	for i, qi := range q {
		if qi < 0.93*edge {
			assert.InDelta(t, 1+bkg, r[i], 1e-9, "Q=%g below the critical edge", qi)
			checked++
		}
		assert.False(t, math.IsNaN(r[i]))
	}
	assert.Greater(t, checked, 5)
}

func TestReferenceStackEnvelopeDecays(t *testing.T) {
	q := utils.Linspace(0.005, 0.25, 1000)
	r, err := Reflectivity(q, referenceStack(), SpinUp, 0)
	require.NoError(t, err)

	// Windows are wider than the Kiessig period of the 100 Å layer, so each
	// window maximum tracks the envelope rather than a single fringe.
	edges := []float64{0.05, 0.115, 0.18, 0.2501}
	maxima := make([]float64, len(edges)-1)
	for i, qi := range q {
		for w := 0; w < len(maxima); w++ {
			if qi >= edges[w] && qi < edges[w+1] && r[i] > maxima[w] {
				maxima[w] = r[i]
			}
		}
	}
	for w := 1; w < len(maxima); w++ {
		assert.Less(t, maxima[w], maxima[w-1], "window %d", w)
	}
}

func TestSpinChannels(t *testing.T) {
	q := utils.Linspace(0.005, 0.1, 100)

	nonMagnetic := referenceStack()
	up, err := Reflectivity(q, nonMagnetic, SpinUp, 0)
	require.NoError(t, err)
	down, err := Reflectivity(q, nonMagnetic, SpinDown, 0)
	require.NoError(t, err)
	assert.Equal(t, up, down)

	magnetic := referenceStack()
	magnetic[1].RhoM = 2e-6
	up, err = Reflectivity(q, magnetic, SpinUp, 0)
	require.NoError(t, err)
	down, err = Reflectivity(q, magnetic, SpinDown, 0)
	require.NoError(t, err)
	assert.NotEqual(t, up, down)
}

func TestLargeRoughnessStaysFinite(t *testing.T) {
	q := []float64{1e-6, 1e-3, 0.01, 0.2, 1}
	layers := referenceStack()
	for i := range layers {
		layers[i].Roughness = 1e4
	}
	r, err := Reflectivity(q, layers, SpinDown, 0)
	require.NoError(t, err)
	for _, v := range r {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		assert.LessOrEqual(t, v, 1+1e-12)
	}
}

func TestInvalidStacks(t *testing.T) {
	q := []float64{0.01, 0.02}

	var stackErr *InvalidStackError
	_, err := Amplitude(q, nil, SpinUp)
	require.True(t, errors.As(err, &stackErr))

	_, err = Amplitude(q, []Layer{Ambient(0)}, SpinUp)
	require.True(t, errors.As(err, &stackErr))
	assert.Contains(t, stackErr.Error(), "at least 2 layers")

	bad := referenceStack()
	bad[1].Thickness = -1
	_, err = Amplitude(q, bad, SpinUp)
	require.True(t, errors.As(err, &stackErr))

	_, err = Reflectivity(q, referenceStack(), SpinUp, -1e-6)
	assert.ErrorIs(t, err, ErrInvalidBackground)
	_, err = Reflectivity(q, referenceStack(), SpinUp, math.NaN())
	assert.ErrorIs(t, err, ErrInvalidBackground)
}

func TestSubstrateThicknessIgnored(t *testing.T) {
	q := utils.Linspace(0.005, 0.2, 50)
	a := referenceStack()
	b := referenceStack()
	b[len(b)-1].Thickness = 1e6

	ra, err := Reflectivity(q, a, SpinUp, 0)
	require.NoError(t, err)
	rb, err := Reflectivity(q, b, SpinUp, 0)
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
}

func TestParseSpin(t *testing.T) {
	s, err := ParseSpin("Down")
	require.NoError(t, err)
	assert.Equal(t, SpinDown, s)
	assert.Equal(t, "down", s.String())

	s, err = ParseSpin("+")
	require.NoError(t, err)
	assert.Equal(t, SpinUp, s)

	_, err = ParseSpin("sideways")
	assert.Error(t, err)
}

func TestSpinSLD(t *testing.T) {
	assert.InDelta(t, 3e-6, SpinSLD(1e-6, 2e-6, SpinUp), 1e-20)
	assert.InDelta(t, -1e-6, SpinSLD(1e-6, 2e-6, SpinDown), 1e-20)
}
