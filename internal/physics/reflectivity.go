package physics

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Wavevectors returns the out-of-plane wavevector k(Q) = sqrt(Q²/4 - 4πρ)
// over the grid. The square root is complex so that the total-reflection
// region (negative radicand) yields an evanescent, purely imaginary k.
func Wavevectors(q []float64, rho float64) []complex128 {
	k := make([]complex128, len(q))
	shift := 4 * math.Pi * rho
	for i, qi := range q {
		k[i] = cmplx.Sqrt(complex(qi*qi/4-shift, 0))
	}
	return k
}

// CriticalQ returns the critical momentum transfer 4·sqrt(πρ) of a medium
// seen from vacuum. Non-positive densities have no critical edge.
func CriticalQ(rho float64) float64 {
	if rho <= 0 {
		return 0
	}
	return 4 * math.Sqrt(math.Pi*rho)
}

// Amplitude computes the complex reflection amplitude Γ(Q) of the stack for
// one spin channel.
//
// The recursion starts in the substrate with Γ = 0 and walks the interfaces
// upward. Interface j (between layer j and j+1) contributes the Fresnel
// coefficient damped by the Nevot–Croce factor of layer j's roughness, and
// Γ is propagated through layer j+1 with the phase exp(2i·k_{j+1}·d_{j+1}).
func Amplitude(q []float64, layers []Layer, spin Spin) ([]complex128, error) {
	if err := validateStack(layers); err != nil {
		return nil, err
	}

	k := make([][]complex128, len(layers))
	for j, l := range layers {
		k[j] = Wavevectors(q, l.SLD(spin))
	}

	last := len(layers) - 1
	gamma := make([]complex128, len(q))
	for j := last - 1; j >= 0; j-- {
		d := layers[j+1].Thickness
		if j+1 == last {
			d = 0 // semi-infinite substrate
		}
		sigma2 := layers[j].Roughness * layers[j].Roughness
		kj, kb := k[j], k[j+1]

		for i := range gamma {
			r := fresnel(kj[i], kb[i])
			if sigma2 > 0 {
				r *= complex(nevotCroce(kj[i], kb[i], sigma2), 0)
			}
			g := gamma[i]
			if d != 0 {
				g *= cmplx.Exp(complex(0, 2) * kb[i] * complex(d, 0))
			}
			gamma[i] = (r + g) / (1 + r*g)
		}
	}
	return gamma, nil
}

// Reflectivity returns R(Q) = |Γ(Q)|² + bkg
func Reflectivity(q []float64, layers []Layer, spin Spin, bkg float64) ([]float64, error) {
	if bkg < 0 || math.IsNaN(bkg) || math.IsInf(bkg, 0) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidBackground, bkg)
	}
	gamma, err := Amplitude(q, layers, spin)
	if err != nil {
		return nil, err
	}
	r := make([]float64, len(gamma))
	for i, g := range gamma {
		re, im := real(g), imag(g)
		r[i] = re*re + im*im + bkg
	}
	return r, nil
}

// fresnel is (k1-k2)/(k1+k2); identical vanishing wavevectors reflect nothing.
func fresnel(k1, k2 complex128) complex128 {
	den := k1 + k2
	if den == 0 {
		return 0
	}
	return (k1 - k2) / den
}

// nevotCroce returns exp(Re(-2·k1·k2·σ²)) with the exponent clipped to <= 0.
func nevotCroce(k1, k2 complex128, sigma2 float64) float64 {
	e := real(-2*k1*k2) * sigma2
	if e > 0 || math.IsNaN(e) {
		e = 0
	}
	return math.Exp(e)
}

func validateStack(layers []Layer) error {
	if len(layers) < 2 {
		return &InvalidStackError{Reason: fmt.Sprintf("need at least 2 layers, got %d", len(layers))}
	}
	for i, l := range layers {
		if l.Thickness < 0 || math.IsNaN(l.Thickness) || math.IsInf(l.Thickness, 0) {
			return &InvalidStackError{Reason: fmt.Sprintf("layer %d (%s): thickness must be finite and non-negative, got %g", i, l.Name, l.Thickness)}
		}
		if l.Roughness < 0 || math.IsNaN(l.Roughness) || math.IsInf(l.Roughness, 0) {
			return &InvalidStackError{Reason: fmt.Sprintf("layer %d (%s): roughness must be finite and non-negative, got %g", i, l.Name, l.Roughness)}
		}
	}
	return nil
}
