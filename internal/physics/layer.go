package physics

import (
	"errors"
	"fmt"
	"strings"
)

// Spin selects the neutron polarization channel
type Spin int

const (
	SpinUp Spin = iota
	SpinDown
)

func (s Spin) String() string {
	if s == SpinDown {
		return "down"
	}
	return "up"
}

// ParseSpin accepts "up"/"+" and "down"/"-"
func ParseSpin(s string) (Spin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "+", "plus":
		return SpinUp, nil
	case "down", "-", "minus":
		return SpinDown, nil
	}
	return SpinUp, fmt.Errorf("unknown spin channel %q", s)
}

// Layer is one slab of the stack. SLDs are in Å⁻², lengths in Å.
// Roughness is the rms width of the interface to the layer directly below.
type Layer struct {
	Name      string
	RhoN      float64
	RhoM      float64
	Thickness float64
	Roughness float64
}

// SLD returns the spin-split scattering length density
func (l Layer) SLD(spin Spin) float64 {
	return SpinSLD(l.RhoN, l.RhoM, spin)
}

// SpinSLD returns rhoN+rhoM for spin up and rhoN-rhoM for spin down
func SpinSLD(rhoN, rhoM float64, spin Spin) float64 {
	if spin == SpinDown {
		return rhoN - rhoM
	}
	return rhoN + rhoM
}

// Ambient returns the zero-SLD incident medium with the given top-interface roughness
func Ambient(roughness float64) Layer {
	return Layer{Name: "ambient", Roughness: roughness}
}

// Substrate returns a semi-infinite substrate; its thickness is always 0
func Substrate(name string, rhoN float64) Layer {
	return Layer{Name: name, RhoN: rhoN}
}

// InvalidStackError is returned for layer lists the recursion cannot handle
type InvalidStackError struct {
	Reason string
}

func (e *InvalidStackError) Error() string {
	return "invalid stack: " + e.Reason
}

// ErrInvalidBackground is returned for negative or non-finite backgrounds
var ErrInvalidBackground = errors.New("background must be finite and non-negative")
