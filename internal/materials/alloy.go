package materials

import "fmt"

// Alloy is the binary magnetic reference layer material A_x B_(1-x).
// RhoNA and RhoNB are the nuclear SLDs of the pure constituents.
type Alloy struct {
	ElementA  string
	ElementB  string
	RhoNA     float64
	RhoNB     float64
	Roughness float64
	Magnetic  MagneticSLDFunc
}

// NuclearSLD mixes the constituent SLDs linearly in x
func (a Alloy) NuclearSLD(x float64) float64 {
	return x*a.RhoNA + (1-x)*a.RhoNB
}

// MagneticSLD evaluates the injected magnetic model at x
func (a Alloy) MagneticSLD(x float64) (float64, error) {
	if a.Magnetic == nil {
		return 0, &ConfigurationError{Problems: []string{"alloy magnetic SLD function is required"}}
	}
	return a.Magnetic(x), nil
}

// Label returns a short human readable name such as "Co_xTi_(1-x)"
func (a Alloy) Label() string {
	if a.ElementA == "" && a.ElementB == "" {
		return "alloy"
	}
	return fmt.Sprintf("%s_x%s_(1-x)", a.ElementA, a.ElementB)
}
