package materials

import (
	"sort"
	"strings"
)

// CMag converts number density times moment (Å⁻³·μB) to a magnetic SLD in Å⁻²
const CMag = 2.645e-5

// avogadroPerCubicAngstrom is N_A / 1e24 Å³ per cm³
const avogadroPerCubicAngstrom = 0.6022

// Element carries the bulk properties needed for ideal mixing
type Element struct {
	Symbol    string
	MolarMass float64 // g/mol
	Density   float64 // g/cm³
	Moment    float64 // μB per atom
}

// MolarVolume returns cm³/mol
func (e Element) MolarVolume() float64 {
	return e.MolarMass / e.Density
}

var elements = map[string]Element{
	"Co": {Symbol: "Co", MolarMass: 58.933, Density: 8.86, Moment: 1.72},
	"Ti": {Symbol: "Ti", MolarMass: 47.867, Density: 4.506, Moment: 0},
	"Fe": {Symbol: "Fe", MolarMass: 55.845, Density: 7.874, Moment: 2.22},
	"Ni": {Symbol: "Ni", MolarMass: 58.693, Density: 8.902, Moment: 0.606},
	"Pt": {Symbol: "Pt", MolarMass: 195.084, Density: 21.45, Moment: 0},
	"Pd": {Symbol: "Pd", MolarMass: 106.42, Density: 12.023, Moment: 0},
	"Ta": {Symbol: "Ta", MolarMass: 180.948, Density: 16.65, Moment: 0},
	"Cu": {Symbol: "Cu", MolarMass: 63.546, Density: 8.96, Moment: 0},
}

// LookupElement finds an element by symbol, case-insensitively
func LookupElement(symbol string) (Element, error) {
	for key, el := range elements {
		if strings.EqualFold(key, strings.TrimSpace(symbol)) {
			return el, nil
		}
	}
	return Element{}, &UnknownMaterialError{Name: symbol, Available: ElementSymbols()}
}

// ElementSymbols lists the known element symbols in sorted order
func ElementSymbols() []string {
	out := make([]string, 0, len(elements))
	for k := range elements {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BinaryAlloyMagneticSLD returns the magnetic SLD model of A_x B_(1-x)
// assuming ideal mixing of molar volumes. Results are in 10⁻⁶ Å⁻².
func BinaryAlloyMagneticSLD(a, b Element) MagneticSLDFunc {
	va, vb := a.MolarVolume(), b.MolarVolume()
	return func(x float64) float64 {
		vol := x*va + (1-x)*vb
		if vol <= 0 {
			return 0
		}
		n := avogadroPerCubicAngstrom / vol
		mu := x*a.Moment + (1-x)*b.Moment
		return CMag * n * mu / SLDUnit
	}
}

// AlloyOptions overrides the tabulated moments
type AlloyOptions struct {
	MomentA *float64
	MomentB *float64
}

// NewAlloyMagneticSLD builds a binary alloy model from element symbols
func NewAlloyMagneticSLD(symbolA, symbolB string, opts AlloyOptions) (MagneticSLDFunc, error) {
	a, err := LookupElement(symbolA)
	if err != nil {
		return nil, err
	}
	b, err := LookupElement(symbolB)
	if err != nil {
		return nil, err
	}
	if opts.MomentA != nil {
		a.Moment = *opts.MomentA
	}
	if opts.MomentB != nil {
		b.Moment = *opts.MomentB
	}
	return BinaryAlloyMagneticSLD(a, b), nil
}

// LinearMagneticSLD returns x -> slope*x
func LinearMagneticSLD(slope float64) MagneticSLDFunc {
	return func(x float64) float64 { return slope * x }
}

// ConstantMagneticSLD returns a composition-independent model
func ConstantMagneticSLD(value float64) MagneticSLDFunc {
	return func(float64) float64 { return value }
}
