package materials

import (
	"fmt"
	"sort"
)

// SLDUnit converts catalog SLD values (10⁻⁶ Å⁻²) to physical units (Å⁻²)
const SLDUnit = 1e-6

// MagneticSLDFunc maps an alloy composition x∈[0,1] to a magnetic SLD in
// catalog units (10⁻⁶ Å⁻²)
type MagneticSLDFunc func(x float64) float64

// AmbientSpec describes the incident medium
type AmbientSpec struct {
	Name string
}

// SubstrateSpec describes the semi-infinite substrate
type SubstrateSpec struct {
	Name      string
	RhoN      float64
	Roughness float64
}

// CapSpec describes a capping material. NominalThickness is informational,
// the optimized cap thickness is a design variable.
type CapSpec struct {
	Name             string
	RhoN             float64
	NominalThickness float64
	Roughness        float64
}

// Catalog holds the materials a design can be assembled from.
// All SLDs are in catalog units. Each roughness is the rms width of the
// material's own top surface, so it belongs to the interface with whatever
// layer sits directly above it.
type Catalog struct {
	Ambient   AmbientSpec
	Substrate SubstrateSpec
	Caps      map[string]CapSpec
	Alloy     Alloy
}

// Cap looks up a cap material by name
func (c *Catalog) Cap(name string) (CapSpec, error) {
	cap, ok := c.Caps[name]
	if !ok {
		return CapSpec{}, &UnknownMaterialError{Name: name, Available: c.CapNames()}
	}
	if cap.Name == "" {
		cap.Name = name
	}
	return cap, nil
}

// CapNames returns the cap names in sorted order
func (c *Catalog) CapNames() []string {
	names := make([]string, 0, len(c.Caps))
	for name := range c.Caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate collects every structural problem of the catalog into errs
func (c *Catalog) Validate(errs *ConfigurationError) {
	if c.Substrate.Name == "" {
		errs.Add("substrate name is required")
	}
	if c.Substrate.Roughness < 0 {
		errs.Add(fmt.Sprintf("substrate roughness cannot be negative, got %g", c.Substrate.Roughness))
	}
	if len(c.Caps) == 0 {
		errs.Add("at least one cap material must be defined")
	}
	for _, name := range c.CapNames() {
		cap := c.Caps[name]
		if cap.Roughness < 0 {
			errs.Add(fmt.Sprintf("cap %s: roughness cannot be negative, got %g", name, cap.Roughness))
		}
		if cap.NominalThickness < 0 {
			errs.Add(fmt.Sprintf("cap %s: thickness cannot be negative, got %g", name, cap.NominalThickness))
		}
	}
	if c.Alloy.Roughness < 0 {
		errs.Add(fmt.Sprintf("alloy roughness cannot be negative, got %g", c.Alloy.Roughness))
	}
	if c.Alloy.Magnetic == nil {
		errs.Add("alloy magnetic SLD function is required")
	}
}

// SignalScenario is one buried-signal test case placed on top of the
// reference structure
type SignalScenario struct {
	Name      string
	RhoN      float64
	Thickness float64
	Roughness float64
}
