// Package physics computes specular neutron reflectivity of a stratified
// film stack with the Parratt recursion.
//
// A stack is an ordered []Layer from the ambient medium (first) to the
// semi-infinite substrate (last). Each layer carries a nuclear and a magnetic
// scattering length density in physical units (Å⁻²); the magnetic part is
// added or subtracted depending on the neutron spin channel.
//
// Usage:
//
//	q := utils.Linspace(0.005, 0.25, 1000)
//	r, err := physics.Reflectivity(q, layers, physics.SpinUp, 1e-5)
//	if err != nil {
//	    return err
//	}
package physics
