package fom

import (
	"fmt"
	"math"
)

// Triplet holds the per-scenario figures of merit
type Triplet struct {
	SFMUp   float64
	SFMDown float64
	MCF     float64
}

// TSFPolicy weights the triplet components in the total score
type TSFPolicy struct {
	SFMUp   float64
	SFMDown float64
	MCF     float64
}

// DefaultTSFPolicy weights every component equally
func DefaultTSFPolicy() TSFPolicy {
	return TSFPolicy{SFMUp: 1, SFMDown: 1, MCF: 1}
}

// Validate rejects negative or non-finite weights
func (p TSFPolicy) Validate() error {
	weights := []struct {
		name string
		v    float64
	}{{"sfm_up", p.SFMUp}, {"sfm_down", p.SFMDown}, {"mcf", p.MCF}}
	for _, w := range weights {
		if math.IsNaN(w.v) || math.IsInf(w.v, 0) || w.v < 0 {
			return fmt.Errorf("tsf weight %s must be finite and non-negative, got %g", w.name, w.v)
		}
	}
	return nil
}

// Score weights one triplet
func (p TSFPolicy) Score(t Triplet) float64 {
	return p.SFMUp*t.SFMUp + p.SFMDown*t.SFMDown + p.MCF*t.MCF
}

// TSF sums the weighted triplets over scenarios; an empty set scores 0
func TSF(policy TSFPolicy, triplets []Triplet) float64 {
	total := 0.0
	for _, t := range triplets {
		total += policy.Score(t)
	}
	return total
}
