package problem

import (
	"fmt"
	"strings"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/fom"
)

// Objective names accepted by Evaluate
const (
	ObjectiveTSF     = "TSF"
	ObjectiveSFMUp   = "SFM_up"
	ObjectiveSFMDown = "SFM_down"
	ObjectiveMCF     = "MCF"
)

// Objectives lists the supported objective names
func Objectives() []string {
	return []string{ObjectiveTSF, ObjectiveSFMUp, ObjectiveSFMDown, ObjectiveMCF}
}

// UnknownObjectiveError is returned for an unsupported objective name
type UnknownObjectiveError struct {
	Objective string
}

func (e *UnknownObjectiveError) Error() string {
	return fmt.Sprintf("unknown objective %q (supported: %s)", e.Objective, strings.Join(Objectives(), ", "))
}

// ParseObjective canonicalizes an objective name; empty means TSF
func ParseObjective(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ObjectiveTSF, nil
	}
	for _, o := range Objectives() {
		if strings.EqualFold(o, name) {
			return o, nil
		}
	}
	return "", &UnknownObjectiveError{Objective: name}
}

// aggregate reduces per-scenario triplets to the requested objective
func aggregate(objective string, policy fom.TSFPolicy, triplets []fom.Triplet) float64 {
	if objective == ObjectiveTSF {
		return fom.TSF(policy, triplets)
	}
	total := 0.0
	for _, t := range triplets {
		switch objective {
		case ObjectiveSFMUp:
			total += t.SFMUp
		case ObjectiveSFMDown:
			total += t.SFMDown
		case ObjectiveMCF:
			total += t.MCF
		}
	}
	return total
}
