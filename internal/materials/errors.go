package materials

import (
	"sort"
	"strings"
)

// ConfigurationError reports invalid or missing construction-time input.
// It lists every failed precondition, not just the first one.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid configuration"
	}
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Add appends a failed precondition
func (e *ConfigurationError) Add(problem string) {
	e.Problems = append(e.Problems, problem)
}

// ErrOrNil returns e when at least one problem was recorded
func (e *ConfigurationError) ErrOrNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

// UnknownMaterialError is returned when a cap name is absent from the catalog
type UnknownMaterialError struct {
	Name      string
	Available []string
}

func (e *UnknownMaterialError) Error() string {
	available := append([]string(nil), e.Available...)
	sort.Strings(available)
	return "unknown material " + `"` + e.Name + `"` + " (available: " + strings.Join(available, ", ") + ")"
}
