package mrld

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

func safeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return utils.JSONSafe(m).(map[string]any)
}

func runToJSON(run Run) map[string]any {
	progress := map[string]any{
		"evaluations": run.Progress.Evaluations,
		"budget":      run.Progress.Budget,
	}
	if run.Progress.HasBest {
		progress["best_value"] = utils.JSONSafe(run.Progress.BestValue)
	}
	return map[string]any{
		"id":                 run.ID,
		"status":             string(run.Status),
		"problem":            run.Problem,
		"solver":             run.Solver,
		"created_at_unix_ms": run.CreatedAtUnixMs,
		"started_at_unix_ms": run.StartedAtUnixMs,
		"ended_at_unix_ms":   run.EndedAtUnixMs,
		"error":              run.Error,
		"progress":           progress,
	}
}

// toStruct normalizes m through JSON so that typed values such as ints and
// nested structs become structpb-compatible primitives.
func toStruct(m map[string]any) (*structpb.Struct, error) {
	raw, err := json.Marshal(utils.JSONSafe(m))
	if err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	var plain map[string]any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	return structpb.NewStruct(plain)
}

// fromStruct decodes a structpb message into a JSON-tagged Go value
func fromStruct(s *structpb.Struct, out any) error {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	return nil
}
