package solver

import (
	"github.com/montanaflynn/stats"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/space"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

// EvaluationRecord is one history entry of a run
type EvaluationRecord struct {
	Step            int
	Vector          []float64
	Params          space.Values
	Value           float64
	DurationSeconds float64
}

// RunResult is the outcome of Runner.Run. Callers receive their own copy.
type RunResult struct {
	BestVector []float64
	BestParams space.Values
	BestValue  float64
	History    []EvaluationRecord
	NEvals     int
	Metadata   map[string]any
}

// HasBest reports whether at least one evaluation completed
func (r *RunResult) HasBest() bool {
	return r.NEvals > 0
}

// Values returns the objective values in history order
func (r *RunResult) Values() []float64 {
	out := make([]float64, len(r.History))
	for i, rec := range r.History {
		out[i] = rec.Value
	}
	return out
}

// Summary renders the result as plain nested primitives. Non-finite values
// become nil so the summary always encodes as JSON.
func (r *RunResult) Summary() map[string]any {
	history := make([]any, len(r.History))
	for i, rec := range r.History {
		vec := make([]any, len(rec.Vector))
		for j, v := range rec.Vector {
			vec[j] = v
		}
		history[i] = map[string]any{
			"step":             rec.Step,
			"vector":           vec,
			"params":           valuesToMap(rec.Params),
			"value":            rec.Value,
			"duration_seconds": rec.DurationSeconds,
		}
	}
	meta := make(map[string]any, len(r.Metadata))
	for k, v := range r.Metadata {
		meta[k] = v
	}
	out := map[string]any{
		"n_evals":  r.NEvals,
		"history":  history,
		"metadata": meta,
	}
	if r.HasBest() {
		out["best_params"] = valuesToMap(r.BestParams)
		out["best_value"] = r.BestValue
	} else {
		out["best_params"] = nil
		out["best_value"] = nil
	}
	return utils.JSONSafe(out).(map[string]any)
}

func (r *RunResult) clone() *RunResult {
	out := &RunResult{
		BestValue: r.BestValue,
		NEvals:    r.NEvals,
		History:   make([]EvaluationRecord, len(r.History)),
		Metadata:  make(map[string]any, len(r.Metadata)),
	}
	if r.BestVector != nil {
		out.BestVector = append([]float64(nil), r.BestVector...)
	}
	if r.BestParams != nil {
		out.BestParams = r.BestParams.Clone()
	}
	for i, rec := range r.History {
		rec.Vector = append([]float64(nil), rec.Vector...)
		rec.Params = rec.Params.Clone()
		out.History[i] = rec
	}
	for k, v := range r.Metadata {
		out.Metadata[k] = v
	}
	return out
}

func valuesToMap(v space.Values) map[string]any {
	if v == nil {
		return nil
	}
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// HistoryStats summarizes the objective values of a run
func HistoryStats(values []float64) map[string]any {
	if len(values) == 0 {
		return map[string]any{"count": 0}
	}
	data := stats.Float64Data(values)
	out := map[string]any{"count": len(values)}
	if mean, err := stats.Mean(data); err == nil {
		out["mean"] = mean
	}
	if median, err := stats.Median(data); err == nil {
		out["median"] = median
	}
	if sd, err := stats.StandardDeviation(data); err == nil {
		out["stddev"] = sd
	}
	if min, err := stats.Min(data); err == nil {
		out["min"] = min
	}
	if max, err := stats.Max(data); err == nil {
		out["max"] = max
	}
	if q90, err := stats.Percentile(data, 90); err == nil {
		out["p90"] = q90
	}
	return out
}
