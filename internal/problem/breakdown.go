package problem

// ScenarioBreakdown holds the figures of merit of one signal scenario
type ScenarioBreakdown struct {
	Name    string  `json:"name"`
	SFMUp   float64 `json:"sfm_up"`
	SFMDown float64 `json:"sfm_down"`
	MCF     float64 `json:"mcf"`
	// Score is the TSF contribution of this scenario
	Score float64 `json:"score"`
}

// Breakdown is the structured result of one evaluation
type Breakdown struct {
	Objective string              `json:"objective"`
	Value     float64             `json:"value"`
	Design    Design              `json:"-"`
	Scenarios []ScenarioBreakdown `json:"scenarios"`
}

// ToMap renders the breakdown as plain nested primitives
func (b *Breakdown) ToMap() map[string]any {
	scenarios := make([]any, len(b.Scenarios))
	for i, s := range b.Scenarios {
		scenarios[i] = map[string]any{
			"name":     s.Name,
			"sfm_up":   s.SFMUp,
			"sfm_down": s.SFMDown,
			"mcf":      s.MCF,
			"score":    s.Score,
		}
	}
	return map[string]any{
		"objective": b.Objective,
		"value":     b.Value,
		"design": map[string]any{
			ParamComposition:  b.Design.Composition,
			ParamMRLThickness: b.Design.MRLThickness,
			ParamCapThickness: b.Design.CapThickness,
			ParamCap:          b.Design.Cap,
		},
		"scenarios": scenarios,
	}
}
