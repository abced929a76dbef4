package config

// ProblemFile is the on-disk description of an optimization problem and the
// solver settings used to run it
type ProblemFile struct {
	Name       string      `yaml:"name"`
	LogLevel   string      `yaml:"log_level,omitempty"`
	Materials  Materials   `yaml:"materials"`
	Scenarios  []Scenario  `yaml:"scenarios"`
	Q          QGrid       `yaml:"q"`
	Bounds     Bounds      `yaml:"bounds,omitempty"`
	Background float64     `yaml:"background,omitempty"`
	Weighting  *Weighting  `yaml:"weighting,omitempty"`
	TSF        *TSFWeights `yaml:"tsf,omitempty"`
	Solver     Solver      `yaml:"solver,omitempty"`
}

// Materials is the materials catalog
type Materials struct {
	Ambient   Ambient        `yaml:"ambient,omitempty"`
	Substrate Substrate      `yaml:"substrate"`
	Caps      map[string]Cap `yaml:"caps"`
	MRL       MRL            `yaml:"mrl"`
}

// Ambient is the incident medium
type Ambient struct {
	Name string `yaml:"name,omitempty"`
}

// Substrate is the semi-infinite bottom medium
type Substrate struct {
	Name  string  `yaml:"name"`
	RhoN  float64 `yaml:"rho_n"`
	Sigma float64 `yaml:"sigma"`
}

// Cap is one capping material option
type Cap struct {
	RhoN      float64 `yaml:"rho_n"`
	Thickness float64 `yaml:"thickness"`
	Sigma     float64 `yaml:"sigma"`
}

// MRL describes the binary alloy reference layer. The element-specific keys
// rho_n_Co and rho_n_Ti are accepted as aliases of rho_n_a and rho_n_b.
type MRL struct {
	ElementA string   `yaml:"element_a,omitempty"`
	ElementB string   `yaml:"element_b,omitempty"`
	RhoNA    *float64 `yaml:"rho_n_a,omitempty"`
	RhoNB    *float64 `yaml:"rho_n_b,omitempty"`
	RhoNCo   *float64 `yaml:"rho_n_Co,omitempty"`
	RhoNTi   *float64 `yaml:"rho_n_Ti,omitempty"`
	Sigma    *float64 `yaml:"sigma,omitempty"`
	// SigmaMRLCap is the roughness of the alloy top surface, alias of sigma
	SigmaMRLCap *float64 `yaml:"sigma_mrl_cap,omitempty"`
	// SigmaSubMRL overrides the substrate roughness under the alloy
	SigmaSubMRL *float64      `yaml:"sigma_sub_mrl,omitempty"`
	Magnetic    MagneticModel `yaml:"magnetic,omitempty"`
}

// Magnetic model names
const (
	MagneticBinaryAlloy = "binary_alloy"
	MagneticLinear      = "linear"
	MagneticConstant    = "constant"
)

// MagneticModel selects the composition to magnetic SLD mapping
type MagneticModel struct {
	Model   string   `yaml:"model,omitempty"`
	MomentA *float64 `yaml:"moment_a,omitempty"`
	MomentB *float64 `yaml:"moment_b,omitempty"`
	Slope   float64  `yaml:"slope,omitempty"`
	Value   float64  `yaml:"value,omitempty"`
}

// Scenario is a hypothetical buried signal layer
type Scenario struct {
	Name      string  `yaml:"name"`
	RhoN      float64 `yaml:"rho_n"`
	Thickness float64 `yaml:"thickness"`
	Sigma     float64 `yaml:"sigma,omitempty"`
}

// QGrid is either an explicit list of Q values or a linear range
type QGrid struct {
	Values []float64 `yaml:"values,omitempty"`
	Min    float64   `yaml:"min,omitempty"`
	Max    float64   `yaml:"max,omitempty"`
	Points int       `yaml:"points,omitempty"`
}

// Range is a closed interval
type Range struct {
	Lo float64 `yaml:"lo"`
	Hi float64 `yaml:"hi"`
}

// Bounds overrides the design bounds; nil fields keep the defaults
type Bounds struct {
	Composition  *Range `yaml:"composition,omitempty"`
	MRLThickness *Range `yaml:"mrl_thickness,omitempty"`
	CapThickness *Range `yaml:"cap_thickness,omitempty"`
}

// Weighting types
const (
	WeightingUniform = "uniform"
	WeightingQPower  = "q_power"
)

// Weighting selects per-Q weights for the integrated scores
type Weighting struct {
	Type  string  `yaml:"type"`
	Power float64 `yaml:"power,omitempty"`
}

// TSFWeights weights the components of the total score
type TSFWeights struct {
	SFMUp   float64 `yaml:"sfm_up"`
	SFMDown float64 `yaml:"sfm_down"`
	MCF     float64 `yaml:"mcf"`
}

// Solver holds run settings
type Solver struct {
	Kind          string         `yaml:"kind,omitempty"`
	Direction     string         `yaml:"direction,omitempty"`
	Objective     string         `yaml:"objective,omitempty"`
	Budget        int            `yaml:"budget,omitempty"`
	Seed          int64          `yaml:"seed,omitempty"`
	GridPoints    int            `yaml:"grid_points,omitempty"`
	Parallelism   int            `yaml:"parallelism,omitempty"`
	EarlyStopping *EarlyStopping `yaml:"early_stopping,omitempty"`
	Checkpoint    string         `yaml:"checkpoint,omitempty"`
	// CheckpointEvery is the step interval between checkpoints; 0 uses the default
	CheckpointEvery int `yaml:"checkpoint_every,omitempty"`
}

// EarlyStopping configures convergence detection
type EarlyStopping struct {
	Strategy       string  `yaml:"strategy,omitempty"`
	Patience       int     `yaml:"patience,omitempty"`
	MinEvaluations int     `yaml:"min_evaluations,omitempty"`
	Tolerance      float64 `yaml:"tolerance,omitempty"`
	Threshold      float64 `yaml:"threshold,omitempty"`
}
