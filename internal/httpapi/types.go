// Package httpapi provides the HTTP REST API for selections, training runs,
// and forecast scenarios.
package httpapi

// TrainRequest is the body of POST /api/train.
type TrainRequest struct {
	Region  string  `json:"region"`
	Complex string  `json:"complex"`
	Area    float64 `json:"area"`

	// Optional overrides; zero values fall back to the server defaults.
	Episodes int   `json:"episodes,omitempty"`
	Seed     int64 `json:"seed,omitempty"`
	Horizon  int   `json:"horizon,omitempty"`
}

// RunJSON is the JSON representation of one training run.
type RunJSON struct {
	ID                 string  `json:"id"`
	Region             string  `json:"region"`
	Complex            string  `json:"complex"`
	Area               float64 `json:"area"`
	Episodes           int     `json:"episodes"`
	TotalReward        float64 `json:"totalReward"`
	Steps              int     `json:"steps"`
	Correct            int     `json:"correct"`
	Wrong              int     `json:"wrong"`
	Accuracy           float64 `json:"accuracy"`
	LastPeriod         string  `json:"lastPeriod"`
	NextPeriod         string  `json:"nextPeriod"`
	PredictedDirection string  `json:"predictedDirection"`
	CreatedAt          string  `json:"createdAt"`
}

// ScenarioStepJSON is one month of a forecast scenario.
type ScenarioStepJSON struct {
	Step          int     `json:"step"`
	Period        string  `json:"period"`
	Direction     string  `json:"direction"`
	AppliedReturn float64 `json:"appliedReturn"`
	Price         float64 `json:"price"`
}

// TrainResponse is the response of POST /api/train.
type TrainResponse struct {
	Run      RunJSON            `json:"run"`
	Scenario []ScenarioStepJSON `json:"scenario"`
}

// RunsResponse lists recent training runs.
type RunsResponse struct {
	Runs []RunJSON `json:"runs"`
}

// ScenarioResponse returns the persisted scenario of one run.
type ScenarioResponse struct {
	RunID string             `json:"runId"`
	Steps []ScenarioStepJSON `json:"steps"`
}

// RegionsResponse lists districts with transaction data.
type RegionsResponse struct {
	Regions []string `json:"regions"`
}

// ComplexesResponse lists apartment complexes within a district.
type ComplexesResponse struct {
	Complexes []string `json:"complexes"`
}

// AreasResponse lists unit sizes for a complex.
type AreasResponse struct {
	Areas []float64 `json:"areas"`
}
