package domain

import "time"

// Selection identifies one housing unit: a district, an apartment complex,
// and a unit size.
type Selection struct {
	Region  string
	Complex string
	Area    float64
}

// RunSummary is the persisted record of one training run.
type RunSummary struct {
	ID        string
	Selection Selection

	Episodes    int
	TotalReward float64
	Steps       int
	Correct     int
	Wrong       int
	Accuracy    float64

	// One-step-ahead prediction.
	LastPeriod         Period
	NextPeriod         Period
	PredictedDirection Direction

	CreatedAt time.Time
}
