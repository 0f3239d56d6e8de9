// Package domain defines the shared value types for the maru platform:
// raw housing transactions, monthly feature rows, and the categorical
// signals the learning agent consumes.
package domain

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when a feature table has fewer than two
// monthly rows. One transition is the minimum unit of experience, so nothing
// can be trained or evaluated below that.
var ErrInsufficientData = errors.New("fewer than 2 monthly rows")

// ---------------------------------------------------------------------------
// Categorical signals
// ---------------------------------------------------------------------------

// Direction is the month-over-month price movement label.
type Direction int

const (
	DirectionDown Direction = -1
	DirectionFlat Direction = 0
	DirectionUp   Direction = 1
)

// Label returns the human-readable name for the direction.
func (d Direction) Label() string {
	switch d {
	case DirectionDown:
		return "down"
	case DirectionUp:
		return "up"
	default:
		return "flat"
	}
}

// RateLevel is the discretized interest-rate regime.
type RateLevel int

const (
	RateLow  RateLevel = 0
	RateMid  RateLevel = 1
	RateHigh RateLevel = 2
)

// Label returns the human-readable name for the rate level.
func (r RateLevel) Label() string {
	switch r {
	case RateLow:
		return "low"
	case RateHigh:
		return "high"
	default:
		return "mid"
	}
}

// PopTrend is the sign of the month-over-month regional population change.
type PopTrend int

const (
	PopDown PopTrend = -1
	PopFlat PopTrend = 0
	PopUp   PopTrend = 1
)

// Label returns the human-readable name for the population trend.
func (p PopTrend) Label() string {
	switch p {
	case PopDown:
		return "down"
	case PopUp:
		return "up"
	default:
		return "flat"
	}
}

// Action is the agent's prediction for next month's direction.
type Action int

const (
	ActionDown Action = 0
	ActionFlat Action = 1
	ActionUp   Action = 2
)

// Direction maps an action to the direction it predicts. Out-of-range
// actions map to flat.
func (a Action) Direction() Direction {
	switch a {
	case ActionDown:
		return DirectionDown
	case ActionUp:
		return DirectionUp
	default:
		return DirectionFlat
	}
}

// Label returns the human-readable name for the predicted direction.
func (a Action) Label() string {
	return a.Direction().Label()
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// Transaction is one raw apartment sale record.
type Transaction struct {
	Region  string  // administrative district ("gu")
	Complex string  // apartment complex name
	Area    float64 // unit size in square meters
	Year    int
	Month   int
	Day     int
	Price   int64 // deal price in 10k KRW
}

// Period returns the transaction's calendar month.
func (t Transaction) Period() Period {
	return Period{Year: t.Year, Month: t.Month}
}

// ---------------------------------------------------------------------------
// Monthly feature rows
// ---------------------------------------------------------------------------

// MonthlyRow is one record of the per-month feature table for a fixed
// (region, complex, area) selection.
type MonthlyRow struct {
	Period    Period
	MeanPrice float64
	DealCount int

	// PctChange is the fractional change from the prior month's mean price.
	// Undefined (zero, direction flat) for the first row.
	PctChange float64
	Direction Direction

	// Merged macro covariates. HasRate/HasPopulation distinguish a genuine
	// zero from a missing value.
	BaseRate      float64
	HasRate       bool
	Population    float64
	HasPopulation bool

	RateLevel RateLevel
	PopTrend  PopTrend
}

// FeatureTable is an immutable, period-ordered sequence of monthly rows.
// The environment and forecaster read rows by index and never mutate them.
type FeatureTable struct {
	rows []MonthlyRow
}

// NewFeatureTable builds a feature table from rows. It copies the slice and
// rejects tables with fewer than two rows or out-of-order periods.
func NewFeatureTable(rows []MonthlyRow) (FeatureTable, error) {
	if len(rows) < 2 {
		return FeatureTable{}, ErrInsufficientData
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i-1].Period.Before(rows[i].Period) {
			return FeatureTable{}, fmt.Errorf("periods out of order at row %d: %s then %s",
				i, rows[i-1].Period, rows[i].Period)
		}
	}
	cp := make([]MonthlyRow, len(rows))
	copy(cp, rows)
	return FeatureTable{rows: cp}, nil
}

// Len returns the number of monthly rows.
func (ft FeatureTable) Len() int { return len(ft.rows) }

// Row returns the row at index i.
func (ft FeatureTable) Row(i int) MonthlyRow { return ft.rows[i] }

// Last returns the most recent row.
func (ft FeatureTable) Last() MonthlyRow { return ft.rows[len(ft.rows)-1] }

// Rows returns a copy of the rows, so callers cannot mutate the table.
func (ft FeatureTable) Rows() []MonthlyRow {
	cp := make([]MonthlyRow, len(ft.rows))
	copy(cp, ft.rows)
	return cp
}
