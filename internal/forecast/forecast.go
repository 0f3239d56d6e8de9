// Package forecast produces direction forecasts from a trained value table:
// a one-step-ahead prediction for the month after the last observation, and
// a multi-month price scenario that replays the greedy policy forward.
package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"maru/internal/domain"
	"maru/internal/rl"
)

// DefaultHorizon is the standard scenario length in months.
const DefaultHorizon = 12

// Fallback monthly returns applied when a direction never occurred in the
// historical panel.
const (
	fallbackUpReturn   = 0.01
	fallbackFlatReturn = 0.0
	fallbackDownReturn = -0.01
)

// OneStepResult is the prediction for the month immediately following the
// last observed period.
type OneStepResult struct {
	LastPeriod domain.Period
	NextPeriod domain.Period
	Action     domain.Action
	Direction  domain.Direction
	Label      string
}

// OneStep encodes the most recent row's state and picks the greedy action
// from the trained table. It reads its inputs without mutating them, so
// repeated calls yield identical results.
func OneStep(table domain.FeatureTable, q *rl.QTable, enc *rl.Encoder) (OneStepResult, error) {
	if table.Len() == 0 {
		return OneStepResult{}, domain.ErrInsufficientData
	}

	last := table.Last()
	state := enc.EncodeRow(last)
	action := q.Best(state)

	return OneStepResult{
		LastPeriod: last.Period,
		NextPeriod: last.Period.Next(),
		Action:     action,
		Direction:  action.Direction(),
		Label:      action.Label(),
	}, nil
}

// ScenarioStep is one month of the multi-step price scenario.
type ScenarioStep struct {
	Step          int // 1-based
	Period        domain.Period
	Direction     domain.Direction
	Label         string
	AppliedReturn float64
	Price         float64
}

// Horizon extrapolates a price trajectory for the given number of months
// under the greedy policy. Each predicted direction applies that direction's
// historical mean monthly return to the running price; directions absent from
// history fall back to fixed defaults (+1% up, 0% flat, -1% down).
//
// Only the direction component of the state evolves between steps. The rate
// level and population trend stay frozen at their last observed values; the
// macro covariates are not forecast.
func Horizon(table domain.FeatureTable, q *rl.QTable, enc *rl.Encoder, horizon int) ([]ScenarioStep, error) {
	if table.Len() == 0 {
		return nil, domain.ErrInsufficientData
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}

	upMean, flatMean, downMean := meanReturns(table)

	last := table.Last()
	direction := last.Direction
	rateLevel := last.RateLevel
	popTrend := last.PopTrend
	price := last.MeanPrice
	period := last.Period

	steps := make([]ScenarioStep, 0, horizon)
	for i := 1; i <= horizon; i++ {
		state := enc.EncodeState(direction, rateLevel, popTrend)
		action := q.Best(state)
		predicted := action.Direction()

		var applied float64
		switch predicted {
		case domain.DirectionUp:
			applied = upMean
		case domain.DirectionDown:
			applied = downMean
		default:
			applied = flatMean
		}

		price *= 1.0 + applied
		period = period.Next()

		steps = append(steps, ScenarioStep{
			Step:          i,
			Period:        period,
			Direction:     predicted,
			Label:         predicted.Label(),
			AppliedReturn: applied,
			Price:         price,
		})

		direction = predicted
	}

	return steps, nil
}

// meanReturns computes the historical mean fractional return per direction.
// The first row is excluded because its change from the prior month is
// undefined.
func meanReturns(table domain.FeatureTable) (up, flat, down float64) {
	var upSamples, flatSamples, downSamples []float64
	for i := 1; i < table.Len(); i++ {
		row := table.Row(i)
		switch row.Direction {
		case domain.DirectionUp:
			upSamples = append(upSamples, row.PctChange)
		case domain.DirectionDown:
			downSamples = append(downSamples, row.PctChange)
		default:
			flatSamples = append(flatSamples, row.PctChange)
		}
	}

	up = fallbackUpReturn
	if len(upSamples) > 0 {
		up = stat.Mean(upSamples, nil)
	}
	flat = fallbackFlatReturn
	if len(flatSamples) > 0 {
		flat = stat.Mean(flatSamples, nil)
	}
	down = fallbackDownReturn
	if len(downSamples) > 0 {
		down = stat.Mean(downSamples, nil)
	}
	return up, flat, down
}
