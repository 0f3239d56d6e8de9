// Package panel builds the monthly feature table for one housing unit
// selection: per-month mean prices from raw transactions, direction labels
// from month-over-month changes, and discretized macro covariates merged in
// from the base-rate and population series.
package panel

import (
	"sort"

	"maru/internal/domain"
)

// Params controls feature derivation.
type Params struct {
	// DirectionThreshold is the symmetric fractional cut for labeling a
	// month as up or down; changes inside (-threshold, +threshold) are flat.
	DirectionThreshold float64

	// RateCutLow and RateCutHigh split the base rate into low/mid/high:
	// low < RateCutLow <= mid < RateCutHigh <= high.
	RateCutLow  float64
	RateCutHigh float64
}

// DefaultParams returns the standard derivation parameters: a 1% direction
// threshold and 3.0/3.5 rate cut points.
func DefaultParams() Params {
	return Params{
		DirectionThreshold: 0.01,
		RateCutLow:         3.0,
		RateCutHigh:        3.5,
	}
}

// BuildMonthly aggregates raw transactions into period-ordered monthly rows
// with the mean deal price and deal count per month.
func BuildMonthly(txs []domain.Transaction) []domain.MonthlyRow {
	type agg struct {
		sum   float64
		count int
	}
	byPeriod := make(map[domain.Period]*agg)
	for _, tx := range txs {
		p := tx.Period()
		a := byPeriod[p]
		if a == nil {
			a = &agg{}
			byPeriod[p] = a
		}
		a.sum += float64(tx.Price)
		a.count++
	}

	rows := make([]domain.MonthlyRow, 0, len(byPeriod))
	for p, a := range byPeriod {
		rows = append(rows, domain.MonthlyRow{
			Period:    p,
			MeanPrice: a.sum / float64(a.count),
			DealCount: a.count,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Period.Before(rows[j].Period)
	})
	return rows
}

// LabelDirections fills PctChange and Direction in place. The first row has
// no prior month and stays neutral (zero change, flat).
func LabelDirections(rows []domain.MonthlyRow, threshold float64) {
	for i := range rows {
		if i == 0 {
			rows[i].PctChange = 0
			rows[i].Direction = domain.DirectionFlat
			continue
		}
		prev := rows[i-1].MeanPrice
		if prev == 0 {
			rows[i].PctChange = 0
			rows[i].Direction = domain.DirectionFlat
			continue
		}
		pct := (rows[i].MeanPrice - prev) / prev
		rows[i].PctChange = pct
		switch {
		case pct <= -threshold:
			rows[i].Direction = domain.DirectionDown
		case pct >= threshold:
			rows[i].Direction = domain.DirectionUp
		default:
			rows[i].Direction = domain.DirectionFlat
		}
	}
}

// MergeMacro left-joins the monthly base-rate and regional population series
// onto the rows by period. Missing periods leave the Has* flags unset.
func MergeMacro(rows []domain.MonthlyRow, rates map[domain.Period]float64, pops map[domain.Period]float64) {
	for i := range rows {
		if r, ok := rates[rows[i].Period]; ok {
			rows[i].BaseRate = r
			rows[i].HasRate = true
		}
		if p, ok := pops[rows[i].Period]; ok {
			rows[i].Population = p
			rows[i].HasPopulation = true
		}
	}
}

// DeriveLevels fills RateLevel and PopTrend in place. A missing base rate
// defaults to mid; the population trend is the sign of the month-over-month
// change, defaulting to flat for the first row, a zero delta, or a missing
// figure on either side.
func DeriveLevels(rows []domain.MonthlyRow, cutLow, cutHigh float64) {
	for i := range rows {
		switch {
		case !rows[i].HasRate:
			rows[i].RateLevel = domain.RateMid
		case rows[i].BaseRate < cutLow:
			rows[i].RateLevel = domain.RateLow
		case rows[i].BaseRate < cutHigh:
			rows[i].RateLevel = domain.RateMid
		default:
			rows[i].RateLevel = domain.RateHigh
		}

		rows[i].PopTrend = domain.PopFlat
		if i == 0 || !rows[i].HasPopulation || !rows[i-1].HasPopulation {
			continue
		}
		switch diff := rows[i].Population - rows[i-1].Population; {
		case diff > 0:
			rows[i].PopTrend = domain.PopUp
		case diff < 0:
			rows[i].PopTrend = domain.PopDown
		}
	}
}

// Build runs the full derivation pipeline and returns a validated feature
// table. Selections with fewer than two traded months are rejected with
// domain.ErrInsufficientData.
func Build(
	txs []domain.Transaction,
	rates map[domain.Period]float64,
	pops map[domain.Period]float64,
	params Params,
) (domain.FeatureTable, error) {
	rows := BuildMonthly(txs)
	LabelDirections(rows, params.DirectionThreshold)
	MergeMacro(rows, rates, pops)
	DeriveLevels(rows, params.RateCutLow, params.RateCutHigh)
	return domain.NewFeatureTable(rows)
}
