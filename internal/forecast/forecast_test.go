package forecast

import (
	"errors"
	"math"
	"testing"

	"maru/internal/domain"
	"maru/internal/rl"
)

// panelRow builds one monthly row with sensible defaults.
func panelRow(p domain.Period, price, pct float64, dir domain.Direction) domain.MonthlyRow {
	return domain.MonthlyRow{
		Period:    p,
		MeanPrice: price,
		PctChange: pct,
		Direction: dir,
		RateLevel: domain.RateMid,
		PopTrend:  domain.PopFlat,
	}
}

func buildTable(t *testing.T, rows []domain.MonthlyRow) domain.FeatureTable {
	t.Helper()
	ft, err := domain.NewFeatureTable(rows)
	if err != nil {
		t.Fatalf("NewFeatureTable: %v", err)
	}
	return ft
}

// upTable trains nothing: instead we hand-build a Q-table that always picks
// "up" so forecasts are deterministic.
func alwaysUpQ() *rl.QTable {
	q := rl.NewQTable()
	for s := 0; s < rl.NumStates; s++ {
		q.Set(s, domain.ActionUp, 1.0)
	}
	return q
}

func TestOneStepPredictsFollowingMonth(t *testing.T) {
	ft := buildTable(t, []domain.MonthlyRow{
		panelRow(domain.Period{Year: 2023, Month: 11}, 90000, 0, domain.DirectionFlat),
		panelRow(domain.Period{Year: 2023, Month: 12}, 93000, 0.033, domain.DirectionUp),
	})
	enc := rl.NewEncoder()

	res, err := OneStep(ft, alwaysUpQ(), enc)
	if err != nil {
		t.Fatalf("OneStep: %v", err)
	}

	if res.LastPeriod.String() != "2023-12" {
		t.Errorf("LastPeriod = %s, want 2023-12", res.LastPeriod)
	}
	// Year wraps.
	if res.NextPeriod.String() != "2024-01" {
		t.Errorf("NextPeriod = %s, want 2024-01", res.NextPeriod)
	}
	if res.Action != domain.ActionUp || res.Direction != domain.DirectionUp || res.Label != "up" {
		t.Errorf("prediction = %+v, want up", res)
	}
}

func TestOneStepIdempotent(t *testing.T) {
	ft := buildTable(t, []domain.MonthlyRow{
		panelRow(domain.Period{Year: 2024, Month: 1}, 80000, 0, domain.DirectionFlat),
		panelRow(domain.Period{Year: 2024, Month: 2}, 81000, 0.0125, domain.DirectionUp),
	})
	enc := rl.NewEncoder()
	q := alwaysUpQ()

	first, err := OneStep(ft, q, enc)
	if err != nil {
		t.Fatalf("OneStep: %v", err)
	}
	second, err := OneStep(ft, q, enc)
	if err != nil {
		t.Fatalf("OneStep (second call): %v", err)
	}
	if first != second {
		t.Errorf("OneStep not idempotent: %+v vs %+v", first, second)
	}
}

func TestOneStepEmptyTable(t *testing.T) {
	_, err := OneStep(domain.FeatureTable{}, rl.NewQTable(), rl.NewEncoder())
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("OneStep on empty table: err = %v, want ErrInsufficientData", err)
	}
}

func TestHorizonLengthAndPeriods(t *testing.T) {
	ft := buildTable(t, []domain.MonthlyRow{
		panelRow(domain.Period{Year: 2024, Month: 10}, 100000, 0, domain.DirectionFlat),
		panelRow(domain.Period{Year: 2024, Month: 11}, 102000, 0.02, domain.DirectionUp),
	})

	steps, err := Horizon(ft, alwaysUpQ(), rl.NewEncoder(), DefaultHorizon)
	if err != nil {
		t.Fatalf("Horizon: %v", err)
	}
	if len(steps) != 12 {
		t.Fatalf("Horizon returned %d steps, want 12", len(steps))
	}

	// Strictly increasing, one calendar month apart, wrapping the year.
	prev := domain.Period{Year: 2024, Month: 11}
	for i, s := range steps {
		want := prev.Next()
		if s.Period != want {
			t.Errorf("step %d period = %s, want %s", i, s.Period, want)
		}
		if s.Step != i+1 {
			t.Errorf("step %d Step = %d, want %d", i, s.Step, i+1)
		}
		prev = s.Period
	}
	if steps[1].Period.String() != "2025-01" {
		t.Errorf("second step period = %s, want 2025-01 (year wrap)", steps[1].Period)
	}
}

func TestHorizonAppliesHistoricalMeanReturn(t *testing.T) {
	// Two "up" months with +2% and +4% changes: up mean = 3%.
	ft := buildTable(t, []domain.MonthlyRow{
		panelRow(domain.Period{Year: 2024, Month: 1}, 100000, 0, domain.DirectionFlat),
		panelRow(domain.Period{Year: 2024, Month: 2}, 102000, 0.02, domain.DirectionUp),
		panelRow(domain.Period{Year: 2024, Month: 3}, 106080, 0.04, domain.DirectionUp),
	})

	steps, err := Horizon(ft, alwaysUpQ(), rl.NewEncoder(), 2)
	if err != nil {
		t.Fatalf("Horizon: %v", err)
	}

	wantReturn := 0.03
	if math.Abs(steps[0].AppliedReturn-wantReturn) > 1e-12 {
		t.Errorf("applied return = %v, want %v", steps[0].AppliedReturn, wantReturn)
	}
	wantPrice := 106080 * 1.03
	if math.Abs(steps[0].Price-wantPrice) > 1e-6 {
		t.Errorf("step 1 price = %v, want %v", steps[0].Price, wantPrice)
	}
	wantPrice *= 1.03
	if math.Abs(steps[1].Price-wantPrice) > 1e-6 {
		t.Errorf("step 2 price = %v, want %v", steps[1].Price, wantPrice)
	}
}

func TestHorizonFallbackReturns(t *testing.T) {
	// History contains no "up" months, so the up prediction must use the
	// fixed +1% default rather than failing or producing NaN.
	ft := buildTable(t, []domain.MonthlyRow{
		panelRow(domain.Period{Year: 2024, Month: 1}, 100000, 0, domain.DirectionFlat),
		panelRow(domain.Period{Year: 2024, Month: 2}, 99000, -0.01, domain.DirectionDown),
	})

	steps, err := Horizon(ft, alwaysUpQ(), rl.NewEncoder(), 3)
	if err != nil {
		t.Fatalf("Horizon: %v", err)
	}
	for i, s := range steps {
		if s.AppliedReturn != 0.01 {
			t.Errorf("step %d applied return = %v, want fallback 0.01", i, s.AppliedReturn)
		}
		if math.IsNaN(s.Price) {
			t.Errorf("step %d price is NaN", i)
		}
	}
}

func TestHorizonFreezesMacroState(t *testing.T) {
	// Q-table: predict up only from the (up, high, up) corner; everywhere
	// else predict down. If macro state were not frozen at the last observed
	// high/up values, the second step would not keep choosing up.
	q := rl.NewQTable()
	enc := rl.NewEncoder()
	corner := enc.EncodeState(domain.DirectionUp, domain.RateHigh, domain.PopUp)
	q.Set(corner, domain.ActionUp, 1.0)

	rows := []domain.MonthlyRow{
		panelRow(domain.Period{Year: 2024, Month: 1}, 100000, 0, domain.DirectionFlat),
		{
			Period:    domain.Period{Year: 2024, Month: 2},
			MeanPrice: 102000,
			PctChange: 0.02,
			Direction: domain.DirectionUp,
			RateLevel: domain.RateHigh,
			PopTrend:  domain.PopUp,
		},
	}
	ft := buildTable(t, rows)

	steps, err := Horizon(ft, q, enc, 4)
	if err != nil {
		t.Fatalf("Horizon: %v", err)
	}
	for i, s := range steps {
		if s.Direction != domain.DirectionUp {
			t.Errorf("step %d direction = %v, want up (macro state frozen)", i, s.Direction)
		}
	}
}

func TestHorizonRejectsNonPositive(t *testing.T) {
	ft := buildTable(t, []domain.MonthlyRow{
		panelRow(domain.Period{Year: 2024, Month: 1}, 100000, 0, domain.DirectionFlat),
		panelRow(domain.Period{Year: 2024, Month: 2}, 101000, 0.01, domain.DirectionUp),
	})
	if _, err := Horizon(ft, rl.NewQTable(), rl.NewEncoder(), 0); err == nil {
		t.Error("Horizon(0) should fail")
	}
}
