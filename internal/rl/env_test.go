package rl

import (
	"errors"
	"testing"

	"maru/internal/domain"
)

// tableWithDirections builds a synthetic feature table with the given
// per-month directions, starting at 2024-01 with neutral macro signals.
func tableWithDirections(t *testing.T, dirs ...domain.Direction) domain.FeatureTable {
	t.Helper()

	rows := make([]domain.MonthlyRow, len(dirs))
	p := domain.Period{Year: 2024, Month: 1}
	for i, d := range dirs {
		rows[i] = domain.MonthlyRow{
			Period:    p,
			MeanPrice: 100000,
			Direction: d,
			RateLevel: domain.RateMid,
			PopTrend:  domain.PopFlat,
		}
		p = p.Next()
	}

	ft, err := domain.NewFeatureTable(rows)
	if err != nil {
		t.Fatalf("NewFeatureTable: %v", err)
	}
	return ft
}

func TestNewEnvRejectsShortTable(t *testing.T) {
	_, err := NewEnv(domain.FeatureTable{}, NewEncoder())
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("NewEnv error = %v, want ErrInsufficientData", err)
	}
}

func TestStepRewards(t *testing.T) {
	// Directions: [flat, up, down]. Predicting "up" at index 0 and "down" at
	// index 1 should both score +1; anything else scores -1.
	ft := tableWithDirections(t, domain.DirectionFlat, domain.DirectionUp, domain.DirectionDown)
	env, err := NewEnv(ft, NewEncoder())
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}

	env.Reset()
	_, reward, done, info, err := env.Step(domain.ActionUp)
	if err != nil {
		t.Fatalf("Step 0: %v", err)
	}
	if reward != 1.0 {
		t.Errorf("step 0 with action up: reward = %v, want 1", reward)
	}
	if done {
		t.Error("step 0 should not finish a 3-row episode")
	}
	if info.TrueDirection != domain.DirectionUp || info.TrueLabel != "up" {
		t.Errorf("step 0 info = %+v, want true direction up", info)
	}
	if info.FromPeriod.String() != "2024-01" || info.ToPeriod.String() != "2024-02" {
		t.Errorf("step 0 periods = %s -> %s, want 2024-01 -> 2024-02", info.FromPeriod, info.ToPeriod)
	}

	_, reward, done, _, err = env.Step(domain.ActionDown)
	if err != nil {
		t.Fatalf("Step 1: %v", err)
	}
	if reward != 1.0 {
		t.Errorf("step 1 with action down: reward = %v, want 1", reward)
	}
	if !done {
		t.Error("step 1 should finish a 3-row episode")
	}

	// Mismatched prediction scores -1.
	env.Reset()
	_, reward, _, _, err = env.Step(domain.ActionDown)
	if err != nil {
		t.Fatalf("Step after reset: %v", err)
	}
	if reward != -1.0 {
		t.Errorf("mismatched action: reward = %v, want -1", reward)
	}
}

func TestEpisodeLength(t *testing.T) {
	// An n-row table yields exactly n-1 transitions.
	for n := 2; n <= 6; n++ {
		dirs := make([]domain.Direction, n)
		ft := tableWithDirections(t, dirs...)
		env, err := NewEnv(ft, NewEncoder())
		if err != nil {
			t.Fatalf("NewEnv(n=%d): %v", n, err)
		}
		if env.NumSteps() != n-1 {
			t.Errorf("NumSteps(n=%d) = %d, want %d", n, env.NumSteps(), n-1)
		}

		env.Reset()
		steps := 0
		for {
			_, _, done, _, err := env.Step(domain.ActionFlat)
			if err != nil {
				t.Fatalf("Step %d (n=%d): %v", steps, n, err)
			}
			steps++
			if done {
				break
			}
		}
		if steps != n-1 {
			t.Errorf("episode length for n=%d rows = %d steps, want %d", n, steps, n-1)
		}
	}
}

func TestStepAfterDone(t *testing.T) {
	ft := tableWithDirections(t, domain.DirectionFlat, domain.DirectionUp)
	env, err := NewEnv(ft, NewEncoder())
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}

	env.Reset()
	if _, _, done, _, err := env.Step(domain.ActionUp); err != nil || !done {
		t.Fatalf("Step = done %v, err %v; want done with no error", done, err)
	}

	_, _, done, _, err := env.Step(domain.ActionUp)
	if !errors.Is(err, ErrEpisodeDone) {
		t.Errorf("stepping a finished episode: err = %v, want ErrEpisodeDone", err)
	}
	if !done {
		t.Error("stepping a finished episode should still report done")
	}
}

func TestStepBeforeReset(t *testing.T) {
	ft := tableWithDirections(t, domain.DirectionFlat, domain.DirectionUp)
	env, err := NewEnv(ft, NewEncoder())
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}
	if _, _, _, _, err := env.Step(domain.ActionUp); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Step before Reset: err = %v, want ErrNotStarted", err)
	}
}

func TestStepRejectsInvalidAction(t *testing.T) {
	ft := tableWithDirections(t, domain.DirectionFlat, domain.DirectionUp)
	env, err := NewEnv(ft, NewEncoder())
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}
	env.Reset()
	if _, _, _, _, err := env.Step(domain.Action(5)); err == nil {
		t.Error("Step should reject out-of-range actions")
	}
}

func TestResetReturnsFirstRowState(t *testing.T) {
	ft := tableWithDirections(t, domain.DirectionUp, domain.DirectionDown)
	enc := NewEncoder()
	env, err := NewEnv(ft, enc)
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}

	want := enc.EncodeState(domain.DirectionUp, domain.RateMid, domain.PopFlat)
	if got := env.Reset(); got != want {
		t.Errorf("Reset() = %d, want %d", got, want)
	}

	// Reset always rewinds, even mid-episode.
	env.Step(domain.ActionUp)
	if got := env.Reset(); got != want {
		t.Errorf("Reset() after stepping = %d, want %d", got, want)
	}
}
