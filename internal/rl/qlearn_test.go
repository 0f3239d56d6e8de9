package rl

import (
	"testing"

	"maru/internal/domain"
)

func TestEpsilonSchedule(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.EpsilonStart = 1.0
	cfg.EpsilonEnd = 0.1
	cfg.EpsilonDecay = 0.9

	prev := Epsilon(cfg, 0)
	if prev != 1.0 {
		t.Errorf("Epsilon(0) = %v, want 1.0", prev)
	}
	for ep := 1; ep < 200; ep++ {
		eps := Epsilon(cfg, ep)
		if eps > prev {
			t.Fatalf("Epsilon increased at episode %d: %v -> %v", ep, prev, eps)
		}
		if eps < cfg.EpsilonEnd {
			t.Fatalf("Epsilon(%d) = %v fell below floor %v", ep, eps, cfg.EpsilonEnd)
		}
		prev = eps
	}
	if Epsilon(cfg, 1000) != cfg.EpsilonEnd {
		t.Errorf("Epsilon(1000) = %v, want floor %v", Epsilon(cfg, 1000), cfg.EpsilonEnd)
	}
}

func TestTrainConfigValidate(t *testing.T) {
	good := DefaultTrainConfig()
	if err := good.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*TrainConfig)
	}{
		{"zero episodes", func(c *TrainConfig) { c.Episodes = 0 }},
		{"negative alpha", func(c *TrainConfig) { c.Alpha = -0.1 }},
		{"gamma above one", func(c *TrainConfig) { c.Gamma = 1.5 }},
		{"zero decay", func(c *TrainConfig) { c.EpsilonDecay = 0 }},
		{"end above start", func(c *TrainConfig) { c.EpsilonStart = 0.1; c.EpsilonEnd = 0.5 }},
	}
	for _, tc := range cases {
		cfg := DefaultTrainConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate should fail", tc.name)
		}
	}
}

func TestQTableBestTieBreak(t *testing.T) {
	q := NewQTable()
	// All zeros: first maximum wins.
	if got := q.Best(0); got != domain.ActionDown {
		t.Errorf("Best on zero table = %v, want action 0", got)
	}

	q.Set(5, domain.ActionFlat, 2.0)
	q.Set(5, domain.ActionUp, 2.0)
	if got := q.Best(5); got != domain.ActionFlat {
		t.Errorf("Best with tied 1 and 2 = %v, want lowest index 1", got)
	}
}

func TestQTableClone(t *testing.T) {
	q := NewQTable()
	q.Set(3, domain.ActionUp, 1.5)

	cp := q.Clone()
	cp.Set(3, domain.ActionUp, -9)

	if q.Value(3, domain.ActionUp) != 1.5 {
		t.Errorf("Clone shares storage: original value = %v", q.Value(3, domain.ActionUp))
	}
}

func TestTrainRewardTraceLength(t *testing.T) {
	ft := tableWithDirections(t,
		domain.DirectionFlat, domain.DirectionUp, domain.DirectionDown, domain.DirectionUp)
	env, err := NewEnv(ft, NewEncoder())
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}

	cfg := DefaultTrainConfig()
	cfg.Episodes = 40
	cfg.Seed = 1

	_, rewards, err := Train(env, cfg)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(rewards) != cfg.Episodes {
		t.Errorf("reward trace length = %d, want %d", len(rewards), cfg.Episodes)
	}
	// Each episode has 3 transitions with ±1 reward each.
	for i, r := range rewards {
		if r < -3 || r > 3 {
			t.Errorf("episode %d reward %v outside [-3, 3]", i, r)
		}
	}
}

func TestTrainReproducibleWithSeed(t *testing.T) {
	ft := tableWithDirections(t,
		domain.DirectionFlat, domain.DirectionUp, domain.DirectionDown,
		domain.DirectionUp, domain.DirectionFlat)

	run := func() (*QTable, []float64) {
		env, err := NewEnv(ft, NewEncoder())
		if err != nil {
			t.Fatalf("NewEnv: %v", err)
		}
		cfg := DefaultTrainConfig()
		cfg.Episodes = 60
		cfg.Seed = 42
		q, rewards, err := Train(env, cfg)
		if err != nil {
			t.Fatalf("Train: %v", err)
		}
		return q, rewards
	}

	q1, r1 := run()
	q2, r2 := run()

	for i := range r1 {
		if r1[i] != r2[i] {
			t.Fatalf("episode %d rewards differ between seeded runs: %v vs %v", i, r1[i], r2[i])
		}
	}
	for s := 0; s < NumStates; s++ {
		for a := 0; a < NumActions; a++ {
			if q1.Value(s, domain.Action(a)) != q2.Value(s, domain.Action(a)) {
				t.Fatalf("Q[%d][%d] differs between seeded runs", s, a)
			}
		}
	}
}

func TestTrainConvergesOnRecurringDirection(t *testing.T) {
	// Every month moves up, so from the "up" state the correct prediction is
	// always up. After enough episodes the greedy action for that state must
	// be ActionUp.
	dirs := make([]domain.Direction, 10)
	for i := range dirs {
		dirs[i] = domain.DirectionUp
	}
	ft := tableWithDirections(t, dirs...)

	enc := NewEncoder()
	env, err := NewEnv(ft, enc)
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}

	cfg := DefaultTrainConfig()
	cfg.Episodes = 300
	cfg.Seed = 7

	q, _, err := Train(env, cfg)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	upState := enc.EncodeState(domain.DirectionUp, domain.RateMid, domain.PopFlat)
	if got := q.Best(upState); got != domain.ActionUp {
		t.Errorf("greedy action for recurring-up state = %v, want ActionUp", got)
	}
}

func TestRunGreedyTrace(t *testing.T) {
	ft := tableWithDirections(t,
		domain.DirectionFlat, domain.DirectionUp, domain.DirectionDown, domain.DirectionFlat)
	env, err := NewEnv(ft, NewEncoder())
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}

	// Zero table: greedy policy always picks action 0 (down).
	q := NewQTable()
	total, steps, trace, err := RunGreedy(env, q, 100)
	if err != nil {
		t.Fatalf("RunGreedy: %v", err)
	}

	if steps != 3 {
		t.Errorf("steps = %d, want 3 for a 4-row table", steps)
	}
	if len(trace) != 3 {
		t.Fatalf("trace length = %d, want 3", len(trace))
	}

	// True directions are [up, down, flat]; predicting down scores -1, +1, -1.
	wantRewards := []float64{-1, 1, -1}
	for i, rec := range trace {
		if rec.Step != i {
			t.Errorf("trace[%d].Step = %d, want %d", i, rec.Step, i)
		}
		if rec.Reward != wantRewards[i] {
			t.Errorf("trace[%d].Reward = %v, want %v", i, rec.Reward, wantRewards[i])
		}
		if rec.Action != domain.ActionDown {
			t.Errorf("trace[%d].Action = %v, want ActionDown", i, rec.Action)
		}
	}
	if total != -1 {
		t.Errorf("total reward = %v, want -1", total)
	}

	if acc := Accuracy(trace); acc != 1.0/3.0 {
		t.Errorf("Accuracy = %v, want 1/3", acc)
	}
}

func TestRunGreedyRespectsMaxSteps(t *testing.T) {
	ft := tableWithDirections(t,
		domain.DirectionFlat, domain.DirectionUp, domain.DirectionDown, domain.DirectionFlat)
	env, err := NewEnv(ft, NewEncoder())
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}

	_, steps, trace, err := RunGreedy(env, NewQTable(), 2)
	if err != nil {
		t.Fatalf("RunGreedy: %v", err)
	}
	if steps != 2 || len(trace) != 2 {
		t.Errorf("steps = %d, trace = %d; want 2 and 2 under the cap", steps, len(trace))
	}
}

func TestAccuracyEmptyTrace(t *testing.T) {
	if got := Accuracy(nil); got != 0 {
		t.Errorf("Accuracy(nil) = %v, want 0", got)
	}
}
