package rl

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"maru/internal/domain"
)

// TrainConfig holds the Q-learning hyperparameters.
type TrainConfig struct {
	Episodes     int
	Alpha        float64 // learning rate
	Gamma        float64 // discount factor
	EpsilonStart float64
	EpsilonEnd   float64
	EpsilonDecay float64

	// Seed for the exploration RNG. Zero means derive from the clock; any
	// other value makes training reproducible.
	Seed int64
}

// DefaultTrainConfig returns the standard hyperparameters.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Episodes:     300,
		Alpha:        0.1,
		Gamma:        0.9,
		EpsilonStart: 1.0,
		EpsilonEnd:   0.05,
		EpsilonDecay: 0.98,
	}
}

// Validate checks that the hyperparameters are usable.
func (cfg TrainConfig) Validate() error {
	if cfg.Episodes <= 0 {
		return fmt.Errorf("episodes must be positive, got %d", cfg.Episodes)
	}
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1], got %v", cfg.Alpha)
	}
	if cfg.Gamma < 0 || cfg.Gamma > 1 {
		return fmt.Errorf("gamma must be in [0, 1], got %v", cfg.Gamma)
	}
	if cfg.EpsilonDecay <= 0 || cfg.EpsilonDecay > 1 {
		return fmt.Errorf("epsilon decay must be in (0, 1], got %v", cfg.EpsilonDecay)
	}
	if cfg.EpsilonEnd > cfg.EpsilonStart {
		return fmt.Errorf("epsilon end %v exceeds start %v", cfg.EpsilonEnd, cfg.EpsilonStart)
	}
	return nil
}

// Epsilon returns the exploration rate for the given episode index:
// max(end, start * decay^episode). Non-increasing in the episode index and
// bounded below by EpsilonEnd.
func Epsilon(cfg TrainConfig, episode int) float64 {
	eps := cfg.EpsilonStart * math.Pow(cfg.EpsilonDecay, float64(episode))
	if eps < cfg.EpsilonEnd {
		return cfg.EpsilonEnd
	}
	return eps
}

// QTable holds the tabular action-value estimates. It has exactly one writer
// (Train) while training runs and none afterwards.
type QTable struct {
	values [NumStates][NumActions]float64
}

// NewQTable returns a zero-initialized table.
func NewQTable() *QTable { return &QTable{} }

// Value returns the estimate for (state, action).
func (q *QTable) Value(state int, action domain.Action) float64 {
	return q.values[state][action]
}

// Set overwrites the estimate for (state, action). Exposed for tests and
// table reconstruction; training goes through update.
func (q *QTable) Set(state int, action domain.Action, v float64) {
	q.values[state][action] = v
}

// Best returns the greedy action for a state. Ties break toward the lowest
// action index, matching the first-maximum convention used in training.
func (q *QTable) Best(state int) domain.Action {
	best := 0
	for a := 1; a < NumActions; a++ {
		if q.values[state][a] > q.values[state][best] {
			best = a
		}
	}
	return domain.Action(best)
}

// maxValue returns the largest estimate for a state.
func (q *QTable) maxValue(state int) float64 {
	m := q.values[state][0]
	for a := 1; a < NumActions; a++ {
		if q.values[state][a] > m {
			m = q.values[state][a]
		}
	}
	return m
}

// Clone returns an independent copy of the table.
func (q *QTable) Clone() *QTable {
	cp := *q
	return &cp
}

// Train runs epsilon-greedy Q-learning over the environment and returns the
// learned table together with the per-episode total rewards (one entry per
// episode, in order). The environment is reset at each episode start; epsilon
// is computed once per episode.
func Train(env *Env, cfg TrainConfig) (*QTable, []float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	q := NewQTable()
	episodeRewards := make([]float64, 0, cfg.Episodes)

	for ep := 0; ep < cfg.Episodes; ep++ {
		state := env.Reset()
		eps := Epsilon(cfg, ep)
		total := 0.0

		for {
			var action domain.Action
			if rng.Float64() < eps {
				action = domain.Action(rng.Intn(NumActions))
			} else {
				action = q.Best(state)
			}

			next, reward, done, _, err := env.Step(action)
			if err != nil {
				return nil, nil, fmt.Errorf("episode %d: %w", ep, err)
			}

			target := reward + cfg.Gamma*q.maxValue(next)
			q.values[state][action] += cfg.Alpha * (target - q.values[state][action])

			total += reward
			state = next
			if done {
				break
			}
		}

		episodeRewards = append(episodeRewards, total)
	}

	return q, episodeRewards, nil
}
