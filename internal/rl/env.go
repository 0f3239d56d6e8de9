package rl

import (
	"errors"
	"fmt"

	"maru/internal/domain"
)

// ErrEpisodeDone is returned by Step when the episode has already consumed
// its final transition. It marks a caller error, distinct from the normal
// terminal step (which returns done=true with a valid reward).
var ErrEpisodeDone = errors.New("episode already finished")

// ErrNotStarted is returned by Step when Reset has not been called.
var ErrNotStarted = errors.New("environment not reset")

// StepInfo carries diagnostic data for a single step, used for logging and
// the evaluation trace. It is not part of the decision process proper.
type StepInfo struct {
	FromPeriod    domain.Period
	ToPeriod      domain.Period
	TrueDirection domain.Direction
	TrueLabel     string
}

// Env wraps a monthly feature table into a finite-horizon episodic decision
// process. The agent walks the table one month at a time and predicts the
// next month's price direction; the action never alters which row becomes
// current, it only determines the reward.
//
// The pointer ranges over 0..n-2: each step needs a next row to score the
// prediction against.
type Env struct {
	table domain.FeatureTable
	enc   *Encoder

	maxStart int // last index a step can start from (n-2)
	current  int
	started  bool
}

// NewEnv creates an environment over the given feature table. Tables with
// fewer than two rows cannot form a single transition and are rejected.
func NewEnv(table domain.FeatureTable, enc *Encoder) (*Env, error) {
	if table.Len() < 2 {
		return nil, domain.ErrInsufficientData
	}
	return &Env{
		table:    table,
		enc:      enc,
		maxStart: table.Len() - 2,
	}, nil
}

// NumSteps returns the number of steps in one full episode (n-1 transitions
// for an n-row table).
func (env *Env) NumSteps() int { return env.table.Len() - 1 }

// Reset rewinds the episode to the first month and returns its encoded state.
func (env *Env) Reset() int {
	env.current = 0
	env.started = true
	return env.enc.EncodeRow(env.table.Row(0))
}

// Step advances one month. The reward is +1 when the action matches the true
// direction of the next row and -1 otherwise. done is true once the
// transition into the last row has been consumed; stepping again after that
// returns ErrEpisodeDone.
func (env *Env) Step(action domain.Action) (next int, reward float64, done bool, info StepInfo, err error) {
	if !env.started {
		return 0, 0, false, StepInfo{}, ErrNotStarted
	}
	if env.current > env.maxStart {
		return 0, 0, true, StepInfo{}, ErrEpisodeDone
	}
	if action < 0 || int(action) >= NumActions {
		return 0, 0, false, StepInfo{}, fmt.Errorf("invalid action %d", action)
	}

	t := env.current
	nextRow := env.table.Row(t + 1)

	trueDir := nextRow.Direction
	trueAction := env.enc.EncodeDirection(trueDir)

	reward = -1.0
	if int(action) == trueAction {
		reward = 1.0
	}

	env.current = t + 1
	next = env.enc.EncodeRow(nextRow)
	done = env.current > env.maxStart

	info = StepInfo{
		FromPeriod:    env.table.Row(t).Period,
		ToPeriod:      nextRow.Period,
		TrueDirection: trueDir,
		TrueLabel:     trueDir.Label(),
	}
	return next, reward, done, info, nil
}
