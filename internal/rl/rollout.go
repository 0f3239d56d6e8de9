package rl

import (
	"fmt"

	"maru/internal/domain"
)

// StepRecord is one entry of the greedy evaluation trace.
type StepRecord struct {
	Step          int
	FromPeriod    domain.Period
	ToPeriod      domain.Period
	Action        domain.Action
	TrueDirection domain.Direction
	Reward        float64
}

// RunGreedy replays one full episode under the exploration-free policy
// (argmax over the learned table, first-maximum tie break) and records every
// step. maxSteps is a safety cap on the episode length.
func RunGreedy(env *Env, q *QTable, maxSteps int) (total float64, steps int, trace []StepRecord, err error) {
	state := env.Reset()
	trace = make([]StepRecord, 0, env.NumSteps())

	for steps < maxSteps {
		action := q.Best(state)

		next, reward, done, info, stepErr := env.Step(action)
		if stepErr != nil {
			return 0, 0, nil, fmt.Errorf("greedy rollout step %d: %w", steps, stepErr)
		}

		trace = append(trace, StepRecord{
			Step:          steps,
			FromPeriod:    info.FromPeriod,
			ToPeriod:      info.ToPeriod,
			Action:        action,
			TrueDirection: info.TrueDirection,
			Reward:        reward,
		})

		total += reward
		state = next
		steps++

		if done {
			break
		}
	}

	return total, steps, trace, nil
}

// Accuracy computes correct / (correct + wrong) over the nonzero-reward
// steps of a trace. Rewards are ±1 by construction, so every step counts;
// the guard keeps the ratio well-defined for an empty trace.
func Accuracy(trace []StepRecord) float64 {
	correct, wrong := 0, 0
	for _, rec := range trace {
		switch {
		case rec.Reward > 0:
			correct++
		case rec.Reward < 0:
			wrong++
		}
	}
	if correct+wrong == 0 {
		return 0
	}
	return float64(correct) / float64(correct+wrong)
}
