// Package engine coordinates one training run end to end: building the
// environment, running Q-learning, evaluating the greedy policy, and
// producing the forward forecast.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"maru/internal/domain"
	"maru/internal/forecast"
	"maru/internal/rl"
	"maru/internal/store"
)

// Result bundles everything one training run produces.
type Result struct {
	Run      domain.RunSummary
	Q        *rl.QTable
	Rewards  []float64
	Trace    []rl.StepRecord
	Forecast forecast.OneStepResult
	Scenario []forecast.ScenarioStep
}

// Trainer runs training jobs and persists their outcomes. Each store is
// optional; a nil store skips that persistence step.
type Trainer struct {
	panels    store.PanelStore
	runs      store.RunStore
	scenarios store.ScenarioStore
	logger    *slog.Logger
}

// NewTrainer creates a Trainer wired with the given stores.
func NewTrainer(panels store.PanelStore, runs store.RunStore, scenarios store.ScenarioStore, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{
		panels:    panels,
		runs:      runs,
		scenarios: scenarios,
		logger:    logger,
	}
}

// Run loads the persisted panel for the selection and trains on it.
func (t *Trainer) Run(ctx context.Context, sel domain.Selection, cfg rl.TrainConfig, horizon int) (*Result, error) {
	if t.panels == nil {
		return nil, fmt.Errorf("no panel store configured")
	}

	rows, err := t.panels.ReadPanel(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("reading panel for %s/%s: %w", sel.Region, sel.Complex, err)
	}
	table, err := domain.NewFeatureTable(rows)
	if err != nil {
		return nil, err
	}
	return t.RunTable(ctx, sel, table, cfg, horizon)
}

// RunTable trains on an already-built feature table. It returns the learned
// policy, the evaluation trace, and the forecast, and persists the panel,
// run summary, and scenario when stores are attached. Persisting the panel
// here is what makes later Run calls on the same selection work.
func (t *Trainer) RunTable(ctx context.Context, sel domain.Selection, table domain.FeatureTable, cfg rl.TrainConfig, horizon int) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if horizon <= 0 {
		horizon = forecast.DefaultHorizon
	}

	enc := rl.NewEncoder()
	env, err := rl.NewEnv(table, enc)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	t.logger.Info("training started",
		"run_id", runID,
		"region", sel.Region,
		"complex", sel.Complex,
		"area", sel.Area,
		"months", table.Len(),
		"episodes", cfg.Episodes)

	start := time.Now()
	q, rewards, err := rl.Train(env, cfg)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total, steps, trace, err := rl.RunGreedy(env, q, env.NumSteps())
	if err != nil {
		return nil, fmt.Errorf("evaluating policy: %w", err)
	}
	accuracy := rl.Accuracy(trace)

	oneStep, err := forecast.OneStep(table, q, enc)
	if err != nil {
		return nil, fmt.Errorf("one-step forecast: %w", err)
	}
	scenario, err := forecast.Horizon(table, q, enc, horizon)
	if err != nil {
		return nil, fmt.Errorf("scenario forecast: %w", err)
	}

	correct, wrong := 0, 0
	for _, rec := range trace {
		if rec.Action.Direction() == rec.TrueDirection {
			correct++
		} else {
			wrong++
		}
	}

	result := &Result{
		Run: domain.RunSummary{
			ID:                 runID,
			Selection:          sel,
			Episodes:           cfg.Episodes,
			TotalReward:        total,
			Steps:              steps,
			Correct:            correct,
			Wrong:              wrong,
			Accuracy:           accuracy,
			LastPeriod:         oneStep.LastPeriod,
			NextPeriod:         oneStep.NextPeriod,
			PredictedDirection: oneStep.Direction,
			CreatedAt:          time.Now().UTC(),
		},
		Q:        q,
		Rewards:  rewards,
		Trace:    trace,
		Forecast: oneStep,
		Scenario: scenario,
	}

	t.logger.Info("training finished",
		"run_id", runID,
		"duration", time.Since(start).String(),
		"total_reward", total,
		"accuracy", accuracy,
		"next_period", oneStep.NextPeriod.String(),
		"prediction", oneStep.Label)

	if err := t.persist(ctx, sel, table, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (t *Trainer) persist(ctx context.Context, sel domain.Selection, table domain.FeatureTable, res *Result) error {
	if t.panels != nil {
		if err := t.panels.WritePanel(ctx, sel, table.Rows()); err != nil {
			return fmt.Errorf("saving panel for %s/%s: %w", sel.Region, sel.Complex, err)
		}
	}
	if t.runs != nil {
		if err := t.runs.SaveRun(ctx, &res.Run); err != nil {
			return fmt.Errorf("saving run %s: %w", res.Run.ID, err)
		}
	}
	if t.scenarios != nil {
		steps := make([]store.ScenarioStep, 0, len(res.Scenario))
		for _, st := range res.Scenario {
			steps = append(steps, store.ScenarioStep{
				Step:          st.Step,
				Period:        st.Period,
				Direction:     st.Direction,
				AppliedReturn: st.AppliedReturn,
				Price:         st.Price,
			})
		}
		if err := t.scenarios.WriteScenario(ctx, res.Run.ID, steps); err != nil {
			return fmt.Errorf("saving scenario for run %s: %w", res.Run.ID, err)
		}
	}
	return nil
}
