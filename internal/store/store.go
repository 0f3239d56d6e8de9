// Package store defines storage interfaces for persisting and retrieving
// domain objects: raw transactions, macro series, monthly panels, forecast
// scenarios, and training run summaries.
package store

import (
	"context"

	"maru/internal/domain"
)

// TransactionStore persists and retrieves raw apartment sale records and the
// selection hierarchy derived from them.
type TransactionStore interface {
	// WriteTransactions persists a batch of transactions.
	WriteTransactions(ctx context.Context, txs []domain.Transaction) error

	// ReadTransactions returns all transactions for one selection, ordered
	// by deal date.
	ReadTransactions(ctx context.Context, sel domain.Selection) ([]domain.Transaction, error)

	// ListRegions returns all distinct districts with transactions.
	ListRegions(ctx context.Context) ([]string, error)

	// ListComplexes returns all distinct complexes within a district.
	ListComplexes(ctx context.Context, region string) ([]string, error)

	// ListAreas returns all distinct unit sizes for a complex, ascending.
	ListAreas(ctx context.Context, region, complex string) ([]float64, error)
}

// MacroStore persists and retrieves the monthly macro series.
type MacroStore interface {
	// WriteRates persists the monthly mean base-rate series.
	WriteRates(ctx context.Context, rates map[domain.Period]float64) error

	// ReadRates returns the full base-rate series.
	ReadRates(ctx context.Context) (map[domain.Period]float64, error)

	// WritePopulation persists the monthly population series for a district.
	WritePopulation(ctx context.Context, region string, pops map[domain.Period]float64) error

	// ReadPopulation returns the population series for a district.
	ReadPopulation(ctx context.Context, region string) (map[domain.Period]float64, error)
}

// RunStore persists and retrieves training run summaries.
type RunStore interface {
	// SaveRun inserts a new run summary.
	SaveRun(ctx context.Context, run *domain.RunSummary) error

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

// PanelStore persists and retrieves derived monthly feature panels.
type PanelStore interface {
	// WritePanel persists the monthly rows for a selection, merging with any
	// existing rows by period.
	WritePanel(ctx context.Context, sel domain.Selection, rows []domain.MonthlyRow) error

	// ReadPanel returns the monthly rows for a selection, period-ordered.
	ReadPanel(ctx context.Context, sel domain.Selection) ([]domain.MonthlyRow, error)
}

// ScenarioStep is one month of a persisted forecast scenario.
type ScenarioStep struct {
	Step          int
	Period        domain.Period
	Direction     domain.Direction
	AppliedReturn float64
	Price         float64
}

// ScenarioStore persists and retrieves forecast scenarios keyed by run ID.
type ScenarioStore interface {
	// WriteScenario persists the scenario steps of a run.
	WriteScenario(ctx context.Context, runID string, steps []ScenarioStep) error

	// ReadScenario returns the scenario steps for a run, step-ordered.
	ReadScenario(ctx context.Context, runID string) ([]ScenarioStep, error)
}
