package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"maru/internal/domain"
)

// Compile-time interface checks.
var _ PanelStore = (*ParquetStore)(nil)
var _ ScenarioStore = (*ParquetStore)(nil)

// ParquetStore implements PanelStore and ScenarioStore using Parquet files
// on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// PanelRecord is the Parquet schema for monthly feature rows.
type PanelRecord struct {
	Period        string  `parquet:"period"` // YYYY-MM
	MeanPrice     float64 `parquet:"mean_price"`
	DealCount     int32   `parquet:"deal_count"`
	PctChange     float64 `parquet:"pct_change"`
	Direction     int32   `parquet:"direction"`
	BaseRate      float64 `parquet:"base_rate"`
	HasRate       bool    `parquet:"has_rate"`
	Population    float64 `parquet:"population"`
	HasPopulation bool    `parquet:"has_population"`
	RateLevel     int32   `parquet:"rate_level"`
	PopTrend      int32   `parquet:"pop_trend"`
}

// ScenarioRecord is the Parquet schema for forecast scenario steps.
type ScenarioRecord struct {
	RunID         string  `parquet:"run_id"`
	Step          int32   `parquet:"step"`
	Period        string  `parquet:"period"` // YYYY-MM
	Direction     int32   `parquet:"direction"`
	AppliedReturn float64 `parquet:"applied_return"`
	Price         float64 `parquet:"price"`
}

// ---------------------------------------------------------------------------
// PanelStore implementation
// ---------------------------------------------------------------------------

// WritePanel writes the monthly rows for a selection, merging with any
// existing file by period. Layout:
//
//	<DataDir>/panels/<region>/<complex>/<area>.parquet
func (s *ParquetStore) WritePanel(_ context.Context, sel domain.Selection, rows []domain.MonthlyRow) error {
	if len(rows) == 0 {
		return nil
	}

	records := make([]PanelRecord, 0, len(rows))
	for i := range rows {
		records = append(records, panelRecordFrom(&rows[i]))
	}

	path := s.panelPath(sel)
	existing, _ := readParquetFile[PanelRecord](path)
	merged := mergePanelRecords(existing, records)

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing panel for %s/%s/%.1f: %w", sel.Region, sel.Complex, sel.Area, err)
	}
	return nil
}

// ReadPanel reads the monthly rows for a selection, period-ordered.
func (s *ParquetStore) ReadPanel(_ context.Context, sel domain.Selection) ([]domain.MonthlyRow, error) {
	records, err := readParquetFile[PanelRecord](s.panelPath(sel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	rows := make([]domain.MonthlyRow, 0, len(records))
	for i := range records {
		row, err := records[i].toRow()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func panelRecordFrom(row *domain.MonthlyRow) PanelRecord {
	return PanelRecord{
		Period:        row.Period.String(),
		MeanPrice:     row.MeanPrice,
		DealCount:     int32(row.DealCount),
		PctChange:     row.PctChange,
		Direction:     int32(row.Direction),
		BaseRate:      row.BaseRate,
		HasRate:       row.HasRate,
		Population:    row.Population,
		HasPopulation: row.HasPopulation,
		RateLevel:     int32(row.RateLevel),
		PopTrend:      int32(row.PopTrend),
	}
}

func (r *PanelRecord) toRow() (domain.MonthlyRow, error) {
	p, err := domain.ParsePeriod(r.Period)
	if err != nil {
		return domain.MonthlyRow{}, fmt.Errorf("stored panel period: %w", err)
	}
	return domain.MonthlyRow{
		Period:        p,
		MeanPrice:     r.MeanPrice,
		DealCount:     int(r.DealCount),
		PctChange:     r.PctChange,
		Direction:     domain.Direction(r.Direction),
		BaseRate:      r.BaseRate,
		HasRate:       r.HasRate,
		Population:    r.Population,
		HasPopulation: r.HasPopulation,
		RateLevel:     domain.RateLevel(r.RateLevel),
		PopTrend:      domain.PopTrend(r.PopTrend),
	}, nil
}

// ---------------------------------------------------------------------------
// ScenarioStore implementation
// ---------------------------------------------------------------------------

// WriteScenario writes the scenario steps of a run. Layout:
//
//	<DataDir>/scenarios/<runID>.parquet
func (s *ParquetStore) WriteScenario(_ context.Context, runID string, steps []ScenarioStep) error {
	if len(steps) == 0 {
		return nil
	}

	records := make([]ScenarioRecord, 0, len(steps))
	for _, st := range steps {
		records = append(records, ScenarioRecord{
			RunID:         runID,
			Step:          int32(st.Step),
			Period:        st.Period.String(),
			Direction:     int32(st.Direction),
			AppliedReturn: st.AppliedReturn,
			Price:         st.Price,
		})
	}

	if err := writeParquetFile(s.scenarioPath(runID), records); err != nil {
		return fmt.Errorf("writing scenario for run %s: %w", runID, err)
	}
	return nil
}

// ReadScenario returns the scenario steps for a run, step-ordered.
func (s *ParquetStore) ReadScenario(_ context.Context, runID string) ([]ScenarioStep, error) {
	records, err := readParquetFile[ScenarioRecord](s.scenarioPath(runID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	steps := make([]ScenarioStep, 0, len(records))
	for i := range records {
		r := &records[i]
		p, err := domain.ParsePeriod(r.Period)
		if err != nil {
			return nil, fmt.Errorf("stored scenario period: %w", err)
		}
		steps = append(steps, ScenarioStep{
			Step:          int(r.Step),
			Period:        p,
			Direction:     domain.Direction(r.Direction),
			AppliedReturn: r.AppliedReturn,
			Price:         r.Price,
		})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Step < steps[j].Step })
	return steps, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// panelPath returns the filesystem path for a selection's panel file.
// Layout: <dataDir>/panels/<region>/<complex>/<area>.parquet
func (s *ParquetStore) panelPath(sel domain.Selection) string {
	area := fmt.Sprintf("%.1f", sel.Area)
	return filepath.Join(s.DataDir, "panels",
		pathSegment(sel.Region), pathSegment(sel.Complex), area+".parquet")
}

// scenarioPath returns the filesystem path for a run's scenario file.
// Layout: <dataDir>/scenarios/<runID>.parquet
func (s *ParquetStore) scenarioPath(runID string) string {
	return filepath.Join(s.DataDir, "scenarios", runID+".parquet")
}

// pathSegment makes a name safe to use as a directory component.
func pathSegment(name string) string {
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	return strings.ReplaceAll(name, " ", "_")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergePanelRecords deduplicates panel records by period, preferring new
// records over existing ones. Results are sorted by period.
func mergePanelRecords(existing, incoming []PanelRecord) []PanelRecord {
	seen := make(map[string]PanelRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Period] = r
	}
	for _, r := range incoming {
		seen[r.Period] = r
	}

	merged := make([]PanelRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Period < merged[j].Period
	})
	return merged
}
