package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"maru/internal/domain"
	"maru/internal/store"
)

var _ Ingestor = (*RateIngestor)(nil)
var _ Ingestor = (*PopulationIngestor)(nil)

// ---------------------------------------------------------------------------
// Base rate: daily series collapsed to monthly means
// ---------------------------------------------------------------------------

var rateRenames = map[string]string{
	"연":    "year",
	"월":    "month",
	"일":    "day",
	"기준금리": "base_rate",
}

// RateIngestor loads the daily central-bank base-rate series from CSV and
// persists the monthly mean per period.
type RateIngestor struct {
	path   string
	store  store.MacroStore
	logger *slog.Logger
}

// NewRateIngestor creates a RateIngestor for the given CSV file and store.
func NewRateIngestor(path string, st store.MacroStore, logger *slog.Logger) *RateIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateIngestor{path: path, store: st, logger: logger}
}

// Name returns the ingestor identifier.
func (g *RateIngestor) Name() string { return "base-rate" }

// Run loads the CSV, aggregates to monthly means, and persists the series.
func (g *RateIngestor) Run(ctx context.Context) error {
	rates, err := LoadMonthlyRates(g.path)
	if err != nil {
		return fmt.Errorf("loading base rates: %w", err)
	}
	if err := g.store.WriteRates(ctx, rates); err != nil {
		return fmt.Errorf("writing base rates: %w", err)
	}
	g.logger.Info("base rates ingested", "path", g.path, "months", len(rates))
	return nil
}

// LoadMonthlyRates parses a daily base-rate CSV and collapses it to a
// monthly mean per period.
func LoadMonthlyRates(path string) (map[domain.Period]float64, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	idx := columnIndex(header, rateRenames)
	for _, col := range []string{"year", "month", "base_rate"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	sums := make(map[domain.Period]float64)
	counts := make(map[domain.Period]int)
	for _, row := range rows {
		year, err1 := parseInt(row[idx["year"]])
		month, err2 := parseInt(row[idx["month"]])
		rate, err3 := parseFloat(row[idx["base_rate"]])
		if err1 != nil || err2 != nil || err3 != nil || month < 1 || month > 12 {
			continue
		}
		p := domain.Period{Year: int(year), Month: int(month)}
		sums[p] += rate
		counts[p]++
	}

	out := make(map[domain.Period]float64, len(sums))
	for p, sum := range sums {
		out[p] = sum / float64(counts[p])
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Population: quarterly counts expanded to months
// ---------------------------------------------------------------------------

// PopulationIngestor loads quarterly district population counts from CSV,
// expands each quarter to its three months, and persists the per-district
// series.
type PopulationIngestor struct {
	path   string
	store  store.MacroStore
	logger *slog.Logger
}

// NewPopulationIngestor creates a PopulationIngestor for the given CSV file
// and store.
func NewPopulationIngestor(path string, st store.MacroStore, logger *slog.Logger) *PopulationIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PopulationIngestor{path: path, store: st, logger: logger}
}

// Name returns the ingestor identifier.
func (g *PopulationIngestor) Name() string { return "population" }

// Run loads the CSV and persists one monthly series per district.
func (g *PopulationIngestor) Run(ctx context.Context) error {
	byRegion, err := LoadMonthlyPopulation(g.path)
	if err != nil {
		return fmt.Errorf("loading population: %w", err)
	}
	for region, pops := range byRegion {
		if err := g.store.WritePopulation(ctx, region, pops); err != nil {
			return fmt.Errorf("writing population for %s: %w", region, err)
		}
	}
	g.logger.Info("population ingested", "path", g.path, "districts", len(byRegion))
	return nil
}

// LoadMonthlyPopulation parses a quarterly population CSV. The layout has
// one row per (district, sex) pair and one column per quarter, headed
// "YYYY Q/4". Only the combined-sex rows are used, and each quarter's count
// is repeated for its three months. Duplicate (district, month) cells are
// averaged.
func LoadMonthlyPopulation(path string) (map[string]map[domain.Period]float64, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(header) < 3 {
		return nil, fmt.Errorf("%s: expected district, sex, and quarter columns", path)
	}

	// Quarter columns start after the district and sex columns.
	type quarterCol struct {
		col    int
		year   int
		months []int
	}
	var quarters []quarterCol
	for i := 2; i < len(header); i++ {
		year, q, ok := parseQuarterHeader(header[i])
		if !ok {
			continue
		}
		first := (q-1)*3 + 1
		quarters = append(quarters, quarterCol{
			col:    i,
			year:   year,
			months: []int{first, first + 1, first + 2},
		})
	}
	if len(quarters) == 0 {
		return nil, fmt.Errorf("%s: no quarter columns found", path)
	}

	sums := make(map[string]map[domain.Period]float64)
	counts := make(map[string]map[domain.Period]int)
	for _, row := range rows {
		if len(row) < 2 || strings.TrimSpace(row[1]) != "합계" {
			continue
		}
		region := strings.TrimSpace(row[0])
		if region == "" {
			continue
		}

		for _, qc := range quarters {
			if qc.col >= len(row) {
				continue
			}
			pop, err := parseFloat(row[qc.col])
			if err != nil {
				continue
			}
			if sums[region] == nil {
				sums[region] = make(map[domain.Period]float64)
				counts[region] = make(map[domain.Period]int)
			}
			for _, m := range qc.months {
				p := domain.Period{Year: qc.year, Month: m}
				sums[region][p] += pop
				counts[region][p]++
			}
		}
	}

	out := make(map[string]map[domain.Period]float64, len(sums))
	for region, series := range sums {
		monthly := make(map[domain.Period]float64, len(series))
		for p, sum := range series {
			monthly[p] = sum / float64(counts[region][p])
		}
		out[region] = monthly
	}
	return out, nil
}

// parseQuarterHeader parses headers like "2023 1/4" into a year and quarter.
func parseQuarterHeader(s string) (year, quarter int, ok bool) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return 0, 0, false
	}
	y, err := parseInt(fields[0])
	if err != nil {
		return 0, 0, false
	}
	qParts := strings.SplitN(fields[1], "/", 2)
	q, err := parseInt(qParts[0])
	if err != nil || q < 1 || q > 4 {
		return 0, 0, false
	}
	return int(y), int(q), true
}
