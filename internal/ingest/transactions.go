package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"maru/internal/domain"
	"maru/internal/store"
)

var _ Ingestor = (*TransactionIngestor)(nil)

// txRenames maps source column headers to canonical names.
var txRenames = map[string]string{
	"구":        "region",
	"gu":       "region",
	"아파트명":     "complex",
	"apt_name": "complex",
	"평형":       "area",
	"계약년":      "year",
	"계약월":      "month",
	"계약일":      "day",
	"거래금액(만원)": "price",
	"price_10k": "price",
}

// TransactionIngestor loads apartment sale records from a CSV export into a
// transaction store.
type TransactionIngestor struct {
	path   string
	store  store.TransactionStore
	logger *slog.Logger
}

// NewTransactionIngestor creates a TransactionIngestor for the given CSV
// file and store.
func NewTransactionIngestor(path string, st store.TransactionStore, logger *slog.Logger) *TransactionIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionIngestor{path: path, store: st, logger: logger}
}

// Name returns the ingestor identifier.
func (g *TransactionIngestor) Name() string { return "transactions" }

// Run loads the CSV and persists all parseable records. Rows with malformed
// numeric cells are skipped, matching the tolerant loading of the source
// exports.
func (g *TransactionIngestor) Run(ctx context.Context) error {
	txs, skipped, err := LoadTransactions(g.path)
	if err != nil {
		return fmt.Errorf("loading transactions: %w", err)
	}
	if err := g.store.WriteTransactions(ctx, txs); err != nil {
		return fmt.Errorf("writing transactions: %w", err)
	}
	g.logger.Info("transactions ingested", "path", g.path, "rows", len(txs), "skipped", skipped)
	return nil
}

// LoadTransactions parses apartment sale records from a CSV file. It returns
// the parsed records and the number of rows skipped as malformed.
func LoadTransactions(path string) ([]domain.Transaction, int, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, 0, err
	}

	idx := columnIndex(header, txRenames)
	for _, col := range []string{"region", "complex", "area", "year", "month", "day", "price"} {
		if _, ok := idx[col]; !ok {
			return nil, 0, fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	var txs []domain.Transaction
	skipped := 0
	for _, row := range rows {
		tx, ok := parseTransaction(row, idx)
		if !ok {
			skipped++
			continue
		}
		txs = append(txs, tx)
	}
	return txs, skipped, nil
}

func parseTransaction(row []string, idx map[string]int) (domain.Transaction, bool) {
	cell := func(name string) string {
		i := idx[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	area, err1 := parseFloat(cell("area"))
	year, err2 := parseInt(cell("year"))
	month, err3 := parseInt(cell("month"))
	day, err4 := parseInt(cell("day"))
	price, err5 := parseInt(cell("price"))

	region := cell("region")
	complexName := cell("complex")
	if region == "" || complexName == "" ||
		err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil ||
		month < 1 || month > 12 {
		return domain.Transaction{}, false
	}

	return domain.Transaction{
		Region:  region,
		Complex: complexName,
		Area:    area,
		Year:    int(year),
		Month:   int(month),
		Day:     int(day),
		Price:   price,
	}, true
}
