package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"maru/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ TransactionStore = (*SQLiteStore)(nil)
var _ MacroStore = (*SQLiteStore)(nil)
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements TransactionStore, MacroStore, and RunStore backed
// by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	region  TEXT    NOT NULL,
	complex TEXT    NOT NULL,
	area    REAL    NOT NULL,
	year    INTEGER NOT NULL,
	month   INTEGER NOT NULL,
	day     INTEGER NOT NULL,
	price   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_selection
	ON transactions (region, complex, area);

CREATE TABLE IF NOT EXISTS base_rates (
	period TEXT PRIMARY KEY,
	rate   REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS population (
	region     TEXT NOT NULL,
	period     TEXT NOT NULL,
	population REAL NOT NULL,
	PRIMARY KEY (region, period)
);

CREATE TABLE IF NOT EXISTS runs (
	id                  TEXT PRIMARY KEY,
	region              TEXT    NOT NULL,
	complex             TEXT    NOT NULL,
	area                REAL    NOT NULL,
	episodes            INTEGER NOT NULL,
	total_reward        REAL    NOT NULL,
	steps               INTEGER NOT NULL,
	correct             INTEGER NOT NULL,
	wrong               INTEGER NOT NULL,
	accuracy            REAL    NOT NULL,
	last_period         TEXT    NOT NULL,
	next_period         TEXT    NOT NULL,
	predicted_direction INTEGER NOT NULL,
	created_at          TEXT    NOT NULL
);
`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// TransactionStore implementation
// ---------------------------------------------------------------------------

// WriteTransactions inserts a batch of transactions in a single database
// transaction.
func (s *SQLiteStore) WriteTransactions(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO transactions (region, complex, area, year, month, day, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range txs {
		t := &txs[i]
		if _, err := stmt.ExecContext(ctx, t.Region, t.Complex, t.Area, t.Year, t.Month, t.Day, t.Price); err != nil {
			return fmt.Errorf("inserting transaction %s/%s %d-%02d-%02d: %w",
				t.Region, t.Complex, t.Year, t.Month, t.Day, err)
		}
	}

	return dbtx.Commit()
}

// ReadTransactions returns all transactions for one selection, ordered by
// deal date.
func (s *SQLiteStore) ReadTransactions(ctx context.Context, sel domain.Selection) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT region, complex, area, year, month, day, price
		FROM transactions
		WHERE region = ? AND complex = ? AND area = ?
		ORDER BY year, month, day`,
		sel.Region, sel.Complex, sel.Area)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.Region, &t.Complex, &t.Area, &t.Year, &t.Month, &t.Day, &t.Price); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ListRegions returns all distinct districts, sorted.
func (s *SQLiteStore) ListRegions(ctx context.Context) ([]string, error) {
	return s.listStrings(ctx, `SELECT DISTINCT region FROM transactions ORDER BY region`)
}

// ListComplexes returns all distinct complexes within a district, sorted.
func (s *SQLiteStore) ListComplexes(ctx context.Context, region string) ([]string, error) {
	return s.listStrings(ctx, `
		SELECT DISTINCT complex FROM transactions
		WHERE region = ? ORDER BY complex`, region)
}

// ListAreas returns all distinct unit sizes for a complex, ascending.
func (s *SQLiteStore) ListAreas(ctx context.Context, region, complex string) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT area FROM transactions
		WHERE region = ? AND complex = ? ORDER BY area`, region, complex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []float64
	for rows.Next() {
		var a float64
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

func (s *SQLiteStore) listStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// MacroStore implementation
// ---------------------------------------------------------------------------

// WriteRates upserts the monthly base-rate series.
func (s *SQLiteStore) WriteRates(ctx context.Context, rates map[domain.Period]float64) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO base_rates (period, rate) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for p, r := range rates {
		if _, err := stmt.ExecContext(ctx, p.String(), r); err != nil {
			return fmt.Errorf("upserting rate for %s: %w", p, err)
		}
	}
	return dbtx.Commit()
}

// ReadRates returns the full base-rate series.
func (s *SQLiteStore) ReadRates(ctx context.Context) (map[domain.Period]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT period, rate FROM base_rates`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.Period]float64)
	for rows.Next() {
		var ps string
		var r float64
		if err := rows.Scan(&ps, &r); err != nil {
			return nil, err
		}
		p, err := domain.ParsePeriod(ps)
		if err != nil {
			return nil, fmt.Errorf("stored rate period: %w", err)
		}
		out[p] = r
	}
	return out, rows.Err()
}

// WritePopulation upserts the monthly population series for a district.
func (s *SQLiteStore) WritePopulation(ctx context.Context, region string, pops map[domain.Period]float64) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO population (region, period, population) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for p, v := range pops {
		if _, err := stmt.ExecContext(ctx, region, p.String(), v); err != nil {
			return fmt.Errorf("upserting population for %s/%s: %w", region, p, err)
		}
	}
	return dbtx.Commit()
}

// ReadPopulation returns the population series for a district.
func (s *SQLiteStore) ReadPopulation(ctx context.Context, region string) (map[domain.Period]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT period, population FROM population WHERE region = ?`, region)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.Period]float64)
	for rows.Next() {
		var ps string
		var v float64
		if err := rows.Scan(&ps, &v); err != nil {
			return nil, err
		}
		p, err := domain.ParsePeriod(ps)
		if err != nil {
			return nil, fmt.Errorf("stored population period: %w", err)
		}
		out[p] = v
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun inserts a new run summary.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.RunSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, region, complex, area, episodes, total_reward, steps,
			correct, wrong, accuracy, last_period, next_period,
			predicted_direction, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Selection.Region, run.Selection.Complex, run.Selection.Area,
		run.Episodes, run.TotalReward, run.Steps,
		run.Correct, run.Wrong, run.Accuracy,
		run.LastPeriod.String(), run.NextPeriod.String(),
		int(run.PredictedDirection),
		run.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, region, complex, area, episodes, total_reward, steps,
		       correct, wrong, accuracy, last_period, next_period,
		       predicted_direction, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		var lastPeriod, nextPeriod, createdAt string
		var predicted int
		if err := rows.Scan(
			&r.ID,
			&r.Selection.Region, &r.Selection.Complex, &r.Selection.Area,
			&r.Episodes, &r.TotalReward, &r.Steps,
			&r.Correct, &r.Wrong, &r.Accuracy,
			&lastPeriod, &nextPeriod, &predicted, &createdAt,
		); err != nil {
			return nil, err
		}
		if r.LastPeriod, err = domain.ParsePeriod(lastPeriod); err != nil {
			return nil, fmt.Errorf("stored run last period: %w", err)
		}
		if r.NextPeriod, err = domain.ParsePeriod(nextPeriod); err != nil {
			return nil, fmt.Errorf("stored run next period: %w", err)
		}
		r.PredictedDirection = domain.Direction(predicted)
		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("stored run created_at: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
