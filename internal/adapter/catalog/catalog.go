// Package catalog records summary rows of every verify run in a SQLite
// database so that runs can be compared without re-reading array files.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// timeLayout is fixed-width so that computed_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Catalog wraps the SQL database connection.
type Catalog struct {
	db   *sql.DB
	path string
}

// Open creates or opens the catalog at path and initializes the schema.
func Open(ctx context.Context, path string) (*Catalog, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to catalog: %w", err)
	}

	c := &Catalog{db: db, path: path}
	if err := c.configure(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure catalog: %w", err)
	}
	if err := c.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return c, nil
}

// Path returns the database file path.
func (c *Catalog) Path() string { return c.path }

// Close closes the database.
func (c *Catalog) Close() error { return c.db.Close() }

func (c *Catalog) configure(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := c.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (c *Catalog) createSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS summaries (
		run_id TEXT NOT NULL,
		accumulation INTEGER NOT NULL,
		system TEXT NOT NULL,
		threshold REAL NOT NULL,
		statistic TEXT NOT NULL,
		lead_time INTEGER NOT NULL,
		valid_days INTEGER NOT NULL DEFAULT 0,
		original REAL,
		ci_lower REAL,
		ci_upper REAL,
		bootstrap_mean REAL,
		bootstrap_stddev REAL,
		confidence_level REAL NOT NULL,
		repetitions INTEGER NOT NULL,
		computed_at TEXT NOT NULL,
		PRIMARY KEY (run_id, accumulation, system, threshold, statistic, lead_time)
	);
	CREATE INDEX IF NOT EXISTS idx_summaries_key ON summaries(accumulation, system, threshold, statistic, computed_at);
	`
	_, err := c.db.ExecContext(ctx, query)
	return err
}

// Record inserts rows in a single transaction. Re-recording a row of the same
// run replaces it.
func (c *Catalog) Record(ctx context.Context, rows []domain.SummaryRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO summaries (
		run_id, accumulation, system, threshold, statistic, lead_time, valid_days,
		original, ci_lower, ci_upper, bootstrap_mean, bootstrap_stddev,
		confidence_level, repetitions, computed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.RunID, r.Accumulation, r.System, r.Threshold, string(r.Statistic), r.LeadTime, r.ValidDays,
			nullable(r.Original), nullable(r.Lower), nullable(r.Upper), nullable(r.Mean), nullable(r.StdDev),
			r.Level, r.Repetitions, r.ComputedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("insert %s/%s/%s lead %d: %w",
				r.System, domain.FormatThreshold(r.Threshold), r.Statistic, r.LeadTime, err)
		}
	}
	return tx.Commit()
}

// Latest returns the rows of the most recent run recorded for key, ordered
// by lead time. It returns no rows when the key was never recorded.
func (c *Catalog) Latest(ctx context.Context, key domain.SummaryKey) ([]domain.SummaryRow, error) {
	rows, err := c.db.QueryContext(ctx, `
	SELECT run_id, accumulation, system, threshold, statistic, lead_time, valid_days,
		original, ci_lower, ci_upper, bootstrap_mean, bootstrap_stddev,
		confidence_level, repetitions, computed_at
	FROM summaries
	WHERE accumulation = ? AND system = ? AND threshold = ? AND statistic = ?
		AND run_id = (
			SELECT run_id FROM summaries
			WHERE accumulation = ? AND system = ? AND threshold = ? AND statistic = ?
			ORDER BY computed_at DESC LIMIT 1
		)
	ORDER BY lead_time`,
		key.Accumulation, key.System, key.Threshold, string(key.Statistic),
		key.Accumulation, key.System, key.Threshold, string(key.Statistic),
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", key, err)
	}
	defer rows.Close()

	var out []domain.SummaryRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Runs lists run ids with the time they were last written, newest first.
func (c *Catalog) Runs(ctx context.Context) ([]Run, error) {
	rows, err := c.db.QueryContext(ctx, `
	SELECT run_id, MAX(computed_at), COUNT(*) FROM summaries
	GROUP BY run_id ORDER BY MAX(computed_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var at string
		if err := rows.Scan(&r.ID, &at, &r.Rows); err != nil {
			return nil, err
		}
		if r.ComputedAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run is one verify invocation.
type Run struct {
	ID         string
	ComputedAt time.Time
	Rows       int
}

func scanRow(rows *sql.Rows) (domain.SummaryRow, error) {
	var (
		r                                  domain.SummaryRow
		stat, at                           string
		original, lower, upper, mean, sdev sql.NullFloat64
	)
	err := rows.Scan(&r.RunID, &r.Accumulation, &r.System, &r.Threshold, &stat, &r.LeadTime, &r.ValidDays,
		&original, &lower, &upper, &mean, &sdev, &r.Level, &r.Repetitions, &at)
	if err != nil {
		return domain.SummaryRow{}, err
	}
	r.Statistic = domain.Statistic(stat)
	r.Original, r.Lower, r.Upper = value(original), value(lower), value(upper)
	r.Mean, r.StdDev = value(mean), value(sdev)
	if r.ComputedAt, err = time.Parse(timeLayout, at); err != nil {
		return domain.SummaryRow{}, fmt.Errorf("computed_at %q: %w", at, err)
	}
	return r, nil
}

// nullable stores NaN as NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func value(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}
