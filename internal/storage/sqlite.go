package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/treefrog-dev/frogup/internal/probe"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    dependency  TEXT    NOT NULL,
    status      TEXT    NOT NULL CHECK(status IN ('ready', 'unready')),
    response_ms INTEGER NOT NULL,
    attempts    INTEGER NOT NULL DEFAULT 1,
    error       TEXT    NOT NULL DEFAULT '',
    recorded_at TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_dependency ON outcomes(dependency);
CREATE INDEX IF NOT EXISTS idx_outcomes_recorded_at ON outcomes(recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_outcomes_dep_recorded ON outcomes(dependency, recorded_at DESC);
`

// Status values stored for an outcome.
const (
	StatusReady   = "ready"
	StatusUnready = "unready"
)

// Outcome is a stored probe or wait outcome.
type Outcome struct {
	ID         int64
	Dependency string
	Status     string
	ResponseMs int64
	Attempts   int
	Error      string
	RecordedAt time.Time
}

// DB wraps a SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func statusOf(r probe.Result) string {
	if r.Healthy {
		return StatusReady
	}
	return StatusUnready
}

// InsertOutcome persists the outcome of a probe or wait for a dependency.
func (d *DB) InsertOutcome(ctx context.Context, dependency string, r probe.Result, attempts int) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO outcomes (dependency, status, response_ms, attempts, error, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		dependency,
		statusOf(r),
		r.ResponseTime.Milliseconds(),
		attempts,
		r.Error,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting outcome for %q: %w", dependency, err)
	}
	return nil
}

// LatestOutcome returns the most recent outcome for the given dependency, or nil if none.
func (d *DB) LatestOutcome(ctx context.Context, dependency string) (*Outcome, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, dependency, status, response_ms, attempts, error, recorded_at FROM outcomes WHERE dependency = ? ORDER BY recorded_at DESC LIMIT 1`,
		dependency,
	)
	o, err := scanOutcome(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest outcome for %q: %w", dependency, err)
	}
	return o, nil
}

// DependencyHistory returns paginated outcome history for a dependency plus the total count.
func (d *DB) DependencyHistory(ctx context.Context, dependency string, limit, offset int) ([]Outcome, int, error) {
	var total int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outcomes WHERE dependency = ?`, dependency,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting outcomes for %q: %w", dependency, err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, dependency, status, response_ms, attempts, error, recorded_at FROM outcomes WHERE dependency = ? ORDER BY recorded_at DESC LIMIT ? OFFSET ?`,
		dependency, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying history for %q: %w", dependency, err)
	}
	defer rows.Close()

	outcomes, err := scanOutcomes(rows)
	if err != nil {
		return nil, 0, err
	}
	return outcomes, total, nil
}

// AllLatest returns the most recent outcome for each dependency.
func (d *DB) AllLatest(ctx context.Context) ([]Outcome, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, dependency, status, response_ms, attempts, error, recorded_at
		FROM outcomes
		WHERE id IN (
			SELECT MAX(id) FROM outcomes GROUP BY dependency
		)
		ORDER BY dependency
	`)
	if err != nil {
		return nil, fmt.Errorf("querying all latest: %w", err)
	}
	defer rows.Close()
	return scanOutcomes(rows)
}

// ReadinessPercent returns the percentage of "ready" outcomes in the last N
// outcomes for a dependency.
func (d *DB) ReadinessPercent(ctx context.Context, dependency string, last int) (float64, error) {
	var total int
	var readyCount sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(CASE WHEN status = 'ready' THEN 1 ELSE 0 END)
		FROM (
			SELECT status FROM outcomes WHERE dependency = ? ORDER BY recorded_at DESC LIMIT ?
		)
	`, dependency, last).Scan(&total, &readyCount)
	if err != nil {
		return 0, fmt.Errorf("calculating readiness for %q: %w", dependency, err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(readyCount.Int64) / float64(total) * 100, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOutcome(row scanner) (*Outcome, error) {
	var o Outcome
	var recordedAt string
	err := row.Scan(&o.ID, &o.Dependency, &o.Status, &o.ResponseMs, &o.Attempts, &o.Error, &recordedAt)
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		// Fallback to RFC3339 without sub-second precision.
		t, err = time.Parse(time.RFC3339, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing recorded_at %q: %w", recordedAt, err)
		}
	}
	o.RecordedAt = t
	return &o, nil
}

func scanOutcomes(rows *sql.Rows) ([]Outcome, error) {
	var outcomes []Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning outcome row: %w", err)
		}
		outcomes = append(outcomes, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outcome rows: %w", err)
	}
	return outcomes, nil
}
