package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/breathe-india/aqcover/internal/coverage"
	"github.com/breathe-india/aqcover/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	stations       INTEGER NOT NULL,
	points_loaded  INTEGER NOT NULL,
	points_skipped INTEGER NOT NULL,
	summary        TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS region_aggregates (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	region     TEXT NOT NULL,
	population REAL NOT NULL,
	far_pct    REAL,
	data       TEXT NOT NULL,
	PRIMARY KEY (run_id, region)
);

CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
CREATE INDEX IF NOT EXISTS idx_region_aggregates_run_id ON region_aggregates(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source model.SourceKind, stations int, diags model.Diagnostics) (*model.AnalysisRun, error) {
	run := &model.AnalysisRun{
		ID:            uuid.New().String(),
		Source:        source,
		Stations:      stations,
		PointsLoaded:  diags.Loaded,
		PointsSkipped: diags.Skipped,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, stations, points_loaded, points_skipped, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Source), run.Stations, run.PointsLoaded, run.PointsSkipped, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) SaveResults(ctx context.Context, runID string, regions map[string]coverage.RegionAggregate, summary coverage.Summary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET summary = ? WHERE id = ?`, string(summaryJSON), runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s", runID)
	}
	if err := checkRowsAffected(res, "run", runID); err != nil {
		return err
	}

	for _, agg := range regions {
		data, err := json.Marshal(agg)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal region %s", agg.Region)
		}
		farPct := sql.NullFloat64{Float64: agg.BandPct[coverage.BandFar], Valid: !isNaN(agg.BandPct[coverage.BandFar])}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO region_aggregates (run_id, region, population, far_pct, data)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (run_id, region) DO UPDATE SET
				population = excluded.population,
				far_pct = excluded.far_pct,
				data = excluded.data`,
			runID, agg.Region, agg.Population, farPct, string(data),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert region %s", agg.Region)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit results")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, stations, points_loaded, points_skipped, created_at
		 FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AnalysisRun, error) {
	query := `SELECT id, source, stations, points_loaded, points_skipped, created_at
	          FROM runs WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.AnalysisRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) GetRegions(ctx context.Context, runID string) (map[string]coverage.RegionAggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM region_aggregates WHERE run_id = ?`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get regions for run %s", runID)
	}
	defer rows.Close()

	out := make(map[string]coverage.RegionAggregate)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan region")
		}
		var agg coverage.RegionAggregate
		if err := json.Unmarshal([]byte(data), &agg); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal region")
		}
		out[agg.Region] = agg
	}
	return out, eris.Wrap(rows.Err(), "sqlite: regions iterate")
}

func (s *SQLiteStore) GetSummary(ctx context.Context, runID string) (*coverage.Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT summary FROM runs WHERE id = ?`, runID)

	var summaryJSON sql.NullString
	err := row.Scan(&summaryJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get summary for run %s", runID)
	}
	if !summaryJSON.Valid {
		return nil, ErrNotFound
	}

	var summary coverage.Summary
	if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal summary")
	}
	return &summary, nil
}

// helpers

// ErrNotFound reports a missing run or a run without saved results.
var ErrNotFound = eris.New("store: not found")

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.AnalysisRun, error) {
	var r model.AnalysisRun
	var source string

	err := row.Scan(&r.ID, &source, &r.Stations, &r.PointsLoaded, &r.PointsSkipped, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}
	r.Source = model.SourceKind(source)
	return &r, nil
}

func isNaN(v float64) bool { return v != v }
