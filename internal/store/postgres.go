package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/breathe-india/aqcover/internal/coverage"
	"github.com/breathe-india/aqcover/internal/db"
	"github.com/breathe-india/aqcover/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	stations       INTEGER NOT NULL,
	points_loaded  INTEGER NOT NULL,
	points_skipped INTEGER NOT NULL,
	summary        JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS region_aggregates (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	region     TEXT NOT NULL,
	population DOUBLE PRECISION NOT NULL,
	far_pct    DOUBLE PRECISION,
	data       JSONB NOT NULL,
	PRIMARY KEY (run_id, region)
);

CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
CREATE INDEX IF NOT EXISTS idx_region_aggregates_run_id ON region_aggregates(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, source model.SourceKind, stations int, diags model.Diagnostics) (*model.AnalysisRun, error) {
	run := &model.AnalysisRun{
		ID:            uuid.New().String(),
		Source:        source,
		Stations:      stations,
		PointsLoaded:  diags.Loaded,
		PointsSkipped: diags.Skipped,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, source, stations, points_loaded, points_skipped, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, string(run.Source), run.Stations, run.PointsLoaded, run.PointsSkipped, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) SaveResults(ctx context.Context, runID string, regions map[string]coverage.RegionAggregate, summary coverage.Summary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET summary = $1 WHERE id = $2`, summaryJSON, runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}

	// Replace any previous results for the run, then bulk-load via COPY.
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM region_aggregates WHERE run_id = $1`, runID); err != nil {
		return eris.Wrapf(err, "postgres: clear regions for run %s", runID)
	}

	rows := make([][]any, 0, len(regions))
	for _, agg := range regions {
		data, err := json.Marshal(agg)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal region %s", agg.Region)
		}
		var farPct any
		if !isNaN(agg.BandPct[coverage.BandFar]) {
			farPct = agg.BandPct[coverage.BandFar]
		}
		rows = append(rows, []any{runID, agg.Region, agg.Population, farPct, data})
	}

	_, err = db.CopyFrom(ctx, s.pool, "region_aggregates",
		[]string{"run_id", "region", "population", "far_pct", "data"}, rows)
	return eris.Wrap(err, "postgres: copy regions")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, stations, points_loaded, points_skipped, created_at
		 FROM runs WHERE id = $1`, runID)

	r, err := scanPgRun(row)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AnalysisRun, error) {
	query := `SELECT id, source, stations, points_loaded, points_skipped, created_at
	          FROM runs`
	var args []any

	if filter.Source != "" {
		query += ` WHERE source = $1`
		args = append(args, string(filter.Source))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += placeholder(` LIMIT $%d`, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += placeholder(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.AnalysisRun
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) GetRegions(ctx context.Context, runID string) (map[string]coverage.RegionAggregate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM region_aggregates WHERE run_id = $1`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get regions for run %s", runID)
	}
	defer rows.Close()

	out := make(map[string]coverage.RegionAggregate)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan region")
		}
		var agg coverage.RegionAggregate
		if err := json.Unmarshal(data, &agg); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal region")
		}
		out[agg.Region] = agg
	}
	return out, eris.Wrap(rows.Err(), "postgres: regions iterate")
}

func (s *PostgresStore) GetSummary(ctx context.Context, runID string) (*coverage.Summary, error) {
	row := s.pool.QueryRow(ctx, `SELECT summary FROM runs WHERE id = $1`, runID)

	var summaryJSON []byte
	err := row.Scan(&summaryJSON)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get summary for run %s", runID)
	}
	if len(summaryJSON) == 0 {
		return nil, ErrNotFound
	}

	var summary coverage.Summary
	if err := json.Unmarshal(summaryJSON, &summary); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal summary")
	}
	return &summary, nil
}

func placeholder(format string, n int) string {
	return fmt.Sprintf(format, n)
}

type pgScannable interface {
	Scan(dest ...any) error
}

func scanPgRun(row pgScannable) (*model.AnalysisRun, error) {
	var r model.AnalysisRun
	var source string

	err := row.Scan(&r.ID, &source, &r.Stations, &r.PointsLoaded, &r.PointsSkipped, &r.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Source = model.SourceKind(source)
	return &r, nil
}
