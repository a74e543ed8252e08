package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound indicates no artifact has been mirrored for a location.
	ErrNotFound = errors.New("storage: artifact not found")
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS published_forecasts (
        location       TEXT PRIMARY KEY,
        run_id         UUID NOT NULL,
        generated_at   TIMESTAMPTZ NOT NULL,
        weather_source TEXT NOT NULL,
        day_count      INTEGER NOT NULL,
        window_count   INTEGER NOT NULL,
        best_score     NUMERIC(3,1),
        payload        JSONB NOT NULL,
        updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS forecast_runs (
        run_id         UUID PRIMARY KEY,
        location       TEXT NOT NULL,
        started_at     TIMESTAMPTZ NOT NULL,
        finished_at    TIMESTAMPTZ NOT NULL,
        status         TEXT NOT NULL,
        weather_source TEXT,
        window_count   INTEGER NOT NULL DEFAULT 0,
        error          TEXT
    );
    CREATE INDEX IF NOT EXISTS forecast_runs_started_idx ON forecast_runs (started_at DESC);`

	upsertArtifactSQL = `INSERT INTO published_forecasts (
        location,
        run_id,
        generated_at,
        weather_source,
        day_count,
        window_count,
        best_score,
        payload,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,now()
    )
    ON CONFLICT (location) DO UPDATE
    SET
        run_id         = EXCLUDED.run_id,
        generated_at   = EXCLUDED.generated_at,
        weather_source = EXCLUDED.weather_source,
        day_count      = EXCLUDED.day_count,
        window_count   = EXCLUDED.window_count,
        best_score     = EXCLUDED.best_score,
        payload        = EXCLUDED.payload,
        updated_at     = now();`

	latestArtifactSQL = `SELECT
        location,
        run_id::text,
        generated_at,
        weather_source,
        day_count,
        window_count,
        best_score::text,
        payload,
        updated_at
    FROM published_forecasts
    WHERE location = $1;`

	insertRunSQL = `INSERT INTO forecast_runs (
        run_id,
        location,
        started_at,
        finished_at,
        status,
        weather_source,
        window_count,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (run_id) DO UPDATE
    SET finished_at    = EXCLUDED.finished_at,
        status         = EXCLUDED.status,
        weather_source = EXCLUDED.weather_source,
        window_count   = EXCLUDED.window_count,
        error          = EXCLUDED.error;`

	listRecentRunsSQL = `SELECT
        run_id::text,
        location,
        started_at,
        finished_at,
        status,
        weather_source,
        window_count,
        error
    FROM forecast_runs
    WHERE location = $1
    ORDER BY started_at DESC
    LIMIT $2;`

	deleteRunsBeforeSQL = `DELETE FROM forecast_runs WHERE started_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ArtifactStore mirrors published documents.
type ArtifactStore interface {
	UpsertArtifact(ctx context.Context, artifact PublishedArtifact) error
	LatestArtifact(ctx context.Context, location string) (PublishedArtifact, error)
}

// RunStore audits build attempts.
type RunStore interface {
	RecordRun(ctx context.Context, run RunRecord) error
	ListRecentRuns(ctx context.Context, location string, limit int) ([]RunRecord, error)
	DeleteRunsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to mirrored artifacts and run history.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the mirror tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// A failed unlock is released with the session when the conn closes.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertArtifact replaces the mirrored document for the artifact's location.
func (s *Store) UpsertArtifact(ctx context.Context, artifact PublishedArtifact) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var best interface{}
	if artifact.BestScore != nil {
		best = artifact.BestScore.String()
	}

	_, execErr := pool.Exec(ctx, upsertArtifactSQL,
		artifact.Location,
		artifact.RunID,
		artifact.GeneratedAt,
		artifact.WeatherSource,
		artifact.DayCount,
		artifact.WindowCount,
		best,
		[]byte(artifact.Payload),
	)
	if execErr != nil {
		return fmt.Errorf("upsert artifact: %w", execErr)
	}
	return nil
}

// LatestArtifact loads the mirrored document for location.
func (s *Store) LatestArtifact(ctx context.Context, location string) (PublishedArtifact, error) {
	pool, err := s.getPool()
	if err != nil {
		return PublishedArtifact{}, err
	}

	var (
		rec     PublishedArtifact
		best    *string
		payload []byte
	)
	scanErr := pool.QueryRow(ctx, latestArtifactSQL, location).Scan(
		&rec.Location,
		&rec.RunID,
		&rec.GeneratedAt,
		&rec.WeatherSource,
		&rec.DayCount,
		&rec.WindowCount,
		&best,
		&payload,
		&rec.UpdatedAt,
	)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return PublishedArtifact{}, ErrNotFound
	}
	if scanErr != nil {
		return PublishedArtifact{}, fmt.Errorf("latest artifact: %w", scanErr)
	}

	if best != nil {
		score, convErr := decimal.NewFromString(*best)
		if convErr != nil {
			return PublishedArtifact{}, fmt.Errorf("parse best score: %w", convErr)
		}
		rec.BestScore = &score
	}
	rec.Payload = payload
	return rec, nil
}

// RecordRun inserts or finalises a run audit row.
func (s *Store) RecordRun(ctx context.Context, run RunRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var source interface{}
	if run.WeatherSource != nil {
		source = *run.WeatherSource
	}
	var errMsg interface{}
	if run.Error != nil {
		errMsg = *run.Error
	}

	_, execErr := pool.Exec(ctx, insertRunSQL,
		run.RunID,
		run.Location,
		run.StartedAt,
		run.FinishedAt,
		run.Status,
		source,
		run.WindowCount,
		errMsg,
	)
	if execErr != nil {
		return fmt.Errorf("record run: %w", execErr)
	}
	return nil
}

// ListRecentRuns lists the latest runs for location, newest first.
func (s *Store) ListRecentRuns(ctx context.Context, location string, limit int) ([]RunRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, location, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0, limit)
	for rows.Next() {
		var run RunRecord
		if scanErr := rows.Scan(
			&run.RunID,
			&run.Location,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Status,
			&run.WeatherSource,
			&run.WindowCount,
			&run.Error,
		); scanErr != nil {
			return nil, fmt.Errorf("scan run: %w", scanErr)
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// DeleteRunsBefore prunes run history older than the cutoff.
func (s *Store) DeleteRunsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteRunsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete runs before: %w", execErr)
	}
	return nil
}
