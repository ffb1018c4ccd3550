package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clapper/internal/config"
)

// Store manages job persistence backed by the shared Postgres database.
//
// One Store (and one underlying pool) is constructed per worker process at
// startup and injected into every component that needs it; it is never
// re-created per job.
type Store struct {
	pool *pgxpool.Pool
}

const jobColumns = `id, media_file_id, job_type, status, progress,
    COALESCE(error_message, ''), COALESCE(claimed_by, ''), last_heartbeat,
    created_at, updated_at`

// Open connects to the shared store and initializes the job schema.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Store.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.Store.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool wraps an existing pool. The caller retains ownership of the
// pool's lifecycle. Used when several stores share one process-wide pool.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying connection pool for sibling stores.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies store reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Enqueue inserts a new queued job for a media record.
func (s *Store) Enqueue(ctx context.Context, mediaFileID, jobType string) (*Job, error) {
	id := uuid.NewString()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, media_file_id, job_type, status)
         VALUES ($1, $2, $3, $4)
         RETURNING `+jobColumns,
		id, mediaFileID, jobType, StatusQueued,
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// Claim atomically takes ownership of the oldest queued job of the given
// type. FOR UPDATE SKIP LOCKED guarantees no two workers claim the same job.
// Returns nil when the queue is empty.
func (s *Store) Claim(ctx context.Context, workerName, jobType string) (*Job, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE jobs
         SET status = $1, claimed_by = $2, last_heartbeat = now(), updated_at = now()
         WHERE id = (
             SELECT id FROM jobs
             WHERE status = $3 AND job_type = $4
             ORDER BY created_at
             LIMIT 1
             FOR UPDATE SKIP LOCKED
         )
         RETURNING `+jobColumns,
		StatusProcessing, workerName, StatusQueued, jobType,
	)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// GetByID fetches a job by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// UpdateProgress records a progress checkpoint for an in-flight job.
//
// The write is idempotent and monotonic: GREATEST keeps stored progress from
// ever decreasing, and the status guard makes the call a no-op once the job
// reached a terminal state.
func (s *Store) UpdateProgress(ctx context.Context, id string, percent int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs
         SET progress = GREATEST(progress, $2), updated_at = now()
         WHERE id = $1 AND status = $3`,
		id, clampProgress(percent), StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// MarkComplete transitions a processing job to its successful terminal state.
func (s *Store) MarkComplete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs
         SET status = $2, progress = 100, error_message = NULL,
             last_heartbeat = NULL, updated_at = now()
         WHERE id = $1 AND status = $3`,
		id, StatusComplete, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark job complete: %w", err)
	}
	return nil
}

// MarkFailed transitions a processing job to its failed terminal state and
// records the error for operators.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs
         SET status = $2, error_message = $3, last_heartbeat = NULL, updated_at = now()
         WHERE id = $1 AND status = $4`,
		id, StatusFailed, message, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

// Heartbeat refreshes the liveness timestamp for an in-flight job.
func (s *Store) Heartbeat(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET last_heartbeat = now(), updated_at = now()
         WHERE id = $1 AND status = $2`,
		id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStale returns processing jobs with expired heartbeats to the queue
// so surviving pool members can pick them up after a worker crash.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
         SET status = $1, claimed_by = NULL, progress = 0,
             last_heartbeat = NULL, updated_at = now()
         WHERE status = $2 AND last_heartbeat IS NOT NULL AND last_heartbeat < $3`,
		StatusQueued, StatusProcessing, cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// HealthSummary aggregates job counts per lifecycle state.
func (s *Store) HealthSummary(ctx context.Context) (HealthSummary, error) {
	var summary HealthSummary
	err := s.pool.QueryRow(ctx,
		`SELECT count(*),
                count(*) FILTER (WHERE status = $1),
                count(*) FILTER (WHERE status = $2),
                count(*) FILTER (WHERE status = $3),
                count(*) FILTER (WHERE status = $4)
         FROM jobs`,
		StatusQueued, StatusProcessing, StatusComplete, StatusFailed,
	).Scan(&summary.Total, &summary.Queued, &summary.Processing, &summary.Complete, &summary.Failed)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("health summary: %w", err)
	}
	return summary, nil
}

// List returns the most recently updated jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job    Job
		status string
	)
	if err := row.Scan(
		&job.ID,
		&job.MediaFileID,
		&job.Type,
		&status,
		&job.Progress,
		&job.ErrorMessage,
		&job.ClaimedBy,
		&job.LastHeartbeat,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, ok := ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown job status %q", status)
	}
	job.Status = parsed
	return &job, nil
}
