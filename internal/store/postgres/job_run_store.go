package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propscope/oddsjobs/internal/domain"
)

// JobRunStore implements domain.JobRunStore using PostgreSQL. The full
// BatchSummary is kept as JSONB next to the headline counts.
type JobRunStore struct {
	pool *pgxpool.Pool
}

// NewJobRunStore creates a new JobRunStore backed by the given connection
// pool.
func NewJobRunStore(pool *pgxpool.Pool) *JobRunStore {
	return &JobRunStore{pool: pool}
}

// Record inserts one row for summary. Recording the same run twice is a
// no-op.
func (s *JobRunStore) Record(ctx context.Context, summary domain.BatchSummary) error {
	detail, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("postgres: marshal job summary %s: %w", summary.RunID, err)
	}

	const query = `
		INSERT INTO job_runs (
			run_id, job, started_at, finished_at,
			succeeded, skipped, failed, written, error, summary
		) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
		ON CONFLICT (run_id) DO NOTHING`

	_, err = s.pool.Exec(ctx, query,
		summary.RunID, summary.Job, summary.Started, summary.Finished,
		summary.Succeeded, summary.TotalSkipped(), summary.TotalFailed(), summary.Written,
		summary.Error, detail,
	)
	if err != nil {
		return fmt.Errorf("postgres: record job run %s: %w", summary.RunID, err)
	}
	return nil
}

// LastSuccess returns when job last finished without a run-level error.
// Runs that skipped or failed individual items still count. It returns
// domain.ErrNotFound when there is no such run.
func (s *JobRunStore) LastSuccess(ctx context.Context, job string) (time.Time, error) {
	const query = `
		SELECT finished_at FROM job_runs
		WHERE job = $1 AND error IS NULL
		ORDER BY finished_at DESC
		LIMIT 1`

	var finished time.Time
	if err := s.pool.QueryRow(ctx, query, job).Scan(&finished); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("postgres: last success %s: %w", job, err)
	}
	return finished, nil
}

// Compile-time interface check.
var _ domain.JobRunStore = (*JobRunStore)(nil)
