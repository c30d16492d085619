// Package jobs implements the batch jobs (props, game_lines, landing,
// arbitrage, archive) and the runner that wraps each invocation with a
// run id, a distributed lock, a persisted summary and failure alerts.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/propscope/oddsjobs/internal/notify"
)

// Job is one batch job. Run records per-item outcomes into s and returns an
// error only when the run as a whole could not complete.
type Job interface {
	Name() string
	Run(ctx context.Context, s *domain.BatchSummary) error
}

// Notifier delivers alerts for a named event. *notify.Notifier satisfies it,
// including when nil.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Runner executes jobs one invocation at a time.
type Runner struct {
	locks    domain.LockManager
	runs     domain.JobRunStore
	notifier Notifier
	lockTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner creates a Runner. locks, runs and notifier may be nil, which
// disables locking, run persistence and failure alerts respectively.
func NewRunner(locks domain.LockManager, runs domain.JobRunStore, notifier Notifier, lockTTL time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		locks:    locks,
		runs:     runs,
		notifier: notifier,
		lockTTL:  lockTTL,
		logger:   logger.With(slog.String("component", "runner")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes job under its lock and returns the finished summary. When
// another invocation holds the lock the job is not run and the returned
// error wraps domain.ErrLockHeld.
func (r *Runner) Run(ctx context.Context, job Job) (domain.BatchSummary, error) {
	s := domain.NewBatchSummary(job.Name(), uuid.NewString(), r.now())
	logger := r.logger.With(slog.String("job", job.Name()), slog.String("run_id", s.RunID))

	if r.locks != nil {
		unlock, err := r.locks.Acquire(ctx, job.Name(), r.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				logger.WarnContext(ctx, "job already running, skipping")
			}
			return s, fmt.Errorf("jobs: %s: %w", job.Name(), err)
		}
		defer unlock()
	}

	logger.InfoContext(ctx, "job started")
	runErr := job.Run(ctx, &s)
	s.Finished = r.now()
	if runErr != nil {
		s.Error = runErr.Error()
	}

	attrs := []any{
		slog.Int("succeeded", s.Succeeded),
		slog.Int("skipped", s.TotalSkipped()),
		slog.Int("failed", s.TotalFailed()),
		slog.Int("written", s.Written),
		slog.Duration("elapsed", s.Finished.Sub(s.Started)),
	}
	for _, reason := range s.Reasons() {
		attrs = append(attrs, slog.Int("reason."+reason, s.Skipped[reason]+s.Failed[reason]))
	}
	if runErr != nil {
		logger.ErrorContext(ctx, "job failed", append(attrs, slog.String("error", runErr.Error()))...)
	} else {
		logger.InfoContext(ctx, "job finished", attrs...)
	}

	if r.runs != nil {
		// A cancelled run is still recorded.
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := r.runs.Record(recCtx, s); err != nil {
			logger.WarnContext(ctx, "record job run failed", slog.String("error", err.Error()))
		}
		cancel()
	}

	if runErr != nil && r.notifier != nil {
		title, msg := notify.FormatJobFailure(s, runErr)
		if err := r.notifier.Notify(context.WithoutCancel(ctx), notify.EventJobFailed, title, msg); err != nil {
			logger.WarnContext(ctx, "failure alert not delivered", slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		return s, fmt.Errorf("jobs: %s: %w", job.Name(), runErr)
	}
	return s, nil
}

// RunAll runs jobs in order. A failed job does not stop the ones after it;
// the returned error joins every failure.
func (r *Runner) RunAll(ctx context.Context, jobs []Job) ([]domain.BatchSummary, error) {
	var (
		out  []domain.BatchSummary
		errs []error
	)
	for _, j := range jobs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		s, err := r.Run(ctx, j)
		out = append(out, s)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}
