package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/propscope/oddsjobs/internal/config"
	"github.com/propscope/oddsjobs/internal/domain"
)

// SnapshotArchiver uploads point-in-time copies of the derived lists.
type SnapshotArchiver interface {
	ArchiveLanding(ctx context.Context, runID string, at time.Time, results []domain.ConsensusResult) (string, error)
	ArchiveArbitrage(ctx context.Context, runID string, at time.Time, opps []domain.ArbOpportunity) (string, error)
}

// ArchiveJob copies the current landing list and live arbitrage set to
// object storage.
type ArchiveJob struct {
	landing  domain.LandingCache
	arbs     domain.ArbCache
	archiver SnapshotArchiver
	logger   *slog.Logger
	now      func() time.Time
}

// NewArchiveJob creates an ArchiveJob.
func NewArchiveJob(landing domain.LandingCache, arbs domain.ArbCache, archiver SnapshotArchiver, logger *slog.Logger) *ArchiveJob {
	return &ArchiveJob{
		landing:  landing,
		arbs:     arbs,
		archiver: archiver,
		logger:   logger.With(slog.String("component", "job."+config.JobArchive)),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Name implements Job.
func (j *ArchiveJob) Name() string { return config.JobArchive }

// Run implements Job. A missing landing list is archived as empty.
func (j *ArchiveJob) Run(ctx context.Context, s *domain.BatchSummary) error {
	at := j.now()

	top, err := j.landing.GetTop(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("archive: %w", err)
	}
	opps, err := j.arbs.Current(ctx)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	landingPath, err := j.archiver.ArchiveLanding(ctx, s.RunID, at, top)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	j.record(s, "landing", landingPath)

	arbPath, err := j.archiver.ArchiveArbitrage(ctx, s.RunID, at, opps)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	j.record(s, "arbitrage", arbPath)

	j.logger.InfoContext(ctx, "snapshots archived",
		slog.Int("landing", len(top)),
		slog.String("landing_path", landingPath),
		slog.Int("arbitrage", len(opps)),
		slog.String("arbitrage_path", arbPath),
	)
	return nil
}

func (j *ArchiveJob) record(s *domain.BatchSummary, kind, path string) {
	if path == "" {
		s.Record(domain.ItemResult{Key: kind, Status: domain.ItemSkipped, Reason: "empty"})
		return
	}
	s.Record(domain.ItemResult{Key: path, Status: domain.ItemOK})
	s.Written++
}

var _ Job = (*ArchiveJob)(nil)
