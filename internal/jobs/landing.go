package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/propscope/oddsjobs/internal/config"
	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/propscope/oddsjobs/internal/odds"
)

// LandingJob rebuilds the ranked top-value list from the cached cells of the
// landing sports.
type LandingJob struct {
	sports  []string
	cache   domain.OddsCache
	landing domain.LandingCache
	engine  *odds.Engine
	ttl     time.Duration
	logger  *slog.Logger
}

// NewLandingJob creates a LandingJob over the cache keys of sports.
func NewLandingJob(sports []string, cache domain.OddsCache, landing domain.LandingCache, engine *odds.Engine, ttl time.Duration, logger *slog.Logger) *LandingJob {
	return &LandingJob{
		sports:  uniqueSports(sports),
		cache:   cache,
		landing: landing,
		engine:  engine,
		ttl:     ttl,
		logger:  logger.With(slog.String("component", "job."+config.JobLanding)),
	}
}

// Name implements Job.
func (j *LandingJob) Name() string { return config.JobLanding }

// Run implements Job. Only player prop cells are ranked; game lines share the
// sport's key space but never enter the landing list. The landing key is
// always rewritten, with an empty list when nothing qualifies.
func (j *LandingJob) Run(ctx context.Context, s *domain.BatchSummary) error {
	cells, err := loadCells(ctx, j.cache, j.sports, domain.KindProp, s)
	if err != nil {
		return fmt.Errorf("landing: %w", err)
	}

	ev := j.engine.EvaluateAll(cells)
	for _, it := range ev.Items {
		s.Record(it)
	}

	top := j.engine.Top(ev.Results)
	if err := j.landing.SetTop(ctx, top, j.ttl); err != nil {
		return fmt.Errorf("landing: %w", err)
	}
	s.Written = len(top)

	j.logger.InfoContext(ctx, "landing list written",
		slog.Int("cells", len(cells)),
		slog.Int("results", len(ev.Results)),
		slog.Int("top", len(top)),
	)
	return nil
}

var _ Job = (*LandingJob)(nil)
