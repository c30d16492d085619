package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/propscope/oddsjobs/internal/config"
	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/propscope/oddsjobs/internal/notify"
	"github.com/propscope/oddsjobs/internal/odds"
)

// ArbitrageOptions configures the arbitrage job.
type ArbitrageOptions struct {
	Sports    []string
	TTL       time.Duration
	Notify    bool
	NotifyMax int
}

// ArbitrageJob scans every cached line for two-sided arbitrage, replaces the
// live opportunity set, publishes each new opportunity and keeps history.
type ArbitrageJob struct {
	opts     ArbitrageOptions
	cache    domain.OddsCache
	arbs     domain.ArbCache
	bus      domain.EventBus
	store    domain.ArbStore
	notifier Notifier
	engine   *odds.Engine
	logger   *slog.Logger
	now      func() time.Time
}

// NewArbitrageJob creates an ArbitrageJob. bus, store and notifier may be
// nil.
func NewArbitrageJob(
	opts ArbitrageOptions,
	cache domain.OddsCache,
	arbs domain.ArbCache,
	bus domain.EventBus,
	store domain.ArbStore,
	notifier Notifier,
	engine *odds.Engine,
	logger *slog.Logger,
) *ArbitrageJob {
	opts.Sports = uniqueSports(opts.Sports)
	return &ArbitrageJob{
		opts:     opts,
		cache:    cache,
		arbs:     arbs,
		bus:      bus,
		store:    store,
		notifier: notifier,
		engine:   engine,
		logger:   logger.With(slog.String("component", "job."+config.JobArbitrage)),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Name implements Job.
func (j *ArbitrageJob) Name() string { return config.JobArbitrage }

// Run implements Job.
func (j *ArbitrageJob) Run(ctx context.Context, s *domain.BatchSummary) error {
	cells, err := loadCells(ctx, j.cache, j.opts.Sports, "", s)
	if err != nil {
		return fmt.Errorf("arbitrage: %w", err)
	}

	scan := j.engine.ScanArbitrage(cells)
	for _, it := range scan.Items {
		s.Record(it)
	}

	detected := j.now()
	opps := scan.Opportunities
	for i := range opps {
		opps[i].ID = uuid.NewString()
		opps[i].DetectedAt = detected
	}

	keys, err := j.arbs.Replace(ctx, opps, j.opts.TTL)
	if err != nil {
		return fmt.Errorf("arbitrage: %w", err)
	}
	s.Written = len(keys)

	j.logger.InfoContext(ctx, "arbitrage set replaced",
		slog.Int("cells", len(cells)),
		slog.Int("opportunities", len(opps)),
	)
	if len(opps) == 0 {
		return nil
	}

	j.publish(ctx, opps, s)

	if j.store != nil {
		if err := j.store.InsertBatch(ctx, opps); err != nil {
			j.logger.WarnContext(ctx, "arb history insert failed", slog.String("error", err.Error()))
			s.Record(domain.ItemResult{Key: "arb_history", Status: domain.ItemFailed, Reason: "history_write", Err: err.Error()})
		}
	}

	if j.opts.Notify && j.notifier != nil {
		title, msg := notify.FormatArbs(opps, j.opts.NotifyMax)
		if err := j.notifier.Notify(ctx, notify.EventArbDetected, title, msg); err != nil {
			j.logger.WarnContext(ctx, "arb alert not delivered", slog.String("error", err.Error()))
		}
	}
	return nil
}

// publish sends each opportunity to the live channel and the durable stream.
// Delivery failures are recorded per opportunity and never fail the run.
func (j *ArbitrageJob) publish(ctx context.Context, opps []domain.ArbOpportunity, s *domain.BatchSummary) {
	if j.bus == nil {
		return
	}
	for _, opp := range opps {
		payload, err := json.Marshal(opp)
		if err != nil {
			s.Record(domain.ItemResult{Key: opp.ID, Status: domain.ItemFailed, Reason: "publish", Err: err.Error()})
			continue
		}
		if err := j.bus.Publish(ctx, domain.ArbChannel, payload); err != nil {
			j.logger.WarnContext(ctx, "arb publish failed", slog.String("id", opp.ID), slog.String("error", err.Error()))
			s.Record(domain.ItemResult{Key: opp.ID, Status: domain.ItemFailed, Reason: "publish", Err: err.Error()})
			continue
		}
		if err := j.bus.StreamAppend(ctx, domain.ArbStream, payload); err != nil {
			j.logger.WarnContext(ctx, "arb stream append failed", slog.String("id", opp.ID), slog.String("error", err.Error()))
			s.Record(domain.ItemResult{Key: opp.ID, Status: domain.ItemFailed, Reason: "publish", Err: err.Error()})
		}
	}
}

var _ Job = (*ArbitrageJob)(nil)
