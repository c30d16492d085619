package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/propscope/oddsjobs/internal/config"
	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/propscope/oddsjobs/internal/normalize"
	"github.com/propscope/oddsjobs/internal/oddsapi"
)

// OddsFetcher is the subset of the Odds API client the fetch jobs use.
type OddsFetcher interface {
	ListEvents(ctx context.Context, sport string) ([]oddsapi.Event, error)
	EventOdds(ctx context.Context, sport, eventID string, markets []string) (oddsapi.EventOdds, error)
}

// ReasonFetchFailed tags events or sports whose odds could not be fetched.
const ReasonFetchFailed = "fetch_failed"

// FetchOptions configures a fetch job.
type FetchOptions struct {
	Sports    []config.SportConfig
	BookNames map[string]string
	TTL       time.Duration
	Lookahead time.Duration
	Workers   int
}

// FetchJob pulls upcoming events for each configured sport, normalizes the
// odds into cells and writes them to the odds cache. The props variant
// resolves players; the game_lines variant keys cells by event.
type FetchJob struct {
	name        string
	kind        string
	opts        FetchOptions
	fetcher     OddsFetcher
	cache       domain.OddsCache
	history     domain.OddsHistoryStore
	newResolver func() domain.SubjectResolver
	logger      *slog.Logger
	now         func() time.Time
}

// NewPropsJob creates the props job. newResolver is called once per run so
// player tables are reloaded between runs. history may be nil.
func NewPropsJob(
	fetcher OddsFetcher,
	cache domain.OddsCache,
	history domain.OddsHistoryStore,
	newResolver func() domain.SubjectResolver,
	opts FetchOptions,
	logger *slog.Logger,
) *FetchJob {
	return newFetchJob(config.JobProps, config.KindProps, fetcher, cache, history, newResolver, opts, logger)
}

// NewGameLinesJob creates the game_lines job. history may be nil.
func NewGameLinesJob(
	fetcher OddsFetcher,
	cache domain.OddsCache,
	history domain.OddsHistoryStore,
	opts FetchOptions,
	logger *slog.Logger,
) *FetchJob {
	return newFetchJob(config.JobGameLines, config.KindGameLines, fetcher, cache, history, nil, opts, logger)
}

func newFetchJob(
	name, kind string,
	fetcher OddsFetcher,
	cache domain.OddsCache,
	history domain.OddsHistoryStore,
	newResolver func() domain.SubjectResolver,
	opts FetchOptions,
	logger *slog.Logger,
) *FetchJob {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &FetchJob{
		name:        name,
		kind:        kind,
		opts:        opts,
		fetcher:     fetcher,
		cache:       cache,
		history:     history,
		newResolver: newResolver,
		logger:      logger.With(slog.String("component", "job."+name)),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Name implements Job.
func (j *FetchJob) Name() string { return j.name }

// Run implements Job.
func (j *FetchJob) Run(ctx context.Context, s *domain.BatchSummary) error {
	now := j.now()

	var resolver domain.SubjectResolver
	if j.kind == config.KindProps {
		if j.newResolver == nil {
			return fmt.Errorf("%s: no subject resolver configured", j.name)
		}
		resolver = j.newResolver()
	}

	var cells []domain.MarketCell
	for _, sport := range j.opts.Sports {
		if sport.Kind != j.kind || !sport.Enabled {
			continue
		}
		got, err := j.fetchSport(ctx, sport, resolver, now, s)
		if err != nil {
			return err
		}
		cells = append(cells, got...)
	}

	if len(cells) == 0 {
		j.logger.InfoContext(ctx, "no cells built")
		return nil
	}

	written, err := j.cache.PutCells(ctx, cells, j.opts.TTL)
	s.Written += written
	if err != nil {
		return fmt.Errorf("%s: write cells: %w", j.name, err)
	}

	if j.history != nil {
		rows := normalize.HistoryRows(cells, now)
		inserted, err := j.history.InsertBatch(ctx, rows)
		if err != nil {
			// History is best effort; the cache is already current.
			j.logger.WarnContext(ctx, "odds history insert failed",
				slog.Int("rows", len(rows)),
				slog.String("error", err.Error()),
			)
			s.Record(domain.ItemResult{Key: "odds_history", Status: domain.ItemFailed, Reason: "history_write", Err: err.Error()})
		} else {
			j.logger.InfoContext(ctx, "odds history inserted",
				slog.Int("rows", len(rows)),
				slog.Int64("inserted", inserted),
			)
		}
	}
	return nil
}

// fetchSport fetches every in-window event of sport concurrently and
// returns the cells in event order.
func (j *FetchJob) fetchSport(
	ctx context.Context,
	sport config.SportConfig,
	resolver domain.SubjectResolver,
	now time.Time,
	s *domain.BatchSummary,
) ([]domain.MarketCell, error) {
	logger := j.logger.With(slog.String("sport", sport.CacheKey))

	events, err := j.fetcher.ListEvents(ctx, sport.Key)
	if err != nil {
		if fatalFetch(err) {
			return nil, fmt.Errorf("%s: list events %s: %w", j.name, sport.Key, err)
		}
		logger.ErrorContext(ctx, "list events failed", slog.String("error", err.Error()))
		s.Record(domain.ItemResult{Key: "sport:" + sport.Key, Status: domain.ItemFailed, Reason: ReasonFetchFailed, Err: err.Error()})
		return nil, nil
	}

	var upcoming []oddsapi.Event
	for _, ev := range events {
		if normalize.InWindow(ev, now, j.opts.Lookahead) {
			upcoming = append(upcoming, ev)
		}
	}

	markets := normalize.MarketsToRequest(sport)
	perEvent := make([][]domain.MarketCell, len(upcoming))
	var mu sync.Mutex // guards s

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.opts.Workers)
	for i, ev := range upcoming {
		g.Go(func() error {
			odds, err := j.fetcher.EventOdds(gctx, sport.Key, ev.ID, markets)
			if err != nil {
				if fatalFetch(err) || gctx.Err() != nil {
					return fmt.Errorf("%s: event odds %s: %w", j.name, ev.ID, err)
				}
				logger.WarnContext(gctx, "event odds failed",
					slog.String("event_id", ev.ID),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				s.Record(domain.ItemResult{Key: "event:" + ev.ID, Status: domain.ItemFailed, Reason: ReasonFetchFailed, Err: err.Error()})
				mu.Unlock()
				return nil
			}

			var (
				cells []domain.MarketCell
				items []domain.ItemResult
			)
			if j.kind == config.KindProps {
				cells, items, err = normalize.PropCells(gctx, odds, sport, resolver, j.opts.BookNames, now)
				if err != nil {
					return fmt.Errorf("%s: event %s: %w", j.name, ev.ID, err)
				}
			} else {
				cells, items = normalize.GameCells(odds, sport, j.opts.BookNames, now)
			}

			perEvent[i] = cells
			mu.Lock()
			for _, it := range items {
				s.Record(it)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []domain.MarketCell
	for _, cells := range perEvent {
		out = append(out, cells...)
	}
	logger.InfoContext(ctx, "sport fetched",
		slog.Int("events", len(events)),
		slog.Int("in_window", len(upcoming)),
		slog.Int("cells", len(out)),
	)
	return out, nil
}

// fatalFetch reports errors no retry within this run can fix.
func fatalFetch(err error) bool {
	return errors.Is(err, domain.ErrQuotaExceeded) || errors.Is(err, domain.ErrUnauthorized)
}

// Compile-time interface checks.
var (
	_ Job         = (*FetchJob)(nil)
	_ OddsFetcher = (*oddsapi.Client)(nil)
)
