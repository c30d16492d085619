package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/propscope/oddsjobs/internal/config"
	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/propscope/oddsjobs/internal/jobs"
	"github.com/propscope/oddsjobs/internal/notify"
	"github.com/propscope/oddsjobs/internal/resolve"
)

// buildJobs constructs the configured jobs in list order.
func (a *App) buildJobs(deps *Dependencies) ([]jobs.Job, error) {
	cfg := a.cfg
	var out []jobs.Job
	for _, name := range cfg.Jobs {
		switch strings.ToLower(name) {
		case config.JobProps:
			if deps.OddsClient == nil {
				return nil, fmt.Errorf("job %s: odds_api.api_key is not set", name)
			}
			out = append(out, jobs.NewPropsJob(
				deps.OddsClient, deps.OddsCache, deps.HistoryStore,
				a.resolverFactory(deps),
				a.fetchOptions(config.KindProps, cfg.Redis.OddsTTL.Duration),
				a.logger,
			))

		case config.JobGameLines:
			if deps.OddsClient == nil {
				return nil, fmt.Errorf("job %s: odds_api.api_key is not set", name)
			}
			out = append(out, jobs.NewGameLinesJob(
				deps.OddsClient, deps.OddsCache, deps.HistoryStore,
				a.fetchOptions(config.KindGameLines, cfg.Redis.GameLinesTTL.Duration),
				a.logger,
			))

		case config.JobLanding:
			out = append(out, jobs.NewLandingJob(
				a.landingSports(), deps.OddsCache, deps.LandingCache, deps.Engine,
				cfg.Redis.LandingTTL.Duration, a.logger,
			))

		case config.JobArbitrage:
			out = append(out, jobs.NewArbitrageJob(
				jobs.ArbitrageOptions{
					Sports:    a.allSports(),
					TTL:       cfg.Redis.ArbTTL.Duration,
					Notify:    cfg.Arbitrage.Notify,
					NotifyMax: cfg.Arbitrage.NotifyMax,
				},
				deps.OddsCache, deps.ArbCache, deps.EventBus, deps.ArbStore, deps.Notifier,
				deps.Engine, a.logger,
			))

		case config.JobArchive:
			if deps.Snapshots == nil {
				return nil, fmt.Errorf("job %s: s3 is not enabled", name)
			}
			out = append(out, jobs.NewArchiveJob(deps.LandingCache, deps.ArbCache, deps.Snapshots, a.logger))

		default:
			return nil, fmt.Errorf("unknown job %q", name)
		}
	}
	return out, nil
}

// resolverFactory returns a constructor for a fresh per-run resolver.
func (a *App) resolverFactory(deps *Dependencies) func() domain.SubjectResolver {
	if a.cfg.Resolver.UseDatabase && deps.PlayerStore != nil {
		return func() domain.SubjectResolver {
			return resolve.NewDBResolver(deps.PlayerStore, deps.Overrides, a.logger)
		}
	}
	a.logger.Warn("player resolution uses overrides only")
	return func() domain.SubjectResolver {
		return resolve.NewOverrideResolver(deps.Overrides)
	}
}

func (a *App) fetchOptions(kind string, ttl time.Duration) jobs.FetchOptions {
	return jobs.FetchOptions{
		Sports:    a.cfg.EnabledSports(kind),
		BookNames: a.cfg.BookNames,
		TTL:       ttl,
		Lookahead: a.cfg.OddsAPI.Lookahead.Duration,
		Workers:   a.cfg.OddsAPI.Workers,
	}
}

// landingSports lists the cache keys of enabled sports marked for landing.
func (a *App) landingSports() []string {
	var out []string
	for _, s := range a.cfg.Sports {
		if s.Enabled && s.Landing {
			out = append(out, s.CacheKey)
		}
	}
	return out
}

// allSports lists the cache keys of every enabled sport.
func (a *App) allSports() []string {
	var out []string
	for _, s := range a.cfg.Sports {
		if s.Enabled {
			out = append(out, s.CacheKey)
		}
	}
	return out
}

func (a *App) newRunner(deps *Dependencies) *jobs.Runner {
	return jobs.NewRunner(deps.LockManager, deps.JobRunStore, deps.Notifier, a.cfg.Redis.LockTTL.Duration, a.logger)
}

// OnceMode runs the configured jobs in order and returns.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting once mode")

	list, err := a.buildJobs(deps)
	if err != nil {
		return fmt.Errorf("once: %w", err)
	}

	summaries, err := a.newRunner(deps).RunAll(ctx, list)
	for _, s := range summaries {
		a.logger.InfoContext(ctx, "run summary",
			slog.String("job", s.Job),
			slog.String("run_id", s.RunID),
			slog.Int("succeeded", s.Succeeded),
			slog.Int("skipped", s.TotalSkipped()),
			slog.Int("failed", s.TotalFailed()),
			slog.Int("written", s.Written),
		)
		if s.Error == "" && deps.Notifier.Enabled() {
			title, msg := notify.FormatJobSummary(s)
			if err := deps.Notifier.Notify(ctx, notify.EventJobSummary, title, msg); err != nil {
				a.logger.WarnContext(ctx, "summary alert not delivered", slog.String("error", err.Error()))
			}
		}
	}
	if err != nil {
		return fmt.Errorf("once: %w", err)
	}
	return nil
}

// ScheduleMode registers every configured job on its cron expression and
// blocks until ctx is cancelled. A job still running when its next tick
// arrives skips that tick.
func (a *App) ScheduleMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting schedule mode", slog.String("timezone", a.cfg.Schedule.Timezone))

	loc, err := time.LoadLocation(a.cfg.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("schedule: timezone: %w", err)
	}

	list, err := a.buildJobs(deps)
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	clog := cronLogger{a.logger.With(slog.String("component", "cron"))}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)

	runner := a.newRunner(deps)
	for _, job := range list {
		spec := a.cfg.Schedule.Jobs[job.Name()]
		id, err := c.AddFunc(spec, func() {
			if _, err := runner.Run(ctx, job); err != nil && !errors.Is(err, domain.ErrLockHeld) {
				a.logger.ErrorContext(ctx, "scheduled run failed",
					slog.String("job", job.Name()),
					slog.String("error", err.Error()),
				)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule: job %s: %w", job.Name(), err)
		}
		a.logger.InfoContext(ctx, "job scheduled",
			slog.String("job", job.Name()),
			slog.String("cron", spec),
			slog.Time("next_run", c.Entry(id).Schedule.Next(time.Now().In(loc))),
		)
	}

	c.Start()
	<-ctx.Done()

	a.logger.Info("stopping scheduler, waiting for running jobs")
	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(a.cfg.Redis.LockTTL.Duration):
		a.logger.Warn("scheduler stop timed out")
	}
	return nil
}

// StatusMode logs when each job last succeeded, the live landing and
// arbitrage counts, and the most recent stored opportunities.
func (a *App) StatusMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting status mode")

	if deps.JobRunStore != nil {
		for _, name := range []string{config.JobProps, config.JobGameLines, config.JobLanding, config.JobArbitrage, config.JobArchive} {
			last, err := deps.JobRunStore.LastSuccess(ctx, name)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				a.logger.InfoContext(ctx, "job status", slog.String("job", name), slog.String("last_success", "never"))
			case err != nil:
				return fmt.Errorf("status: %w", err)
			default:
				a.logger.InfoContext(ctx, "job status",
					slog.String("job", name),
					slog.Time("last_success", last),
					slog.Duration("age", time.Since(last).Round(time.Second)),
				)
			}
		}
	}

	top, err := deps.LandingCache.GetTop(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("status: %w", err)
	}
	live, err := deps.ArbCache.Current(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	a.logger.InfoContext(ctx, "live sets", slog.Int("landing", len(top)), slog.Int("arbitrage", len(live)))

	if deps.ArbStore != nil {
		recent, err := deps.ArbStore.ListRecent(ctx, 10)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		for _, opp := range recent {
			a.logger.InfoContext(ctx, "recent arbitrage",
				slog.String("sport", opp.Sport),
				slog.String("description", opp.Description),
				slog.String("market", opp.Market),
				slog.String("line", opp.Line),
				slog.Float64("profit_pct", opp.ProfitPct),
				slog.Time("detected_at", opp.DetectedAt),
			)
		}
	}
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
