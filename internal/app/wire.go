package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/propscope/oddsjobs/internal/blob/s3"
	"github.com/propscope/oddsjobs/internal/cache/redis"
	"github.com/propscope/oddsjobs/internal/config"
	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/propscope/oddsjobs/internal/notify"
	"github.com/propscope/oddsjobs/internal/odds"
	"github.com/propscope/oddsjobs/internal/oddsapi"
	"github.com/propscope/oddsjobs/internal/resolve"
	"github.com/propscope/oddsjobs/internal/store/postgres"
)

// Dependencies bundles everything the jobs need. Optional parts are nil when
// their backend is disabled. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores (nil unless supabase.enabled)
	PlayerStore  domain.PlayerStore
	HistoryStore domain.OddsHistoryStore
	ArbStore     domain.ArbStore
	JobRunStore  domain.JobRunStore

	// Caches
	OddsCache    domain.OddsCache
	LandingCache domain.LandingCache
	ArbCache     domain.ArbCache
	LockManager  domain.LockManager
	EventBus     domain.EventBus

	// Blob storage (nil unless s3.enabled)
	Snapshots *s3blob.SnapshotArchiver

	// Upstream odds (nil without an API key)
	OddsClient *oddsapi.Client

	Engine    *odds.Engine
	Overrides resolve.Overrides
	Notifier  *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	if cfg.Supabase.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Supabase.DSN,
			Host:     cfg.Supabase.Host,
			Port:     cfg.Supabase.Port,
			Database: cfg.Supabase.Database,
			User:     cfg.Supabase.User,
			Password: cfg.Supabase.Password,
			SSLMode:  cfg.Supabase.SSLMode,
			MaxConns: cfg.Supabase.PoolMaxConns,
			MinConns: cfg.Supabase.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Supabase.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.PlayerStore = postgres.NewPlayerStore(pool)
		deps.ArbStore = postgres.NewArbStore(pool)
		deps.JobRunStore = postgres.NewJobRunStore(pool)
		if cfg.Supabase.WriteHistory {
			deps.HistoryStore = postgres.NewOddsHistoryStore(pool)
		}
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		URL:        cfg.Redis.URL,
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.OddsCache = redis.NewOddsCache(redisClient, cfg.Redis.WriteBatch)
	deps.LandingCache = redis.NewLandingCache(redisClient)
	deps.ArbCache = redis.NewArbCache(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.EventBus = redis.NewEventBus(redisClient, cfg.Redis.StreamMaxLen)

	// --- S3 snapshots ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			logger.WarnContext(ctx, "snapshot bucket not reachable", slog.String("error", err.Error()))
		}
		deps.Snapshots = s3blob.NewSnapshotArchiver(s3Client, cfg.S3.Prefix)
	}

	// --- Odds API ---
	if cfg.OddsAPI.APIKey != "" {
		deps.OddsClient = oddsapi.NewClient(oddsapi.Config{
			BaseURL:           cfg.OddsAPI.BaseURL,
			APIKey:            cfg.OddsAPI.APIKey,
			Regions:           cfg.OddsAPI.Regions,
			Bookmakers:        cfg.OddsAPI.Bookmakers,
			OddsFormat:        cfg.OddsAPI.OddsFormat,
			RequestsPerSecond: cfg.OddsAPI.RequestsPerSecond,
			Burst:             cfg.OddsAPI.Burst,
			Timeout:           cfg.OddsAPI.Timeout.Duration,
			IncludeLinks:      cfg.OddsAPI.IncludeLinks,
			IncludeSids:       cfg.OddsAPI.IncludeSids,
		}, logger)
	}

	// --- Player overrides ---
	var fileOverrides map[string]map[string]string
	if path := strings.TrimSpace(cfg.Resolver.OverridesFile); path != "" {
		fileOverrides, err = config.LoadOverrides(path)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: resolver overrides %s: %w", path, err)
		}
	}
	deps.Overrides = resolve.NewOverrides(fileOverrides, cfg.Resolver.Overrides)

	// --- Engine ---
	deps.Engine = odds.NewEngine(odds.Config{
		MinBooks:        cfg.Engine.MinBooks,
		MaxPerMarket:    cfg.Engine.MaxPerMarket,
		MaxTotal:        cfg.Engine.MaxTotal,
		MinArbProfitPct: cfg.Arbitrage.MinProfitPct,
		Workers:         cfg.Engine.Workers,
	})

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
