package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ODDSJOBS_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	// A [[sports]] list in the file replaces the defaults rather than being
	// merged element by element into them.
	md, err := toml.DecodeFile(path, &struct{}{})
	if err != nil {
		return nil, err
	}
	if md.IsDefined("sports") {
		cfg.Sports = nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// LoadOverrides reads a resolver overrides file. The file holds one table
// per sport mapping a player name to its reference id:
//
//	[mlb]
//	"Shohei Ohtani" = "660271"
func LoadOverrides(path string) (map[string]map[string]string, error) {
	out := map[string]map[string]string{}
	if _, err := toml.DecodeFile(path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// applyEnvOverrides reads well-known ODDSJOBS_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Odds API ──
	setStr(&cfg.OddsAPI.BaseURL, "ODDSJOBS_ODDS_API_BASE_URL")
	setStr(&cfg.OddsAPI.APIKey, "ODDSJOBS_ODDS_API_KEY")
	setStr(&cfg.OddsAPI.APIKey, "ODDS_API_KEY") // compatibility alias
	setStr(&cfg.OddsAPI.Regions, "ODDSJOBS_ODDS_API_REGIONS")
	setStringSlice(&cfg.OddsAPI.Bookmakers, "ODDSJOBS_ODDS_API_BOOKMAKERS")
	setFloat64(&cfg.OddsAPI.RequestsPerSecond, "ODDSJOBS_ODDS_API_REQUESTS_PER_SECOND")
	setInt(&cfg.OddsAPI.Burst, "ODDSJOBS_ODDS_API_BURST")
	setDuration(&cfg.OddsAPI.Timeout, "ODDSJOBS_ODDS_API_TIMEOUT")
	setDuration(&cfg.OddsAPI.Lookahead, "ODDSJOBS_ODDS_API_LOOKAHEAD")
	setInt(&cfg.OddsAPI.Workers, "ODDSJOBS_ODDS_API_WORKERS")

	// ── Engine ──
	setInt(&cfg.Engine.MinBooks, "ODDSJOBS_ENGINE_MIN_BOOKS")
	setInt(&cfg.Engine.MaxPerMarket, "ODDSJOBS_ENGINE_MAX_PER_MARKET")
	setInt(&cfg.Engine.MaxTotal, "ODDSJOBS_ENGINE_MAX_TOTAL")
	setInt(&cfg.Engine.Workers, "ODDSJOBS_ENGINE_WORKERS")

	// ── Arbitrage ──
	setFloat64(&cfg.Arbitrage.MinProfitPct, "ODDSJOBS_ARBITRAGE_MIN_PROFIT_PCT")
	setBool(&cfg.Arbitrage.Notify, "ODDSJOBS_ARBITRAGE_NOTIFY")
	setInt(&cfg.Arbitrage.NotifyMax, "ODDSJOBS_ARBITRAGE_NOTIFY_MAX")

	// ── Resolver ──
	setStr(&cfg.Resolver.OverridesFile, "ODDSJOBS_RESOLVER_OVERRIDES_FILE")
	setBool(&cfg.Resolver.UseDatabase, "ODDSJOBS_RESOLVER_USE_DATABASE")

	// ── Supabase ──
	setBool(&cfg.Supabase.Enabled, "ODDSJOBS_SUPABASE_ENABLED")
	setStr(&cfg.Supabase.DSN, "ODDSJOBS_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "ODDSJOBS_SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "ODDSJOBS_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "ODDSJOBS_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "ODDSJOBS_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "ODDSJOBS_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "ODDSJOBS_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "ODDSJOBS_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "ODDSJOBS_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "ODDSJOBS_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "ODDSJOBS_SUPABASE_RUN_MIGRATIONS")
	setBool(&cfg.Supabase.WriteHistory, "ODDSJOBS_SUPABASE_WRITE_HISTORY")

	// ── Redis ──
	setStr(&cfg.Redis.URL, "ODDSJOBS_REDIS_URL")
	setStr(&cfg.Redis.Addr, "ODDSJOBS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ODDSJOBS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ODDSJOBS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ODDSJOBS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ODDSJOBS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ODDSJOBS_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.OddsTTL, "ODDSJOBS_REDIS_ODDS_TTL")
	setDuration(&cfg.Redis.GameLinesTTL, "ODDSJOBS_REDIS_GAME_LINES_TTL")
	setDuration(&cfg.Redis.LandingTTL, "ODDSJOBS_REDIS_LANDING_TTL")
	setDuration(&cfg.Redis.ArbTTL, "ODDSJOBS_REDIS_ARB_TTL")
	setDuration(&cfg.Redis.LockTTL, "ODDSJOBS_REDIS_LOCK_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ODDSJOBS_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ODDSJOBS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ODDSJOBS_S3_REGION")
	setStr(&cfg.S3.Bucket, "ODDSJOBS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ODDSJOBS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ODDSJOBS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ODDSJOBS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ODDSJOBS_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "ODDSJOBS_S3_PREFIX")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ODDSJOBS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ODDSJOBS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ODDSJOBS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ODDSJOBS_NOTIFY_EVENTS")

	// ── Schedule ──
	setStr(&cfg.Schedule.Timezone, "ODDSJOBS_SCHEDULE_TIMEZONE")

	// ── Top-level ──
	setStringSlice(&cfg.Jobs, "ODDSJOBS_JOBS")
	setStr(&cfg.Mode, "ODDSJOBS_MODE")
	setStr(&cfg.LogLevel, "ODDSJOBS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
