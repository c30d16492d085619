// Package config defines the top-level configuration for the odds batch jobs
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ODDSJOBS_* environment variables.
type Config struct {
	OddsAPI   OddsAPIConfig     `toml:"odds_api"`
	Sports    []SportConfig     `toml:"sports"`
	BookNames map[string]string `toml:"sportsbook_names"`
	Engine    EngineConfig      `toml:"engine"`
	Arbitrage ArbitrageConfig   `toml:"arbitrage"`
	Resolver  ResolverConfig    `toml:"resolver"`
	Supabase  SupabaseConfig    `toml:"supabase"`
	Redis     RedisConfig       `toml:"redis"`
	S3        S3Config          `toml:"s3"`
	Notify    NotifyConfig      `toml:"notify"`
	Schedule  ScheduleConfig    `toml:"schedule"`
	Jobs      []string          `toml:"jobs"`
	Mode      string            `toml:"mode"`
	LogLevel  string            `toml:"log_level"`
}

// OddsAPIConfig holds the upstream odds provider endpoint and request policy.
type OddsAPIConfig struct {
	BaseURL           string   `toml:"base_url"`
	APIKey            string   `toml:"api_key"`
	Regions           string   `toml:"regions"`
	Bookmakers        []string `toml:"bookmakers"`
	OddsFormat        string   `toml:"odds_format"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	Timeout           duration `toml:"timeout"`
	Lookahead         duration `toml:"lookahead"`
	Workers           int      `toml:"workers"`
	IncludeLinks      bool     `toml:"include_links"`
	IncludeSids       bool     `toml:"include_sids"`
}

// Sport kinds.
const (
	KindProps     = "props"
	KindGameLines = "game_lines"
)

// SportConfig describes one sport to fetch and scan.
type SportConfig struct {
	// Key is the odds provider's sport key, e.g. "baseball_mlb".
	Key string `toml:"key"`
	// CacheKey is the short name used in cache keys, e.g. "mlb".
	CacheKey string `toml:"cache_key"`
	Kind     string `toml:"kind"`
	Enabled  bool   `toml:"enabled"`
	// Markets maps provider market key to display name.
	Markets map[string]string `toml:"markets"`
	// Alternates lists base market keys that also have an "_alternate" or
	// "alternate_" feed to request and fold in.
	Alternates []string `toml:"alternates"`
	// Landing includes this sport in the landing page scan.
	Landing bool `toml:"landing"`
}

// EngineConfig holds consensus thresholds and output caps.
type EngineConfig struct {
	MinBooks     int `toml:"min_books"`
	MaxPerMarket int `toml:"max_per_market"`
	MaxTotal     int `toml:"max_total"`
	Workers      int `toml:"workers"`
}

// ArbitrageConfig holds arbitrage reporting parameters.
type ArbitrageConfig struct {
	MinProfitPct float64 `toml:"min_profit_pct"`
	Notify       bool    `toml:"notify"`
	NotifyMax    int     `toml:"notify_max"`
}

// ResolverConfig controls player name resolution.
type ResolverConfig struct {
	// OverridesFile is an optional TOML file of sport → name → id tables.
	OverridesFile string `toml:"overrides_file"`
	// Overrides are inline sport → name → id entries merged over the file.
	Overrides   map[string]map[string]string `toml:"overrides"`
	UseDatabase bool                         `toml:"use_database"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
	WriteHistory  bool   `toml:"write_history"`
}

// RedisConfig holds Redis connection parameters and key lifetimes.
type RedisConfig struct {
	// URL (redis:// or rediss://) takes precedence over Addr, Password and DB.
	URL          string   `toml:"url"`
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	OddsTTL      duration `toml:"odds_ttl"`
	GameLinesTTL duration `toml:"game_lines_ttl"`
	LandingTTL   duration `toml:"landing_ttl"`
	ArbTTL       duration `toml:"arb_ttl"`
	LockTTL      duration `toml:"lock_ttl"`
	WriteBatch   int      `toml:"write_batch"`
	StreamMaxLen int      `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// ScheduleConfig maps job names to cron expressions for schedule mode.
type ScheduleConfig struct {
	Timezone string            `toml:"timezone"`
	Jobs     map[string]string `toml:"jobs"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "3h", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "3h" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Job names.
const (
	JobProps     = "props"
	JobGameLines = "game_lines"
	JobLanding   = "landing"
	JobArbitrage = "arbitrage"
	JobArchive   = "archive"
)

var validJobs = map[string]bool{
	JobProps:     true,
	JobGameLines: true,
	JobLanding:   true,
	JobArbitrage: true,
	JobArchive:   true,
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		OddsAPI: OddsAPIConfig{
			BaseURL:           "https://api.the-odds-api.com/v4",
			Regions:           "us",
			Bookmakers:        []string{"draftkings", "fanduel", "betmgm", "williamhill_us", "espnbet", "fanatics", "hardrockbet", "betrivers", "novig", "ballybet", "pinnacle"},
			OddsFormat:        "american",
			RequestsPerSecond: 2,
			Burst:             4,
			Timeout:           duration{30 * time.Second},
			Lookahead:         duration{36 * time.Hour},
			Workers:           4,
			IncludeLinks:      true,
			IncludeSids:       true,
		},
		Sports: []SportConfig{
			{
				Key:      "baseball_mlb",
				CacheKey: "mlb",
				Kind:     KindProps,
				Enabled:  true,
				Landing:  true,
				Markets: map[string]string{
					"batter_hits":           "Hits",
					"batter_home_runs":      "Home Runs",
					"batter_total_bases":    "Total Bases",
					"batter_rbis":           "RBIs",
					"batter_runs_scored":    "Runs",
					"batter_strikeouts":     "Batting Strikeouts",
					"batter_walks":          "Batting Walks",
					"batter_singles":        "Singles",
					"batter_doubles":        "Doubles",
					"batter_triples":        "Triples",
					"batter_hits_runs_rbis": "Hits + Runs + RBIs",
					"pitcher_strikeouts":    "Strikeouts",
					"pitcher_hits_allowed":  "Hits Allowed",
					"pitcher_walks":         "Walks",
					"pitcher_earned_runs":   "Earned Runs",
					"pitcher_outs":          "Outs",
					"pitcher_record_a_win":  "Pitcher Win",
				},
				Alternates: []string{"batter_hits", "batter_home_runs", "batter_total_bases", "batter_rbis", "batter_triples", "pitcher_strikeouts", "pitcher_hits_allowed", "pitcher_walks"},
			},
			{
				Key:      "basketball_wnba",
				CacheKey: "wnba",
				Kind:     KindProps,
				Enabled:  true,
				Landing:  true,
				Markets: map[string]string{
					"player_points":                  "Points",
					"player_rebounds":                "Rebounds",
					"player_assists":                 "Assists",
					"player_threes":                  "Threes",
					"player_points_rebounds_assists": "PRA",
					"player_points_rebounds":         "Points + Rebounds",
					"player_points_assists":          "Points + Assists",
					"player_rebounds_assists":        "Rebounds + Assists",
					"player_double_double":           "Double Double",
					"player_blocks":                  "Blocks",
					"player_steals":                  "Steals",
					"player_turnovers":               "Turnovers",
				},
				Alternates: []string{"player_points", "player_rebounds", "player_assists", "player_threes", "player_points_rebounds_assists", "player_points_rebounds", "player_points_assists", "player_rebounds_assists", "player_blocks", "player_steals", "player_turnovers"},
			},
			{
				Key:      "baseball_mlb",
				CacheKey: "mlb",
				Kind:     KindGameLines,
				Enabled:  true,
				Markets: map[string]string{
					"h2h":                   "Moneyline",
					"spreads":               "Run Line",
					"totals":                "Total Runs",
					"h2h_1st_1_innings":     "1st Inning ML",
					"spreads_1st_1_innings": "1st Inning Spread",
					"totals_1st_1_innings":  "1st Inning Total",
				},
				Alternates: []string{"spreads", "totals", "spreads_1st_1_innings", "totals_1st_1_innings"},
			},
		},
		BookNames: map[string]string{
			"williamhill_us": "caesars",
			"espnbet":        "espn bet",
			"hardrockbet":    "hard rock bet",
			"ballybet":       "bally bet",
		},
		Engine: EngineConfig{
			MinBooks:     5,
			MaxPerMarket: 1,
			MaxTotal:     12,
			Workers:      4,
		},
		Arbitrage: ArbitrageConfig{
			MinProfitPct: 0.5,
			Notify:       false,
			NotifyMax:    5,
		},
		Resolver: ResolverConfig{
			Overrides:   map[string]map[string]string{},
			UseDatabase: true,
		},
		Supabase: SupabaseConfig{
			Enabled:       true,
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  1,
			RunMigrations: true,
			WriteHistory:  true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     20,
			MaxRetries:   3,
			OddsTTL:      duration{3 * time.Hour},
			GameLinesTTL: duration{6 * time.Hour},
			LandingTTL:   duration{3 * time.Hour},
			ArbTTL:       duration{3 * time.Hour},
			LockTTL:      duration{15 * time.Minute},
			WriteBatch:   50,
			StreamMaxLen: 10000,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "oddsjobs-snapshots",
			ForcePathStyle: true,
			Prefix:         "snapshots",
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected", "job_failed"},
		},
		Schedule: ScheduleConfig{
			Timezone: "America/New_York",
			Jobs: map[string]string{
				JobProps:     "*/30 8-23 * * *",
				JobGameLines: "*/30 8-23 * * *",
				JobLanding:   "5,35 8-23 * * *",
				JobArbitrage: "*/10 8-23 * * *",
				JobArchive:   "0 4 * * *",
			},
		},
		Jobs:     []string{JobProps, JobGameLines, JobLanding, JobArbitrage},
		Mode:     "once",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"once":     true,
	"schedule": true,
	"status":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// HasJob reports whether name is in the configured job list.
func (c *Config) HasJob(name string) bool {
	for _, j := range c.Jobs {
		if strings.EqualFold(j, name) {
			return true
		}
	}
	return false
}

// EnabledSports returns the enabled sports of the given kind.
func (c *Config) EnabledSports(kind string) []SportConfig {
	var out []SportConfig
	for _, s := range c.Sports {
		if s.Enabled && s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: once, schedule, status)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Jobs
	if len(c.Jobs) == 0 && c.Mode != "status" {
		errs = append(errs, "jobs: at least one job must be listed")
	}
	for _, j := range c.Jobs {
		if !validJobs[strings.ToLower(j)] {
			errs = append(errs, fmt.Sprintf("jobs: unknown job %q", j))
		}
	}

	// Odds API, only needed by the fetch jobs.
	if c.HasJob(JobProps) || c.HasJob(JobGameLines) {
		if c.OddsAPI.APIKey == "" {
			errs = append(errs, "odds_api: api_key is required for props and game_lines jobs")
		}
		if c.OddsAPI.BaseURL == "" {
			errs = append(errs, "odds_api: base_url must not be empty")
		}
		if c.OddsAPI.RequestsPerSecond <= 0 {
			errs = append(errs, "odds_api: requests_per_second must be > 0")
		}
		if c.OddsAPI.Workers < 1 {
			errs = append(errs, "odds_api: workers must be >= 1")
		}
		if c.OddsAPI.Lookahead.Duration <= 0 {
			errs = append(errs, "odds_api: lookahead must be > 0")
		}
	}

	// Sports
	for i, s := range c.Sports {
		if s.Key == "" || s.CacheKey == "" {
			errs = append(errs, fmt.Sprintf("sports[%d]: key and cache_key must be set", i))
		}
		if strings.Contains(s.CacheKey, ":") {
			errs = append(errs, fmt.Sprintf("sports[%d]: cache_key %q must not contain ':'", i, s.CacheKey))
		}
		if s.Kind != KindProps && s.Kind != KindGameLines {
			errs = append(errs, fmt.Sprintf("sports[%d]: kind must be %q or %q, got %q", i, KindProps, KindGameLines, s.Kind))
		}
		if s.Enabled && len(s.Markets) == 0 {
			errs = append(errs, fmt.Sprintf("sports[%d]: markets must not be empty", i))
		}
	}

	// Engine
	if c.Engine.MinBooks < 1 {
		errs = append(errs, "engine: min_books must be >= 1")
	}
	if c.Engine.MaxPerMarket < 1 {
		errs = append(errs, "engine: max_per_market must be >= 1")
	}
	if c.Engine.MaxTotal < 1 {
		errs = append(errs, "engine: max_total must be >= 1")
	}

	// Arbitrage
	if c.Arbitrage.MinProfitPct < 0 {
		errs = append(errs, "arbitrage: min_profit_pct must be >= 0")
	}

	// Supabase
	if c.Supabase.Enabled {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Host == "" {
				errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
			}
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
			}
			if c.Supabase.Database == "" {
				errs = append(errs, "supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			errs = append(errs, "supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
		}
	} else if c.Resolver.UseDatabase && c.HasJob(JobProps) {
		errs = append(errs, "resolver: use_database requires supabase.enabled")
	}

	// Redis
	if c.Redis.Addr == "" && c.Redis.URL == "" {
		errs = append(errs, "redis: addr or url must be set")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.OddsTTL.Duration <= 0 || c.Redis.LandingTTL.Duration <= 0 || c.Redis.ArbTTL.Duration <= 0 {
		errs = append(errs, "redis: odds_ttl, landing_ttl and arb_ttl must be > 0")
	}
	if c.Redis.LockTTL.Duration <= 0 {
		errs = append(errs, "redis: lock_ttl must be > 0")
	}

	// S3
	if c.S3.Enabled || c.HasJob(JobArchive) {
		if !c.S3.Enabled {
			errs = append(errs, "s3: archive job requires s3.enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Schedule
	if strings.EqualFold(c.Mode, "schedule") {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("schedule: bad timezone %q: %v", c.Schedule.Timezone, err))
		}
		for _, j := range c.Jobs {
			spec, ok := c.Schedule.Jobs[j]
			if !ok {
				errs = append(errs, fmt.Sprintf("schedule: no cron expression for job %q", j))
				continue
			}
			if _, err := cron.ParseStandard(spec); err != nil {
				errs = append(errs, fmt.Sprintf("schedule: job %q: %v", j, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
