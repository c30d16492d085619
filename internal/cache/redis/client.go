// Package redis implements the domain cache interfaces using go-redis/v9.
//
// Key schema:
//
//	odds:{sport}:{subject_id}:{market}       MarketCell JSON, odds_ttl
//	odds:{sport}:{event_id}:{market_key}     game-line MarketCell JSON
//	landing:top_ev                           ranked []ConsensusResult JSON
//	arb:{sport}:{event_id}:{subject}:{market}:{line}:{ts}  one ArbOpportunity JSON
//	arb:current_keys                         JSON list of live arb keys
//	arb:stream                               stream of detected arbs
//	lock:job:{name}                          per-job run lock
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ClientConfig selects the Redis server. URL, when set, supplies the
// address, credentials, database and TLS mode; PoolSize and MaxRetries
// still apply on top of it.
type ClientConfig struct {
	URL        string
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// options translates cfg into go-redis options.
func (cfg ClientConfig) options() (*redis.Options, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MaxRetries != 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.TLSEnabled && opts.TLSConfig == nil {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// Client owns the connection pool shared by the caches, the lock manager
// and the event bus.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and fails fast if the server does not answer PING.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Close releases the pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying exposes the driver to the cache implementations in this package.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
