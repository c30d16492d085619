package domain

import (
	"context"
	"time"
)

// RawEntry is an undecoded cache value and the key it was read from.
type RawEntry struct {
	Key  string
	Data []byte
}

// OddsCache stores normalized market cells, one key per cell.
type OddsCache interface {
	PutCells(ctx context.Context, cells []MarketCell, ttl time.Duration) (int, error)
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	GetRaw(ctx context.Context, keys []string) ([]RawEntry, error)
}

// LandingCache holds the ranked top-value list shown on the landing page.
type LandingCache interface {
	SetTop(ctx context.Context, results []ConsensusResult, ttl time.Duration) error
	GetTop(ctx context.Context) ([]ConsensusResult, error)
}

// ArbCache holds the current set of arbitrage opportunities.
type ArbCache interface {
	Replace(ctx context.Context, opps []ArbOpportunity, ttl time.Duration) ([]string, error)
	Current(ctx context.Context) ([]ArbOpportunity, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// EventBus fans out job events over pub/sub and a durable stream.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}
