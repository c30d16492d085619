package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	// ArbCurrentKeys lists the keys written by the most recent arbitrage run.
	ArbCurrentKeys = "arb:current_keys"

	arbTimeLayout = "20060102_150405"
)

// ArbKey returns the cache key for one opportunity. The event id separates
// games with the same matchup on one day; the detection timestamp keeps
// successive runs from overwriting each other.
func ArbKey(opp domain.ArbOpportunity) string {
	event := ""
	if opp.EventID != "" {
		event = ":" + opp.EventID
	}
	return "arb:" + domain.Slug(opp.Sport) + event +
		":" + domain.Slug(opp.Description) +
		":" + domain.Slug(opp.Market) +
		":" + opp.Line +
		":" + opp.DetectedAt.UTC().Format(arbTimeLayout)
}

// ArbCache implements domain.ArbCache. Each opportunity lives under its own
// key and arb:current_keys indexes the live set.
type ArbCache struct {
	rdb *redis.Client
}

// NewArbCache creates an ArbCache backed by the given Client.
func NewArbCache(c *Client) *ArbCache {
	return &ArbCache{rdb: c.Underlying()}
}

// Replace writes opps and swaps the current-keys index to point at them.
// Keys from the previous index that are not rewritten are deleted. The new
// keys are returned in input order.
func (ac *ArbCache) Replace(ctx context.Context, opps []domain.ArbOpportunity, ttl time.Duration) ([]string, error) {
	previous, err := ac.currentKeys(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(opps))
	pipe := ac.rdb.TxPipeline()
	for _, opp := range opps {
		data, err := json.Marshal(opp)
		if err != nil {
			return nil, fmt.Errorf("redis: marshal arb %s: %w", opp.ID, err)
		}
		key := ArbKey(opp)
		pipe.Set(ctx, key, data, ttl)
		keys = append(keys, key)
	}

	index, err := json.Marshal(keys)
	if err != nil {
		return nil, fmt.Errorf("redis: marshal arb index: %w", err)
	}
	pipe.Set(ctx, ArbCurrentKeys, index, ttl)

	var stale []string
	for _, k := range previous {
		if !slices.Contains(keys, k) {
			stale = append(stale, k)
		}
	}
	if len(stale) > 0 {
		pipe.Del(ctx, stale...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis: replace arbs: %w", err)
	}
	return keys, nil
}

// Current returns the opportunities listed in the current-keys index. Entries
// that expired or fail to decode are left out.
func (ac *ArbCache) Current(ctx context.Context) ([]domain.ArbOpportunity, error) {
	keys, err := ac.currentKeys(ctx)
	if err != nil || len(keys) == 0 {
		return nil, err
	}

	vals, err := ac.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: mget arbs: %w", err)
	}

	out := make([]domain.ArbOpportunity, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var opp domain.ArbOpportunity
		if err := json.Unmarshal([]byte(s), &opp); err != nil {
			continue
		}
		out = append(out, opp)
	}
	return out, nil
}

func (ac *ArbCache) currentKeys(ctx context.Context) ([]string, error) {
	data, err := ac.rdb.Get(ctx, ArbCurrentKeys).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: get arb index: %w", err)
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		// A corrupt index only means stale keys are left to expire.
		return nil, nil
	}
	return keys, nil
}

// Compile-time interface check.
var _ domain.ArbCache = (*ArbCache)(nil)
