package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/redis/go-redis/v9"
)

// LandingKey holds the ranked list shown on the landing page.
const LandingKey = "landing:top_ev"

// LandingCache implements domain.LandingCache with a single JSON string key.
type LandingCache struct {
	rdb *redis.Client
}

// NewLandingCache creates a LandingCache backed by the given Client.
func NewLandingCache(c *Client) *LandingCache {
	return &LandingCache{rdb: c.Underlying()}
}

// SetTop replaces the landing list. An empty list is written as "[]" so the
// frontend sees that the run happened and found nothing.
func (lc *LandingCache) SetTop(ctx context.Context, results []domain.ConsensusResult, ttl time.Duration) error {
	if results == nil {
		results = []domain.ConsensusResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("redis: marshal landing: %w", err)
	}
	if err := lc.rdb.Set(ctx, LandingKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set landing: %w", err)
	}
	return nil
}

// GetTop returns the current landing list, or domain.ErrNotFound when it has
// expired or was never written.
func (lc *LandingCache) GetTop(ctx context.Context) ([]domain.ConsensusResult, error) {
	data, err := lc.rdb.Get(ctx, LandingKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get landing: %w", err)
	}

	var out []domain.ConsensusResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("redis: unmarshal landing: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.LandingCache = (*LandingCache)(nil)
