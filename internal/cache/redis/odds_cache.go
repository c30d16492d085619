package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultWriteBatch = 50
	scanCount         = 500
	mgetChunk         = 500
)

// OddsCache implements domain.OddsCache. Each MarketCell is stored as JSON
// under domain.CellKey with SET EX; writes are pipelined in batches.
type OddsCache struct {
	rdb        *redis.Client
	writeBatch int
}

// NewOddsCache creates an OddsCache. writeBatch bounds how many SETs go into
// one pipeline round trip; non-positive values use 50.
func NewOddsCache(c *Client, writeBatch int) *OddsCache {
	if writeBatch <= 0 {
		writeBatch = defaultWriteBatch
	}
	return &OddsCache{rdb: c.Underlying(), writeBatch: writeBatch}
}

// PutCells writes every cell with the given TTL and returns how many were
// written. A cell that fails to marshal aborts the call before anything in
// its batch is sent.
func (oc *OddsCache) PutCells(ctx context.Context, cells []domain.MarketCell, ttl time.Duration) (int, error) {
	written := 0
	for batch := range slices.Chunk(cells, oc.writeBatch) {
		pipe := oc.rdb.Pipeline()
		for _, cell := range batch {
			key := cell.Key
			if key == "" {
				key = domain.CellKey(cell)
			}
			data, err := json.Marshal(cell)
			if err != nil {
				return written, fmt.Errorf("redis: marshal cell %s: %w", key, err)
			}
			pipe.Set(ctx, key, data, ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return written, fmt.Errorf("redis: put cells: %w", err)
		}
		written += len(batch)
	}
	return written, nil
}

// ScanKeys returns every key matching pattern, sorted so downstream
// processing order does not depend on SCAN's cursor order.
func (oc *OddsCache) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := oc.rdb.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis: scan %s: %w", pattern, err)
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

// GetRaw reads keys with chunked MGET. Keys that expired between the scan and
// the read are omitted from the result.
func (oc *OddsCache) GetRaw(ctx context.Context, keys []string) ([]domain.RawEntry, error) {
	out := make([]domain.RawEntry, 0, len(keys))
	for chunk := range slices.Chunk(keys, mgetChunk) {
		vals, err := oc.rdb.MGet(ctx, chunk...).Result()
		if err != nil {
			return out, fmt.Errorf("redis: mget %d keys: %w", len(chunk), err)
		}
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				continue
			}
			out = append(out, domain.RawEntry{Key: chunk[i], Data: []byte(s)})
		}
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.OddsCache = (*OddsCache)(nil)
