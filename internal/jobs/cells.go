package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/propscope/oddsjobs/internal/odds"
)

// loadCells reads every cached cell of sports. When only is set, cells of
// any other kind are dropped. A value that does not decode is recorded as a
// failed item and left out; the rest of the batch loads.
func loadCells(ctx context.Context, cache domain.OddsCache, sports []string, only domain.CellKind, s *domain.BatchSummary) ([]domain.MarketCell, error) {
	var cells []domain.MarketCell
	for _, sport := range sports {
		keys, err := cache.ScanKeys(ctx, domain.OddsPattern(sport))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", sport, err)
		}
		if len(keys) == 0 {
			continue
		}

		entries, err := cache.GetRaw(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("read %s cells: %w", sport, err)
		}

		for _, e := range entries {
			var c domain.MarketCell
			if err := json.Unmarshal(e.Data, &c); err != nil {
				s.Record(domain.ItemResult{
					Key:    e.Key,
					Status: domain.ItemFailed,
					Reason: odds.Reason(odds.ErrMalformedCell),
					Err:    err.Error(),
				})
				continue
			}
			if only != "" && c.EffectiveKind() != only {
				continue
			}
			c.Key = e.Key
			cells = append(cells, c)
		}
	}
	return cells, nil
}

// uniqueSports returns the distinct names in order of first appearance.
func uniqueSports(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
