package odds

import (
	"cmp"
	"slices"

	"github.com/propscope/oddsjobs/internal/domain"
)

// Rank orders results by ValuePct descending and keeps at most maxPerMarket
// per market name and maxTotal overall. Selection stops once maxTotal is
// reached. The input slice is not modified.
func Rank(results []domain.ConsensusResult, maxPerMarket, maxTotal int) []domain.ConsensusResult {
	if maxTotal <= 0 || maxPerMarket <= 0 {
		return nil
	}

	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b domain.ConsensusResult) int {
		return cmp.Compare(b.ValuePct, a.ValuePct)
	})

	out := make([]domain.ConsensusResult, 0, min(maxTotal, len(sorted)))
	perMarket := make(map[string]int)
	for _, r := range sorted {
		if perMarket[r.Market] >= maxPerMarket {
			continue
		}
		out = append(out, r)
		perMarket[r.Market]++
		if len(out) >= maxTotal {
			break
		}
	}
	return out
}
