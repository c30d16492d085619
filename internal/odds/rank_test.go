package odds

import (
	"fmt"
	"testing"

	"github.com/propscope/oddsjobs/internal/domain"
)

func TestRankCaps(t *testing.T) {
	// 20 results spread over 8 markets.
	var results []domain.ConsensusResult
	for i := 0; i < 20; i++ {
		results = append(results, domain.ConsensusResult{
			SubjectID: fmt.Sprintf("p%d", i),
			Market:    fmt.Sprintf("market-%d", i%8),
			ValuePct:  float64((i*37)%23) - 5,
		})
	}

	tests := []struct {
		name         string
		maxPerMarket int
		maxTotal     int
		wantLen      int
	}{
		{"one per market", 1, 12, 8},
		{"two per market", 2, 12, 12},
		{"total cap", 3, 5, 5},
		{"zero total", 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Rank(results, tt.maxPerMarket, tt.maxTotal)
			if len(out) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(out), tt.wantLen)
			}

			counts := map[string]int{}
			for i, r := range out {
				counts[r.Market]++
				if counts[r.Market] > tt.maxPerMarket {
					t.Errorf("market %s appears %d times", r.Market, counts[r.Market])
				}
				if i > 0 && out[i-1].ValuePct < r.ValuePct {
					t.Errorf("not sorted at %d: %v < %v", i, out[i-1].ValuePct, r.ValuePct)
				}
				if out[0].ValuePct < r.ValuePct {
					t.Errorf("first record %v below %v", out[0].ValuePct, r.ValuePct)
				}
			}
		})
	}
}

func TestRankFirstSeenWinsMarketSlot(t *testing.T) {
	results := []domain.ConsensusResult{
		{SubjectID: "a", Market: "Hits", ValuePct: 4},
		{SubjectID: "b", Market: "Hits", ValuePct: 9},
		{SubjectID: "c", Market: "Strikeouts", ValuePct: 9},
		{SubjectID: "d", Market: "Hits", ValuePct: 9},
	}

	out := Rank(results, 1, 12)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].SubjectID != "b" || out[1].SubjectID != "c" {
		t.Errorf("got %s,%s; want b,c", out[0].SubjectID, out[1].SubjectID)
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	results := []domain.ConsensusResult{
		{SubjectID: "a", Market: "Hits", ValuePct: 1},
		{SubjectID: "b", Market: "Runs", ValuePct: 3},
	}
	_ = Rank(results, 1, 12)
	if results[0].SubjectID != "a" {
		t.Errorf("input reordered")
	}
}
