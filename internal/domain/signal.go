package domain

import "time"

// ArbLeg is one side of a two-way arbitrage: the best price found on that
// side and the share of the total stake it should receive.
type ArbLeg struct {
	Side     Side    `json:"side"`
	Label    string  `json:"label"`
	Book     string  `json:"book"`
	Odds     int     `json:"odds"`
	Decimal  float64 `json:"decimal"`
	StakePct float64 `json:"stake_pct"`
	SID      string  `json:"sid,omitempty"`
	Link     string  `json:"link,omitempty"`
}

// ArbOpportunity is a two-sided line whose best over and best under prices
// imply a combined probability below one. It is ephemeral; the cache TTL
// bounds its lifetime.
type ArbOpportunity struct {
	ID           string    `json:"id"`
	Sport        string    `json:"sport"`
	Kind         CellKind  `json:"kind"`
	SubjectID    string    `json:"player_id"`
	Description  string    `json:"description"`
	Team         string    `json:"team,omitempty"`
	Market       string    `json:"market"`
	Line         string    `json:"line"`
	EventID      string    `json:"event_id"`
	CommenceTime time.Time `json:"commence_time"`
	TotalImplied float64   `json:"total_implied"`
	ProfitPct    float64   `json:"profit_pct"`
	Over         ArbLeg    `json:"over"`
	Under        ArbLeg    `json:"under"`
	DetectedAt   time.Time `json:"detected_at"`
}
