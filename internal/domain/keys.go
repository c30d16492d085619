package domain

import "strings"

// Cache key layout shared by the writers (props, game_lines) and the readers
// (landing, arbitrage).
//
//	odds:{sport}:{subject_id}:{market}       player prop cell, market slug
//	odds:{sport}:{event_id}:{market_key}     game-line cell, provider key
const oddsPrefix = "odds:"

const (
	// ArbChannel is the pub/sub channel carrying one message per detected
	// arbitrage opportunity.
	ArbChannel = "arb:detected"
	// ArbStream is the durable stream of detected opportunities.
	ArbStream = "arb:stream"
)

// CellKey returns the cache key for c. Player props are keyed by subject,
// game lines by event.
func CellKey(c MarketCell) string {
	id, market := c.SubjectID, Slug(c.Market)
	if c.Kind == KindGame {
		id = c.EventID
		if c.MarketKey != "" {
			market = c.MarketKey
		}
	}
	return oddsPrefix + c.Sport + ":" + id + ":" + market
}

// OddsPattern returns the SCAN pattern matching every cell of sport.
func OddsPattern(sport string) string {
	return oddsPrefix + sport + ":*"
}

// Slug lowercases s and replaces spaces with underscores, for use inside a
// colon-delimited key.
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ":", "")
	return strings.Join(strings.Fields(s), "_")
}
