// Package normalize turns raw Odds API event payloads into market cells: one
// per (player, market) for props and one per (event, market) for game lines.
package normalize

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/propscope/oddsjobs/internal/config"
)

const (
	propAltSuffix = "_alternate"
	gameAltPrefix = "alternate_"
)

// BaseMarket strips the alternate marker from a provider market key. Player
// prop feeds use a suffix ("batter_hits_alternate"), game-line feeds a prefix
// ("alternate_spreads").
func BaseMarket(key string) (base string, alternate bool) {
	if b, ok := strings.CutSuffix(key, propAltSuffix); ok {
		return b, true
	}
	if b, ok := strings.CutPrefix(key, gameAltPrefix); ok {
		return b, true
	}
	return key, false
}

// AlternateKey returns the provider key of the alternate feed for base.
func AlternateKey(kind, base string) string {
	if kind == config.KindGameLines {
		return gameAltPrefix + base
	}
	return base + propAltSuffix
}

// MarketsToRequest lists every provider market key to request for sport:
// each configured market plus the alternate feed of each listed alternate,
// sorted so requests are reproducible.
func MarketsToRequest(sport config.SportConfig) []string {
	keys := slices.Sorted(maps.Keys(sport.Markets))
	for _, base := range sport.Alternates {
		if _, ok := sport.Markets[base]; ok {
			keys = append(keys, AlternateKey(sport.Kind, base))
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// DisplayName returns the configured display name for a provider market key,
// folding alternate feeds into their base market. ok is false for markets the
// sport does not track.
func DisplayName(sport config.SportConfig, key string) (name string, alternate, ok bool) {
	base, alt := BaseMarket(key)
	name, ok = sport.Markets[base]
	return name, alt, ok
}

// FormatLine renders a point value as a line key. Whole numbers keep one
// decimal ("1.0") to match keys written by earlier cache loaders.
func FormatLine(point float64) string {
	if point == 0 {
		point = 0 // folds -0 into 0
	}
	s := strconv.FormatFloat(point, 'f', -1, 64)
	if !strings.Contains(s, ".") && !math.IsInf(point, 0) && !math.IsNaN(point) {
		s += ".0"
	}
	return s
}

// BookName maps a provider bookmaker key to the canonical sportsbook name
// used in cells. Keys without an entry in names are used as given.
func BookName(names map[string]string, key string) string {
	if n, ok := names[key]; ok && n != "" {
		return n
	}
	return key
}
