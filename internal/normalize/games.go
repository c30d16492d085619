package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/propscope/oddsjobs/internal/config"
	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/propscope/oddsjobs/internal/oddsapi"
)

// gameMarketType classifies a base game market key by its prefix, so period
// variants ("spreads_1st_1_innings") behave like the full-game market.
func gameMarketType(base string) string {
	switch {
	case strings.HasPrefix(base, "h2h"):
		return "h2h"
	case strings.HasPrefix(base, "spreads"):
		return "spreads"
	case strings.HasPrefix(base, "totals"):
		return "totals"
	}
	return ""
}

// GameCells groups one event's game-line outcomes into cells keyed by
// (event, base market). Two-way team markets put the home team in the over
// slot and the away team in the under slot: moneylines under the "standard"
// line, spreads under the home team's point. Totals use over/under as is.
// Draw outcomes are ignored.
func GameCells(
	ev oddsapi.EventOdds,
	sport config.SportConfig,
	bookNames map[string]string,
	now time.Time,
) ([]domain.MarketCell, []domain.ItemResult) {
	var (
		set   cellSet
		items []domain.ItemResult
	)

	for _, bm := range ev.Bookmakers {
		book := BookName(bookNames, bm.Key)
		for _, m := range bm.Markets {
			itemKey := fmt.Sprintf("event:%s:%s:%s", ev.ID, bm.Key, m.Key)
			display, alt, ok := DisplayName(sport, m.Key)
			base, _ := BaseMarket(m.Key)
			typ := gameMarketType(base)
			if !ok || typ == "" {
				items = append(items, skipped(itemKey, ReasonUnknownMarket))
				continue
			}

			for _, o := range m.Outcomes {
				side, line, ok := gameSlot(typ, o, ev)
				if !ok {
					if !strings.EqualFold(o.Name, "draw") {
						items = append(items, skipped(itemKey, ReasonUnknownSide))
					}
					continue
				}
				q, ok := quote(o, m, bm)
				if !ok {
					items = append(items, skipped(itemKey, ReasonMalformedQuote))
					continue
				}

				b := set.get(base, func() domain.MarketCell {
					c := domain.MarketCell{
						Kind:         domain.KindGame,
						Sport:        sport.CacheKey,
						SubjectID:    ev.ID,
						Description:  ev.AwayTeam + " @ " + ev.HomeTeam,
						Market:       display,
						MarketKey:    base,
						EventID:      ev.ID,
						HomeTeam:     ev.HomeTeam,
						AwayTeam:     ev.AwayTeam,
						CommenceTime: ev.CommenceTime,
						LastUpdated:  now,
					}
					if typ != "totals" {
						c.Outcomes = &domain.OutcomeNames{Over: ev.HomeTeam, Under: ev.AwayTeam}
					}
					return c
				})
				if alt {
					b.cell.HasAlternates = true
				}
				b.put(line, book, side, q)
			}
		}
	}

	cells, built := set.finish()
	return cells, append(items, built...)
}

// gameSlot returns the side and line key an outcome is stored under.
func gameSlot(typ string, o oddsapi.Outcome, ev oddsapi.EventOdds) (domain.Side, string, bool) {
	switch typ {
	case "totals":
		if o.Point == nil {
			return "", "", false
		}
		side, ok := propSide(o.Name)
		if !ok {
			return "", "", false
		}
		return side, FormatLine(*o.Point), true

	case "h2h":
		switch o.Name {
		case ev.HomeTeam:
			return domain.SideOver, domain.StandardLine, true
		case ev.AwayTeam:
			return domain.SideUnder, domain.StandardLine, true
		}

	case "spreads":
		if o.Point == nil {
			return "", "", false
		}
		// Both outcomes share the home team's point: home -1.5 pairs with
		// away +1.5 under line "-1.5".
		switch o.Name {
		case ev.HomeTeam:
			return domain.SideOver, FormatLine(*o.Point), true
		case ev.AwayTeam:
			return domain.SideUnder, FormatLine(-*o.Point), true
		}
	}
	return "", "", false
}
