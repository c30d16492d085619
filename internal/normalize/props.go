package normalize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/propscope/oddsjobs/internal/config"
	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/propscope/oddsjobs/internal/oddsapi"
)

// propSide maps a prop outcome name to its slot. Yes/no markets (pitcher
// win, double double) use the over slot for "yes".
func propSide(name string) (domain.Side, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "over", "yes":
		return domain.SideOver, true
	case "under", "no":
		return domain.SideUnder, true
	}
	return "", false
}

// PropCells groups one event's player prop outcomes into cells keyed by
// (player, base market). Alternate feeds fold into their base market and
// set HasAlternates. Players the resolver cannot match are skipped and
// reported once per name. A resolver error other than domain.ErrNotFound
// aborts the event.
func PropCells(
	ctx context.Context,
	ev oddsapi.EventOdds,
	sport config.SportConfig,
	resolver domain.SubjectResolver,
	bookNames map[string]string,
	now time.Time,
) ([]domain.MarketCell, []domain.ItemResult, error) {
	var (
		set      cellSet
		items    []domain.ItemResult
		subjects = map[string]*domain.Subject{}
	)

	resolve := func(name string) (*domain.Subject, error) {
		if s, ok := subjects[name]; ok {
			return s, nil
		}
		s, err := resolver.Resolve(ctx, sport.CacheKey, name)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			subjects[name] = nil
			items = append(items, skipped(fmt.Sprintf("event:%s:player:%s", ev.ID, name), ReasonUnmatchedSubject))
			return nil, nil
		case err != nil:
			return nil, fmt.Errorf("normalize: resolve %q: %w", name, err)
		}
		subjects[name] = &s
		return &s, nil
	}

	for _, bm := range ev.Bookmakers {
		book := BookName(bookNames, bm.Key)
		for _, m := range bm.Markets {
			display, alt, ok := DisplayName(sport, m.Key)
			if !ok {
				items = append(items, skipped(fmt.Sprintf("event:%s:%s:%s", ev.ID, bm.Key, m.Key), ReasonUnknownMarket))
				continue
			}
			base, _ := BaseMarket(m.Key)

			for _, o := range m.Outcomes {
				if strings.TrimSpace(o.Description) == "" {
					continue
				}
				subj, err := resolve(o.Description)
				if err != nil {
					return nil, nil, err
				}
				if subj == nil {
					continue
				}

				itemKey := fmt.Sprintf("event:%s:%s:%s:%s", ev.ID, bm.Key, m.Key, subj.ID)
				side, ok := propSide(o.Name)
				if !ok {
					items = append(items, skipped(itemKey, ReasonUnknownSide))
					continue
				}
				q, ok := quote(o, m, bm)
				if !ok {
					items = append(items, skipped(itemKey, ReasonMalformedQuote))
					continue
				}

				line := domain.StandardLine
				if o.Point != nil {
					line = FormatLine(*o.Point)
				}

				b := set.get(subj.ID+"\x00"+base, func() domain.MarketCell {
					return domain.MarketCell{
						Kind:         domain.KindProp,
						Sport:        sport.CacheKey,
						SubjectID:    subj.ID,
						Description:  o.Description,
						Team:         subj.Team,
						TeamName:     subj.TeamName,
						Market:       display,
						MarketKey:    base,
						EventID:      ev.ID,
						HomeTeam:     ev.HomeTeam,
						AwayTeam:     ev.AwayTeam,
						CommenceTime: ev.CommenceTime,
						LastUpdated:  now,
					}
				})
				if alt {
					b.cell.HasAlternates = true
				}
				b.put(line, book, side, q)
			}
		}
	}

	cells, built := set.finish()
	return cells, append(items, built...), nil
}
