package normalize

import (
	"math"
	"time"

	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/propscope/oddsjobs/internal/odds"
	"github.com/propscope/oddsjobs/internal/oddsapi"
)

// Skip reasons recorded while building cells.
const (
	ReasonUnmatchedSubject = "unmatched_subject"
	ReasonUnknownMarket    = "unknown_market"
	ReasonUnknownSide      = "unknown_side"
	ReasonMalformedQuote   = "malformed_quote"
	ReasonNoPrimaryLine    = "no_primary_line"
)

// InWindow reports whether ev starts between now and now+lookahead inclusive.
func InWindow(ev oddsapi.Event, now time.Time, lookahead time.Duration) bool {
	return !ev.CommenceTime.Before(now) && !ev.CommenceTime.After(now.Add(lookahead))
}

// cellBuilder accumulates quotes for one cell in arrival order.
type cellBuilder struct {
	cell domain.MarketCell
}

func (b *cellBuilder) put(line, book string, side domain.Side, q domain.Quote) {
	lb, _ := b.cell.Lines.Get(line)
	bq, _ := lb.Get(book)
	if side == domain.SideUnder {
		bq.Under = &q
	} else {
		bq.Over = &q
	}
	lb.Set(book, bq)
	b.cell.Lines.Set(line, lb)
}

// cellSet keeps builders keyed by cell identity, in first-seen order.
type cellSet struct {
	builders domain.Ordered[*cellBuilder]
}

func (s *cellSet) get(id string, init func() domain.MarketCell) *cellBuilder {
	if b, ok := s.builders.Get(id); ok {
		return b
	}
	b := &cellBuilder{cell: init()}
	s.builders.Set(id, b)
	return b
}

// finish sets the primary line and cache key on every cell. Cells with no
// priced line are dropped and reported.
func (s *cellSet) finish() ([]domain.MarketCell, []domain.ItemResult) {
	var (
		cells []domain.MarketCell
		items []domain.ItemResult
	)
	for _, b := range s.builders.All() {
		c := b.cell
		c.Key = domain.CellKey(c)
		line, ok := odds.PrimaryLine(c.Lines)
		if !ok {
			items = append(items, domain.ItemResult{Key: c.Key, Status: domain.ItemSkipped, Reason: ReasonNoPrimaryLine})
			continue
		}
		c.PrimaryLine = line
		cells = append(cells, c)
		items = append(items, domain.ItemResult{Key: c.Key, Status: domain.ItemOK})
	}
	return cells, items
}

// quote converts a provider outcome into a cell quote. ok is false for zero,
// non-finite or absurd prices.
func quote(o oddsapi.Outcome, m oddsapi.Market, bm oddsapi.Bookmaker) (domain.Quote, bool) {
	if o.Price == 0 || math.IsNaN(o.Price) || math.IsInf(o.Price, 0) || math.Abs(o.Price) > 1_000_000 {
		return domain.Quote{}, false
	}
	price := int(math.Round(o.Price))
	if price == 0 {
		return domain.Quote{}, false
	}

	link := o.Link
	if link == "" {
		link = m.Link
	}
	if link == "" {
		link = bm.Link
	}
	q := domain.Quote{Price: price, SID: o.SID, Link: link}
	if !m.LastUpdate.IsZero() {
		q.LastUpdate = m.LastUpdate.UTC().Format(time.RFC3339)
	}
	return q, true
}

func skipped(key, reason string) domain.ItemResult {
	return domain.ItemResult{Key: key, Status: domain.ItemSkipped, Reason: reason}
}
