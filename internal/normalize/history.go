package normalize

import (
	"time"

	"github.com/propscope/oddsjobs/internal/domain"
)

// HistoryRows flattens cells into one row per (line, book) for the odds
// history table. Books with no price on either side are left out.
func HistoryRows(cells []domain.MarketCell, createdAt time.Time) []domain.OddsHistoryRow {
	var rows []domain.OddsHistoryRow
	for _, c := range cells {
		for line, books := range c.Lines.All() {
			for book, q := range books.All() {
				if !q.Priced() {
					continue
				}
				rows = append(rows, domain.OddsHistoryRow{
					Sport:        c.Sport,
					EventID:      c.EventID,
					SubjectID:    c.SubjectID,
					Market:       c.Market,
					Line:         line,
					Sportsbook:   book,
					OverPrice:    price(q.Over),
					UnderPrice:   price(q.Under),
					CommenceTime: c.CommenceTime,
					CreatedAt:    createdAt,
				})
			}
		}
	}
	return rows
}

func price(q *domain.Quote) *int {
	if q == nil || q.Price == 0 {
		return nil
	}
	p := q.Price
	return &p
}
