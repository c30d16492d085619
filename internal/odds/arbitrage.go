package odds

import (
	"fmt"

	"github.com/propscope/oddsjobs/internal/domain"
)

// ArbResult is the two-way arbitrage check for one line.
type ArbResult struct {
	Exists       bool
	TotalImplied float64
	ProfitPct    float64
	Over         domain.ArbLeg
	Under        domain.ArbLeg
}

// BestPrice returns the highest American price on side across the books,
// first book wins ties. Zero prices are ignored.
func BestPrice(books domain.LineBook, side domain.Side) (BookPrice, bool) {
	prices, _ := SidePrices(books, side)
	if len(prices) == 0 {
		return BookPrice{}, false
	}
	best := prices[0]
	for _, p := range prices[1:] {
		if p.Price > best.Price {
			best = p
		}
	}
	return best, true
}

// Arbitrage checks whether backing the best over and the best under (each
// possibly at a different book) locks in a profit. A line missing a priced
// quote on either side returns ErrIncompleteTwoSided. When no arbitrage
// exists the result has Exists false and stake fields left at zero.
func Arbitrage(books domain.LineBook) (ArbResult, error) {
	over, okOver := BestPrice(books, domain.SideOver)
	under, okUnder := BestPrice(books, domain.SideUnder)
	if !okOver || !okUnder {
		return ArbResult{}, fmt.Errorf("%w: over=%t under=%t", ErrIncompleteTwoSided, okOver, okUnder)
	}

	decOver := ToDecimal(float64(over.Price))
	decUnder := ToDecimal(float64(under.Price))
	total := 1/decOver + 1/decUnder

	res := ArbResult{
		TotalImplied: total,
		Over:         leg(domain.SideOver, over, decOver),
		Under:        leg(domain.SideUnder, under, decUnder),
	}
	if total >= 1 {
		return res, nil
	}

	res.Exists = true
	res.ProfitPct = (1 - total) / total * 100
	res.Over.StakePct = (1 / decOver) / total * 100
	res.Under.StakePct = (1 / decUnder) / total * 100
	return res, nil
}

func leg(side domain.Side, p BookPrice, dec float64) domain.ArbLeg {
	return domain.ArbLeg{
		Side:    side,
		Label:   string(side),
		Book:    p.Book,
		Odds:    p.Price,
		Decimal: dec,
		SID:     p.SID,
		Link:    p.Link,
	}
}
