package odds

import (
	"fmt"

	"github.com/propscope/oddsjobs/internal/domain"
)

// BookPrice is one sportsbook's quote on one side.
type BookPrice struct {
	Book  string
	Price int
	SID   string
	Link  string
}

// Consensus summarizes the market for one side of one line.
type Consensus struct {
	AvgOdds     float64
	ImpliedProb float64
	EVPct       float64
	AvgDecimal  float64
	ValuePct    float64
	Best        BookPrice
	Books       int
}

// ComputeConsensus averages the quotes for one side. Zero prices are dropped
// before counting; fewer than minBooks remaining quotes returns
// ErrInsufficientLiquidity.
//
// AvgOdds is the plain mean of the American prices while AvgDecimal is the
// mean of each price's decimal conversion. The two are not expected to agree.
func ComputeConsensus(prices []BookPrice, minBooks int) (Consensus, error) {
	valid := make([]BookPrice, 0, len(prices))
	for _, p := range prices {
		if ValidateAmerican(p.Price) == nil {
			valid = append(valid, p)
		}
	}

	n := len(valid)
	if n == 0 || n < minBooks {
		return Consensus{}, fmt.Errorf("%w: %d books, need %d", ErrInsufficientLiquidity, n, minBooks)
	}

	sum := 0
	decSum := 0.0
	best := valid[0]
	for _, p := range valid {
		sum += p.Price
		decSum += ToDecimal(float64(p.Price))
		if p.Price > best.Price {
			best = p
		}
	}

	avgOdds := float64(sum) / float64(n)
	if avgOdds == 0 {
		return Consensus{}, fmt.Errorf("%w: quotes average to zero", ErrMalformedQuote)
	}

	p := ImpliedProbability(avgOdds)
	avgDecimal := decSum / float64(n)

	return Consensus{
		AvgOdds:     avgOdds,
		ImpliedProb: p,
		EVPct:       (p*ProfitUnitsPerStake(avgOdds) - (1 - p)) * 100,
		AvgDecimal:  avgDecimal,
		ValuePct:    (ToDecimal(float64(best.Price))/avgDecimal - 1) * 100,
		Best:        best,
		Books:       n,
	}, nil
}

// SidePrices collects every book's quote for side at one line, in book
// order. Books that quote the side at zero are returned separately.
func SidePrices(books domain.LineBook, side domain.Side) (prices []BookPrice, malformed []string) {
	for book, q := range books.All() {
		sq := q.Side(side)
		if sq == nil {
			continue
		}
		if ValidateAmerican(sq.Price) != nil {
			malformed = append(malformed, book)
			continue
		}
		prices = append(prices, BookPrice{Book: book, Price: sq.Price, SID: sq.SID, Link: sq.Link})
	}
	return prices, malformed
}
