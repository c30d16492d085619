package odds

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/propscope/oddsjobs/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Config holds the engine thresholds.
type Config struct {
	MinBooks        int
	MaxPerMarket    int
	MaxTotal        int
	MinArbProfitPct float64
	Workers         int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinBooks:        5,
		MaxPerMarket:    1,
		MaxTotal:        12,
		MinArbProfitPct: 0.5,
		Workers:         1,
	}
}

// Engine evaluates market cells. It keeps no state between calls.
type Engine struct {
	cfg Config
}

// NewEngine returns an Engine. Non-positive thresholds fall back to
// DefaultConfig values; MinArbProfitPct is taken as given.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MinBooks <= 0 {
		cfg.MinBooks = def.MinBooks
	}
	if cfg.MaxPerMarket <= 0 {
		cfg.MaxPerMarket = def.MaxPerMarket
	}
	if cfg.MaxTotal <= 0 {
		cfg.MaxTotal = def.MaxTotal
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluation is the per-item outcome of evaluating one or more cells.
type Evaluation struct {
	Results []domain.ConsensusResult
	Items   []domain.ItemResult
}

// Evaluate computes the consensus for both sides of cell at its primary line.
// A missing stored primary line is recomputed from the cell's lines. One that
// is set but absent or unpriced is recomputed too, and the replacement is
// recorded as a stale_primary_line item under {key}#primary.
func (e *Engine) Evaluate(cell domain.MarketCell) Evaluation {
	var ev Evaluation

	line, books, err := resolvePrimary(cell)
	if err != nil {
		ev.Items = append(ev.Items, skip(cell.Key, err))
		return ev
	}
	if cell.PrimaryLine != "" && line != cell.PrimaryLine {
		ev.Items = append(ev.Items, skip(cell.Key+"#primary",
			fmt.Errorf("%w: stored %s, using %s", ErrStalePrimaryLine, cell.PrimaryLine, line)))
	}

	for _, side := range domain.Sides {
		key := cell.Key + "#" + string(side)
		prices, malformed := SidePrices(books, side)
		for _, book := range malformed {
			ev.Items = append(ev.Items, skip(key+"#"+book, ErrMalformedQuote))
		}

		c, err := ComputeConsensus(prices, e.cfg.MinBooks)
		if err != nil {
			ev.Items = append(ev.Items, skip(key, err))
			continue
		}

		ev.Results = append(ev.Results, consensusResult(cell, side, line, c, prices))
		ev.Items = append(ev.Items, domain.ItemResult{Key: key, Status: domain.ItemOK})
	}
	return ev
}

// EvaluateAll evaluates every cell and returns results in input order. One
// cell's failure never affects another. Cells are fanned out over
// Config.Workers goroutines.
func (e *Engine) EvaluateAll(cells []domain.MarketCell) Evaluation {
	per := make([]Evaluation, len(cells))

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for i := range cells {
		g.Go(func() error {
			per[i] = e.Evaluate(cells[i])
			return nil
		})
	}
	_ = g.Wait()

	var out Evaluation
	for _, ev := range per {
		out.Results = append(out.Results, ev.Results...)
		out.Items = append(out.Items, ev.Items...)
	}
	return out
}

// Top ranks results using the configured caps.
func (e *Engine) Top(results []domain.ConsensusResult) []domain.ConsensusResult {
	return Rank(results, e.cfg.MaxPerMarket, e.cfg.MaxTotal)
}

// ArbScan is the outcome of checking cells for arbitrage.
type ArbScan struct {
	Opportunities []domain.ArbOpportunity
	Items         []domain.ItemResult
}

// FindArbitrage checks every line of cell. Lines missing a side are skipped;
// opportunities below MinArbProfitPct are reported as skipped items.
func (e *Engine) FindArbitrage(cell domain.MarketCell) ArbScan {
	var scan ArbScan
	if cell.Lines.Len() == 0 {
		scan.Items = append(scan.Items, skip(cell.Key, ErrNoPrimaryLine))
		return scan
	}

	for line, books := range cell.Lines.All() {
		key := cell.Key + "@" + line
		res, err := Arbitrage(books)
		if err != nil {
			scan.Items = append(scan.Items, skip(key, err))
			continue
		}
		if !res.Exists {
			scan.Items = append(scan.Items, domain.ItemResult{Key: key, Status: domain.ItemOK})
			continue
		}
		if res.ProfitPct < e.cfg.MinArbProfitPct {
			scan.Items = append(scan.Items, domain.ItemResult{
				Key: key, Status: domain.ItemSkipped, Reason: "below_min_profit",
			})
			continue
		}

		scan.Opportunities = append(scan.Opportunities, arbOpportunity(cell, line, res))
		scan.Items = append(scan.Items, domain.ItemResult{Key: key, Status: domain.ItemOK})
	}
	return scan
}

// ScanArbitrage runs FindArbitrage over cells and sorts the opportunities by
// profit, highest first.
func (e *Engine) ScanArbitrage(cells []domain.MarketCell) ArbScan {
	per := make([]ArbScan, len(cells))

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for i := range cells {
		g.Go(func() error {
			per[i] = e.FindArbitrage(cells[i])
			return nil
		})
	}
	_ = g.Wait()

	var out ArbScan
	for _, s := range per {
		out.Opportunities = append(out.Opportunities, s.Opportunities...)
		out.Items = append(out.Items, s.Items...)
	}
	slices.SortStableFunc(out.Opportunities, func(a, b domain.ArbOpportunity) int {
		return cmp.Compare(b.ProfitPct, a.ProfitPct)
	})
	return out
}

func resolvePrimary(cell domain.MarketCell) (string, domain.LineBook, error) {
	if cell.PrimaryLine != "" {
		if books, ok := cell.Lines.Get(cell.PrimaryLine); ok && Coverage(books) > 0 {
			return cell.PrimaryLine, books, nil
		}
	}
	line, ok := PrimaryLine(cell.Lines)
	if !ok {
		return "", domain.LineBook{}, fmt.Errorf("%w: %d lines", ErrNoPrimaryLine, cell.Lines.Len())
	}
	books, _ := cell.Lines.Get(line)
	return line, books, nil
}

func skip(key string, err error) domain.ItemResult {
	status := domain.ItemSkipped
	if errors.Is(err, ErrMalformedCell) {
		status = domain.ItemFailed
	}
	return domain.ItemResult{Key: key, Status: status, Reason: Reason(err), Err: err.Error()}
}

func consensusResult(cell domain.MarketCell, side domain.Side, line string, c Consensus, prices []BookPrice) domain.ConsensusResult {
	sources := make([]domain.Source, len(prices))
	for i, p := range prices {
		sources[i] = domain.Source{Book: p.Book, Price: p.Price, SID: p.SID, Link: p.Link}
	}
	return domain.ConsensusResult{
		Sport:        cell.Sport,
		SubjectID:    cell.SubjectID,
		Description:  cell.Description,
		Team:         cell.Team,
		Market:       cell.Market,
		Side:         side,
		SideLabel:    cell.SideLabel(side),
		Line:         line,
		AvgOdds:      c.AvgOdds,
		ImpliedProb:  c.ImpliedProb,
		EVPct:        c.EVPct,
		AvgDecimal:   c.AvgDecimal,
		ValuePct:     c.ValuePct,
		BestBook:     c.Best.Book,
		BestPrice:    c.Best.Price,
		BestLink:     c.Best.Link,
		Books:        c.Books,
		EventID:      cell.EventID,
		CommenceTime: cell.CommenceTime,
		Sources:      sources,
	}
}

func arbOpportunity(cell domain.MarketCell, line string, res ArbResult) domain.ArbOpportunity {
	over, under := res.Over, res.Under
	over.Label = cell.SideLabel(domain.SideOver)
	under.Label = cell.SideLabel(domain.SideUnder)
	return domain.ArbOpportunity{
		Sport:        cell.Sport,
		Kind:         cell.Kind,
		SubjectID:    cell.SubjectID,
		Description:  cell.Description,
		Team:         cell.Team,
		Market:       cell.Market,
		Line:         line,
		EventID:      cell.EventID,
		CommenceTime: cell.CommenceTime,
		TotalImplied: res.TotalImplied,
		ProfitPct:    res.ProfitPct,
		Over:         over,
		Under:        under,
	}
}
