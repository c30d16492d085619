package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Side identifies one half of a two-way market. Player props use over/under
// directly; two-outcome game markets store the home outcome in the over slot
// and the away outcome in the under slot.
type Side string

const (
	SideOver  Side = "over"
	SideUnder Side = "under"
)

// Sides lists both sides in evaluation order.
var Sides = [2]Side{SideOver, SideUnder}

// CellKind distinguishes player-prop cells from game-line cells.
type CellKind string

const (
	KindProp CellKind = "prop"
	KindGame CellKind = "game"
)

// StandardLine is the line key used for markets with no numeric point
// (moneylines).
const StandardLine = "standard"

// Quote is one sportsbook's American-odds price for one side of one line.
type Quote struct {
	Price      int    `json:"price"`
	SID        string `json:"sid,omitempty"`
	Link       string `json:"link,omitempty"`
	LastUpdate string `json:"last_update,omitempty"`
}

// UnmarshalJSON accepts the price as a JSON number or numeric string. A price
// that cannot be read as a finite number decodes to 0, which downstream code
// treats as a malformed quote and drops on its own.
func (q *Quote) UnmarshalJSON(data []byte) error {
	var raw struct {
		Price      json.RawMessage `json:"price"`
		SID        string          `json:"sid"`
		Link       string          `json:"link"`
		LastUpdate string          `json:"last_update"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*q = Quote{
		Price:      parsePrice(raw.Price),
		SID:        raw.SID,
		Link:       raw.Link,
		LastUpdate: raw.LastUpdate,
	}
	return nil
}

// maxAbsPrice rejects values no sportsbook would post.
const maxAbsPrice = 1_000_000

func parsePrice(raw json.RawMessage) int {
	s := string(bytes.Trim(bytes.TrimSpace(raw), `"`))
	if s == "" || s == "null" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxAbsPrice {
		return 0
	}
	return int(math.Round(f))
}

// BookQuotes holds a single sportsbook's prices on both sides of one line.
type BookQuotes struct {
	Over  *Quote `json:"over,omitempty"`
	Under *Quote `json:"under,omitempty"`
}

// Side returns the quote for s, or nil when the book does not price it.
func (b BookQuotes) Side(s Side) *Quote {
	if s == SideUnder {
		return b.Under
	}
	return b.Over
}

// Priced reports whether the book posts a nonzero price on either side.
func (b BookQuotes) Priced() bool {
	return (b.Over != nil && b.Over.Price != 0) || (b.Under != nil && b.Under.Price != 0)
}

// LineBook maps sportsbook key to that book's quotes for one line value.
type LineBook = Ordered[BookQuotes]

// LineSet maps canonical line string (e.g. "1.5") to its LineBook.
type LineSet = Ordered[LineBook]

// OutcomeNames labels the over and under slots of a game-line cell.
type OutcomeNames struct {
	Over  string `json:"over"`
	Under string `json:"under"`
}

// MarketCell is the unit the consensus engine works on: one subject (player
// or game) in one market, with every line offered and the books at each.
// Cells are rebuilt from scratch on each run.
type MarketCell struct {
	Key           string        `json:"-"`
	Kind          CellKind      `json:"kind"`
	Sport         string        `json:"sport"`
	SubjectID     string        `json:"player_id"`
	Description   string        `json:"description"`
	Team          string        `json:"team,omitempty"`
	TeamName      string        `json:"team_name,omitempty"`
	Market        string        `json:"market"`
	MarketKey     string        `json:"market_key,omitempty"`
	EventID       string        `json:"event_id"`
	HomeTeam      string        `json:"home_team,omitempty"`
	AwayTeam      string        `json:"away_team,omitempty"`
	CommenceTime  time.Time     `json:"commence_time"`
	Outcomes      *OutcomeNames `json:"outcomes,omitempty"`
	HasAlternates bool          `json:"has_alternates"`
	PrimaryLine   string        `json:"primary_line,omitempty"`
	Lines         LineSet       `json:"lines"`
	LastUpdated   time.Time     `json:"last_updated"`
}

// EffectiveKind returns the cell kind, treating cells written without one
// as player props.
func (c MarketCell) EffectiveKind() CellKind {
	if c.Kind == "" {
		return KindProp
	}
	return c.Kind
}

// SideLabel returns the display label for side s of the cell.
func (c MarketCell) SideLabel(s Side) string {
	if c.Outcomes == nil {
		return string(s)
	}
	if s == SideUnder {
		return c.Outcomes.Under
	}
	return c.Outcomes.Over
}

// Source is one book's contribution to a consensus result.
type Source struct {
	Book  string `json:"book"`
	Price int    `json:"price"`
	SID   string `json:"sid,omitempty"`
	Link  string `json:"link,omitempty"`
}

// ConsensusResult is the derived view of one side of one cell at its primary
// line. It is never mutated after the engine returns it.
type ConsensusResult struct {
	Sport        string    `json:"sport"`
	SubjectID    string    `json:"player_id"`
	Description  string    `json:"description"`
	Team         string    `json:"team,omitempty"`
	Market       string    `json:"market"`
	Side         Side      `json:"side"`
	SideLabel    string    `json:"side_label,omitempty"`
	Line         string    `json:"line"`
	AvgOdds      float64   `json:"avg_odds"`
	ImpliedProb  float64   `json:"implied_prob"`
	EVPct        float64   `json:"ev"`
	AvgDecimal   float64   `json:"avg_decimal"`
	ValuePct     float64   `json:"value_pct"`
	BestBook     string    `json:"best_book"`
	BestPrice    int       `json:"best_price"`
	BestLink     string    `json:"best_link,omitempty"`
	Books        int       `json:"books"`
	EventID      string    `json:"event_id"`
	CommenceTime time.Time `json:"commence_time"`
	Sources      []Source  `json:"sources"`
}
