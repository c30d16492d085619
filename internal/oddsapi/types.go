package oddsapi

import "time"

// --------------------------------------------------------------------------
// Odds API v4 DTOs
// --------------------------------------------------------------------------

// Event is one scheduled game as returned by /sports/{sport}/events.
type Event struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	SportTitle   string    `json:"sport_title"`
	CommenceTime time.Time `json:"commence_time"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
}

// EventOdds is an event with every bookmaker's markets, as returned by
// /sports/{sport}/events/{id}/odds.
type EventOdds struct {
	Event
	Bookmakers []Bookmaker `json:"bookmakers"`
}

// Bookmaker is one sportsbook's markets for an event.
type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Link       string    `json:"link,omitempty"`
	SID        string    `json:"sid,omitempty"`
	Markets    []Market  `json:"markets"`
}

// Market is one market key (e.g. "batter_hits", "spreads") at one book.
type Market struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Link       string    `json:"link,omitempty"`
	SID        string    `json:"sid,omitempty"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Outcome is a single priced selection. For player props Name is "Over" or
// "Under" and Description is the player; for game lines Name is the team (or
// "Over"/"Under" for totals).
type Outcome struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Point       *float64 `json:"point,omitempty"`
	Link        string   `json:"link,omitempty"`
	SID         string   `json:"sid,omitempty"`
}

// errorResponse is the body the API sends with non-2xx statuses.
type errorResponse struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// Quota is the request-credit state reported in the last response headers.
type Quota struct {
	Remaining int
	Used      int
	Last      int
}
