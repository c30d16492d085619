package oddsapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/propscope/oddsjobs/internal/domain"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		BaseURL:           srv.URL + "/v4/",
		APIKey:            "secret",
		Bookmakers:        []string{"draftkings", "fanduel"},
		RequestsPerSecond: 1000,
		Burst:             10,
		IncludeLinks:      true,
		IncludeSids:       true,
	}, discardLogger)
	c.backoff = time.Millisecond
	return c
}

const eventOddsJSON = `{
  "id": "ev1", "sport_key": "baseball_mlb", "commence_time": "2025-07-14T23:05:00Z",
  "home_team": "New York Yankees", "away_team": "New York Mets",
  "bookmakers": [{
    "key": "draftkings", "title": "DraftKings", "last_update": "2025-07-14T18:00:00Z",
    "markets": [{
      "key": "batter_hits", "last_update": "2025-07-14T18:00:00Z",
      "outcomes": [
        {"name": "Over", "description": "Aaron Judge", "price": -150, "point": 0.5, "link": "https://dk/1", "sid": "s1"},
        {"name": "Under", "description": "Aaron Judge", "price": 120, "point": 0.5}
      ]
    }]
  }]
}`

func TestEventOddsRequestAndDecode(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("x-requests-remaining", "480")
		w.Header().Set("x-requests-used", "20")
		w.Header().Set("x-requests-last", "2")
		_, _ = io.WriteString(w, eventOddsJSON)
	})

	odds, err := c.EventOdds(context.Background(), "baseball_mlb", "ev1", []string{"batter_hits", "batter_hits_alternate"})
	if err != nil {
		t.Fatalf("EventOdds: %v", err)
	}

	if gotPath != "/v4/sports/baseball_mlb/events/ev1/odds" {
		t.Errorf("path = %q", gotPath)
	}
	for _, want := range []string{
		"apiKey=secret",
		"bookmakers=draftkings%2Cfanduel",
		"markets=batter_hits%2Cbatter_hits_alternate",
		"oddsFormat=american",
		"includeLinks=true",
		"includeSids=true",
	} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}

	if odds.HomeTeam != "New York Yankees" || len(odds.Bookmakers) != 1 {
		t.Fatalf("odds = %+v", odds)
	}
	out := odds.Bookmakers[0].Markets[0].Outcomes
	if len(out) != 2 || out[0].Price != -150 || out[0].Point == nil || *out[0].Point != 0.5 || out[0].SID != "s1" {
		t.Errorf("outcomes = %+v", out)
	}

	if q := c.Quota(); q.Remaining != 480 || q.Used != 20 || q.Last != 2 {
		t.Errorf("Quota() = %+v", q)
	}
}

func TestListEvents(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/sports/basketball_wnba/events" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[{"id":"a","commence_time":"2025-07-14T23:00:00Z","home_team":"Las Vegas Aces","away_team":"Seattle Storm"}]`)
	})

	events, err := c.ListEvents(context.Background(), "basketball_wnba")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].ID != "a" || events[0].CommenceTime.Hour() != 23 {
		t.Errorf("events = %+v", events)
	}
}

func TestRetriesRateLimitedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"message":"slow down","error_code":"EXCEEDED_FREQ_LIMIT"}`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})

	if _, err := c.ListEvents(context.Background(), "baseball_mlb"); err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
		calls  int32
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"bad key","error_code":"INVALID_KEY"}`, domain.ErrUnauthorized, 1},
		{"quota", http.StatusUnauthorized, `{"message":"Usage quota has been reached","error_code":"OUT_OF_USAGE_CREDITS"}`, domain.ErrQuotaExceeded, 1},
		{"not found", http.StatusNotFound, `{"message":"Event not found"}`, domain.ErrNotFound, 1},
		{"rate limited exhausts retries", http.StatusTooManyRequests, `{}`, domain.ErrRateLimited, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.EventOdds(context.Background(), "baseball_mlb", "ev1", []string{"h2h"})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if n := calls.Load(); n != tt.calls {
				t.Errorf("calls = %d, want %d", n, tt.calls)
			}
			if err != nil && strings.Contains(err.Error(), "secret") {
				t.Errorf("error leaks api key: %v", err)
			}
		})
	}
}

func TestContextCancelledStopsRetries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c.backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ListEvents(ctx, "baseball_mlb")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
