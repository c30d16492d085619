package jobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/propscope/oddsjobs/internal/config"
	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/propscope/oddsjobs/internal/notify"
	"github.com/propscope/oddsjobs/internal/odds"
	"github.com/propscope/oddsjobs/internal/oddsapi"
)

var fixedNow = time.Date(2025, 7, 14, 18, 0, 0, 0, time.UTC)

// cellWith builds a prop cell with one line; prices[i] is {over, under} for
// book i. A zero price leaves that side unquoted.
func cellWith(sport, subject, market, line string, prices [][2]int) domain.MarketCell {
	var books domain.LineBook
	for i, p := range prices {
		var bq domain.BookQuotes
		if p[0] != 0 {
			bq.Over = &domain.Quote{Price: p[0]}
		}
		if p[1] != 0 {
			bq.Under = &domain.Quote{Price: p[1]}
		}
		books.Set(fmt.Sprintf("book%d", i+1), bq)
	}
	var lines domain.LineSet
	lines.Set(line, books)

	c := domain.MarketCell{
		Kind:        domain.KindProp,
		Sport:       sport,
		SubjectID:   subject,
		Description: "Player " + subject,
		Market:      market,
		EventID:     "ev1",
		PrimaryLine: line,
		Lines:       lines,
	}
	c.Key = domain.CellKey(c)
	return c
}

func seed(t *testing.T, m *memCache, cells ...domain.MarketCell) {
	t.Helper()
	if _, err := m.PutCells(context.Background(), cells, time.Hour); err != nil {
		t.Fatal(err)
	}
}

var fiveBooks = [][2]int{{-110, -110}, {-105, -115}, {-115, -105}, {100, -120}, {-110, -110}}

func newSummary(job string) domain.BatchSummary {
	return domain.NewBatchSummary(job, "00000000-0000-0000-0000-000000000001", fixedNow)
}

func TestLandingJob(t *testing.T) {
	cache := newMemCache()
	seed(t, cache,
		cellWith("mlb", "1", "Hits", "0.5", fiveBooks),
		cellWith("mlb", "2", "Hits", "0.5", fiveBooks[:3]),
		cellWith("nba", "3", "Points", "20.5", fiveBooks),
	)
	cache.values["odds:mlb:4:hits"] = []byte("{not json")

	engine := odds.NewEngine(odds.DefaultConfig())
	job := NewLandingJob([]string{"mlb", "mlb"}, cache, cache, engine, time.Hour, discardLogger)

	s := newSummary(job.Name())
	if err := job.Run(context.Background(), &s); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !cache.hasTop || len(cache.top) != 1 {
		t.Fatalf("top = %+v, want one result (one per market)", cache.top)
	}
	if cache.top[0].SubjectID != "1" {
		t.Errorf("top subject = %q, want 1", cache.top[0].SubjectID)
	}
	if s.Written != 1 {
		t.Errorf("written = %d, want 1", s.Written)
	}
	if s.Failed["malformed_cell"] != 1 {
		t.Errorf("failed = %v, want one malformed_cell", s.Failed)
	}
	if s.Skipped["insufficient_liquidity"] != 2 {
		t.Errorf("skipped = %v, want both sides of the thin cell", s.Skipped)
	}
}

func TestLandingJobIgnoresGameLines(t *testing.T) {
	game := cellWith("mlb", "", "Moneyline", domain.StandardLine, [][2]int{{150, -170}, {140, -160}, {145, -165}, {160, -180}, {150, -170}})
	game.Kind = domain.KindGame
	game.EventID = "ev9"
	game.SubjectID = "ev9"
	game.MarketKey = "h2h"
	game.Outcomes = &domain.OutcomeNames{Over: "New York Yankees", Under: "Boston Red Sox"}
	game.Key = domain.CellKey(game)

	cache := newMemCache()
	seed(t, cache, game, cellWith("mlb", "1", "Hits", "0.5", fiveBooks))

	job := NewLandingJob([]string{"mlb"}, cache, cache, odds.NewEngine(odds.DefaultConfig()), time.Hour, discardLogger)
	s := newSummary(job.Name())
	if err := job.Run(context.Background(), &s); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, r := range cache.top {
		if r.SubjectID == "ev9" || r.Market == "Moneyline" {
			t.Errorf("game line in landing list: %+v", r)
		}
	}
	if len(cache.top) != 1 || cache.top[0].SubjectID != "1" {
		t.Errorf("top = %+v, want only the Hits prop", cache.top)
	}
}

func TestLandingJobWritesEmptyList(t *testing.T) {
	cache := newMemCache()
	job := NewLandingJob([]string{"wnba"}, cache, cache, odds.NewEngine(odds.DefaultConfig()), time.Hour, discardLogger)

	s := newSummary(job.Name())
	if err := job.Run(context.Background(), &s); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !cache.hasTop || len(cache.top) != 0 {
		t.Errorf("top = %+v, want an empty list written", cache.top)
	}
}

func TestLandingJobScanError(t *testing.T) {
	cache := newMemCache()
	cache.scanErr = errors.New("connection reset")
	job := NewLandingJob([]string{"mlb"}, cache, cache, odds.NewEngine(odds.DefaultConfig()), time.Hour, discardLogger)

	s := newSummary(job.Name())
	if err := job.Run(context.Background(), &s); err == nil {
		t.Fatal("expected scan error")
	}
	if cache.hasTop {
		t.Error("landing list written after a failed scan")
	}
}

func TestArbitrageJob(t *testing.T) {
	cache := newMemCache()
	seed(t, cache,
		cellWith("mlb", "1", "Total Bases", "1.5", [][2]int{{150, -200}, {-200, 110}}),
		cellWith("mlb", "2", "Hits", "0.5", [][2]int{{-110, -110}, {-105, -115}}),
		cellWith("wnba", "3", "Points", "18.5", [][2]int{{101, -102}, {-103, 100}}),
	)

	bus := &fakeBus{}
	store := &fakeArbStore{}
	notifier := &fakeNotifier{}
	engine := odds.NewEngine(odds.DefaultConfig())
	job := NewArbitrageJob(ArbitrageOptions{Sports: []string{"mlb", "wnba"}, TTL: time.Hour, Notify: true, NotifyMax: 5},
		cache, cache, bus, store, notifier, engine, discardLogger)
	job.now = func() time.Time { return fixedNow }

	s := newSummary(job.Name())
	if err := job.Run(context.Background(), &s); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(cache.arbs) != 1 {
		t.Fatalf("arbs = %+v, want 1", cache.arbs)
	}
	opp := cache.arbs[0]
	if opp.ID == "" || !opp.DetectedAt.Equal(fixedNow) || opp.Over.Book != "book1" || opp.Under.Book != "book2" {
		t.Errorf("opportunity = %+v", opp)
	}
	if s.Skipped["below_min_profit"] != 1 {
		t.Errorf("skipped = %v, want the thin wnba arb below the minimum", s.Skipped)
	}
	if bus.published[domain.ArbChannel] != 1 || bus.streamed[domain.ArbStream] != 1 {
		t.Errorf("bus published %v streamed %v", bus.published, bus.streamed)
	}
	if len(store.inserted) != 1 {
		t.Errorf("stored %d opportunities, want 1", len(store.inserted))
	}
	if !slices.Equal(notifier.events, []string{notify.EventArbDetected}) {
		t.Errorf("notified %v", notifier.events)
	}
	if s.Written != 1 {
		t.Errorf("written = %d, want 1", s.Written)
	}
}

func TestArbitrageJobReplacesWithEmptySet(t *testing.T) {
	cache := newMemCache()
	cache.arbs = []domain.ArbOpportunity{{ID: "stale"}}
	seed(t, cache, cellWith("mlb", "2", "Hits", "0.5", [][2]int{{-110, -110}, {-105, -115}}))

	notifier := &fakeNotifier{}
	job := NewArbitrageJob(ArbitrageOptions{Sports: []string{"mlb"}, TTL: time.Hour, Notify: true},
		cache, cache, nil, nil, notifier, odds.NewEngine(odds.DefaultConfig()), discardLogger)

	s := newSummary(job.Name())
	if err := job.Run(context.Background(), &s); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(cache.arbs) != 0 {
		t.Errorf("arbs = %+v, want stale set cleared", cache.arbs)
	}
	if len(notifier.events) != 0 {
		t.Errorf("notified with nothing found: %v", notifier.events)
	}
}

func TestArbitrageJobPublishFailureIsNotFatal(t *testing.T) {
	cache := newMemCache()
	seed(t, cache, cellWith("mlb", "1", "Total Bases", "1.5", [][2]int{{150, -200}, {-200, 110}}))

	bus := &fakeBus{err: errors.New("pubsub down")}
	job := NewArbitrageJob(ArbitrageOptions{Sports: []string{"mlb"}, TTL: time.Hour},
		cache, cache, bus, nil, nil, odds.NewEngine(odds.DefaultConfig()), discardLogger)

	s := newSummary(job.Name())
	if err := job.Run(context.Background(), &s); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Failed["publish"] != 1 || len(cache.arbs) != 1 {
		t.Errorf("failed = %v, arbs = %d", s.Failed, len(cache.arbs))
	}
}

func pt(f float64) *float64 { return &f }

func propOdds(id string, commence time.Time) oddsapi.EventOdds {
	var books []oddsapi.Bookmaker
	for _, key := range []string{"draftkings", "fanduel", "betmgm"} {
		books = append(books, oddsapi.Bookmaker{
			Key: key,
			Markets: []oddsapi.Market{{
				Key: "batter_hits",
				Outcomes: []oddsapi.Outcome{
					{Name: "Over", Description: "Aaron Judge", Price: -150, Point: pt(0.5)},
					{Name: "Under", Description: "Aaron Judge", Price: 120, Point: pt(0.5)},
				},
			}},
		})
	}
	return oddsapi.EventOdds{
		Event:      oddsapi.Event{ID: id, CommenceTime: commence, HomeTeam: "New York Yankees", AwayTeam: "New York Mets"},
		Bookmakers: books,
	}
}

var mlbProps = config.SportConfig{
	Key:      "baseball_mlb",
	CacheKey: "mlb",
	Kind:     config.KindProps,
	Enabled:  true,
	Markets:  map[string]string{"batter_hits": "Hits"},
}

func newPropsJob(fetcher *fakeFetcher, cache *memCache, history *fakeHistory) *FetchJob {
	resolver := mapResolver{"Aaron Judge": {ID: "592450", Team: "NYY"}}
	var hist domain.OddsHistoryStore
	if history != nil {
		hist = history
	}
	job := NewPropsJob(fetcher, cache, hist,
		func() domain.SubjectResolver { return resolver },
		FetchOptions{Sports: []config.SportConfig{mlbProps}, TTL: time.Hour, Lookahead: 36 * time.Hour, Workers: 2},
		discardLogger)
	job.now = func() time.Time { return fixedNow }
	return job
}

func TestPropsJob(t *testing.T) {
	soon := fixedNow.Add(5 * time.Hour)
	fetcher := &fakeFetcher{
		events: map[string][]oddsapi.Event{"baseball_mlb": {
			{ID: "ev1", CommenceTime: soon},
			{ID: "ev2", CommenceTime: fixedNow.Add(72 * time.Hour)},
			{ID: "ev3", CommenceTime: soon},
		}},
		odds:     map[string]oddsapi.EventOdds{"ev1": propOdds("ev1", soon)},
		oddsErrs: map[string]error{"ev3": errors.New("HTTP 502")},
	}
	cache := newMemCache()
	history := &fakeHistory{}
	job := newPropsJob(fetcher, cache, history)

	s := newSummary(job.Name())
	if err := job.Run(context.Background(), &s); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, ok := cache.values["odds:mlb:592450:hits"]; !ok {
		t.Fatalf("cell not cached; keys = %v", cache.values)
	}
	if s.Written != 1 {
		t.Errorf("written = %d, want 1", s.Written)
	}
	if s.Failed[ReasonFetchFailed] != 1 {
		t.Errorf("failed = %v, want ev3 fetch failure", s.Failed)
	}
	if len(history.rows) != 3 {
		t.Errorf("history rows = %d, want 3", len(history.rows))
	}
	if !slices.Equal(fetcher.markets, []string{"batter_hits"}) {
		t.Errorf("requested markets = %v", fetcher.markets)
	}
}

func TestPropsJobQuotaIsFatal(t *testing.T) {
	soon := fixedNow.Add(time.Hour)
	fetcher := &fakeFetcher{
		events:   map[string][]oddsapi.Event{"baseball_mlb": {{ID: "ev1", CommenceTime: soon}}},
		oddsErrs: map[string]error{"ev1": fmt.Errorf("oddsapi: %w", domain.ErrQuotaExceeded)},
	}
	cache := newMemCache()
	job := newPropsJob(fetcher, cache, nil)

	s := newSummary(job.Name())
	err := job.Run(context.Background(), &s)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want quota exceeded", err)
	}
	if len(cache.values) != 0 {
		t.Error("cells written after a fatal fetch error")
	}
}

func TestPropsJobHistoryFailureIsNotFatal(t *testing.T) {
	soon := fixedNow.Add(time.Hour)
	fetcher := &fakeFetcher{
		events: map[string][]oddsapi.Event{"baseball_mlb": {{ID: "ev1", CommenceTime: soon}}},
		odds:   map[string]oddsapi.EventOdds{"ev1": propOdds("ev1", soon)},
	}
	job := newPropsJob(fetcher, newMemCache(), &fakeHistory{err: errors.New("pool closed")})

	s := newSummary(job.Name())
	if err := job.Run(context.Background(), &s); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Failed["history_write"] != 1 {
		t.Errorf("failed = %v", s.Failed)
	}
}

func TestGameLinesJob(t *testing.T) {
	soon := fixedNow.Add(time.Hour)
	ev := oddsapi.EventOdds{
		Event: oddsapi.Event{ID: "g1", CommenceTime: soon, HomeTeam: "Las Vegas Aces", AwayTeam: "Seattle Storm"},
		Bookmakers: []oddsapi.Bookmaker{{
			Key: "fanduel",
			Markets: []oddsapi.Market{{Key: "h2h", Outcomes: []oddsapi.Outcome{
				{Name: "Las Vegas Aces", Price: -200},
				{Name: "Seattle Storm", Price: 170},
			}}},
		}},
	}
	fetcher := &fakeFetcher{
		events: map[string][]oddsapi.Event{"basketball_wnba": {{ID: "g1", CommenceTime: soon}}},
		odds:   map[string]oddsapi.EventOdds{"g1": ev},
	}
	sport := config.SportConfig{
		Key: "basketball_wnba", CacheKey: "wnba", Kind: config.KindGameLines, Enabled: true,
		Markets: map[string]string{"h2h": "Moneyline"},
	}
	cache := newMemCache()
	job := NewGameLinesJob(fetcher, cache, nil,
		FetchOptions{Sports: []config.SportConfig{sport, mlbProps}, TTL: time.Hour, Lookahead: 36 * time.Hour},
		discardLogger)
	job.now = func() time.Time { return fixedNow }

	s := newSummary(job.Name())
	if err := job.Run(context.Background(), &s); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := cache.values["odds:wnba:g1:h2h"]; !ok || len(cache.values) != 1 {
		t.Errorf("cache keys = %v", cache.values)
	}
}

type fakeArchiver struct {
	landing []domain.ConsensusResult
	arbs    []domain.ArbOpportunity
}

func (a *fakeArchiver) ArchiveLanding(_ context.Context, runID string, _ time.Time, results []domain.ConsensusResult) (string, error) {
	a.landing = results
	if len(results) == 0 {
		return "", nil
	}
	return "landing/" + runID, nil
}

func (a *fakeArchiver) ArchiveArbitrage(_ context.Context, runID string, _ time.Time, opps []domain.ArbOpportunity) (string, error) {
	a.arbs = opps
	if len(opps) == 0 {
		return "", nil
	}
	return "arbitrage/" + runID, nil
}

func TestArchiveJob(t *testing.T) {
	cache := newMemCache()
	cache.arbs = []domain.ArbOpportunity{{ID: "a1"}, {ID: "a2"}}
	archiver := &fakeArchiver{}
	job := NewArchiveJob(cache, cache, archiver, discardLogger)

	s := newSummary(job.Name())
	if err := job.Run(context.Background(), &s); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(archiver.arbs) != 2 || len(archiver.landing) != 0 {
		t.Errorf("archived landing %d arbs %d", len(archiver.landing), len(archiver.arbs))
	}
	if s.Written != 1 || s.Skipped["empty"] != 1 {
		t.Errorf("summary = %+v", s)
	}
}

type stubJob struct {
	name string
	err  error
	ran  int
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(_ context.Context, s *domain.BatchSummary) error {
	j.ran++
	s.Record(domain.ItemResult{Status: domain.ItemOK})
	return j.err
}

func TestRunnerRecordsAndUnlocks(t *testing.T) {
	locks := &fakeLocks{}
	runs := &fakeRuns{}
	r := NewRunner(locks, runs, &fakeNotifier{}, time.Minute, discardLogger)

	job := &stubJob{name: "landing"}
	s, err := r.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.RunID == "" || s.Succeeded != 1 || s.Finished.IsZero() {
		t.Errorf("summary = %+v", s)
	}
	if len(runs.recorded) != 1 || runs.recorded[0].RunID != s.RunID {
		t.Errorf("recorded = %+v", runs.recorded)
	}
	if !slices.Equal(locks.released, []string{"landing"}) {
		t.Errorf("released = %v", locks.released)
	}
}

func TestRunnerSkipsWhenLocked(t *testing.T) {
	locks := &fakeLocks{held: map[string]bool{"arbitrage": true}}
	runs := &fakeRuns{}
	r := NewRunner(locks, runs, nil, time.Minute, discardLogger)

	job := &stubJob{name: "arbitrage"}
	_, err := r.Run(context.Background(), job)
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
	if job.ran != 0 || len(runs.recorded) != 0 {
		t.Errorf("job ran %d times, recorded %d runs", job.ran, len(runs.recorded))
	}
}

func TestRunnerFailureAlerts(t *testing.T) {
	boom := errors.New("redis: scan: timeout")
	notifier := &fakeNotifier{}
	runs := &fakeRuns{}
	r := NewRunner(nil, runs, notifier, time.Minute, discardLogger)

	s, err := r.Run(context.Background(), &stubJob{name: "landing", err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapping boom", err)
	}
	if s.Error != boom.Error() || runs.recorded[0].Error != boom.Error() {
		t.Errorf("summary error = %q", s.Error)
	}
	if !slices.Equal(notifier.events, []string{notify.EventJobFailed}) || notifier.titles[0] != "job landing failed" {
		t.Errorf("alerts = %v %v", notifier.events, notifier.titles)
	}
}

func TestRunAllContinuesAfterFailure(t *testing.T) {
	r := NewRunner(nil, nil, nil, time.Minute, discardLogger)
	first := &stubJob{name: "props", err: errors.New("quota")}
	second := &stubJob{name: "landing"}

	summaries, err := r.RunAll(context.Background(), []Job{first, second})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if second.ran != 1 || len(summaries) != 2 {
		t.Errorf("second ran %d, summaries %d", second.ran, len(summaries))
	}
}
