package jobs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/propscope/oddsjobs/internal/domain"
	"github.com/propscope/oddsjobs/internal/oddsapi"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeFetcher serves canned events and odds per sport and event.
type fakeFetcher struct {
	events   map[string][]oddsapi.Event
	odds     map[string]oddsapi.EventOdds
	listErr  error
	oddsErrs map[string]error

	mu      sync.Mutex
	markets []string
}

func (f *fakeFetcher) ListEvents(_ context.Context, sport string) ([]oddsapi.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.events[sport], nil
}

func (f *fakeFetcher) EventOdds(_ context.Context, _ string, eventID string, markets []string) (oddsapi.EventOdds, error) {
	f.mu.Lock()
	f.markets = markets
	f.mu.Unlock()
	if err := f.oddsErrs[eventID]; err != nil {
		return oddsapi.EventOdds{}, err
	}
	return f.odds[eventID], nil
}

// memCache is an in-memory odds, landing and arbitrage cache.
type memCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	top     []domain.ConsensusResult
	hasTop  bool
	arbs    []domain.ArbOpportunity
	putErr  error
	scanErr error
}

func newMemCache() *memCache {
	return &memCache{values: map[string][]byte{}}
}

func (m *memCache) PutCells(_ context.Context, cells []domain.MarketCell, _ time.Duration) (int, error) {
	if m.putErr != nil {
		return 0, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cells {
		data, err := json.Marshal(c)
		if err != nil {
			return 0, err
		}
		key := c.Key
		if key == "" {
			key = domain.CellKey(c)
		}
		m.values[key] = data
	}
	return len(cells), nil
}

func (m *memCache) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *memCache) GetRaw(_ context.Context, keys []string) ([]domain.RawEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RawEntry
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out = append(out, domain.RawEntry{Key: k, Data: v})
		}
	}
	return out, nil
}

func (m *memCache) SetTop(_ context.Context, results []domain.ConsensusResult, _ time.Duration) error {
	m.top, m.hasTop = results, true
	return nil
}

func (m *memCache) GetTop(context.Context) ([]domain.ConsensusResult, error) {
	if !m.hasTop {
		return nil, domain.ErrNotFound
	}
	return m.top, nil
}

func (m *memCache) Replace(_ context.Context, opps []domain.ArbOpportunity, _ time.Duration) ([]string, error) {
	m.arbs = opps
	keys := make([]string, len(opps))
	for i, o := range opps {
		keys[i] = "arb:" + o.ID
	}
	return keys, nil
}

func (m *memCache) Current(context.Context) ([]domain.ArbOpportunity, error) {
	return m.arbs, nil
}

type fakeBus struct {
	published map[string]int
	streamed  map[string]int
	err       error
}

func (b *fakeBus) Publish(_ context.Context, channel string, _ []byte) error {
	if b.err != nil {
		return b.err
	}
	if b.published == nil {
		b.published = map[string]int{}
	}
	b.published[channel]++
	return nil
}

func (b *fakeBus) StreamAppend(_ context.Context, stream string, _ []byte) error {
	if b.streamed == nil {
		b.streamed = map[string]int{}
	}
	b.streamed[stream]++
	return nil
}

type fakeArbStore struct {
	inserted []domain.ArbOpportunity
	err      error
}

func (s *fakeArbStore) InsertBatch(_ context.Context, opps []domain.ArbOpportunity) error {
	s.inserted = append(s.inserted, opps...)
	return s.err
}

func (s *fakeArbStore) ListRecent(context.Context, int) ([]domain.ArbOpportunity, error) {
	return s.inserted, nil
}

type fakeHistory struct {
	rows []domain.OddsHistoryRow
	err  error
}

func (h *fakeHistory) InsertBatch(_ context.Context, rows []domain.OddsHistoryRow) (int64, error) {
	if h.err != nil {
		return 0, h.err
	}
	h.rows = append(h.rows, rows...)
	return int64(len(rows)), nil
}

type fakeNotifier struct {
	events []string
	titles []string
}

func (n *fakeNotifier) Notify(_ context.Context, event, title, _ string) error {
	n.events = append(n.events, event)
	n.titles = append(n.titles, title)
	return nil
}

type fakeLocks struct {
	held     map[string]bool
	released []string
}

func (l *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	l.held[key] = true
	return func() {
		delete(l.held, key)
		l.released = append(l.released, key)
	}, nil
}

type fakeRuns struct {
	recorded []domain.BatchSummary
}

func (r *fakeRuns) Record(_ context.Context, s domain.BatchSummary) error {
	r.recorded = append(r.recorded, s)
	return nil
}

func (r *fakeRuns) LastSuccess(context.Context, string) (time.Time, error) {
	return time.Time{}, domain.ErrNotFound
}

type mapResolver map[string]domain.Subject

func (m mapResolver) Resolve(_ context.Context, _, name string) (domain.Subject, error) {
	s, ok := m[name]
	if !ok {
		return domain.Subject{}, domain.ErrNotFound
	}
	return s, nil
}
