package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/propscope/oddsjobs/internal/domain"
)

// Overrides maps sport → normalized name → player id. Entries take
// precedence over the players table for names the table spells differently.
type Overrides map[string]map[string]string

// NewOverrides normalizes the name keys of raw, so the table can be written
// with display names.
func NewOverrides(raw ...map[string]map[string]string) Overrides {
	out := Overrides{}
	for _, src := range raw {
		for sport, names := range src {
			if out[sport] == nil {
				out[sport] = map[string]string{}
			}
			for name, id := range names {
				out[sport][NormalizeName(name)] = id
			}
		}
	}
	return out
}

func (o Overrides) lookup(sport, name string) (string, bool) {
	id, ok := o[sport][name]
	return id, ok
}

// OverrideResolver resolves names from the override table alone. Subjects
// it returns carry no team.
type OverrideResolver struct {
	overrides Overrides
}

// NewOverrideResolver creates an OverrideResolver.
func NewOverrideResolver(overrides Overrides) *OverrideResolver {
	return &OverrideResolver{overrides: overrides}
}

// Resolve implements domain.SubjectResolver.
func (r *OverrideResolver) Resolve(_ context.Context, sport, name string) (domain.Subject, error) {
	id, ok := r.overrides.lookup(sport, NormalizeName(name))
	if !ok {
		return domain.Subject{}, fmt.Errorf("resolve: %s %q: %w", sport, name, domain.ErrNotFound)
	}
	return domain.Subject{ID: id, Name: name, Sport: sport}, nil
}

// table is one sport's players indexed both ways.
type table struct {
	byName map[string]domain.Subject
	byID   map[string]domain.Subject
}

// DBResolver resolves names against the players table, loading each sport
// once on first use and checking overrides first. An override id found in
// the table picks up that player's team. Create one per job run so roster
// changes are seen on the next run.
type DBResolver struct {
	store     domain.PlayerStore
	overrides Overrides
	logger    *slog.Logger

	mu     sync.Mutex
	tables map[string]*table
}

// NewDBResolver creates a DBResolver.
func NewDBResolver(store domain.PlayerStore, overrides Overrides, logger *slog.Logger) *DBResolver {
	return &DBResolver{
		store:     store,
		overrides: overrides,
		logger:    logger.With(slog.String("component", "resolver")),
		tables:    map[string]*table{},
	}
}

// Resolve implements domain.SubjectResolver. It is safe for concurrent use.
func (r *DBResolver) Resolve(ctx context.Context, sport, name string) (domain.Subject, error) {
	t, err := r.load(ctx, sport)
	if err != nil {
		return domain.Subject{}, err
	}

	key := NormalizeName(name)
	if id, ok := r.overrides.lookup(sport, key); ok {
		if s, ok := t.byID[id]; ok {
			return s, nil
		}
		return domain.Subject{ID: id, Name: name, Sport: sport}, nil
	}
	if s, ok := t.byName[key]; ok {
		return s, nil
	}
	return domain.Subject{}, fmt.Errorf("resolve: %s %q: %w", sport, name, domain.ErrNotFound)
}

func (r *DBResolver) load(ctx context.Context, sport string) (*table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tables[sport]; ok {
		return t, nil
	}

	players, err := r.store.ListBySport(ctx, sport)
	if err != nil {
		return nil, fmt.Errorf("resolve: load %s players: %w", sport, err)
	}

	t := &table{
		byName: make(map[string]domain.Subject, len(players)),
		byID:   make(map[string]domain.Subject, len(players)),
	}
	dupes := 0
	for _, p := range players {
		key := NormalizeName(p.Name)
		if _, ok := t.byName[key]; ok {
			// First row wins; the store orders by player id.
			dupes++
		} else {
			t.byName[key] = p
		}
		t.byID[p.ID] = p
	}
	r.tables[sport] = t

	r.logger.InfoContext(ctx, "player lookup loaded",
		slog.String("sport", sport),
		slog.Int("players", len(players)),
		slog.Int("duplicate_names", dupes),
	)
	return t, nil
}

// Compile-time interface checks.
var (
	_ domain.SubjectResolver = (*OverrideResolver)(nil)
	_ domain.SubjectResolver = (*DBResolver)(nil)
)
