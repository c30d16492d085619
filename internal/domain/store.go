package domain

import (
	"context"
	"time"
)

// OddsHistoryRow is one flattened book quote persisted for later analysis.
type OddsHistoryRow struct {
	Sport        string
	EventID      string
	SubjectID    string
	Market       string
	Line         string
	Sportsbook   string
	OverPrice    *int
	UnderPrice   *int
	CommenceTime time.Time
	CreatedAt    time.Time
}

// PlayerStore reads the player/team reference tables.
type PlayerStore interface {
	ListBySport(ctx context.Context, sport string) ([]Subject, error)
}

// OddsHistoryStore appends quote snapshots.
type OddsHistoryStore interface {
	InsertBatch(ctx context.Context, rows []OddsHistoryRow) (int64, error)
}

// ArbStore persists arbitrage opportunity history.
type ArbStore interface {
	InsertBatch(ctx context.Context, opps []ArbOpportunity) error
	ListRecent(ctx context.Context, limit int) ([]ArbOpportunity, error)
}

// JobRunStore keeps one row per job run with its batch summary.
type JobRunStore interface {
	Record(ctx context.Context, summary BatchSummary) error
	LastSuccess(ctx context.Context, job string) (time.Time, error)
}
