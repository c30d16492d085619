package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propscope/oddsjobs/internal/domain"
)

// ArbStore implements domain.ArbStore using PostgreSQL.
type ArbStore struct {
	pool *pgxpool.Pool
}

// NewArbStore creates a new ArbStore backed by the given connection pool.
func NewArbStore(pool *pgxpool.Pool) *ArbStore {
	return &ArbStore{pool: pool}
}

var arbColumns = []string{
	"id", "sport", "kind", "subject_id", "description", "market", "line",
	"event_id", "commence_time", "total_implied", "profit_pct",
	"over_leg", "under_leg", "detected_at",
}

// InsertBatch copies opps into arb_history in one COPY round trip.
func (s *ArbStore) InsertBatch(ctx context.Context, opps []domain.ArbOpportunity) error {
	if len(opps) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(opps))
	for _, opp := range opps {
		id, err := uuid.Parse(opp.ID)
		if err != nil {
			return fmt.Errorf("postgres: arb id %q: %w", opp.ID, err)
		}
		over, err := json.Marshal(opp.Over)
		if err != nil {
			return fmt.Errorf("postgres: marshal over leg %s: %w", opp.ID, err)
		}
		under, err := json.Marshal(opp.Under)
		if err != nil {
			return fmt.Errorf("postgres: marshal under leg %s: %w", opp.ID, err)
		}
		rows = append(rows, []any{
			[16]byte(id), opp.Sport, string(opp.Kind), opp.SubjectID, opp.Description,
			opp.Market, opp.Line, opp.EventID, nullTime(opp.CommenceTime),
			opp.TotalImplied, opp.ProfitPct, over, under, opp.DetectedAt,
		})
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"arb_history"}, arbColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("postgres: copy %d arbs: %w", len(opps), err)
	}
	if int(n) != len(opps) {
		return fmt.Errorf("postgres: copy arbs: wrote %d of %d rows", n, len(opps))
	}
	return nil
}

// ListRecent returns the most recent opportunities ordered by detection time.
func (s *ArbStore) ListRecent(ctx context.Context, limit int) ([]domain.ArbOpportunity, error) {
	query := `
		SELECT id::text, sport, kind, subject_id, description, market, line,
		       event_id, commence_time, total_implied, profit_pct,
		       over_leg, under_leg, detected_at
		FROM arb_history
		ORDER BY detected_at DESC, profit_pct DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent arbs: %w", err)
	}
	defer rows.Close()

	var opps []domain.ArbOpportunity
	for rows.Next() {
		var (
			opp        domain.ArbOpportunity
			kind       string
			commence   *time.Time
			over, undr []byte
		)
		if err := rows.Scan(
			&opp.ID, &opp.Sport, &kind, &opp.SubjectID, &opp.Description,
			&opp.Market, &opp.Line, &opp.EventID, &commence,
			&opp.TotalImplied, &opp.ProfitPct, &over, &undr, &opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan arb: %w", err)
		}
		opp.Kind = domain.CellKind(kind)
		if commence != nil {
			opp.CommenceTime = *commence
		}
		if err := json.Unmarshal(over, &opp.Over); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal over leg %s: %w", opp.ID, err)
		}
		if err := json.Unmarshal(undr, &opp.Under); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal under leg %s: %w", opp.ID, err)
		}
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent arbs rows: %w", err)
	}
	return opps, nil
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Compile-time interface check.
var _ domain.ArbStore = (*ArbStore)(nil)
