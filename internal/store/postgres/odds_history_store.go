package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propscope/oddsjobs/internal/domain"
)

// historyBatchSize bounds how many inserts go into one pgx.Batch.
const historyBatchSize = 500

// OddsHistoryStore implements domain.OddsHistoryStore using PostgreSQL.
type OddsHistoryStore struct {
	pool *pgxpool.Pool
}

// NewOddsHistoryStore creates a new OddsHistoryStore backed by the given
// connection pool.
func NewOddsHistoryStore(pool *pgxpool.Pool) *OddsHistoryStore {
	return &OddsHistoryStore{pool: pool}
}

// InsertBatch inserts rows in pgx batches. Rows that duplicate an existing
// (event, player, market, line, book, created_at) tuple are ignored. It
// returns the number of rows actually inserted.
func (s *OddsHistoryStore) InsertBatch(ctx context.Context, rows []domain.OddsHistoryRow) (int64, error) {
	const query = `
		INSERT INTO player_odds_history (
			sport, vendor_event_id, player_id, market, line, sportsbook,
			over_price, under_price, commence_time, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (vendor_event_id, player_id, market, line, sportsbook, created_at) DO NOTHING`

	var inserted int64
	for chunk := range slices.Chunk(rows, historyBatchSize) {
		batch := &pgx.Batch{}
		for _, r := range chunk {
			batch.Queue(query,
				r.Sport, r.EventID, r.SubjectID, r.Market, r.Line, r.Sportsbook,
				r.OverPrice, r.UnderPrice, nullTime(r.CommenceTime), r.CreatedAt,
			)
		}

		br := s.pool.SendBatch(ctx, batch)
		for range chunk {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return inserted, fmt.Errorf("postgres: insert odds history: %w", err)
			}
			inserted += tag.RowsAffected()
		}
		if err := br.Close(); err != nil {
			return inserted, fmt.Errorf("postgres: close odds history batch: %w", err)
		}
	}
	return inserted, nil
}

// Compile-time interface check.
var _ domain.OddsHistoryStore = (*OddsHistoryStore)(nil)
