package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propscope/oddsjobs/internal/domain"
)

// PlayerStore implements domain.PlayerStore using PostgreSQL.
type PlayerStore struct {
	pool *pgxpool.Pool
}

// NewPlayerStore creates a new PlayerStore backed by the given connection pool.
func NewPlayerStore(pool *pgxpool.Pool) *PlayerStore {
	return &PlayerStore{pool: pool}
}

// ListBySport returns every active player of sport with their team
// abbreviation and name. Players without a team come back with empty team
// fields.
func (s *PlayerStore) ListBySport(ctx context.Context, sport string) ([]domain.Subject, error) {
	const query = `
		SELECT p.player_id, p.full_name, p.sport,
		       COALESCE(t.abbreviation, ''), COALESCE(t.name, '')
		FROM players p
		LEFT JOIN teams t ON t.sport = p.sport AND t.id = p.team_id
		WHERE p.sport = $1 AND p.active
		ORDER BY p.player_id`

	rows, err := s.pool.Query(ctx, query, sport)
	if err != nil {
		return nil, fmt.Errorf("postgres: list players %s: %w", sport, err)
	}
	defer rows.Close()

	var out []domain.Subject
	for rows.Next() {
		var p domain.Subject
		if err := rows.Scan(&p.ID, &p.Name, &p.Sport, &p.Team, &p.TeamName); err != nil {
			return nil, fmt.Errorf("postgres: scan player: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list players rows: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.PlayerStore = (*PlayerStore)(nil)
