// Package roster exposes the narrow slice of roster state the auction engine
// consumes: player counts for slot math and the stable rotation order.
// Roster CRUD itself lives outside the engine.
package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/sqlutil"
)

type Repository struct {
	db sqlutil.DBTX
}

func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx sqlutil.DBTX) *Repository {
	return &Repository{db: tx}
}

// PlayerCount returns how many players the roster currently holds.
func (r *Repository) PlayerCount(ctx context.Context, rosterID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM roster_players WHERE roster_id = $1`,
		rosterID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count roster players: %w", err)
	}
	return count, nil
}

// ListRosterIDsByLeague returns the league's roster ids in their stable
// draft-order position.
func (r *Repository) ListRosterIDsByLeague(ctx context.Context, leagueID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM rosters WHERE league_id = $1 ORDER BY draft_position, id`,
		leagueID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rosters by league: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan roster id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rosters: %w", err)
	}
	return ids, nil
}

// AddPlayer records a player joining a roster. Used by the completion handoff
// when awarding won players.
func (r *Repository) AddPlayer(ctx context.Context, rosterID, playerID uuid.UUID, acquiredAt time.Time, auctionAmount int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO roster_players (id, roster_id, player_id, acquisition_type, auction_amount, acquired_at)
		 VALUES ($1, $2, $3, 'AUCTION', $4, $5)
		 ON CONFLICT (roster_id, player_id) DO NOTHING`,
		uuid.New(), rosterID, playerID, auctionAmount, acquiredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add player to roster: %w", err)
	}
	return nil
}
