package turn

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/sqlutil"
)

// Repository reads the nominable player pool.
type Repository struct {
	db sqlutil.DBTX
}

func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

// ListNominablePlayers returns players not currently up for bidding and not
// already awarded in this draft.
func (r *Repository) ListNominablePlayers(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT p.id
		 FROM players p
		 WHERE NOT EXISTS (
			SELECT 1 FROM nominations n
			WHERE n.draft_id = $1 AND n.player_id = p.id AND n.status IN ('ACTIVE', 'COMPLETED')
		 )`,
		draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list nominable players: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan player id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}
	return ids, nil
}
