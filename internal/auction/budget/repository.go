package budget

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/mcdev12/auctiondraft/internal/sqlutil"
)

// RosterReader is what the budget repository needs from the roster domain.
type RosterReader interface {
	PlayerCount(ctx context.Context, rosterID uuid.UUID) (int, error)
}

// Repository loads budget facts from committed rows. It implements
// FactsReader and can be rebound to a transaction so the facts read and the
// bid insert share one atomic unit.
type Repository struct {
	db      sqlutil.DBTX
	rosters RosterReader
}

func NewRepository(db sqlutil.DBTX, rosters RosterReader) *Repository {
	return &Repository{db: db, rosters: rosters}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx sqlutil.DBTX, rosters RosterReader) *Repository {
	return &Repository{db: tx, rosters: rosters}
}

func (r *Repository) BudgetFacts(ctx context.Context, draftID, rosterID uuid.UUID, excludeNomination *uuid.UUID) (Facts, error) {
	var settingsRaw []byte
	err := r.db.QueryRow(ctx,
		`SELECT settings FROM drafts WHERE id = $1`,
		draftID,
	).Scan(&settingsRaw)
	if err != nil {
		return Facts{}, fmt.Errorf("failed to get draft settings: %w", err)
	}
	var settings models.DraftSettings
	if err := json.Unmarshal(settingsRaw, &settings); err != nil {
		return Facts{}, fmt.Errorf("failed to unmarshal draft settings: %w", err)
	}

	var spent int64
	err = r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(winning_bid), 0)
		 FROM nominations
		 WHERE draft_id = $1 AND winning_roster_id = $2 AND status = 'COMPLETED'`,
		draftID, rosterID,
	).Scan(&spent)
	if err != nil {
		return Facts{}, fmt.Errorf("failed to sum completed nominations: %w", err)
	}

	var activeBids int64
	var activeWins int
	err = r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(b.bid_amount), 0), COUNT(b.id)
		 FROM bids b
		 JOIN nominations n ON n.id = b.nomination_id
		 WHERE n.draft_id = $1
		   AND b.roster_id = $2
		   AND b.is_winning
		   AND n.status = 'ACTIVE'
		   AND ($3::uuid IS NULL OR n.id <> $3)`,
		draftID, rosterID, excludeNomination,
	).Scan(&activeBids, &activeWins)
	if err != nil {
		return Facts{}, fmt.Errorf("failed to sum active winning bids: %w", err)
	}

	filled, err := r.rosters.PlayerCount(ctx, rosterID)
	if err != nil {
		return Facts{}, fmt.Errorf("failed to count filled slots: %w", err)
	}
	openSlots := settings.RosterSize - filled
	if openSlots < 0 {
		openSlots = 0
	}

	return Facts{
		StartingBudget: settings.StartingBudget,
		Spent:          spent,
		ActiveBids:     activeBids,
		ActiveWins:     activeWins,
		OpenSlots:      openSlots,
		ReserveBudget:  settings.ReserveBudget,
	}, nil
}
