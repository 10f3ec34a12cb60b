package completion

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/auction/budget"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/mcdev12/auctiondraft/internal/roster"
	"github.com/mcdev12/auctiondraft/internal/sqlutil"
)

// Repository assembles the detector's fact reads from the shared tables.
type Repository struct {
	db      sqlutil.DBTX
	rosters *roster.Repository
	budgets *budget.Repository
	drafts  DraftReader
}

// DraftReader loads draft rows; wired to the draft package's repository.
type DraftReader interface {
	GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error)
}

func NewRepository(db sqlutil.DBTX, drafts DraftReader) *Repository {
	rosters := roster.NewRepository(db)
	return &Repository{
		db:      db,
		rosters: rosters,
		budgets: budget.NewRepository(db, rosters),
		drafts:  drafts,
	}
}

func (r *Repository) GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	return r.drafts.GetDraft(ctx, draftID)
}

func (r *Repository) ActiveNominationCount(ctx context.Context, draftID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM nominations WHERE draft_id = $1 AND status = 'ACTIVE'`,
		draftID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active nominations: %w", err)
	}
	return count, nil
}

func (r *Repository) NominablePlayerCount(ctx context.Context, draftID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM players p
		 WHERE NOT EXISTS (
			SELECT 1 FROM nominations n
			WHERE n.draft_id = $1 AND n.player_id = p.id AND n.status IN ('ACTIVE', 'COMPLETED')
		 )`,
		draftID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count nominable players: %w", err)
	}
	return count, nil
}

func (r *Repository) RosterIDs(ctx context.Context, leagueID uuid.UUID) ([]uuid.UUID, error) {
	return r.rosters.ListRosterIDsByLeague(ctx, leagueID)
}

func (r *Repository) PlayerCount(ctx context.Context, rosterID uuid.UUID) (int, error) {
	return r.rosters.PlayerCount(ctx, rosterID)
}

func (r *Repository) RosterBudget(ctx context.Context, draftID, rosterID uuid.UUID) (models.Budget, error) {
	facts, err := r.budgets.BudgetFacts(ctx, draftID, rosterID, nil)
	if err != nil {
		return models.Budget{}, err
	}
	return budget.Compute(facts), nil
}
