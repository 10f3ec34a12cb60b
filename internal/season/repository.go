package season

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/sqlutil"
)

// Award is one player won at auction, ready for roster assignment.
type Award struct {
	PlayerID uuid.UUID
	RosterID uuid.UUID
	Amount   int64
	WonAt    time.Time
}

// Repository persists the post-draft handoff: award assignment, league
// activation, and the season schedule.
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

// ListAwards returns the draft's completed nominations with their winners.
func (r *Repository) ListAwards(ctx context.Context, draftID uuid.UUID) ([]Award, error) {
	rows, err := r.db.Query(ctx,
		`SELECT player_id, winning_roster_id, winning_bid, updated_at
		 FROM nominations
		 WHERE draft_id = $1 AND status = 'COMPLETED'
		 ORDER BY updated_at`,
		draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list awards: %w", err)
	}
	defer rows.Close()

	var awards []Award
	for rows.Next() {
		var a Award
		if err := rows.Scan(&a.PlayerID, &a.RosterID, &a.Amount, &a.WonAt); err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		awards = append(awards, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating awards: %w", err)
	}
	return awards, nil
}

// LeagueIDForDraft resolves the draft's league.
func (r *Repository) LeagueIDForDraft(ctx context.Context, draftID uuid.UUID) (uuid.UUID, error) {
	var leagueID uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT league_id FROM drafts WHERE id = $1`, draftID,
	).Scan(&leagueID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve league for draft: %w", err)
	}
	return leagueID, nil
}

// MarkLeagueInSeason flips the league into its playing state.
func (r *Repository) MarkLeagueInSeason(ctx context.Context, leagueID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE leagues SET status = 'IN_SEASON', updated_at = now() WHERE id = $1`,
		leagueID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark league in season: %w", err)
	}
	return nil
}

// HasSchedule reports whether matchups were already generated for the league.
func (r *Repository) HasSchedule(ctx context.Context, leagueID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM matchups WHERE league_id = $1)`,
		leagueID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check schedule: %w", err)
	}
	return exists, nil
}

// InsertMatchup records one scheduled game with zeroed scores.
func (r *Repository) InsertMatchup(ctx context.Context, leagueID uuid.UUID, week int, homeID, awayID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO matchups (id, league_id, week, home_roster_id, away_roster_id, home_score, away_score)
		 VALUES ($1, $2, $3, $4, $5, 0, 0)`,
		uuid.New(), leagueID, week, homeID, awayID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert matchup: %w", err)
	}
	return nil
}
