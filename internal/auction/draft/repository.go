package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/auctiondraft/internal/auction/outbox"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/mcdev12/auctiondraft/internal/sqlutil"
)

const draftColumns = `id, league_id, draft_type, status, settings, current_roster_id,
	turn_deadline, started_at, completed_at, created_at, updated_at`

var ErrDraftNotFound = errors.New("draft not found")

// Repository is the pgx-backed store for draft control state.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx runs fn against a transaction-bound store. Status transitions and
// their outbox events commit atomically.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

func (r *Repository) GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	return scanDraftRow(r.pool.QueryRow(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE id = $1`, draftID))
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) GetDraftForUpdate(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	return scanDraftRow(s.tx.QueryRow(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE id = $1 FOR UPDATE`, draftID))
}

func (s *txStore) UpdateStatus(ctx context.Context, draftID uuid.UUID, status models.DraftStatus) error {
	_, err := s.tx.Exec(ctx,
		`UPDATE drafts
		 SET status = $2,
		     started_at = CASE WHEN $2 = 'IN_PROGRESS' AND started_at IS NULL THEN now() ELSE started_at END,
		     completed_at = CASE WHEN $2 = 'COMPLETED' THEN now() ELSE completed_at END,
		     updated_at = now()
		 WHERE id = $1`,
		draftID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update draft status: %w", err)
	}
	return nil
}

func (s *txStore) SetTurn(ctx context.Context, draftID, rosterID uuid.UUID, deadline time.Time) error {
	_, err := s.tx.Exec(ctx,
		`UPDATE drafts SET current_roster_id = $2, turn_deadline = $3, updated_at = now()
		 WHERE id = $1`,
		draftID, rosterID, deadline,
	)
	if err != nil {
		return fmt.Errorf("failed to set turn: %w", err)
	}
	return nil
}

// ClearTurnDeadline disarms the pick timer but keeps the roster on the clock,
// so a resume can re-arm the same turn.
func (s *txStore) ClearTurnDeadline(ctx context.Context, draftID uuid.UUID) error {
	_, err := s.tx.Exec(ctx,
		`UPDATE drafts SET turn_deadline = NULL, updated_at = now() WHERE id = $1`,
		draftID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear turn deadline: %w", err)
	}
	return nil
}

func (s *txStore) ClearTurn(ctx context.Context, draftID uuid.UUID) error {
	_, err := s.tx.Exec(ctx,
		`UPDATE drafts SET current_roster_id = NULL, turn_deadline = NULL, updated_at = now()
		 WHERE id = $1`,
		draftID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear turn: %w", err)
	}
	return nil
}

func (s *txStore) CountWonPlayers(ctx context.Context, draftID uuid.UUID) (int, error) {
	var count int
	err := s.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM nominations WHERE draft_id = $1 AND status = 'COMPLETED'`,
		draftID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count won players: %w", err)
	}
	return count, nil
}

func (s *txStore) AppendEvent(ctx context.Context, draftID uuid.UUID, eventType string, payload []byte) error {
	return outbox.NewRepository(s.tx).Insert(ctx, draftID, eventType, payload)
}

func scanDraftRow(row pgx.Row) (*models.Draft, error) {
	var (
		d           models.Draft
		settingsRaw []byte
	)
	err := row.Scan(&d.ID, &d.LeagueID, &d.DraftType, &d.Status, &settingsRaw, &d.CurrentRosterID,
		&d.TurnDeadline, &d.StartedAt, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to scan draft: %w", err)
	}
	if err := json.Unmarshal(settingsRaw, &d.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft settings: %w", err)
	}
	return &d, nil
}
