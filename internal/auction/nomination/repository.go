package nomination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/auctiondraft/internal/auction/budget"
	"github.com/mcdev12/auctiondraft/internal/auction/outbox"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/mcdev12/auctiondraft/internal/roster"
	"github.com/mcdev12/auctiondraft/internal/sqlutil"
)

const nominationColumns = `id, draft_id, player_id, nominating_roster_id,
	winning_roster_id, winning_bid, status, deadline, created_at, updated_at`

// Repository is the pgx-backed store for nominations and bids. It implements
// both the read-side Store and, through WithNominationLock, the transactional
// unit of work the lifecycle manager mutates under.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithNominationLock runs fn inside a transaction holding a row lock on the
// nomination. All place-bid and expiry mutations for one nomination serialize
// here; exactly one racer observes it ACTIVE.
func (r *Repository) WithNominationLock(ctx context.Context, nominationID uuid.UUID, fn func(ctx context.Context, tx TxStore, nom *models.Nomination) error) error {
	return sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+nominationColumns+` FROM nominations WHERE id = $1 FOR UPDATE`,
			nominationID,
		)
		nom, err := scanNomination(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNominationNotFound
			}
			return fmt.Errorf("failed to lock nomination: %w", err)
		}
		return fn(ctx, newTxStore(tx), nom)
	})
}

// InTx runs fn inside a plain transaction, for mutations that create the
// nomination row rather than contend on an existing one.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	return sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, newTxStore(tx))
	})
}

func (r *Repository) GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	return getDraft(ctx, r.pool, draftID)
}

func (r *Repository) GetNomination(ctx context.Context, id uuid.UUID) (*models.Nomination, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+nominationColumns+` FROM nominations WHERE id = $1`, id)
	nom, err := scanNomination(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNominationNotFound
		}
		return nil, fmt.Errorf("failed to get nomination: %w", err)
	}
	return nom, nil
}

func (r *Repository) ListActiveNominations(ctx context.Context, draftID uuid.UUID) ([]models.Nomination, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+nominationColumns+` FROM nominations
		 WHERE draft_id = $1 AND status = 'ACTIVE'
		 ORDER BY created_at`, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active nominations: %w", err)
	}
	defer rows.Close()

	var noms []models.Nomination
	for rows.Next() {
		nom, err := scanNomination(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nomination: %w", err)
		}
		noms = append(noms, *nom)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nominations: %w", err)
	}
	return noms, nil
}

// txStore binds all mutating queries to one transaction.
type txStore struct {
	tx pgx.Tx
}

func newTxStore(tx pgx.Tx) *txStore {
	return &txStore{tx: tx}
}

func (s *txStore) GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	return getDraft(ctx, s.tx, draftID)
}

func (s *txStore) ActiveNominationCountByRoster(ctx context.Context, draftID, rosterID uuid.UUID) (int, error) {
	var count int
	err := s.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM nominations
		 WHERE draft_id = $1 AND nominating_roster_id = $2 AND status = 'ACTIVE'`,
		draftID, rosterID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active nominations: %w", err)
	}
	return count, nil
}

func (s *txStore) PlayerOpenOrAwarded(ctx context.Context, draftID, playerID uuid.UUID) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM nominations
			WHERE draft_id = $1 AND player_id = $2 AND status IN ('ACTIVE', 'COMPLETED')
		 )`,
		draftID, playerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check player nomination state: %w", err)
	}
	return exists, nil
}

func (s *txStore) CreateNomination(ctx context.Context, params CreateNominationParams) (*models.Nomination, error) {
	row := s.tx.QueryRow(ctx,
		`INSERT INTO nominations (id, draft_id, player_id, nominating_roster_id, status, deadline)
		 VALUES ($1, $2, $3, $4, 'ACTIVE', $5)
		 RETURNING `+nominationColumns,
		params.ID, params.DraftID, params.PlayerID, params.NominatingRosterID, params.Deadline,
	)
	nom, err := scanNomination(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create nomination: %w", err)
	}
	return nom, nil
}

func (s *txStore) ListBids(ctx context.Context, nominationID uuid.UUID) ([]models.Bid, error) {
	rows, err := s.tx.Query(ctx,
		`SELECT id, nomination_id, roster_id, bid_amount, max_bid, is_winning, created_at, updated_at
		 FROM bids WHERE nomination_id = $1 ORDER BY created_at`,
		nominationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		var b models.Bid
		if err := rows.Scan(&b.ID, &b.NominationID, &b.RosterID, &b.BidAmount, &b.MaxBid, &b.IsWinning, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}
	return bids, nil
}

func (s *txStore) InsertBid(ctx context.Context, params InsertBidParams) (*models.Bid, error) {
	var b models.Bid
	err := s.tx.QueryRow(ctx,
		`INSERT INTO bids (id, nomination_id, roster_id, bid_amount, max_bid, is_winning)
		 VALUES ($1, $2, $3, $4, $5, false)
		 RETURNING id, nomination_id, roster_id, bid_amount, max_bid, is_winning, created_at, updated_at`,
		params.ID, params.NominationID, params.RosterID, params.BidAmount, params.MaxBid,
	).Scan(&b.ID, &b.NominationID, &b.RosterID, &b.BidAmount, &b.MaxBid, &b.IsWinning, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bid: %w", err)
	}
	return &b, nil
}

func (s *txStore) ClearWinningBids(ctx context.Context, nominationID uuid.UUID) error {
	_, err := s.tx.Exec(ctx,
		`UPDATE bids SET is_winning = false, updated_at = now()
		 WHERE nomination_id = $1 AND is_winning`,
		nominationID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear winning bids: %w", err)
	}
	return nil
}

func (s *txStore) SetWinningBid(ctx context.Context, bidID uuid.UUID, amount int64) error {
	_, err := s.tx.Exec(ctx,
		`UPDATE bids SET is_winning = true, bid_amount = $2, updated_at = now() WHERE id = $1`,
		bidID, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to set winning bid: %w", err)
	}
	return nil
}

func (s *txStore) SetNominationWinner(ctx context.Context, nominationID, rosterID uuid.UUID, amount int64) error {
	_, err := s.tx.Exec(ctx,
		`UPDATE nominations SET winning_roster_id = $2, winning_bid = $3, updated_at = now()
		 WHERE id = $1`,
		nominationID, rosterID, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to set nomination winner: %w", err)
	}
	return nil
}

func (s *txStore) UpdateNominationDeadline(ctx context.Context, nominationID uuid.UUID, deadline *time.Time) error {
	_, err := s.tx.Exec(ctx,
		`UPDATE nominations SET deadline = $2, updated_at = now() WHERE id = $1`,
		nominationID, deadline,
	)
	if err != nil {
		return fmt.Errorf("failed to update nomination deadline: %w", err)
	}
	return nil
}

func (s *txStore) CompleteNomination(ctx context.Context, nominationID, rosterID uuid.UUID, amount int64) error {
	_, err := s.tx.Exec(ctx,
		`UPDATE nominations
		 SET status = 'COMPLETED', winning_roster_id = $2, winning_bid = $3,
		     deadline = NULL, updated_at = now()
		 WHERE id = $1 AND status = 'ACTIVE'`,
		nominationID, rosterID, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to complete nomination: %w", err)
	}
	return nil
}

func (s *txStore) PassNomination(ctx context.Context, nominationID uuid.UUID) error {
	_, err := s.tx.Exec(ctx,
		`UPDATE nominations
		 SET status = 'PASSED', deadline = NULL, updated_at = now()
		 WHERE id = $1 AND status = 'ACTIVE'`,
		nominationID,
	)
	if err != nil {
		return fmt.Errorf("failed to pass nomination: %w", err)
	}
	return nil
}

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

func (s *txStore) BudgetFacts(ctx context.Context, draftID, rosterID uuid.UUID, excludeNomination *uuid.UUID) (budget.Facts, error) {
	repo := budget.NewRepository(s.tx, roster.NewRepository(s.tx))
	return repo.BudgetFacts(ctx, draftID, rosterID, excludeNomination)
}

func (s *txStore) AppendEvent(ctx context.Context, draftID uuid.UUID, rosterID *uuid.UUID, eventType string, payload []byte) error {
	repo := outbox.NewRepository(s.tx)
	if rosterID != nil {
		return repo.InsertForRoster(ctx, draftID, *rosterID, eventType, payload)
	}
	return repo.Insert(ctx, draftID, eventType, payload)
}

func getDraft(ctx context.Context, db sqlutil.DBTX, draftID uuid.UUID) (*models.Draft, error) {
	var (
		d           models.Draft
		settingsRaw []byte
	)
	err := db.QueryRow(ctx,
		`SELECT id, league_id, draft_type, status, settings, current_roster_id,
		        turn_deadline, started_at, completed_at, created_at, updated_at
		 FROM drafts WHERE id = $1`,
		draftID,
	).Scan(&d.ID, &d.LeagueID, &d.DraftType, &d.Status, &settingsRaw, &d.CurrentRosterID,
		&d.TurnDeadline, &d.StartedAt, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("draft %s not found", draftID)
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	if err := unmarshalSettings(settingsRaw, &d.Settings); err != nil {
		return nil, err
	}
	return &d, nil
}

func unmarshalSettings(raw []byte, settings *models.DraftSettings) error {
	if err := json.Unmarshal(raw, settings); err != nil {
		return fmt.Errorf("failed to unmarshal draft settings: %w", err)
	}
	return nil
}

func scanNomination(row pgx.Row) (*models.Nomination, error) {
	var n models.Nomination
	err := row.Scan(&n.ID, &n.DraftID, &n.PlayerID, &n.NominatingRosterID,
		&n.WinningRosterID, &n.WinningBid, &n.Status, &n.Deadline, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
