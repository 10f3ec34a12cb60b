// Package nomination owns the nomination lifecycle: entry to ACTIVE, proxy
// bid placement with second-price clearing, and the terminal COMPLETED/PASSED
// transitions. Every mutation for one nomination runs under a row lock, so a
// bid and an expiry can never both observe the nomination ACTIVE.
package nomination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctiondraft/internal/auction/budget"
	"github.com/mcdev12/auctiondraft/internal/auction/clearing"
	"github.com/mcdev12/auctiondraft/internal/auction/events"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/rs/zerolog/log"
)

// TxStore is the mutation surface available inside a nomination transaction.
type TxStore interface {
	GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error)
	ActiveNominationCountByRoster(ctx context.Context, draftID, rosterID uuid.UUID) (int, error)
	PlayerOpenOrAwarded(ctx context.Context, draftID, playerID uuid.UUID) (bool, error)
	CreateNomination(ctx context.Context, params CreateNominationParams) (*models.Nomination, error)
	ListBids(ctx context.Context, nominationID uuid.UUID) ([]models.Bid, error)
	InsertBid(ctx context.Context, params InsertBidParams) (*models.Bid, error)
	ClearWinningBids(ctx context.Context, nominationID uuid.UUID) error
	SetWinningBid(ctx context.Context, bidID uuid.UUID, amount int64) error
	SetNominationWinner(ctx context.Context, nominationID, rosterID uuid.UUID, amount int64) error
	UpdateNominationDeadline(ctx context.Context, nominationID uuid.UUID, deadline *time.Time) error
	CompleteNomination(ctx context.Context, nominationID, rosterID uuid.UUID, amount int64) error
	PassNomination(ctx context.Context, nominationID uuid.UUID) error
	ClearTurnDeadline(ctx context.Context, draftID uuid.UUID) error
	BudgetFacts(ctx context.Context, draftID, rosterID uuid.UUID, excludeNomination *uuid.UUID) (budget.Facts, error)
	AppendEvent(ctx context.Context, draftID uuid.UUID, rosterID *uuid.UUID, eventType string, payload []byte) error
}

// UnitOfWork opens the transactional scopes the lifecycle mutates under.
type UnitOfWork interface {
	WithNominationLock(ctx context.Context, nominationID uuid.UUID, fn func(ctx context.Context, tx TxStore, nom *models.Nomination) error) error
	InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
}

// Waker nudges the expiry scheduler after a sooner deadline is written.
type Waker interface {
	Wake()
}

const lockRetryAttempts = 3

// App is the nomination lifecycle manager.
type App struct {
	uow   UnitOfWork
	clock clockwork.Clock
	waker Waker
}

func NewApp(uow UnitOfWork, clock clockwork.Clock, waker Waker) *App {
	return &App{
		uow:   uow,
		clock: clock,
		waker: waker,
	}
}

// NominatePlayer opens a nomination. The draft must be an in-progress auction;
// slow auctions enforce the per-manager concurrent-nomination cap, fixed-order
// auctions require the nominator to hold the turn.
func (a *App) NominatePlayer(ctx context.Context, req NominatePlayerRequest) (*models.Nomination, error) {
	var created *models.Nomination

	err := a.uow.InTx(ctx, func(ctx context.Context, tx TxStore) error {
		draft, err := tx.GetDraft(ctx, req.DraftID)
		if err != nil {
			return err
		}
		if !draft.DraftType.IsAuction() {
			return ErrNotAuctionDraft
		}
		if draft.Status != models.DraftStatusInProgress {
			return ErrDraftNotInProgress
		}

		switch draft.DraftType {
		case models.DraftTypeSlowAuction:
			count, err := tx.ActiveNominationCountByRoster(ctx, req.DraftID, req.NominatingRosterID)
			if err != nil {
				return err
			}
			if count >= draft.Settings.NominationsPerManager {
				return ErrNominationCapExceeded
			}
		case models.DraftTypeAuction:
			if !req.AutoNominated {
				if draft.CurrentRosterID == nil || *draft.CurrentRosterID != req.NominatingRosterID {
					return ErrNotYourTurn
				}
			}
			// The armed pick timer must not fire while bidding is open; the
			// turn advances when this nomination resolves.
			if err := tx.ClearTurnDeadline(ctx, req.DraftID); err != nil {
				return err
			}
		}

		taken, err := tx.PlayerOpenOrAwarded(ctx, req.DraftID, req.PlayerID)
		if err != nil {
			return err
		}
		if taken {
			return ErrPlayerAlreadyNominated
		}

		deadline := a.clock.Now().Add(draft.Settings.NominationWindow(draft.DraftType))
		created, err = tx.CreateNomination(ctx, CreateNominationParams{
			ID:                 uuid.New(),
			DraftID:            req.DraftID,
			PlayerID:           req.PlayerID,
			NominatingRosterID: req.NominatingRosterID,
			Deadline:           &deadline,
		})
		if err != nil {
			return err
		}

		return a.appendEvent(ctx, tx, req.DraftID, nil, events.TypePlayerNominated, events.PlayerNominatedPayload{
			NominationID:       created.ID.String(),
			PlayerID:           req.PlayerID.String(),
			NominatingRosterID: req.NominatingRosterID.String(),
			Deadline:           created.Deadline,
			AutoNominated:      req.AutoNominated,
			NominatedAt:        created.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("draft_id", req.DraftID.String()).
		Str("nomination_id", created.ID.String()).
		Str("player_id", req.PlayerID.String()).
		Bool("auto", req.AutoNominated).
		Msg("player nominated")

	a.wake()
	return created, nil
}

// PlaceBid inserts a proxy bid and re-resolves the nomination's winner and
// clearing price inside one transaction. Concurrency conflicts retry a
// bounded number of times before surfacing.
func (a *App) PlaceBid(ctx context.Context, req PlaceBidRequest) (*BidResult, error) {
	var result *BidResult
	var err error

	for attempt := 0; attempt < lockRetryAttempts; attempt++ {
		result, err = a.placeBidOnce(ctx, req)
		if err == nil || !isLockConflict(err) {
			break
		}
		log.Warn().
			Str("nomination_id", req.NominationID.String()).
			Int("attempt", attempt+1).
			Msg("bid hit lock conflict, retrying")
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("nomination_id", req.NominationID.String()).
		Str("winning_roster_id", result.WinningRosterID.String()).
		Int64("current_bid", result.CurrentBid).
		Msg("bid placed")

	if result.DeadlineReset != nil {
		a.wake()
	}
	return result, nil
}

func (a *App) placeBidOnce(ctx context.Context, req PlaceBidRequest) (*BidResult, error) {
	var result *BidResult

	err := a.uow.WithNominationLock(ctx, req.NominationID, func(ctx context.Context, tx TxStore, nom *models.Nomination) error {
		if nom.Status != models.NominationStatusActive {
			return ErrNominationNotActive
		}

		draft, err := tx.GetDraft(ctx, nom.DraftID)
		if err != nil {
			return err
		}
		if draft.Status != models.DraftStatusInProgress {
			return ErrDraftNotInProgress
		}
		minBid := draft.Settings.MinBid
		if req.MaxBid < minBid {
			return ErrBidBelowMinimum
		}

		// Budget check and bid insert share this transaction; a stale read
		// can never produce an over-budget winning bid. The bidder's own
		// winning amount on this nomination is excluded so a raise is not
		// double-counted.
		facts, err := tx.BudgetFacts(ctx, nom.DraftID, req.RosterID, &nom.ID)
		if err != nil {
			return err
		}
		if req.MaxBid > budget.Compute(facts).Available {
			return ErrInsufficientBudget
		}

		existing, err := tx.ListBids(ctx, nom.ID)
		if err != nil {
			return err
		}

		var previousWinner *uuid.UUID
		var currentAmount int64
		for _, b := range existing {
			if b.IsWinning {
				rosterID := b.RosterID
				previousWinner = &rosterID
				currentAmount = b.BidAmount
				break
			}
		}

		inserted, err := tx.InsertBid(ctx, InsertBidParams{
			ID:           uuid.New(),
			NominationID: nom.ID,
			RosterID:     req.RosterID,
			BidAmount:    clearing.OpeningAmount(currentAmount, minBid),
			MaxBid:       req.MaxBid,
		})
		if err != nil {
			return err
		}

		outcome, err := clearing.Resolve(minBid, toClearingBids(append(existing, *inserted)))
		if err != nil {
			return err
		}

		if err := tx.ClearWinningBids(ctx, nom.ID); err != nil {
			return err
		}
		if err := tx.SetWinningBid(ctx, outcome.WinningBidID, outcome.ClearingPrice); err != nil {
			return err
		}
		if err := tx.SetNominationWinner(ctx, nom.ID, outcome.WinningRosterID, outcome.ClearingPrice); err != nil {
			return err
		}

		result = &BidResult{
			Nomination:      nom,
			WinningRosterID: outcome.WinningRosterID,
			CurrentBid:      outcome.ClearingPrice,
		}
		if previousWinner != nil && *previousWinner != outcome.WinningRosterID {
			result.PreviousWinner = previousWinner
		}

		// Anti-sniping: any bid on a slow auction pushes the deadline out.
		if draft.DraftType == models.DraftTypeSlowAuction {
			deadline := a.clock.Now().Add(draft.Settings.NominationWindow(draft.DraftType))
			if err := tx.UpdateNominationDeadline(ctx, nom.ID, &deadline); err != nil {
				return err
			}
			result.DeadlineReset = &deadline
			if err := a.appendEvent(ctx, tx, nom.DraftID, nil, events.TypeNominationDeadlineUpdated, events.NominationDeadlineUpdatedPayload{
				NominationID: nom.ID.String(),
				Deadline:     deadline,
			}); err != nil {
				return err
			}
		}

		bidPlaced := events.BidPlacedPayload{
			NominationID:    nom.ID.String(),
			WinningRosterID: outcome.WinningRosterID.String(),
			CurrentBid:      outcome.ClearingPrice,
			BidAt:           a.clock.Now(),
		}
		if result.PreviousWinner != nil {
			s := result.PreviousWinner.String()
			bidPlaced.PreviousWinner = &s
		}
		if err := a.appendEvent(ctx, tx, nom.DraftID, nil, events.TypeBidPlaced, bidPlaced); err != nil {
			return err
		}

		return a.emitBudgets(ctx, tx, draft, outcome.WinningRosterID, result.PreviousWinner)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveExpiredNomination applies the terminal transition for a nomination
// whose deadline passed. Idempotent: a nomination already terminal is a
// no-op, not an error.
func (a *App) ResolveExpiredNomination(ctx context.Context, nominationID uuid.UUID) (*Resolution, error) {
	return a.resolve(ctx, nominationID, false)
}

// CancelNomination is the explicit cancel path. The deadline is cleared in
// the same transaction as the transition, so a stale timer firing later
// no-ops on the terminal status.
func (a *App) CancelNomination(ctx context.Context, nominationID uuid.UUID) (*Resolution, error) {
	return a.resolve(ctx, nominationID, true)
}

func (a *App) resolve(ctx context.Context, nominationID uuid.UUID, cancel bool) (*Resolution, error) {
	var res *Resolution

	err := a.uow.WithNominationLock(ctx, nominationID, func(ctx context.Context, tx TxStore, nom *models.Nomination) error {
		if nom.Status != models.NominationStatusActive {
			// Another path already resolved it; exactly one racer wins.
			res = &Resolution{Nomination: nom, Applied: false}
			return nil
		}

		draft, err := tx.GetDraft(ctx, nom.DraftID)
		if err != nil {
			return err
		}

		bids, err := tx.ListBids(ctx, nom.ID)
		if err != nil {
			return err
		}
		var winner *models.Bid
		if !cancel {
			for i := range bids {
				if bids[i].IsWinning {
					winner = &bids[i]
					break
				}
			}
		}

		now := a.clock.Now()
		if winner != nil {
			if err := tx.CompleteNomination(ctx, nom.ID, winner.RosterID, winner.BidAmount); err != nil {
				return err
			}
			nom.Status = models.NominationStatusCompleted
			nom.WinningRosterID = &winner.RosterID
			nom.WinningBid = &winner.BidAmount
			nom.Deadline = nil

			if err := a.appendEvent(ctx, tx, nom.DraftID, nil, events.TypePlayerWon, events.PlayerWonPayload{
				NominationID:    nom.ID.String(),
				PlayerID:        nom.PlayerID.String(),
				WinningRosterID: winner.RosterID.String(),
				Amount:          winner.BidAmount,
				WonAt:           now,
			}); err != nil {
				return err
			}
			if err := a.emitBudgets(ctx, tx, draft, winner.RosterID, nil); err != nil {
				return err
			}
			res = &Resolution{Nomination: nom, Applied: true, Completed: true}
			return nil
		}

		if err := tx.PassNomination(ctx, nom.ID); err != nil {
			return err
		}
		nom.Status = models.NominationStatusPassed
		nom.Deadline = nil

		if err := a.appendEvent(ctx, tx, nom.DraftID, nil, events.TypeNominationExpired, events.NominationExpiredPayload{
			NominationID: nom.ID.String(),
			PlayerID:     nom.PlayerID.String(),
			ExpiredAt:    now,
		}); err != nil {
			return err
		}
		res = &Resolution{Nomination: nom, Applied: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Applied {
		log.Info().
			Str("nomination_id", nominationID.String()).
			Str("status", string(res.Nomination.Status)).
			Bool("cancelled", cancel).
			Msg("nomination resolved")
	}
	return res, nil
}

// emitBudgets appends private budget_updated events for the rosters a bid or
// award affected. Budgets are recomputed inside the same transaction, so the
// published snapshots match committed state.
func (a *App) emitBudgets(ctx context.Context, tx TxStore, draft *models.Draft, winner uuid.UUID, previous *uuid.UUID) error {
	rosterIDs := []uuid.UUID{winner}
	if previous != nil && *previous != winner {
		rosterIDs = append(rosterIDs, *previous)
	}

	for _, rosterID := range rosterIDs {
		facts, err := tx.BudgetFacts(ctx, draft.ID, rosterID, nil)
		if err != nil {
			return err
		}
		if err := a.appendEvent(ctx, tx, draft.ID, &rosterID, events.TypeBudgetUpdated, events.BudgetUpdatedPayload{
			RosterID: rosterID.String(),
			Budget:   budget.Compute(facts),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) appendEvent(ctx context.Context, tx TxStore, draftID uuid.UUID, rosterID *uuid.UUID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return tx.AppendEvent(ctx, draftID, rosterID, eventType, data)
}

func (a *App) wake() {
	if a.waker != nil {
		a.waker.Wake()
	}
}

func toClearingBids(bids []models.Bid) []clearing.Bid {
	out := make([]clearing.Bid, len(bids))
	for i, b := range bids {
		out[i] = clearing.Bid{
			ID:        b.ID,
			RosterID:  b.RosterID,
			MaxBid:    b.MaxBid,
			CreatedAt: b.CreatedAt,
		}
	}
	return out
}

// isLockConflict reports whether err is a retryable lock or serialization
// conflict rather than a validation or fatal error.
func isLockConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "55P03", "40001", "40P01": // lock_not_available, serialization_failure, deadlock_detected
		return true
	}
	return false
}
