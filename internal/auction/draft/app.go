// Package draft controls the auction draft state machine: start, pause,
// resume, and completion. Turn rotation lives in the turn package; this one
// owns the status column and its deadline bookkeeping.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctiondraft/internal/auction/events"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidTransition = errors.New("invalid draft status transition")
	ErrNotAuctionDraft   = errors.New("draft is not an auction draft")
	ErrEmptyDraftOrder   = errors.New("auction draft has no draft order")
)

// Store is the transactional surface for draft control mutations.
type Store interface {
	GetDraftForUpdate(ctx context.Context, draftID uuid.UUID) (*models.Draft, error)
	UpdateStatus(ctx context.Context, draftID uuid.UUID, status models.DraftStatus) error
	SetTurn(ctx context.Context, draftID, rosterID uuid.UUID, deadline time.Time) error
	ClearTurnDeadline(ctx context.Context, draftID uuid.UUID) error
	ClearTurn(ctx context.Context, draftID uuid.UUID) error
	CountWonPlayers(ctx context.Context, draftID uuid.UUID) (int, error)
	AppendEvent(ctx context.Context, draftID uuid.UUID, eventType string, payload []byte) error
}

// UnitOfWork opens a draft control transaction.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// Waker nudges the expiry scheduler after a deadline is armed.
type Waker interface {
	Wake()
}

// App drives draft status transitions.
type App struct {
	uow   UnitOfWork
	clock clockwork.Clock
	waker Waker
}

func NewApp(uow UnitOfWork, clock clockwork.Clock, waker Waker) *App {
	return &App{uow: uow, clock: clock, waker: waker}
}

// StartAuction moves a NOT_STARTED auction to IN_PROGRESS. Live auctions put
// the first roster in the draft order on the clock.
func (a *App) StartAuction(ctx context.Context, draftID uuid.UUID) error {
	err := a.uow.InTx(ctx, func(ctx context.Context, tx Store) error {
		draft, err := tx.GetDraftForUpdate(ctx, draftID)
		if err != nil {
			return err
		}
		if !draft.DraftType.IsAuction() {
			return ErrNotAuctionDraft
		}
		if draft.Status != models.DraftStatusNotStarted {
			return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, draft.Status)
		}

		if err := tx.UpdateStatus(ctx, draftID, models.DraftStatusInProgress); err != nil {
			return err
		}

		if draft.DraftType == models.DraftTypeAuction {
			if len(draft.Settings.DraftOrder) == 0 {
				return ErrEmptyDraftOrder
			}
			first := draft.Settings.DraftOrder[0]
			if err := a.armTurn(ctx, tx, draft, first); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("draft_id", draftID.String()).Msg("auction started")
	a.wake()
	return nil
}

// PauseAuction moves an IN_PROGRESS auction to PAUSED and disarms the pick
// timer. Nomination deadlines stay persisted; the scheduler skips drafts that
// are not in progress, so nothing fires while paused.
func (a *App) PauseAuction(ctx context.Context, draftID uuid.UUID, reason string) error {
	err := a.uow.InTx(ctx, func(ctx context.Context, tx Store) error {
		draft, err := tx.GetDraftForUpdate(ctx, draftID)
		if err != nil {
			return err
		}
		if draft.Status != models.DraftStatusInProgress {
			return fmt.Errorf("%w: cannot pause from %s", ErrInvalidTransition, draft.Status)
		}

		if err := tx.UpdateStatus(ctx, draftID, models.DraftStatusPaused); err != nil {
			return err
		}
		if err := tx.ClearTurnDeadline(ctx, draftID); err != nil {
			return err
		}

		return appendEvent(ctx, tx, draftID, events.TypeAuctionPaused, events.AuctionPausedPayload{
			DraftID:  draftID.String(),
			PausedAt: a.clock.Now(),
			Reason:   reason,
		})
	})
	if err != nil {
		return err
	}

	log.Info().Str("draft_id", draftID.String()).Str("reason", reason).Msg("auction paused")
	return nil
}

// ResumeAuction moves a PAUSED auction back to IN_PROGRESS. If a roster was
// on the clock it gets a fresh full pick window.
func (a *App) ResumeAuction(ctx context.Context, draftID uuid.UUID) error {
	err := a.uow.InTx(ctx, func(ctx context.Context, tx Store) error {
		draft, err := tx.GetDraftForUpdate(ctx, draftID)
		if err != nil {
			return err
		}
		if draft.Status != models.DraftStatusPaused {
			return fmt.Errorf("%w: cannot resume from %s", ErrInvalidTransition, draft.Status)
		}

		if err := tx.UpdateStatus(ctx, draftID, models.DraftStatusInProgress); err != nil {
			return err
		}

		if err := appendEvent(ctx, tx, draftID, events.TypeAuctionResumed, events.AuctionResumedPayload{
			DraftID:   draftID.String(),
			ResumedAt: a.clock.Now(),
		}); err != nil {
			return err
		}

		if draft.DraftType == models.DraftTypeAuction && draft.CurrentRosterID != nil {
			return a.armTurn(ctx, tx, draft, *draft.CurrentRosterID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("draft_id", draftID.String()).Msg("auction resumed")
	a.wake()
	return nil
}

// CompleteAuction moves the draft to COMPLETED and clears the turn. Called by
// the completion detector once no further nominations can change the outcome.
func (a *App) CompleteAuction(ctx context.Context, draftID uuid.UUID) error {
	var totalWon int

	err := a.uow.InTx(ctx, func(ctx context.Context, tx Store) error {
		draft, err := tx.GetDraftForUpdate(ctx, draftID)
		if err != nil {
			return err
		}
		if draft.Status == models.DraftStatusCompleted {
			return nil
		}
		if draft.Status != models.DraftStatusInProgress {
			return fmt.Errorf("%w: cannot complete from %s", ErrInvalidTransition, draft.Status)
		}

		if err := tx.UpdateStatus(ctx, draftID, models.DraftStatusCompleted); err != nil {
			return err
		}
		if err := tx.ClearTurn(ctx, draftID); err != nil {
			return err
		}

		totalWon, err = tx.CountWonPlayers(ctx, draftID)
		if err != nil {
			return err
		}

		return appendEvent(ctx, tx, draftID, events.TypeAuctionCompleted, events.AuctionCompletedPayload{
			DraftID:     draftID.String(),
			CompletedAt: a.clock.Now(),
			TotalWon:    totalWon,
		})
	})
	if err != nil {
		return err
	}

	log.Info().Str("draft_id", draftID.String()).Int("total_won", totalWon).Msg("auction completed")
	return nil
}

func (a *App) armTurn(ctx context.Context, tx Store, draft *models.Draft, rosterID uuid.UUID) error {
	deadline := a.clock.Now().Add(time.Duration(draft.Settings.PickTimeSeconds) * time.Second)
	if err := tx.SetTurn(ctx, draft.ID, rosterID, deadline); err != nil {
		return err
	}
	return appendEvent(ctx, tx, draft.ID, events.TypeTurnChanged, events.TurnChangedPayload{
		RosterID:  rosterID.String(),
		Deadline:  deadline,
		ChangedAt: a.clock.Now(),
	})
}

func (a *App) wake() {
	if a.waker != nil {
		a.waker.Wake()
	}
}

func appendEvent(ctx context.Context, tx Store, draftID uuid.UUID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return tx.AppendEvent(ctx, draftID, eventType, data)
}
