// Package turn owns the fixed-order nomination rotation for live auctions.
// Slow auctions have no turn; every method no-ops for them.
package turn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctiondraft/internal/auction/draft"
	"github.com/mcdev12/auctiondraft/internal/auction/events"
	"github.com/mcdev12/auctiondraft/internal/auction/nomination"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/rs/zerolog/log"
)

var ErrNoNominablePlayers = errors.New("no nominable players remain")

// Nominator opens nominations on a roster's behalf when its turn times out.
type Nominator interface {
	NominatePlayer(ctx context.Context, req nomination.NominatePlayerRequest) (*models.Nomination, error)
}

// Strategy picks the player an expired turn auto-nominates.
type Strategy interface {
	SelectPlayer(ctx context.Context, draftID uuid.UUID) (uuid.UUID, error)
}

// Controller advances the rotation and handles turn expiry.
type Controller struct {
	uow       draft.UnitOfWork
	nominator Nominator
	strat     Strategy
	clock     clockwork.Clock
}

func NewController(uow draft.UnitOfWork, nominator Nominator, strat Strategy, clock clockwork.Clock) *Controller {
	return &Controller{uow: uow, nominator: nominator, strat: strat, clock: clock}
}

// AdvanceAfterResolution moves the turn to the next roster once the current
// nomination resolves. A still-armed turn deadline means the roster on the
// clock has not nominated yet, so the rotation stays put.
func (c *Controller) AdvanceAfterResolution(ctx context.Context, draftID uuid.UUID) error {
	return c.uow.InTx(ctx, func(ctx context.Context, tx draft.Store) error {
		d, err := tx.GetDraftForUpdate(ctx, draftID)
		if err != nil {
			return err
		}
		if !rotates(d) || d.TurnDeadline != nil {
			return nil
		}
		return c.advance(ctx, tx, d)
	})
}

// HandleTurnExpiry fires when a roster lets its pick timer lapse: a player is
// auto-nominated on its behalf and the rotation advances immediately, so the
// roster is not penalized twice by also waiting out the bid window.
func (c *Controller) HandleTurnExpiry(ctx context.Context, draftID uuid.UUID) error {
	d, err := c.dueTurn(ctx, draftID)
	if err != nil || d == nil {
		return err
	}

	playerID, err := c.strat.SelectPlayer(ctx, draftID)
	if err != nil {
		return err
	}

	nom, err := c.nominator.NominatePlayer(ctx, nomination.NominatePlayerRequest{
		DraftID:            draftID,
		PlayerID:           playerID,
		NominatingRosterID: *d.CurrentRosterID,
		AutoNominated:      true,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("draft_id", draftID.String()).
		Str("roster_id", d.CurrentRosterID.String()).
		Str("nomination_id", nom.ID.String()).
		Msg("turn expired, auto-nominated")

	return c.uow.InTx(ctx, func(ctx context.Context, tx draft.Store) error {
		d, err := tx.GetDraftForUpdate(ctx, draftID)
		if err != nil {
			return err
		}
		if !rotates(d) {
			return nil
		}
		return c.advance(ctx, tx, d)
	})
}

// dueTurn re-reads the draft under lock and reports whether the turn deadline
// has actually lapsed. A stale timer fire after a manual nomination cleared
// the deadline returns nil.
func (c *Controller) dueTurn(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	var due *models.Draft
	err := c.uow.InTx(ctx, func(ctx context.Context, tx draft.Store) error {
		d, err := tx.GetDraftForUpdate(ctx, draftID)
		if err != nil {
			return err
		}
		if !rotates(d) || d.CurrentRosterID == nil || d.TurnDeadline == nil {
			return nil
		}
		if d.TurnDeadline.After(c.clock.Now()) {
			return nil
		}
		// Disarm before releasing the lock so a second scheduler fire no-ops.
		if err := tx.ClearTurnDeadline(ctx, draftID); err != nil {
			return err
		}
		due = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}

func (c *Controller) advance(ctx context.Context, tx draft.Store, d *models.Draft) error {
	order := d.Settings.DraftOrder
	if len(order) == 0 {
		return draft.ErrEmptyDraftOrder
	}

	next := order[0]
	if d.CurrentRosterID != nil {
		for i, rosterID := range order {
			if rosterID == *d.CurrentRosterID {
				next = order[(i+1)%len(order)]
				break
			}
		}
	}

	deadline := c.clock.Now().Add(time.Duration(d.Settings.PickTimeSeconds) * time.Second)
	if err := tx.SetTurn(ctx, d.ID, next, deadline); err != nil {
		return err
	}

	payload, err := marshalTurnChanged(events.TurnChangedPayload{
		RosterID:  next.String(),
		Deadline:  deadline,
		ChangedAt: c.clock.Now(),
	})
	if err != nil {
		return err
	}
	if err := tx.AppendEvent(ctx, d.ID, events.TypeTurnChanged, payload); err != nil {
		return err
	}

	log.Info().
		Str("draft_id", d.ID.String()).
		Str("roster_id", next.String()).
		Time("deadline", deadline).
		Msg("turn advanced")
	return nil
}

func marshalTurnChanged(payload events.TurnChangedPayload) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal turn_changed payload: %w", err)
	}
	return data, nil
}

func rotates(d *models.Draft) bool {
	return d.DraftType == models.DraftTypeAuction && d.Status == models.DraftStatusInProgress
}
