// Package completion decides when an auction draft is over. A draft completes
// once no nomination in flight and no possible future nomination can change
// any roster: every slot filled, the player pool exhausted, or nobody left
// who can afford the minimum bid.
package completion

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/rs/zerolog/log"
)

// Store reads the committed facts the detector decides on.
type Store interface {
	GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error)
	ActiveNominationCount(ctx context.Context, draftID uuid.UUID) (int, error)
	NominablePlayerCount(ctx context.Context, draftID uuid.UUID) (int, error)
	RosterIDs(ctx context.Context, leagueID uuid.UUID) ([]uuid.UUID, error)
	PlayerCount(ctx context.Context, rosterID uuid.UUID) (int, error)
	RosterBudget(ctx context.Context, draftID, rosterID uuid.UUID) (models.Budget, error)
}

// Completer performs the COMPLETED transition.
type Completer interface {
	CompleteAuction(ctx context.Context, draftID uuid.UUID) error
}

// Handoff runs post-draft work: roster assignment, season activation. Failures
// are logged, never rolled back; the draft stays COMPLETED and the handoff is
// retried out of band.
type Handoff interface {
	FinalizeAuction(ctx context.Context, draftID uuid.UUID) error
}

// Detector checks completion conditions after every resolution.
type Detector struct {
	store     Store
	completer Completer
	handoff   Handoff
}

func NewDetector(store Store, completer Completer, handoff Handoff) *Detector {
	return &Detector{store: store, completer: completer, handoff: handoff}
}

// CheckAndComplete evaluates the completion conditions and, when met, marks
// the draft COMPLETED and kicks off the handoff. Returns whether it completed
// the draft.
func (d *Detector) CheckAndComplete(ctx context.Context, draftID uuid.UUID) (bool, error) {
	draft, err := d.store.GetDraft(ctx, draftID)
	if err != nil {
		return false, err
	}
	if !draft.DraftType.IsAuction() || draft.Status != models.DraftStatusInProgress {
		return false, nil
	}

	// An active nomination can still award a player; wait for it to resolve.
	active, err := d.store.ActiveNominationCount(ctx, draftID)
	if err != nil {
		return false, err
	}
	if active > 0 {
		return false, nil
	}

	done, reason, err := d.noFurtherNominationsPossible(ctx, draft)
	if err != nil {
		return false, err
	}
	if !done {
		return false, nil
	}

	if err := d.completer.CompleteAuction(ctx, draftID); err != nil {
		return false, err
	}
	log.Info().Str("draft_id", draftID.String()).Str("reason", reason).Msg("auction complete")

	if d.handoff != nil {
		if err := d.handoff.FinalizeAuction(ctx, draftID); err != nil {
			log.Error().Err(err).Str("draft_id", draftID.String()).Msg("post-draft handoff failed")
		}
	}
	return true, nil
}

func (d *Detector) noFurtherNominationsPossible(ctx context.Context, draft *models.Draft) (bool, string, error) {
	rosterIDs, err := d.store.RosterIDs(ctx, draft.LeagueID)
	if err != nil {
		return false, "", err
	}

	allFull := true
	anyViableBidder := false
	for _, rosterID := range rosterIDs {
		count, err := d.store.PlayerCount(ctx, rosterID)
		if err != nil {
			return false, "", err
		}
		if count >= draft.Settings.RosterSize {
			continue
		}
		allFull = false

		b, err := d.store.RosterBudget(ctx, draft.ID, rosterID)
		if err != nil {
			return false, "", err
		}
		if b.Available >= draft.Settings.MinBid {
			anyViableBidder = true
		}
	}
	if allFull {
		return true, "all rosters full", nil
	}

	players, err := d.store.NominablePlayerCount(ctx, draft.ID)
	if err != nil {
		return false, "", err
	}
	if players == 0 {
		return true, "player pool exhausted", nil
	}

	if !anyViableBidder {
		return true, "no roster can afford the minimum bid", nil
	}
	return false, "", nil
}
