package nomination

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/models"
)

// NominatePlayerRequest puts a player up for bidding.
type NominatePlayerRequest struct {
	DraftID            uuid.UUID `json:"draft_id"`
	PlayerID           uuid.UUID `json:"player_id"`
	NominatingRosterID uuid.UUID `json:"nominating_roster_id"`
	// AutoNominated marks turn-timeout nominations made on the roster's behalf.
	AutoNominated bool `json:"auto_nominated,omitempty"`
}

// PlaceBidRequest raises a roster's private ceiling on a nomination.
type PlaceBidRequest struct {
	NominationID uuid.UUID `json:"nomination_id"`
	DraftID      uuid.UUID `json:"draft_id"`
	RosterID     uuid.UUID `json:"roster_id"`
	MaxBid       int64     `json:"max_bid"`
}

// BidResult reports the outcome of a committed bid so the caller can notify
// affected parties.
type BidResult struct {
	Nomination      *models.Nomination `json:"nomination"`
	PreviousWinner  *uuid.UUID         `json:"previous_winner,omitempty"`
	WinningRosterID uuid.UUID          `json:"winning_roster_id"`
	CurrentBid      int64              `json:"current_bid"`
	DeadlineReset   *time.Time         `json:"deadline_reset,omitempty"`
}

// Resolution reports what an expiry (or cancel) transition did.
type Resolution struct {
	Nomination *models.Nomination `json:"nomination"`
	// Applied is false when the nomination was already terminal and the call
	// was a no-op.
	Applied bool `json:"applied"`
	// Completed is true when the nomination was awarded to a winner.
	Completed bool `json:"completed"`
}

// CreateNominationParams is the persistence shape for a new nomination.
type CreateNominationParams struct {
	ID                 uuid.UUID
	DraftID            uuid.UUID
	PlayerID           uuid.UUID
	NominatingRosterID uuid.UUID
	Deadline           *time.Time
}

// InsertBidParams is the persistence shape for a new bid row.
type InsertBidParams struct {
	ID           uuid.UUID
	NominationID uuid.UUID
	RosterID     uuid.UUID
	BidAmount    int64
	MaxBid       int64
}
