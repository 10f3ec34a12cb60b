package models

import (
	"time"

	"github.com/google/uuid"
)

// NominationStatus defines the lifecycle state of a nomination.
type NominationStatus string

const (
	NominationStatusActive    NominationStatus = "ACTIVE"
	NominationStatusCompleted NominationStatus = "COMPLETED"
	NominationStatusPassed    NominationStatus = "PASSED"
)

// Terminal reports whether the status admits no further transitions.
func (s NominationStatus) Terminal() bool {
	return s == NominationStatusCompleted || s == NominationStatusPassed
}

// Nomination represents one player put up for bidding.
type Nomination struct {
	ID                 uuid.UUID        `json:"id"`
	DraftID            uuid.UUID        `json:"draft_id"`
	PlayerID           uuid.UUID        `json:"player_id"`
	NominatingRosterID uuid.UUID        `json:"nominating_roster_id"`
	WinningRosterID    *uuid.UUID       `json:"winning_roster_id,omitempty"`
	WinningBid         *int64           `json:"winning_bid,omitempty"`
	Status             NominationStatus `json:"status"`
	Deadline           *time.Time       `json:"deadline,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}
