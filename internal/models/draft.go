package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftType defines the type of draft.
type DraftType string

const (
	DraftTypeAuction     DraftType = "AUCTION"
	DraftTypeSlowAuction DraftType = "SLOW_AUCTION"
)

// IsAuction reports whether the draft type participates in the auction engine.
func (t DraftType) IsAuction() bool {
	return t == DraftTypeAuction || t == DraftTypeSlowAuction
}

// DraftStatus defines the status of a draft.
type DraftStatus string

const (
	DraftStatusNotStarted DraftStatus = "NOT_STARTED"
	DraftStatusInProgress DraftStatus = "IN_PROGRESS"
	DraftStatusPaused     DraftStatus = "PAUSED"
	DraftStatusCompleted  DraftStatus = "COMPLETED"
)

// DraftSettings holds JSONB configuration for auction drafts.
// All money amounts are whole dollars.
type DraftSettings struct {
	StartingBudget        int64       `json:"starting_budget"`
	MinBid                int64       `json:"min_bid"`
	BidIncrement          int64       `json:"bid_increment"`
	NominationsPerManager int         `json:"nominations_per_manager"`
	NominationTimerHours  *int        `json:"nomination_timer_hours,omitempty"` // slow auction
	PickTimeSeconds       int         `json:"pick_time_seconds"`
	RosterSize            int         `json:"roster_size"`
	ReserveBudget         bool        `json:"reserve_budget"`
	DraftOrder            []uuid.UUID `json:"draft_order,omitempty"`
}

// NominationWindow returns how long a freshly created nomination stays open.
func (s DraftSettings) NominationWindow(draftType DraftType) time.Duration {
	if draftType == DraftTypeSlowAuction && s.NominationTimerHours != nil {
		return time.Duration(*s.NominationTimerHours) * time.Hour
	}
	return time.Duration(s.PickTimeSeconds) * time.Second
}

// Draft represents a draft instance.
type Draft struct {
	ID              uuid.UUID     `json:"id"`
	LeagueID        uuid.UUID     `json:"league_id"`
	DraftType       DraftType     `json:"draft_type"`
	Status          DraftStatus   `json:"status"`
	Settings        DraftSettings `json:"settings"`
	CurrentRosterID *uuid.UUID    `json:"current_roster_id,omitempty"`
	TurnDeadline    *time.Time    `json:"turn_deadline,omitempty"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
