// Package events holds the payload types shared between the auction engine,
// the outbox relay, and the gateway. Event type strings are the wire contract
// for subscribed clients.
package events

import (
	"time"

	"github.com/mcdev12/auctiondraft/internal/models"
)

const (
	TypePlayerNominated           = "player_nominated"
	TypeBidPlaced                 = "bid_placed"
	TypeBudgetUpdated             = "budget_updated"
	TypeNominationDeadlineUpdated = "nomination_deadline_updated"
	TypePlayerWon                 = "player_won"
	TypeNominationExpired         = "nomination_expired"
	TypeTurnChanged               = "turn_changed"
	TypeAuctionCompleted          = "auction_completed"
	TypeAuctionPaused             = "auction_paused"
	TypeAuctionResumed            = "auction_resumed"
)

// PlayerNominatedPayload is broadcast when a nomination opens.
type PlayerNominatedPayload struct {
	NominationID       string     `json:"nomination_id"`
	PlayerID           string     `json:"player_id"`
	NominatingRosterID string     `json:"nominating_roster_id"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	AutoNominated      bool       `json:"auto_nominated,omitempty"`
	NominatedAt        time.Time  `json:"nominated_at"`
}

// BidPlacedPayload is broadcast after a bid commits. MaxBid never appears
// here; only the public clearing price is revealed.
type BidPlacedPayload struct {
	NominationID    string    `json:"nomination_id"`
	WinningRosterID string    `json:"winning_roster_id"`
	PreviousWinner  *string   `json:"previous_winner,omitempty"`
	CurrentBid      int64     `json:"current_bid"`
	BidAt           time.Time `json:"bid_at"`
}

// BudgetUpdatedPayload is delivered only to the affected roster's private
// subscriber group.
type BudgetUpdatedPayload struct {
	RosterID string        `json:"roster_id"`
	Budget   models.Budget `json:"budget"`
}

// NominationDeadlineUpdatedPayload is broadcast when an anti-snipe reset
// pushes a slow-auction deadline out.
type NominationDeadlineUpdatedPayload struct {
	NominationID string    `json:"nomination_id"`
	Deadline     time.Time `json:"deadline"`
}

// PlayerWonPayload is broadcast when a nomination completes with a winner.
type PlayerWonPayload struct {
	NominationID    string    `json:"nomination_id"`
	PlayerID        string    `json:"player_id"`
	WinningRosterID string    `json:"winning_roster_id"`
	Amount          int64     `json:"amount"`
	WonAt           time.Time `json:"won_at"`
}

// NominationExpiredPayload is broadcast when a nomination passes unbid.
type NominationExpiredPayload struct {
	NominationID string    `json:"nomination_id"`
	PlayerID     string    `json:"player_id"`
	ExpiredAt    time.Time `json:"expired_at"`
}

// TurnChangedPayload is broadcast when the fixed-order rotation advances.
type TurnChangedPayload struct {
	RosterID  string    `json:"roster_id"`
	Deadline  time.Time `json:"deadline"`
	ChangedAt time.Time `json:"changed_at"`
}

// AuctionCompletedPayload is broadcast once the completion detector fires.
type AuctionCompletedPayload struct {
	DraftID     string    `json:"draft_id"`
	CompletedAt time.Time `json:"completed_at"`
	TotalWon    int       `json:"total_won"`
}

// AuctionPausedPayload is broadcast on a manual pause.
type AuctionPausedPayload struct {
	DraftID  string    `json:"draft_id"`
	PausedAt time.Time `json:"paused_at"`
	Reason   string    `json:"reason"`
}

// AuctionResumedPayload is broadcast when a paused auction resumes.
type AuctionResumedPayload struct {
	DraftID   string    `json:"draft_id"`
	ResumedAt time.Time `json:"resumed_at"`
}
