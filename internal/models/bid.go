package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid represents one proxy bid on a nomination. MaxBid is the bidder's
// private ceiling and is never broadcast; BidAmount is the public price.
type Bid struct {
	ID           uuid.UUID `json:"id"`
	NominationID uuid.UUID `json:"nomination_id"`
	RosterID     uuid.UUID `json:"roster_id"`
	BidAmount    int64     `json:"bid_amount"`
	MaxBid       int64     `json:"-"`
	IsWinning    bool      `json:"is_winning"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
