package gateway

import (
	"encoding/json"
	"time"
)

// AuctionEvent is the frame every WebSocket client receives.
type AuctionEvent struct {
	ID        string          `json:"id"`
	DraftID   string          `json:"draft_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Client-originated command types.
const (
	CommandJoinAuction    = "join_auction"
	CommandLeaveAuction   = "leave_auction"
	CommandNominatePlayer = "nominate_player"
	CommandPlaceBid       = "place_bid"
)

// Gateway-originated frame types for direct command replies.
const (
	FrameActiveNominations = "active_nominations"
	FrameCommandAck        = "command_ack"
	FrameError             = "error"
)

// Command is the inbound client frame.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NominatePlayerCommand opens a nomination.
type NominatePlayerCommand struct {
	PlayerID string `json:"player_id"`
}

// PlaceBidCommand raises the sender's private ceiling. The max bid travels
// only on this inbound frame; it is never echoed back out.
type PlaceBidCommand struct {
	NominationID string `json:"nomination_id"`
	MaxBid       int64  `json:"max_bid"`
}

// ErrorPayload is sent back when a command fails validation.
type ErrorPayload struct {
	Command string `json:"command"`
	Message string `json:"message"`
}

// CommandAckPayload confirms a mutating command was committed.
type CommandAckPayload struct {
	Command      string `json:"command"`
	NominationID string `json:"nomination_id,omitempty"`
}
