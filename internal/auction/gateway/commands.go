package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/auction/nomination"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/rs/zerolog/log"
)

// AuctionOps is the slice of the nomination lifecycle clients can drive.
type AuctionOps interface {
	NominatePlayer(ctx context.Context, req nomination.NominatePlayerRequest) (*models.Nomination, error)
	PlaceBid(ctx context.Context, req nomination.PlaceBidRequest) (*nomination.BidResult, error)
}

// StateReader loads the snapshot a joining client needs.
type StateReader interface {
	ListActiveNominations(ctx context.Context, draftID uuid.UUID) ([]models.Nomination, error)
	RosterBudget(ctx context.Context, draftID, rosterID uuid.UUID) (models.Budget, error)
}

// auctionState is the join snapshot: what is open for bidding plus the
// joining roster's own budget.
type auctionState struct {
	ActiveNominations []models.Nomination `json:"active_nominations"`
	Budget            models.Budget       `json:"budget"`
}

// CommandProcessor executes client commands against the auction engine.
type CommandProcessor struct {
	ops   AuctionOps
	state StateReader
}

func NewCommandProcessor(ops AuctionOps, state StateReader) *CommandProcessor {
	return &CommandProcessor{ops: ops, state: state}
}

// HandleCommand dispatches one client frame. Validation failures go back on
// the same connection as error frames; committed mutations are acked here and
// broadcast through the event pipeline.
func (p *CommandProcessor) HandleCommand(ctx context.Context, conn *Connection, cmd Command) {
	switch cmd.Type {
	case CommandJoinAuction:
		p.handleJoin(ctx, conn)
	case CommandNominatePlayer:
		p.handleNominate(ctx, conn, cmd)
	case CommandPlaceBid:
		p.handlePlaceBid(ctx, conn, cmd)
	case CommandLeaveAuction:
		conn.Conn.Close()
	default:
		conn.SendFrame(errorFrame(conn.DraftID, cmd.Type, "unknown command"))
	}
}

func (p *CommandProcessor) handleJoin(ctx context.Context, conn *Connection) {
	noms, err := p.state.ListActiveNominations(ctx, conn.DraftID)
	if err != nil {
		p.fail(conn, CommandJoinAuction, err)
		return
	}
	budget, err := p.state.RosterBudget(ctx, conn.DraftID, conn.RosterID)
	if err != nil {
		p.fail(conn, CommandJoinAuction, err)
		return
	}

	data, err := json.Marshal(auctionState{ActiveNominations: noms, Budget: budget})
	if err != nil {
		p.fail(conn, CommandJoinAuction, err)
		return
	}
	conn.SendFrame(&AuctionEvent{
		ID:        uuid.New().String(),
		DraftID:   conn.DraftID.String(),
		Type:      FrameActiveNominations,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

func (p *CommandProcessor) handleNominate(ctx context.Context, conn *Connection, cmd Command) {
	var body NominatePlayerCommand
	if err := json.Unmarshal(cmd.Data, &body); err != nil {
		conn.SendFrame(errorFrame(conn.DraftID, cmd.Type, "malformed nominate_player payload"))
		return
	}
	playerID, err := uuid.Parse(body.PlayerID)
	if err != nil {
		conn.SendFrame(errorFrame(conn.DraftID, cmd.Type, "invalid player_id"))
		return
	}

	nom, err := p.ops.NominatePlayer(ctx, nomination.NominatePlayerRequest{
		DraftID:            conn.DraftID,
		PlayerID:           playerID,
		NominatingRosterID: conn.RosterID,
	})
	if err != nil {
		p.fail(conn, cmd.Type, err)
		return
	}
	p.ack(conn, cmd.Type, nom.ID)
}

func (p *CommandProcessor) handlePlaceBid(ctx context.Context, conn *Connection, cmd Command) {
	var body PlaceBidCommand
	if err := json.Unmarshal(cmd.Data, &body); err != nil {
		conn.SendFrame(errorFrame(conn.DraftID, cmd.Type, "malformed place_bid payload"))
		return
	}
	nominationID, err := uuid.Parse(body.NominationID)
	if err != nil {
		conn.SendFrame(errorFrame(conn.DraftID, cmd.Type, "invalid nomination_id"))
		return
	}

	_, err = p.ops.PlaceBid(ctx, nomination.PlaceBidRequest{
		NominationID: nominationID,
		DraftID:      conn.DraftID,
		RosterID:     conn.RosterID,
		MaxBid:       body.MaxBid,
	})
	if err != nil {
		p.fail(conn, cmd.Type, err)
		return
	}
	p.ack(conn, cmd.Type, nominationID)
}

// fail maps an operation error to a client frame. Validation errors carry
// their message verbatim; anything else is masked and logged.
func (p *CommandProcessor) fail(conn *Connection, command string, err error) {
	if nomination.IsValidationError(err) {
		conn.SendFrame(errorFrame(conn.DraftID, command, err.Error()))
		return
	}
	log.Error().Err(err).
		Str("command", command).
		Str("draft_id", conn.DraftID.String()).
		Str("roster_id", conn.RosterID.String()).
		Msg("command failed")
	conn.SendFrame(errorFrame(conn.DraftID, command, "internal error"))
}

func (p *CommandProcessor) ack(conn *Connection, command string, nominationID uuid.UUID) {
	data, _ := json.Marshal(CommandAckPayload{Command: command, NominationID: nominationID.String()})
	conn.SendFrame(&AuctionEvent{
		ID:        uuid.New().String(),
		DraftID:   conn.DraftID.String(),
		Type:      FrameCommandAck,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}
