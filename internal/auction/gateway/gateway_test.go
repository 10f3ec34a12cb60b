package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/auction/nomination"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOps struct {
	nominateErr error
	bidErr      error
	nominated   []nomination.NominatePlayerRequest
	bids        []nomination.PlaceBidRequest
}

func (f *fakeOps) NominatePlayer(ctx context.Context, req nomination.NominatePlayerRequest) (*models.Nomination, error) {
	if f.nominateErr != nil {
		return nil, f.nominateErr
	}
	f.nominated = append(f.nominated, req)
	return &models.Nomination{ID: uuid.New(), DraftID: req.DraftID, PlayerID: req.PlayerID}, nil
}

func (f *fakeOps) PlaceBid(ctx context.Context, req nomination.PlaceBidRequest) (*nomination.BidResult, error) {
	if f.bidErr != nil {
		return nil, f.bidErr
	}
	f.bids = append(f.bids, req)
	return &nomination.BidResult{WinningRosterID: req.RosterID, CurrentBid: 1}, nil
}

type fakeState struct {
	noms   []models.Nomination
	budget models.Budget
}

func (f *fakeState) ListActiveNominations(ctx context.Context, draftID uuid.UUID) ([]models.Nomination, error) {
	return f.noms, nil
}

func (f *fakeState) RosterBudget(ctx context.Context, draftID, rosterID uuid.UUID) (models.Budget, error) {
	return f.budget, nil
}

func testConnection() *Connection {
	return &Connection{
		ID:       uuid.New().String(),
		DraftID:  uuid.New(),
		RosterID: uuid.New(),
		Send:     make(chan []byte, 8),
	}
}

func receiveFrame(t *testing.T, conn *Connection) AuctionEvent {
	t.Helper()
	select {
	case data := <-conn.Send:
		var event AuctionEvent
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return AuctionEvent{}
	}
}

func TestHandleCommand_JoinSendsSnapshot(t *testing.T) {
	state := &fakeState{
		noms:   []models.Nomination{{ID: uuid.New(), Status: models.NominationStatusActive}},
		budget: models.Budget{StartingBudget: 200, Available: 150},
	}
	p := NewCommandProcessor(&fakeOps{}, state)
	conn := testConnection()

	p.HandleCommand(context.Background(), conn, Command{Type: CommandJoinAuction})

	frame := receiveFrame(t, conn)
	assert.Equal(t, "active_nominations", frame.Type)

	var snapshot auctionState
	require.NoError(t, json.Unmarshal(frame.Data, &snapshot))
	assert.Len(t, snapshot.ActiveNominations, 1)
	assert.Equal(t, int64(150), snapshot.Budget.Available)
}

func TestHandleCommand_NominateAcks(t *testing.T) {
	ops := &fakeOps{}
	p := NewCommandProcessor(ops, &fakeState{})
	conn := testConnection()

	playerID := uuid.New()
	data, _ := json.Marshal(NominatePlayerCommand{PlayerID: playerID.String()})
	p.HandleCommand(context.Background(), conn, Command{Type: CommandNominatePlayer, Data: data})

	frame := receiveFrame(t, conn)
	assert.Equal(t, FrameCommandAck, frame.Type)
	require.Len(t, ops.nominated, 1)
	assert.Equal(t, playerID, ops.nominated[0].PlayerID)
	assert.Equal(t, conn.RosterID, ops.nominated[0].NominatingRosterID)
	assert.False(t, ops.nominated[0].AutoNominated)
}

func TestHandleCommand_ValidationErrorReturnsMessage(t *testing.T) {
	ops := &fakeOps{bidErr: nomination.ErrInsufficientBudget}
	p := NewCommandProcessor(ops, &fakeState{})
	conn := testConnection()

	data, _ := json.Marshal(PlaceBidCommand{NominationID: uuid.New().String(), MaxBid: 500})
	p.HandleCommand(context.Background(), conn, Command{Type: CommandPlaceBid, Data: data})

	frame := receiveFrame(t, conn)
	assert.Equal(t, FrameError, frame.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, CommandPlaceBid, payload.Command)
	assert.Equal(t, nomination.ErrInsufficientBudget.Error(), payload.Message)
}

func TestHandleCommand_InternalErrorIsMasked(t *testing.T) {
	ops := &fakeOps{bidErr: assert.AnError}
	p := NewCommandProcessor(ops, &fakeState{})
	conn := testConnection()

	data, _ := json.Marshal(PlaceBidCommand{NominationID: uuid.New().String(), MaxBid: 5})
	p.HandleCommand(context.Background(), conn, Command{Type: CommandPlaceBid, Data: data})

	var payload ErrorPayload
	frame := receiveFrame(t, conn)
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "internal error", payload.Message)
}

func TestHandleCommand_MalformedPayload(t *testing.T) {
	p := NewCommandProcessor(&fakeOps{}, &fakeState{})
	conn := testConnection()

	p.HandleCommand(context.Background(), conn, Command{Type: CommandPlaceBid, Data: []byte(`{"nomination_id": 12}`)})

	frame := receiveFrame(t, conn)
	assert.Equal(t, FrameError, frame.Type)
}

func TestHandleCommand_UnknownCommand(t *testing.T) {
	p := NewCommandProcessor(&fakeOps{}, &fakeState{})
	conn := testConnection()

	p.HandleCommand(context.Background(), conn, Command{Type: "teleport"})

	frame := receiveFrame(t, conn)
	assert.Equal(t, FrameError, frame.Type)
}

func TestBroadcast_RosterScopedEventStaysPrivate(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)
	draftID := uuid.New()

	owner := &Connection{ID: "owner", DraftID: draftID, RosterID: uuid.New(), Send: make(chan []byte, 8)}
	other := &Connection{ID: "other", DraftID: draftID, RosterID: uuid.New(), Send: make(chan []byte, 8)}
	cm.registerConnection(owner)
	cm.registerConnection(other)

	event := &AuctionEvent{ID: uuid.New().String(), DraftID: draftID.String(), Type: "budget_updated"}
	cm.handleBroadcast(BroadcastMessage{DraftID: draftID, RosterID: &owner.RosterID, Event: event})

	select {
	case <-owner.Send:
	default:
		t.Fatal("owner should receive its budget event")
	}
	select {
	case <-other.Send:
		t.Fatal("other roster must not see a private budget event")
	default:
	}
}

func TestSendFrame_AfterTeardownDropsFrame(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)
	conn := &Connection{ID: "gone", DraftID: uuid.New(), RosterID: uuid.New(), Send: make(chan []byte, 1)}
	cm.registerConnection(conn)
	cm.unregisterConnection(conn)

	// The channel is closed; the frame must be dropped, not sent.
	conn.SendFrame(&AuctionEvent{ID: uuid.New().String(), Type: "bid_placed"})
}

func TestSendFrame_ConcurrentWithUnregister(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)
	conn := &Connection{ID: "racy", DraftID: uuid.New(), RosterID: uuid.New(), Send: make(chan []byte, 1)}
	cm.registerConnection(conn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			conn.SendFrame(&AuctionEvent{ID: uuid.New().String(), Type: "bid_placed"})
		}
	}()
	cm.unregisterConnection(conn)
	<-done
}

func TestBroadcast_DraftEventReachesEveryone(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)
	draftID := uuid.New()

	a := &Connection{ID: "a", DraftID: draftID, RosterID: uuid.New(), Send: make(chan []byte, 8)}
	b := &Connection{ID: "b", DraftID: draftID, RosterID: uuid.New(), Send: make(chan []byte, 8)}
	elsewhere := &Connection{ID: "c", DraftID: uuid.New(), RosterID: uuid.New(), Send: make(chan []byte, 8)}
	cm.registerConnection(a)
	cm.registerConnection(b)
	cm.registerConnection(elsewhere)

	event := &AuctionEvent{ID: uuid.New().String(), DraftID: draftID.String(), Type: "bid_placed"}
	cm.handleBroadcast(BroadcastMessage{DraftID: draftID, Event: event})

	assert.Len(t, a.Send, 1)
	assert.Len(t, b.Send, 1)
	assert.Len(t, elsewhere.Send, 0)
}
