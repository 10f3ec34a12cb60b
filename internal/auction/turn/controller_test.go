package turn

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctiondraft/internal/auction/draft"
	"github.com/mcdev12/auctiondraft/internal/auction/events"
	"github.com/mcdev12/auctiondraft/internal/auction/nomination"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	draft      *models.Draft
	eventTypes []string
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx draft.Store) error) error {
	return fn(ctx, m)
}

func (m *memStore) GetDraftForUpdate(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	d := *m.draft
	return &d, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, draftID uuid.UUID, status models.DraftStatus) error {
	m.draft.Status = status
	return nil
}

func (m *memStore) SetTurn(ctx context.Context, draftID, rosterID uuid.UUID, deadline time.Time) error {
	m.draft.CurrentRosterID = &rosterID
	m.draft.TurnDeadline = &deadline
	return nil
}

func (m *memStore) ClearTurnDeadline(ctx context.Context, draftID uuid.UUID) error {
	m.draft.TurnDeadline = nil
	return nil
}

func (m *memStore) ClearTurn(ctx context.Context, draftID uuid.UUID) error {
	m.draft.CurrentRosterID = nil
	m.draft.TurnDeadline = nil
	return nil
}

func (m *memStore) CountWonPlayers(ctx context.Context, draftID uuid.UUID) (int, error) {
	return 0, nil
}

func (m *memStore) AppendEvent(ctx context.Context, draftID uuid.UUID, eventType string, payload []byte) error {
	m.eventTypes = append(m.eventTypes, eventType)
	return nil
}

type fakeNominator struct {
	requests []nomination.NominatePlayerRequest
	clears   *memStore
}

func (f *fakeNominator) NominatePlayer(ctx context.Context, req nomination.NominatePlayerRequest) (*models.Nomination, error) {
	f.requests = append(f.requests, req)
	f.clears.draft.TurnDeadline = nil
	return &models.Nomination{
		ID:                 uuid.New(),
		DraftID:            req.DraftID,
		PlayerID:           req.PlayerID,
		NominatingRosterID: req.NominatingRosterID,
		Status:             models.NominationStatusActive,
	}, nil
}

type fixedStrategy struct {
	playerID uuid.UUID
	err      error
}

func (s *fixedStrategy) SelectPlayer(ctx context.Context, draftID uuid.UUID) (uuid.UUID, error) {
	return s.playerID, s.err
}

func liveDraft(order ...uuid.UUID) *models.Draft {
	current := order[0]
	return &models.Draft{
		ID:              uuid.New(),
		DraftType:       models.DraftTypeAuction,
		Status:          models.DraftStatusInProgress,
		CurrentRosterID: &current,
		Settings: models.DraftSettings{
			PickTimeSeconds: 30,
			DraftOrder:      order,
		},
	}
}

func TestAdvanceAfterResolution_RotatesInOrder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	store := &memStore{draft: liveDraft(a, b, c)}
	ctrl := NewController(store, nil, nil, clock)

	require.NoError(t, ctrl.AdvanceAfterResolution(context.Background(), store.draft.ID))
	assert.Equal(t, b, *store.draft.CurrentRosterID)
	assert.Equal(t, clock.Now().Add(30*time.Second), *store.draft.TurnDeadline)
	assert.Equal(t, []string{events.TypeTurnChanged}, store.eventTypes)
}

func TestAdvanceAfterResolution_WrapsAround(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, b := uuid.New(), uuid.New()
	store := &memStore{draft: liveDraft(a, b)}
	store.draft.CurrentRosterID = &b
	ctrl := NewController(store, nil, nil, clock)

	require.NoError(t, ctrl.AdvanceAfterResolution(context.Background(), store.draft.ID))
	assert.Equal(t, a, *store.draft.CurrentRosterID)
}

func TestAdvanceAfterResolution_SkipsWhenTurnArmed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, b := uuid.New(), uuid.New()
	store := &memStore{draft: liveDraft(a, b)}
	deadline := clock.Now().Add(30 * time.Second)
	store.draft.TurnDeadline = &deadline
	ctrl := NewController(store, nil, nil, clock)

	require.NoError(t, ctrl.AdvanceAfterResolution(context.Background(), store.draft.ID))
	assert.Equal(t, a, *store.draft.CurrentRosterID)
	assert.Empty(t, store.eventTypes)
}

func TestAdvanceAfterResolution_IgnoresSlowAuction(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &memStore{draft: liveDraft(uuid.New())}
	store.draft.DraftType = models.DraftTypeSlowAuction
	ctrl := NewController(store, nil, nil, clock)

	require.NoError(t, ctrl.AdvanceAfterResolution(context.Background(), store.draft.ID))
	assert.Empty(t, store.eventTypes)
}

func TestHandleTurnExpiry_AutoNominatesAndAdvances(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, b := uuid.New(), uuid.New()
	store := &memStore{draft: liveDraft(a, b)}
	deadline := clock.Now().Add(-time.Second)
	store.draft.TurnDeadline = &deadline

	nominator := &fakeNominator{clears: store}
	playerID := uuid.New()
	ctrl := NewController(store, nominator, &fixedStrategy{playerID: playerID}, clock)

	require.NoError(t, ctrl.HandleTurnExpiry(context.Background(), store.draft.ID))

	require.Len(t, nominator.requests, 1)
	assert.Equal(t, playerID, nominator.requests[0].PlayerID)
	assert.Equal(t, a, nominator.requests[0].NominatingRosterID)
	assert.True(t, nominator.requests[0].AutoNominated)

	// Rotation moved on immediately; the lapsed roster is not stuck waiting
	// out the bid window too.
	assert.Equal(t, b, *store.draft.CurrentRosterID)
	require.NotNil(t, store.draft.TurnDeadline)
}

func TestHandleTurnExpiry_StaleFireIsNoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := uuid.New()
	store := &memStore{draft: liveDraft(a)}
	store.draft.TurnDeadline = nil

	nominator := &fakeNominator{clears: store}
	ctrl := NewController(store, nominator, &fixedStrategy{playerID: uuid.New()}, clock)

	require.NoError(t, ctrl.HandleTurnExpiry(context.Background(), store.draft.ID))
	assert.Empty(t, nominator.requests)
}

func TestHandleTurnExpiry_FutureDeadlineIsNoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := uuid.New()
	store := &memStore{draft: liveDraft(a)}
	deadline := clock.Now().Add(10 * time.Second)
	store.draft.TurnDeadline = &deadline

	nominator := &fakeNominator{clears: store}
	ctrl := NewController(store, nominator, &fixedStrategy{playerID: uuid.New()}, clock)

	require.NoError(t, ctrl.HandleTurnExpiry(context.Background(), store.draft.ID))
	assert.Empty(t, nominator.requests)
	assert.Equal(t, deadline, *store.draft.TurnDeadline)
}

func TestHandleTurnExpiry_NoPlayersSurfaces(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := uuid.New()
	store := &memStore{draft: liveDraft(a)}
	deadline := clock.Now().Add(-time.Second)
	store.draft.TurnDeadline = &deadline

	ctrl := NewController(store, &fakeNominator{clears: store}, &fixedStrategy{err: ErrNoNominablePlayers}, clock)

	err := ctrl.HandleTurnExpiry(context.Background(), store.draft.ID)
	assert.ErrorIs(t, err, ErrNoNominablePlayers)
}
