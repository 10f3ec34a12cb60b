package draft

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctiondraft/internal/auction/events"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	draft      *models.Draft
	totalWon   int
	eventTypes []string
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
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
	return m.totalWon, nil
}

func (m *memStore) AppendEvent(ctx context.Context, draftID uuid.UUID, eventType string, payload []byte) error {
	m.eventTypes = append(m.eventTypes, eventType)
	return nil
}

func liveDraft(order ...uuid.UUID) *models.Draft {
	return &models.Draft{
		ID:        uuid.New(),
		DraftType: models.DraftTypeAuction,
		Status:    models.DraftStatusNotStarted,
		Settings: models.DraftSettings{
			StartingBudget:  200,
			MinBid:          1,
			PickTimeSeconds: 30,
			RosterSize:      10,
			DraftOrder:      order,
		},
	}
}

func TestStartAuction_ArmsFirstTurn(t *testing.T) {
	clock := clockwork.NewFakeClock()
	first := uuid.New()
	store := &memStore{draft: liveDraft(first, uuid.New())}
	app := NewApp(store, clock, nil)

	require.NoError(t, app.StartAuction(context.Background(), store.draft.ID))

	assert.Equal(t, models.DraftStatusInProgress, store.draft.Status)
	require.NotNil(t, store.draft.CurrentRosterID)
	assert.Equal(t, first, *store.draft.CurrentRosterID)
	require.NotNil(t, store.draft.TurnDeadline)
	assert.Equal(t, clock.Now().Add(30*time.Second), *store.draft.TurnDeadline)
	assert.Equal(t, []string{events.TypeTurnChanged}, store.eventTypes)
}

func TestStartAuction_SlowAuctionHasNoTurn(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &memStore{draft: liveDraft()}
	store.draft.DraftType = models.DraftTypeSlowAuction
	app := NewApp(store, clock, nil)

	require.NoError(t, app.StartAuction(context.Background(), store.draft.ID))

	assert.Equal(t, models.DraftStatusInProgress, store.draft.Status)
	assert.Nil(t, store.draft.CurrentRosterID)
	assert.Empty(t, store.eventTypes)
}

func TestStartAuction_RejectsRestart(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &memStore{draft: liveDraft(uuid.New())}
	store.draft.Status = models.DraftStatusInProgress
	app := NewApp(store, clock, nil)

	err := app.StartAuction(context.Background(), store.draft.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStartAuction_RequiresDraftOrder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &memStore{draft: liveDraft()}
	app := NewApp(store, clock, nil)

	err := app.StartAuction(context.Background(), store.draft.ID)
	assert.ErrorIs(t, err, ErrEmptyDraftOrder)
}

func TestPauseResume_ReArmsSameTurn(t *testing.T) {
	clock := clockwork.NewFakeClock()
	onTurn := uuid.New()
	store := &memStore{draft: liveDraft(onTurn)}
	app := NewApp(store, clock, nil)

	require.NoError(t, app.StartAuction(context.Background(), store.draft.ID))
	require.NoError(t, app.PauseAuction(context.Background(), store.draft.ID, "commissioner pause"))

	assert.Equal(t, models.DraftStatusPaused, store.draft.Status)
	assert.Nil(t, store.draft.TurnDeadline)
	require.NotNil(t, store.draft.CurrentRosterID)

	clock.Advance(time.Hour)
	require.NoError(t, app.ResumeAuction(context.Background(), store.draft.ID))

	assert.Equal(t, models.DraftStatusInProgress, store.draft.Status)
	assert.Equal(t, onTurn, *store.draft.CurrentRosterID)
	require.NotNil(t, store.draft.TurnDeadline)
	assert.Equal(t, clock.Now().Add(30*time.Second), *store.draft.TurnDeadline)
	assert.Contains(t, store.eventTypes, events.TypeAuctionPaused)
	assert.Contains(t, store.eventTypes, events.TypeAuctionResumed)
}

func TestPauseAuction_RequiresInProgress(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &memStore{draft: liveDraft(uuid.New())}
	app := NewApp(store, clock, nil)

	err := app.PauseAuction(context.Background(), store.draft.ID, "too early")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCompleteAuction(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &memStore{draft: liveDraft(uuid.New()), totalWon: 120}
	app := NewApp(store, clock, nil)

	require.NoError(t, app.StartAuction(context.Background(), store.draft.ID))
	require.NoError(t, app.CompleteAuction(context.Background(), store.draft.ID))

	assert.Equal(t, models.DraftStatusCompleted, store.draft.Status)
	assert.Nil(t, store.draft.CurrentRosterID)
	assert.Nil(t, store.draft.TurnDeadline)
	assert.Contains(t, store.eventTypes, events.TypeAuctionCompleted)

	// A second completion is a no-op, not an error.
	emitted := len(store.eventTypes)
	require.NoError(t, app.CompleteAuction(context.Background(), store.draft.ID))
	assert.Len(t, store.eventTypes, emitted)
}
