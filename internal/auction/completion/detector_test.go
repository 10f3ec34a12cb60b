package completion

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	draft            *models.Draft
	activeNoms       int
	nominablePlayers int
	playerCounts     map[uuid.UUID]int
	budgets          map[uuid.UUID]models.Budget
	rosterIDs        []uuid.UUID
}

func (m *memStore) GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	return m.draft, nil
}

func (m *memStore) ActiveNominationCount(ctx context.Context, draftID uuid.UUID) (int, error) {
	return m.activeNoms, nil
}

func (m *memStore) NominablePlayerCount(ctx context.Context, draftID uuid.UUID) (int, error) {
	return m.nominablePlayers, nil
}

func (m *memStore) RosterIDs(ctx context.Context, leagueID uuid.UUID) ([]uuid.UUID, error) {
	return m.rosterIDs, nil
}

func (m *memStore) PlayerCount(ctx context.Context, rosterID uuid.UUID) (int, error) {
	return m.playerCounts[rosterID], nil
}

func (m *memStore) RosterBudget(ctx context.Context, draftID, rosterID uuid.UUID) (models.Budget, error) {
	return m.budgets[rosterID], nil
}

type fakeCompleter struct {
	completed []uuid.UUID
}

func (f *fakeCompleter) CompleteAuction(ctx context.Context, draftID uuid.UUID) error {
	f.completed = append(f.completed, draftID)
	return nil
}

type fakeHandoff struct {
	finalized []uuid.UUID
	err       error
}

func (f *fakeHandoff) FinalizeAuction(ctx context.Context, draftID uuid.UUID) error {
	f.finalized = append(f.finalized, draftID)
	return f.err
}

func inProgressDraft() *models.Draft {
	return &models.Draft{
		ID:        uuid.New(),
		LeagueID:  uuid.New(),
		DraftType: models.DraftTypeSlowAuction,
		Status:    models.DraftStatusInProgress,
		Settings: models.DraftSettings{
			StartingBudget: 200,
			MinBid:         1,
			RosterSize:     2,
		},
	}
}

func TestCheckAndComplete_AllRostersFull(t *testing.T) {
	rosterA, rosterB := uuid.New(), uuid.New()
	store := &memStore{
		draft:            inProgressDraft(),
		nominablePlayers: 50,
		rosterIDs:        []uuid.UUID{rosterA, rosterB},
		playerCounts:     map[uuid.UUID]int{rosterA: 2, rosterB: 2},
		budgets:          map[uuid.UUID]models.Budget{},
	}
	completer := &fakeCompleter{}
	handoff := &fakeHandoff{}
	det := NewDetector(store, completer, handoff)

	done, err := det.CheckAndComplete(context.Background(), store.draft.ID)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []uuid.UUID{store.draft.ID}, completer.completed)
	assert.Equal(t, []uuid.UUID{store.draft.ID}, handoff.finalized)
}

func TestCheckAndComplete_PlayerPoolExhausted(t *testing.T) {
	rosterA := uuid.New()
	store := &memStore{
		draft:            inProgressDraft(),
		nominablePlayers: 0,
		rosterIDs:        []uuid.UUID{rosterA},
		playerCounts:     map[uuid.UUID]int{rosterA: 1},
		budgets:          map[uuid.UUID]models.Budget{rosterA: {Available: 100}},
	}
	det := NewDetector(store, &fakeCompleter{}, nil)

	done, err := det.CheckAndComplete(context.Background(), store.draft.ID)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestCheckAndComplete_NobodyCanAffordMinBid(t *testing.T) {
	rosterA, rosterB := uuid.New(), uuid.New()
	store := &memStore{
		draft:            inProgressDraft(),
		nominablePlayers: 30,
		rosterIDs:        []uuid.UUID{rosterA, rosterB},
		playerCounts:     map[uuid.UUID]int{rosterA: 1, rosterB: 2},
		budgets: map[uuid.UUID]models.Budget{
			rosterA: {Available: 0},
			rosterB: {Available: 50},
		},
	}
	det := NewDetector(store, &fakeCompleter{}, nil)

	// rosterB has budget but no open slots; rosterA has a slot but no budget.
	done, err := det.CheckAndComplete(context.Background(), store.draft.ID)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestCheckAndComplete_ViableBidderKeepsDraftOpen(t *testing.T) {
	rosterA := uuid.New()
	store := &memStore{
		draft:            inProgressDraft(),
		nominablePlayers: 30,
		rosterIDs:        []uuid.UUID{rosterA},
		playerCounts:     map[uuid.UUID]int{rosterA: 1},
		budgets:          map[uuid.UUID]models.Budget{rosterA: {Available: 10}},
	}
	completer := &fakeCompleter{}
	det := NewDetector(store, completer, nil)

	done, err := det.CheckAndComplete(context.Background(), store.draft.ID)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, completer.completed)
}

func TestCheckAndComplete_WaitsForActiveNominations(t *testing.T) {
	rosterA := uuid.New()
	store := &memStore{
		draft:        inProgressDraft(),
		activeNoms:   1,
		rosterIDs:    []uuid.UUID{rosterA},
		playerCounts: map[uuid.UUID]int{rosterA: 2},
	}
	det := NewDetector(store, &fakeCompleter{}, nil)

	done, err := det.CheckAndComplete(context.Background(), store.draft.ID)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestCheckAndComplete_HandoffFailureDoesNotUndoCompletion(t *testing.T) {
	rosterA := uuid.New()
	store := &memStore{
		draft:        inProgressDraft(),
		rosterIDs:    []uuid.UUID{rosterA},
		playerCounts: map[uuid.UUID]int{rosterA: 2},
	}
	completer := &fakeCompleter{}
	handoff := &fakeHandoff{err: assert.AnError}
	det := NewDetector(store, completer, handoff)

	done, err := det.CheckAndComplete(context.Background(), store.draft.ID)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Len(t, completer.completed, 1)
}

func TestCheckAndComplete_IgnoresCompletedDraft(t *testing.T) {
	store := &memStore{draft: inProgressDraft()}
	store.draft.Status = models.DraftStatusCompleted
	det := NewDetector(store, &fakeCompleter{}, nil)

	done, err := det.CheckAndComplete(context.Background(), store.draft.ID)
	require.NoError(t, err)
	assert.False(t, done)
}
