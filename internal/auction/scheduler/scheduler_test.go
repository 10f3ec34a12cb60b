package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctiondraft/internal/auction/nomination"
	"github.com/mcdev12/auctiondraft/internal/auction/turn"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu       sync.Mutex
	next     *time.Time
	dueNoms  []DueNomination
	dueTurns []uuid.UUID
}

func (m *memStore) FetchNextDeadline(ctx context.Context) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.next
	m.next = nil
	return next, nil
}

func (m *memStore) FetchDueNominations(ctx context.Context, limit int32) ([]DueNomination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := m.dueNoms
	m.dueNoms = nil
	return due, nil
}

func (m *memStore) FetchDueTurns(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := m.dueTurns
	m.dueTurns = nil
	return due, nil
}

type fakeResolver struct {
	mu        sync.Mutex
	resolved  []uuid.UUID
	cancelled []uuid.UUID
	draftID   uuid.UUID
	applied   bool
}

func (f *fakeResolver) ResolveExpiredNomination(ctx context.Context, nominationID uuid.UUID) (*nomination.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, nominationID)
	return &nomination.Resolution{
		Nomination: &models.Nomination{ID: nominationID, DraftID: f.draftID},
		Applied:    f.applied,
	}, nil
}

func (f *fakeResolver) CancelNomination(ctx context.Context, nominationID uuid.UUID) (*nomination.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, nominationID)
	return &nomination.Resolution{
		Nomination: &models.Nomination{ID: nominationID, DraftID: f.draftID},
		Applied:    f.applied,
	}, nil
}

type fakeTurns struct {
	mu       sync.Mutex
	expired  []uuid.UUID
	advanced []uuid.UUID
	err      error
}

func (f *fakeTurns) HandleTurnExpiry(ctx context.Context, draftID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = append(f.expired, draftID)
	return f.err
}

func (f *fakeTurns) AdvanceAfterResolution(ctx context.Context, draftID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanced = append(f.advanced, draftID)
	return nil
}

type fakeCompletion struct {
	mu      sync.Mutex
	checked []uuid.UUID
}

func (f *fakeCompletion) CheckAndComplete(ctx context.Context, draftID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, draftID)
	return false, nil
}

func newTestScheduler(store Store, resolver Resolver, turns TurnHandler, completion CompletionChecker) *Scheduler {
	s := NewScheduler(store, resolver, turns, completion, 100)
	s.clock = clockwork.NewFakeClock()
	return s
}

func TestHandleNominationExpiry_AppliedAdvancesAndChecks(t *testing.T) {
	resolver := &fakeResolver{applied: true}
	turns := &fakeTurns{}
	completion := &fakeCompletion{}
	s := newTestScheduler(&memStore{}, resolver, turns, completion)

	nomID, draftID := uuid.New(), uuid.New()
	require.NoError(t, s.handleNominationExpiry(context.Background(), nomID, draftID))

	assert.Equal(t, []uuid.UUID{nomID}, resolver.resolved)
	assert.Equal(t, []uuid.UUID{draftID}, turns.advanced)
	assert.Equal(t, []uuid.UUID{draftID}, completion.checked)
}

func TestHandleNominationExpiry_NoopSkipsFollowups(t *testing.T) {
	resolver := &fakeResolver{applied: false}
	turns := &fakeTurns{}
	completion := &fakeCompletion{}
	s := newTestScheduler(&memStore{}, resolver, turns, completion)

	require.NoError(t, s.handleNominationExpiry(context.Background(), uuid.New(), uuid.New()))

	assert.Empty(t, turns.advanced)
	assert.Empty(t, completion.checked)
}

func TestCancelNomination_AppliedAdvancesAndChecks(t *testing.T) {
	draftID := uuid.New()
	resolver := &fakeResolver{applied: true, draftID: draftID}
	turns := &fakeTurns{}
	completion := &fakeCompletion{}
	s := newTestScheduler(&memStore{}, resolver, turns, completion)

	nomID := uuid.New()
	res, err := s.CancelNomination(context.Background(), nomID)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	assert.Equal(t, []uuid.UUID{nomID}, resolver.cancelled)
	assert.Equal(t, []uuid.UUID{draftID}, turns.advanced)
	assert.Equal(t, []uuid.UUID{draftID}, completion.checked)
}

func TestCancelNomination_NoopSkipsFollowups(t *testing.T) {
	resolver := &fakeResolver{applied: false}
	turns := &fakeTurns{}
	completion := &fakeCompletion{}
	s := newTestScheduler(&memStore{}, resolver, turns, completion)

	res, err := s.CancelNomination(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, res.Applied)

	assert.Empty(t, turns.advanced)
	assert.Empty(t, completion.checked)
}

func TestHandleTurnExpiry_NoPlayersTriggersCompletionCheck(t *testing.T) {
	turns := &fakeTurns{err: turn.ErrNoNominablePlayers}
	completion := &fakeCompletion{}
	s := newTestScheduler(&memStore{}, &fakeResolver{}, turns, completion)

	draftID := uuid.New()
	require.NoError(t, s.handleTurnExpiry(context.Background(), draftID))
	assert.Equal(t, []uuid.UUID{draftID}, completion.checked)
}

func TestDispatchDue_DeduplicatesInFlight(t *testing.T) {
	nomID, draftID := uuid.New(), uuid.New()
	store := &memStore{dueNoms: []DueNomination{{ID: nomID, DraftID: draftID}}}
	s := newTestScheduler(store, &fakeResolver{}, &fakeTurns{}, &fakeCompletion{})

	s.inFlight[nomID] = true
	require.NoError(t, s.dispatchDue(context.Background()))

	select {
	case item := <-s.workCh:
		t.Fatalf("expected no work queued, got %v", item)
	default:
	}
}

func TestDispatchDue_QueuesNominationsAndTurns(t *testing.T) {
	nomID, draftA, draftB := uuid.New(), uuid.New(), uuid.New()
	store := &memStore{
		dueNoms:  []DueNomination{{ID: nomID, DraftID: draftA}},
		dueTurns: []uuid.UUID{draftB},
	}
	s := newTestScheduler(store, &fakeResolver{}, &fakeTurns{}, &fakeCompletion{})

	require.NoError(t, s.dispatchDue(context.Background()))

	first := <-s.workCh
	require.NotNil(t, first.nominationID)
	assert.Equal(t, nomID, *first.nominationID)
	assert.Equal(t, draftA, first.draftID)

	second := <-s.workCh
	assert.Nil(t, second.nominationID)
	assert.Equal(t, draftB, second.draftID)
}

func TestWake_NeverBlocks(t *testing.T) {
	s := newTestScheduler(&memStore{}, &fakeResolver{}, &fakeTurns{}, &fakeCompletion{})
	s.Wake()
	s.Wake()
	s.Wake()

	select {
	case <-s.wakeCh:
	default:
		t.Fatal("expected a pending wake")
	}
}

func TestRun_ProcessesDueWorkAndShutsDown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	past := clock.Now().Add(-time.Second)
	nomID, draftID := uuid.New(), uuid.New()
	store := &memStore{
		next:    &past,
		dueNoms: []DueNomination{{ID: nomID, DraftID: draftID}},
	}
	resolver := &fakeResolver{applied: true}
	s := NewScheduler(store, resolver, &fakeTurns{}, &fakeCompletion{}, 100)
	s.clock = clock

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resolver.mu.Lock()
		defer resolver.mu.Unlock()
		return len(resolver.resolved) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
