// Package scheduler fires expiry work when persisted deadlines lapse. One
// goroutine sleeps until the soonest deadline across all drafts, then fans
// due nominations and turns out to a worker pool. The wake channel lets
// writers of sooner deadlines cut the sleep short.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctiondraft/internal/auction/nomination"
	"github.com/mcdev12/auctiondraft/internal/auction/turn"
	"github.com/rs/zerolog/log"
)

// Clock abstracts time for tests. clockwork.NewRealClock in production.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Store reads due work from persisted deadlines.
type Store interface {
	FetchNextDeadline(ctx context.Context) (*time.Time, error)
	FetchDueNominations(ctx context.Context, limit int32) ([]DueNomination, error)
	FetchDueTurns(ctx context.Context, limit int32) ([]uuid.UUID, error)
}

// Resolver applies terminal nomination transitions.
type Resolver interface {
	ResolveExpiredNomination(ctx context.Context, nominationID uuid.UUID) (*nomination.Resolution, error)
	CancelNomination(ctx context.Context, nominationID uuid.UUID) (*nomination.Resolution, error)
}

// TurnHandler reacts to turn expiry and nomination resolution.
type TurnHandler interface {
	HandleTurnExpiry(ctx context.Context, draftID uuid.UUID) error
	AdvanceAfterResolution(ctx context.Context, draftID uuid.UUID) error
}

// CompletionChecker runs after every resolution.
type CompletionChecker interface {
	CheckAndComplete(ctx context.Context, draftID uuid.UUID) (bool, error)
}

type workItem struct {
	key          uuid.UUID
	nominationID *uuid.UUID
	draftID      uuid.UUID
}

type Scheduler struct {
	store      Store
	resolver   Resolver
	turns      TurnHandler
	completion CompletionChecker
	clock      Clock
	batchSize  int32
	instanceID string

	numWorkers int
	workCh     chan workItem
	wakeCh     chan struct{}

	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

func NewScheduler(store Store, resolver Resolver, turns TurnHandler, completion CompletionChecker, batchSize int32) *Scheduler {
	numWorkers := 10
	return &Scheduler{
		store:      store,
		resolver:   resolver,
		turns:      turns,
		completion: completion,
		clock:      clockwork.NewRealClock(),
		batchSize:  batchSize,
		instanceID: uuid.New().String()[:8],
		numWorkers: numWorkers,
		workCh:     make(chan workItem, numWorkers*2),
		wakeCh:     make(chan struct{}, 1),
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// Wake signals the scheduler that a sooner deadline may have been written.
// Non-blocking; a pending wake is enough.
func (s *Scheduler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Run loops until ctx is done, sleeping until the next persisted deadline and
// dispatching due work to the pool.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Str("instance", s.instanceID).Int("workers", s.numWorkers).Msg("scheduler started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < s.numWorkers; i++ {
		wg.Add(1)
		go s.worker(workerCtx, &wg, i)
	}
	defer func() {
		cancelWorkers()
		close(s.workCh)
		wg.Wait()
		log.Info().Str("instance", s.instanceID).Msg("all workers shut down")
	}()

	timer := s.clock.NewTimer(0)
	defer timer.Stop()

	const idlePoll = 5 * time.Second
	retryCount := 0
	const maxRetries = 3

	for {
		select {
		case <-s.wakeCh:
		default:
		}

		next, err := s.store.FetchNextDeadline(ctx)
		if err != nil {
			retryCount++
			if retryCount <= maxRetries {
				log.Error().Err(err).Int("retry", retryCount).Str("instance", s.instanceID).
					Msg("error fetching next deadline, retrying")
				timer.Reset(time.Second * time.Duration(retryCount))
				select {
				case <-timer.Chan():
					continue
				case <-ctx.Done():
					return nil
				}
			}
			log.Error().Err(err).Str("instance", s.instanceID).Msg("giving up fetching next deadline")
			return err
		}
		retryCount = 0

		if next == nil {
			timer.Reset(idlePoll)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				log.Info().Str("instance", s.instanceID).Msg("shutdown during idle")
				return nil
			case <-s.wakeCh:
				continue
			}
		}

		if wait := next.Sub(s.clock.Now()); wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.Chan():
			case <-ctx.Done():
				log.Info().Str("instance", s.instanceID).Msg("shutdown during wait")
				return nil
			case <-s.wakeCh:
				continue
			}
		}

		if err := s.dispatchDue(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error().Err(err).Str("instance", s.instanceID).Msg("error dispatching due work")
			timer.Reset(time.Second)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (s *Scheduler) dispatchDue(ctx context.Context) error {
	dueNoms, err := s.store.FetchDueNominations(ctx, s.batchSize)
	if err != nil {
		return err
	}
	dueTurns, err := s.store.FetchDueTurns(ctx, s.batchSize)
	if err != nil {
		return err
	}

	items := make([]workItem, 0, len(dueNoms)+len(dueTurns))
	for _, n := range dueNoms {
		nomID := n.ID
		items = append(items, workItem{key: n.ID, nominationID: &nomID, draftID: n.DraftID})
	}
	for _, draftID := range dueTurns {
		items = append(items, workItem{key: draftID, draftID: draftID})
	}

	if len(items) > 0 {
		log.Info().
			Int("due_nominations", len(dueNoms)).
			Int("due_turns", len(dueTurns)).
			Str("instance", s.instanceID).
			Msg("dispatching due work")
	}

	for _, item := range items {
		s.inFlightMu.Lock()
		if s.inFlight[item.key] {
			s.inFlightMu.Unlock()
			continue
		}
		s.inFlight[item.key] = true
		s.inFlightMu.Unlock()

		select {
		case <-ctx.Done():
			s.inFlightMu.Lock()
			delete(s.inFlight, item.key)
			s.inFlightMu.Unlock()
			return ctx.Err()
		case s.workCh <- item:
		}
	}
	return nil
}

func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-s.workCh:
			if !ok {
				return
			}
			if err := s.handle(ctx, item); err != nil {
				log.Error().Err(err).
					Str("instance", s.instanceID).
					Int("worker_id", workerID).
					Str("draft_id", item.draftID.String()).
					Msg("expiry handling failed")
			}
			s.inFlightMu.Lock()
			delete(s.inFlight, item.key)
			s.inFlightMu.Unlock()
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, item workItem) error {
	if item.nominationID != nil {
		return s.handleNominationExpiry(ctx, *item.nominationID, item.draftID)
	}
	return s.handleTurnExpiry(ctx, item.draftID)
}

// handleNominationExpiry resolves a lapsed nomination, then lets the rotation
// and the completion detector react. The resolution is idempotent, so losing
// the race to a concurrent bid or cancel is a clean no-op.
func (s *Scheduler) handleNominationExpiry(ctx context.Context, nominationID, draftID uuid.UUID) error {
	res, err := s.resolver.ResolveExpiredNomination(ctx, nominationID)
	if err != nil {
		return err
	}
	if !res.Applied {
		return nil
	}
	s.afterResolution(ctx, draftID)
	return nil
}

// CancelNomination is the commissioner cancel path. An applied cancel runs the
// same follow-ups as a deadline expiry: the rotation would otherwise stall,
// because opening the nomination disarmed the pick timer.
func (s *Scheduler) CancelNomination(ctx context.Context, nominationID uuid.UUID) (*nomination.Resolution, error) {
	res, err := s.resolver.CancelNomination(ctx, nominationID)
	if err != nil {
		return nil, err
	}
	if res.Applied {
		s.afterResolution(ctx, res.Nomination.DraftID)
	}
	return res, nil
}

func (s *Scheduler) afterResolution(ctx context.Context, draftID uuid.UUID) {
	if err := s.turns.AdvanceAfterResolution(ctx, draftID); err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("turn advance after resolution failed")
	}
	if _, err := s.completion.CheckAndComplete(ctx, draftID); err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("completion check failed")
	}
}

func (s *Scheduler) handleTurnExpiry(ctx context.Context, draftID uuid.UUID) error {
	err := s.turns.HandleTurnExpiry(ctx, draftID)
	if errors.Is(err, turn.ErrNoNominablePlayers) {
		_, cerr := s.completion.CheckAndComplete(ctx, draftID)
		return cerr
	}
	return err
}
