package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctiondraft/internal/auction/budget"
	"github.com/mcdev12/auctiondraft/internal/auction/completion"
	"github.com/mcdev12/auctiondraft/internal/auction/draft"
	"github.com/mcdev12/auctiondraft/internal/auction/gateway"
	"github.com/mcdev12/auctiondraft/internal/auction/nomination"
	"github.com/mcdev12/auctiondraft/internal/auction/outbox"
	"github.com/mcdev12/auctiondraft/internal/auction/scheduler"
	"github.com/mcdev12/auctiondraft/internal/auction/turn"
	"github.com/mcdev12/auctiondraft/internal/models"
	"github.com/mcdev12/auctiondraft/internal/roster"
	"github.com/mcdev12/auctiondraft/internal/season"
)

// Services wires the whole engine: one process runs the command surface, the
// scheduler, the outbox relay, and the gateway.
type Services struct {
	Drafts    *draft.App
	Scheduler *scheduler.Scheduler
	Outbox    *outbox.Worker
	Gateway   *gateway.Service
}

// wakeProxy defers the scheduler reference: the apps that arm deadlines are
// built before the scheduler that watches them.
type wakeProxy struct {
	sched *scheduler.Scheduler
}

func (w *wakeProxy) Wake() {
	if w.sched != nil {
		w.sched.Wake()
	}
}

// stateReader adapts the read-side repositories to the gateway's snapshot
// interface.
type stateReader struct {
	nominations *nomination.Repository
	budgets     *budget.Ledger
}

func (s *stateReader) ListActiveNominations(ctx context.Context, draftID uuid.UUID) ([]models.Nomination, error) {
	return s.nominations.ListActiveNominations(ctx, draftID)
}

func (s *stateReader) RosterBudget(ctx context.Context, draftID, rosterID uuid.UUID) (models.Budget, error) {
	return s.budgets.RosterBudget(ctx, draftID, rosterID)
}

func setupServices(pool *pgxpool.Pool, config *Config) (*Services, error) {
	clock := clockwork.NewRealClock()
	waker := &wakeProxy{}

	nomRepo := nomination.NewRepository(pool)
	nomApp := nomination.NewApp(nomRepo, clock, waker)

	draftRepo := draft.NewRepository(pool)
	draftApp := draft.NewApp(draftRepo, clock, waker)

	strategy := turn.NewRandomStrategy(turn.NewRepository(pool))
	turnCtrl := turn.NewController(draftRepo, nomApp, strategy, clock)

	seasons := season.NewService(pool)
	detector := completion.NewDetector(completion.NewRepository(pool, draftRepo), draftApp, seasons)

	sched := scheduler.NewScheduler(scheduler.NewRepository(pool), nomApp, turnCtrl, detector, config.schedulerBatchSize())
	waker.sched = sched

	publisherCfg := outbox.DefaultJetStreamConfig()
	publisherCfg.URL = getEnv("NATS_URL", publisherCfg.URL)
	publisher, err := outbox.NewJetStreamPublisher(publisherCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox publisher: %w", err)
	}

	workerCfg := outbox.DefaultConfig()
	workerCfg.PollInterval = config.outboxPollInterval()
	if config.Outbox.BatchSize > 0 {
		workerCfg.BatchSize = int32(config.Outbox.BatchSize)
	}
	worker := outbox.NewWorker(pool, publisher, workerCfg)

	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.JetStreamConfig.URL = getEnv("NATS_URL", gatewayCfg.JetStreamConfig.URL)
	if config.Gateway.PingIntervalSec > 0 {
		gatewayCfg.ConnectionConfig.PingInterval = time.Duration(config.Gateway.PingIntervalSec) * time.Second
	}
	if config.Gateway.MaxMessageSize > 0 {
		gatewayCfg.ConnectionConfig.MaxMessageSize = int64(config.Gateway.MaxMessageSize)
	}
	state := &stateReader{
		nominations: nomRepo,
		budgets:     budget.NewLedger(budget.NewRepository(pool, roster.NewRepository(pool))),
	}
	gatewaySvc, err := gateway.NewService(gatewayCfg, nomApp, state)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	return &Services{
		Drafts:    draftApp,
		Scheduler: sched,
		Outbox:    worker,
		Gateway:   gatewaySvc,
	}, nil
}
