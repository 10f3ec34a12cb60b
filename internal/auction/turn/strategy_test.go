package turn

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPlayerSource struct {
	players []uuid.UUID
}

func (s *staticPlayerSource) ListNominablePlayers(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error) {
	return s.players, nil
}

func TestRandomStrategy_SelectsFromPool(t *testing.T) {
	pool := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	strat := NewRandomStrategy(&staticPlayerSource{players: pool})

	choice, err := strat.SelectPlayer(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Contains(t, pool, choice)
}

func TestRandomStrategy_EmptyPool(t *testing.T) {
	strat := NewRandomStrategy(&staticPlayerSource{})

	_, err := strat.SelectPlayer(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoNominablePlayers)
}

// Scheduler workers fire turn expiries for different drafts in parallel, so
// one strategy instance must tolerate concurrent selection.
func TestRandomStrategy_ConcurrentSelection(t *testing.T) {
	pool := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	strat := NewRandomStrategy(&staticPlayerSource{players: pool})

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				choice, err := strat.SelectPlayer(context.Background(), uuid.New())
				if err != nil {
					errs <- err
					return
				}
				assert.Contains(t, pool, choice)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
