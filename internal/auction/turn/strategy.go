package turn

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PlayerSource lists players still open for nomination in a draft.
type PlayerSource interface {
	ListNominablePlayers(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error)
}

// RandomStrategy nominates a random still-available player. Scheduler workers
// call it concurrently, so it uses the locked top-level rand source rather
// than owning a rand.Rand.
type RandomStrategy struct {
	players PlayerSource
}

func NewRandomStrategy(players PlayerSource) *RandomStrategy {
	return &RandomStrategy{players: players}
}

func (s *RandomStrategy) SelectPlayer(ctx context.Context, draftID uuid.UUID) (uuid.UUID, error) {
	players, err := s.players.ListNominablePlayers(ctx, draftID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list nominable players: %w", err)
	}
	if len(players) == 0 {
		return uuid.Nil, ErrNoNominablePlayers
	}

	choice := players[rand.Intn(len(players))]
	log.Debug().
		Str("draft_id", draftID.String()).
		Str("player_id", choice.String()).
		Int("pool_size", len(players)).
		Msg("auto-nominate selected player")
	return choice, nil
}
