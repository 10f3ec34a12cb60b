// Package season turns a completed auction draft into a playable season:
// won players land on their rosters, the league flips to IN_SEASON, and a
// round-robin schedule is generated with zeroed scores.
package season

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/auctiondraft/internal/roster"
	"github.com/mcdev12/auctiondraft/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// Service runs the post-draft handoff. Every step is idempotent, so a failed
// handoff can be re-run without duplicating assignments or matchups.
type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// FinalizeAuction assigns awards, activates the league, and generates the
// schedule, all in one transaction.
func (s *Service) FinalizeAuction(ctx context.Context, draftID uuid.UUID) error {
	err := sqlutil.Run(ctx, s.pool, func(tx pgx.Tx) error {
		repo := NewRepository(tx)
		rosters := roster.NewRepository(tx)

		leagueID, err := repo.LeagueIDForDraft(ctx, draftID)
		if err != nil {
			return err
		}

		awards, err := repo.ListAwards(ctx, draftID)
		if err != nil {
			return err
		}
		for _, a := range awards {
			if err := rosters.AddPlayer(ctx, a.RosterID, a.PlayerID, a.WonAt, a.Amount); err != nil {
				return err
			}
		}

		if err := repo.MarkLeagueInSeason(ctx, leagueID); err != nil {
			return err
		}

		scheduled, err := repo.HasSchedule(ctx, leagueID)
		if err != nil {
			return err
		}
		if scheduled {
			return nil
		}

		rosterIDs, err := rosters.ListRosterIDsByLeague(ctx, leagueID)
		if err != nil {
			return err
		}
		weeks := RoundRobin(rosterIDs)
		for week, matchups := range weeks {
			for _, m := range matchups {
				if err := repo.InsertMatchup(ctx, leagueID, week+1, m.Home, m.Away); err != nil {
					return err
				}
			}
		}

		log.Info().
			Str("draft_id", draftID.String()).
			Str("league_id", leagueID.String()).
			Int("awards", len(awards)).
			Int("weeks", len(weeks)).
			Msg("season handoff complete")
		return nil
	})
	if err != nil {
		return fmt.Errorf("finalize auction %s: %w", draftID, err)
	}
	return nil
}

// Matchup pairs two rosters for one week.
type Matchup struct {
	Home uuid.UUID
	Away uuid.UUID
}

// RoundRobin builds a single round-robin schedule using the circle method.
// An odd roster count gets a rotating bye. Returns one matchup list per week.
func RoundRobin(rosterIDs []uuid.UUID) [][]Matchup {
	if len(rosterIDs) < 2 {
		return nil
	}

	ids := make([]uuid.UUID, len(rosterIDs))
	copy(ids, rosterIDs)

	bye := uuid.Nil
	if len(ids)%2 == 1 {
		ids = append(ids, bye)
	}

	n := len(ids)
	weeks := make([][]Matchup, 0, n-1)
	for round := 0; round < n-1; round++ {
		var matchups []Matchup
		for i := 0; i < n/2; i++ {
			home, away := ids[i], ids[n-1-i]
			if home == bye || away == bye {
				continue
			}
			// Alternate venue so the fixed first team is not always home.
			if round%2 == 1 {
				home, away = away, home
			}
			matchups = append(matchups, Matchup{Home: home, Away: away})
		}
		weeks = append(weeks, matchups)

		// Rotate all but the first element.
		last := ids[n-1]
		copy(ids[2:], ids[1:n-1])
		ids[1] = last
	}
	return weeks
}
