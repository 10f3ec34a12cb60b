// Package budget computes a roster's spendable auction budget. The ledger is
// deliberately stateless: every read recomputes from committed fact tables
// (completed nominations, currently-winning bids, roster fill) so there is no
// cached counter to go stale. Draft volumes are small enough that the
// read-side joins are cheap.
package budget

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/internal/models"
)

// Facts is the immutable snapshot a budget is derived from.
type Facts struct {
	StartingBudget int64
	// Spent sums winning_bid over the roster's COMPLETED nominations.
	Spent int64
	// ActiveBids sums bid_amount over the roster's currently-winning bids on
	// ACTIVE nominations.
	ActiveBids int64
	// ActiveWins counts those winning bids; each one will fill a slot.
	ActiveWins int
	// OpenSlots is roster_size minus players already on the roster.
	OpenSlots int
	// ReserveBudget holds back $1 per unfilled slot not already covered by an
	// active winning bid.
	ReserveBudget bool
}

// FactsReader loads budget facts from committed state. excludeNomination, when
// non-nil, leaves that nomination's winning bid out of ActiveBids/ActiveWins
// so a roster raising its own ceiling is not double-counted.
type FactsReader interface {
	BudgetFacts(ctx context.Context, draftID, rosterID uuid.UUID, excludeNomination *uuid.UUID) (Facts, error)
}

// Compute derives a budget snapshot from facts. Pure function; the
// conservation invariant available + spent + active + reserved ==
// starting_budget holds whenever the raw remainder is non-negative.
func Compute(f Facts) models.Budget {
	var reserved int64
	if f.ReserveBudget {
		unfunded := f.OpenSlots - f.ActiveWins
		if unfunded > 0 {
			reserved = int64(unfunded)
		}
	}

	available := f.StartingBudget - f.Spent - f.ActiveBids - reserved
	if available < 0 {
		available = 0
	}

	return models.Budget{
		StartingBudget: f.StartingBudget,
		Spent:          f.Spent,
		ActiveBids:     f.ActiveBids,
		Reserved:       reserved,
		Available:      available,
	}
}

// Ledger answers budget questions for rosters in a draft.
type Ledger struct {
	facts FactsReader
}

func NewLedger(facts FactsReader) *Ledger {
	return &Ledger{facts: facts}
}

// RosterBudget returns the roster's current budget snapshot.
func (l *Ledger) RosterBudget(ctx context.Context, draftID, rosterID uuid.UUID) (models.Budget, error) {
	facts, err := l.facts.BudgetFacts(ctx, draftID, rosterID, nil)
	if err != nil {
		return models.Budget{}, fmt.Errorf("failed to load budget facts: %w", err)
	}
	return Compute(facts), nil
}

// BudgetExcluding returns the budget snapshot with the given nomination's
// winning bid left out of the active total. Used when validating a re-bid on
// that nomination.
func (l *Ledger) BudgetExcluding(ctx context.Context, draftID, rosterID, nominationID uuid.UUID) (models.Budget, error) {
	facts, err := l.facts.BudgetFacts(ctx, draftID, rosterID, &nominationID)
	if err != nil {
		return models.Budget{}, fmt.Errorf("failed to load budget facts: %w", err)
	}
	return Compute(facts), nil
}
