// Package clearing implements the proxy (second-price) auction rule used to
// resolve the current winner and public price of a nomination. It is a pure
// function of the bid set; persistence and locking live in the nomination
// lifecycle layer.
package clearing

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Bid is the slice of bid state the clearing rule needs. MaxBid is the
// bidder's private ceiling; CreatedAt breaks ties in favor of the first mover.
type Bid struct {
	ID        uuid.UUID
	RosterID  uuid.UUID
	MaxBid    int64
	CreatedAt time.Time
}

// Outcome describes the resolved state of a nomination's bid set.
type Outcome struct {
	WinningBidID    uuid.UUID
	WinningRosterID uuid.UUID
	ClearingPrice   int64
}

var ErrNoBids = errors.New("clearing: no bids to resolve")

// OpeningAmount returns the placeholder amount a new bid is inserted with
// before the set is re-resolved: one increment above the current public
// price, floored at minBid.
func OpeningAmount(currentBidAmount, minBid int64) int64 {
	amount := currentBidAmount + minBid
	if amount < minBid {
		amount = minBid
	}
	return amount
}

// Resolve ranks the full bid set for a nomination and returns the winner and
// clearing price.
//
// Rules:
//   - Only each roster's highest ceiling competes; a re-bid supersedes that
//     roster's earlier rows but never lets a roster runner-up itself.
//   - Bids rank descending by MaxBid; equal ceilings rank by earliest
//     CreatedAt (first mover wins ties).
//   - A sole bid clears at minBid regardless of its ceiling.
//   - Otherwise the price is runnerUp.MaxBid + minBid, capped at the winner's
//     own ceiling and floored at minBid.
func Resolve(minBid int64, bids []Bid) (Outcome, error) {
	if len(bids) == 0 {
		return Outcome{}, ErrNoBids
	}

	ranked := highestPerRoster(bids)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MaxBid != ranked[j].MaxBid {
			return ranked[i].MaxBid > ranked[j].MaxBid
		}
		return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
	})

	winner := ranked[0]
	if len(ranked) == 1 {
		return Outcome{
			WinningBidID:    winner.ID,
			WinningRosterID: winner.RosterID,
			ClearingPrice:   minBid,
		}, nil
	}

	runnerUp := ranked[1]
	price := runnerUp.MaxBid + minBid
	if price > winner.MaxBid {
		// The winner never pays more than their own ceiling.
		price = winner.MaxBid
	}
	if price < minBid {
		price = minBid
	}

	return Outcome{
		WinningBidID:    winner.ID,
		WinningRosterID: winner.RosterID,
		ClearingPrice:   price,
	}, nil
}

// highestPerRoster keeps the strongest bid per roster: highest MaxBid,
// earliest CreatedAt among equals.
func highestPerRoster(bids []Bid) []Bid {
	best := make(map[uuid.UUID]Bid, len(bids))
	order := make([]uuid.UUID, 0, len(bids))
	for _, b := range bids {
		cur, ok := best[b.RosterID]
		if !ok {
			best[b.RosterID] = b
			order = append(order, b.RosterID)
			continue
		}
		if b.MaxBid > cur.MaxBid || (b.MaxBid == cur.MaxBid && b.CreatedAt.Before(cur.CreatedAt)) {
			best[b.RosterID] = b
		}
	}
	out := make([]Bid, 0, len(best))
	for _, rosterID := range order {
		out = append(out, best[rosterID])
	}
	return out
}
