package nomination

import "errors"

// Validation errors surface synchronously to the requesting client and never
// mutate state.
var (
	ErrNominationNotFound     = errors.New("nomination not found")
	ErrNominationNotActive    = errors.New("nomination is not active")
	ErrNotAuctionDraft        = errors.New("draft is not an auction draft")
	ErrDraftNotInProgress     = errors.New("draft is not in progress")
	ErrNominationCapExceeded  = errors.New("concurrent nomination limit reached")
	ErrPlayerAlreadyNominated = errors.New("player already nominated or awarded")
	ErrNotYourTurn            = errors.New("roster does not hold the nomination turn")
	ErrBidBelowMinimum        = errors.New("bid is below the minimum bid")
	ErrInsufficientBudget     = errors.New("insufficient budget")
)

// IsValidationError reports whether err belongs to the client-facing
// validation taxonomy, as opposed to a concurrency conflict or fatal error.
func IsValidationError(err error) bool {
	for _, sentinel := range []error{
		ErrNominationNotFound,
		ErrNominationNotActive,
		ErrNotAuctionDraft,
		ErrDraftNotInProgress,
		ErrNominationCapExceeded,
		ErrPlayerAlreadyNominated,
		ErrNotYourTurn,
		ErrBidBelowMinimum,
		ErrInsufficientBudget,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
