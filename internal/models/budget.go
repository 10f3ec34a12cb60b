package models

// Budget is a derived snapshot of a roster's auction spending power.
// It is recomputed from persisted fact tables on every read, never cached.
type Budget struct {
	StartingBudget int64 `json:"starting_budget"`
	Spent          int64 `json:"spent"`
	ActiveBids     int64 `json:"active_bids"`
	Reserved       int64 `json:"reserved"`
	Available      int64 `json:"available"`
}
