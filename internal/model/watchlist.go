package model

// Watchlist is one entry of a user's watch list. TargetID points at the
// video being tracked and TargetType is a free-form discriminator.
type Watchlist struct {
	ID         uint64   `json:"id"`          // watchlists.id
	UserID     uint64   `json:"user_id"`     // watchlists.user_id
	TargetID   uint64   `json:"target_id"`   // watchlists.target_id
	TargetType *string  `json:"target_type"` // watchlists.target_type (nullable)
	Score      *float64 `json:"score"`       // watchlists.score (nullable)
	Episodes   int      `json:"episodes"`    // watchlists.episodes
	Rewatches  int      `json:"rewatches"`   // watchlists.rewatches
}
