package repository

import (
	"database/sql"

	"github.com/iliyamo/storehouse/internal/model"
)

// WatchlistRepo stores watchlist entries. Entries disappear with the user or
// video they point at.
type WatchlistRepo struct {
	*Table[model.Watchlist]
}

func NewWatchlistRepo(db *sql.DB) *WatchlistRepo {
	t := newTable(db, "watchlists", []string{
		"id", "user_id", "target_id", "target_type", "score", "episodes", "rewatches",
	}, scanWatchlist)
	return &WatchlistRepo{Table: t}
}

func scanWatchlist(s rowScanner, w *model.Watchlist) error {
	return s.Scan(&w.ID, &w.UserID, &w.TargetID, &w.TargetType, &w.Score, &w.Episodes, &w.Rewatches)
}
