package repository

import (
	"database/sql"

	"github.com/iliyamo/storehouse/internal/model"
)

// VideoRepo stores videos. A video inserted without an upload date is
// stamped with the current date.
type VideoRepo struct {
	*Table[model.Video]
}

func NewVideoRepo(db *sql.DB) *VideoRepo {
	t := newTable(db, "videos", []string{
		"id", "owner_id", "franchise_id", "title", "episodes", "is_series",
		"upload_date", "score", "duration", "order_number",
	}, scanVideo)
	t.beforeInsert = func(f Fields) error {
		if _, ok := f["upload_date"]; !ok {
			f["upload_date"] = model.Today()
		}
		return nil
	}
	return &VideoRepo{Table: t}
}

func scanVideo(s rowScanner, v *model.Video) error {
	return s.Scan(&v.ID, &v.OwnerID, &v.FranchiseID, &v.Title, &v.Episodes, &v.IsSeries,
		&v.UploadDate, &v.Score, &v.Duration, &v.OrderNumber)
}
