package model

// Video represents an uploaded title. A video always has an owner and may
// belong to a franchise, in which case OrderNumber gives its position in
// that franchise.
//
// Fields:
//
//	ID          – primary key identifier.
//	OwnerID     – users.id of the uploader.
//	FranchiseID – optional franchises.id.
//	Title       – title (max 50 characters).
//	Episodes    – number of episodes, at least 1.
//	IsSeries    – whether the title is a series.
//	UploadDate  – date of upload, defaults to the insert date.
//	Score       – aggregate score.
//	Duration    – running time.
//	OrderNumber – optional position within the franchise.
type Video struct {
	ID          uint64  `json:"id"`           // videos.id
	OwnerID     uint64  `json:"owner_id"`     // videos.owner_id
	FranchiseID *uint64 `json:"franchise_id"` // videos.franchise_id (nullable)
	Title       string  `json:"title"`        // videos.title
	Episodes    int     `json:"episodes"`     // videos.episodes
	IsSeries    bool    `json:"is_series"`    // videos.is_series
	UploadDate  Date    `json:"upload_date"`  // videos.upload_date
	Score       float64 `json:"score"`        // videos.score
	Duration    float64 `json:"duration"`     // videos.duration
	OrderNumber *int    `json:"order_number"` // videos.order_number (nullable)
}
