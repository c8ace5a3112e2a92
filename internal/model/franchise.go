package model

// Franchise groups related videos (seasons, sequels, spin-offs).
// It corresponds to a row in the `franchises` table.
type Franchise struct {
	ID   uint64 `json:"id"`   // franchises.id
	Name string `json:"name"` // franchises.name
}
