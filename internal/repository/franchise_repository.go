package repository

import (
	"database/sql"

	"github.com/iliyamo/storehouse/internal/model"
)

type FranchiseRepo struct {
	*Table[model.Franchise]
}

func NewFranchiseRepo(db *sql.DB) *FranchiseRepo {
	return &FranchiseRepo{Table: newTable(db, "franchises", []string{"id", "name"},
		func(s rowScanner, f *model.Franchise) error {
			return s.Scan(&f.ID, &f.Name)
		})}
}
