package handler

import (
	"strings"

	"github.com/iliyamo/storehouse/internal/model"
	"github.com/iliyamo/storehouse/internal/repository"
)

// Form is the request body a kind accepts. Pointer fields tell an absent or
// null value apart from an explicit zero. Normalized clears blank strings
// and empty dates so they count as absent too; Fields then returns only
// the supplied columns.
//
// Tags: "validate" holds the create rules and "update" the rules applied
// to supplied fields on put and patch.
type Form[F any] interface {
	Normalized() F
	Fields() repository.Fields
}

type UserForm struct {
	Name     *string `json:"name" validate:"required,max=20" update:"omitempty,max=20"`
	Email    *string `json:"email" validate:"required,email,max=120" update:"omitempty,email,max=120"`
	Password *string `json:"password" validate:"required,maxbytes=72" update:"omitempty,maxbytes=72"`
}

func (f UserForm) Normalized() UserForm {
	f.Name = nonBlank(f.Name)
	f.Email = nonBlank(f.Email)
	f.Password = nonBlank(f.Password)
	return f
}

func (f UserForm) Fields() repository.Fields {
	out := repository.Fields{}
	put(out, "name", f.Name)
	put(out, "email", f.Email)
	put(out, "password", f.Password)
	return out
}

type VideoForm struct {
	OwnerID     *uint64     `json:"owner_id" validate:"required,max=9223372036854775807" update:"omitempty,max=9223372036854775807"`
	FranchiseID *uint64     `json:"franchise_id" validate:"omitempty,max=9223372036854775807" update:"omitempty,max=9223372036854775807"`
	Title       *string     `json:"title" validate:"required,max=50" update:"omitempty,max=50"`
	Episodes    *int        `json:"episodes" validate:"omitempty,min=1" update:"omitempty,min=1"`
	IsSeries    *bool       `json:"is_series"`
	UploadDate  *model.Date `json:"upload_date"`
	Score       *float64    `json:"score"`
	Duration    *float64    `json:"duration" validate:"required,min=0" update:"omitempty,min=0"`
	OrderNumber *int        `json:"order_number"`
}

func (f VideoForm) Normalized() VideoForm {
	f.Title = nonBlank(f.Title)
	if f.UploadDate != nil && f.UploadDate.IsZero() {
		f.UploadDate = nil
	}
	return f
}

func (f VideoForm) Fields() repository.Fields {
	out := repository.Fields{}
	put(out, "owner_id", f.OwnerID)
	put(out, "franchise_id", f.FranchiseID)
	put(out, "title", f.Title)
	put(out, "episodes", f.Episodes)
	put(out, "is_series", f.IsSeries)
	put(out, "upload_date", f.UploadDate)
	put(out, "score", f.Score)
	put(out, "duration", f.Duration)
	put(out, "order_number", f.OrderNumber)
	return out
}

type FranchiseForm struct {
	Name *string `json:"name" validate:"required,max=30" update:"omitempty,max=30"`
}

func (f FranchiseForm) Normalized() FranchiseForm {
	f.Name = nonBlank(f.Name)
	return f
}

func (f FranchiseForm) Fields() repository.Fields {
	out := repository.Fields{}
	put(out, "name", f.Name)
	return out
}

type WatchlistForm struct {
	UserID     *uint64  `json:"user_id" validate:"required,max=9223372036854775807" update:"omitempty,max=9223372036854775807"`
	TargetID   *uint64  `json:"target_id" validate:"required,max=9223372036854775807" update:"omitempty,max=9223372036854775807"`
	TargetType *string  `json:"target_type" validate:"omitempty,max=10" update:"omitempty,max=10"`
	Score      *float64 `json:"score"`
	Episodes   *int     `json:"episodes" validate:"required,min=0" update:"omitempty,min=0"`
	Rewatches  *int     `json:"rewatches" validate:"omitempty,min=0" update:"omitempty,min=0"`
}

func (f WatchlistForm) Normalized() WatchlistForm {
	f.TargetType = nonBlank(f.TargetType)
	return f
}

func (f WatchlistForm) Fields() repository.Fields {
	out := repository.Fields{}
	put(out, "user_id", f.UserID)
	put(out, "target_id", f.TargetID)
	put(out, "target_type", f.TargetType)
	put(out, "score", f.Score)
	put(out, "episodes", f.Episodes)
	put(out, "rewatches", f.Rewatches)
	return out
}

func nonBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// put stores *v under key when v is non-nil.
func put[V any](f repository.Fields, key string, v *V) {
	if v != nil {
		f[key] = *v
	}
}
