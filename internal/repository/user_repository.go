package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/storehouse/internal/model"
	"github.com/iliyamo/storehouse/internal/utils"
)

// UserRepo stores users. Passwords are hashed and emails normalized before
// they are written; every insert receives a fresh public id.
type UserRepo struct {
	*Table[model.User]
}

// NewUserRepo returns a user repository hashing passwords at bcryptCost.
func NewUserRepo(db *sql.DB, bcryptCost int) *UserRepo {
	t := newTable(db, "users", []string{"id", "public_id", "name", "password", "email"}, scanUser)
	t.beforeInsert = func(f Fields) error {
		f["public_id"] = uuid.NewString()
		return prepareUser(f, bcryptCost)
	}
	t.beforeUpdate = func(f Fields) error {
		delete(f, "public_id")
		return prepareUser(f, bcryptCost)
	}
	return &UserRepo{Table: t}
}

func scanUser(s rowScanner, u *model.User) error {
	return s.Scan(&u.ID, &u.PublicID, &u.Name, &u.Password, &u.Email)
}

func prepareUser(f Fields, cost int) error {
	if v, ok := f["email"].(string); ok {
		f["email"] = NormalizeEmail(v)
	}
	if v, ok := f["password"].(string); ok {
		hash, err := utils.HashPassword(v, cost)
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return ErrPasswordTooLong
		}
		if err != nil {
			return err
		}
		f["password"] = hash
	}
	return nil
}

// NormalizeEmail lower-cases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := r.fetchOne(ctx, sq.Eq{"email": NormalizeEmail(email)})
	if err != nil {
		return u, fmt.Errorf("user by email: %w", err)
	}
	return u, nil
}

// GetByPublicID fetches the user a token subject refers to.
func (r *UserRepo) GetByPublicID(ctx context.Context, publicID string) (model.User, error) {
	u, err := r.fetchOne(ctx, sq.Eq{"public_id": publicID})
	if err != nil {
		return u, fmt.Errorf("user by public id: %w", err)
	}
	return u, nil
}
