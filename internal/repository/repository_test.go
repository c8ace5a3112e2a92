package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/storehouse/internal/database"
	"github.com/iliyamo/storehouse/internal/model"
	"github.com/iliyamo/storehouse/internal/utils"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.EnsureSchema(context.Background(), db, database.DriverSQLite); err != nil {
		db.Close()
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, users *UserRepo, email string) uint64 {
	t.Helper()
	id, err := users.Insert(context.Background(), Fields{"name": "ann", "email": email, "password": "pw"})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func TestUserRepo(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepo(db, bcrypt.MinCost)
	ctx := context.Background()

	t.Run("insert hashes password and assigns public id", func(t *testing.T) {
		id, err := users.Insert(ctx, Fields{"name": "ann", "email": "  Ann@X.com ", "password": "pw"})
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		u, err := users.Fetch(ctx, id)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if u.Email != "ann@x.com" {
			t.Errorf("email = %q, want normalized", u.Email)
		}
		if u.Password == "pw" || !utils.VerifyPassword(u.Password, "pw") {
			t.Errorf("password not stored as bcrypt hash: %q", u.Password)
		}
		if u.PublicID == "" {
			t.Error("public id not assigned")
		}
		byEmail, err := users.GetByEmail(ctx, "ANN@x.com")
		if err != nil || byEmail.ID != id {
			t.Errorf("GetByEmail() = %+v, %v", byEmail, err)
		}
		byPub, err := users.GetByPublicID(ctx, u.PublicID)
		if err != nil || byPub.ID != id {
			t.Errorf("GetByPublicID() = %+v, %v", byPub, err)
		}
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		seedUser(t, users, "dup@x.com")
		before, _ := users.FetchAll(ctx)
		_, err := users.Insert(ctx, Fields{"name": "bob", "email": "DUP@x.com", "password": "pw2"})
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("Insert() error = %v, want ErrDuplicate", err)
		}
		after, _ := users.FetchAll(ctx)
		if len(after) != len(before) {
			t.Errorf("row count changed from %d to %d", len(before), len(after))
		}
	})

	t.Run("missing field", func(t *testing.T) {
		_, err := users.Insert(ctx, Fields{"name": "nobody", "password": "pw"})
		if !errors.Is(err, ErrMissingField) {
			t.Errorf("Insert() error = %v, want ErrMissingField", err)
		}
	})

	t.Run("update rehashes password and keeps public id", func(t *testing.T) {
		id := seedUser(t, users, "upd@x.com")
		orig, _ := users.Fetch(ctx, id)
		if err := users.Update(ctx, id, Fields{"password": "new", "public_id": "hijack"}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		u, _ := users.Fetch(ctx, id)
		if !utils.VerifyPassword(u.Password, "new") {
			t.Error("password not rehashed")
		}
		if u.PublicID != orig.PublicID {
			t.Errorf("public id changed to %q", u.PublicID)
		}
	})

	t.Run("password over bcrypt limit", func(t *testing.T) {
		long := strings.Repeat("p", 73)
		if _, err := users.Insert(ctx, Fields{"name": "long", "email": "long@x.com", "password": long}); !errors.Is(err, ErrPasswordTooLong) {
			t.Errorf("Insert() error = %v, want ErrPasswordTooLong", err)
		}
		id := seedUser(t, users, "long2@x.com")
		if err := users.Update(ctx, id, Fields{"password": long}); !errors.Is(err, ErrPasswordTooLong) {
			t.Errorf("Update() error = %v, want ErrPasswordTooLong", err)
		}
	})

	t.Run("unknown lookups", func(t *testing.T) {
		if _, err := users.GetByEmail(ctx, "ghost@x.com"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByEmail() error = %v", err)
		}
		if _, err := users.GetByPublicID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByPublicID() error = %v", err)
		}
	})
}

func TestTableLifecycle(t *testing.T) {
	db := setupTestDB(t)
	franchises := NewFranchiseRepo(db)
	ctx := context.Background()

	all, err := franchises.FetchAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if all == nil || len(all) != 0 {
		t.Fatalf("FetchAll() on empty table = %#v, want empty non-nil", all)
	}

	id, err := franchises.Insert(ctx, Fields{"name": "saga"})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	second, err := franchises.Insert(ctx, Fields{"name": "epic"})
	if err != nil {
		t.Fatal(err)
	}

	if err := franchises.Update(ctx, id, Fields{}); err != nil {
		t.Errorf("empty Update() error = %v", err)
	}
	f, _ := franchises.Fetch(ctx, id)
	if f.Name != "saga" {
		t.Errorf("empty update changed name to %q", f.Name)
	}

	if err := franchises.Update(ctx, id, Fields{"name": "saga 2"}); err != nil {
		t.Fatal(err)
	}
	if f, _ = franchises.Fetch(ctx, id); f.Name != "saga 2" {
		t.Errorf("name = %q after update", f.Name)
	}

	if err := franchises.Update(ctx, id, Fields{"name": "saga 2"}); err != nil {
		t.Errorf("Update() with unchanged values error = %v", err)
	}

	if err := franchises.Update(ctx, 999, Fields{"name": "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
	if err := franchises.Update(ctx, 999, Fields{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty Update(missing) error = %v, want ErrNotFound", err)
	}
	if err := franchises.Update(ctx, id, Fields{"bogus": 1}); err == nil {
		t.Error("Update() accepted an unknown column")
	}

	all, _ = franchises.FetchAll(ctx)
	if len(all) != 2 || all[0].ID != id || all[1].ID != second {
		t.Errorf("FetchAll() order = %+v", all)
	}

	for i := 0; i < 2; i++ {
		if err := franchises.Delete(ctx, id); err != nil {
			t.Fatalf("Delete() call %d error = %v", i+1, err)
		}
	}
	if _, err := franchises.Fetch(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch() after delete error = %v", err)
	}
	if err := franchises.Update(ctx, id, Fields{"name": "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := franchises.Fetch(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Error("Update() after delete resurrected the row")
	}
}

func TestVideoDefaultsAndReferences(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepo(db, bcrypt.MinCost)
	videos := NewVideoRepo(db)
	ctx := context.Background()
	owner := seedUser(t, users, "owner@x.com")

	id, err := videos.Insert(ctx, Fields{"owner_id": owner, "title": "pilot", "duration": 22.5})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	v, err := videos.Fetch(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if v.Episodes != 1 || v.IsSeries || v.Score != 0 {
		t.Errorf("defaults not applied: %+v", v)
	}
	if v.UploadDate.String() != model.Today().String() {
		t.Errorf("upload_date = %s, want today", v.UploadDate)
	}
	if v.FranchiseID != nil || v.OrderNumber != nil {
		t.Errorf("optional fields should be nil: %+v", v)
	}

	_, err = videos.Insert(ctx, Fields{"owner_id": uint64(404), "title": "orphan", "duration": 1.0})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("Insert() with dangling owner error = %v, want ErrInvalidReference", err)
	}
	if err := videos.Update(ctx, id, Fields{"franchise_id": uint64(77)}); !errors.Is(err, ErrInvalidReference) {
		t.Errorf("Update() with dangling franchise error = %v", err)
	}
}

func TestCascades(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepo(db, bcrypt.MinCost)
	videos := NewVideoRepo(db)
	franchises := NewFranchiseRepo(db)
	watchlists := NewWatchlistRepo(db)
	ctx := context.Background()

	owner := seedUser(t, users, "owner@x.com")
	viewer := seedUser(t, users, "viewer@x.com")
	fr, err := franchises.Insert(ctx, Fields{"name": "saga"})
	if err != nil {
		t.Fatal(err)
	}
	vid, err := videos.Insert(ctx, Fields{
		"owner_id": owner, "franchise_id": fr, "title": "ep1", "duration": 24.0,
		"upload_date": model.NewDate(model.Today().AddDate(0, 0, -3)),
	})
	if err != nil {
		t.Fatal(err)
	}
	wl, err := watchlists.Insert(ctx, Fields{"user_id": viewer, "target_id": vid, "episodes": 2})
	if err != nil {
		t.Fatal(err)
	}
	w, _ := watchlists.Fetch(ctx, wl)
	if w.Rewatches != 0 || w.Score != nil || w.TargetType != nil {
		t.Errorf("watchlist defaults: %+v", w)
	}

	if err := franchises.Delete(ctx, fr); err != nil {
		t.Fatal(err)
	}
	v, err := videos.Fetch(ctx, vid)
	if err != nil {
		t.Fatalf("video gone after franchise delete: %v", err)
	}
	if v.FranchiseID != nil {
		t.Errorf("franchise_id = %d, want NULL", *v.FranchiseID)
	}

	if err := users.Delete(ctx, owner); err != nil {
		t.Fatal(err)
	}
	if _, err := videos.Fetch(ctx, vid); !errors.Is(err, ErrNotFound) {
		t.Errorf("video survived owner delete: %v", err)
	}
	if _, err := watchlists.Fetch(ctx, wl); !errors.Is(err, ErrNotFound) {
		t.Errorf("watchlist survived video delete: %v", err)
	}
}

func TestClassifyPassesThroughUnknownErrors(t *testing.T) {
	base := errors.New("boom")
	if got := classify(base); got != base {
		t.Errorf("classify() = %v", got)
	}
	if classify(nil) != nil {
		t.Error("classify(nil) != nil")
	}
}
