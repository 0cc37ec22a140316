package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sakif/datepoll/internal/apperror"
	"github.com/sakif/datepoll/internal/model"
)

// newTestDB creates a throwaway database in a per-test temp directory.
// t.TempDir() is removed automatically when the test finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestUserUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &model.User{ID: "42", Username: "alice"}
	if err := db.Upsert(ctx, user); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if user.CreatedAt.IsZero() {
		t.Error("Upsert() did not populate CreatedAt")
	}

	got, err := db.GetByID(ctx, "42")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, want %q", got.Username, "alice")
	}
}

func TestUserUpsert_InsertOrIgnore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Upsert(ctx, &model.User{ID: "42", Username: "alice"}); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}

	// A second sighting with a blank username must NOT erase the stored one.
	second := &model.User{ID: "42", Username: ""}
	if err := db.Upsert(ctx, second); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	if second.Username != "alice" {
		t.Errorf("Upsert overwrote stored username: got %q, want %q", second.Username, "alice")
	}

	// And a different non-blank username doesn't overwrite either.
	if err := db.Upsert(ctx, &model.User{ID: "42", Username: "impostor"}); err != nil {
		t.Fatalf("third Upsert() error = %v", err)
	}
	got, err := db.GetByID(ctx, "42")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("stored username = %q, want %q", got.Username, "alice")
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}
