package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/datepoll/internal/apperror"
	"github.com/sakif/datepoll/internal/model"
	"github.com/sakif/datepoll/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Upsert records a user on first sight.
//
// INSERT OR IGNORE semantics (NOT insert-or-update):
// If a row with this user_id already exists, the statement is a no-op — the
// stored username survives. This matters because chat transports sometimes
// deliver a blank username on later interactions, and "upsert on sight" must
// never erase a name we already captured.
//
// After the statement we read the row back so the caller's struct carries the
// canonical stored values (the original username for an existing user, the
// server-side created_at either way).
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (user_id, username, created_at)
		 VALUES (?, ?, ?)`,
		user.ID,
		user.Username,
		user.CreatedAt,
	)
	if err != nil {
		return apperror.Unavailable("user upsert",
			fmt.Errorf("sqlite: upserting user %s: %w", user.ID, err))
	}

	stored, err := db.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// GetByID retrieves a user by their opaque ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, username, created_at FROM users WHERE user_id = ?`,
		id,
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		// sql.ErrNoRows is a sentinel — database/sql doesn't wrap it,
		// so == is the correct check.
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, apperror.Unavailable("user lookup",
			fmt.Errorf("sqlite: getting user %s: %w", id, err))
	}

	return &u, nil
}
