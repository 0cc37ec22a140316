package repository

import (
	"context"

	"github.com/sakif/datepoll/internal/model"
)

// UserRepository persists poll participants.
//
// Upsert is insert-or-ignore: a user is inserted only if absent, and an
// existing row is never overwritten (in particular, a later interaction with
// a blank username must not erase a stored one).
type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// VoteRepository persists per-user vote rows, keyed (user_id, vote_date)
// with no duplicate pairs.
//
// ReplaceVotes and ToggleVote are the two mutation paths, and each one runs
// as a single transaction — that per-user atomicity is the only transactional
// boundary the engine relies on. ToggleVote flips membership against the
// stored state (read-modify-write inside the transaction) and returns the
// resulting set, so callers never supply a "was it selected" flag.
type VoteRepository interface {
	Votes(ctx context.Context, userID string) ([]model.Date, error)
	ReplaceVotes(ctx context.Context, userID string, dates []model.Date) error
	ToggleVote(ctx context.Context, userID string, date model.Date) ([]model.Date, error)

	// ListAll is the left-outer-join view: every known user appears at least
	// once (Date nil), and once per vote otherwise, in first-seen user order.
	ListAll(ctx context.Context) ([]model.VoteRow, error)
	// CountByDate returns tallies for dates with at least one vote, ascending.
	CountByDate(ctx context.Context) ([]model.DateCount, error)
	// VotedUserIDs returns the ids of users with at least one vote row.
	VotedUserIDs(ctx context.Context) ([]string, error)
}
