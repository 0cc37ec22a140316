package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/datepoll/internal/apperror"
	"github.com/sakif/datepoll/internal/model"
	"github.com/sakif/datepoll/internal/repository"
)

// compile-time check that *DB implements repository.VoteRepository
var _ repository.VoteRepository = (*DB)(nil)

// Votes returns the user's current selection, ascending by date.
// An unknown user (or one with no rows) gets an empty slice — the store does
// not distinguish "never voted" from "voted and cleared everything".
func (db *DB) Votes(ctx context.Context, userID string) ([]model.Date, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT vote_date FROM votes WHERE user_id = ? ORDER BY vote_date`,
		userID,
	)
	if err != nil {
		return nil, apperror.Unavailable("vote read",
			fmt.Errorf("sqlite: reading votes for %s: %w", userID, err))
	}
	defer rows.Close()

	return scanDates(rows, userID)
}

// ReplaceVotes wholly replaces the user's selection: delete-all then
// insert-all, in ONE transaction.
//
// THE ONE MANDATORY TRANSACTIONAL BOUNDARY:
// Concurrent operations for the same user serialize on this transaction, so
// no reader ever observes a half-replaced set — it sees all-old or all-new,
// never a mix. SQLite gives us this for free as long as both statements share
// a transaction; without it, a crash between DELETE and INSERT would eat the
// user's votes.
func (db *DB) ReplaceVotes(ctx context.Context, userID string, dates []model.Date) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Unavailable("vote replace",
			fmt.Errorf("sqlite: beginning vote replace for %s: %w", userID, err))
	}
	// Rollback after a successful Commit is a harmless no-op.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM votes WHERE user_id = ?`, userID,
	); err != nil {
		return apperror.Unavailable("vote replace",
			fmt.Errorf("sqlite: clearing votes for %s: %w", userID, err))
	}

	for _, d := range dates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO votes (user_id, vote_date) VALUES (?, ?)`,
			userID, d.String(),
		); err != nil {
			return apperror.Unavailable("vote replace",
				fmt.Errorf("sqlite: inserting vote %s for %s: %w", d, userID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperror.Unavailable("vote replace",
			fmt.Errorf("sqlite: committing vote replace for %s: %w", userID, err))
	}
	return nil
}

// ToggleVote flips the membership of one date in the user's selection and
// returns the resulting set, ascending.
//
// READ-MODIFY-WRITE IN ONE TRANSACTION:
// The flip is keyed off the STORED state, not a caller-supplied "was it
// selected" flag. A DELETE that affects no rows means the date wasn't
// selected, so we INSERT it; otherwise the DELETE already removed it. Both
// the flip and the read-back of the new set happen inside one transaction,
// so rapid double-clicks can't desync the stored set from what we return.
func (db *DB) ToggleVote(ctx context.Context, userID string, date model.Date) ([]model.Date, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperror.Unavailable("vote toggle",
			fmt.Errorf("sqlite: beginning vote toggle for %s: %w", userID, err))
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM votes WHERE user_id = ? AND vote_date = ?`,
		userID, date.String(),
	)
	if err != nil {
		return nil, apperror.Unavailable("vote toggle",
			fmt.Errorf("sqlite: removing vote %s for %s: %w", date, userID, err))
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return nil, apperror.Unavailable("vote toggle",
			fmt.Errorf("sqlite: checking rows affected: %w", err))
	}

	if removed == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO votes (user_id, vote_date) VALUES (?, ?)`,
			userID, date.String(),
		); err != nil {
			return nil, apperror.Unavailable("vote toggle",
				fmt.Errorf("sqlite: adding vote %s for %s: %w", date, userID, err))
		}
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT vote_date FROM votes WHERE user_id = ? ORDER BY vote_date`,
		userID,
	)
	if err != nil {
		return nil, apperror.Unavailable("vote toggle",
			fmt.Errorf("sqlite: re-reading votes for %s: %w", userID, err))
	}
	dates, err := scanDates(rows, userID)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Unavailable("vote toggle",
			fmt.Errorf("sqlite: committing vote toggle for %s: %w", userID, err))
	}
	return dates, nil
}

// ListAll returns the left-outer-join view of users and votes.
//
// LEFT JOIN, NOT INNER JOIN:
// Every known user must appear at least once even with zero votes — that row
// carries a NULL vote_date, scanned into sql.NullString and surfaced as a nil
// *Date. The coordinator's per-user report and the non-voter list both hang
// off this guarantee.
//
// Ordering: users in first-seen order (rowid of the users table), then each
// user's dates ascending.
func (db *DB) ListAll(ctx context.Context) ([]model.VoteRow, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.user_id, u.username, v.vote_date
		 FROM users u
		 LEFT JOIN votes v ON u.user_id = v.user_id
		 ORDER BY u.rowid, v.vote_date`,
	)
	if err != nil {
		return nil, apperror.Unavailable("vote listing",
			fmt.Errorf("sqlite: listing all votes: %w", err))
	}
	defer rows.Close()

	var result []model.VoteRow
	for rows.Next() {
		var row model.VoteRow
		var voteDate sql.NullString
		if err := rows.Scan(&row.UserID, &row.Username, &voteDate); err != nil {
			return nil, apperror.Unavailable("vote listing",
				fmt.Errorf("sqlite: scanning vote row: %w", err))
		}
		if voteDate.Valid {
			d, err := model.ParseDate(voteDate.String)
			if err != nil {
				return nil, fmt.Errorf("sqlite: corrupt vote_date %q: %w", voteDate.String, err)
			}
			row.Date = &d
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Unavailable("vote listing",
			fmt.Errorf("sqlite: iterating vote rows: %w", err))
	}

	return result, nil
}

// CountByDate tallies votes per date, ascending, omitting dates nobody picked.
// ISO date strings sort lexicographically in chronological order, so the
// ORDER BY on the TEXT column is already the ordering the report needs.
func (db *DB) CountByDate(ctx context.Context) ([]model.DateCount, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT vote_date, COUNT(user_id)
		 FROM votes
		 GROUP BY vote_date
		 ORDER BY vote_date`,
	)
	if err != nil {
		return nil, apperror.Unavailable("vote tally",
			fmt.Errorf("sqlite: counting votes by date: %w", err))
	}
	defer rows.Close()

	var counts []model.DateCount
	for rows.Next() {
		var raw string
		var c model.DateCount
		if err := rows.Scan(&raw, &c.Count); err != nil {
			return nil, apperror.Unavailable("vote tally",
				fmt.Errorf("sqlite: scanning tally row: %w", err))
		}
		d, err := model.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("sqlite: corrupt vote_date %q: %w", raw, err)
		}
		c.Date = d
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Unavailable("vote tally",
			fmt.Errorf("sqlite: iterating tally rows: %w", err))
	}

	return counts, nil
}

// VotedUserIDs returns the distinct ids of users with at least one vote row.
func (db *DB) VotedUserIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM votes`,
	)
	if err != nil {
		return nil, apperror.Unavailable("voter listing",
			fmt.Errorf("sqlite: listing voted users: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperror.Unavailable("voter listing",
				fmt.Errorf("sqlite: scanning voted user id: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Unavailable("voter listing",
			fmt.Errorf("sqlite: iterating voted user ids: %w", err))
	}

	return ids, nil
}

// scanDates reads a single-column result set of ISO date strings.
// The caller owns rows and must close them.
func scanDates(rows *sql.Rows, userID string) ([]model.Date, error) {
	dates := []model.Date{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, apperror.Unavailable("vote read",
				fmt.Errorf("sqlite: scanning vote for %s: %w", userID, err))
		}
		d, err := model.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("sqlite: corrupt vote_date %q: %w", raw, err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Unavailable("vote read",
			fmt.Errorf("sqlite: iterating votes for %s: %w", userID, err))
	}
	return dates, nil
}
