package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sakif/datepoll/internal/model"
)

// seedUser registers a user, failing the test on error.
func seedUser(t *testing.T, db *DB, id, username string) {
	t.Helper()
	if err := db.Upsert(context.Background(), &model.User{ID: id, Username: username}); err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
}

func june(day int) model.Date {
	return model.NewDate(2025, time.June, day)
}

func TestVotes_EmptyForUnknownUser(t *testing.T) {
	db := newTestDB(t)

	dates, err := db.Votes(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Votes() error = %v", err)
	}
	if len(dates) != 0 {
		t.Errorf("Votes() for unknown user = %v, want empty", dates)
	}
}

func TestReplaceVotes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "42", "alice")

	if err := db.ReplaceVotes(ctx, "42", []model.Date{june(12), june(5)}); err != nil {
		t.Fatalf("ReplaceVotes() error = %v", err)
	}

	dates, err := db.Votes(ctx, "42")
	if err != nil {
		t.Fatalf("Votes() error = %v", err)
	}
	// Ascending regardless of insert order.
	want := []model.Date{june(5), june(12)}
	if len(dates) != 2 || dates[0] != want[0] || dates[1] != want[1] {
		t.Errorf("Votes() = %v, want %v", dates, want)
	}

	// Whole replacement: the old set is gone, not merged.
	if err := db.ReplaceVotes(ctx, "42", []model.Date{june(20)}); err != nil {
		t.Fatalf("second ReplaceVotes() error = %v", err)
	}
	dates, err = db.Votes(ctx, "42")
	if err != nil {
		t.Fatalf("Votes() error = %v", err)
	}
	if len(dates) != 1 || dates[0] != june(20) {
		t.Errorf("Votes() after replace = %v, want [2025-06-20]", dates)
	}
}

func TestReplaceVotes_ClearIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "42", "alice")

	if err := db.ReplaceVotes(ctx, "42", []model.Date{june(5)}); err != nil {
		t.Fatalf("ReplaceVotes() error = %v", err)
	}

	// Clearing twice yields the same empty result both times.
	for i := 0; i < 2; i++ {
		if err := db.ReplaceVotes(ctx, "42", nil); err != nil {
			t.Fatalf("clear #%d error = %v", i+1, err)
		}
		dates, err := db.Votes(ctx, "42")
		if err != nil {
			t.Fatalf("Votes() error = %v", err)
		}
		if len(dates) != 0 {
			t.Errorf("clear #%d left votes: %v", i+1, dates)
		}
	}
}

func TestReplaceVotes_NeverObservedPartially(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "42", "alice")

	oldSet := []model.Date{june(1), june(2), june(3)}
	newSet := []model.Date{june(10), june(11), june(12)}
	if err := db.ReplaceVotes(ctx, "42", oldSet); err != nil {
		t.Fatalf("seeding votes: %v", err)
	}

	// Hammer reads while a writer keeps swapping between the two sets.
	// Every read must see a complete set — all-old or all-new, never a mix.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			set := oldSet
			if i%2 == 0 {
				set = newSet
			}
			if err := db.ReplaceVotes(ctx, "42", set); err != nil {
				t.Errorf("ReplaceVotes() during swap: %v", err)
				break
			}
		}
		close(done)
	}()

	for {
		select {
		case <-done:
			wg.Wait()
			return
		default:
		}

		dates, err := db.Votes(ctx, "42")
		if err != nil {
			t.Fatalf("Votes() during swap: %v", err)
		}
		if len(dates) != 3 {
			t.Fatalf("observed partial set of %d votes: %v", len(dates), dates)
		}
		if dates[0] != oldSet[0] && dates[0] != newSet[0] {
			t.Fatalf("observed mixed set: %v", dates)
		}
	}
}

func TestToggleVote(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "42", "alice")

	// First toggle adds.
	dates, err := db.ToggleVote(ctx, "42", june(5))
	if err != nil {
		t.Fatalf("ToggleVote() error = %v", err)
	}
	if len(dates) != 1 || dates[0] != june(5) {
		t.Errorf("after add, Votes = %v, want [2025-06-05]", dates)
	}

	// Second toggle of the same date removes — two consecutive toggles
	// restore the original selection.
	dates, err = db.ToggleVote(ctx, "42", june(5))
	if err != nil {
		t.Fatalf("ToggleVote() error = %v", err)
	}
	if len(dates) != 0 {
		t.Errorf("after remove, Votes = %v, want empty", dates)
	}
}

func TestToggleVote_ReturnsSortedSet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "42", "alice")

	if _, err := db.ToggleVote(ctx, "42", june(20)); err != nil {
		t.Fatalf("ToggleVote() error = %v", err)
	}
	dates, err := db.ToggleVote(ctx, "42", june(3))
	if err != nil {
		t.Fatalf("ToggleVote() error = %v", err)
	}

	if len(dates) != 2 || dates[0] != june(3) || dates[1] != june(20) {
		t.Errorf("ToggleVote() = %v, want ascending [2025-06-03 2025-06-20]", dates)
	}
}

func TestListAll_LeftJoin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "1", "alice")
	seedUser(t, db, "2", "bob")

	if err := db.ReplaceVotes(ctx, "1", []model.Date{june(5), june(12)}); err != nil {
		t.Fatalf("ReplaceVotes() error = %v", err)
	}

	rows, err := db.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}

	// alice twice (one row per vote), bob once with a NULL date.
	if len(rows) != 3 {
		t.Fatalf("ListAll() returned %d rows, want 3: %+v", len(rows), rows)
	}
	if rows[0].UserID != "1" || rows[0].Date == nil || *rows[0].Date != june(5) {
		t.Errorf("rows[0] = %+v, want alice/2025-06-05", rows[0])
	}
	if rows[1].UserID != "1" || rows[1].Date == nil || *rows[1].Date != june(12) {
		t.Errorf("rows[1] = %+v, want alice/2025-06-12", rows[1])
	}
	if rows[2].UserID != "2" || rows[2].Username != "bob" || rows[2].Date != nil {
		t.Errorf("rows[2] = %+v, want bob with nil date", rows[2])
	}
}

func TestCountByDate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "1", "alice")
	seedUser(t, db, "2", "bob")
	seedUser(t, db, "3", "carol")

	if err := db.ReplaceVotes(ctx, "1", []model.Date{june(5), june(12)}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceVotes(ctx, "2", []model.Date{june(12)}); err != nil {
		t.Fatal(err)
	}
	// carol doesn't vote — her absence must not produce a zero-count row.

	counts, err := db.CountByDate(ctx)
	if err != nil {
		t.Fatalf("CountByDate() error = %v", err)
	}

	want := []model.DateCount{
		{Date: june(5), Count: 1},
		{Date: june(12), Count: 2},
	}
	if len(counts) != len(want) {
		t.Fatalf("CountByDate() = %+v, want %+v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("counts[%d] = %+v, want %+v", i, counts[i], want[i])
		}
	}
}

func TestVotedUserIDs_PartitionsUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "1", "alice")
	seedUser(t, db, "2", "bob")
	seedUser(t, db, "3", "carol")

	if err := db.ReplaceVotes(ctx, "1", []model.Date{june(5)}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceVotes(ctx, "3", []model.Date{june(7)}); err != nil {
		t.Fatal(err)
	}

	voted, err := db.VotedUserIDs(ctx)
	if err != nil {
		t.Fatalf("VotedUserIDs() error = %v", err)
	}
	votedSet := make(map[string]bool)
	for _, id := range voted {
		votedSet[id] = true
	}

	rows, err := db.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	allSet := make(map[string]bool)
	for _, row := range rows {
		allSet[row.UserID] = true
	}

	// voted ∪ non-voted = all known users, and the two sides are disjoint.
	if !votedSet["1"] || votedSet["2"] || !votedSet["3"] {
		t.Errorf("VotedUserIDs() = %v, want exactly {1, 3}", voted)
	}
	for id := range votedSet {
		if !allSet[id] {
			t.Errorf("voted user %s is not a known user", id)
		}
	}
	if len(allSet) != 3 {
		t.Errorf("known users = %d, want 3", len(allSet))
	}
}
