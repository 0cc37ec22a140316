package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/datepoll/internal/auth"
	"github.com/sakif/datepoll/internal/model"
	"github.com/sakif/datepoll/internal/repository/sqlite"
	"github.com/sakif/datepoll/internal/service"
)

const coordinatorID = "coord-1"

type reportFixture struct {
	router *chi.Mux
	tokens *auth.TokenService
	db     *sqlite.DB
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tokens, err := auth.NewTokenService("test-secret-key-for-tests-only")
	require.NoError(t, err)

	keyHash, err := auth.HashKey("report-key")
	require.NoError(t, err)
	gate := auth.NewCoordinatorGate(coordinatorID, keyHash, tokens, logger)

	h := NewReportHandler(service.NewReportService(db, logger), logger)

	r := chi.NewRouter()
	r.Route("/api/reports", func(r chi.Router) {
		r.Use(gate.Require)
		r.Get("/votes", h.HandleVotes)
		r.Get("/results", h.HandleResults)
		r.Get("/results.csv", h.HandleResultsCSV)
		r.Get("/not-voted", h.HandleNotVoted)
	})

	return &reportFixture{router: r, tokens: tokens, db: db}
}

// seed registers alice (2 votes), bob (1 vote), carol (none).
func (f *reportFixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []struct{ id, name string }{
		{"42", "alice"}, {"7", "bob"}, {"99", "carol"},
	} {
		require.NoError(t, f.db.Upsert(ctx, &model.User{ID: u.id, Username: u.name}))
	}
	require.NoError(t, f.db.ReplaceVotes(ctx, "42", []model.Date{
		model.NewDate(2025, time.June, 5),
		model.NewDate(2025, time.June, 12),
	}))
	require.NoError(t, f.db.ReplaceVotes(ctx, "7", []model.Date{
		model.NewDate(2025, time.June, 5),
	}))
}

// asCoordinator sends a request bearing the coordinator's token.
func (f *reportFixture) asCoordinator(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := f.tokens.Generate(auth.Identity{UserID: coordinatorID, Username: "boss"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleVotes(t *testing.T) {
	f := newReportFixture(t)
	f.seed(t)

	rec := f.asCoordinator(t, "/api/reports/votes")
	require.Equal(t, http.StatusOK, rec.Code)

	var reports []model.UserReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports, 3)

	assert.Equal(t, "alice", reports[0].Username)
	assert.True(t, reports[0].Voted)
	assert.Len(t, reports[0].Dates, 2)

	assert.Equal(t, "carol", reports[2].Username)
	assert.False(t, reports[2].Voted)
	assert.Empty(t, reports[2].Dates)
}

func TestHandleResults(t *testing.T) {
	f := newReportFixture(t)
	f.seed(t)

	rec := f.asCoordinator(t, "/api/reports/results")
	require.Equal(t, http.StatusOK, rec.Code)

	var counts []model.DateCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	require.Len(t, counts, 2)
	assert.Equal(t, "2025-06-05", counts[0].Date.String())
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, "2025-06-12", counts[1].Date.String())
	assert.Equal(t, 1, counts[1].Count)
}

func TestHandleResults_EmptyIsArray(t *testing.T) {
	f := newReportFixture(t)

	rec := f.asCoordinator(t, "/api/reports/results")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandleResultsCSV(t *testing.T) {
	f := newReportFixture(t)
	f.seed(t)

	rec := f.asCoordinator(t, "/api/reports/results.csv")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "votes_results.csv")

	want := "Date,VoteCount,FullName,Username,UserID\n" +
		"2025-06-05,2,,alice,42\n" +
		"2025-06-05,2,,bob,7\n" +
		"2025-06-12,1,,alice,42\n"
	assert.Equal(t, want, rec.Body.String())
}

func TestHandleNotVoted(t *testing.T) {
	f := newReportFixture(t)
	f.seed(t)

	rec := f.asCoordinator(t, "/api/reports/not-voted")
	require.Equal(t, http.StatusOK, rec.Code)

	var users []model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "99", users[0].ID)
	assert.Equal(t, "carol", users[0].Username)
}

func TestReports_SharedKeyAccess(t *testing.T) {
	f := newReportFixture(t)
	f.seed(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/results", nil)
	req.Header.Set("X-Coordinator-Key", "report-key")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReports_RefusedSilently(t *testing.T) {
	f := newReportFixture(t)
	f.seed(t)

	voterToken, err := f.tokens.Generate(auth.Identity{UserID: "42", Username: "alice"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"anonymous", func(*http.Request) {}},
		{"ordinary voter token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+voterToken)
		}},
		{"wrong shared key", func(r *http.Request) {
			r.Header.Set("X-Coordinator-Key", "wrong")
		}},
	}

	for _, path := range []string{"/api/reports/votes", "/api/reports/results", "/api/reports/results.csv", "/api/reports/not-voted"} {
		for _, tt := range tests {
			t.Run(tt.name+" "+path, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodGet, path, nil)
				tt.setup(req)
				rec := httptest.NewRecorder()
				f.router.ServeHTTP(rec, req)

				// Same answer a nonexistent route gives.
				assert.Equal(t, http.StatusNotFound, rec.Code)
			})
		}
	}
}
