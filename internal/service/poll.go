// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// PollService is the availability-poll engine: it knows which dates are up
// for a vote this month, how to flip a date in a user's selection, and what
// "finalizing" a selection means. It has zero knowledge of HTTP — the same
// engine could sit behind a chat bot, a CLI, or the JSON API in handler/.
//
// DEPENDENCY INJECTION:
// The service takes repository interfaces, not *sqlite.DB. Tests inject
// in-memory mocks; the server injects the SQLite store; nothing here changes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/datepoll/internal/apperror"
	"github.com/sakif/datepoll/internal/model"
	"github.com/sakif/datepoll/internal/notify"
	"github.com/sakif/datepoll/internal/repository"
)

// PageSize is how many candidate dates one page shows.
// Seven keeps a month at four to five pages and matches a week per page.
const PageSize = 7

// PollService is the poll engine. One instance is shared by every session;
// it holds no per-user state — the page index travels with each request, and
// selections live in the store.
//
// now is injectable so tests can pin the "current month"; the zero value
// falls back to time.Now.
type PollService struct {
	users    repository.UserRepository
	votes    repository.VoteRepository
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewPollService creates a PollService.
func NewPollService(
	users repository.UserRepository,
	votes repository.VoteRepository,
	notifier notify.Notifier,
	logger *slog.Logger,
) *PollService {
	return &PollService{
		users:    users,
		votes:    votes,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the engine's clock. Tests use this to pin the month the
// candidate dates are computed from.
func (s *PollService) WithClock(now func() time.Time) *PollService {
	s.now = now
	return s
}

// CandidateDates returns every day of today's month, ascending, 1 through the
// last day. Pure function of the calendar — recomputed on every listing and
// never persisted, so the poll rolls over naturally when the month does.
func (s *PollService) CandidateDates(today time.Time) []model.Date {
	return model.MonthDates(today)
}

// Selection returns the user's current selection, ascending.
// Empty for an unknown user or one who has voted nothing.
func (s *PollService) Selection(ctx context.Context, userID string) ([]model.Date, error) {
	dates, err := s.votes.Votes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading selection: %w", err)
	}
	return dates, nil
}

// Start registers the user (insert-or-ignore) and returns page 0 of the
// candidate dates with their current selection marked. This backs the
// start/vote command — safe to call any number of times.
func (s *PollService) Start(ctx context.Context, userID, username string) (*model.PageView, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user id is required")
	}

	user := &model.User{ID: userID, Username: username}
	if err := s.users.Upsert(ctx, user); err != nil {
		s.logger.Error("failed to upsert user",
			slog.String("userId", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("registering user: %w", err)
	}

	selected, err := s.Selection(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("vote session started",
		slog.String("userId", userID),
		slog.String("username", user.Username),
		slog.Int("selected", len(selected)),
	)

	view := s.BuildPage(s.CandidateDates(s.now()), selected, 0)
	return &view, nil
}

// Toggle flips one date in the user's selection and re-renders the same page.
//
// NO CALLER-SUPPLIED STATE:
// The caller sends only the date — whether it is currently selected is read
// from the store inside the same transaction that mutates it (ToggleVote).
// Replaying a toggle under a retry therefore flips the date again instead of
// desyncing the stored set from the rendered checkmark.
//
// A date outside the current month is a tampered or stale payload and is
// rejected with a validation error, never a crash.
func (s *PollService) Toggle(ctx context.Context, userID string, date model.Date, page int) (*model.PageView, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user id is required")
	}

	candidates := s.CandidateDates(s.now())
	if !containsDate(candidates, date) {
		return nil, apperror.ValidationFailed("date",
			fmt.Sprintf("date %s is not a candidate this month", date))
	}

	selected, err := s.votes.ToggleVote(ctx, userID, date)
	if err != nil {
		s.logger.Error("failed to toggle vote",
			slog.String("userId", userID),
			slog.String("date", date.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("toggling date: %w", err)
	}

	s.logger.Info("date toggled",
		slog.String("userId", userID),
		slog.String("date", date.String()),
		slog.Bool("selected", containsDate(selected, date)),
		slog.Int("total", len(selected)),
	)

	view := s.BuildPage(candidates, selected, page)
	return &view, nil
}

// Page re-renders the requested page with the user's current selection.
func (s *PollService) Page(ctx context.Context, userID string, page int) (*model.PageView, error) {
	selected, err := s.Selection(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := s.BuildPage(s.CandidateDates(s.now()), selected, page)
	return &view, nil
}

// Reset clears the user's entire selection and returns page 0.
// Always succeeds — resetting an already-empty selection is a no-op, and
// doing it twice yields the same empty result both times.
func (s *PollService) Reset(ctx context.Context, userID string) (*model.PageView, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user id is required")
	}

	if err := s.votes.ReplaceVotes(ctx, userID, nil); err != nil {
		s.logger.Error("failed to reset selection",
			slog.String("userId", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("resetting selection: %w", err)
	}

	s.logger.Info("selection reset", slog.String("userId", userID))

	view := s.BuildPage(s.CandidateDates(s.now()), nil, 0)
	return &view, nil
}

// Finalize confirms the user's current selection.
//
// Non-empty selection → {confirmed, sorted dates}, and the coordinator is
// notified. Empty selection → {empty}; not an error, just a different outcome
// with its own user-facing message.
//
// BEST-EFFORT NOTIFICATION:
// The notifier fires once per Confirmed call — re-finalizing re-notifies, by
// design, so the coordinator sees updated selections. Its failure is logged
// and swallowed: the confirmation already happened in the store and must
// stand even when the coordinator is unreachable.
func (s *PollService) Finalize(ctx context.Context, userID string) (*model.FinalizeResult, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user id is required")
	}

	selected, err := s.Selection(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(selected) == 0 {
		s.logger.Info("finalize with empty selection", slog.String("userId", userID))
		return &model.FinalizeResult{Status: model.FinalizeEmpty}, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		// The user row may be missing if finalize races a fresh identity;
		// notify with what we know rather than failing the confirmation.
		user = &model.User{ID: userID}
	}

	if err := s.notifier.SelectionConfirmed(ctx, *user, selected); err != nil {
		s.logger.Error("coordinator notification failed",
			slog.String("userId", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("selection confirmed",
		slog.String("userId", userID),
		slog.Int("dates", len(selected)),
	)

	return &model.FinalizeResult{Status: model.FinalizeConfirmed, Dates: selected}, nil
}

// BuildPage slices the candidate dates into one page view.
//
// page is 0-based. Out-of-range indices — negative, or past the last page —
// are clamped rather than rejected: a tampered or stale page number renders
// the nearest valid page instead of crashing or leaking a nonsense slice.
// The returned view carries the page index actually rendered.
func (s *PollService) BuildPage(candidates []model.Date, selected []model.Date, page int) model.PageView {
	lastPage := 0
	if len(candidates) > 0 {
		lastPage = (len(candidates) - 1) / PageSize
	}
	if page < 0 {
		page = 0
	}
	if page > lastPage {
		page = lastPage
	}

	start := page * PageSize
	end := start + PageSize
	if end > len(candidates) {
		end = len(candidates)
	}

	options := make([]model.DateOption, 0, end-start)
	for _, d := range candidates[start:end] {
		options = append(options, model.DateOption{
			Date:     d,
			Selected: containsDate(selected, d),
		})
	}

	return model.PageView{
		Dates:   options,
		Page:    page,
		HasPrev: page > 0,
		HasNext: end < len(candidates),
	}
}

// containsDate reports set membership in a small sorted slice.
// A month holds at most 31 dates, so a linear scan beats building a map.
func containsDate(dates []model.Date, d model.Date) bool {
	for _, have := range dates {
		if have == d {
			return true
		}
	}
	return false
}
