// Package service — aggregation and reporting for the coordinator.
package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/sakif/datepoll/internal/model"
	"github.com/sakif/datepoll/internal/repository"
)

// ReportService derives the coordinator's views from stored state: per-user
// selections, per-date tallies, the non-voter list, and the CSV export.
// It only reads; every report is recomputed from the store on demand.
type ReportService struct {
	votes  repository.VoteRepository
	logger *slog.Logger
}

// NewReportService creates a ReportService.
func NewReportService(votes repository.VoteRepository, logger *slog.Logger) *ReportService {
	return &ReportService{votes: votes, logger: logger}
}

// PerUser groups the left-join listing by user, preserving first-seen order.
// Users with no vote rows come back with Voted=false and no dates — the
// "has not voted" marker. Dates arrive pre-sorted from the store.
func (s *ReportService) PerUser(ctx context.Context) ([]model.UserReport, error) {
	rows, err := s.votes.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list votes", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing votes: %w", err)
	}

	// Group by user id while keeping the order users first appeared in.
	index := make(map[string]int)
	reports := []model.UserReport{}
	for _, row := range rows {
		i, seen := index[row.UserID]
		if !seen {
			i = len(reports)
			index[row.UserID] = i
			reports = append(reports, model.UserReport{
				UserID:   row.UserID,
				Username: row.Username,
			})
		}
		if row.Date != nil {
			reports[i].Voted = true
			reports[i].Dates = append(reports[i].Dates, *row.Date)
		}
	}

	return reports, nil
}

// PerDate returns vote counts per date, ascending, omitting dates nobody
// picked. The candidate-date universe is deliberately not merged in — a date
// with zero votes simply does not appear.
func (s *ReportService) PerDate(ctx context.Context) ([]model.DateCount, error) {
	counts, err := s.votes.CountByDate(ctx)
	if err != nil {
		s.logger.Error("failed to tally votes", slog.String("error", err.Error()))
		return nil, fmt.Errorf("tallying votes: %w", err)
	}
	if counts == nil {
		counts = []model.DateCount{}
	}
	return counts, nil
}

// NonVoters returns every known user with zero vote rows, in first-seen order.
//
// INVARIANT: NonVoters and VotedUserIDs partition the known users — their
// union is everyone ever seen, and they never overlap. Both sides read the
// same vote rows, so the partition holds by construction.
func (s *ReportService) NonVoters(ctx context.Context) ([]model.User, error) {
	rows, err := s.votes.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list votes", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing votes: %w", err)
	}

	voted, err := s.votes.VotedUserIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list voted users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing voted users: %w", err)
	}
	votedSet := make(map[string]bool, len(voted))
	for _, id := range voted {
		votedSet[id] = true
	}

	seen := make(map[string]bool)
	nonVoters := []model.User{}
	for _, row := range rows {
		if seen[row.UserID] || votedSet[row.UserID] {
			continue
		}
		seen[row.UserID] = true
		nonVoters = append(nonVoters, model.User{ID: row.UserID, Username: row.Username})
	}

	return nonVoters, nil
}

// WriteCSV streams the denormalized per-date export.
//
// SHAPE (for spreadsheet consumption):
// One row per (date, voter) pair for dates with at least one vote. The date's
// total count is REPEATED on each of its rows, not summed once — pivoting in
// a spreadsheet is easier when every row is self-contained. FullName is
// always blank: it was never collected, but the column stays so existing
// spreadsheets keep their layout.
//
//	Date,VoteCount,FullName,Username,UserID
//	2025-06-05,1,,alice,42
func (s *ReportService) WriteCSV(ctx context.Context, w io.Writer) error {
	counts, err := s.votes.CountByDate(ctx)
	if err != nil {
		return fmt.Errorf("tallying votes: %w", err)
	}
	rows, err := s.votes.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing votes: %w", err)
	}

	// date → voters, in listing order.
	votersByDate := make(map[model.Date][]model.VoteRow)
	for _, row := range rows {
		if row.Date != nil {
			votersByDate[*row.Date] = append(votersByDate[*row.Date], row)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "VoteCount", "FullName", "Username", "UserID"}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, c := range counts {
		for _, voter := range votersByDate[c.Date] {
			record := []string{
				c.Date.String(),
				strconv.Itoa(c.Count),
				"", // FullName — never collected
				voter.Username,
				voter.UserID,
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}

	s.logger.Info("results exported to CSV", slog.Int("dates", len(counts)))
	return nil
}
