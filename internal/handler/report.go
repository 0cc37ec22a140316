package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/datepoll/internal/service"
)

// ReportHandler exposes the coordinator-only reports.
//
// These routes mount behind the CoordinatorGate middleware, which answers
// 404 to anyone else — the handlers themselves can assume the caller is the
// coordinator.
//
// ROUTES:
//
//	GET /api/reports/votes        → per-user selections      (votes)
//	GET /api/reports/results      → per-date counts          (results)
//	GET /api/reports/results.csv  → CSV download             (results_csv)
//	GET /api/reports/not-voted    → users with zero votes    (not_voted)
type ReportHandler struct {
	reports *service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports *service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// HandleVotes returns who voted and for what, in first-seen order, with a
// "has not voted" marker (voted=false) for users with no selections.
func (h *ReportHandler) HandleVotes(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.PerUser(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleResults returns vote counts per date, ascending. Dates nobody picked
// are absent; with no votes at all the body is an empty array.
func (h *ReportHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	counts, err := h.reports.PerDate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

// HandleResultsCSV streams the CSV export as a file download.
//
// STREAMING, NOT SPOOLING:
// The CSV is written straight to the ResponseWriter — no temp file to create
// and clean up. The cost is that a storage failure mid-export can truncate
// the download after the 200 is on the wire; for a group-sized poll the
// export is a handful of rows and the trade is fine.
func (h *ReportHandler) HandleResultsCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="votes_results.csv"`)

	if err := h.reports.WriteCSV(r.Context(), w); err != nil {
		h.logger.Error("CSV export failed", slog.String("error", err.Error()))
		// Headers may already be sent; nothing more we can tell the client.
	}
}

// HandleNotVoted lists known users with zero vote rows.
func (h *ReportHandler) HandleNotVoted(w http.ResponseWriter, r *http.Request) {
	users, err := h.reports.NonVoters(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}
