// Package handler contains the HTTP layer: request parsing, response
// shaping, and nothing else. Business rules live in internal/service.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/datepoll/internal/auth"
	"github.com/sakif/datepoll/internal/model"
	"github.com/sakif/datepoll/internal/service"
)

// PollHandler exposes the voter-facing poll commands over JSON.
//
// Every route here sits behind auth.RequireVoter, so the acting user is
// always in the request context — handlers never trust ids from the body.
//
// ROUTES:
//
//	POST /api/poll/start   → register + page 0          (start / vote)
//	POST /api/poll/toggle  → flip a date, same page     (toggle)
//	GET  /api/poll/page    → render page n              (page)
//	POST /api/poll/done    → finalize                   (done)
//	POST /api/poll/reset   → clear selection, page 0    (reset)
//	GET  /api/poll/status  → own current selection      (status)
type PollHandler struct {
	poll   *service.PollService
	logger *slog.Logger
}

// NewPollHandler creates a PollHandler.
func NewPollHandler(poll *service.PollService, logger *slog.Logger) *PollHandler {
	return &PollHandler{poll: poll, logger: logger}
}

// toggleRequest is the body of POST /api/poll/toggle.
// The client echoes back the page it is showing so the response re-renders
// the same page. Note there is NO "selected" flag — the server flips against
// stored state, so a stale client can't desync the selection.
type toggleRequest struct {
	Date model.Date `json:"date"`
	Page int        `json:"page"`
}

// statusResponse is the body of GET /api/poll/status.
type statusResponse struct {
	Dates []model.Date `json:"dates"`
}

// HandleStart registers the caller and returns page 0 with their current
// selection marked. Calling it again later is how a voter revises their
// selection, so it is deliberately idempotent.
func (h *PollHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	view, err := h.poll.Start(r.Context(), id.UserID, id.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// HandleToggle flips one date in the caller's selection and re-renders the
// page the client was on.
func (h *PollHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid toggle JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	view, err := h.poll.Toggle(r.Context(), id.UserID, req.Date, req.Page)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// HandlePage renders the requested page with the caller's current selection.
//
// The page number arrives as a query parameter. A missing or garbled value
// falls back to 0, and the service clamps out-of-range indices — tampered
// pagination payloads render a valid page instead of erroring.
func (h *PollHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page = n
		}
	}

	view, err := h.poll.Page(r.Context(), id.UserID, page)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// HandleDone finalizes the caller's selection. The two outcomes — confirmed
// with the sorted dates, or empty — are both 200s; "nothing selected" is a
// distinct result, not an error.
func (h *PollHandler) HandleDone(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.poll.Finalize(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleReset clears the caller's selection and returns page 0.
func (h *PollHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	view, err := h.poll.Reset(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// HandleStatus returns the caller's current selection, sorted ascending.
// An empty list means they have not voted (or reset everything — the poll
// does not distinguish the two).
func (h *PollHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	dates, err := h.poll.Selection(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Dates: dates})
}
