package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/datepoll/internal/auth"
	"github.com/sakif/datepoll/internal/model"
	"github.com/sakif/datepoll/internal/repository"
)

// AuthHandler issues voter tokens — the identity the poll routes require.
//
// Two paths:
//   - HandleToken: POST a username, get a token for a freshly minted user id.
//     This is the group-chat stand-in: whoever holds the poll link can join,
//     the same trust model as a poll shared inside a private group chat.
//   - GitHub OAuth (HandleGitHubLogin/Callback): browser flow for groups that
//     coordinate on GitHub; the same account maps to the same participant on
//     every login.
type AuthHandler struct {
	github *auth.GitHubProvider // nil when OAuth is not configured
	tokens *auth.TokenService
	users  repository.UserRepository
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil; the server then
// simply doesn't register the OAuth routes.
func NewAuthHandler(
	github *auth.GitHubProvider,
	tokens *auth.TokenService,
	users repository.UserRepository,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		github: github,
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

// tokenRequest is the body of POST /auth/token.
type tokenRequest struct {
	Username string `json:"username"`
}

// tokenResponse carries the minted identity and its token.
type tokenResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// HandleToken mints a new participant and their voter token.
//
// HTTP: POST /auth/token {"username":"alice"}
//
// The id is a server-generated xid — opaque, URL-safe, sortable by creation
// time. The user row is created immediately so the coordinator's non-voter
// report includes people who joined but never picked a date.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid token request JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(req.Username)
	userID := xid.New().String()

	if err := h.users.Upsert(r.Context(), &model.User{ID: userID, Username: username}); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.Generate(auth.Identity{UserID: userID, Username: username})
	if err != nil {
		h.logger.Error("failed to issue voter token", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.setTokenCookie(w, token)
	writeJSON(w, http.StatusCreated, tokenResponse{
		UserID:   userID,
		Username: username,
		Token:    token,
	})
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes both into the redirect URL and into a
// short-lived cookie; the callback verifies they match, proving the flow was
// started by this server and not a cross-site attacker.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Upsert the participant (id "gh-<numeric id>" — stable across logins)
//  4. Issue a voter token in an HttpOnly cookie and redirect home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single-use — clear it.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// Derive a stable participant id from the GitHub account. Insert-or-
	// ignore keeps the first-seen username even if it changes on GitHub.
	user := &model.User{
		ID:       fmt.Sprintf("gh-%d", ghUser.ID),
		Username: ghUser.Login,
	}
	if err := h.users.Upsert(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.Generate(auth.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		h.logger.Error("failed to issue voter token", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("github login",
		slog.String("userId", user.ID),
		slog.String("username", user.Username),
	)

	h.setTokenCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// setTokenCookie stores the voter token in the HttpOnly auth cookie.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   31 * 24 * 3600, // matches the token lifetime
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
