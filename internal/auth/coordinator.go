// Package auth — the coordinator gate.
//
// The poll has exactly one coordinator: the fixed identity allowed to read
// aggregate results. Two ways through the gate:
//
//  1. A voter token whose subject IS the configured coordinator user id.
//  2. The X-Coordinator-Key header matching the configured bcrypt hash —
//     for the coordinator's scripts and spreadsheet pulls, where minting a
//     voter token first would be a nuisance.
//
// Only the bcrypt HASH of the key is ever configured or stored; the plain
// key exists nowhere on the server.
//
// WHY BCRYPT FOR A SHARED KEY (not a plain string compare)?
// Same reasoning as passwords: a leaked config file or environment dump then
// reveals only the hash, and brute-forcing bcrypt is expensive by design.
package auth

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// CoordinatorGate guards the coordinator-only report routes.
type CoordinatorGate struct {
	coordinatorID string
	keyHash       []byte // bcrypt hash of the shared key; empty disables key access
	tokens        *TokenService
	logger        *slog.Logger
}

// NewCoordinatorGate creates the gate. coordinatorID is required; keyHash is
// the optional bcrypt hash of the shared key ("" disables header access).
func NewCoordinatorGate(coordinatorID, keyHash string, tokens *TokenService, logger *slog.Logger) *CoordinatorGate {
	return &CoordinatorGate{
		coordinatorID: coordinatorID,
		keyHash:       []byte(keyHash),
		tokens:        tokens,
		logger:        logger,
	}
}

// HashKey generates the bcrypt hash for a coordinator key, for operators
// provisioning COORDINATOR_KEY_HASH. bcrypt.DefaultCost (10) is plenty for a
// key that is long and random rather than human-chosen.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Require is the middleware for coordinator-only routes.
//
// SILENT REFUSAL:
// An unauthorized caller gets 404 with an empty body — the same as hitting a
// route that doesn't exist. The report routes never reveal themselves to
// anyone but the coordinator; the attempt is only visible in the server log.
func (g *CoordinatorGate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.permit(r) {
			next.ServeHTTP(w, r)
			return
		}

		g.logger.Warn("coordinator route refused",
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
		)
		http.NotFound(w, r)
	})
}

// permit checks both ways through the gate.
func (g *CoordinatorGate) permit(r *http.Request) bool {
	if g.coordinatorID != "" {
		if id, err := extractIdentity(r, g.tokens); err == nil && id.UserID == g.coordinatorID {
			return true
		}
	}

	if key := r.Header.Get("X-Coordinator-Key"); key != "" && len(g.keyHash) > 0 {
		// CompareHashAndPassword is constant-time over the key material.
		if bcrypt.CompareHashAndPassword(g.keyHash, []byte(key)) == nil {
			return true
		}
	}

	return false
}
