package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func newTestGate(t *testing.T, coordinatorID, key string) (*CoordinatorGate, *TokenService) {
	t.Helper()
	tokens, err := NewTokenService(testSecret)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	keyHash := ""
	if key != "" {
		keyHash, err = HashKey(key)
		if err != nil {
			t.Fatalf("HashKey() error = %v", err)
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewCoordinatorGate(coordinatorID, keyHash, tokens, logger), tokens
}

// callGate runs a request through Require in front of a 200 handler.
func callGate(gate *CoordinatorGate, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(rec, r)
	return rec
}

func TestGate_CoordinatorTokenPasses(t *testing.T) {
	gate, tokens := newTestGate(t, "coord-1", "")

	token, err := tokens.Generate(Identity{UserID: "coord-1", Username: "boss"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/reports/votes", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	if rec := callGate(gate, r); rec.Code != http.StatusOK {
		t.Errorf("coordinator token got status %d, want 200", rec.Code)
	}
}

func TestGate_VoterTokenRefusedSilently(t *testing.T) {
	gate, tokens := newTestGate(t, "coord-1", "")

	// A valid token — but for an ordinary voter.
	token, err := tokens.Generate(Identity{UserID: "42", Username: "alice"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/reports/votes", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := callGate(gate, r)

	// Indistinguishable from a route that doesn't exist.
	if rec.Code != http.StatusNotFound {
		t.Errorf("voter token got status %d, want 404", rec.Code)
	}
}

func TestGate_SharedKeyPasses(t *testing.T) {
	gate, _ := newTestGate(t, "coord-1", "s3cret-key")

	r := httptest.NewRequest(http.MethodGet, "/api/reports/results", nil)
	r.Header.Set("X-Coordinator-Key", "s3cret-key")

	if rec := callGate(gate, r); rec.Code != http.StatusOK {
		t.Errorf("shared key got status %d, want 200", rec.Code)
	}
}

func TestGate_WrongKeyRefused(t *testing.T) {
	gate, _ := newTestGate(t, "coord-1", "s3cret-key")

	r := httptest.NewRequest(http.MethodGet, "/api/reports/results", nil)
	r.Header.Set("X-Coordinator-Key", "wrong-key")

	if rec := callGate(gate, r); rec.Code != http.StatusNotFound {
		t.Errorf("wrong key got status %d, want 404", rec.Code)
	}
}

func TestGate_KeyHeaderIgnoredWhenDisabled(t *testing.T) {
	// No key hash configured: the header path is disabled entirely.
	gate, _ := newTestGate(t, "coord-1", "")

	r := httptest.NewRequest(http.MethodGet, "/api/reports/results", nil)
	r.Header.Set("X-Coordinator-Key", "anything")

	if rec := callGate(gate, r); rec.Code != http.StatusNotFound {
		t.Errorf("key against disabled gate got status %d, want 404", rec.Code)
	}
}

func TestGate_AnonymousRefused(t *testing.T) {
	gate, _ := newTestGate(t, "coord-1", "s3cret-key")

	r := httptest.NewRequest(http.MethodGet, "/api/reports/votes", nil)

	if rec := callGate(gate, r); rec.Code != http.StatusNotFound {
		t.Errorf("anonymous request got status %d, want 404", rec.Code)
	}
}
