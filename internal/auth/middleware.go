package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
//
// context.WithValue uses any as the key type. If you use a plain string, ANY
// package that knows the string can read or shadow your value. A
// package-private type means only this package can touch identity values in
// the context.
type contextKey string

const identityKey contextKey = "identity"

// TokenCookie is the cookie carrying the voter token. HttpOnly, so page
// scripts can't read it; the API also accepts "Authorization: Bearer" for
// non-browser clients.
const TokenCookie = "token"

// RequireVoter is a middleware that enforces a valid voter token on poll
// routes. It reads the token from the cookie or the Authorization header,
// validates it, and stores the Identity in the request context. Missing or
// invalid tokens end the request with 401.
func RequireVoter(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := extractIdentity(r, tokens)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid voter token required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the verified voter identity set by
// RequireVoter. The second return is false on routes that never passed
// through the middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

// extractIdentity pulls the token out of the request and validates it.
// Cookie first (the browser flow), then the Authorization header.
func extractIdentity(r *http.Request, tokens *TokenService) (*Identity, error) {
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return tokens.Validate(c.Value)
	}

	header := r.Header.Get("Authorization")
	if raw, ok := strings.CutPrefix(header, "Bearer "); ok {
		return tokens.Validate(raw)
	}

	return nil, http.ErrNoCookie
}
