package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"helpdesk/domain"
)

type contextKey string

const claimsKey contextKey = "claims"

// ClaimsFromContext returns the authenticated caller's claims, if any.
func ClaimsFromContext(ctx context.Context) (*CustomClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*CustomClaims)
	return claims, ok
}

// WithClaims injects claims into a context. Exposed for the WebSocket
// upgrade path, which authenticates outside the middleware chain.
func WithClaims(ctx context.Context, claims *CustomClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Middleware validates the Authorization bearer token and enriches the
// request context with the caller's identity. Requests without a valid
// token are rejected before any handler runs.
func Middleware(tokens Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				reject(w, http.StatusUnauthorized, "authorization token is missing")
				return
			}
			claims, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				reject(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole gates a route on the caller's role. It assumes Middleware
// already ran.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				reject(w, http.StatusUnauthorized, "authorization token is missing")
				return
			}
			if claims.Role != role {
				reject(w, http.StatusForbidden, "insufficient role for this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
