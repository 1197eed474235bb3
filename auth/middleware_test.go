package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"helpdesk/domain"
)

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok, "claims must be in the request context")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(claims.Username))
	})
}

func TestMiddleware_RejectsMissingAndInvalidTokens(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("unit-test-secret", time.Hour)
	handler := Middleware(tokens)(protectedEcho(t))

	// No Authorization header
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	req.Equal(http.StatusUnauthorized, recorder.Code)

	// Garbage token
	recorder = httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer nope")
	handler.ServeHTTP(recorder, request)
	req.Equal(http.StatusUnauthorized, recorder.Code)
}

func TestMiddleware_PassesClaimsThrough(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("unit-test-secret", time.Hour)
	handler := Middleware(tokens)(protectedEcho(t))

	signed, err := tokens.Generate(domain.Participant{Username: "alice", Role: domain.RoleAgent})
	req.NoError(err)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer "+signed)
	handler.ServeHTTP(recorder, request)

	req.Equal(http.StatusOK, recorder.Code)
	req.Equal("alice", recorder.Body.String())
}

func TestRequireRole(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("unit-test-secret", time.Hour)
	handler := Middleware(tokens)(RequireRole(domain.RoleAgent)(protectedEcho(t)))

	// An agent passes the gate
	agentToken, err := tokens.Generate(domain.Participant{Username: "alice", Role: domain.RoleAgent})
	req.NoError(err)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer "+agentToken)
	handler.ServeHTTP(recorder, request)
	req.Equal(http.StatusOK, recorder.Code)

	// A customer does not
	customerToken, err := tokens.Generate(domain.Participant{Username: "bob", Role: domain.RoleCustomer})
	req.NoError(err)
	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer "+customerToken)
	handler.ServeHTTP(recorder, request)
	req.Equal(http.StatusForbidden, recorder.Code)
}
