// ABOUTME: HTTP middleware for JWT authentication on API endpoints
// ABOUTME: Runs the admin-area authorization check and attaches the session to context

package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/helmgate/helmgate/internal/identity"
	"github.com/helmgate/helmgate/internal/roster"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Middleware creates an HTTP middleware that extracts and validates JWT
// tokens, resolves the principal, and runs the roster kernel's admin-area
// authorization. On success the roster session is attached to the request
// context via WithSession.
//
// Denials and transient failures are kept distinct: a blocked or
// unregistered principal gets 403, a bad token or dead account gets 401,
// and a store read failure gets 503 without ending the session.
func Middleware(idp identity.Provider, kernel *roster.Service, verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				http.Error(w, `{"error":"`+errMsg+`"}`, http.StatusUnauthorized)
				return
			}

			principalID, err := verifier.Verify(token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			principal, err := idp.Lookup(r.Context(), principalID)
			if err != nil {
				http.Error(w, `{"error":"account unavailable"}`, http.StatusUnauthorized)
				return
			}

			decision, err := kernel.Authorize(r.Context(), principal, roster.EntryAdminArea)
			if err != nil {
				var storeErr *roster.StoreError
				if errors.As(err, &storeErr) {
					http.Error(w, `{"error":"temporarily unavailable"}`, http.StatusServiceUnavailable)
					return
				}
				http.Error(w, `{"error":"authorization failed"}`, http.StatusInternalServerError)
				return
			}
			if !decision.Granted {
				http.Error(w, `{"error":"`+string(decision.Reason)+`"}`, http.StatusForbidden)
				return
			}

			sess := &roster.Session{
				Principal: principal,
				Role:      decision.Role,
				Record:    decision.Record,
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireMainAdmin creates an HTTP middleware that requires the main-admin
// role. Must be used after Middleware.
func RequireMainAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := FromContext(r.Context())
			if sess == nil {
				http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
				return
			}

			if !sess.IsMainAdmin() {
				http.Error(w, `{"error":"main admin role required"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
