// Package api implements the Munin data API using chi.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// principalHeader carries the authenticated user's id, set by the upstream
// authenticator that fronts this service.
const principalHeader = "X-User-ID"

type ctxKey int

const principalKey ctxKey = iota

// AuthMiddleware returns middleware that validates a Bearer service token.
// If enabled is false, all requests pass through (disabled mode).
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalMiddleware extracts the principal id from the request headers and
// stores it in the context. Requests without a usable principal never reach
// a handler; every store query is scoped by this id.
func PrincipalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(principalHeader)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusUnauthorized, errorBody("user id required"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, id)))
	})
}

// principal returns the authenticated user id placed by PrincipalMiddleware.
func principal(r *http.Request) int64 {
	id, _ := r.Context().Value(principalKey).(int64)
	return id
}
