// Package middleware provides the HTTP middleware chain in front of the
// domain handlers: caller identity, throttling, logging and CORS.
package middleware

import (
	"encoding/json"
	"net/http"

	"riddlen/riddle-service/pkg/auth"
)

// Trusted identity headers. Authentication happens upstream (the service's
// trust boundary); these headers carry the verified result.
const (
	HeaderAccount     = "X-Account-Address"
	HeaderRoles       = "X-Roles"
	HeaderFingerprint = "X-Device-Fingerprint"
)

// IdentityMiddleware materializes the authenticated caller from the trusted
// headers into a capability object on the request context. Requests without
// an account address are rejected before any handler runs.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.Header.Get(HeaderAccount)
		if address == "" {
			writeError(w, http.StatusUnauthorized, "Unauthenticated")
			return
		}

		caller := auth.NewCaller(address, auth.ParseRoles(r.Header.Get(HeaderRoles))...)
		next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
	})
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
