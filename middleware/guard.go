// Package middleware gates net/http routes on the derived session state.
// It only reads IsAuthenticated; it never mutates the session.
package middleware

import "net/http"

// SessionSource is the read-only view the guard consumes. *authstate.Manager
// satisfies it.
type SessionSource interface {
	IsAuthenticated() bool
}

// RequireSession rejects requests with 401 when no valid session is held.
// This is the API-route shape; page routes usually want
// [RedirectAnonymous].
func RequireSession(source SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if source == nil || !source.IsAuthenticated() {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RedirectAnonymous sends unauthenticated requests to loginPath instead of
// failing them. Authenticated requests pass through untouched; the login
// route itself decides where to go after a successful login.
func RedirectAnonymous(source SessionSource, loginPath string) func(http.Handler) http.Handler {
	if loginPath == "" {
		loginPath = "/login"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if source == nil || !source.IsAuthenticated() {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
