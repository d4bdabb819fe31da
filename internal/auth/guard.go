package auth

import (
	"net/http"

	"github.com/noah-isme/userdesk/internal/shared"
)

// LoginPath is where anonymous visitors are sent.
const LoginPath = "/auth/login"

// StateMiddleware seeds the request's SessionState from the loaded session.
// It must run after the session middleware.
func StateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := LoadState(shared.SessionFromContext(r.Context()))
		next.ServeHTTP(w, r.WithContext(ContextWithState(r.Context(), st)))
	})
}

// RequireAuthenticated redirects anonymous visitors to the login page before
// the protected handler runs, so no protected content is rendered.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthenticated(r.Context()) {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectAuthenticated sends signed-in visitors away from guest-only pages.
func RedirectAuthenticated(target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsAuthenticated(r.Context()) {
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
