package middleware

import (
	"log"
	"net/http"
	"strings"

	"tregorent/backend/session"
)

// RequireAdmin lets only admin sessions through. Browsers are sent to the
// login page; API callers get a JSON 401. While the session is still
// unresolved, pages get the placeholder and the API gets a 503, so protected
// content never renders before the role check.
func RequireAdmin(placeholder http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := session.StateUnauthenticated
			if s := SessionFromContext(r.Context()); s != nil {
				state = s.State()
			}

			switch state {
			case session.StateAdmin:
				next.ServeHTTP(w, r)

			case session.StateUnresolved:
				if isAPIRequest(r) {
					w.Header().Set("Retry-After", "1")
					WriteError(w, http.StatusServiceUnavailable, ErrSessionUnresolved, "Session is still being resolved")
					return
				}
				placeholder.ServeHTTP(w, r)

			default:
				if isAPIRequest(r) {
					WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Admin sign-in required")
					return
				}
				log.Printf("Redirecting unauthenticated request for %s to /login", r.URL.Path)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
			}
		})
	}
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
