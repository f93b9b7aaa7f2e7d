package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"tregorent/backend/models"
	"tregorent/backend/session"
)

// SessionCookieName is the only cookie Firebase Hosting forwards to a
// backend.
const SessionCookieName = "__session"

type contextKey string

const UserIDKey contextKey = "user_id"
const sessionKey contextKey = "session"

// SessionResolver maps a session token to a session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) *session.Session
}

// Authenticate attaches the request's session to its context. Every
// request re-verifies the token, so each one is an auth-state event.
func Authenticate(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Preflight carries no credentials
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			s := resolver.Resolve(r.Context(), SessionToken(r))
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// SessionToken reads the session cookie, falling back to a bearer token.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return extractToken(r.Header.Get("Authorization"))
}

// extractToken gets the token from the Authorization header
func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, "Bearer ")
	if len(parts) != 2 {
		return ""
	}

	return parts[1]
}

// WithSession returns ctx carrying s and, for an admin, the user id.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey, s)
	if p := s.Principal(); p != nil {
		ctx = context.WithValue(ctx, UserIDKey, p.UID)
	}
	return ctx
}

func SessionFromContext(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

// GetPrincipal returns the signed-in admin, or nil.
func GetPrincipal(r *http.Request) *models.Principal {
	s := SessionFromContext(r.Context())
	if s == nil {
		return nil
	}
	return s.Principal()
}

// GetUserIDFromContext retrieves the user ID from the request context
func GetUserIDFromContext(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
