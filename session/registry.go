package session

import (
	"context"
	"log"
	"sync"
	"time"

	"tregorent/backend/models"
)

// Registry keeps the admin sessions of this process, keyed by session
// token. Sessions leave the registry when they stop being admin or sit
// idle past the ttl.
type Registry struct {
	auth  Authenticator
	roles RoleChecker
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(auth Authenticator, roles RoleChecker, ttl time.Duration) *Registry {
	return &Registry{
		auth:     auth,
		roles:    roles,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) newSession() *Session {
	s := New(r.auth, r.roles)
	s.Subscribe(func(state State, p *models.Principal) {
		if state != StateAdmin {
			r.forget(s)
			return
		}
		log.Printf("Admin session established for %s", p.UID)
	})
	return s
}

// SignIn returns a registered admin session, or the sign-in error.
func (r *Registry) SignIn(ctx context.Context, email, password string) (*Session, *models.Principal, error) {
	s := r.newSession()
	principal, err := s.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	s.touch(r.now())
	r.mu.Lock()
	r.sessions[s.Token()] = s
	r.mu.Unlock()
	return s, principal, nil
}

// Resolve maps a session token to a session. The result is never nil; an
// empty or invalid token resolves to an unauthenticated session. The role
// is re-checked whenever the token's identity differs from what the
// session last saw.
//
// Resolve blocks until the token is verified and the role checked, so the
// session it returns is never StateUnresolved. That state is only visible
// to Subscribe listeners and to callers holding a Session built with New
// before its first auth-state event; RequireAdmin still handles it.
func (r *Registry) Resolve(ctx context.Context, token string) *Session {
	if token == "" {
		s := New(r.auth, r.roles)
		s.HandleAuthStateChange(ctx, nil)
		return s
	}

	r.mu.Lock()
	s, known := r.sessions[token]
	r.mu.Unlock()

	id, err := r.auth.Verify(ctx, token)
	if err != nil {
		id = nil
	}

	if !known {
		s = r.newSession()
		s.mu.Lock()
		s.token = token
		s.mu.Unlock()
	}

	if id == nil || id.UID != s.uid() || s.State() != StateAdmin {
		s.HandleAuthStateChange(ctx, id)
	}

	if s.State() == StateAdmin {
		s.touch(r.now())
		if !known {
			r.mu.Lock()
			r.sessions[token] = s
			r.mu.Unlock()
		}
	}
	return s
}

// SignOut ends the session behind token, revoking it with the backend.
func (r *Registry) SignOut(ctx context.Context, token string) error {
	r.mu.Lock()
	s, known := r.sessions[token]
	r.mu.Unlock()

	if known {
		return s.SignOut(ctx)
	}

	id, err := r.auth.Verify(ctx, token)
	if err != nil {
		return nil
	}
	return r.auth.SignOut(ctx, id.UID)
}

func (r *Registry) forget(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, candidate := range r.sessions {
		if candidate == s {
			delete(r.sessions, token)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle longer than the ttl and reports how many went.
// The backend token stays valid; the next request re-resolves it.
func (r *Registry) Sweep() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, s := range r.sessions {
		if s.idleSince(now) > r.ttl {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed
}
