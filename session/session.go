package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"tregorent/backend/models"
)

type State int

const (
	// StateUnresolved is the initial state until the first auth-state event.
	StateUnresolved State = iota
	StateAdmin
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAdmin:
		return "admin"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unresolved"
	}
}

// Listener is called after every state change, outside the session lock.
type Listener func(state State, principal *models.Principal)

// Session is one browser's view of who is signed in. Only an identity
// whose profile carries the admin role ever reaches StateAdmin; a
// non-admin identity is signed out again.
type Session struct {
	auth  Authenticator
	roles RoleChecker

	mu        sync.Mutex
	state     State
	identity  *Identity
	token     string
	lastSeen  time.Time
	listeners map[int]Listener
	nextID    int
}

func New(auth Authenticator, roles RoleChecker) *Session {
	return &Session{
		auth:      auth,
		roles:     roles,
		lastSeen:  time.Now(),
		listeners: make(map[int]Listener),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Principal is non-nil only in StateAdmin.
func (s *Session) Principal() *models.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principalLocked()
}

func (s *Session) principalLocked() *models.Principal {
	if s.state != StateAdmin || s.identity == nil {
		return nil
	}
	return &models.Principal{
		UID:         s.identity.UID,
		Email:       s.identity.Email,
		DisplayName: s.identity.DisplayName,
		IsAdmin:     true,
	}
}

// Token is the session token issued at sign-in, if any.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Subscribe registers fn for state changes. Calling the returned function
// stops further notifications.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// HandleAuthStateChange re-validates the session for a new identity, or
// for no identity at all when id is nil.
func (s *Session) HandleAuthStateChange(ctx context.Context, id *Identity) State {
	if id == nil {
		s.set(StateUnauthenticated, nil, "")
		return StateUnauthenticated
	}

	isAdmin, err := s.roles.IsAdmin(ctx, id.UID)
	if err != nil {
		// Fail closed, but a transient lookup failure does not revoke the
		// identity's other sessions.
		log.Printf("Error checking role for %s: %v", id.UID, err)
		s.set(StateUnauthenticated, nil, "")
		return StateUnauthenticated
	}

	if !isAdmin {
		log.Printf("Signing out non-admin user %s", id.UID)
		s.set(StateUnauthenticated, nil, "")
		if err := s.auth.SignOut(ctx, id.UID); err != nil {
			log.Printf("Error signing out %s: %v", id.UID, err)
		}
		return StateUnauthenticated
	}

	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	s.set(StateAdmin, id, token)
	return StateAdmin
}

// SignIn authenticates and checks the role before returning. A non-admin
// is signed out and gets an AccessDeniedError.
func (s *Session) SignIn(ctx context.Context, email, password string) (*models.Principal, error) {
	id, token, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	isAdmin, err := s.roles.IsAdmin(ctx, id.UID)
	if err != nil {
		s.set(StateUnauthenticated, nil, "")
		if signOutErr := s.auth.SignOut(ctx, id.UID); signOutErr != nil {
			log.Printf("Error signing out %s: %v", id.UID, signOutErr)
		}
		var lookupErr *RoleLookupError
		if errors.As(err, &lookupErr) {
			return nil, lookupErr
		}
		return nil, &RoleLookupError{UID: id.UID, Err: err}
	}

	if !isAdmin {
		s.set(StateUnauthenticated, nil, "")
		if err := s.auth.SignOut(ctx, id.UID); err != nil {
			log.Printf("Error signing out %s: %v", id.UID, err)
		}
		return nil, &AccessDeniedError{UID: id.UID}
	}

	s.set(StateAdmin, id, token)
	return s.Principal(), nil
}

// SignOut revokes the identity's sessions and moves to StateUnauthenticated.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	id := s.identity
	s.mu.Unlock()

	s.set(StateUnauthenticated, nil, "")
	if id == nil {
		return nil
	}
	return s.auth.SignOut(ctx, id.UID)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

func (s *Session) uid() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.UID
}

func (s *Session) set(state State, id *Identity, token string) {
	s.mu.Lock()
	changed := s.state != state || s.identity != id
	s.state = state
	s.identity = id
	s.token = token
	principal := s.principalLocked()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(state, principal)
	}
}
