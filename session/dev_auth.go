package session

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"tregorent/backend/security"
)

// DevAuthenticator backs local development against the SQLite store. The
// uid is the lowercased email and the session token is a sealed
// "uid|issuedAt" pair. When password is empty any password is accepted.
type DevAuthenticator struct {
	sealer   *security.Sealer
	password string
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewDevAuthenticator(sealer *security.Sealer, password string, ttl time.Duration) *DevAuthenticator {
	return &DevAuthenticator{
		sealer:   sealer,
		password: password,
		ttl:      ttl,
		now:      time.Now,
		revoked:  make(map[string]time.Time),
	}
}

func (a *DevAuthenticator) SignIn(ctx context.Context, email, password string) (*Identity, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", ErrInvalidCredentials
	}
	if a.password != "" && password != a.password {
		return nil, "", ErrInvalidCredentials
	}

	uid := strings.ToLower(email)
	issued := a.now().UnixNano()
	token, err := a.sealer.Seal(uid + "|" + strconv.FormatInt(issued, 10))
	if err != nil {
		return nil, "", err
	}
	return &Identity{UID: uid, Email: uid}, token, nil
}

func (a *DevAuthenticator) Verify(ctx context.Context, token string) (*Identity, error) {
	plain, err := a.sealer.Open(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	uid, issuedRaw, ok := strings.Cut(plain, "|")
	if !ok {
		return nil, ErrInvalidToken
	}
	issuedNanos, err := strconv.ParseInt(issuedRaw, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	issued := time.Unix(0, issuedNanos)

	if a.ttl > 0 && a.now().Sub(issued) > a.ttl {
		return nil, ErrInvalidToken
	}

	a.mu.Lock()
	revokedAt, revoked := a.revoked[uid]
	a.mu.Unlock()
	if revoked && !issued.After(revokedAt) {
		return nil, ErrInvalidToken
	}

	return &Identity{UID: uid, Email: uid}, nil
}

// SignOut invalidates every token of uid issued up to now.
func (a *DevAuthenticator) SignOut(ctx context.Context, uid string) error {
	a.mu.Lock()
	a.revoked[uid] = a.now()
	a.mu.Unlock()
	return nil
}
