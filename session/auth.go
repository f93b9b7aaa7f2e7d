// Package session resolves who is signed in to the panel and whether they
// hold the administrator role.
package session

import (
	"context"
	"errors"
	"fmt"

	"tregorent/backend/models"
	"tregorent/backend/storage"
)

// Identity is an authenticated principal before any role check.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// Authenticator is the credential side of the backend.
type Authenticator interface {
	// SignIn exchanges credentials for an identity and a session token.
	SignIn(ctx context.Context, email, password string) (*Identity, string, error)
	// Verify returns the identity behind a session token.
	Verify(ctx context.Context, token string) (*Identity, error)
	// SignOut revokes every session of uid.
	SignOut(ctx context.Context, uid string) error
}

// UnavailableAuthenticator rejects every call with the wrapped
// storage.ErrUnavailable. It replaces an authenticator that failed to start.
type UnavailableAuthenticator struct {
	Cause error
}

func (a UnavailableAuthenticator) err() error {
	return fmt.Errorf("%w: %v", storage.ErrUnavailable, a.Cause)
}

func (a UnavailableAuthenticator) SignIn(ctx context.Context, email, password string) (*Identity, string, error) {
	return nil, "", a.err()
}

func (a UnavailableAuthenticator) Verify(ctx context.Context, token string) (*Identity, error) {
	return nil, a.err()
}

func (a UnavailableAuthenticator) SignOut(ctx context.Context, uid string) error {
	return a.err()
}

// RoleChecker decides whether uid is an administrator.
type RoleChecker interface {
	IsAdmin(ctx context.Context, uid string) (bool, error)
}

// ProfileRoles reads the role attribute of users/{uid}.
type ProfileRoles struct {
	docs storage.DocumentStore
}

// NewProfileRoles checks roles against profile documents in docs.
func NewProfileRoles(docs storage.DocumentStore) *ProfileRoles {
	return &ProfileRoles{docs: docs}
}

// IsAdmin returns false without error when the profile does not exist.
func (p *ProfileRoles) IsAdmin(ctx context.Context, uid string) (bool, error) {
	doc, err := p.docs.Get(ctx, models.CollectionUsers, uid)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &RoleLookupError{UID: uid, Err: err}
	}
	return models.ProfileFromDocument(uid, doc).IsAdmin(), nil
}
