package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// FirebaseAuthenticator signs admins in with email and password through
// the Identity Toolkit API and keeps them signed in with Firebase session
// cookies.
type FirebaseAuthenticator struct {
	client  *auth.Client
	toolkit *identitytoolkit.Service
	ttl     time.Duration
}

// NewFirebaseAuthenticator needs the web API key for the password exchange.
func NewFirebaseAuthenticator(ctx context.Context, client *auth.Client, apiKey string, ttl time.Duration) (*FirebaseAuthenticator, error) {
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("identity toolkit client: %w", err)
	}
	return &FirebaseAuthenticator{client: client, toolkit: toolkit, ttl: ttl}, nil
}

func (a *FirebaseAuthenticator) SignIn(ctx context.Context, email, password string) (*Identity, string, error) {
	resp, err := a.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 400 {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("password sign-in: %w", err)
	}

	cookie, err := a.client.SessionCookie(ctx, resp.IdToken, a.ttl)
	if err != nil {
		return nil, "", fmt.Errorf("create session cookie: %w", err)
	}

	return &Identity{UID: resp.LocalId, Email: resp.Email, DisplayName: resp.DisplayName}, cookie, nil
}

func (a *FirebaseAuthenticator) Verify(ctx context.Context, token string) (*Identity, error) {
	tok, err := a.client.VerifySessionCookieAndCheckRevoked(ctx, token)
	if err != nil {
		log.Printf("Error verifying session cookie: %v", err)
		return nil, ErrInvalidToken
	}

	identity := &Identity{UID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := tok.Claims["name"].(string); ok {
		identity.DisplayName = name
	}
	return identity, nil
}

func (a *FirebaseAuthenticator) SignOut(ctx context.Context, uid string) error {
	if err := a.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("revoke tokens for %s: %w", uid, err)
	}
	return nil
}
