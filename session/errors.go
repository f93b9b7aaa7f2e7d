package session

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired session")
)

// AccessDeniedError means the signed-in identity lacks the admin role.
type AccessDeniedError struct {
	UID string
}

func (e *AccessDeniedError) Error() string {
	return "access denied: admin privileges required"
}

// RoleLookupError means the profile lookup failed. It is treated as a
// denial.
type RoleLookupError struct {
	UID string
	Err error
}

func (e *RoleLookupError) Error() string {
	return fmt.Sprintf("role lookup for %s failed: %v", e.UID, e.Err)
}

func (e *RoleLookupError) Unwrap() error { return e.Err }
