package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable means the configured backend failed to initialize.
var ErrUnavailable = errors.New("backend unavailable")

// Unavailable stands in for a backend whose initialization failed. The
// panel keeps serving and every store call fails with ErrUnavailable.
type Unavailable struct {
	Cause error
}

func (u Unavailable) err() error {
	return fmt.Errorf("%w: %v", ErrUnavailable, u.Cause)
}

func (u Unavailable) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	return "", u.err()
}

func (u Unavailable) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	return nil, u.err()
}

func (u Unavailable) List(ctx context.Context, collection, orderField string, desc bool) ([]Document, error) {
	return nil, u.err()
}

func (u Unavailable) Update(ctx context.Context, collection, id string, data map[string]any) error {
	return u.err()
}

func (u Unavailable) Delete(ctx context.Context, collection, id string) error {
	return u.err()
}

func (u Unavailable) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	return "", u.err()
}
