// Package storage holds the document and blob stores the panel persists to:
// Firestore and Cloud Storage in production, SQLite for local development.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store's own clock when written.
var ServerTimestamp = serverTimestamp{}

type deleteField struct{}

// DeleteField removes the field it is assigned to when passed to Update.
var DeleteField = deleteField{}

// Document is a stored record with its store-assigned id.
type Document struct {
	ID   string
	Data map[string]any
}

// DocumentStore is the subset of a document database the panel uses.
type DocumentStore interface {
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	List(ctx context.Context, collection, orderField string, desc bool) ([]Document, error)
	// Update overwrites the given fields, removes those set to DeleteField
	// and fails with ErrNotFound when the document does not exist.
	Update(ctx context.Context, collection, id string, data map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// BlobStore writes binary objects and returns their public URL.
type BlobStore interface {
	Put(ctx context.Context, path, contentType string, data []byte) (string, error)
}

// timestampLayout is fixed width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
