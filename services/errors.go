package services

import (
	"errors"
	"fmt"
)

// UploadError means a single image failed to upload. Images uploaded before
// the failure are left in the blob store.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// WriteError means a record create, update or delete failed.
type WriteError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *WriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ErrTooManyImages rejects an image set that would exceed models.MaxImages.
var ErrTooManyImages = errors.New("a listing can hold at most 4 images")

// ErrSubmitInProgress rejects a second submit while one is in flight.
var ErrSubmitInProgress = errors.New("submission already in progress")
