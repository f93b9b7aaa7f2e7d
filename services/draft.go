package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tregorent/backend/models"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidValue  = errors.New("invalid value")
	ErrImageNotFound = errors.New("image not found")
)

// ListingWriter is the part of the Gateway a draft submits through.
type ListingWriter interface {
	AddListing(ctx context.Context, kind models.ListingKind, fields models.ListingFields, staged []StagedImage) (string, error)
	UpdateListing(ctx context.Context, kind models.ListingKind, id string, fields models.ListingFields, retained []string, staged []StagedImage) error
}

// Draft is the in-progress state of a listing being created or edited.
// Images live in two buckets until submit: retained URLs that are already
// persisted and staged files that are not uploaded yet.
type Draft struct {
	mu sync.Mutex

	id        string
	owner     string
	kind      models.ListingKind
	listingID string
	fields    models.ListingFields
	retained  []string
	staged    []StagedImage

	submitting bool
	touched    time.Time
}

// DraftView is a read-only snapshot of a draft.
type DraftView struct {
	ID         string               `json:"id"`
	Kind       models.ListingKind   `json:"kind"`
	ListingID  string               `json:"listingId,omitempty"`
	Fields     models.ListingFields `json:"fields"`
	Retained   []string             `json:"retained"`
	Staged     []StagedImage        `json:"staged"`
	Submitting bool                 `json:"submitting"`
	FreeSlots  int                  `json:"freeSlots"`
}

// NewDraft starts a draft. A non-nil seed puts the draft in edit mode with
// the seed's fields and image URLs copied in.
func NewDraft(kind models.ListingKind, seed *models.Listing) *Draft {
	d := &Draft{
		id:      uuid.NewString(),
		kind:    kind,
		fields:  models.DefaultFields(kind),
		touched: time.Now(),
	}
	if seed != nil {
		d.listingID = seed.ID
		d.fields = seed.ListingFields
		d.retained = append([]string{}, seed.Images...)
	}
	return d
}

// ID returns the draft's identifier.
func (d *Draft) ID() string { return d.id }

// IsEdit reports whether submitting updates an existing listing.
func (d *Draft) IsEdit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listingID != ""
}

// View returns a snapshot of the current draft state.
func (d *Draft) View() DraftView {
	d.mu.Lock()
	defer d.mu.Unlock()

	return DraftView{
		ID:         d.id,
		Kind:       d.kind,
		ListingID:  d.listingID,
		Fields:     d.fields,
		Retained:   append([]string{}, d.retained...),
		Staged:     append([]StagedImage{}, d.staged...),
		Submitting: d.submitting,
		FreeSlots:  models.MaxImages - len(d.retained) - len(d.staged),
	}
}

// StagedImage returns a staged file by id, for previews.
func (d *Draft) StagedImage(id string) (StagedImage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, img := range d.staged {
		if img.ID == id {
			return img, true
		}
	}
	return StagedImage{}, false
}

// SetField replaces exactly one scalar field. name is the field's JSON name.
func (d *Draft) SetField(name, value string) error {
	return d.SetFields(map[string]string{name: value})
}

// SetFields applies several field edits. Either all apply or none do.
func (d *Draft) SetFields(values map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.submitting {
		return ErrSubmitInProgress
	}

	next := d.fields
	for name, value := range values {
		if err := setField(&next, d.kind, name, value); err != nil {
			return err
		}
	}
	d.fields = next
	d.touched = time.Now()
	return nil
}

func setField(f *models.ListingFields, kind models.ListingKind, name, value string) error {
	value = strings.TrimSpace(value)

	switch name {
	case "name":
		f.Name = value
	case "description":
		f.Description = value
	case "price":
		price, err := parseNumber(value)
		if err != nil {
			return fmt.Errorf("price: %w", err)
		}
		f.Price = price
	default:
		if kind == models.KindApartment {
			return setApartmentField(f, name, value)
		}
		return setCarField(f, name, value)
	}
	return nil
}

func setApartmentField(f *models.ListingFields, name, value string) error {
	switch name {
	case "bedrooms", "bathrooms":
		n, err := parseCount(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if name == "bedrooms" {
			f.Bedrooms = n
		} else {
			f.Bathrooms = n
		}
	case "place":
		f.Place = value
	case "category":
		f.Category = value
	case "contactLink":
		f.ContactLink = value
	default:
		return fmt.Errorf("%w %q for apartment", ErrUnknownField, name)
	}
	return nil
}

func setCarField(f *models.ListingFields, name, value string) error {
	switch name {
	case "model":
		f.Model = value
	case "transmission":
		f.Transmission = value
	case "airConditioning":
		f.AirConditioning = value
	default:
		return fmt.Errorf("%w %q for car", ErrUnknownField, name)
	}
	return nil
}

func parseNumber(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, value)
	}
	return n, nil
}

func parseCount(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidValue, value)
	}
	return n, nil
}

// Stage appends newly selected files. The whole selection is rejected with
// ErrTooManyImages, leaving the draft unchanged, if it would take the
// listing past models.MaxImages.
func (d *Draft) Stage(files []StagedImage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.submitting {
		return ErrSubmitInProgress
	}
	if len(d.retained)+len(d.staged)+len(files) > models.MaxImages {
		return ErrTooManyImages
	}

	for _, f := range files {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		d.staged = append(d.staged, f)
	}
	d.touched = time.Now()
	return nil
}

// RemoveRetained drops an already persisted image from the draft. The blob
// itself is not deleted.
func (d *Draft) RemoveRetained(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.submitting {
		return ErrSubmitInProgress
	}
	if index < 0 || index >= len(d.retained) {
		return ErrImageNotFound
	}
	d.retained = append(d.retained[:index:index], d.retained[index+1:]...)
	d.touched = time.Now()
	return nil
}

// RemoveStaged drops a staged file before it is ever uploaded.
func (d *Draft) RemoveStaged(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.submitting {
		return ErrSubmitInProgress
	}
	for i, img := range d.staged {
		if img.ID == id {
			d.staged = append(d.staged[:i:i], d.staged[i+1:]...)
			d.touched = time.Now()
			return nil
		}
	}
	return ErrImageNotFound
}

// Submit persists the draft: an update with the retained URLs in edit mode,
// otherwise a create. On success the draft resets to an empty create draft;
// on failure it is left as it was so the admin can retry. No idempotency
// key is sent, so retrying after a timeout that actually succeeded
// creates a duplicate.
func (d *Draft) Submit(ctx context.Context, w ListingWriter) (string, error) {
	d.mu.Lock()
	if d.submitting {
		d.mu.Unlock()
		return "", ErrSubmitInProgress
	}
	d.submitting = true
	kind := d.kind
	listingID := d.listingID
	fields := d.fields
	retained := append([]string{}, d.retained...)
	staged := append([]StagedImage{}, d.staged...)
	d.mu.Unlock()

	var id string
	var err error
	if listingID != "" {
		err = w.UpdateListing(ctx, kind, listingID, fields, retained, staged)
		id = listingID
	} else {
		id, err = w.AddListing(ctx, kind, fields, staged)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitting = false
	d.touched = time.Now()
	if err != nil {
		return "", err
	}

	d.listingID = ""
	d.fields = models.DefaultFields(kind)
	d.retained = nil
	d.staged = nil
	return id, nil
}

func (d *Draft) idleSince(now time.Time) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitting {
		return 0
	}
	return now.Sub(d.touched)
}
