package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tregorent/backend/models"
	"tregorent/backend/storage"
)

// StagedImage is a locally selected file that has not been uploaded yet.
type StagedImage struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Gateway performs the panel's reads and writes against the document and
// blob stores. Every call is an independent round trip: there is no
// batching and no transaction spanning uploads and the record write.
type Gateway struct {
	docs  storage.DocumentStore
	blobs storage.BlobStore
	now   func() time.Time
}

// NewGateway creates a gateway over the given stores.
func NewGateway(docs storage.DocumentStore, blobs storage.BlobStore) *Gateway {
	return &Gateway{docs: docs, blobs: blobs, now: time.Now}
}

// AddListing uploads staged images, then writes a new record holding the
// fields, the image URLs in staging order and a server creation timestamp.
func (g *Gateway) AddListing(ctx context.Context, kind models.ListingKind, fields models.ListingFields, staged []StagedImage) (string, error) {
	if err := fields.Validate(kind); err != nil {
		return "", err
	}
	if len(staged) > models.MaxImages {
		return "", ErrTooManyImages
	}

	urls, err := g.uploadImages(ctx, kind, staged)
	if err != nil {
		log.Printf("Error adding %s: %v", kind, err)
		return "", err
	}

	doc := fields.Document(kind)
	doc["images"] = urls
	doc["createdAt"] = storage.ServerTimestamp

	id, err := g.docs.Create(ctx, kind.Collection(), doc)
	if err != nil {
		log.Printf("Error adding %s after uploading %d images: %v", kind, len(urls), err)
		return "", &WriteError{Op: "create", Collection: kind.Collection(), Err: err}
	}

	log.Printf("Added %s %s with %d images", kind, id, len(urls))
	return id, nil
}

// UpdateListing replaces a listing's scalar fields and image list. Optional
// fields left empty are removed from the record.
// retained is the authoritative list of existing URLs to keep; URLs of the
// uploaded staged images are appended after it.
func (g *Gateway) UpdateListing(ctx context.Context, kind models.ListingKind, id string, fields models.ListingFields, retained []string, staged []StagedImage) error {
	if err := fields.Validate(kind); err != nil {
		return err
	}
	if len(retained)+len(staged) > models.MaxImages {
		return ErrTooManyImages
	}

	urls, err := g.uploadImages(ctx, kind, staged)
	if err != nil {
		log.Printf("Error updating %s %s: %v", kind, id, err)
		return err
	}

	images := make([]string, 0, len(retained)+len(urls))
	images = append(images, retained...)
	images = append(images, urls...)

	doc := fields.Document(kind)
	for _, name := range models.OptionalFields(kind) {
		if _, ok := doc[name]; !ok {
			doc[name] = storage.DeleteField
		}
	}
	doc["images"] = images
	doc["updatedAt"] = storage.ServerTimestamp

	if err := g.docs.Update(ctx, kind.Collection(), id, doc); err != nil {
		log.Printf("Error updating %s %s: %v", kind, id, err)
		return &WriteError{Op: "update", Collection: kind.Collection(), ID: id, Err: err}
	}
	return nil
}

// DeleteListing removes the record only. Its images stay in the blob store.
func (g *Gateway) DeleteListing(ctx context.Context, kind models.ListingKind, id string) error {
	if err := g.docs.Delete(ctx, kind.Collection(), id); err != nil {
		log.Printf("Error deleting %s %s: %v", kind, id, err)
		return &WriteError{Op: "delete", Collection: kind.Collection(), ID: id, Err: err}
	}
	return nil
}

// GetListing loads a single listing, returning storage.ErrNotFound when absent.
func (g *Gateway) GetListing(ctx context.Context, kind models.ListingKind, id string) (*models.Listing, error) {
	doc, err := g.docs.Get(ctx, kind.Collection(), id)
	if err != nil {
		return nil, err
	}
	l := models.ListingFromDocument(kind, id, doc)
	return &l, nil
}

// ListListings returns every listing of kind, newest first.
func (g *Gateway) ListListings(ctx context.Context, kind models.ListingKind) ([]models.Listing, error) {
	docs, err := g.docs.List(ctx, kind.Collection(), "createdAt", true)
	if err != nil {
		log.Printf("Error getting %s: %v", kind.Collection(), err)
		return nil, err
	}

	listings := make([]models.Listing, 0, len(docs))
	for _, d := range docs {
		listings = append(listings, models.ListingFromDocument(kind, d.ID, d.Data))
	}
	return listings, nil
}

// ListReservations returns every reservation, newest first.
func (g *Gateway) ListReservations(ctx context.Context) ([]models.Reservation, error) {
	docs, err := g.docs.List(ctx, models.CollectionReservations, "createdAt", true)
	if err != nil {
		log.Printf("Error getting reservations: %v", err)
		return nil, err
	}

	reservations := make([]models.Reservation, 0, len(docs))
	for _, d := range docs {
		reservations = append(reservations, models.ReservationFromDocument(d.ID, d.Data))
	}
	return reservations, nil
}

// SetReservationStatus moves a reservation to status.
func (g *Gateway) SetReservationStatus(ctx context.Context, id string, status models.ReservationStatus) error {
	if _, err := models.ParseReservationStatus(string(status)); err != nil {
		return err
	}

	err := g.docs.Update(ctx, models.CollectionReservations, id, map[string]any{"status": string(status)})
	if err != nil {
		log.Printf("Error updating reservation %s status: %v", id, err)
		return &WriteError{Op: "update", Collection: models.CollectionReservations, ID: id, Err: err}
	}
	return nil
}

// uploadImages uploads all images concurrently and returns their URLs in
// input order. The first failure is returned once every upload settled;
// the others are not cancelled.
func (g *Gateway) uploadImages(ctx context.Context, kind models.ListingKind, images []StagedImage) ([]string, error) {
	urls := make([]string, len(images))
	if len(images) == 0 {
		return urls, nil
	}

	var eg errgroup.Group
	for i, img := range images {
		eg.Go(func() error {
			objectPath := fmt.Sprintf("%s/%d_%d_%s", kind.StoragePath(), g.now().UnixMilli(), i, cleanFilename(img.Filename))
			log.Printf("Attempting to upload to: %s", objectPath)

			url, err := g.blobs.Put(ctx, objectPath, img.ContentType, img.Data)
			if err != nil {
				return &UploadError{Path: objectPath, Err: err}
			}
			urls[i] = url
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
