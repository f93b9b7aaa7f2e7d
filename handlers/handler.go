package handlers

import (
	"context"
	"time"

	"tregorent/backend/events"
	"tregorent/backend/models"
	"tregorent/backend/services"
	"tregorent/backend/session"
	"tregorent/backend/views"
)

// Catalog is the part of the data gateway the handlers drive.
type Catalog interface {
	services.ListingWriter
	services.ListingLister
	GetListing(ctx context.Context, kind models.ListingKind, id string) (*models.Listing, error)
	DeleteListing(ctx context.Context, kind models.ListingKind, id string) error
	ListReservations(ctx context.Context) ([]models.Reservation, error)
	SetReservationStatus(ctx context.Context, id string, status models.ReservationStatus) error
}

// MediaSource serves blobs stored by the development backend.
type MediaSource interface {
	Get(ctx context.Context, path string) (string, []byte, error)
}

type Options struct {
	Catalog  Catalog
	Drafts   *services.DraftStore
	Sessions *session.Registry
	Notifier events.Notifier
	Hub      *events.Hub
	Views    *views.Renderer
	// Media is nil when images are served by Cloud Storage.
	Media MediaSource

	SessionTTL    time.Duration
	SecureCookies bool
}

// Handler serves both the JSON API and the HTML shell.
type Handler struct {
	catalog  Catalog
	drafts   *services.DraftStore
	sessions *session.Registry
	notifier events.Notifier
	hub      *events.Hub
	views    *views.Renderer
	media    MediaSource

	reservations *reservationSnapshots

	sessionTTL    time.Duration
	secureCookies bool
}

func New(opts Options) *Handler {
	return &Handler{
		catalog:       opts.Catalog,
		drafts:        opts.Drafts,
		sessions:      opts.Sessions,
		notifier:      opts.Notifier,
		hub:           opts.Hub,
		views:         opts.Views,
		media:         opts.Media,
		reservations:  newReservationSnapshots(),
		sessionTTL:    opts.SessionTTL,
		secureCookies: opts.SecureCookies,
	}
}

// HasMedia reports whether the /media route should be mounted.
func (h *Handler) HasMedia() bool {
	return h.media != nil
}

func (h *Handler) notify(ctx context.Context, e events.Event) {
	if h.notifier != nil {
		h.notifier.Notify(ctx, e)
	}
}
