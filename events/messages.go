// Package events tells connected panels and downstream consumers that
// catalog data changed.
package events

import (
	"encoding/json"
	"time"

	"tregorent/backend/models"
)

type Type string

const (
	TypeListingCreated           Type = "listing.created"
	TypeListingUpdated           Type = "listing.updated"
	TypeListingDeleted           Type = "listing.deleted"
	TypeReservationStatusChanged Type = "reservation.status_changed"
)

// Event is the envelope sent over websocket and AMQP alike.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

func New(t Type, payload any) Event {
	return Event{Type: t, Timestamp: time.Now().UTC(), Payload: payload}
}

func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

type ListingPayload struct {
	Kind models.ListingKind `json:"kind"`
	ID   string             `json:"id"`
}

type ReservationPayload struct {
	ID     string                   `json:"id"`
	Status models.ReservationStatus `json:"status"`
}

func ListingCreated(kind models.ListingKind, id string) Event {
	return New(TypeListingCreated, ListingPayload{Kind: kind, ID: id})
}

func ListingUpdated(kind models.ListingKind, id string) Event {
	return New(TypeListingUpdated, ListingPayload{Kind: kind, ID: id})
}

func ListingDeleted(kind models.ListingKind, id string) Event {
	return New(TypeListingDeleted, ListingPayload{Kind: kind, ID: id})
}

func ReservationStatusChanged(id string, status models.ReservationStatus) Event {
	return New(TypeReservationStatusChanged, ReservationPayload{ID: id, Status: status})
}
