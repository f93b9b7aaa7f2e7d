package models

import (
	"errors"
	"fmt"
	"time"
)

// ReservationStatus is the closed set of states a reservation moves through.
type ReservationStatus string

const (
	StatusPending  ReservationStatus = "pending"
	StatusAccepted ReservationStatus = "accepted"
	StatusRejected ReservationStatus = "rejected"
)

var ErrInvalidStatus = errors.New("invalid reservation status")

// ParseReservationStatus rejects anything outside the closed status set.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch ReservationStatus(s) {
	case StatusPending, StatusAccepted, StatusRejected:
		return ReservationStatus(s), nil
	}
	return "", fmt.Errorf("%w %q", ErrInvalidStatus, s)
}

// Reservation is created by the public booking site; the panel only reads
// reservations and moves their status.
type Reservation struct {
	ID         string            `json:"id"`
	ItemName   string            `json:"itemName"`
	ItemType   string            `json:"itemType"`
	ItemImage  string            `json:"itemImage,omitempty"`
	UserName   string            `json:"userName"`
	StartDate  time.Time         `json:"startDate"`
	EndDate    time.Time         `json:"endDate"`
	Duration   int               `json:"duration"`
	TotalPrice float64           `json:"totalPrice"`
	Status     ReservationStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// ReservationFromDocument maps a stored reservation document.
// A missing duration is derived from the date range.
func ReservationFromDocument(id string, doc map[string]any) Reservation {
	r := Reservation{
		ID:         id,
		ItemName:   stringField(doc, "itemName"),
		ItemType:   stringField(doc, "itemType"),
		ItemImage:  stringField(doc, "itemImage"),
		UserName:   stringField(doc, "userName"),
		StartDate:  timeField(doc, "startDate"),
		EndDate:    timeField(doc, "endDate"),
		Duration:   int(floatField(doc, "duration")),
		TotalPrice: floatField(doc, "totalPrice"),
		Status:     ReservationStatus(stringField(doc, "status")),
		CreatedAt:  timeField(doc, "createdAt"),
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.Duration == 0 && !r.StartDate.IsZero() && r.EndDate.After(r.StartDate) {
		r.Duration = int(r.EndDate.Sub(r.StartDate).Hours() / 24)
	}
	return r
}

// IsPending reports whether the reservation still awaits a decision.
func (r Reservation) IsPending() bool {
	return r.Status == StatusPending
}
