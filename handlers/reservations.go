package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"tregorent/backend/events"
	"tregorent/backend/middleware"
	"tregorent/backend/models"
)

type statusRequest struct {
	Status string `json:"status"`
}

// ListReservations handles GET /api/reservations
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.catalog.ListReservations(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, reservations)
}

// UpdateReservationStatus handles PUT /api/reservations/{id}/status. The
// response carries only the changed row.
func (h *Handler) UpdateReservationStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
		return
	}

	id := mux.Vars(r)["id"]
	status, err := h.setReservationStatus(r, id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}

func (h *Handler) setReservationStatus(r *http.Request, id, raw string) (models.ReservationStatus, error) {
	status, err := models.ParseReservationStatus(raw)
	if err != nil {
		return "", err
	}
	if err := h.catalog.SetReservationStatus(r.Context(), id, status); err != nil {
		return "", err
	}
	h.notify(r.Context(), events.ReservationStatusChanged(id, status))
	return status, nil
}

// reservationSnapshots keeps the reservation list each admin was last shown,
// so the page can patch one row after a status change instead of
// refetching the collection.
type reservationSnapshots struct {
	mu    sync.Mutex
	lists map[string][]models.Reservation
}

func newReservationSnapshots() *reservationSnapshots {
	return &reservationSnapshots{lists: make(map[string][]models.Reservation)}
}

func (s *reservationSnapshots) store(uid string, list []models.Reservation) {
	if uid == "" {
		return
	}
	s.mu.Lock()
	s.lists[uid] = list
	s.mu.Unlock()
}

// patch sets the status of row id in uid's snapshot and reports whether
// the row was there to patch.
func (s *reservationSnapshots) patch(uid, id string, status models.ReservationStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lists[uid] {
		if s.lists[uid][i].ID == id {
			s.lists[uid][i].Status = status
			return true
		}
	}
	return false
}

func (s *reservationSnapshots) load(uid string) ([]models.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.lists[uid]
	if !ok {
		return nil, false
	}
	return append([]models.Reservation(nil), list...), true
}

func (s *reservationSnapshots) forget(uid string) {
	s.mu.Lock()
	delete(s.lists, uid)
	s.mu.Unlock()
}
