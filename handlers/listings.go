package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"tregorent/backend/events"
	"tregorent/backend/middleware"
	"tregorent/backend/models"
)

// kindFromRequest reads the {kind} route variable. It answers 404 itself
// when the kind is unknown.
func kindFromRequest(w http.ResponseWriter, r *http.Request) (models.ListingKind, bool) {
	kind, err := models.ParseListingKind(mux.Vars(r)["kind"])
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, err.Error())
		return "", false
	}
	return kind, true
}

// ListListings handles GET /api/listings/{kind}
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(w, r)
	if !ok {
		return
	}

	listings, err := h.catalog.ListListings(r.Context(), kind)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, listings)
}

// GetListing handles GET /api/listings/{kind}/{id}
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(w, r)
	if !ok {
		return
	}

	listing, err := h.catalog.GetListing(r.Context(), kind, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, listing)
}

// DeleteListing handles DELETE /api/listings/{kind}/{id}?confirm=true
func (h *Handler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromRequest(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrConfirmRequired, "Deleting a listing requires confirm=true")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.catalog.DeleteListing(r.Context(), kind, id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Printf("Deleted %s %s", kind, id)
	h.notify(r.Context(), events.ListingDeleted(kind, id))
	w.WriteHeader(http.StatusNoContent)
}
