package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"tregorent/backend/middleware"
	"tregorent/backend/storage"
)

// HealthCheck handles GET /api/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "drafts": h.drafts.Len(), "sessions": h.sessions.Len()}
	if h.hub != nil {
		body["panels"] = h.hub.ClientCount()
	}
	middleware.WriteJSON(w, http.StatusOK, body)
}

// ServeMedia handles GET /media/{path}. Only the SQLite backend stores
// images locally.
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	if path == "" || strings.Contains(path, "..") {
		http.NotFound(w, r)
		return
	}

	contentType, data, err := h.media.Get(r.Context(), path)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(data)
}
