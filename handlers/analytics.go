package handlers

import (
	"net/http"

	"tregorent/backend/middleware"
	"tregorent/backend/services"
)

type dashboardResponse struct {
	Apartments int `json:"apartments"`
	Cars       int `json:"cars"`
}

// Dashboard handles GET /api/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := services.CollectStats(r.Context(), h.catalog)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dashboardResponse{Apartments: stats.Apartments, Cars: stats.Cars})
}

// Analytics handles GET /api/analytics
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := services.CollectStats(r.Context(), h.catalog)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, stats)
}
