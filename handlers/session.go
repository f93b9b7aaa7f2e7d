package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"tregorent/backend/middleware"
	"tregorent/backend/models"
	"tregorent/backend/session"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	State     string            `json:"state"`
	Principal *models.Principal `json:"principal,omitempty"`
}

// SignIn handles POST /api/session
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Email and password are required")
		return
	}

	s, principal, err := h.sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Printf("Sign-in failed for %s: %v", req.Email, err)
		writeServiceError(w, r, err)
		return
	}

	middleware.SetSessionCookie(w, s.Token(), h.sessionTTL, h.secureCookies)
	middleware.WriteJSON(w, http.StatusOK, sessionResponse{State: s.State().String(), Principal: principal})
}

// GetSession handles GET /api/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	state := session.StateUnauthenticated
	if s := middleware.SessionFromContext(r.Context()); s != nil {
		state = s.State()
	}
	middleware.WriteJSON(w, http.StatusOK, sessionResponse{State: state.String(), Principal: middleware.GetPrincipal(r)})
}

// SignOut handles DELETE /api/session
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.sessions.SignOut(r.Context(), token); err != nil {
			log.Printf("Error signing out: %v", err)
		}
	}
	middleware.ClearSessionCookie(w, h.secureCookies)
}
