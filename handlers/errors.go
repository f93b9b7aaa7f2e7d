package handlers

import (
	"errors"
	"log"
	"net/http"

	"tregorent/backend/middleware"
	"tregorent/backend/models"
	"tregorent/backend/services"
	"tregorent/backend/session"
	"tregorent/backend/storage"
)

// classify maps a service error to an HTTP status, an error code and a
// message fit for the admin.
func classify(err error) (int, string, string) {
	var uploadErr *services.UploadError
	var writeErr *services.WriteError
	var denied *session.AccessDeniedError
	var lookupErr *session.RoleLookupError

	switch {
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable, middleware.ErrServiceUnavailable, "The backend is not available, check the server configuration"
	case errors.Is(err, models.ErrInvalidListing),
		errors.Is(err, services.ErrUnknownField),
		errors.Is(err, services.ErrInvalidValue),
		errors.Is(err, models.ErrInvalidStatus):
		return http.StatusBadRequest, middleware.ErrValidation, err.Error()
	case errors.Is(err, services.ErrTooManyImages):
		return http.StatusBadRequest, middleware.ErrValidation, "A listing can hold at most 4 images"
	case errors.Is(err, services.ErrSubmitInProgress):
		return http.StatusConflict, middleware.ErrConflict, "A submission for this draft is already in progress"
	case errors.Is(err, services.ErrDraftNotFound):
		return http.StatusNotFound, middleware.ErrNotFound, "Draft not found"
	case errors.Is(err, services.ErrImageNotFound):
		return http.StatusNotFound, middleware.ErrNotFound, "Image not found"
	case errors.As(err, &uploadErr):
		return http.StatusBadGateway, middleware.ErrUploadFailed, "Uploading an image failed, nothing was saved"
	case services.IsNotFound(err):
		return http.StatusNotFound, middleware.ErrNotFound, "Record not found"
	case errors.As(err, &writeErr):
		return http.StatusBadGateway, middleware.ErrWriteFailed, "Saving the record failed"
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized, middleware.ErrUnauthorized, "Invalid email or password"
	case errors.As(err, &denied):
		return http.StatusForbidden, middleware.ErrForbidden, "Access denied: admin privileges required"
	case errors.As(err, &lookupErr):
		return http.StatusForbidden, middleware.ErrForbidden, "Could not verify admin privileges"
	}
	return http.StatusInternalServerError, middleware.ErrInternalError, "An unexpected error occurred"
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Error handling %s %s: %v", r.Method, r.URL.Path, err)
	}
	middleware.WriteError(w, status, code, message)
}
