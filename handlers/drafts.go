package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"tregorent/backend/events"
	"tregorent/backend/middleware"
	"tregorent/backend/models"
	"tregorent/backend/services"
)

const (
	maxUploadMemory = 32 << 20
	maxImageBytes   = 10 << 20
)

type createDraftRequest struct {
	Kind      string `json:"kind"`
	ListingID string `json:"listingId,omitempty"`
}

type submitResponse struct {
	ListingID string             `json:"listingId"`
	Draft     services.DraftView `json:"draft"`
}

// openDraft starts a create draft, or an edit draft seeded from the stored
// listing when listingID is set.
func (h *Handler) openDraft(r *http.Request, kind models.ListingKind, listingID string) (*services.Draft, error) {
	var seed *models.Listing
	if listingID != "" {
		listing, err := h.catalog.GetListing(r.Context(), kind, listingID)
		if err != nil {
			return nil, err
		}
		seed = listing
	}
	return h.drafts.Open(middleware.GetUserIDFromContext(r), kind, seed), nil
}

func (h *Handler) draftFromRequest(w http.ResponseWriter, r *http.Request) (*services.Draft, bool) {
	d, err := h.drafts.Get(middleware.GetUserIDFromContext(r), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	return d, true
}

// CreateDraft handles POST /api/drafts
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
		return
	}
	kind, err := models.ParseListingKind(req.Kind)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
		return
	}

	d, err := h.openDraft(r, kind, req.ListingID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, d.View())
}

// GetDraft handles GET /api/drafts/{id}
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d.View())
}

// UpdateDraftFields handles PATCH /api/drafts/{id}/fields
func (h *Handler) UpdateDraftFields(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}

	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
		return
	}

	values := make(map[string]string, len(body))
	for name, raw := range body {
		switch v := raw.(type) {
		case string:
			values[name] = v
		case json.Number:
			values[name] = v.String()
		case nil:
			values[name] = ""
		default:
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, fmt.Sprintf("Field %s must be a string or number", name))
			return
		}
	}

	if err := d.SetFields(values); err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d.View())
}

// StageDraftImages handles POST /api/drafts/{id}/images
func (h *Handler) StageDraftImages(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}

	files, err := readStagedImages(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
		return
	}
	if err := d.Stage(files); err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d.View())
}

// GetStagedImage handles GET /api/drafts/{id}/images/staged/{stagedId}
func (h *Handler) GetStagedImage(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}

	img, found := d.StagedImage(mux.Vars(r)["stagedId"])
	if !found {
		writeServiceError(w, r, services.ErrImageNotFound)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "private, no-store")
	w.Write(img.Data)
}

// RemoveRetainedImage handles DELETE /api/drafts/{id}/images/retained/{index}
func (h *Handler) RemoveRetainedImage(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeServiceError(w, r, services.ErrImageNotFound)
		return
	}
	if err := d.RemoveRetained(index); err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d.View())
}

// RemoveStagedImage handles DELETE /api/drafts/{id}/images/staged/{stagedId}
func (h *Handler) RemoveStagedImage(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}

	if err := d.RemoveStaged(mux.Vars(r)["stagedId"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d.View())
}

// SubmitDraft handles POST /api/drafts/{id}/submit
func (h *Handler) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}

	id, err := h.submit(r, d)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, submitResponse{ListingID: id, Draft: d.View()})
}

// submit persists the draft and announces the change.
func (h *Handler) submit(r *http.Request, d *services.Draft) (string, error) {
	before := d.View()
	id, err := d.Submit(r.Context(), h.catalog)
	if err != nil {
		log.Printf("Error submitting draft %s: %v", before.ID, err)
		return "", err
	}

	if before.ListingID != "" {
		log.Printf("Updated %s %s", before.Kind, id)
		h.notify(r.Context(), events.ListingUpdated(before.Kind, id))
	} else {
		log.Printf("Created %s %s", before.Kind, id)
		h.notify(r.Context(), events.ListingCreated(before.Kind, id))
	}
	return id, nil
}

// DiscardDraft handles DELETE /api/drafts/{id}
func (h *Handler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Discard(middleware.GetUserIDFromContext(r), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readStagedImages reads the "images" files of a multipart request in
// selection order. Nothing is uploaded here.
func readStagedImages(r *http.Request) ([]services.StagedImage, error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return nil, fmt.Errorf("invalid multipart form: %w", err)
		}
	}

	headers := r.MultipartForm.File["images"]
	staged := make([]services.StagedImage, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxImageBytes {
			return nil, fmt.Errorf("%s is larger than %d MB", fh.Filename, maxImageBytes>>20)
		}

		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		if !strings.HasPrefix(contentType, "image/") {
			return nil, fmt.Errorf("%s is not an image", fh.Filename)
		}

		staged = append(staged, services.StagedImage{
			Filename:    fh.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}
	return staged, nil
}
