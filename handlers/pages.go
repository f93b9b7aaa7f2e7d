package handlers

import (
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"tregorent/backend/events"
	"tregorent/backend/middleware"
	"tregorent/backend/models"
	"tregorent/backend/services"
	"tregorent/backend/session"
	"tregorent/backend/views"
)

// Form fields a draft accepts, per kind.
var (
	apartmentFormFields = []string{"name", "price", "description", "bedrooms", "bathrooms", "place", "category", "contactLink"}
	carFormFields       = []string{"name", "price", "description", "model", "transmission", "airConditioning"}
)

func (h *Handler) page(r *http.Request, title string, data any) views.Page {
	return views.Page{
		Title:     title,
		Path:      r.URL.Path,
		Principal: middleware.GetPrincipal(r),
		Notice:    r.URL.Query().Get("notice"),
		Data:      data,
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, name string, page views.Page, err error) {
	status, _, message := classify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Error rendering %s: %v", r.URL.Path, err)
	}
	page.Error = message
	h.views.Render(w, status, name, page)
}

// LoadingPage is shown while a session is unresolved.
func (h *Handler) LoadingPage(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, http.StatusOK, views.PageLoading, views.Page{Title: "Loading", Path: r.URL.Path})
}

// LoginPage handles GET /login
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if s := middleware.SessionFromContext(r.Context()); s != nil && s.State() == session.StateAdmin {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.views.Render(w, http.StatusOK, views.PageLogin, views.Page{Title: "Sign in", Path: r.URL.Path})
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	s, _, err := h.sessions.SignIn(r.Context(), email, password)
	if err != nil {
		log.Printf("Sign-in failed for %s: %v", email, err)
		h.renderError(w, r, views.PageLogin, views.Page{Title: "Sign in", Path: r.URL.Path}, err)
		return
	}

	middleware.SetSessionCookie(w, s.Token(), h.sessionTTL, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.reservations.forget(viewerID(r))
	h.endSession(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// DashboardPage handles GET /
func (h *Handler) DashboardPage(w http.ResponseWriter, r *http.Request) {
	stats, err := services.CollectStats(r.Context(), h.catalog)
	page := h.page(r, "Dashboard", stats)
	if err != nil {
		h.renderError(w, r, views.PageDashboard, page, err)
		return
	}
	h.views.Render(w, http.StatusOK, views.PageDashboard, page)
}

// AnalyticsPage handles GET /analytics
func (h *Handler) AnalyticsPage(w http.ResponseWriter, r *http.Request) {
	stats, err := services.CollectStats(r.Context(), h.catalog)
	page := h.page(r, "Analytics", stats)
	if err != nil {
		h.renderError(w, r, views.PageAnalytics, page, err)
		return
	}
	h.views.Render(w, http.StatusOK, views.PageAnalytics, page)
}

func pageKind(r *http.Request) (models.ListingKind, bool) {
	kind, err := models.ParseListingKind(mux.Vars(r)["kind"])
	return kind, err == nil
}

// ListingsPage handles GET /apartments and GET /cars. The whole
// collection is fetched on every render.
func (h *Handler) ListingsPage(w http.ResponseWriter, r *http.Request) {
	kind, ok := pageKind(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	listings, err := h.catalog.ListListings(r.Context(), kind)
	page := h.page(r, kind.Label()+"s", views.ListingsData{Kind: kind, Listings: listings})
	if err != nil {
		h.renderError(w, r, views.PageListings, page, err)
		return
	}
	h.views.Render(w, http.StatusOK, views.PageListings, page)
}

// DeleteListingForm handles POST /{kind}/{id}/delete
func (h *Handler) DeleteListingForm(w http.ResponseWriter, r *http.Request) {
	kind, ok := pageKind(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	listPath := "/" + kind.Collection()

	if r.PostFormValue("confirm") != "true" {
		http.Redirect(w, r, listPath, http.StatusSeeOther)
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.catalog.DeleteListing(r.Context(), kind, id); err != nil {
		r.URL.Path = listPath
		h.renderError(w, r, views.PageListings, h.page(r, kind.Label()+"s", views.ListingsData{Kind: kind}), err)
		return
	}

	log.Printf("Deleted %s %s", kind, id)
	h.notify(r.Context(), events.ListingDeleted(kind, id))
	http.Redirect(w, r, listPath+"?notice="+kind.Label()+"+deleted", http.StatusSeeOther)
}

// NewListingForm handles GET /{kind}/new
func (h *Handler) NewListingForm(w http.ResponseWriter, r *http.Request) {
	kind, ok := pageKind(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	d := h.drafts.Open(middleware.GetUserIDFromContext(r), kind, nil)
	http.Redirect(w, r, "/drafts/"+d.ID(), http.StatusSeeOther)
}

// EditListingForm handles POST /{kind}/{id}/edit
func (h *Handler) EditListingForm(w http.ResponseWriter, r *http.Request) {
	kind, ok := pageKind(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	d, err := h.openDraft(r, kind, mux.Vars(r)["id"])
	if err != nil {
		r.URL.Path = "/" + kind.Collection()
		h.renderError(w, r, views.PageListings, h.page(r, kind.Label()+"s", views.ListingsData{Kind: kind}), err)
		return
	}
	http.Redirect(w, r, "/drafts/"+d.ID(), http.StatusSeeOther)
}

func (h *Handler) draftPage(r *http.Request, view services.DraftView) views.Page {
	page := h.page(r, view.Kind.Label(), views.NewDraftData(view))
	// Highlight the sidebar entry of the kind being edited
	page.Path = "/" + view.Kind.Collection()
	return page
}

// DraftPage handles GET /drafts/{id}
func (h *Handler) DraftPage(w http.ResponseWriter, r *http.Request) {
	d, err := h.drafts.Get(middleware.GetUserIDFromContext(r), mux.Vars(r)["id"])
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.views.Render(w, http.StatusOK, views.PageDraft, h.draftPage(r, d.View()))
}

// SaveDraftForm handles POST /drafts/{id}. The form's fields and newly
// selected images are applied; with action=submit the draft is then
// persisted.
func (h *Handler) SaveDraftForm(w http.ResponseWriter, r *http.Request) {
	d, err := h.drafts.Get(middleware.GetUserIDFromContext(r), mux.Vars(r)["id"])
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	files, err := readStagedImages(r)
	if err != nil {
		page := h.draftPage(r, d.View())
		page.Error = err.Error()
		h.views.Render(w, http.StatusBadRequest, views.PageDraft, page)
		return
	}

	view := d.View()
	names := apartmentFormFields
	if view.Kind == models.KindCar {
		names = carFormFields
	}
	values := make(map[string]string)
	for _, name := range names {
		if v, present := r.MultipartForm.Value[name]; present && len(v) > 0 {
			values[name] = v[0]
		}
	}

	if err := d.SetFields(values); err != nil {
		h.renderError(w, r, views.PageDraft, h.draftPage(r, d.View()), err)
		return
	}
	if len(files) > 0 {
		if err := d.Stage(files); err != nil {
			h.renderError(w, r, views.PageDraft, h.draftPage(r, d.View()), err)
			return
		}
	}

	if r.MultipartForm.Value["action"] == nil || r.MultipartForm.Value["action"][0] != "submit" {
		http.Redirect(w, r, "/drafts/"+d.ID(), http.StatusSeeOther)
		return
	}

	if _, err := h.submit(r, d); err != nil {
		h.renderError(w, r, views.PageDraft, h.draftPage(r, d.View()), err)
		return
	}

	notice := view.Kind.Label() + "+created"
	if view.ListingID != "" {
		notice = view.Kind.Label() + "+updated"
	}
	h.drafts.Discard(middleware.GetUserIDFromContext(r), d.ID())
	http.Redirect(w, r, "/"+view.Kind.Collection()+"?notice="+notice, http.StatusSeeOther)
}

// RemoveRetainedForm handles POST /drafts/{id}/retained/{index}/remove
func (h *Handler) RemoveRetainedForm(w http.ResponseWriter, r *http.Request) {
	d, err := h.drafts.Get(middleware.GetUserIDFromContext(r), mux.Vars(r)["id"])
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	index, convErr := strconv.Atoi(mux.Vars(r)["index"])
	if convErr != nil {
		index = -1
	}
	if err := d.RemoveRetained(index); err != nil {
		h.renderError(w, r, views.PageDraft, h.draftPage(r, d.View()), err)
		return
	}
	http.Redirect(w, r, "/drafts/"+d.ID(), http.StatusSeeOther)
}

// RemoveStagedForm handles POST /drafts/{id}/staged/{stagedId}/remove
func (h *Handler) RemoveStagedForm(w http.ResponseWriter, r *http.Request) {
	d, err := h.drafts.Get(middleware.GetUserIDFromContext(r), mux.Vars(r)["id"])
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := d.RemoveStaged(mux.Vars(r)["stagedId"]); err != nil {
		h.renderError(w, r, views.PageDraft, h.draftPage(r, d.View()), err)
		return
	}
	http.Redirect(w, r, "/drafts/"+d.ID(), http.StatusSeeOther)
}

// DiscardDraftForm handles POST /drafts/{id}/discard
func (h *Handler) DiscardDraftForm(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserIDFromContext(r)
	d, err := h.drafts.Get(owner, mux.Vars(r)["id"])
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	kind := d.View().Kind
	h.drafts.Discard(owner, d.ID())
	http.Redirect(w, r, "/"+kind.Collection(), http.StatusSeeOther)
}

// ReservationsPage handles GET /reservations
// After a status change (?patched=id) the patched snapshot is shown without
// a refetch.
func (h *Handler) ReservationsPage(w http.ResponseWriter, r *http.Request) {
	uid := viewerID(r)
	if r.URL.Query().Get("patched") != "" {
		if reservations, ok := h.reservations.load(uid); ok {
			h.views.Render(w, http.StatusOK, views.PageReservations, h.page(r, "Reservations", reservations))
			return
		}
	}

	reservations, err := h.catalog.ListReservations(r.Context())
	page := h.page(r, "Reservations", reservations)
	if err != nil {
		h.renderError(w, r, views.PageReservations, page, err)
		return
	}
	h.reservations.store(uid, reservations)
	h.views.Render(w, http.StatusOK, views.PageReservations, page)
}

// ReservationStatusForm handles POST /reservations/{id}/status
func (h *Handler) ReservationStatusForm(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, err := h.setReservationStatus(r, id, r.PostFormValue("status"))
	if err != nil {
		r.URL.Path = "/reservations"
		h.renderError(w, r, views.PageReservations, h.page(r, "Reservations", nil), err)
		return
	}

	target := "/reservations"
	if h.reservations.patch(viewerID(r), id, status) {
		target += "?patched=" + url.QueryEscape(id)
	}
	http.Redirect(w, r, target+"#reservation-"+id, http.StatusSeeOther)
}

func viewerID(r *http.Request) string {
	if p := middleware.GetPrincipal(r); p != nil {
		return p.UID
	}
	return ""
}

// NotFound sends every unknown path to the dashboard.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Unknown endpoint")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
