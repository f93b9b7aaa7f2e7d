package views

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tregorent/backend/models"
	"tregorent/backend/services"
)

func TestActiveLink(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/apartments", "/apartments"},
		{"/apartments/new", "/apartments"},
		{"/cars", "/cars"},
		{"/carsharing", ""},
		{"/reservations", "/reservations"},
		{"/analytics", "/analytics"},
		{"/drafts/abc", ""},
		{"/unknown", ""},
	}

	for _, tt := range tests {
		if got := ActiveLink(tt.path); got != tt.want {
			t.Errorf("ActiveLink(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRenderLoginHasNoSidebar(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	r.Render(rr, http.StatusUnauthorized, PageLogin, Page{Title: "Sign in", Path: "/login", Error: "Invalid email or password"})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	body := rr.Body.String()
	if strings.Contains(body, "<nav>") {
		t.Error("login page should not render the sidebar")
	}
	if !strings.Contains(body, "Invalid email or password") {
		t.Error("expected the error message on the page")
	}
}

func TestRenderListingsMarksActiveLink(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	page := Page{
		Title:     "Cars",
		Path:      "/cars",
		Principal: &models.Principal{UID: "admin", Email: "admin@tregorent.local", IsAdmin: true},
		Data: ListingsData{Kind: models.KindCar, Listings: []models.Listing{{
			ID:            "c1",
			ListingFields: models.ListingFields{Name: "Toyota Corolla", Price: 350000, Model: "2019", Transmission: "Automatic", AirConditioning: "Yes"},
		}}},
	}
	rr := httptest.NewRecorder()
	r.Render(rr, http.StatusOK, PageListings, page)

	body := rr.Body.String()
	for _, want := range []string{
		`<a href="/cars" class="active">`,
		"Toyota Corolla",
		"$350000.00",
		`action="/cars/c1/delete"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in rendered page", want)
		}
	}
	if strings.Contains(body, `<a href="/apartments" class="active">`) {
		t.Error("only one sidebar link may be active")
	}
}

func TestRenderDraftDisablesPickerWhenFull(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	view := services.DraftView{
		ID:        "d1",
		Kind:      models.KindApartment,
		ListingID: "a1",
		Retained:  []string{"https://cdn.test/1", "https://cdn.test/2", "https://cdn.test/3", "https://cdn.test/4"},
		FreeSlots: 0,
	}
	page := Page{Title: "Apartment", Path: "/apartments", Principal: &models.Principal{UID: "admin"}, Data: NewDraftData(view)}
	rr := httptest.NewRecorder()
	r.Render(rr, http.StatusOK, PageDraft, page)

	body := rr.Body.String()
	if !strings.Contains(body, `multiple disabled`) {
		t.Error("expected the image picker to be disabled")
	}
	if !strings.Contains(body, "Edit Apartment") {
		t.Error("expected edit heading")
	}
}

func TestRenderUnknownPage(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	r.Render(rr, http.StatusOK, "nope", Page{})
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}
