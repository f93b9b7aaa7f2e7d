// Package views renders the server-side pages of the admin panel.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tregorent/backend/models"
	"tregorent/backend/services"
)

//go:embed templates/*.html
var templateFS embed.FS

// NavLink is one entry of the sidebar.
type NavLink struct {
	Href  string
	Label string
}

var Navigation = []NavLink{
	{Href: "/", Label: "Dashboard"},
	{Href: "/apartments", Label: "Apartments"},
	{Href: "/cars", Label: "Cars"},
	{Href: "/reservations", Label: "Reservations"},
	{Href: "/analytics", Label: "Analytics"},
}

// ActiveLink returns the sidebar href that matches path. The dashboard
// matches only "/" itself.
func ActiveLink(path string) string {
	for _, link := range Navigation {
		if link.Href == "/" {
			if path == "/" {
				return link.Href
			}
			continue
		}
		if path == link.Href || strings.HasPrefix(path, link.Href+"/") {
			return link.Href
		}
	}
	return ""
}

// Page is what every template receives.
type Page struct {
	Title     string
	Path      string
	Principal *models.Principal
	Notice    string
	Error     string
	Data      any
}

// Active reports whether href is the highlighted sidebar link.
func (p Page) Active(href string) bool {
	return ActiveLink(p.Path) == href
}

const (
	PageLogin        = "login"
	PageLoading      = "loading"
	PageDashboard    = "dashboard"
	PageListings     = "listings"
	PageDraft        = "draft"
	PageReservations = "reservations"
	PageAnalytics    = "analytics"
)

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	funcs := template.FuncMap{
		"nav":   func() []NavLink { return Navigation },
		"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format("2006-01-02")
		},
		"num": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageLogin, PageLoading, PageDashboard, PageListings, PageDraft, PageReservations, PageAnalytics} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) {
	t, ok := r.pages[name]
	if !ok {
		log.Printf("Unknown page template %s", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, page); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// ListingsData feeds the apartments and cars pages.
type ListingsData struct {
	Kind     models.ListingKind
	Listings []models.Listing
}

// DraftData feeds the listing editor.
type DraftData struct {
	Draft           services.DraftView
	Label           string
	IsCar           bool
	Transmissions   []string
	AirConditioning []string
}

func NewDraftData(view services.DraftView) DraftData {
	return DraftData{
		Draft:           view,
		Label:           view.Kind.Label(),
		IsCar:           view.Kind == models.KindCar,
		Transmissions:   []string{models.TransmissionAutomatic, models.TransmissionManual},
		AirConditioning: []string{models.AirConditioningYes, models.AirConditioningNo},
	}
}
