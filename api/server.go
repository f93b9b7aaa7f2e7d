package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"tregorent/backend/handlers"
	"tregorent/backend/middleware"
)

// Sign-in attempts allowed per client address.
var (
	signInRate  = rate.Every(time.Minute / 10)
	signInBurst = 5
)

// Server represents the panel's HTTP server: the JSON API under /api and
// the HTML shell everywhere else.
type Server struct {
	router         *mux.Router
	handler        *handlers.Handler
	resolver       middleware.SessionResolver
	allowedOrigins []string
	development    bool
	signInLimiter  *middleware.RateLimiter
}

// NewServer creates a new server with all routes registered
func NewServer(h *handlers.Handler, resolver middleware.SessionResolver, allowedOrigins []string, development bool) *Server {
	s := &Server{
		router:         mux.NewRouter(),
		handler:        h,
		resolver:       resolver,
		allowedOrigins: allowedOrigins,
		development:    development,
		signInLimiter:  middleware.NewRateLimiter(signInRate, signInBurst),
	}
	s.RegisterRoutes()
	return s
}

// TrustForwardedHops sets how many proxies in front of the server are
// trusted when keying sign-in throttling on X-Forwarded-For.
func (s *Server) TrustForwardedHops(hops int) {
	s.signInLimiter.TrustForwardedHops(hops)
}

// RegisterRoutes registers all routes
func (s *Server) RegisterRoutes() {
	h := s.handler
	r := s.router
	r.Use(middleware.Authenticate(s.resolver))
	r.NotFoundHandler = http.HandlerFunc(h.NotFound)

	// Public routes (no admin required)
	r.HandleFunc("/api/health", h.HealthCheck).Methods("GET")
	limited := s.signInLimiter.Middleware()
	r.Handle("/api/session", limited(http.HandlerFunc(h.SignIn))).Methods("POST")
	r.HandleFunc("/api/session", h.GetSession).Methods("GET")
	r.HandleFunc("/api/session", h.SignOut).Methods("DELETE")
	r.HandleFunc("/login", h.LoginPage).Methods("GET")
	r.Handle("/login", limited(http.HandlerFunc(h.Login))).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")
	if h.HasMedia() {
		r.HandleFunc("/media/{path:.+}", h.ServeMedia).Methods("GET")
	}

	requireAdmin := middleware.RequireAdmin(http.HandlerFunc(h.LoadingPage))

	// Protected API routes
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(requireAdmin)

	apiRouter.HandleFunc("/listings/{kind}", h.ListListings).Methods("GET")
	apiRouter.HandleFunc("/listings/{kind}/{id}", h.GetListing).Methods("GET")
	apiRouter.HandleFunc("/listings/{kind}/{id}", h.DeleteListing).Methods("DELETE")

	apiRouter.HandleFunc("/drafts", h.CreateDraft).Methods("POST")
	apiRouter.HandleFunc("/drafts/{id}", h.GetDraft).Methods("GET")
	apiRouter.HandleFunc("/drafts/{id}", h.DiscardDraft).Methods("DELETE")
	apiRouter.HandleFunc("/drafts/{id}/fields", h.UpdateDraftFields).Methods("PATCH")
	apiRouter.HandleFunc("/drafts/{id}/images", h.StageDraftImages).Methods("POST")
	apiRouter.HandleFunc("/drafts/{id}/images/retained/{index}", h.RemoveRetainedImage).Methods("DELETE")
	apiRouter.HandleFunc("/drafts/{id}/images/staged/{stagedId}", h.GetStagedImage).Methods("GET")
	apiRouter.HandleFunc("/drafts/{id}/images/staged/{stagedId}", h.RemoveStagedImage).Methods("DELETE")
	apiRouter.HandleFunc("/drafts/{id}/submit", h.SubmitDraft).Methods("POST")

	apiRouter.HandleFunc("/reservations", h.ListReservations).Methods("GET")
	apiRouter.HandleFunc("/reservations/{id}/status", h.UpdateReservationStatus).Methods("PUT")

	apiRouter.HandleFunc("/dashboard", h.Dashboard).Methods("GET")
	apiRouter.HandleFunc("/analytics", h.Analytics).Methods("GET")
	apiRouter.HandleFunc("/events", h.Events).Methods("GET")

	// Protected pages
	pages := r.PathPrefix("").Subrouter()
	pages.Use(requireAdmin)

	const kind = "/{kind:apartments|cars}"
	pages.HandleFunc("/", h.DashboardPage).Methods("GET")
	pages.HandleFunc(kind, h.ListingsPage).Methods("GET")
	pages.HandleFunc(kind+"/new", h.NewListingForm).Methods("GET")
	pages.HandleFunc(kind+"/{id}/edit", h.EditListingForm).Methods("POST")
	pages.HandleFunc(kind+"/{id}/delete", h.DeleteListingForm).Methods("POST")

	pages.HandleFunc("/drafts/{id}", h.DraftPage).Methods("GET")
	pages.HandleFunc("/drafts/{id}", h.SaveDraftForm).Methods("POST")
	pages.HandleFunc("/drafts/{id}/retained/{index}/remove", h.RemoveRetainedForm).Methods("POST")
	pages.HandleFunc("/drafts/{id}/staged/{stagedId}/remove", h.RemoveStagedForm).Methods("POST")
	pages.HandleFunc("/drafts/{id}/discard", h.DiscardDraftForm).Methods("POST")

	pages.HandleFunc("/reservations", h.ReservationsPage).Methods("GET")
	pages.HandleFunc("/reservations/{id}/status", h.ReservationStatusForm).Methods("POST")
	pages.HandleFunc("/analytics", h.AnalyticsPage).Methods("GET")
}

// Handler returns the HTTP handler for the server, wrapped in the
// middleware that must also see unmatched requests.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	handler = middleware.CORS(s.allowedOrigins, s.development)(handler)
	handler = middleware.Logging(handler)
	handler = middleware.ErrorRecovery(handler)
	return handler
}

// Close stops the server's background workers.
func (s *Server) Close() {
	s.signInLimiter.Stop()
}
