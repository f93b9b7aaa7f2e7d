package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tregorent/backend/database"
	"tregorent/backend/handlers"
	"tregorent/backend/middleware"
	"tregorent/backend/migrations"
	"tregorent/backend/security"
	"tregorent/backend/services"
	"tregorent/backend/session"
	"tregorent/backend/storage"
	"tregorent/backend/views"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return newServer(t).Handler()
}

func newServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, migrations.CreateBaseSchema(db))
	require.NoError(t, migrations.SeedDevData(db))
	t.Cleanup(func() { db.Close() })

	docs := storage.NewSQLiteStore(db)
	blobs := storage.NewSQLiteBlobs(db, "http://localhost:8080")
	sealer, err := security.NewSealer("test-key")
	require.NoError(t, err)
	registry := session.NewRegistry(session.NewDevAuthenticator(sealer, "secret", time.Hour), session.NewProfileRoles(docs), time.Hour)
	renderer, err := views.New()
	require.NoError(t, err)

	h := handlers.New(handlers.Options{
		Catalog:    services.NewGateway(docs, blobs),
		Drafts:     services.NewDraftStore(time.Hour),
		Sessions:   registry,
		Views:      renderer,
		Media:      blobs,
		SessionTTL: time.Hour,
	})
	s := NewServer(h, registry, []string{"http://localhost:5173"}, false)
	t.Cleanup(s.Close)
	return s
}

func signIn(t *testing.T, srv http.Handler) *http.Cookie {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": migrations.DevAdminEmail, "password": "secret"})
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest("POST", "/api/session", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code)
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestRoutesWithoutSession(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name         string
		method       string
		path         string
		wantStatus   int
		wantLocation string
	}{
		{"health is public", "GET", "/api/health", http.StatusOK, ""},
		{"session state is public", "GET", "/api/session", http.StatusOK, ""},
		{"login page is public", "GET", "/login", http.StatusOK, ""},
		{"api needs admin", "GET", "/api/listings/apartments", http.StatusUnauthorized, ""},
		{"pages redirect to login", "GET", "/apartments", http.StatusSeeOther, "/login"},
		{"dashboard redirects to login", "GET", "/", http.StatusSeeOther, "/login"},
		{"unknown api path", "GET", "/api/nowhere", http.StatusNotFound, ""},
		{"unknown page", "GET", "/boats", http.StatusSeeOther, "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rr.Header().Get("Location"))
			}
		})
	}
}

func TestRoutesWithAdminSession(t *testing.T) {
	srv := newTestServer(t)
	cookie := signIn(t, srv)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"dashboard page", "/", http.StatusOK},
		{"apartments page", "/apartments", http.StatusOK},
		{"cars api", "/api/listings/cars", http.StatusOK},
		{"reservations api", "/api/reservations", http.StatusOK},
		{"analytics page", "/analytics", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			req.AddCookie(cookie)
			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}

	req := httptest.NewRequest("GET", "/login", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestSignOutEndsSession(t *testing.T) {
	srv := newTestServer(t)
	cookie := signIn(t, srv)

	req := httptest.NewRequest("POST", "/logout", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	req = httptest.NewRequest("GET", "/api/listings/cars", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/api/listings/cars", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestMediaRoute(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest("GET", "/media/cars/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSignInIsRateLimited(t *testing.T) {
	srv := newTestServer(t)

	codes := make([]int, 0, signInBurst+1)
	for i := 0; i <= signInBurst; i++ {
		body, _ := json.Marshal(map[string]string{"email": migrations.DevAdminEmail, "password": "wrong"})
		req := httptest.NewRequest("POST", "/api/session", bytes.NewReader(body))
		req.RemoteAddr = "203.0.113.7:4000"
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	for _, code := range codes[:signInBurst] {
		assert.Equal(t, http.StatusUnauthorized, code)
	}
	assert.Equal(t, http.StatusTooManyRequests, codes[signInBurst])

	// Other addresses keep their own budget
	body, _ := json.Marshal(map[string]string{"email": migrations.DevAdminEmail, "password": "secret"})
	req := httptest.NewRequest("POST", "/api/session", bytes.NewReader(body))
	req.RemoteAddr = "198.51.100.1:4000"
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSignInLimitIgnoresForwardedForByDefault(t *testing.T) {
	srv := newTestServer(t)

	var last int
	for i := 0; i <= signInBurst; i++ {
		body, _ := json.Marshal(map[string]string{"email": migrations.DevAdminEmail, "password": "wrong"})
		req := httptest.NewRequest("POST", "/api/session", bytes.NewReader(body))
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		last = rr.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
}
