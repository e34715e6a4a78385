// ABOUTME: Route table for the portal mux
// ABOUTME: API routes call the access guard; pages rely on the gate middleware

package portal

import (
	"net/http"

	"github.com/2389/studio-portal/internal/auth"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Health endpoints - no auth required
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)

	if s.config.Metrics.Enabled {
		mux.Handle("GET "+s.config.Metrics.Path, s.metrics.Handler())
	}

	mux.Handle("GET /static/", http.StripPrefix("/static/", staticHandler()))

	requireAuth := auth.RequireAuthHTTP(s.guard)
	requireAdmin := auth.RequireAdminHTTP(s.guard)

	// Authentication
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.Handle("GET /api/auth/me", requireAuth(http.HandlerFunc(s.handleMe)))
	mux.Handle("POST /api/auth/password", requireAuth(http.HandlerFunc(s.handleChangePassword)))

	// The caller's own bookings
	mux.Handle("GET /api/bookings", requireAuth(http.HandlerFunc(s.handleListMyBookings)))
	mux.Handle("POST /api/bookings", requireAuth(http.HandlerFunc(s.handleCreateMyBooking)))

	// Administration
	mux.Handle("GET /api/admin/stats", requireAdmin(http.HandlerFunc(s.handleStats)))
	mux.Handle("GET /api/admin/users", requireAdmin(http.HandlerFunc(s.handleListUsers)))
	mux.Handle("GET /api/admin/users/{id}", requireAdmin(http.HandlerFunc(s.handleGetUser)))
	mux.Handle("PUT /api/admin/users/{id}", requireAdmin(http.HandlerFunc(s.handleUpdateUser)))
	mux.Handle("DELETE /api/admin/users/{id}", requireAdmin(http.HandlerFunc(s.handleDeleteUser)))
	mux.Handle("GET /api/admin/bookings", requireAdmin(http.HandlerFunc(s.handleListBookings)))
	mux.Handle("POST /api/admin/bookings", requireAdmin(http.HandlerFunc(s.handleCreateBooking)))
	mux.Handle("GET /api/admin/bookings/{id}", requireAdmin(http.HandlerFunc(s.handleGetBooking)))
	mux.Handle("PUT /api/admin/bookings/{id}", requireAdmin(http.HandlerFunc(s.handleUpdateBooking)))
	mux.Handle("DELETE /api/admin/bookings/{id}", requireAdmin(http.HandlerFunc(s.handleDeleteBooking)))

	// Pages
	for _, p := range s.pages.list {
		pattern := "GET " + p.path
		if p.path == "/" {
			pattern = "GET /{$}"
		}
		mux.Handle(pattern, s.pageHandler(p))
	}
}
