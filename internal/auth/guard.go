// ABOUTME: Access guard used by every protected operation
// ABOUTME: RequireAuthenticated/RequireAdmin plus HTTP middleware adapters

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Guard errors
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("admin access required")
)

// SessionResolver resolves a request to session claims.
type SessionResolver interface {
	Resolve(r *http.Request) (*Claims, bool)
}

// Guard is the authoritative authorization check at the operation boundary.
type Guard struct {
	sessions SessionResolver
}

// NewGuard creates a Guard over the given resolver.
func NewGuard(sessions SessionResolver) *Guard {
	return &Guard{sessions: sessions}
}

// RequireAuthenticated returns the caller's claims or ErrUnauthenticated.
func (g *Guard) RequireAuthenticated(r *http.Request) (*Claims, error) {
	claims, ok := g.sessions.Resolve(r)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// RequireAdmin returns the caller's claims if they hold the admin role.
// Fails with ErrUnauthenticated or ErrForbidden.
func (g *Guard) RequireAdmin(r *http.Request) (*Claims, error) {
	claims, err := g.RequireAuthenticated(r)
	if err != nil {
		return nil, err
	}
	if !claims.IsAdmin() {
		return nil, ErrForbidden
	}
	return claims, nil
}

// HTTPStatus maps guard errors to their fixed HTTP status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RequireAuthHTTP wraps a handler so it only runs for authenticated callers.
// The caller's claims are available to the handler through FromContext.
func RequireAuthHTTP(g *Guard) func(http.Handler) http.Handler {
	return guardHTTP(g.RequireAuthenticated)
}

// RequireAdminHTTP wraps a handler so it only runs for admins.
func RequireAdminHTTP(g *Guard) func(http.Handler) http.Handler {
	return guardHTTP(g.RequireAdmin)
}

func guardHTTP(check func(*http.Request) (*Claims, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := check(r)
			if err != nil {
				writeGuardError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func writeGuardError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
