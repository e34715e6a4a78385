// ABOUTME: Tests for the session resolver, cookie policy, and access guard
// ABOUTME: Covers absent/invalid/valid sessions, role gating, and HTTP adapters

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func signedRequest(t *testing.T, codec *Codec, id Identity) *http.Request {
	t.Helper()
	token, err := codec.Sign(id)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	return req
}

func TestResolver_Lookup(t *testing.T) {
	now := time.Now()
	codec := newTestCodec(t, &now)
	resolver := NewResolver(codec)

	t.Run("absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		s := resolver.Lookup(req)
		if s.State != SessionAbsent || s.Claims != nil {
			t.Errorf("Lookup() = %v/%v, want absent", s.State, s.Claims)
		}
	})

	t.Run("empty value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: ""})
		if s := resolver.Lookup(req); s.State != SessionAbsent {
			t.Errorf("Lookup() = %v, want absent", s.State)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage.value.here"})
		s := resolver.Lookup(req)
		if s.State != SessionInvalid || s.Claims != nil {
			t.Errorf("Lookup() = %v/%v, want invalid", s.State, s.Claims)
		}
	})

	t.Run("valid", func(t *testing.T) {
		req := signedRequest(t, codec, Identity{UserID: "u1", Email: "a@b.com", Role: RoleUser})
		s := resolver.Lookup(req)
		if s.State != SessionValid || s.Claims == nil || s.Claims.UserID != "u1" {
			t.Errorf("Lookup() = %v/%+v, want valid u1", s.State, s.Claims)
		}
	})
}

func TestResolver_ResolveHidesInvalid(t *testing.T) {
	now := time.Now()
	resolver := NewResolver(newTestCodec(t, &now))

	missing := httptest.NewRequest(http.MethodGet, "/", nil)
	invalid := httptest.NewRequest(http.MethodGet, "/", nil)
	invalid.AddCookie(&http.Cookie{Name: CookieName, Value: "x.y.z"})

	for _, req := range []*http.Request{missing, invalid} {
		claims, ok := resolver.Resolve(req)
		if ok || claims != nil {
			t.Errorf("Resolve() = %+v, %v; want nil, false", claims, ok)
		}
	}
}

func TestGuard_RequireAuthenticated(t *testing.T) {
	now := time.Now()
	codec := newTestCodec(t, &now)
	guard := NewGuard(NewResolver(codec))

	_, err := guard.RequireAuthenticated(httptest.NewRequest(http.MethodGet, "/", nil))
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("RequireAuthenticated() without cookie error = %v, want ErrUnauthenticated", err)
	}

	claims, err := guard.RequireAuthenticated(signedRequest(t, codec, Identity{UserID: "u1", Email: "a@b.com", Role: RoleUser}))
	if err != nil {
		t.Fatalf("RequireAuthenticated() error = %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", claims.UserID)
	}
}

func TestGuard_RequireAdmin(t *testing.T) {
	now := time.Now()
	codec := newTestCodec(t, &now)
	guard := NewGuard(NewResolver(codec))

	tests := []struct {
		name    string
		req     *http.Request
		wantErr error
	}{
		{"no session", httptest.NewRequest(http.MethodGet, "/", nil), ErrUnauthenticated},
		{"user role", signedRequest(t, codec, Identity{UserID: "u1", Email: "u@b.com", Role: RoleUser}), ErrForbidden},
		{"admin role", signedRequest(t, codec, Identity{UserID: "a1", Email: "a@b.com", Role: RoleAdmin}), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := guard.RequireAdmin(tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("RequireAdmin() error = %v, want %v", err, tt.wantErr)
				}
				if claims != nil {
					t.Error("RequireAdmin() returned claims alongside an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("RequireAdmin() error = %v", err)
			}
			if !claims.IsAdmin() {
				t.Error("expected admin claims")
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	if got := HTTPStatus(ErrUnauthenticated); got != http.StatusUnauthorized {
		t.Errorf("HTTPStatus(ErrUnauthenticated) = %d", got)
	}
	if got := HTTPStatus(ErrForbidden); got != http.StatusForbidden {
		t.Errorf("HTTPStatus(ErrForbidden) = %d", got)
	}
	if got := HTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus(other) = %d", got)
	}
}

func TestRequireAdminHTTP(t *testing.T) {
	now := time.Now()
	codec := newTestCodec(t, &now)
	guard := NewGuard(NewResolver(codec))

	var gotClaims *Claims
	handler := RequireAdminHTTP(guard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = MustFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("anonymous", func(t *testing.T) {
		gotClaims = nil
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["error"] != ErrUnauthenticated.Error() {
			t.Errorf("error = %q", body["error"])
		}
		if gotClaims != nil {
			t.Error("handler should not have run")
		}
	})

	t.Run("user", func(t *testing.T) {
		gotClaims = nil
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, signedRequest(t, codec, Identity{UserID: "u1", Email: "u@b.com", Role: RoleUser}))
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
		if gotClaims != nil {
			t.Error("handler should not have run")
		}
	})

	t.Run("admin", func(t *testing.T) {
		gotClaims = nil
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, signedRequest(t, codec, Identity{UserID: "a1", Email: "a@b.com", Role: RoleAdmin}))
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
		if gotClaims == nil || gotClaims.UserID != "a1" {
			t.Errorf("claims in context = %+v", gotClaims)
		}
	})
}

func TestCookiePolicy(t *testing.T) {
	p := CookiePolicy{Secure: true}

	c := p.SessionCookie("tok")
	if c.Name != "auth-token" || c.Value != "tok" {
		t.Errorf("cookie = %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode || c.Path != "/" {
		t.Errorf("unexpected attributes: %+v", c)
	}
	if c.MaxAge != 7*24*60*60 {
		t.Errorf("MaxAge = %d, want 604800", c.MaxAge)
	}

	cleared := CookiePolicy{}.ClearedCookie()
	if cleared.MaxAge >= 0 || cleared.Value != "" || cleared.Secure {
		t.Errorf("cleared cookie = %+v", cleared)
	}
}
