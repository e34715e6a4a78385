// ABOUTME: Tests for register, login, logout, me, and password change
// ABOUTME: Covers cookie attributes, generic login failures, and the login throttle

package portal

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/studio-portal/internal/auth"
)

func TestRegister(t *testing.T) {
	tp := newTestPortal(t)

	rec := tp.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "  Asha Rao ",
		"email":    "Asha@Example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "Asha Rao", user["name"])
	assert.Equal(t, "asha@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, rec.Body.String(), "correct-horse")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	cookie := responseCookie(rec, auth.CookieName)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)

	claims, err := tp.server.codec.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.Equal(t, auth.RoleUser, claims.Role)

	stored, err := tp.store.FindUserByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", stored.PasswordHash)
	assert.True(t, tp.server.hasher.Verify(context.Background(), "correct-horse", stored.PasswordHash))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	tp := newTestPortal(t)
	tp.seedUser(t, "taken@example.com", "first-password", auth.RoleUser)

	rec := tp.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Second",
		"email":    "TAKEN@example.com",
		"password": "second-password",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "user with this email already exists", errorMessage(t, rec))
	assert.Nil(t, responseCookie(rec, auth.CookieName))
}

func TestRegister_Validation(t *testing.T) {
	tp := newTestPortal(t)

	tests := []struct {
		name    string
		body    any
		wantMsg string
	}{
		{"missing name", map[string]string{"email": "a@example.com", "password": "secret1"}, "name, email, and password are required"},
		{"missing password", map[string]string{"name": "A", "email": "a@example.com"}, "name, email, and password are required"},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email", "password": "secret1"}, "email is not valid"},
		{"display name email", map[string]string{"name": "A", "email": "A <a@example.com>", "password": "secret1"}, "email is not valid"},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "12345"}, "password must be at least 6 characters long"},
		{"long password", map[string]string{"name": "A", "email": "a@example.com", "password": strings.Repeat("x", 73)}, "password must be at most 72 bytes long"},
		{"unknown field", `{"name":"A","email":"a@example.com","password":"secret1","role":"admin"}`, "invalid JSON body"},
		{"empty body", "", "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tp.do(t, http.MethodPost, "/api/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, errorMessage(t, rec))
		})
	}

	n, err := tp.store.CountUsers(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLogin(t *testing.T) {
	tp := newTestPortal(t)
	user := tp.seedUser(t, "login@example.com", "login-password", auth.RoleUser)

	rec := tp.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    " LOGIN@example.com ",
		"password": "login-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, user.ID, body["user"].(map[string]any)["id"])
	assert.NotContains(t, rec.Body.String(), "password")

	cookie := responseCookie(rec, auth.CookieName)
	require.NotNil(t, cookie)
	claims, err := tp.server.codec.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, tp.now.Add(auth.TokenTTL).Unix(), claims.ExpiresAt.Unix())
}

func TestLogin_GenericFailures(t *testing.T) {
	tp := newTestPortal(t)
	tp.seedUser(t, "real@example.com", "real-password", auth.RoleUser)

	unknown := tp.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ghost@example.com", "password": "whatever",
	})
	wrong := tp.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "real@example.com", "password": "not-the-password",
	})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.Equal(t, loginFailedMessage, errorMessage(t, wrong))
	assert.Nil(t, responseCookie(wrong, auth.CookieName))
}

func TestLogin_AdminRoleHint(t *testing.T) {
	tp := newTestPortal(t)
	tp.seedUser(t, "customer@example.com", "customer-password", auth.RoleUser)
	tp.seedUser(t, "owner@example.com", "owner-password", auth.RoleAdmin)

	rec := tp.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "customer@example.com", "password": "customer-password", "role": "admin",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, loginFailedMessage, errorMessage(t, rec))

	rec = tp.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "owner@example.com", "password": "owner-password", "role": "admin",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", decodeBody(t, rec)["user"].(map[string]any)["role"])

	rec = tp.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "owner@example.com", "password": "owner-password", "role": "superuser",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_Throttled(t *testing.T) {
	tp := newTestPortal(t)
	tp.seedUser(t, "target@example.com", "target-password", auth.RoleUser)

	for i := 0; i < 3; i++ {
		rec := tp.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email": "target@example.com", "password": "guess",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := tp.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "Target@Example.com", "password": "target-password",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Nil(t, responseCookie(rec, auth.CookieName))

	// Other accounts are unaffected.
	tp.seedUser(t, "bystander@example.com", "bystander-password", auth.RoleUser)
	rec = tp.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "bystander@example.com", "password": "bystander-password",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_SuccessResetsFailures(t *testing.T) {
	tp := newTestPortal(t)
	tp.seedUser(t, "forgetful@example.com", "right-password", auth.RoleUser)

	attempt := func(password string) int {
		return tp.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email": "forgetful@example.com", "password": password,
		}).Code
	}

	assert.Equal(t, http.StatusUnauthorized, attempt("wrong-1"))
	assert.Equal(t, http.StatusUnauthorized, attempt("wrong-2"))
	assert.Equal(t, http.StatusOK, attempt("right-password"))
	assert.Equal(t, http.StatusUnauthorized, attempt("wrong-3"))
	assert.Equal(t, http.StatusUnauthorized, attempt("wrong-4"))
	assert.Equal(t, http.StatusOK, attempt("right-password"))
}

func TestLogout(t *testing.T) {
	tp := newTestPortal(t)

	rec := tp.do(t, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", decodeBody(t, rec)["message"])

	cookie := responseCookie(rec, auth.CookieName)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestMe(t *testing.T) {
	tp := newTestPortal(t)
	user := tp.seedUser(t, "me@example.com", "me-password", auth.RoleUser)
	session := tp.sessionFor(t, user)

	rec := tp.do(t, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = tp.do(t, http.MethodGet, "/api/auth/me", nil, &http.Cookie{Name: auth.CookieName, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = tp.do(t, http.MethodGet, "/api/auth/me", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "me@example.com", decodeBody(t, rec)["user"].(map[string]any)["email"])

	require.NoError(t, tp.store.DeleteUser(context.Background(), user.ID))
	rec = tp.do(t, http.MethodGet, "/api/auth/me", nil, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChangePassword(t *testing.T) {
	tp := newTestPortal(t)
	user := tp.seedUser(t, "rotate@example.com", "old-password", auth.RoleUser)
	session := tp.sessionFor(t, user)

	rec := tp.do(t, http.MethodPost, "/api/auth/password", map[string]string{
		"currentPassword": "not-it", "newPassword": "new-password",
	}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "current password is incorrect", errorMessage(t, rec))

	rec = tp.do(t, http.MethodPost, "/api/auth/password", map[string]string{
		"currentPassword": "old-password", "newPassword": "new",
	}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = tp.do(t, http.MethodPost, "/api/auth/password", map[string]string{
		"currentPassword": "old-password", "newPassword": "new-password",
	}, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	login := func(password string) int {
		return tp.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email": "rotate@example.com", "password": password,
		}).Code
	}
	assert.Equal(t, http.StatusUnauthorized, login("old-password"))
	assert.Equal(t, http.StatusOK, login("new-password"))
}

func TestChangePassword_RequiresSession(t *testing.T) {
	tp := newTestPortal(t)

	rec := tp.do(t, http.MethodPost, "/api/auth/password", map[string]string{
		"currentPassword": "a", "newPassword": "b",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, validEmail("someone@example.com"))
	assert.False(t, validEmail("someone"))
	assert.False(t, validEmail("Someone <someone@example.com>"))
	assert.False(t, validEmail(""))
}
