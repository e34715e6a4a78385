// ABOUTME: Session cookie policy for the auth-token cookie
// ABOUTME: Builds set and clear cookies with consistent attributes

package auth

import (
	"net/http"
)

// CookieName is the name of the session cookie.
const CookieName = "auth-token"

// CookiePolicy holds the deployment-dependent cookie attributes.
type CookiePolicy struct {
	// Secure marks cookies HTTPS-only. Enabled in production.
	Secure bool
}

// SessionCookie returns the cookie that carries a freshly signed token.
func (p CookiePolicy) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearedCookie returns a cookie that deletes the session cookie.
func (p CookiePolicy) ClearedCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetSession writes the session cookie for token.
func (p CookiePolicy) SetSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, p.SessionCookie(token))
}

// ClearSession writes a cookie that removes the session.
func (p CookiePolicy) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, p.ClearedCookie())
}
