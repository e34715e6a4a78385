// ABOUTME: Session resolver: reads the auth-token cookie and verifies it
// ABOUTME: Reports absent, invalid, or valid sessions without any server-side state

package auth

import (
	"net/http"
)

// SessionState classifies the session carried by a request.
type SessionState int

const (
	// SessionAbsent means no auth-token cookie was sent.
	SessionAbsent SessionState = iota
	// SessionInvalid means a cookie was sent but did not verify.
	SessionInvalid
	// SessionValid means the cookie verified; Claims is set.
	SessionValid
)

func (s SessionState) String() string {
	switch s {
	case SessionAbsent:
		return "absent"
	case SessionInvalid:
		return "invalid"
	case SessionValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Session is the request-time result of looking up the session cookie.
type Session struct {
	State  SessionState
	Claims *Claims
}

// TokenVerifier verifies a token string into claims.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Resolver turns the session cookie of a request into claims.
type Resolver struct {
	verifier TokenVerifier
}

// NewResolver creates a Resolver backed by verifier.
func NewResolver(verifier TokenVerifier) *Resolver {
	return &Resolver{verifier: verifier}
}

// Lookup inspects the request cookie and reports what it found.
func (r *Resolver) Lookup(req *http.Request) Session {
	cookie, err := req.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Session{State: SessionAbsent}
	}

	claims, err := r.verifier.Verify(cookie.Value)
	if err != nil {
		return Session{State: SessionInvalid}
	}
	return Session{State: SessionValid, Claims: claims}
}

// Resolve returns the claims of a valid session.
// Missing and invalid cookies are both reported as ok=false.
func (r *Resolver) Resolve(req *http.Request) (*Claims, bool) {
	s := r.Lookup(req)
	if s.State != SessionValid {
		return nil, false
	}
	return s.Claims, true
}
