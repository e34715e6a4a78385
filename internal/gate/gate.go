// ABOUTME: Page-route gate that redirects browsers based on the session cookie
// ABOUTME: Classifies paths, decides pass/redirect, and applies the decision once

package gate

import (
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/2389/studio-portal/internal/auth"
)

// Category is the class a request path falls into.
type Category int

const (
	CategoryBypass Category = iota
	CategoryRoot
	CategoryAuthEntry
	CategoryUserArea
	CategoryAdminArea
	CategoryOther
)

func (c Category) String() string {
	switch c {
	case CategoryBypass:
		return "bypass"
	case CategoryRoot:
		return "root"
	case CategoryAuthEntry:
		return "auth_entry"
	case CategoryUserArea:
		return "user_area"
	case CategoryAdminArea:
		return "admin_area"
	default:
		return "other"
	}
}

// Outcome is what the gate does with a request.
type Outcome int

const (
	Pass Outcome = iota
	RedirectLogin
	RedirectRoleHome
	RedirectUserHome
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case RedirectLogin:
		return "redirect_login"
	case RedirectRoleHome:
		return "redirect_role_home"
	case RedirectUserHome:
		return "redirect_user_home"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating one request.
// Location is empty for Pass.
type Decision struct {
	Outcome     Outcome
	Location    string
	ClearCookie bool
}

// Namespaces served without any session check.
var bypassPrefixes = []string{"/api", "/static"}

var (
	authEntryPaths  = []string{"/login", "/signup"}
	userAreaPrefix  = auth.UserHome
	adminAreaPrefix = auth.AdminHome
)

// Classify maps a request path to its category.
func Classify(p string) Category {
	if p == "" {
		p = "/"
	}

	for _, prefix := range bypassPrefixes {
		if underPrefix(p, prefix) {
			return CategoryBypass
		}
	}
	if hasFileExtension(p) {
		return CategoryBypass
	}

	if p == "/" {
		return CategoryRoot
	}
	for _, entry := range authEntryPaths {
		if p == entry || p == entry+"/" {
			return CategoryAuthEntry
		}
	}
	if underPrefix(p, userAreaPrefix) {
		return CategoryUserArea
	}
	if underPrefix(p, adminAreaPrefix) {
		return CategoryAdminArea
	}
	return CategoryOther
}

// underPrefix reports whether p is prefix itself or lies beneath it.
// "/admin-login" is not under "/admin".
func underPrefix(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func hasFileExtension(p string) bool {
	last := p[strings.LastIndex(p, "/")+1:]
	return path.Ext(last) != ""
}

// SessionLookup reports the session state carried by a request.
type SessionLookup interface {
	Lookup(r *http.Request) auth.Session
}

// Recorder receives one call per gate decision.
type Recorder interface {
	GateDecision(category, outcome string)
}

// Gate redirects page requests according to the caller's session.
// It only steers navigation; API handlers still call the auth.Guard.
type Gate struct {
	sessions SessionLookup
	cookies  auth.CookiePolicy
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithRecorder sets the decision recorder.
func WithRecorder(r Recorder) Option {
	return func(g *Gate) {
		g.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = l
	}
}

// New creates a Gate.
func New(sessions SessionLookup, cookies auth.CookiePolicy, opts ...Option) *Gate {
	g := &Gate{
		sessions: sessions,
		cookies:  cookies,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "gate")
	return g
}

// Decide evaluates a request without side effects.
func (g *Gate) Decide(r *http.Request) Decision {
	_, d := g.evaluate(r)
	return d
}

func (g *Gate) evaluate(r *http.Request) (Category, Decision) {
	category := Classify(r.URL.Path)

	switch category {
	case CategoryBypass, CategoryOther:
		return category, Decision{Outcome: Pass}
	}

	s := g.sessions.Lookup(r)

	switch category {
	case CategoryRoot, CategoryAuthEntry:
		if s.State == auth.SessionValid {
			return category, Decision{Outcome: RedirectRoleHome, Location: s.Claims.Role.Home()}
		}
		return category, Decision{Outcome: Pass}

	case CategoryUserArea, CategoryAdminArea:
		switch s.State {
		case auth.SessionAbsent:
			return category, Decision{Outcome: RedirectLogin, Location: auth.LoginPage}
		case auth.SessionInvalid:
			return category, Decision{Outcome: RedirectLogin, Location: auth.LoginPage, ClearCookie: true}
		}
		if category == CategoryAdminArea && !s.Claims.IsAdmin() {
			return category, Decision{Outcome: RedirectUserHome, Location: auth.UserHome}
		}
		return category, Decision{Outcome: Pass}
	}

	return category, Decision{Outcome: Pass}
}

// Middleware applies the decision for each request exactly once.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Err() != nil {
			return
		}

		category, d := g.evaluate(r)
		if g.recorder != nil {
			g.recorder.GateDecision(category.String(), d.Outcome.String())
		}

		if d.ClearCookie {
			g.cookies.ClearSession(w)
		}
		if d.Outcome == Pass {
			next.ServeHTTP(w, r)
			return
		}

		g.logger.Debug("redirecting",
			"path", r.URL.Path,
			"category", category.String(),
			"outcome", d.Outcome.String(),
			"location", d.Location,
		)
		http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
	})
}
