// ABOUTME: Server-rendered pages: embedded Markdown converted once with goldmark
// ABOUTME: Each request only executes the html/template layout around the cached body

package portal

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/2389/studio-portal/internal/auth"
)

//go:embed pages/*.md templates/*.html
var pageFS embed.FS

// page is one rendered route.
type page struct {
	path   string
	title  string
	source string
	body   template.HTML
}

// pageTable lists every page route and its Markdown source.
var pageTable = []page{
	{path: "/", title: "Capture the Art of Your Story", source: "home.md"},
	{path: "/login", title: "Sign in", source: "login.md"},
	{path: "/signup", title: "Create an account", source: "signup.md"},
	{path: "/admin-login", title: "Admin sign in", source: "admin-login.md"},
	{path: "/dashboard", title: "Your dashboard", source: "dashboard.md"},
	{path: "/admin", title: "Admin dashboard", source: "admin.md"},
	{path: "/admin/users", title: "Users", source: "admin-users.md"},
	{path: "/admin/bookings", title: "Bookings", source: "admin-bookings.md"},
}

type pageSet struct {
	list   []*page
	layout *template.Template
}

type pageData struct {
	Title    string
	Body     template.HTML
	Identity *auth.Claims
}

// loadPages converts every Markdown source. Raw HTML is kept so pages can carry forms.
func loadPages() (*pageSet, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	layout, err := template.ParseFS(pageFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	set := &pageSet{layout: layout}
	for _, p := range pageTable {
		src, err := pageFS.ReadFile("pages/" + p.source)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p.source, err)
		}
		var buf bytes.Buffer
		if err := md.Convert(src, &buf); err != nil {
			return nil, fmt.Errorf("rendering %s: %w", p.source, err)
		}
		p.body = template.HTML(buf.String())
		set.list = append(set.list, &p)
	}
	return set, nil
}

// pageHandler serves a rendered page. Access control already happened in the gate.
func (s *Server) pageHandler(p *page) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := pageData{Title: p.title, Body: p.body}
		if claims, ok := s.sessions.Resolve(r); ok {
			data.Identity = claims
		}

		var buf bytes.Buffer
		if err := s.pages.layout.Execute(&buf, data); err != nil {
			s.logger.Error("failed to render page", "path", p.path, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(buf.Bytes())
	})
}
