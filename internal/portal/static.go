// ABOUTME: Serves the embedded stylesheet and script under /static/
// ABOUTME: Sets explicit content types and a short cache lifetime

package portal

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

//go:embed static
var staticFS embed.FS

// mimeFromExt returns the MIME type for a file extension.
// Falls back to the standard library's database, then application/octet-stream.
func mimeFromExt(ext string) string {
	switch ext {
	case ".js", ".mjs":
		return "application/javascript"
	case ".css":
		return "text/css; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}

// staticHandler serves files relative to the static root (strip /static/ before calling).
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("portal: failed to create static sub filesystem: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ext := strings.ToLower(path.Ext(r.URL.Path)); ext != "" {
			w.Header().Set("Content-Type", mimeFromExt(ext))
		}
		// Embedded files carry no modification time, so nothing can revalidate.
		w.Header().Set("Cache-Control", "public, max-age=300")
		fileServer.ServeHTTP(w, r)
	})
}
