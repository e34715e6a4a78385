// ABOUTME: JSON request decoding and response helpers shared by the API handlers
// ABOUTME: Errors are always {"error": "..."}; internal details stay in the log

package portal

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/2389/studio-portal/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// pagination is the page envelope returned by list endpoints.
type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func newPagination(p store.Page, total int) pagination {
	p = p.Normalize()
	return pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: p.Pages(total)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// internalError logs err and writes a generic 500.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error(msg, "error", err, "method", r.Method, "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// pageFromQuery reads page and limit query parameters. Bad values fall back to defaults.
func pageFromQuery(r *http.Request) store.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return store.Page{Page: page, Limit: limit}.Normalize()
}
