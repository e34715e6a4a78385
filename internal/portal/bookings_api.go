// ABOUTME: Booking API for signed-in customers plus the shared booking request shape
// ABOUTME: Customers see and create only their own bookings

package portal

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/2389/studio-portal/internal/auth"
	"github.com/2389/studio-portal/internal/store"
)

// bookingRequest carries create and update bodies. Nil fields are left unchanged.
type bookingRequest struct {
	CustomerName  *string `json:"customerName"`
	CustomerEmail *string `json:"customerEmail"`
	CustomerPhone *string `json:"customerPhone"`
	EventDate     *string `json:"eventDate"`
	EventType     *string `json:"eventType"`
	EventLocation *string `json:"eventLocation"`
	Package       *string `json:"packageSelected"`
	PackagePrice  *int64  `json:"packagePrice"`
	Status        *string `json:"status"`
	Notes         *string `json:"notes"`
}

// Event dates are accepted as RFC 3339 timestamps or plain calendar dates.
var eventDateLayouts = []string{time.RFC3339, "2006-01-02"}

var errEventDate = errors.New("eventDate must be an RFC 3339 timestamp or a YYYY-MM-DD date")

func parseEventDate(s string) (time.Time, error) {
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errEventDate
}

// apply copies the customer-editable fields onto b.
func (req *bookingRequest) apply(b *store.Booking) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&b.CustomerName, req.CustomerName)
	set(&b.CustomerEmail, req.CustomerEmail)
	set(&b.CustomerPhone, req.CustomerPhone)
	set(&b.EventType, req.EventType)
	set(&b.EventLocation, req.EventLocation)
	set(&b.Notes, req.Notes)
	if req.Package != nil {
		b.Package = store.Package(*req.Package)
	}
	if req.EventDate != nil {
		t, err := parseEventDate(*req.EventDate)
		if err != nil {
			return err
		}
		b.EventDate = t
	}
	return nil
}

// applyAdmin also copies the fields only administrators may set.
func (req *bookingRequest) applyAdmin(b *store.Booking) error {
	if err := req.apply(b); err != nil {
		return err
	}
	if req.Status != nil {
		b.Status = store.BookingStatus(*req.Status)
	}
	if req.PackagePrice != nil {
		b.PackagePrice = *req.PackagePrice
	}
	return nil
}

type bookingResponse struct {
	Success bool           `json:"success,omitempty"`
	Booking *store.Booking `json:"booking"`
}

type bookingListResponse struct {
	Bookings   []*store.Booking `json:"bookings"`
	Pagination pagination       `json:"pagination"`
}

// bookingFilterFromQuery reads search, status, and package. Unknown enum values are rejected.
func bookingFilterFromQuery(r *http.Request) (store.BookingFilter, error) {
	q := r.URL.Query()
	filter := store.BookingFilter{
		Search:  q.Get("search"),
		Status:  store.BookingStatus(q.Get("status")),
		Package: store.Package(q.Get("package")),
		Page:    pageFromQuery(r),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, fmt.Errorf("unknown status %q", filter.Status)
	}
	if filter.Package != "" && !filter.Package.Valid() {
		return filter, fmt.Errorf("unknown package %q", filter.Package)
	}
	return filter, nil
}

// handleListMyBookings handles GET /api/bookings.
func (s *Server) handleListMyBookings(w http.ResponseWriter, r *http.Request) {
	claims := auth.MustFromContext(r.Context())

	filter, err := bookingFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.CreatedBy = claims.UserID

	s.listBookings(w, r, filter)
}

// handleCreateMyBooking handles POST /api/bookings. The booking starts pending
// at the package's list price, whatever the body says.
func (s *Server) handleCreateMyBooking(w http.ResponseWriter, r *http.Request) {
	claims := auth.MustFromContext(r.Context())

	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking := &store.Booking{CustomerEmail: claims.Email}
	if err := req.apply(booking); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	booking.Status = store.StatusPending
	booking.PackagePrice = booking.Package.ListPrice()
	booking.CreatedBy = claims.UserID

	s.createBooking(w, r, booking)
}

func (s *Server) listBookings(w http.ResponseWriter, r *http.Request, filter store.BookingFilter) {
	bookings, total, err := s.store.ListBookings(r.Context(), filter)
	if err != nil {
		s.internalError(w, r, "failed to list bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, bookingListResponse{
		Bookings:   bookings,
		Pagination: newPagination(filter.Page, total),
	})
}

func (s *Server) createBooking(w http.ResponseWriter, r *http.Request, booking *store.Booking) {
	booking.Normalize()
	if err := booking.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.CreateBooking(r.Context(), booking); err != nil {
		s.internalError(w, r, "failed to create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, bookingResponse{Success: true, Booking: booking})
}
