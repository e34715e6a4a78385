// ABOUTME: Administrator API: user management, booking management, and dashboard stats
// ABOUTME: Every route here is wrapped by the admin guard

package portal

import (
	"errors"
	"net/http"
	"strings"

	"github.com/2389/studio-portal/internal/auth"
	"github.com/2389/studio-portal/internal/store"
)

type userListResponse struct {
	Users      []store.PublicUser `json:"users"`
	Pagination pagination         `json:"pagination"`
}

// userUpdateRequest is the PUT body. Nil fields are left unchanged.
type userUpdateRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

type revenueStats struct {
	Total int64 `json:"total"`
}

type statsBody struct {
	Users    store.UserCounts    `json:"users"`
	Bookings store.BookingCounts `json:"bookings"`
	Revenue  revenueStats        `json:"revenue"`
}

type statsResponse struct {
	Stats            statsBody          `json:"stats"`
	RecentUsers      []store.PublicUser `json:"recentUsers"`
	UpcomingBookings []*store.Booking   `json:"upcomingBookings"`
}

// handleStats handles GET /api/admin/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context(), s.now())
	if err != nil {
		s.internalError(w, r, "failed to compute stats", err)
		return
	}

	upcoming := stats.UpcomingBookings
	if upcoming == nil {
		upcoming = []*store.Booking{}
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Stats: statsBody{
			Users:    stats.Users,
			Bookings: stats.Bookings,
			Revenue:  revenueStats{Total: stats.Revenue},
		},
		RecentUsers:      store.PublicUsers(stats.RecentUsers),
		UpcomingBookings: upcoming,
	})
}

// handleListUsers handles GET /api/admin/users.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.UserFilter{
		Search: q.Get("search"),
		Page:   pageFromQuery(r),
	}
	if raw := q.Get("role"); raw != "" {
		role, ok := auth.ParseRole(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "role must be user or admin")
			return
		}
		filter.Role = role
	}

	users, total, err := s.store.ListUsers(r.Context(), filter)
	if err != nil {
		s.internalError(w, r, "failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, userListResponse{
		Users:      store.PublicUsers(users),
		Pagination: newPagination(filter.Page, total),
	})
}

// handleGetUser handles GET /api/admin/users/{id}.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.lookupUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user.Public()})
}

// handleUpdateUser handles PUT /api/admin/users/{id}. A password, when
// present, is re-hashed before it is stored.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, ok := s.lookupUser(w, r)
	if !ok {
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		user.Name = name
	}
	if req.Email != nil {
		email := auth.NormalizeEmail(*req.Email)
		if !validEmail(email) {
			writeError(w, http.StatusBadRequest, "email is not valid")
			return
		}
		user.Email = email
	}
	if req.Role != nil {
		role, ok := auth.ParseRole(*req.Role)
		if !ok {
			writeError(w, http.StatusBadRequest, "role must be user or admin")
			return
		}
		user.Role = role
	}

	var newHash string
	if req.Password != nil {
		if msg, ok := checkPassword(*req.Password); !ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		hash, err := s.hashPassword(r.Context(), *req.Password)
		if errors.Is(err, auth.ErrPasswordTooLong) {
			writeError(w, http.StatusBadRequest, "password must be at most 72 bytes long")
			return
		}
		if err != nil {
			s.internalError(w, r, "failed to hash password", err)
			return
		}
		newHash = hash
	}

	ctx := r.Context()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, store.ErrEmailExists):
			writeError(w, http.StatusConflict, "user with this email already exists")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			s.internalError(w, r, "failed to update user", err)
		}
		return
	}
	if newHash != "" {
		if err := s.store.UpdateUserPassword(ctx, user.ID, newHash); err != nil {
			s.internalError(w, r, "failed to update user password", err)
			return
		}
	}

	admin := auth.MustFromContext(ctx)
	s.logger.Info("user updated by admin", "user_id", user.ID, "admin_id", admin.UserID, "password_changed", newHash != "")
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user.Public()})
}

// handleDeleteUser handles DELETE /api/admin/users/{id}.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.store.DeleteUser(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to delete user", err)
		return
	}

	admin := auth.MustFromContext(r.Context())
	s.logger.Info("user deleted by admin", "user_id", id, "admin_id", admin.UserID)
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "User deleted successfully"})
}

func (s *Server) lookupUser(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	user, err := s.store.GetUser(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return nil, false
	}
	if err != nil {
		s.internalError(w, r, "failed to get user", err)
		return nil, false
	}
	return user, true
}

// handleListBookings handles GET /api/admin/bookings.
func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.listBookings(w, r, filter)
}

// handleCreateBooking handles POST /api/admin/bookings. The price defaults to
// the package's list price.
func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	claims := auth.MustFromContext(r.Context())

	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking := &store.Booking{}
	if err := req.applyAdmin(booking); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PackagePrice == nil {
		booking.PackagePrice = booking.Package.ListPrice()
	}
	booking.CreatedBy = claims.UserID

	s.createBooking(w, r, booking)
}

// handleGetBooking handles GET /api/admin/bookings/{id}.
func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, ok := s.lookupBooking(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, bookingResponse{Booking: booking})
}

// handleUpdateBooking handles PUT /api/admin/bookings/{id}.
func (s *Server) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, ok := s.lookupBooking(w, r)
	if !ok {
		return
	}
	if err := req.applyAdmin(booking); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	booking.Normalize()
	if err := booking.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.store.UpdateBooking(r.Context(), booking)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to update booking", err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResponse{Success: true, Booking: booking})
}

// handleDeleteBooking handles DELETE /api/admin/bookings/{id}.
func (s *Server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteBooking(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to delete booking", err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Booking deleted successfully"})
}

func (s *Server) lookupBooking(w http.ResponseWriter, r *http.Request) (*store.Booking, bool) {
	booking, err := s.store.GetBooking(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "booking not found")
		return nil, false
	}
	if err != nil {
		s.internalError(w, r, "failed to get booking", err)
		return nil, false
	}
	return booking, true
}
