// ABOUTME: Authentication API: register, login, logout, current user, password change
// ABOUTME: Login failures are generic and throttled per account

package portal

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/2389/studio-portal/internal/auth"
	"github.com/2389/studio-portal/internal/metrics"
	"github.com/2389/studio-portal/internal/store"
	"github.com/2389/studio-portal/internal/throttle"
)

// loginFailedMessage is the only message a failed login ever returns.
const loginFailedMessage = "invalid email or password"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Role, when "admin", only lets admins through.
	Role string `json:"role,omitempty"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type userResponse struct {
	Success bool             `json:"success,omitempty"`
	User    store.PublicUser `json:"user"`
}

// handleRegister handles POST /api/auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := strings.TrimSpace(req.Name)
	email := auth.NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email, and password are required")
		return
	}
	if !validEmail(email) {
		writeError(w, http.StatusBadRequest, "email is not valid")
		return
	}
	if msg, ok := checkPassword(req.Password); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	hash, err := s.hashPassword(r.Context(), req.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		writeError(w, http.StatusBadRequest, "password must be at most 72 bytes long")
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to hash password", err)
		return
	}

	user := &store.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleUser,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			writeError(w, http.StatusConflict, "user with this email already exists")
			return
		}
		s.internalError(w, r, "failed to create user", err)
		return
	}
	s.metrics.Registration()
	s.logger.Info("user registered", "user_id", user.ID)

	if err := s.startSession(w, user); err != nil {
		s.internalError(w, r, "failed to sign session token", err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{Success: true, User: user.Public()})
}

// handleLogin handles POST /api/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	var wantRole auth.Role
	if req.Role != "" {
		role, ok := auth.ParseRole(req.Role)
		if !ok {
			writeError(w, http.StatusBadRequest, "role must be user or admin")
			return
		}
		wantRole = role
	}

	ctx := r.Context()
	key := throttle.LoginKey(email)
	if err := s.limiter.Check(ctx, key); err != nil {
		if errors.Is(err, throttle.ErrRateLimited) {
			s.metrics.LoginAttempt(metrics.LoginThrottled)
			s.logger.Info("login throttled", "email", email)
			s.writeThrottled(w)
			return
		}
		// An unreachable throttle must not lock everyone out.
		s.logger.Warn("login throttle check failed", "error", err)
	}

	user, err := s.authenticate(ctx, email, req.Password)
	if err != nil {
		s.internalError(w, r, "failed to look up user", err)
		return
	}
	if user != nil && wantRole == auth.RoleAdmin && user.Role != auth.RoleAdmin {
		user = nil
	}
	if user == nil {
		s.metrics.LoginAttempt(metrics.LoginFailure)
		s.logger.Info("login failed", "email", email)
		if err := s.limiter.Fail(ctx, key); err != nil && !errors.Is(err, throttle.ErrRateLimited) {
			s.logger.Warn("recording failed login", "error", err)
		}
		writeError(w, http.StatusUnauthorized, loginFailedMessage)
		return
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		s.logger.Warn("resetting login throttle", "error", err)
	}
	if err := s.startSession(w, user); err != nil {
		s.internalError(w, r, "failed to sign session token", err)
		return
	}
	s.metrics.LoginAttempt(metrics.LoginSuccess)
	s.logger.Info("login succeeded", "user_id", user.ID, "role", user.Role)

	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user.Public()})
}

// authenticate returns the user whose password matches, or nil when the
// email is unknown or the password is wrong. Both cases cost one hash check.
func (s *Server) authenticate(ctx context.Context, email, password string) (*store.User, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.timeHash("verify", func() { s.hasher.VerifyDummy(ctx, password) })
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ok bool
	s.timeHash("verify", func() { ok = s.hasher.Verify(ctx, password, user.PasswordHash) })
	if !ok {
		return nil, nil
	}
	return user, nil
}

func (s *Server) writeThrottled(w http.ResponseWriter) {
	if cooldown := s.config.Throttle.Cooldown; cooldown > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(cooldown.Seconds())))
	}
	writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
}

// handleLogout handles POST /api/auth/logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.cookies.ClearSession(w)
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Logged out successfully"})
}

// handleMe handles GET /api/auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.MustFromContext(r.Context())

	user, err := s.store.GetUser(r.Context(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user.Public()})
}

// handleChangePassword handles POST /api/auth/password.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.MustFromContext(r.Context())

	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "current and new password are required")
		return
	}
	if msg, ok := checkPassword(req.NewPassword); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx := r.Context()
	user, err := s.store.GetUser(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to get user", err)
		return
	}

	var ok bool
	s.timeHash("verify", func() { ok = s.hasher.Verify(ctx, req.CurrentPassword, user.PasswordHash) })
	if !ok {
		writeError(w, http.StatusBadRequest, "current password is incorrect")
		return
	}

	hash, err := s.hashPassword(ctx, req.NewPassword)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		writeError(w, http.StatusBadRequest, "password must be at most 72 bytes long")
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to hash password", err)
		return
	}
	if err := s.store.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		s.internalError(w, r, "failed to update password", err)
		return
	}

	s.logger.Info("password changed", "user_id", user.ID)
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Password updated"})
}

// startSession signs a token for user and sets the session cookie.
func (s *Server) startSession(w http.ResponseWriter, user *store.User) error {
	token, err := s.codec.Sign(auth.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return err
	}
	s.cookies.SetSession(w, token)
	return nil
}

func (s *Server) hashPassword(ctx context.Context, password string) (string, error) {
	var hash string
	var err error
	s.timeHash("hash", func() { hash, err = s.hasher.Hash(ctx, password) })
	return hash, err
}

func (s *Server) timeHash(op string, fn func()) {
	start := time.Now()
	fn()
	s.metrics.ObserveHash(op, time.Since(start))
}

// validEmail accepts a bare address only, not "Name <addr>".
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// checkPassword returns a client-facing message when password is too weak.
func checkPassword(password string) (string, bool) {
	if len(password) < MinPasswordLength {
		return "password must be at least " + strconv.Itoa(MinPasswordLength) + " characters long", false
	}
	return "", true
}
