// ABOUTME: Store interface and data types for studio-portal persistence
// ABOUTME: Defines User, Booking, list filters, stats, and the Store interface

package store

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/2389/studio-portal/internal/auth"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when creating or renaming a user onto an email already in use
var ErrEmailExists = errors.New("email already registered")

// ErrInvalidBooking is wrapped by Booking.Validate failures
var ErrInvalidBooking = errors.New("invalid booking")

// User is a stored credential record.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         auth.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the externally visible form of a User. It has no hash field.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public strips the password hash.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// PublicUsers converts a slice of users.
func PublicUsers(users []*User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}

// Package is a photography package a booking can select.
type Package string

const (
	PackageBronze        Package = "bronze"
	PackageSilver        Package = "silver"
	PackageGold          Package = "gold"
	PackagePlatinum      Package = "platinum"
	PackagePreWedding34k Package = "pre-wedding-34000"
	PackagePreWedding16k Package = "pre-wedding-16000"
)

// Packages lists every known package.
var Packages = []Package{
	PackageBronze, PackageSilver, PackageGold, PackagePlatinum,
	PackagePreWedding34k, PackagePreWedding16k,
}

// Valid reports whether p is a known package.
func (p Package) Valid() bool {
	for _, known := range Packages {
		if p == known {
			return true
		}
	}
	return false
}

var listPrices = map[Package]int64{
	PackageBronze:        26000,
	PackageSilver:        36000,
	PackageGold:          56000,
	PackagePlatinum:      86000,
	PackagePreWedding34k: 34000,
	PackagePreWedding16k: 16000,
}

// ListPrice returns the advertised price in rupees, or 0 for an unknown package.
func (p Package) ListPrice() int64 {
	return listPrices[p]
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Booking is a customer's reservation of a package for an event.
type Booking struct {
	ID            string        `json:"id"`
	CustomerName  string        `json:"customerName"`
	CustomerEmail string        `json:"customerEmail"`
	CustomerPhone string        `json:"customerPhone"`
	EventDate     time.Time     `json:"eventDate"`
	EventType     string        `json:"eventType"`
	EventLocation string        `json:"eventLocation,omitempty"`
	Package       Package       `json:"packageSelected"`
	PackagePrice  int64         `json:"packagePrice"`
	Status        BookingStatus `json:"status"`
	Notes         string        `json:"notes,omitempty"`
	CreatedBy     string        `json:"createdBy,omitempty"` // user ID, empty once that user is deleted
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Normalize trims text fields, lowercases the email, and defaults the status.
func (b *Booking) Normalize() {
	b.CustomerName = strings.TrimSpace(b.CustomerName)
	b.CustomerEmail = auth.NormalizeEmail(b.CustomerEmail)
	b.CustomerPhone = strings.TrimSpace(b.CustomerPhone)
	b.EventType = strings.TrimSpace(b.EventType)
	b.EventLocation = strings.TrimSpace(b.EventLocation)
	b.Notes = strings.TrimSpace(b.Notes)
	if b.Status == "" {
		b.Status = StatusPending
	}
}

// Validate checks required fields and enum values.
// Errors wrap ErrInvalidBooking.
func (b *Booking) Validate() error {
	switch {
	case b.CustomerName == "":
		return fmt.Errorf("%w: customer name is required", ErrInvalidBooking)
	case b.CustomerEmail == "":
		return fmt.Errorf("%w: customer email is required", ErrInvalidBooking)
	case b.CustomerPhone == "":
		return fmt.Errorf("%w: customer phone is required", ErrInvalidBooking)
	case b.EventDate.IsZero():
		return fmt.Errorf("%w: event date is required", ErrInvalidBooking)
	case b.EventType == "":
		return fmt.Errorf("%w: event type is required", ErrInvalidBooking)
	case !b.Package.Valid():
		return fmt.Errorf("%w: unknown package %q", ErrInvalidBooking, b.Package)
	case b.PackagePrice < 0:
		return fmt.Errorf("%w: package price must not be negative", ErrInvalidBooking)
	case !b.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidBooking, b.Status)
	}
	if _, err := mail.ParseAddress(b.CustomerEmail); err != nil {
		return fmt.Errorf("%w: customer email is not valid", ErrInvalidBooking)
	}
	return nil
}

// Page limits for list queries.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pages returns how many pages total rows span.
func (p Page) Pages(total int) int {
	if p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// UserFilter narrows ListUsers. Empty fields match everything.
type UserFilter struct {
	Search string // case-insensitive substring of name or email
	Role   auth.Role
	Page
}

// BookingFilter narrows ListBookings. Empty fields match everything.
type BookingFilter struct {
	Search    string // case-insensitive substring of customer name or email
	Status    BookingStatus
	Package   Package
	CreatedBy string
	Page
}

// UserCounts groups user totals by role.
type UserCounts struct {
	Total   int `json:"total"`
	Admins  int `json:"admins"`
	Regular int `json:"regular"`
}

// BookingCounts groups booking totals by status.
type BookingCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	Users            UserCounts
	Bookings         BookingCounts
	Revenue          int64 // sum of package prices across all bookings
	RecentUsers      []*User
	UpcomingBookings []*Booking // pending or confirmed, event date not yet passed
}

// StatsListSize is how many recent users and upcoming bookings Stats returns.
const StatsListSize = 5

// Store defines the persistence operations the portal needs.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, filter UserFilter) ([]*User, int, error)
	CountUsers(ctx context.Context, role auth.Role) (int, error)

	// Bookings
	CreateBooking(ctx context.Context, booking *Booking) error
	GetBooking(ctx context.Context, id string) (*Booking, error)
	UpdateBooking(ctx context.Context, booking *Booking) error
	DeleteBooking(ctx context.Context, id string) error
	ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, int, error)

	// Stats summarizes users and bookings relative to now.
	Stats(ctx context.Context, now time.Time) (*Stats, error)

	Ping(ctx context.Context) error
	Close() error
}
