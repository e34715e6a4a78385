// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without a database

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/2389/studio-portal/internal/auth"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	users    map[string]*User    // keyed by user ID
	byEmail  map[string]string   // keyed by normalized email -> user ID
	bookings map[string]*Booking // keyed by booking ID

	// PingErr, when set, is returned by Ping.
	PingErr error
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:    make(map[string]*User),
		byEmail:  make(map[string]string),
		bookings: make(map[string]*Booking),
	}
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prepareNewUser(user, time.Now())
	if _, taken := m.byEmail[user.Email]; taken {
		return ErrEmailExists
	}

	// Make a copy to avoid external modification
	u := *user
	m.users[u.ID] = &u
	m.byEmail[u.Email] = u.ID
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *u
	return &result, nil
}

// FindUserByEmail retrieves a user by email.
func (m *MockStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	result := *m.users[id]
	return &result, nil
}

// UpdateUser saves name, email, and role.
func (m *MockStore) UpdateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return ErrNotFound
	}

	email := auth.NormalizeEmail(user.Email)
	if owner, taken := m.byEmail[email]; taken && owner != user.ID {
		return ErrEmailExists
	}

	delete(m.byEmail, existing.Email)
	existing.Name = strings.TrimSpace(user.Name)
	existing.Email = email
	existing.Role = user.Role
	existing.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	m.byEmail[email] = existing.ID

	user.Name, user.Email, user.UpdatedAt = existing.Name, existing.Email, existing.UpdatedAt
	return nil
}

// UpdateUserPassword replaces a user's password hash.
func (m *MockStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	return nil
}

// DeleteUser removes a user and detaches their bookings.
func (m *MockStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byEmail, u.Email)
	delete(m.users, id)

	for _, b := range m.bookings {
		if b.CreatedBy == id {
			b.CreatedBy = ""
		}
	}
	return nil
}

// ListUsers returns one page of users, newest first.
func (m *MockStore) ListUsers(ctx context.Context, filter UserFilter) ([]*User, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []*User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) && !strings.Contains(u.Email, search) {
			continue
		}
		c := *u
		matched = append(matched, &c)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	return paginate(matched, filter.Page), len(matched), nil
}

// CountUsers counts users with the given role, or all users when role is empty.
func (m *MockStore) CountUsers(ctx context.Context, role auth.Role) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, u := range m.users {
		if role == "" || u.Role == role {
			n++
		}
	}
	return n, nil
}

// CreateBooking stores a new booking.
func (m *MockStore) CreateBooking(ctx context.Context, booking *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prepareNewBooking(booking, time.Now())
	b := *booking
	m.bookings[b.ID] = &b
	return nil
}

// GetBooking retrieves a booking by ID.
func (m *MockStore) GetBooking(ctx context.Context, id string) (*Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *b
	return &result, nil
}

// UpdateBooking saves every mutable booking field.
func (m *MockStore) UpdateBooking(ctx context.Context, booking *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.bookings[booking.ID]
	if !ok {
		return ErrNotFound
	}

	booking.EventDate = booking.EventDate.UTC().Truncate(time.Second)
	booking.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	booking.CreatedBy = existing.CreatedBy
	booking.CreatedAt = existing.CreatedAt

	b := *booking
	m.bookings[b.ID] = &b
	return nil
}

// DeleteBooking removes a booking.
func (m *MockStore) DeleteBooking(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(m.bookings, id)
	return nil
}

// ListBookings returns one page of bookings, latest event date first.
func (m *MockStore) ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []*Booking
	for _, b := range m.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.Package != "" && b.Package != filter.Package {
			continue
		}
		if filter.CreatedBy != "" && b.CreatedBy != filter.CreatedBy {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(b.CustomerName), search) && !strings.Contains(b.CustomerEmail, search) {
			continue
		}
		c := *b
		matched = append(matched, &c)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].EventDate.Equal(matched[j].EventDate) {
			return matched[i].EventDate.After(matched[j].EventDate)
		}
		return matched[i].ID > matched[j].ID
	})

	return paginate(matched, filter.Page), len(matched), nil
}

// Stats summarizes users and bookings.
func (m *MockStore) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats Stats
	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		stats.Users.Total++
		switch u.Role {
		case auth.RoleAdmin:
			stats.Users.Admins++
		case auth.RoleUser:
			stats.Users.Regular++
		}
		c := *u
		users = append(users, &c)
	}

	var upcoming []*Booking
	for _, b := range m.bookings {
		stats.Bookings.Total++
		stats.Revenue += b.PackagePrice
		switch b.Status {
		case StatusPending:
			stats.Bookings.Pending++
		case StatusConfirmed:
			stats.Bookings.Confirmed++
		case StatusCompleted:
			stats.Bookings.Completed++
		case StatusCancelled:
			stats.Bookings.Cancelled++
		}
		if !b.EventDate.Before(now.UTC().Truncate(time.Second)) && (b.Status == StatusPending || b.Status == StatusConfirmed) {
			c := *b
			upcoming = append(upcoming, &c)
		}
	}

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].EventDate.Before(upcoming[j].EventDate) })

	stats.RecentUsers = paginate(users, Page{Page: 1, Limit: StatsListSize})
	stats.UpcomingBookings = paginate(upcoming, Page{Page: 1, Limit: StatsListSize})
	return &stats, nil
}

// Ping returns PingErr.
func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingErr
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

func paginate[T any](items []T, p Page) []T {
	p = p.Normalize()
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
