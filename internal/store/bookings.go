// ABOUTME: Booking records and admin statistics
// ABOUTME: CRUD, filtered listing by event date, and the dashboard summary

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/2389/studio-portal/internal/auth"
)

const bookingColumns = `id, customer_name, customer_email, customer_phone, event_date, event_type,
	event_location, package, package_price, status, notes, created_by, created_at, updated_at`

// CreateBooking inserts a booking. An empty ID is filled with a new UUID and
// zero timestamps with the current time. The booking must already be valid.
func (s *SQLStore) CreateBooking(ctx context.Context, booking *Booking) error {
	prepareNewBooking(booking, time.Now())

	_, err := s.exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		booking.ID,
		booking.CustomerName,
		booking.CustomerEmail,
		booking.CustomerPhone,
		formatTime(booking.EventDate),
		booking.EventType,
		booking.EventLocation,
		string(booking.Package),
		booking.PackagePrice,
		string(booking.Status),
		booking.Notes,
		nullString(booking.CreatedBy),
		formatTime(booking.CreatedAt),
		formatTime(booking.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}

	s.logger.Info("created booking", "id", booking.ID, "package", booking.Package)
	return nil
}

func prepareNewBooking(booking *Booking, now time.Time) {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if booking.Status == "" {
		booking.Status = StatusPending
	}
	booking.EventDate = booking.EventDate.UTC().Truncate(time.Second)
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now.UTC().Truncate(time.Second)
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = booking.CreatedAt
	}
}

// nullString converts empty strings to NULL
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetBooking retrieves a booking by ID.
func (s *SQLStore) GetBooking(ctx context.Context, id string) (*Booking, error) {
	row := s.queryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}
	return booking, nil
}

// UpdateBooking saves every mutable booking field. CreatedBy and CreatedAt are kept.
func (s *SQLStore) UpdateBooking(ctx context.Context, booking *Booking) error {
	booking.EventDate = booking.EventDate.UTC().Truncate(time.Second)
	booking.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	result, err := s.exec(ctx, `
		UPDATE bookings SET
			customer_name = ?, customer_email = ?, customer_phone = ?,
			event_date = ?, event_type = ?, event_location = ?,
			package = ?, package_price = ?, status = ?, notes = ?,
			updated_at = ?
		WHERE id = ?
	`,
		booking.CustomerName,
		booking.CustomerEmail,
		booking.CustomerPhone,
		formatTime(booking.EventDate),
		booking.EventType,
		booking.EventLocation,
		string(booking.Package),
		booking.PackagePrice,
		string(booking.Status),
		booking.Notes,
		formatTime(booking.UpdatedAt),
		booking.ID,
	)
	if err != nil {
		return fmt.Errorf("updating booking: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	s.logger.Info("updated booking", "id", booking.ID, "status", booking.Status)
	return nil
}

// DeleteBooking removes a booking.
func (s *SQLStore) DeleteBooking(ctx context.Context, id string) error {
	result, err := s.exec(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting booking: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	s.logger.Info("deleted booking", "id", id)
	return nil
}

// ListBookings returns one page of bookings, latest event date first, and
// the total match count.
func (s *SQLStore) ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, int, error) {
	page := filter.Page.Normalize()

	var where []string
	var args []any
	if filter.Search != "" {
		where = append(where, `(LOWER(customer_name) LIKE ? ESCAPE '\' OR LOWER(customer_email) LIKE ? ESCAPE '\')`)
		pattern := likePattern(filter.Search)
		args = append(args, pattern, pattern)
	}
	if filter.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, string(filter.Status))
	}
	if filter.Package != "" {
		where = append(where, `package = ?`)
		args = append(args, string(filter.Package))
	}
	if filter.CreatedBy != "" {
		where = append(where, `created_by = ?`)
		args = append(args, filter.CreatedBy)
	}
	clause := whereClause(where)

	var total int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM bookings`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting bookings: %w", err)
	}

	rows, err := s.query(ctx,
		`SELECT `+bookingColumns+` FROM bookings`+clause+` ORDER BY event_date DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying bookings: %w", err)
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// Stats summarizes users and bookings for the admin dashboard.
func (s *SQLStore) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	var stats Stats

	rows, err := s.query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("counting users by role: %w", err)
	}
	err = eachCount(rows, func(key string, n int) {
		stats.Users.Total += n
		switch auth.Role(key) {
		case auth.RoleAdmin:
			stats.Users.Admins = n
		case auth.RoleUser:
			stats.Users.Regular = n
		}
	})
	if err != nil {
		return nil, err
	}

	rows, err = s.query(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting bookings by status: %w", err)
	}
	err = eachCount(rows, func(key string, n int) {
		stats.Bookings.Total += n
		switch BookingStatus(key) {
		case StatusPending:
			stats.Bookings.Pending = n
		case StatusConfirmed:
			stats.Bookings.Confirmed = n
		case StatusCompleted:
			stats.Bookings.Completed = n
		case StatusCancelled:
			stats.Bookings.Cancelled = n
		}
	})
	if err != nil {
		return nil, err
	}

	if err := s.queryRow(ctx, `SELECT CAST(COALESCE(SUM(package_price), 0) AS BIGINT) FROM bookings`).Scan(&stats.Revenue); err != nil {
		return nil, fmt.Errorf("summing revenue: %w", err)
	}

	rows, err = s.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT ?`, StatsListSize)
	if err != nil {
		return nil, fmt.Errorf("querying recent users: %w", err)
	}
	if stats.RecentUsers, err = collectUsers(rows); err != nil {
		return nil, err
	}

	rows, err = s.query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE event_date >= ? AND status IN (?, ?)
		ORDER BY event_date ASC, id ASC
		LIMIT ?
	`, formatTime(now), string(StatusPending), string(StatusConfirmed), StatsListSize)
	if err != nil {
		return nil, fmt.Errorf("querying upcoming bookings: %w", err)
	}
	if stats.UpcomingBookings, err = collectBookings(rows); err != nil {
		return nil, err
	}

	return &stats, nil
}

func eachCount(rows *sql.Rows, fn func(key string, n int)) error {
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scanning count: %w", err)
		}
		fn(key, n)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating counts: %w", err)
	}
	return nil
}

func scanBooking(row rowScanner) (*Booking, error) {
	var b Booking
	var pkg, status, eventDate, createdAt, updatedAt string
	var createdBy sql.NullString

	err := row.Scan(
		&b.ID,
		&b.CustomerName,
		&b.CustomerEmail,
		&b.CustomerPhone,
		&eventDate,
		&b.EventType,
		&b.EventLocation,
		&pkg,
		&b.PackagePrice,
		&status,
		&b.Notes,
		&createdBy,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.Package = Package(pkg)
	b.Status = BookingStatus(status)
	b.CreatedBy = createdBy.String
	if b.EventDate, err = parseTime("event_date", eventDate); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]*Booking, error) {
	defer func() { _ = rows.Close() }()

	bookings := []*Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bookings: %w", err)
	}
	return bookings, nil
}
