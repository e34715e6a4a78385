// ABOUTME: User credential records: create, lookup, update, delete, and listing
// ABOUTME: Emails are unique and stored lowercased

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/studio-portal/internal/auth"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

// CreateUser inserts a new user. An empty ID is filled with a new UUID and
// zero timestamps with the current time.
// Returns ErrEmailExists if the email is already registered.
func (s *SQLStore) CreateUser(ctx context.Context, user *User) error {
	prepareNewUser(user, time.Now())

	_, err := s.exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Info("created user", "id", user.ID, "role", user.Role)
	return nil
}

func prepareNewUser(user *User, now time.Time) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = auth.NormalizeEmail(user.Email)
	user.Name = strings.TrimSpace(user.Name)
	if user.Role == "" {
		user.Role = auth.RoleUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now.UTC().Truncate(time.Second)
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
}

// GetUser retrieves a user by ID.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

// FindUserByEmail retrieves a user by email, case-insensitively.
func (s *SQLStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, auth.NormalizeEmail(email))
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return user, nil
}

// UpdateUser saves name, email, and role. The password hash is untouched;
// use UpdateUserPassword for that.
func (s *SQLStore) UpdateUser(ctx context.Context, user *User) error {
	user.Email = auth.NormalizeEmail(user.Email)
	user.Name = strings.TrimSpace(user.Name)
	user.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	result, err := s.exec(ctx, `
		UPDATE users SET name = ?, email = ?, role = ?, updated_at = ?
		WHERE id = ?
	`, user.Name, user.Email, string(user.Role), formatTime(user.UpdatedAt), user.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating user: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	s.logger.Info("updated user", "id", user.ID)
	return nil
}

// UpdateUserPassword replaces a user's password hash.
func (s *SQLStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	result, err := s.exec(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	s.logger.Info("updated user password", "id", id)
	return nil
}

// DeleteUser removes a user. Bookings they created keep existing with no creator.
func (s *SQLStore) DeleteUser(ctx context.Context, id string) error {
	result, err := s.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	s.logger.Info("deleted user", "id", id)
	return nil
}

// ListUsers returns one page of users, newest first, and the total match count.
func (s *SQLStore) ListUsers(ctx context.Context, filter UserFilter) ([]*User, int, error) {
	page := filter.Page.Normalize()

	var where []string
	var args []any
	if filter.Search != "" {
		where = append(where, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`)
		pattern := likePattern(filter.Search)
		args = append(args, pattern, pattern)
	}
	if filter.Role != "" {
		where = append(where, `role = ?`)
		args = append(args, string(filter.Role))
	}
	clause := whereClause(where)

	var total int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM users`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	rows, err := s.query(ctx,
		`SELECT `+userColumns+` FROM users`+clause+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying users: %w", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// CountUsers counts users with the given role, or all users when role is empty.
func (s *SQLStore) CountUsers(ctx context.Context, role auth.Role) (int, error) {
	var count int
	var err error
	if role == "" {
		err = s.queryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	} else {
		err = s.queryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, string(role)).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var user User
	var role, createdAt, updatedAt string

	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	user.Role = auth.Role(role)
	if user.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

func collectUsers(rows *sql.Rows) ([]*User, error) {
	defer func() { _ = rows.Close() }()

	users := []*User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}
