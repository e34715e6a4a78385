// ABOUTME: database/sql implementation of the Store interface
// ABOUTME: Opens SQLite (modernc or mattn) or Postgres (pgx) and applies goose migrations

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverSQLite3  = "sqlite3"
	DriverPostgres = "pgx"
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLStore implements the Store interface over database/sql.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

var _ Store = (*SQLStore)(nil)

// Open connects to the database and brings the schema up to date.
// For the SQLite drivers path is a file path (parent directories are
// created) or MemoryPath; for pgx it is a connection URL.
func Open(ctx context.Context, driver, path string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	dsn, err := dataSourceName(driver, path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if isSQLite(driver) && path == MemoryPath {
		// Every new connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLStore{
		db:     db,
		driver: driver,
		logger: logger,
	}

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	// pgx URLs may carry credentials; only log the driver for them.
	if isSQLite(driver) {
		logger.Info("store initialized", "driver", driver, "path", path)
	} else {
		logger.Info("store initialized", "driver", driver)
	}
	return s, nil
}

func isSQLite(driver string) bool {
	return driver == DriverSQLite || driver == DriverSQLite3
}

// dataSourceName builds the driver-specific DSN. SQLite pragmas go in the DSN
// so they apply to every pooled connection.
func dataSourceName(driver, path string) (string, error) {
	switch driver {
	case DriverPostgres:
		return path, nil
	case DriverSQLite, DriverSQLite3:
		if path == MemoryPath {
			return path, nil
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", fmt.Errorf("creating database directory: %w", err)
		}
		if driver == DriverSQLite {
			return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
		}
		return "file:" + path + "?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (s *SQLStore) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	dialect := goose.DialectSQLite3
	if s.driver == DriverPostgres {
		dialect = goose.DialectPostgres
	}

	provider, err := goose.NewProvider(dialect, s.db, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		s.logger.Info("applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders into $1, $2, ... for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// isUniqueConstraintError reports whether err is a unique index violation on
// any supported driver.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// SQLite drivers report "UNIQUE constraint failed: table.column"
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// requireAffected maps a zero-row update or delete to ErrNotFound.
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Timestamps are stored as RFC3339 UTC text so they sort lexically on every driver.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", field, err)
	}
	return t, nil
}

// likePattern builds a case-insensitive substring pattern for LOWER(col) LIKE ?.
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(search)) + "%"
}
