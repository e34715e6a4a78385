// ABOUTME: Configuration loading and parsing for studio-portal
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/2389/studio-portal/internal/auth"
)

// Database drivers accepted in database.driver.
const (
	DriverSQLite   = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3  = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	DriverPostgres = "pgx"     // github.com/jackc/pgx/v5/stdlib
)

// Defaults applied by Load when a field is left empty.
const (
	DefaultDriver           = DriverSQLite
	DefaultMaxLoginAttempts = 5
	DefaultCooldown         = 15 * time.Minute
	DefaultMetricsPath      = "/metrics"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// Config represents the complete studio-portal configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Throttle  ThrottleConfig  `yaml:"throttle" toml:"throttle"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// JWTSecret signs session tokens. Never logged.
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`

	// SecureCookies marks the session cookie HTTPS-only. Enable in production.
	SecureCookies bool `yaml:"secure_cookies" toml:"secure_cookies"`

	// HashWorkers bounds concurrent bcrypt computations. 0 means one per CPU.
	HashWorkers int `yaml:"hash_workers" toml:"hash_workers"`
}

// ThrottleConfig holds login throttling configuration
type ThrottleConfig struct {
	Enabled          bool          `yaml:"enabled" toml:"enabled"`
	RedisAddr        string        `yaml:"redis_addr" toml:"redis_addr"` // empty uses the in-memory limiter
	MaxLoginAttempts int           `yaml:"max_login_attempts" toml:"max_login_attempts"`
	Cooldown         time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	CooldownRaw string `yaml:"cooldown" toml:"cooldown"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"`   // Serve on :443 with Tailscale certs
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	// Path is a file path for the sqlite drivers and a connection URL for pgx.
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data, formatFor(path))
}

// Format selects the config file syntax.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes, defaults, and validates raw config bytes.
func Parse(data []byte, format Format) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDriver
	}
	if cfg.Throttle.MaxLoginAttempts == 0 {
		cfg.Throttle.MaxLoginAttempts = DefaultMaxLoginAttempts
	}
	if cfg.Throttle.Cooldown == 0 {
		cfg.Throttle.Cooldown = DefaultCooldown
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
// Error messages never include the secret itself.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverSQLite3, DriverPostgres:
	default:
		return fmt.Errorf("database.driver must be one of sqlite, sqlite3, pgx (got %q)", c.Database.Driver)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if len(c.Auth.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", auth.MinSecretLength)
	}

	if c.Auth.HashWorkers < 0 {
		return fmt.Errorf("auth.hash_workers must not be negative")
	}

	if c.Throttle.MaxLoginAttempts < 0 {
		return fmt.Errorf("throttle.max_login_attempts must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Throttle.CooldownRaw != "" {
		cfg.Throttle.Cooldown, err = time.ParseDuration(cfg.Throttle.CooldownRaw)
		if err != nil {
			return fmt.Errorf("parsing cooldown %q: %w", cfg.Throttle.CooldownRaw, err)
		}
		if cfg.Throttle.Cooldown <= 0 {
			return fmt.Errorf("cooldown must be positive (got %q)", cfg.Throttle.CooldownRaw)
		}
	}

	return nil
}

// DefaultPath returns the config file location:
// $PORTAL_CONFIG, then $XDG_CONFIG_HOME/studio-portal/portal.yaml,
// then ~/.config/studio-portal/portal.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv("PORTAL_CONFIG"); p != "" {
		return p, nil
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "studio-portal", "portal.yaml"), nil
}
