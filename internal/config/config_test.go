// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// validConfig returns a Config that passes Validate.
func validConfig() Config {
	return Config{
		Server:   ServerConfig{HTTPAddr: "127.0.0.1:3000"},
		Database: DatabaseConfig{Driver: DriverSQLite, Path: "./test.db"},
		Auth:     AuthConfig{JWTSecret: testSecret},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Metrics:  MetricsConfig{Path: "/metrics"},
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, "portal.yaml", `
server:
  http_addr: "0.0.0.0:3000"

database:
  driver: "pgx"
  path: "postgres://portal:pw@localhost:5432/portal"

auth:
  jwt_secret: "`+testSecret+`"
  secure_cookies: true
  hash_workers: 3

throttle:
  enabled: true
  redis_addr: "localhost:6379"
  max_login_attempts: 8
  cooldown: "10m"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/internal/metrics"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:3000" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:3000")
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverPostgres)
	}
	if cfg.Database.Path != "postgres://portal:pw@localhost:5432/portal" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Auth.JWTSecret != testSecret {
		t.Error("Auth.JWTSecret was not loaded")
	}
	if !cfg.Auth.SecureCookies {
		t.Error("Auth.SecureCookies = false, want true")
	}
	if cfg.Auth.HashWorkers != 3 {
		t.Errorf("Auth.HashWorkers = %d, want 3", cfg.Auth.HashWorkers)
	}
	if !cfg.Throttle.Enabled || cfg.Throttle.RedisAddr != "localhost:6379" {
		t.Errorf("Throttle = %+v", cfg.Throttle)
	}
	if cfg.Throttle.MaxLoginAttempts != 8 {
		t.Errorf("Throttle.MaxLoginAttempts = %d, want 8", cfg.Throttle.MaxLoginAttempts)
	}
	if cfg.Throttle.Cooldown != 10*time.Minute {
		t.Errorf("Throttle.Cooldown = %v, want %v", cfg.Throttle.Cooldown, 10*time.Minute)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/internal/metrics" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "portal.toml", `
[server]
http_addr = "127.0.0.1:4000"

[database]
path = "/var/lib/portal.db"

[auth]
jwt_secret = "`+testSecret+`"

[throttle]
enabled = true
cooldown = "90s"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:4000" {
		t.Errorf("Server.HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Database.Path != "/var/lib/portal.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Throttle.Cooldown != 90*time.Second {
		t.Errorf("Throttle.Cooldown = %v, want 90s", cfg.Throttle.Cooldown)
	}
	if cfg.Database.Driver != DefaultDriver {
		t.Errorf("Database.Driver = %q, want default %q", cfg.Database.Driver, DefaultDriver)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, "portal.yaml", `
server:
  http_addr: ":3000"
database:
  path: "./portal.db"
auth:
  jwt_secret: "`+testSecret+`"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverSQLite)
	}
	if cfg.Throttle.MaxLoginAttempts != DefaultMaxLoginAttempts {
		t.Errorf("Throttle.MaxLoginAttempts = %d", cfg.Throttle.MaxLoginAttempts)
	}
	if cfg.Throttle.Cooldown != DefaultCooldown {
		t.Errorf("Throttle.Cooldown = %v", cfg.Throttle.Cooldown)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q", cfg.Metrics.Path)
	}
	if cfg.Auth.SecureCookies {
		t.Error("Auth.SecureCookies should default to false")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_PORTAL_SECRET", testSecret)
	t.Setenv("TEST_PORTAL_DB", "/data/portal.db")

	configPath := writeConfig(t, "portal.yaml", `
server:
  http_addr: ":3000"
database:
  path: "${TEST_PORTAL_DB}"
auth:
  jwt_secret: "${TEST_PORTAL_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWTSecret != testSecret {
		t.Error("Auth.JWTSecret was not expanded from the environment")
	}
	if cfg.Database.Path != "/data/portal.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/data/portal.db")
	}
}

func TestLoad_EnvVarExpansion_UnsetSecret(t *testing.T) {
	configPath := writeConfig(t, "portal.yaml", `
server:
  http_addr: ":3000"
database:
  path: "./portal.db"
auth:
  jwt_secret: "${UNSET_PORTAL_SECRET_VAR}"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for empty secret, got nil")
	}
	if !strings.Contains(err.Error(), "auth.jwt_secret must be at least 32 bytes") {
		t.Errorf("Load() error = %q", err.Error())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/portal.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "portal.yaml", `
server:
  http_addr "missing colon"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	configPath := writeConfig(t, "portal.toml", `
[server
http_addr = ":3000"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid TOML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	for _, raw := range []string{"invalid-duration", "-5m", "0s"} {
		t.Run(raw, func(t *testing.T) {
			configPath := writeConfig(t, "portal.yaml", `
server:
  http_addr: ":3000"
database:
  path: "./portal.db"
auth:
  jwt_secret: "`+testSecret+`"
throttle:
  cooldown: "`+raw+`"
`)

			_, err := Load(configPath)
			if err == nil {
				t.Errorf("Load() expected error for cooldown %q, got nil", raw)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		wantErrSubstr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:          "missing http_addr",
			mutate:        func(c *Config) { c.Server.HTTPAddr = "" },
			wantErrSubstr: "server.http_addr is required",
		},
		{
			name:          "missing database path",
			mutate:        func(c *Config) { c.Database.Path = "" },
			wantErrSubstr: "database.path is required",
		},
		{
			name:          "unknown driver",
			mutate:        func(c *Config) { c.Database.Driver = "mysql" },
			wantErrSubstr: "database.driver must be one of",
		},
		{
			name:   "sqlite3 driver",
			mutate: func(c *Config) { c.Database.Driver = DriverSQLite3 },
		},
		{
			name:          "short secret",
			mutate:        func(c *Config) { c.Auth.JWTSecret = "too-short" },
			wantErrSubstr: "auth.jwt_secret must be at least 32 bytes",
		},
		{
			name:          "negative hash workers",
			mutate:        func(c *Config) { c.Auth.HashWorkers = -1 },
			wantErrSubstr: "auth.hash_workers",
		},
		{
			name:          "bad log level",
			mutate:        func(c *Config) { c.Logging.Level = "verbose" },
			wantErrSubstr: "logging.level",
		},
		{
			name:          "bad log format",
			mutate:        func(c *Config) { c.Logging.Format = "xml" },
			wantErrSubstr: "logging.format",
		},
		{
			name: "relative metrics path",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Path = "metrics"
			},
			wantErrSubstr: "metrics.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantErrSubstr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErrSubstr)
			}
			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("Validate() error = %q, want error containing %q", err.Error(), tt.wantErrSubstr)
			}
		})
	}
}

func TestValidate_NeverEchoesSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "hunter2-short"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if strings.Contains(err.Error(), "hunter2") {
		t.Errorf("Validate() error leaks the secret: %q", err.Error())
	}
}

func TestValidate_TailscaleConfig(t *testing.T) {
	tests := []struct {
		name          string
		tailscale     TailscaleConfig
		httpAddr      string
		wantErrSubstr string
	}{
		{
			name:      "tailscale enabled allows empty server address",
			tailscale: TailscaleConfig{Enabled: true, Hostname: "studio-portal"},
		},
		{
			name:          "tailscale enabled requires hostname",
			tailscale:     TailscaleConfig{Enabled: true},
			wantErrSubstr: "tailscale.hostname is required",
		},
		{
			name:          "tailscale disabled requires server address",
			tailscale:     TailscaleConfig{Hostname: "studio-portal"},
			wantErrSubstr: "server.http_addr is required",
		},
		{
			name: "tailscale with all options set",
			tailscale: TailscaleConfig{
				Enabled:   true,
				Hostname:  "studio-portal",
				AuthKey:   "tskey-auth-xxx",
				StateDir:  "/tmp/ts-state",
				Ephemeral: true,
				HTTPS:     true,
				Funnel:    true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.HTTPAddr = tt.httpAddr
			cfg.Tailscale = tt.tailscale

			err := cfg.Validate()
			if tt.wantErrSubstr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErrSubstr)
			}
			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("Validate() error = %q, want error containing %q", err.Error(), tt.wantErrSubstr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single env var", input: "${FOO}", expected: "bar"},
		{name: "env var with surrounding text", input: "prefix-${FOO}-suffix", expected: "prefix-bar-suffix"},
		{name: "multiple env vars", input: "${FOO}/${BAZ}", expected: "bar/qux"},
		{name: "no env vars", input: "no-vars-here", expected: "no-vars-here"},
		{name: "unset env var", input: "${UNSET_VAR}", expected: ""},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Run("explicit env var", func(t *testing.T) {
		t.Setenv("PORTAL_CONFIG", "/etc/portal/custom.toml")
		got, err := DefaultPath()
		if err != nil {
			t.Fatalf("DefaultPath() error = %v", err)
		}
		if got != "/etc/portal/custom.toml" {
			t.Errorf("DefaultPath() = %q", got)
		}
	})

	t.Run("xdg config home", func(t *testing.T) {
		t.Setenv("PORTAL_CONFIG", "")
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		got, err := DefaultPath()
		if err != nil {
			t.Fatalf("DefaultPath() error = %v", err)
		}
		if got != "/tmp/xdg/studio-portal/portal.yaml" {
			t.Errorf("DefaultPath() = %q", got)
		}
	})
}
