// ABOUTME: Tests for the setup subcommands and logger of the portal binary
// ABOUTME: Uses temp dirs and the mock store, never the terminal

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/studio-portal/internal/auth"
	"github.com/2389/studio-portal/internal/config"
	"github.com/2389/studio-portal/internal/store"
)

func TestParseAdminArgs(t *testing.T) {
	a, err := parseAdminArgs([]string{"--email", " Owner@Example.com ", "--name=Studio Owner"})
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", a.Email)
	assert.Equal(t, "Studio Owner", a.Name)
	assert.False(t, a.PasswordStdin)

	a, err = parseAdminArgs([]string{"-e=o@example.com", "-n", "O", "--password-stdin"})
	require.NoError(t, err)
	assert.True(t, a.PasswordStdin)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing email", []string{"--name", "O"}, "--email flag is required"},
		{"missing name", []string{"--email", "o@example.com"}, "--name flag is required"},
		{"dangling flag", []string{"--email"}, "--email requires a value"},
		{"unknown flag", []string{"--role", "admin"}, "unknown flag: --role"},
		{"stray argument", []string{"admin"}, "unexpected argument: admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAdminArgs(tt.args)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestReadAdminPassword_Stdin(t *testing.T) {
	pw, err := readAdminPassword(adminArgs{PasswordStdin: true}, strings.NewReader("s3cret-pass\n"), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pass", pw)

	pw, err = readAdminPassword(adminArgs{PasswordStdin: true}, strings.NewReader("no-newline"), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "no-newline", pw)
}

func TestCreateAdmin(t *testing.T) {
	ctx := context.Background()
	s := store.NewMockStore()
	hasher := auth.NewHasher(1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	args := adminArgs{Email: "owner@example.com", Name: "Owner"}

	_, err := createAdmin(ctx, s, hasher, args, "short", logger)
	require.Error(t, err)

	user, err := createAdmin(ctx, s, hasher, args, "long-enough", logger)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, user.Role)
	assert.True(t, hasher.Verify(ctx, "long-enough", user.PasswordHash))

	_, err = createAdmin(ctx, s, hasher, args, "long-enough", logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRenderConfig_Parses(t *testing.T) {
	secret, err := generateSecret()
	require.NoError(t, err)

	content := renderConfig(initAnswers{
		HTTPAddr:         "localhost:8080",
		Driver:           config.DriverSQLite,
		DatabasePath:     "/tmp/portal.db",
		JWTSecret:        secret,
		ThrottleEnabled:  true,
		RedisAddr:        "localhost:6379",
		TailscaleEnabled: true,
		TSHostname:       "portal",
		TSHTTPS:          true,
		LogLevel:         "debug",
		LogFormat:        "json",
	})

	cfg, err := config.Parse([]byte(content), config.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, secret, cfg.Auth.JWTSecret)
	assert.Equal(t, "localhost:6379", cfg.Throttle.RedisAddr)
	assert.Equal(t, config.DefaultCooldown, cfg.Throttle.Cooldown)
	assert.True(t, cfg.Tailscale.HTTPS)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	configPath := filepath.Join(dir, "conf", "portal.yaml")
	t.Setenv("PORTAL_CONFIG", configPath)

	// Accept every default.
	var out bytes.Buffer
	require.NoError(t, runInit(strings.NewReader(strings.Repeat("\n", 20)), &out))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddr)
	assert.Equal(t, filepath.Join(dir, "studio-portal", "portal.db"), cfg.Database.Path)
	assert.True(t, cfg.Throttle.Enabled)
	assert.NotContains(t, out.String(), cfg.Auth.JWTSecret)

	// Declining the overwrite leaves the file alone.
	before, err := os.ReadFile(configPath)
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, runInit(strings.NewReader("\nno\n"), &out))
	after, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Contains(t, out.String(), "Aborted.")
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = setupLogger(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)
	logger.With("component", "portal").WithGroup("req").Debug("hello", "path", "/login")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), " component=")
	assert.NotContains(t, buf.String(), "req.component=")
	assert.Contains(t, buf.String(), "req.path=")
}
