// ABOUTME: Setup subcommands: interactive config generation and admin account creation
// ABOUTME: init writes a YAML config with a fresh signing secret; create-admin seeds an administrator

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/2389/studio-portal/internal/auth"
	"github.com/2389/studio-portal/internal/config"
	"github.com/2389/studio-portal/internal/portal"
	"github.com/2389/studio-portal/internal/store"
)

// readPassword is replaced in tests to avoid touching the terminal.
var readPassword = term.ReadPassword

// generateSecret returns a base64 encoded 32 byte random signing secret.
func generateSecret() (string, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(secretBytes), nil
}

// initAnswers are the values collected by runInit.
type initAnswers struct {
	HTTPAddr      string
	Driver        string
	DatabasePath  string
	JWTSecret     string
	SecureCookies bool

	ThrottleEnabled bool
	RedisAddr       string

	TailscaleEnabled bool
	TSHostname       string
	TSAuthKey        string
	TSEphemeral      bool
	TSHTTPS          bool
	TSFunnel         bool

	LogLevel  string
	LogFormat string
}

func runInit(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "studio-portal configuration setup")
	fmt.Fprintln(out, "=================================")
	fmt.Fprintln(out)

	defaultDBPath := filepath.Join(getDataPath(), "portal.db")

	outputFile := prompt(reader, out, "Config file path", getConfigPath())
	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, out, "File exists. Overwrite?", "no")) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	secret, err := generateSecret()
	if err != nil {
		return err
	}
	a := initAnswers{JWTSecret: secret}

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	a.HTTPAddr = prompt(reader, out, "HTTP address", "localhost:8080")
	a.SecureCookies = yes(prompt(reader, out, "Serve over HTTPS (secure cookies)?", "no"))

	fmt.Fprintln(out, "\n--- Database Configuration ---")
	a.Driver = prompt(reader, out, "Driver (sqlite/sqlite3/pgx)", config.DriverSQLite)
	if a.Driver == config.DriverPostgres {
		a.DatabasePath = prompt(reader, out, "Postgres connection URL", "postgres://localhost:5432/portal")
	} else {
		a.DatabasePath = prompt(reader, out, "SQLite database path", defaultDBPath)
	}

	fmt.Fprintln(out, "\n--- Login Throttle ---")
	a.ThrottleEnabled = yes(prompt(reader, out, "Throttle failed logins?", "yes"))
	if a.ThrottleEnabled {
		a.RedisAddr = prompt(reader, out, "Redis address (leave empty for in-memory)", "")
	}

	fmt.Fprintln(out, "\n--- Tailscale Configuration ---")
	a.TailscaleEnabled = yes(prompt(reader, out, "Enable Tailscale?", "no"))
	if a.TailscaleEnabled {
		a.TSHostname = prompt(reader, out, "Tailscale hostname", "studio-portal")
		a.TSAuthKey = prompt(reader, out, "Tailscale auth key (leave empty for interactive)", "")
		a.TSEphemeral = yes(prompt(reader, out, "Ephemeral node?", "no"))
		a.TSFunnel = yes(prompt(reader, out, "Enable Funnel (public HTTPS)?", "no"))
		if !a.TSFunnel {
			a.TSHTTPS = yes(prompt(reader, out, "Serve HTTPS on the tailnet?", "no"))
		}
	}

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	a.LogLevel = prompt(reader, out, "Log level (debug/info/warn/error)", "info")
	a.LogFormat = prompt(reader, out, "Log format (text/json)", "text")

	content := renderConfig(a)
	if _, err := config.Parse([]byte(content), config.FormatYAML); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// The file carries the signing secret.
	if err := os.WriteFile(outputFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if a.Driver != config.DriverPostgres {
		if err := os.MkdirAll(filepath.Dir(a.DatabasePath), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  studio-portal create-admin --email you@example.com --name \"Your Name\"")
	fmt.Fprintln(out, "  studio-portal serve")

	return nil
}

// renderConfig writes the answers as YAML.
func renderConfig(a initAnswers) string {
	var cfg strings.Builder
	cfg.WriteString("# studio-portal configuration\n")
	cfg.WriteString("# Generated by studio-portal init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", a.HTTPAddr))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  driver: %q\n", a.Driver))
	cfg.WriteString(fmt.Sprintf("  path: %q\n", a.DatabasePath))
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: %q\n", a.JWTSecret))
	cfg.WriteString(fmt.Sprintf("  secure_cookies: %t\n", a.SecureCookies))
	cfg.WriteString("\n")

	cfg.WriteString("throttle:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.ThrottleEnabled))
	if a.RedisAddr != "" {
		cfg.WriteString(fmt.Sprintf("  redis_addr: %q\n", a.RedisAddr))
	}
	cfg.WriteString(fmt.Sprintf("  max_login_attempts: %d\n", config.DefaultMaxLoginAttempts))
	cfg.WriteString(fmt.Sprintf("  cooldown: %q\n", config.DefaultCooldown.String()))
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.TailscaleEnabled))
	if a.TailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", a.TSHostname))
		if a.TSAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: %q\n", a.TSAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", a.TSEphemeral))
		cfg.WriteString(fmt.Sprintf("  https: %t\n", a.TSHTTPS))
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", a.TSFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", a.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", a.LogFormat))
	cfg.WriteString("\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: false\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", config.DefaultMetricsPath))

	return cfg.String()
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func yes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}

// adminArgs are the parsed create-admin flags.
type adminArgs struct {
	Email         string
	Name          string
	PasswordStdin bool
}

// parseAdminArgs accepts both "--flag value" and "--flag=value".
func parseAdminArgs(args []string) (adminArgs, error) {
	var a adminArgs
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "--email", "-e", "--name", "-n":
			if !hasValue {
				if i+1 >= len(args) {
					return a, fmt.Errorf("%s requires a value", name)
				}
				value = args[i+1]
				i++
			}
			if name == "--email" || name == "-e" {
				a.Email = value
			} else {
				a.Name = value
			}
		case "--password-stdin":
			a.PasswordStdin = true
		default:
			if strings.HasPrefix(arg, "-") {
				return a, fmt.Errorf("unknown flag: %s", arg)
			}
			return a, fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	a.Email = auth.NormalizeEmail(a.Email)
	a.Name = strings.TrimSpace(a.Name)
	if a.Email == "" {
		return a, errors.New("--email flag is required")
	}
	if a.Name == "" {
		return a, errors.New("--name flag is required")
	}
	return a, nil
}

// readAdminPassword reads the password from stdin or prompts twice on the terminal.
func readAdminPassword(a adminArgs, in io.Reader, out io.Writer) (string, error) {
	if a.PasswordStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; use --password-stdin")
	}

	fmt.Fprint(out, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(out, "Confirm password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func runCreateAdmin(ctx context.Context, args []string) error {
	a, err := parseAdminArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	password, err := readAdminPassword(a, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: cfg.Logging.Format}, os.Stderr)
	s, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	user, err := createAdmin(ctx, s, auth.NewHasher(cfg.Auth.HashWorkers), a, password, logger)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	green.Printf("  ✓ Created administrator: %s\n", user.Email)
	fmt.Println()
	cyan.Println("  Administrator")
	cyan.Println("  -------------")
	fmt.Printf("  ID:    %s\n", user.ID)
	fmt.Printf("  Name:  %s\n", user.Name)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Println()
	fmt.Println("  Sign in at /admin-login once the portal is running.")
	return nil
}

// createAdmin validates the password, hashes it, and stores an admin user.
func createAdmin(ctx context.Context, s store.Store, hasher *auth.Hasher, a adminArgs, password string, logger *slog.Logger) (*store.User, error) {
	if len(password) < portal.MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters long", portal.MinPasswordLength)
	}

	hash, err := hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &store.User{
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
	}
	if err := s.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, fmt.Errorf("a user with email %s already exists", a.Email)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	logger.Info("administrator created", "user_id", user.ID)
	return user, nil
}
