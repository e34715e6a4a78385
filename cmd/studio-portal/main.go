// ABOUTME: Entry point for the studio-portal server
// ABOUTME: Subcommands serve the portal, write a config, create admins, and check health

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/studio-portal/internal/config"
	"github.com/2389/studio-portal/internal/portal"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
     _             _ _                               _        _
 ___| |_ _   _  __| (_) ___        _ __   ___  _ __| |_ __ _| |
/ __| __| | | |/ _' | |/ _ \ ____ | '_ \ / _ \| '__| __/ _' | |
\__ \ |_| |_| | (_| | | (_) |____|| |_) | (_) | |  | || (_| | |
|___/\__|\__,_|\__,_|_|\___/      | .__/ \___/|_|   \__\__,_|_|
                                  |_|
`

// getConfigPath returns the config file path, falling back to the working
// directory when no home directory is available.
func getConfigPath() string {
	p, err := config.DefaultPath()
	if err != nil {
		return "portal.yaml"
	}
	return p
}

// getDataPath returns the portal data directory.
// Priority: XDG_DATA_HOME/studio-portal > ~/.local/share/studio-portal
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "studio-portal")
}

func usage() {
	fmt.Println("Usage: studio-portal <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                              Start the portal server")
	fmt.Println("  init                               Create a new config file interactively")
	fmt.Println("  create-admin --email E --name N    Create an administrator account")
	fmt.Println("  health                             Check portal health")
	fmt.Println("  version                            Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(os.Stdin, os.Stdout)
	case "create-admin":
		err = runCreateAdmin(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Driver)
	if !cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	}

	green.Print("    ▶ ")
	fmt.Printf("Throttle:  ")
	switch {
	case !cfg.Throttle.Enabled:
		yellow.Print("disabled")
	case cfg.Throttle.RedisAddr != "":
		fmt.Printf("redis %s", cfg.Throttle.RedisAddr)
	default:
		fmt.Print("memory")
	}
	fmt.Println()

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		} else if cfg.Tailscale.HTTPS {
			gray.Print(" [https]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	if !cfg.Auth.SecureCookies {
		yellow.Println("    ! session cookies are not marked Secure")
	}

	fmt.Println()

	logger.Info("starting studio-portal",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"driver", cfg.Database.Driver,
	)

	srv, err := portal.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating portal: %w", err)
	}

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, body)
	}

	fmt.Println("healthy")
	return nil
}
