// Package config handles configuration loading for studio-portal.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PORTAL_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/studio-portal/portal.yaml
//  3. ~/.config/studio-portal/portal.yaml
//
// Files ending in .toml are read as TOML; anything else as YAML. Both
// syntaxes use the same keys.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${PORTAL_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:3000"
//
//	database:
//	  driver: "sqlite"                 # sqlite, sqlite3, pgx
//	  path: "/var/lib/studio-portal/portal.db"
//
//	auth:
//	  jwt_secret: "${PORTAL_JWT_SECRET}"  # at least 32 bytes
//	  secure_cookies: true
//	  hash_workers: 4
//
//	throttle:
//	  enabled: true
//	  redis_addr: "localhost:6379"     # empty: in-process limiter
//	  max_login_attempts: 5
//	  cooldown: "15m"
//
//	tailscale:
//	  enabled: false
//	  hostname: "studio-portal"
//	  auth_key: "${TS_AUTHKEY}"
//	  https: true
//	  funnel: false
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// # Validation
//
// Load() applies defaults and then validates:
//
//   - server.http_addr present unless tailscale is enabled
//   - known database driver and a non-empty database.path
//   - JWT secret minimum length (32 bytes)
//   - duration format validity
//   - known log level and format
package config
