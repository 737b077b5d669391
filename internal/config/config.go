// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Storage backends.
const (
	BackendSpreadsheet = "spreadsheet"
	BackendRelational  = "relational"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StoreConfig selects where the inventory grids live.
type StoreConfig struct {
	// Backend is spreadsheet or relational (default: spreadsheet)
	Backend string `env:"STORE_BACKEND" default:"spreadsheet"`

	// WorkbookPath is the .xlsx file used by the spreadsheet backend
	WorkbookPath string `env:"WORKBOOK_PATH" default:"data/inventory_data.xlsx"`

	// CreateWorkbook creates an empty workbook when WorkbookPath does not exist
	CreateWorkbook bool `env:"WORKBOOK_CREATE" default:"true"`
}

// DatabaseConfig holds database connection settings for the relational backend.
type DatabaseConfig struct {
	// Driver is pgx, postgres or sqlite (default: pgx)
	Driver string `env:"DB_DRIVER" default:"pgx"`

	// URL is the connection string. Required when STORE_BACKEND=relational.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of open connections (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the number of idle connections to keep (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ConnectTimeout bounds the startup ping (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// EngineConfig holds transaction engine settings.
type EngineConfig struct {
	// SerializeWrites holds a per-category lock from resolve through reload.
	// Off by default, matching the historical single-writer behavior.
	SerializeWrites bool `env:"ENGINE_SERIALIZE_WRITES" default:"false"`

	// WriteWaitTime is how long a write waits for its category lock (default: 10s)
	WriteWaitTime time.Duration `env:"ENGINE_WRITE_WAIT" default:"10s"`

	// OperationTimeout bounds a single transaction including reload (default: 15s)
	OperationTimeout time.Duration `env:"ENGINE_OPERATION_TIMEOUT" default:"15s"`

	// JournalSize is the number of transactions kept in memory (default: 500)
	JournalSize int `env:"ENGINE_JOURNAL_SIZE" default:"500"`

	// RefreshInterval reloads the store in the background to pick up
	// outside edits. Zero disables it (default: 0)
	RefreshInterval time.Duration `env:"ENGINE_REFRESH_INTERVAL" default:"0s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// MutationLimit is requests per minute for write endpoints (default: 30)
	MutationLimit int `env:"RATE_LIMIT_MUTATIONS" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects mutating endpoints with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
