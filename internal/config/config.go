// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	API      APIConfig
	Grid     GridConfig
	Session  SessionConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Audit    AuditConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 2m, exports can be large)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// APIConfig holds the upstream data API settings.
type APIConfig struct {
	// URL is the base URL of the data API, without the /api/data suffix (required)
	URL string `env:"DATA_API_URL" envAlt:"API_BASE_URL" required:"true"`

	// Token is sent as a bearer token when set
	Token string `env:"DATA_API_TOKEN"`

	// Timeout bounds a single upstream request (default: 30s)
	Timeout time.Duration `env:"DATA_API_TIMEOUT" default:"30s"`

	// RequestsPerSecond caps outgoing requests; 0 disables the limiter (default: 20)
	RequestsPerSecond float64 `env:"DATA_API_RPS" default:"20"`

	// Burst is the limiter bucket size (default: 40)
	Burst int `env:"DATA_API_BURST" default:"40"`
}

// GridConfig holds grid presentation defaults.
type GridConfig struct {
	// PerPage is the initial page size (default: 25)
	PerPage int `env:"GRID_PER_PAGE" default:"25"`

	// PerPageOptions are the page sizes offered; the largest bounds any request
	PerPageOptions []int `env:"GRID_PER_PAGE_OPTIONS" default:"10,25,50,100"`

	// LongTextThreshold is the length above which editor fields are multi-line (default: 60)
	LongTextThreshold int `env:"GRID_LONG_TEXT_THRESHOLD" default:"60"`
}

// SessionConfig holds browser session settings. Each session owns one grid.
type SessionConfig struct {
	// CookieName names the session cookie (default: dataadmin_session)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"dataadmin_session"`

	// CookieSecure marks the cookie Secure; enable behind HTTPS (default: false)
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`

	// IdleTimeout expires sessions unused for this long (default: 30m)
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"30m"`

	// SweepInterval is how often expired sessions are removed (default: 5m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`

	// MaxSessions bounds live sessions; the least recently used is evicted (default: 500)
	MaxSessions int `env:"SESSION_MAX" default:"500"`
}

// UploadConfig holds file upload and import settings.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted file size in bytes (default: 20MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`

	// MaxConcurrent is the maximum number of parallel upstream uploads (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an upload slot (default: 15s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"15s"`

	// Timeout is the maximum duration for a single upload or import (default: 2m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload and import endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects every route except /healthz (default: false)
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

	// File, when set, also writes logs to a rotated file
	File string `env:"LOG_FILE"`

	// MaxSizeMB rotates the file at this size (default: 50)
	MaxSizeMB int `env:"LOG_FILE_MAX_SIZE_MB" default:"50"`

	// MaxBackups is the number of rotated files kept (default: 5)
	MaxBackups int `env:"LOG_FILE_MAX_BACKUPS" default:"5"`

	// MaxAgeDays removes rotated files older than this (default: 28)
	MaxAgeDays int `env:"LOG_FILE_MAX_AGE_DAYS" default:"28"`

	// Compress gzips rotated files (default: false)
	Compress bool `env:"LOG_FILE_COMPRESS" default:"false"`
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	// Enabled records confirmed edits, deletions, uploads and imports (default: true)
	Enabled bool `env:"AUDIT_ENABLED" default:"true"`

	// DatabaseURL stores entries in PostgreSQL; empty logs them instead
	DatabaseURL string `env:"AUDIT_DATABASE_URL" envAlt:"DATABASE_URL"`

	// MaxConns is the maximum number of pool connections (default: 4)
	MaxConns int `env:"AUDIT_DB_MAX_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"AUDIT_DB_MAX_CONN_LIFETIME" default:"1h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// MaxPerPage is the largest offered page size.
func (c *GridConfig) MaxPerPage() int {
	maxPer := 0
	for _, n := range c.PerPageOptions {
		if n > maxPer {
			maxPer = n
		}
	}
	return maxPer
}
