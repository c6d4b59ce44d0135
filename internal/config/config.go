// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Catalog  CatalogConfig
	Rates    RatesConfig
	Output   OutputConfig
	Database DatabaseConfig
	Server   ServerConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// CatalogConfig holds source discovery and merge settings.
type CatalogConfig struct {
	// DataDir is scanned for <supplier>_<manufacturer>.<ext> files (default: data)
	DataDir string `env:"CATALOG_DATA_DIR" default:"data"`

	// Patterns are the glob patterns matched inside DataDir (default: *.csv,*.xlsx)
	Patterns []string `env:"CATALOG_PATTERNS" default:"*.csv,*.xlsx"`

	// SourcesFile is an optional YAML manifest replacing the directory scan
	SourcesFile string `env:"CATALOG_SOURCES_FILE"`

	// ReferenceCurrency is the currency every offer is normalized to (default: USD)
	ReferenceCurrency string `env:"CATALOG_REFERENCE_CURRENCY" default:"USD"`
}

// RatesConfig holds exchange rate settings.
type RatesConfig struct {
	// Mode is "static" (built-in table) or "live" (HTTP fetch with fallback)
	Mode string `env:"RATES_MODE" default:"static"`

	// URL is the live rate endpoint, called as {URL}?base={ReferenceCurrency}
	URL string `env:"RATES_URL" default:"https://api.exchangerate.host/latest"`

	// Timeout bounds a single live fetch (default: 10s)
	Timeout time.Duration `env:"RATES_TIMEOUT" default:"10s"`

	// CacheTTL is how long the server reuses fetched rates (default: 1h)
	CacheTTL time.Duration `env:"RATES_CACHE_TTL" default:"1h"`

	// ProtectionMargin is added to normalized prices in lookups (default: 0.03)
	ProtectionMargin float64 `env:"RATES_PROTECTION_MARGIN" default:"0.03"`
}

// OutputConfig holds snapshot sink settings for the batch CLI.
type OutputConfig struct {
	// Mode is "file" (JSON document at Path) or "stream" (delimited blocks on stdout)
	Mode string `env:"OUTPUT_MODE" default:"file"`

	// Path is the JSON output file in file mode (default: data/catalog.json)
	Path string `env:"OUTPUT_PATH" default:"data/catalog.json"`

	// Delimiter separates suppliers and products in stream mode
	Delimiter string `env:"OUTPUT_DELIMITER" default:"---END-SUPPLIERS---"`

	// Pretty indents JSON output (default: false)
	Pretty bool `env:"OUTPUT_PRETTY" default:"false"`

	// SQLitePath, when set, also writes the snapshot to a SQLite file
	SQLitePath string `env:"OUTPUT_SQLITE_PATH"`
}

// DatabaseConfig holds the optional PostgreSQL sink settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables the sink.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// ConnectTimeout bounds connecting and pinging the database (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// Enabled reports whether a database URL is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ReloadLimit is requests per minute for POST /api/reload (default: 6)
	ReloadLimit int `env:"RATE_LIMIT_RELOAD" default:"6"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// ReloadKeys, when set, are the accepted X-API-Key values for POST /api/reload
	ReloadKeys []string `env:"RELOAD_API_KEYS"`
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
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
