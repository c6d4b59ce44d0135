package config

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid number: %q", value)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Catalog validation
	if c.Catalog.SourcesFile == "" && c.Catalog.DataDir == "" {
		errs = append(errs, "CATALOG_DATA_DIR or CATALOG_SOURCES_FILE is required")
	}
	if len(strings.TrimSpace(c.Catalog.ReferenceCurrency)) != 3 {
		errs = append(errs, fmt.Sprintf("CATALOG_REFERENCE_CURRENCY (%q) must be a 3-letter currency code", c.Catalog.ReferenceCurrency))
	}

	// Rates validation
	switch strings.ToLower(c.Rates.Mode) {
	case "static":
	case "live":
		if u, err := url.Parse(c.Rates.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("RATES_URL (%q) must be an absolute URL when RATES_MODE=live", c.Rates.URL))
		}
	default:
		errs = append(errs, fmt.Sprintf("RATES_MODE (%q) must be one of: static, live", c.Rates.Mode))
	}
	if c.Rates.Timeout <= 0 {
		errs = append(errs, "RATES_TIMEOUT must be positive")
	}
	if c.Rates.CacheTTL <= 0 {
		errs = append(errs, "RATES_CACHE_TTL must be positive")
	}
	if c.Rates.ProtectionMargin < 0 || c.Rates.ProtectionMargin > 1 {
		errs = append(errs, fmt.Sprintf("RATES_PROTECTION_MARGIN (%v) must be between 0 and 1", c.Rates.ProtectionMargin))
	}

	// Output validation
	switch strings.ToLower(c.Output.Mode) {
	case "file":
		if c.Output.Path == "" {
			errs = append(errs, "OUTPUT_PATH is required when OUTPUT_MODE=file")
		}
	case "stream":
		if strings.TrimSpace(c.Output.Delimiter) == "" || strings.ContainsAny(c.Output.Delimiter, "\r\n") {
			errs = append(errs, "OUTPUT_DELIMITER must be a non-empty single line in stream mode")
		}
	default:
		errs = append(errs, fmt.Sprintf("OUTPUT_MODE (%q) must be one of: file, stream", c.Output.Mode))
	}

	// Database validation
	if c.Database.Enabled() && c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.ConnectTimeout <= 0 {
		errs = append(errs, "DB_CONNECT_TIMEOUT must be positive")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.ReloadLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_RELOAD must be positive when rate limiting is enabled")
	}

	// Security validation
	for _, cidr := range c.Security.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil && net.ParseIP(cidr) == nil {
			errs = append(errs, fmt.Sprintf("TRUSTED_PROXIES entry %q is not a valid CIDR or IP", cidr))
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The database URL and reload keys are masked.
func (c *Config) String() string {
	dbURL := "[NONE]"
	if c.Database.Enabled() {
		dbURL = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Catalog: {DataDir: %q, SourcesFile: %q, Reference: %q}, ",
		c.Catalog.DataDir, c.Catalog.SourcesFile, c.Catalog.ReferenceCurrency))
	b.WriteString(fmt.Sprintf("Rates: {Mode: %q, Timeout: %s, Margin: %v}, ",
		c.Rates.Mode, c.Rates.Timeout, c.Rates.ProtectionMargin))
	b.WriteString(fmt.Sprintf("Output: {Mode: %q, Path: %q, SQLite: %q}, ",
		c.Output.Mode, c.Output.Path, c.Output.SQLitePath))
	b.WriteString(fmt.Sprintf("Database: {URL: %s, MaxConns: %d}, ", dbURL, c.Database.MaxConns))
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Security: {TrustedProxies: %d, ReloadKeys: %d}, ",
		len(c.Security.TrustedProxies), len(c.Security.ReloadKeys)))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
