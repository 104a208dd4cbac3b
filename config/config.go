// Package config loads runtime settings from a TOML file, an optional .env
// file next to it, and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/amp-labs/amp-uow/database"
	"github.com/amp-labs/amp-uow/logger"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables overriding file settings.
const (
	EnvDatabaseDriver = "UOW_DATABASE_DRIVER"
	EnvDatabaseURL    = "UOW_DATABASE_URL"
	EnvIsolation      = "UOW_ISOLATION"
	EnvLockTimeout    = "UOW_LOCK_TIMEOUT"
	EnvLocks          = "UOW_LOCKS"
	EnvMaxDrainPasses = "UOW_MAX_DRAIN_PASSES"
	EnvLogJSON        = "LOG_JSON"
	EnvLogLevel       = "LOG_LEVEL"
	EnvOtelEnabled    = "OTEL_ENABLED"
	EnvOtelEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

const dotenvFileName = ".env"

// Lock mechanisms.
const (
	LocksMemory   = "memory"
	LocksPostgres = "postgres"
)

var (
	// ErrInvalidValue is returned for a setting that does not parse.
	ErrInvalidValue = errors.New("invalid configuration value")
	// ErrUnknownLocks is returned for an unknown lock mechanism.
	ErrUnknownLocks = errors.New("unknown lock mechanism")
)

// Config holds every runtime setting.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Scope     ScopeConfig     `toml:"scope"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
	// FromDotenv reports whether a .env file contributed values.
	FromDotenv bool `toml:"-"`
}

// DatabaseConfig selects the database.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	URL          string `toml:"url"`
	MaxOpenConns int    `toml:"max_open_conns"`
}

// ScopeConfig tunes scope providers.
type ScopeConfig struct {
	Isolation      string `toml:"isolation"`
	LockTimeout    string `toml:"lock_timeout"`
	Locks          string `toml:"locks"`
	MaxDrainPasses int    `toml:"max_drain_passes"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	JSON  bool   `toml:"json"`
	Level string `toml:"level"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled     bool   `toml:"enabled"`
	Endpoint    string `toml:"endpoint"`
	ServiceName string `toml:"service_name"`
}

// Default returns the settings used when nothing is configured: an
// in-memory SQLite database, read-committed scopes and a 20s lock timeout.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: string(database.DialectSQLite),
			URL:    ":memory:",
		},
		Scope: ScopeConfig{
			Isolation:   database.ReadCommitted.String(),
			LockTimeout: "20s",
			Locks:       LocksMemory,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "uow",
		},
	}
}

// Load reads path when it is not empty, then the .env file next to it (or
// in the working directory), then the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	dir := "."

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}

		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}

		cfg.Path = path
		dir = filepath.Dir(path)
	}

	dotenv, err := readDotenv(filepath.Join(dir, dotenvFileName))
	if err != nil {
		return nil, err
	}

	cfg.FromDotenv = len(dotenv) > 0

	if err := cfg.applyEnv(func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}

		value, ok := dotenv[key]

		return value, ok
	}); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readDotenv(path string) (map[string]string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", path, err)
	}

	if info.IsDir() {
		return nil, nil //nolint:nilnil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return values, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDatabaseDriver); ok {
		c.Database.Driver = v
	}

	if v, ok := lookup(EnvDatabaseURL); ok {
		c.Database.URL = v
	}

	if v, ok := lookup(EnvIsolation); ok {
		c.Scope.Isolation = v
	}

	if v, ok := lookup(EnvLockTimeout); ok {
		c.Scope.LockTimeout = v
	}

	if v, ok := lookup(EnvLocks); ok {
		c.Scope.Locks = v
	}

	if v, ok := lookup(EnvLogLevel); ok {
		c.Logging.Level = v
	}

	if v, ok := lookup(EnvOtelEndpoint); ok {
		c.Telemetry.Endpoint = v
	}

	if v, ok := lookup(EnvMaxDrainPasses); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, EnvMaxDrainPasses, v, err)
		}

		c.Scope.MaxDrainPasses = n
	}

	for key, target := range map[string]*bool{
		EnvLogJSON:     &c.Logging.JSON,
		EnvOtelEnabled: &c.Telemetry.Enabled,
	} {
		v, ok := lookup(key)
		if !ok {
			continue
		}

		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, key, v, err)
		}

		*target = b
	}

	return nil
}

// Validate checks that every setting parses.
func (c *Config) Validate() error {
	if _, err := c.Dialect(); err != nil {
		return err
	}

	if _, err := c.IsolationLevel(); err != nil {
		return err
	}

	if _, err := c.LockTimeout(); err != nil {
		return err
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	switch c.Scope.Locks {
	case LocksMemory, LocksPostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLocks, c.Scope.Locks)
	}

	if c.Scope.MaxDrainPasses < 0 {
		return fmt.Errorf("%w: max_drain_passes must not be negative", ErrInvalidValue)
	}

	return nil
}

// Dialect returns the database dialect.
func (c *Config) Dialect() (database.Dialect, error) {
	return database.ParseDialect(c.Database.Driver)
}

// IsolationLevel returns the default isolation level of root scopes.
func (c *Config) IsolationLevel() (database.IsolationLevel, error) {
	return database.ParseIsolationLevel(c.Scope.Isolation)
}

// LockTimeout returns the lock wait limit.
func (c *Config) LockTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Scope.LockTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: lock_timeout %q: %w", ErrInvalidValue, c.Scope.LockTimeout, err)
	}

	return d, nil
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	level, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}

	return level, nil
}

// DatabaseConfig returns the connection settings. Validate must have passed.
func (c *Config) DatabaseConfig() database.Config {
	dialect, _ := c.Dialect()

	return database.Config{
		Dialect:      dialect,
		DSN:          c.Database.URL,
		MaxOpenConns: c.Database.MaxOpenConns,
	}
}
