package config

import "time"

// Config is the root configuration for the Saturn gateway.
type Config struct {
	// Server configures the HTTP gateway.
	Server ServerConfig `yaml:"server"`

	// Storage configures the storage backend.
	Storage StorageConfig `yaml:"storage"`

	// Seed configures the idempotent startup bootstrap.
	Seed SeedConfig `yaml:"seed"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// ListenAddress is the address the gateway listens on.
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum idle time for keep-alive connections.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS configures Cross-Origin Resource Sharing.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration for the gateway.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. Use ["*"] for all.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers.
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers exposed to clients.
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight cache.
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials are allowed.
	AllowCredentials bool `yaml:"allow_credentials"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	// Backend is the storage backend type ("sqlite" or "memory").
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// MaintenanceSchedule is a cron expression for periodic SQLite
	// housekeeping. Empty disables maintenance.
	MaintenanceSchedule string `yaml:"maintenance_schedule"`
}

// SQLiteConfig contains SQLite backend configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// SeedConfig controls the idempotent startup bootstrap.
type SeedConfig struct {
	// Enabled controls whether seeding runs at startup.
	Enabled bool `yaml:"enabled"`

	// AdminUsername is the bootstrap admin account name.
	AdminUsername string `yaml:"admin_username"`

	// AdminKey is the bootstrap admin's pre-shared API key.
	AdminKey string `yaml:"admin_key"`

	// AdminCredits is the bootstrap admin's starting balance.
	AdminCredits int `yaml:"admin_credits"`

	// DefaultRules seeds a starter rule set when the rule store is empty.
	DefaultRules bool `yaml:"default_rules"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace.
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	Subsystem string `yaml:"subsystem"`

	// Path is the HTTP path the metrics handler is mounted on.
	Path string `yaml:"path"`
}
