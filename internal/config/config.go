// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Catalog  CatalogConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// Label is the server name reported in every envelope (default: empty, reported as "Default")
	Label string `env:"SERVER_LABEL"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// MaxBodyBytes caps request payloads (default: 1MB)
	MaxBodyBytes int64 `env:"SERVER_MAX_BODY_BYTES" default:"1048576"`

	// MaxConcurrentWrites bounds in-flight create/update/delete requests (default: 32)
	MaxConcurrentWrites int `env:"SERVER_MAX_CONCURRENT_WRITES" default:"32"`

	// WriteWait is how long a write waits for a free slot before 503 (default: 5s)
	WriteWait time.Duration `env:"SERVER_WRITE_WAIT" default:"5s"`
}

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StoreConfig selects and locates the document store.
type StoreConfig struct {
	// Driver is one of mongo, postgres, sqlite (default: mongo)
	Driver string `env:"STORE_DRIVER" default:"mongo"`

	// MongoURI is the MongoDB connection string
	MongoURI string `env:"MONGODB_URI" envAlt:"MONGO_URI,MONGO_URL" default:"mongodb://localhost:27017"`

	// PostgresURL is the PostgreSQL connection string
	PostgresURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// SQLitePath is the database file for the embedded store (default: data/catalog.db)
	SQLitePath string `env:"SQLITE_PATH" default:"data/catalog.db"`

	// ConnectTimeout bounds the initial connection and ping (default: 10s)
	ConnectTimeout time.Duration `env:"STORE_CONNECT_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds the database name and pool settings.
type DatabaseConfig struct {
	// Name is the database selected on MongoDB and reported as dbServer in
	// every envelope. Resolved from MONGO_INV_DB, then MONGODB_DB, then DATABASE.
	Name string `env:"MONGO_INV_DB" envAlt:"MONGODB_DB,DATABASE" default:"Inversiones"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// WriteLimit is requests per minute for mutating endpoints (default: 60)
	WriteLimit int `env:"RATE_LIMIT_WRITE" default:"60"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables API-key authentication on /api routes (default: false)
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

	// Debug prints a tabular ledger summary for every operation (default: false)
	Debug bool `env:"DEBUG_LOGS" default:"false"`
}

// CatalogConfig locates the entity catalog.
type CatalogConfig struct {
	// File replaces the built-in catalog when set
	File string `env:"CATALOG_FILE"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled serves /metrics (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
