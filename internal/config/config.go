// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration.
type Config struct {
	Environment string `env:"APP_ENV,default=development"`

	Server       ServerConfig
	Database     DatabaseConfig
	Auth         AuthConfig
	Codes        CodesConfig
	Storage      StorageConfig
	Notify       NotifyConfig
	Housekeeping HousekeepingConfig
	Logging      LoggingConfig
	Audit        AuditConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST,default=0.0.0.0"`
	Port            int           `env:"SERVER_PORT,default=8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT,default=15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT,default=30s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	CORSOrigins     string        `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AllowedOrigins splits the CORS origin list.
func (s ServerConfig) AllowedOrigins() []string {
	return splitCSV(s.CORSOrigins)
}

// DatabaseConfig selects and tunes the relational store. An empty DSN selects
// the in-memory stores.
type DatabaseConfig struct {
	Driver          string `env:"DATABASE_DRIVER,default=postgres"`
	DSN             string `env:"DATABASE_URL"`
	MaxOpenConns    int    `env:"DATABASE_MAX_OPEN_CONNS,default=20"`
	MaxIdleConns    int    `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime int    `env:"DATABASE_CONN_MAX_LIFETIME,default=300"`
	MigrateOnStart  bool   `env:"DATABASE_MIGRATE,default=true"`
}

// AuthConfig controls tokens and MPIN lockout.
type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET"`
	Issuer          string        `env:"JWT_ISSUER,default=clubhouse"`
	TokenTTL        time.Duration `env:"AUTH_TOKEN_TTL,default=24h"`
	SetupTokenTTL   time.Duration `env:"AUTH_SETUP_TOKEN_TTL,default=15m"`
	MaxFailedLogins int           `env:"AUTH_MAX_FAILED_LOGINS,default=5"`
	LockoutDuration time.Duration `env:"AUTH_LOCKOUT_DURATION,default=15m"`
	LoginRatePerSec int           `env:"AUTH_RATE_PER_SECOND,default=5"`
	LoginRateBurst  int           `env:"AUTH_RATE_BURST,default=10"`
	BcryptCost      int           `env:"AUTH_BCRYPT_COST,default=10"`
}

// CodesConfig controls verification codes.
type CodesConfig struct {
	TTL         time.Duration `env:"CODE_TTL,default=10m"`
	MaxAttempts int           `env:"CODE_MAX_ATTEMPTS,default=5"`
	RedisURL    string        `env:"REDIS_URL"`
}

// StorageConfig selects the upload relay backend.
type StorageConfig struct {
	Backend        string `env:"STORAGE_BACKEND,default=fs"`
	Directory      string `env:"STORAGE_DIR,default=./data/uploads"`
	ObjectURL      string `env:"STORAGE_OBJECT_URL"`
	ObjectBucket   string `env:"STORAGE_OBJECT_BUCKET,default=documents"`
	ObjectKey      string `env:"STORAGE_OBJECT_KEY"`
	MaxUploadBytes int64  `env:"STORAGE_MAX_UPLOAD_BYTES,default=5242880"`
}

// NotifyConfig controls verification-code delivery.
type NotifyConfig struct {
	WebhookURL string `env:"NOTIFY_WEBHOOK_URL"`
	WebhookKey string `env:"NOTIFY_WEBHOOK_KEY"`
}

// HousekeepingConfig schedules cleanup jobs.
type HousekeepingConfig struct {
	Schedule string `env:"HOUSEKEEPING_SCHEDULE,default=@every 15m"`
}

// LoggingConfig mirrors logger.LoggingConfig.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
	Output string `env:"LOG_OUTPUT,default=stdout"`
}

// AuditConfig controls the audit sink.
type AuditConfig struct {
	FilePath string `env:"AUDIT_LOG_PATH"`
	Capacity int    `env:"AUDIT_CAPACITY,default=500"`
}

// Load reads an optional .env file then decodes the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// A missing .env file is normal outside local development.
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "" || env == "development" || env == "dev" || env == "test"
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.Auth.JWTSecret = "development-only-secret"
	}
	if len(c.Auth.JWTSecret) < 16 && !c.IsDevelopment() {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	switch strings.ToLower(c.Storage.Backend) {
	case "fs", "":
	case "object":
		if c.Storage.ObjectURL == "" {
			return errors.New("STORAGE_OBJECT_URL is required for object storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return errors.New("STORAGE_MAX_UPLOAD_BYTES must be positive")
	}
	if c.Auth.MaxFailedLogins <= 0 {
		return errors.New("AUTH_MAX_FAILED_LOGINS must be positive")
	}
	return nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
