// Package config loads application configuration from environment variables,
// optionally overlaid on a YAML file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Audit    AuditConfig    `yaml:"audit"`
	Tenants  TenantConfig   `yaml:"tenants"`
	LogLevel string         `yaml:"log_level"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`

	// RateLimitEnabled turns the per-IP limiter off entirely, for
	// deployments that throttle at the ingress instead.
	RateLimitEnabled bool `yaml:"rate_limit_enabled"`
}

// DatabaseConfig holds relational store configuration
type DatabaseConfig struct {
	// Driver is "postgres" in production; "sqlite3" is supported for local
	// development and tests.
	Driver       string        `yaml:"driver"`
	URL          string        `yaml:"url"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnLifetime time.Duration `yaml:"conn_lifetime"`
}

// RedisConfig holds the optional Redis connection used for distributed
// rate limiting. Empty URL disables Redis; limiters fall back to in-memory.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig holds identity and session settings
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	Issuer          string        `yaml:"issuer"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	SessionTTL      time.Duration `yaml:"session_ttl"`

	// Brute-force mitigation: attempts per identifier within the window.
	MaxLoginAttempts int           `yaml:"max_login_attempts"`
	AttemptWindow    time.Duration `yaml:"attempt_window"`
}

// AuditConfig holds audit sink settings
type AuditConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// TenantConfig holds tenant lifecycle settings
type TenantConfig struct {
	TrialDays int `yaml:"trial_days"`
}

// LoadConfig loads configuration from environment variables. When
// CREWDESK_CONFIG_FILE is set, the YAML file is read first and environment
// variables override its values.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CREWDESK_CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             "8080",
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     15 * time.Second,
			IdleTimeout:      60 * time.Second,
			ShutdownTimeout:  30 * time.Second,
			HealthPort:       "9090",
			RateLimitEnabled: true,
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			ConnLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			Issuer:           "crewdesk",
			AccessTokenTTL:   15 * time.Minute,
			RefreshTokenTTL:  30 * 24 * time.Hour,
			SessionTTL:       30 * 24 * time.Hour,
			MaxLoginAttempts: 5,
			AttemptWindow:    10 * time.Minute,
		},
		Audit:    AuditConfig{RetentionDays: 90},
		Tenants:  TenantConfig{TrialDays: 30},
		LogLevel: "info",
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("CREWDESK_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("CREWDESK_PORT", cfg.Server.Port)
	cfg.Server.HealthPort = getEnv("CREWDESK_HEALTH_PORT", cfg.Server.HealthPort)
	cfg.Server.ReadTimeout = getEnvDuration("CREWDESK_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("CREWDESK_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("CREWDESK_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("CREWDESK_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.RateLimitEnabled = getEnvBool("CREWDESK_RATE_LIMIT_ENABLED", cfg.Server.RateLimitEnabled)

	cfg.Database.Driver = getEnv("CREWDESK_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.URL = getEnv("CREWDESK_DB_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = getEnvInt("CREWDESK_DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("CREWDESK_DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.ConnLifetime = getEnvDuration("CREWDESK_DB_CONN_LIFETIME", cfg.Database.ConnLifetime)

	cfg.Redis.URL = getEnv("CREWDESK_REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Password = getEnv("CREWDESK_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("CREWDESK_REDIS_DB", cfg.Redis.DB)

	cfg.Auth.JWTSecret = getEnv("CREWDESK_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.Issuer = getEnv("CREWDESK_JWT_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.AccessTokenTTL = getEnvDuration("CREWDESK_ACCESS_TOKEN_TTL", cfg.Auth.AccessTokenTTL)
	cfg.Auth.RefreshTokenTTL = getEnvDuration("CREWDESK_REFRESH_TOKEN_TTL", cfg.Auth.RefreshTokenTTL)
	cfg.Auth.SessionTTL = getEnvDuration("CREWDESK_SESSION_TTL", cfg.Auth.SessionTTL)
	cfg.Auth.MaxLoginAttempts = getEnvInt("CREWDESK_MAX_LOGIN_ATTEMPTS", cfg.Auth.MaxLoginAttempts)
	cfg.Auth.AttemptWindow = getEnvDuration("CREWDESK_ATTEMPT_WINDOW", cfg.Auth.AttemptWindow)

	cfg.Audit.RetentionDays = getEnvInt("CREWDESK_AUDIT_RETENTION_DAYS", cfg.Audit.RetentionDays)
	cfg.Tenants.TrialDays = getEnvInt("CREWDESK_TRIAL_DAYS", cfg.Tenants.TrialDays)
	cfg.LogLevel = getEnv("CREWDESK_LOG_LEVEL", cfg.LogLevel)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 bytes")
	}
	if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		return fmt.Errorf("access token TTL must be shorter than refresh token TTL")
	}
	if c.Auth.MaxLoginAttempts <= 0 {
		return fmt.Errorf("max login attempts must be positive")
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}
