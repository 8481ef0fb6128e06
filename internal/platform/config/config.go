// Package config loads application configuration from environment variables.
// All variables use the COURSE_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Runtime host modes.
const (
	HostNone      = "none"
	HostPostgres  = "postgres"
	HostWebSocket = "websocket"
)

// Preview store modes.
const (
	LocalMemory = "memory"
	LocalSQLite = "sqlite"
	LocalRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Runtime     RuntimeConfig
	Auth        AuthConfig
	Session     SessionConfig
	Log         LogConfig
	ContentPath string
	CORSOrigins []string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL runs
// without a database.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings.
type CacheConfig struct {
	URL string
}

// RuntimeConfig selects where launched sessions persist their LMS data.
type RuntimeConfig struct {
	Host          string // "none", "postgres" or "websocket"
	HostURL       string // websocket endpoint, used when Host is "websocket"
	Local         string // preview store: "memory", "sqlite" or "redis"
	SQLitePath    string
	MaxFrameDepth int
	SuspendLimit  int
}

// AuthConfig holds launch token settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  int // minutes
}

// SessionConfig holds open session housekeeping settings.
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level     string
	Format    string // "json" or "text"
	AddSource bool
}

// Load reads configuration from environment variables with COURSE_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("COURSE_SERVER_PORT", 8080),
			Host: envStr("COURSE_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("COURSE_DATABASE_URL", ""),
			MaxConns: envInt("COURSE_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("COURSE_DATABASE_MIN_CONNS", 2),
		},
		Cache: CacheConfig{
			URL: envStr("COURSE_CACHE_URL", ""),
		},
		Runtime: RuntimeConfig{
			Host:          strings.ToLower(envStr("COURSE_RUNTIME_HOST", HostNone)),
			HostURL:       envStr("COURSE_RUNTIME_HOST_URL", ""),
			Local:         strings.ToLower(envStr("COURSE_RUNTIME_LOCAL", LocalMemory)),
			SQLitePath:    envStr("COURSE_RUNTIME_SQLITE_PATH", "./data/preview.db"),
			MaxFrameDepth: envInt("COURSE_RUNTIME_MAX_FRAME_DEPTH", 10),
			SuspendLimit:  envInt("COURSE_RUNTIME_SUSPEND_LIMIT", 4096),
		},
		Auth: AuthConfig{
			JWTSecret: envStr("COURSE_AUTH_JWT_SECRET", "change-me-in-production"),
			TokenTTL:  envInt("COURSE_AUTH_TOKEN_TTL", 480),
		},
		Session: SessionConfig{
			IdleTimeout:   envDuration("COURSE_SESSION_IDLE_TIMEOUT", 30*time.Minute),
			SweepInterval: envDuration("COURSE_SESSION_SWEEP_INTERVAL", time.Minute),
		},
		Log: LogConfig{
			Level:     envStr("COURSE_LOG_LEVEL", "info"),
			Format:    envStr("COURSE_LOG_FORMAT", "json"),
			AddSource: envBool("COURSE_LOG_SOURCE", false),
		},
		ContentPath: envStr("COURSE_CONTENT_PATH", "./courses"),
		CORSOrigins: envList("COURSE_CORS_ORIGINS", []string{"*"}),
	}

	return cfg, nil
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	switch c.Runtime.Host {
	case HostNone:
	case HostPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("COURSE_RUNTIME_HOST=postgres requires COURSE_DATABASE_URL")
		}
	case HostWebSocket:
		if c.Runtime.HostURL == "" {
			return fmt.Errorf("COURSE_RUNTIME_HOST=websocket requires COURSE_RUNTIME_HOST_URL")
		}
	default:
		return fmt.Errorf("COURSE_RUNTIME_HOST must be 'none', 'postgres' or 'websocket', got %q", c.Runtime.Host)
	}

	switch c.Runtime.Local {
	case LocalMemory:
	case LocalSQLite:
		if c.Runtime.SQLitePath == "" {
			return fmt.Errorf("COURSE_RUNTIME_LOCAL=sqlite requires COURSE_RUNTIME_SQLITE_PATH")
		}
	case LocalRedis:
		if c.Cache.URL == "" {
			return fmt.Errorf("COURSE_RUNTIME_LOCAL=redis requires COURSE_CACHE_URL")
		}
	default:
		return fmt.Errorf("COURSE_RUNTIME_LOCAL must be 'memory', 'sqlite' or 'redis', got %q", c.Runtime.Local)
	}

	if c.Runtime.MaxFrameDepth < 1 {
		return fmt.Errorf("COURSE_RUNTIME_MAX_FRAME_DEPTH must be positive, got %d", c.Runtime.MaxFrameDepth)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("COURSE_AUTH_JWT_SECRET is required")
	}
	if c.Auth.TokenTTL < 1 {
		return fmt.Errorf("COURSE_AUTH_TOKEN_TTL must be positive, got %d", c.Auth.TokenTTL)
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("COURSE_SESSION_IDLE_TIMEOUT must be positive")
	}

	return nil
}

// TTL returns the launch token lifetime.
func (a AuthConfig) TTL() time.Duration {
	return time.Duration(a.TokenTTL) * time.Minute
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
