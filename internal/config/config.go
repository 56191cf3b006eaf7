// Package config loads the process configuration from an optional YAML
// file layered under GRANTLAB_-prefixed environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "GRANTLAB_"

// Config is the full process configuration tree. Zero values on the
// domain knobs (TTLs, polling tuning, provider bases) mean "use the
// component's own default"; only the fields main consumes directly get
// concrete defaults here.
type Config struct {
	Server    Server    `koanf:"server"`
	Log       Log       `koanf:"log"`
	Storage   Storage   `koanf:"storage"`
	Provider  Provider  `koanf:"provider"`
	Sessions  Sessions  `koanf:"sessions"`
	Artifacts Artifacts `koanf:"artifacts"`
	Polling   Polling   `koanf:"polling"`
	Janitor   Janitor   `koanf:"janitor"`
}

// Server configures the HTTP listener.
type Server struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// CORSOrigins allows the playground UI origin; empty disables CORS.
	// Comma-separated in environment form.
	CORSOrigins []string `koanf:"cors_origins"`
}

// Log configures the slog handler.
type Log struct {
	// Level is one of debug, info, warn, error
	Level string `koanf:"level"`

	// Format is text or json
	Format string `koanf:"format"`
}

// Storage selects the durable artifact backends. All of them are
// optional; with none configured the store runs on memory alone.
type Storage struct {
	// RedisURL enables the Redis backend when set (redis://host:port/db)
	RedisURL string `koanf:"redis_url"`

	// PostgresURL enables the Postgres backend when set
	PostgresURL string `koanf:"postgres_url"`

	// BuntPath enables the BuntDB backend; ":memory:" keeps it off disk
	BuntPath string `koanf:"bunt_path"`

	// Passphrase derives the key that encrypts secrets at rest in
	// Postgres. Required when PostgresURL is set.
	Passphrase string `koanf:"passphrase"`
}

// Provider configures the identity provider endpoints and the optional
// worker application used for management API calls.
type Provider struct {
	AuthBase           string        `koanf:"auth_base"`
	APIBase            string        `koanf:"api_base"`
	Timeout            time.Duration `koanf:"timeout"`
	WorkerClientID     string        `koanf:"worker_client_id"`
	WorkerClientSecret string        `koanf:"worker_client_secret"`
}

// Sessions configures flow session lifetimes.
type Sessions struct {
	TTL time.Duration `koanf:"ttl"`
}

// Artifacts configures stored artifact lifetimes.
type Artifacts struct {
	TTL time.Duration `koanf:"ttl"`
}

// Polling tunes the device grant polling engine.
type Polling struct {
	// SlowDownStep is the interval increase in seconds applied on a
	// slow_down response
	SlowDownStep int `koanf:"slow_down_step"`

	// AttemptBuffer pads the attempt budget derived from the device
	// code lifetime
	AttemptBuffer int `koanf:"attempt_buffer"`
}

// Janitor configures the expiry sweeper.
type Janitor struct {
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// Load reads configuration in three layers: built-in defaults, the YAML
// file at path (skipped when absent or path is empty), then environment
// variables. GRANTLAB_SERVER__PORT maps to server.port; the double
// underscore separates nesting levels so single underscores survive
// inside key names (GRANTLAB_STORAGE__REDIS_URL -> storage.redis_url).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// envKey turns GRANTLAB_SERVER__PORT into server.port.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// SlogLevel maps the configured level name onto slog's scale. Unknown
// names fall back to info rather than failing startup.
func (l Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from the log section.
func (l Log) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	var handler slog.Handler
	if strings.EqualFold(l.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
