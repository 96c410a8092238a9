// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/ggoodman/a11y-warehouse/jsonmap"
)

// Warehouse backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	// ListenAddr for the HTTP API. ENV: LISTEN_ADDR
	ListenAddr string `env:"LISTEN_ADDR,default=:8000"`
	// APIKey callers present in the x-auth header. ENV: API_KEY
	APIKey string `env:"API_KEY"`
	// MaxBodyBytes caps request bodies. ENV: MAX_BODY_BYTES
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES,default=1048576"`

	// A11YURL is the base URL of the scanning service. ENV: A11Y_URL
	A11YURL string `env:"A11Y_URL"`
	// A11YJWT is sent verbatim as the Authorization header. ENV: A11Y_JWT
	A11YJWT string `env:"A11Y_JWT"`
	// A11YTimeout bounds one round trip to the scanning service. ENV: A11Y_TIMEOUT
	A11YTimeout time.Duration `env:"A11Y_TIMEOUT,default=10m"`

	// Dataset that receives every table. ENV: WAREHOUSE_DATASET
	Dataset string `env:"WAREHOUSE_DATASET,default=rusty_a11y"`
	// Backend is "memory" or "redis". ENV: WAREHOUSE_BACKEND
	Backend string `env:"WAREHOUSE_BACKEND,default=memory"`
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all warehouse keys. ENV: WAREHOUSE_KEY_PREFIX
	KeyPrefix string `env:"WAREHOUSE_KEY_PREFIX,default=a11y:warehouse:"`

	// MappingDir holds optional rule table overrides. ENV: MAPPING_DIR
	MappingDir string `env:"MAPPING_DIR"`
	// MergeStrategy is "outer" or "nested". ENV: MAPPING_MERGE_STRATEGY
	MergeStrategy string `env:"MAPPING_MERGE_STRATEGY,default=outer"`

	// TargetRate is the number of stored targets processed per second. ENV: TARGET_RATE
	TargetRate float64 `env:"TARGET_RATE,default=2"`
	// TargetBurst allows short bursts above TargetRate. ENV: TARGET_BURST
	TargetBurst int `env:"TARGET_BURST,default=1"`

	// LogLevel is debug, info, warn or error. ENV: LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// FromEnv decodes and validates the configuration.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.A11YURL == "" {
		return errors.New("config: A11Y_URL is required")
	}
	u, err := url.Parse(c.A11YURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: A11Y_URL must be an absolute http(s) URL, got %q", c.A11YURL)
	}
	if c.A11YTimeout <= 0 {
		return fmt.Errorf("config: A11Y_TIMEOUT must be positive, got %s", c.A11YTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	if c.Dataset == "" {
		return errors.New("config: WAREHOUSE_DATASET must not be empty")
	}
	switch c.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("config: unknown WAREHOUSE_BACKEND %q (want %s or %s)", c.Backend, BackendMemory, BackendRedis)
	}
	if _, err := jsonmap.ParseMergeStrategy(c.MergeStrategy); err != nil {
		return fmt.Errorf("config: MAPPING_MERGE_STRATEGY: %w", err)
	}
	if c.TargetRate <= 0 {
		return fmt.Errorf("config: TARGET_RATE must be positive, got %v", c.TargetRate)
	}
	if c.TargetBurst < 1 {
		return fmt.Errorf("config: TARGET_BURST must be at least 1, got %d", c.TargetBurst)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q", c.LogLevel)
	}
	return lvl, nil
}

// Strategy parses MergeStrategy. Call Validate first.
func (c *Config) Strategy() jsonmap.MergeStrategy {
	s, _ := jsonmap.ParseMergeStrategy(c.MergeStrategy)
	return s
}
