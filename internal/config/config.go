// Package config holds the configuration of the ldforge binary.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvRedisURL overrides [RegistryConfig.RedisURL] when set.
const EnvRedisURL = "LDFORGE_REDIS_URL"

// Registry backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the configuration of the ldforge binary.
type Config struct {
	// Server configures the HTTP API started by the serve command.
	Server ServerConfig `yaml:"server"`

	// Registry configures where registered contexts are kept.
	Registry RegistryConfig `yaml:"registry"`

	// Loader configures fetching of remote contexts.
	Loader LoaderConfig `yaml:"loader"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`

	// AllowedOrigins lists the origins allowed to make cross-origin requests.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// ShutdownTimeout bounds how long in-flight requests get on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RegistryConfig configures the context registry store.
type RegistryConfig struct {
	// Backend is one of memory, file or redis.
	Backend string `yaml:"backend"`

	// Path is the JSON file used by the file backend.
	Path string `yaml:"path"`

	// RedisURL is the server used by the redis backend.
	RedisURL string `yaml:"redis_url"`

	// Key is the Redis key the registry is stored under.
	Key string `yaml:"key"`
}

// LoaderConfig configures the remote context loader.
type LoaderConfig struct {
	// Proxies are tried in order after a direct fetch failed.
	Proxies []string `yaml:"proxies"`

	// Timeout applies to every fetch attempt. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "localhost:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Registry: RegistryConfig{
			Backend: BackendMemory,
			Key:     "ldforge:registry",
		},
		Loader: LoaderConfig{
			Timeout: 30 * time.Second,
		},
		LogLevel: "info",
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must not be negative"))
	}
	if c.Loader.Timeout < 0 {
		errs = append(errs, errors.New("loader.timeout must not be negative"))
	}

	switch c.Registry.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Registry.Path == "" {
			errs = append(errs, errors.New("registry.path is required for the file backend"))
		}
	case BackendRedis:
		if c.Registry.RedisURL == "" {
			errs = append(errs, errors.New("registry.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown registry backend: %q", c.Registry.Backend))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		errs = append(errs, fmt.Errorf("unknown log level: %q", c.LogLevel))
	}

	return errors.Join(errs...)
}

// Load returns the default configuration overlaid with the file at path,
// if any, and the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if url := os.Getenv(EnvRedisURL); url != "" {
		cfg.Registry.RedisURL = url
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes the configuration to path, creating its directory.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
