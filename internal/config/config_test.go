package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sourcery.dny.nu/ldforge/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "localhost:8080", cfg.Server.Addr)
	assert.Equal(t, config.BackendMemory, cfg.Registry.Backend)
	assert.Equal(t, 30*time.Second, cfg.Loader.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr string
	}{
		{
			name:   "default",
			modify: func(*config.Config) {},
		},
		{
			name:    "missing address",
			modify:  func(c *config.Config) { c.Server.Addr = "" },
			wantErr: "server.addr is required",
		},
		{
			name:    "file backend without path",
			modify:  func(c *config.Config) { c.Registry.Backend = config.BackendFile },
			wantErr: "registry.path is required",
		},
		{
			name: "file backend",
			modify: func(c *config.Config) {
				c.Registry.Backend = config.BackendFile
				c.Registry.Path = "registry.json"
			},
		},
		{
			name:    "redis backend without URL",
			modify:  func(c *config.Config) { c.Registry.Backend = config.BackendRedis },
			wantErr: "registry.redis_url is required",
		},
		{
			name:    "unknown backend",
			modify:  func(c *config.Config) { c.Registry.Backend = "etcd" },
			wantErr: `unknown registry backend: "etcd"`,
		},
		{
			name:    "unknown log level",
			modify:  func(c *config.Config) { c.LogLevel = "trace" },
			wantErr: `unknown log level: "trace"`,
		},
		{
			name:    "negative timeout",
			modify:  func(c *config.Config) { c.Loader.Timeout = -time.Second },
			wantErr: "loader.timeout must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ldforge.yaml")
	content := `
server:
  addr: ":9090"
  allowed_origins:
    - https://editor.example.com
registry:
  backend: file
  path: /var/lib/ldforge/registry.json
loader:
  proxies:
    - https://proxy.example.com/?url={url}
  timeout: 5s
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://editor.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout, "unset values keep their default")
	assert.Equal(t, config.BackendFile, cfg.Registry.Backend)
	assert.Equal(t, "/var/lib/ldforge/registry.json", cfg.Registry.Path)
	assert.Equal(t, "ldforge:registry", cfg.Registry.Key)
	assert.Equal(t, []string{"https://proxy.example.com/?url={url}"}, cfg.Loader.Proxies)
	assert.Equal(t, 5*time.Second, cfg.Loader.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server, cfg.Server)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv(config.EnvRedisURL, "redis://cache:6379/2")

	path := filepath.Join(t.TempDir(), "ldforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registry:\n  backend: redis\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/2", cfg.Registry.RedisURL)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := config.Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [\n"), 0o644))
	_, err = config.Load(bad)
	require.ErrorContains(t, err, "failed to parse config file")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("log_level: loud\n"), 0o644))
	_, err = config.Load(invalid)
	require.ErrorContains(t, err, "invalid configuration")
}

func TestSaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ldforge.yaml")

	cfg := config.Default()
	cfg.Loader.Proxies = []string{"https://proxy.example.com/"}
	cfg.Server.AllowedOrigins = []string{"*"}
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
