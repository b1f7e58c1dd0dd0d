package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "console", cfg.Server.LogEncoding)
	require.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Host)
	require.Equal(t, 5433, cfg.Database.Port)
	require.Equal(t, "observer", cfg.Database.Name)
	require.Equal(t, map[string]string{"sslmode": "require"}, cfg.Database.Options)
	require.Equal(t, 20, cfg.Database.MaxOpenConns)
	require.Equal(t, 5, cfg.Database.MaxIdleConns)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.True(t, cfg.Cache.Redis.TLS)
	require.Equal(t, 2*time.Second, cfg.Cache.Redis.Timeout)

	require.Equal(t, "tron:lookups:test", cfg.Cache.Lookups.Key)
	require.Equal(t, 50, cfg.Cache.Lookups.Capacity)
	require.Equal(t, 30*time.Minute, cfg.Cache.Lookups.TTL)
	require.False(t, cfg.Cache.Lookups.FallbackOnMiss)

	require.Equal(t, 3*time.Second, cfg.Tron.Timeout)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/internal/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.True(t, cfg.Monitoring.Health.Enabled)
	require.Equal(t, "@every 10m", cfg.Maintenance.CachePurgeSchedule)

	require.True(t, cfg.RateLimit.Enabled)
	require.Equal(t, 30, cfg.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "json", cfg.Server.LogEncoding)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/tronobserver.sqlite", cfg.Database.Path)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "tron:lookups:recent", cfg.Cache.Lookups.Key)
	require.Equal(t, 100, cfg.Cache.Lookups.Capacity)
	require.Equal(t, time.Hour, cfg.Cache.Lookups.TTL)
	require.True(t, cfg.Cache.Lookups.FallbackOnMiss)
	require.Equal(t, "https://api.trongrid.io", cfg.Tron.BaseURL)
	require.Equal(t, 10*time.Second, cfg.Tron.Timeout)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.Equal(t, "@hourly", cfg.Maintenance.CachePurgeSchedule)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TRONOBSERVER_SERVER_PORT", "7070")
	t.Setenv("TRONOBSERVER_CACHE_LOOKUPS_CAPACITY", "25")
	t.Setenv("TRONOBSERVER_TRON_API_KEY", "from-env")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, 25, cfg.Cache.Lookups.Capacity)
	require.Equal(t, "from-env", cfg.Tron.APIKey)
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o600))

	_, err := LoadConfig(dir)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Port: 8000},
			Cache: CacheConfig{
				Lookups: LookupsCacheConfig{Capacity: 100, TTL: time.Hour},
			},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Cache.Lookups.Capacity = 0
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Cache.Lookups.TTL = 0
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Cache.Redis.Enabled = true
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.RateLimit = RateLimitConfig{Enabled: true, Requests: 10}
	require.Error(t, cfg.Validate())
}

func TestConfigAdapters(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	redisCfg := cfg.Cache.RedisClientConfig()
	require.Equal(t, "redis.example.com:6380", redisCfg.Address)
	require.Equal(t, 2, redisCfg.DB)
	require.True(t, redisCfg.TLS)

	recent := cfg.Cache.RecencyCacheConfig()
	require.Equal(t, "tron:lookups:test", recent.Key)
	require.Equal(t, 50, recent.Capacity)
	require.Equal(t, 30*time.Minute, recent.TTL)
	require.False(t, cfg.Cache.LookupRepositoryOptions().FallbackOnMiss)

	dbCfg := cfg.Database.ConnectionConfig()
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "observer", dbCfg.Name)
	require.Equal(t, "secret", dbCfg.Password)

	tronCfg := cfg.Tron.ClientConfig()
	require.Equal(t, "https://nile.trongrid.io", tronCfg.BaseURL)
	require.Equal(t, "key-123", tronCfg.APIKey)
	require.Equal(t, 3*time.Second, tronCfg.Timeout)
}
