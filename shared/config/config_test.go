package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the loader at an empty env file and clears variables a
// developer machine may have set.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("MULTA_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{
		"REDIS_ADDRS", "REDIS_PASSWORD", "POD_IP", "STORE_BACKEND", "AUTH_TOKEN_SECRET", "AUTH_TOKEN_TTL",
		"SERVICE_HEARTBEAT_INTERVAL", "SERVICE_HEARTBEAT_TTL", "MULTA_SERVICE_LISTEN_ADDR",
		"ORPHAN_SWEEP_INTERVAL", "LIVE_ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_DEVELOPMENT",
	} {
		t.Setenv(key, "")
		// Unset rather than empty: godotenv never overrides a variable that exists.
		os.Unsetenv(key)
	}
}

func TestLoadMultaServiceConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadMultaServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 8080, cfg.ServicePort)
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Minute, cfg.OrphanSweepInterval)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.UsesRedis())
	assert.Equal(t, devTokenSecret, cfg.TokenSecret)
	assert.Len(t, cfg.Warnings, 2)
}

func TestLoadMultaServiceConfigFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("REDIS_ADDRS", "redis-a:6379, redis-b:6379,")
	t.Setenv("AUTH_TOKEN_SECRET", "s3cret")
	t.Setenv("AUTH_TOKEN_TTL", "2h")
	t.Setenv("MULTA_SERVICE_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("POD_IP", "10.0.0.7")
	t.Setenv("LIVE_ALLOWED_ORIGINS", "https://kasse.example")

	cfg, err := LoadMultaServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"redis-a:6379", "redis-b:6379"}, cfg.RedisAddrs)
	assert.Equal(t, 9090, cfg.ServicePort)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://kasse.example"}, cfg.LiveAllowedOrigins)
	assert.Empty(t, cfg.Warnings)
}

func TestMemoryBackendRunsWithoutRedis(t *testing.T) {
	isolate(t)
	t.Setenv("STORE_BACKEND", "Memory")

	cfg, err := LoadMultaServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.False(t, cfg.UsesRedis())

	t.Setenv("REDIS_ADDRS", "redis:6379")
	_, err = LoadMultaServiceConfig()
	assert.Error(t, err)
}

func TestLoadMultaServiceConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"STORE_BACKEND":             "postgres",
		"AUTH_TOKEN_TTL":            "-1h",
		"ORPHAN_SWEEP_INTERVAL":     "soon",
		"MULTA_SERVICE_LISTEN_ADDR": "localhost",
		"LOG_DEVELOPMENT":           "maybe",
		"SERVICE_HEARTBEAT_TTL":     "1s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			isolate(t)
			t.Setenv(key, value)
			_, err := LoadMultaServiceConfig()
			assert.Error(t, err)
		})
	}
}

func TestDotEnvFileIsLoaded(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "multa.env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_BACKEND=memory\nAUTH_TOKEN_SECRET=from-file\n"), 0o600))
	t.Setenv("MULTA_ENV_FILE", path)

	cfg, err := LoadMultaServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "from-file", cfg.TokenSecret)
}

func TestExtractPort(t *testing.T) {
	port, err := extractPort(":8080")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	_, err = extractPort("nope")
	assert.Error(t, err)
}
