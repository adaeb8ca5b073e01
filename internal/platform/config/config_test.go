package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `polls:
  - id: 0b6f3f3e-7d3b-4d8e-9c55-2f7f0c1a9a01
    title: Lunch
    options:
      - id: a1a1a1a1-0000-4000-8000-000000000001
        title: Pizza
      - id: b2b2b2b2-0000-4000-8000-000000000002
        title: Sushi
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "livepoll", cfg.ServiceName)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, LedgerMemory, cfg.LedgerBackend)
	assert.Equal(t, CounterMemory, cfg.CounterBackend)
	assert.Empty(t, cfg.RedisKeyPrefix)
	assert.Equal(t, 128, cfg.SubscriberBuffer)
	assert.Empty(t, cfg.Polls)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LEDGER_BACKEND", "Bolt")
	t.Setenv("BOLT_DATA_DIR", t.TempDir())
	t.Setenv("COUNTER_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, LedgerBolt, cfg.LedgerBackend)
	assert.Equal(t, CounterRedis, cfg.CounterBackend)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "s3cret", cfg.SessionSecret)
}

func TestLoadRejectsIncompleteBackends(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "postgres without dsn", env: map[string]string{"LEDGER_BACKEND": "postgres"}},
		{name: "bolt without dir", env: map[string]string{"LEDGER_BACKEND": "bolt"}},
		{name: "redis without addr", env: map[string]string{"COUNTER_BACKEND": "redis"}},
		{name: "unknown ledger", env: map[string]string{"LEDGER_BACKEND": "cassandra"}},
		{name: "unknown counter", env: map[string]string{"COUNTER_BACKEND": "memcached"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			_, err := LoadFrom(viper.New())
			require.Error(t, err)
		})
	}
}

func TestLoadReadsPollSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polls.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))
	t.Setenv("POLL_SEED_FILE", path)

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	require.Len(t, cfg.Polls, 1)
	assert.Equal(t, "Lunch", cfg.Polls[0].Title)
	assert.Equal(t, []OptionSeed{
		{ID: "a1a1a1a1-0000-4000-8000-000000000001", Title: "Pizza"},
		{ID: "b2b2b2b2-0000-4000-8000-000000000002", Title: "Sushi"},
	}, cfg.Polls[0].Options)
}

func TestLoadMissingSeedFile(t *testing.T) {
	t.Setenv("POLL_SEED_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadFrom(viper.New())
	require.Error(t, err)
}

func TestKeyFromFlag(t *testing.T) {
	assert.Equal(t, "ledger_backend", KeyFromFlag("ledger-backend"))
	assert.Equal(t, "http_port", KeyFromFlag(" http-port "))
}
