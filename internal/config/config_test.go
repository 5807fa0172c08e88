package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`
env: test
storage_path: ./data/test.db
redis_connection:
  addressredis: "localhost:6380"
  db: 1
http_server:
  addresshttp: "localhost:8081"
  timeouthttp: 5s
telegram:
  bot_token: "123456:ABC-test"
  auth_max_age: 12h
access_token:
  secret_key: "test-secret"
subscription:
  trial_days: 5
rate_limit:
  max_requests: 10
  window: 30s
backup:
  dir: ./backups-test
  retention_days: 7
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg := MustLoad()

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "./data/test.db", cfg.StoragePath)
	assert.Equal(t, "localhost:6380", cfg.AddressRedis)
	assert.Equal(t, 1, cfg.DB)
	assert.Equal(t, "localhost:8081", cfg.AddressHTTP)
	assert.Equal(t, 5*time.Second, cfg.TimeoutHTTP)
	assert.Equal(t, "123456:ABC-test", cfg.BotToken)
	assert.Equal(t, 12*time.Hour, cfg.AuthMaxAge)
	assert.Equal(t, 5, cfg.TrialDays)
	assert.Equal(t, 10, cfg.MaxRequests)
	assert.Equal(t, 7, cfg.RetentionDays)
	// значения по умолчанию
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.PromoCooldown)
}
