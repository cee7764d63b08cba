package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen: ":8080"
logger:
  level: debug
storage:
  database: /tmp/cptrack.db
redis:
  addr: localhost:6379
  db: 2
upstream:
  leetcode_base_url: http://localhost:9001/graphql
  timeout_seconds: 30
auth:
  jwt:
    secret: test-secret
    expire_hours: 72
  local:
    enabled: true
cors:
  allowed_origins:
    - http://localhost:5173
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "/tmp/cptrack.db", cfg.Storage.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "http://localhost:9001/graphql", cfg.Upstream.LeetCodeBaseURL)
	assert.Empty(t, cfg.Upstream.CodeforcesBaseURL)
	assert.Equal(t, 30, cfg.Upstream.TimeoutSeconds)
	assert.Equal(t, "test-secret", cfg.Auth.JWT.Secret)
	assert.True(t, cfg.Auth.Local.Enabled)
	assert.False(t, cfg.Auth.OIDC.Enabled)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestLoadDefaultTimeout(t *testing.T) {
	path := writeConfig(t, "listen: \":8080\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Upstream.TimeoutSeconds)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
