package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the keys for the test; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"CREASE_DSN", "CREASE_DB_DRIVER", "REDIS_URL", "REST_PORT", "LOG_LEVEL",
		"LOG_FORMAT", "LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL", "ASK_CACHE_TTL",
		"CREASE_DATA_DIR",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("", "")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadConfig_PrecedenceFileThenDotenvThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "crease.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
database:
  driver: sqlite
  dsn: file:from-yaml.db
server:
  rest_port: "9000"
ask:
  cache_ttl: 10m
data:
  dir: /srv/from-yaml
`), 0o644))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("LLM_MODEL=from-dotenv\nREST_PORT=9100\nCREASE_DATA_DIR=/srv/cricsheet\n"), 0o644))
	t.Setenv("REST_PORT", "9200")

	cfg, err := LoadConfig(yamlPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:from-yaml.db", cfg.Database.DSN)
	assert.Equal(t, "9200", cfg.Server.RESTPort)
	assert.Equal(t, "from-dotenv", cfg.LLM.Model)
	assert.Equal(t, 10*time.Minute, cfg.Ask.CacheTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "/srv/cricsheet", cfg.Data.Dir)
}

func TestLoadConfig_Errors(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)

	cfg, err := LoadConfig("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.RESTPort)

	t.Setenv("ASK_CACHE_TTL", "soon")
	_, err = LoadConfig("", "")
	assert.ErrorContains(t, err, "ASK_CACHE_TTL")
}
