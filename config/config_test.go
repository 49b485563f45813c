package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/curriculum-engine/config"
)

// isolate runs the test in an empty directory with the relevant variables
// unset. t.Setenv registers the restore; Unsetenv makes them absent so a
// .env file can still supply them.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{"CCE_PORT", "CCE_DB_PATH", "GOOGLE_API_KEY", "GEMINI_API_KEY", "CCE_MODEL", "CCE_CURRICULUM", "CCE_LOG_LEVEL"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return dir
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	dir := isolate(t)

	cfg, err := config.Load(filepath.Join(dir, "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Extraction.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Extraction.Backoff)
	assert.False(t, cfg.Extraction.Active(), "no API key means offline")
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileThenDotEnvThenEnvironment(t *testing.T) {
	// GIVEN: A YAML file
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  max_upload_mb: 4
database:
  path: /var/lib/cce.db
  retention: 720h
extraction:
  backoff: 500ms
  model: from-file
logging:
  level: warn
`), 0o600))

	// AND: A .env file and an environment variable
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOOGLE_API_KEY=from-dotenv\nCCE_MODEL=from-dotenv\n"), 0o600))
	t.Setenv("CCE_PORT", "9100")

	// WHEN: Loading
	cfg, err := config.Load(path)

	// THEN: Later sources win
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, int64(4), cfg.Server.MaxUploadMB)
	assert.Equal(t, "/var/lib/cce.db", cfg.Database.Path)
	assert.Equal(t, 720*time.Hour, cfg.Database.Retention)
	assert.Equal(t, 500*time.Millisecond, cfg.Extraction.Backoff)
	assert.Equal(t, "from-dotenv", cfg.Extraction.APIKey)
	assert.True(t, cfg.Extraction.Active())
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(path, []byte("extraction:\n  max_attempts: 0\n"), 0o600))
	_, err := config.Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))
	_, err = config.Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("server: [1, 2]\n"), 0o600))
	_, err = config.Load(path)
	assert.Error(t, err)

	t.Setenv("CCE_PORT", "eighty")
	_, err = config.Load("")
	assert.Error(t, err)
}

func TestConfig_RuleSet(t *testing.T) {
	isolate(t)
	cfg := config.Default()

	rules, err := cfg.RuleSet()
	require.NoError(t, err)
	assert.Equal(t, "bm-2024", rules.Version())

	cfg.Curriculum.Path = "does-not-exist.yaml"
	_, err = cfg.RuleSet()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := config.NewLogger(config.LoggingConfig{Level: "info"}, true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1), "verbose enables debug")

	_, err = config.NewLogger(config.LoggingConfig{Level: "nope"}, false)
	assert.Error(t, err)
}
