package config_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxdb/config"
	"github.com/syssam/veloxdb/dialect"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLite, cfg.Dialect)
	assert.Equal(t, 5, cfg.MaxIncludeDepth)
	assert.Equal(t, 500, cfg.MaxBatchRows)
	assert.Equal(t, 999, cfg.MaxBatchParams)
	assert.Equal(t, 3, cfg.MaxConflictRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.SlowQueryThreshold)
	assert.False(t, cfg.Debug)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veloxdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dialect: postgres
dsn: postgres://localhost/app
max_include_depth: 3
slow_query_threshold: 250ms
log_level: debug
debug: true
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, cfg.Dialect)
	assert.Equal(t, "postgres://localhost/app", cfg.DSN)
	assert.Equal(t, 3, cfg.MaxIncludeDepth)
	assert.Equal(t, 65535, cfg.MaxBatchParams)
	assert.Equal(t, 500, cfg.MaxBatchRows, "unset keys keep their default")
	assert.Equal(t, 250*time.Millisecond, cfg.SlowQueryThreshold)
	assert.True(t, cfg.Debug)
	l, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veloxdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_batch_rows: 100\n"), 0o600))
	t.Setenv("VELOXDB_MAX_BATCH_ROWS", "50")
	t.Setenv("VELOXDB_MAX_CONFLICT_RETRIES", "0")
	t.Setenv("VELOXDB_SLOW_QUERY_THRESHOLD", "2s")
	t.Setenv("VELOXDB_TRACING", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxBatchRows)
	assert.Zero(t, cfg.MaxConflictRetries)
	assert.Equal(t, 2*time.Second, cfg.SlowQueryThreshold)
	assert.True(t, cfg.Tracing)

	t.Setenv("VELOXDB_MAX_BATCH_ROWS", "many")
	_, err = config.Load(path)
	assert.ErrorContains(t, err, "VELOXDB_MAX_BATCH_ROWS")
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "veloxdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_depth: 3\n"), 0o600))
	_, err = config.Load(path)
	assert.ErrorContains(t, err, "max_depth")
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Dialect = "oracle"
	cfg.MaxIncludeDepth = 0
	cfg.MaxBatchRows = -1
	cfg.MaxConflictRetries = -2
	cfg.LogLevel = "loud"
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"oracle", "max_include_depth", "max_batch_rows", "max_batch_params", "max_conflict_retries", "log_level"} {
		assert.ErrorContains(t, err, want)
	}

	cfg = config.Default()
	cfg.MaxBatchParams = 5000
	assert.ErrorContains(t, cfg.Validate(), "exceeds the sqlite limit")
	cfg.MaxBatchParams = 900
	assert.NoError(t, cfg.Validate())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.LogLevel = "warn"
	cfg.LogFormat = "text"
	log := cfg.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown", "entity", "User")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "entity=User")

	buf.Reset()
	cfg.LogFormat = "json"
	cfg.Logger(&buf).Error("failed")
	assert.Contains(t, buf.String(), `"msg":"failed"`)
}
