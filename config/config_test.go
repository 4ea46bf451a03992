package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/toolroom/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 30*time.Second, cfg.Lock.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 102400, cfg.Cache.MaxEntryBytes)
	assert.Equal(t, "none", cfg.Blob.Driver)
	assert.Equal(t, time.Duration(0), cfg.Merge.Interval)
}

func TestLoad_FileThenEnv(t *testing.T) {
	// GIVEN: A YAML file and an env override for one of its keys
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "toolroom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  env: dev
store:
  driver: memory
lock:
  timeout: 5s
cache:
  max_entry_bytes: 2048
`), 0o644))
	t.Setenv("TOOLROOM_LOCK_TIMEOUT", "12s")
	t.Setenv("TOOLROOM_HTTP_ADDR", ":9999")

	// WHEN: Loading
	cfg, err := config.Load(path)
	require.NoError(t, err)

	// THEN: Env beats file, file beats defaults
	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 12*time.Second, cfg.Lock.Timeout)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, 2048, cfg.Cache.MaxEntryBytes)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TOOLROOM_BLOB_DRIVER=fs\n"), 0o644))
	t.Setenv("TOOLROOM_BLOB_DRIVER", "") // registers cleanup
	require.NoError(t, os.Unsetenv("TOOLROOM_BLOB_DRIVER"))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "fs", cfg.Blob.Driver)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOOLROOM_STORE_DRIVER", "mongo")

	_, err := config.Load("")
	assert.ErrorContains(t, err, "store.driver")
}

func TestLoad_PostgresNeedsDSN(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOOLROOM_STORE_DRIVER", "postgres")

	_, err := config.Load("")
	assert.ErrorContains(t, err, "postgres_dsn")
}
