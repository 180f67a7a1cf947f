package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "DEV", cfg.Env)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "redis", cfg.Store)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	assert.Equal(t, 8, cfg.RedisDB)
	assert.Equal(t, 5*1024*1024, cfg.MaxRecordBytes)
	assert.Equal(t, "include", cfg.HiddenRows)
	assert.Equal(t, ".", cfg.ExportDir)
	assert.Equal(t, cfg.RedisAddr, cfg.RedisOptions().Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("ATTENDANCE_STORE", "MEMORY")
	t.Setenv("ATTENDANCE_HIDDEN_ROWS", "exclude")
	t.Setenv("ATTENDANCE_MAX_RECORD_BYTES", "1024")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, "exclude", cfg.HiddenRows)
	assert.Equal(t, 1024, cfg.MaxRecordBytes)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENV", "test")
	// registered so the value godotenv sets is removed after the test
	t.Setenv("ATTENDANCE_ADDR", "")
	require.NoError(t, os.Unsetenv("ATTENDANCE_ADDR"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test"), []byte("ATTENDANCE_ADDR=:9090\n"), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "TEST", cfg.Env)
	assert.Equal(t, ":9090", cfg.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("ATTENDANCE_STORE", "postgres")

	_, err := Load(t.TempDir())
	assert.Error(t, err)

	t.Setenv("ATTENDANCE_STORE", "memory")
	t.Setenv("ATTENDANCE_HIDDEN_ROWS", "sometimes")
	_, err = Load(t.TempDir())
	assert.Error(t, err)
}
