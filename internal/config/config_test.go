package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 210.0, cfg.Export.PageWidth)
	assert.Equal(t, 297.0, cfg.Export.PageHeight)
	assert.Equal(t, 10.0, cfg.Export.Margin)
	assert.Equal(t, "canvas", cfg.Export.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Export.InFlightTTL)
	assert.Equal(t, 9091, cfg.Worker.MetricsPort)
}

func TestLoadFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EXPORT_MARGIN_MM", "15")
	t.Setenv("EXPORT_BACKEND", "browser")
	t.Setenv("EXPORT_TIMEOUT", "30s")
	t.Setenv("EXPORT_KEEP_HEADINGS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15.0, cfg.Export.Margin)
	assert.Equal(t, "browser", cfg.Export.Backend)
	assert.Equal(t, 30*time.Second, cfg.Export.Timeout)
	assert.True(t, cfg.Export.KeepHeadings)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("EXPORT_SCALE=3\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("EXPORT_SCALE", "")
	os.Unsetenv("EXPORT_SCALE")

	cfg, err := LoadExport()
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.Scale)
}

func TestLoadRejectsInvalidExport(t *testing.T) {
	setRequiredEnv(t)

	t.Setenv("EXPORT_MARGIN_MM", "120")
	_, err := Load()
	assert.ErrorContains(t, err, "printable area")

	t.Setenv("EXPORT_MARGIN_MM", "10")
	t.Setenv("EXPORT_BACKEND", "gpu")
	_, err = Load()
	assert.ErrorContains(t, err, "unknown export backend")
}

func TestLoadRequiresMinioCredentials(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MINIO_ACCESS_KEY_ID", "")

	_, err := Load()
	assert.Error(t, err)
}
