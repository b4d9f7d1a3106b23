package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "aqcover.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 0.5, cfg.Analysis.HighPovertyCutoff, 0.001)
	assert.Equal(t, 8, cfg.Analysis.Workers)
	assert.InDelta(t, 0.1, cfg.Grid.CellDeg, 0.001)
	assert.InDelta(t, 1000, cfg.Grid.BasePop, 0.001)
	assert.InDelta(t, 50000, cfg.Grid.PeakPop, 0.001)
	assert.Equal(t, 20, cfg.Grid.TopCities)
	assert.Equal(t, 16, cfg.WorldPop.Chunks)
	assert.Equal(t, 8, cfg.WorldPop.ChunkMB)
	assert.Equal(t, "aqcover/1.0", cfg.Fetch.UserAgent)
	assert.Equal(t, 4, cfg.Fetch.MaxRetries)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/aqcover
log:
  level: debug
  format: console
server:
  port: 9090
analysis:
  high_poverty_cutoff: 0.4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/aqcover", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.4, cfg.Analysis.HighPovertyCutoff, 0.001)
	// Defaults still apply for unset values
	assert.Equal(t, 8, cfg.Analysis.Workers)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chTempDir(t)

	yaml := "server:\n  port: 9090\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("AQCOVER_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	dir := chTempDir(t)

	yaml := "store:\n  driver: oracle\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestLoadRejectsCutoffOutOfRange(t *testing.T) {
	dir := chTempDir(t)

	yaml := "analysis:\n  high_poverty_cutoff: 1.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	_, err := Load()
	require.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "notalevel", Format: "json"})
	require.Error(t, err)
}
