package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/raw_data.csv", cfg.Data.Raw)
	assert.Equal(t, "windows-1252", cfg.Data.Encoding)
	assert.Equal(t, "out", cfg.Out.Dir)
	assert.Equal(t, 6, cfg.Clean.Rounds)
	assert.Equal(t, 2, cfg.Clean.MetadataRows)
	assert.InDelta(t, 4.0, cfg.Clean.TrustThreshold, 0.001)
	assert.Len(t, cfg.Clean.TrustColumns, 3)
	assert.False(t, cfg.Geo.Enabled)
	assert.Equal(t, "LocationLatitude", cfg.Geo.Latitude)
	assert.Len(t, cfg.Geo.Indicators, 3)
	assert.Equal(t, 5, cfg.Geocode.MaxAttempts)
	assert.Equal(t, []string{"att_1", "att_2", "att_3", "att_4", "att_5"}, cfg.Design.Attributes)
	assert.Len(t, cfg.Models, 6)
	assert.Equal(t, "model3c", cfg.Report.AMCE)
	assert.Equal(t, ",", cfg.Report.Decimal)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
data:
  raw: mock/raw_data_mock.csv
log:
  level: debug
  format: console
geo:
  enabled: true
  indicators:
    - name: coal_prox
      category: coal
      threshold_km: 25
models:
  - name: only
    covariates: base
    outcome: support
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mock/raw_data_mock.csv", cfg.Data.Raw)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Geo.Enabled)
	require.Len(t, cfg.Geo.Indicators, 1)
	assert.InDelta(t, 25.0, cfg.Geo.Indicators[0].ThresholdKM, 0.001)
	require.Len(t, cfg.Models, 1)
	assert.Equal(t, "only", cfg.Models[0].Name)
	// Defaults still apply for unset values
	assert.Equal(t, 6, cfg.Clean.Rounds)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
out:
  dir: results
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CONJOINT_OUT_DIR", "elsewhere")
	t.Setenv("CONJOINT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "elsewhere", cfg.Out.Dir)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unterminated"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
