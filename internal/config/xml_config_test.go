package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data/maps"), cfg.GetMapsDir())
	assert.Equal(t, 200*time.Millisecond, cfg.Render.FilterDebounce())
	assert.Equal(t, 16*time.Millisecond, cfg.Render.FrameInterval())

	frame := cfg.Render.Frame()
	assert.Equal(t, 100.0, frame.UnitScale)
}

func TestLoadConfigKeepsDefaultsForMissingElements(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")
	xml := `<AGVMapView>
  <Server><Port>9000</Port></Server>
  <Render><UnitScale>50</UnitScale><StyleSheet>styles.yaml</StyleSheet></Render>
</AGVMapView>`
	require.NoError(t, os.WriteFile(path, []byte(xml), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.BindAddress)
	assert.Equal(t, 50.0, cfg.Render.UnitScale)
	assert.Equal(t, 0.1, cfg.Render.CriticalScale)
	assert.Equal(t, filepath.Join(dir, "styles.yaml"), cfg.Render.StyleSheet)
	assert.Equal(t, "duckdb", cfg.Storage.SnapshotBackend)
}

func TestEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "elsewhere")
	t.Setenv("PORT", "7000")
	t.Setenv("DATA_DIR", data)
	t.Setenv("MAPVIEW_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(dir, "config.xml"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, data, cfg.GetDataDir())
	assert.Equal(t, filepath.Join(data, "maps"), cfg.GetMapsDir())
	assert.Equal(t, filepath.Join(data, "snapshots.duckdb"), cfg.Storage.SnapshotDatabase)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)

	t.Setenv("MAPVIEW_SNAPSHOT_DB", filepath.Join(dir, "snap.db"))
	cfg, err = LoadConfig(filepath.Join(dir, "config.xml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "snap.db"), cfg.Storage.SnapshotDatabase)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"unit scale", func(c *AppConfig) { c.Render.UnitScale = 0 }},
		{"critical scale", func(c *AppConfig) { c.Render.CriticalScale = -1 }},
		{"floor capacity", func(c *AppConfig) { c.Render.FloorCapacity = 0 }},
		{"snapshot backend", func(c *AppConfig) { c.Storage.SnapshotBackend = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.DataDirectory = filepath.Join(dir, "data")
	cfg.Storage.MapsDirectory = filepath.Join(dir, "data", "maps")
	cfg.Storage.SnapshotDatabase = filepath.Join(dir, "db", "snap.duckdb")

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.Storage.MapsDirectory)
	assert.DirExists(t, filepath.Join(dir, "db"))
}
