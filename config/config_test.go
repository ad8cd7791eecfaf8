package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "v7", cfg.Architecture.Arch)
	assert.True(t, cfg.Architecture.Thumb)
	assert.Equal(t, uint64(1_000_000), cfg.Execution.MaxCycles)
	assert.Equal(t, "0x8000", cfg.Execution.DefaultEntry)
	assert.Equal(t, "hex", cfg.Display.NumberFormat)
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	assert.NotEmpty(t, path)
	assert.Equal(t, "config.toml", filepath.Base(path))
}

func TestRequestMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Architecture.Jazelle = true
	cfg.Architecture.EL2 = true
	cfg.Architecture.BigEndian32 = true

	req := cfg.Request()
	assert.Equal(t, "v7", req.Arch)
	assert.True(t, req.Jazelle)
	assert.True(t, req.EL2Supported)
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.toml")

	cfg := DefaultConfig()
	cfg.Execution.MaxCycles = 5_000_000
	cfg.Architecture.Jazelle = true
	cfg.Display.ColorOutput = false

	require.NoError(t, cfg.SaveTo(configPath))
	_, err := os.Stat(configPath)
	require.NoError(t, err, "config file was not created")

	loaded, err := LoadFrom(configPath)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), loaded.Execution.MaxCycles)
	assert.True(t, loaded.Architecture.Jazelle)
	assert.False(t, loaded.Display.ColorOutput)
}

func TestLoadNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.toml")

	cfg, err := LoadFrom(configPath)
	require.NoError(t, err, "LoadFrom should not error on non-existent file")
	assert.Equal(t, uint64(1_000_000), cfg.Execution.MaxCycles, "expected default config when file doesn't exist")
}

func TestLoadInvalidTOML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.toml")

	invalidTOML := `
[execution]
max_cycles = "not a number"
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidTOML), 0644))

	_, err := LoadFrom(configPath)
	assert.Error(t, err, "expected error when loading invalid TOML")
}

func TestSaveCreatesDirectory(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subdir1", "subdir2", "config.toml")

	cfg := DefaultConfig()
	require.NoError(t, cfg.SaveTo(configPath))
	_, err := os.Stat(configPath)
	assert.NoError(t, err, "config file was not created")
}
