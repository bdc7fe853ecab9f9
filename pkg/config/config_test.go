package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "low", cfg.Analysis.MinConfidence)
	assert.True(t, cfg.EntryPoints.Conventions)
	assert.Equal(t, 10, cfg.Resolution.ReexportDepth)
	assert.True(t, cfg.Scanner.Gitignore)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, ".bury.toml", `
ignore = ["**/generated/**"]

[analysis]
min_confidence = "medium"
workers = 4

[entry_points]
patterns = ["cmd/**"]
functions = ["handle_*"]
conventions = false

[resolution]
reexport_depth = 3

[scanner]
gitignore = false
max_file_size = 1048576

[output]
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "medium", cfg.Analysis.MinConfidence)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, []string{"cmd/**"}, cfg.EntryPoints.Patterns)
	assert.Equal(t, []string{"handle_*"}, cfg.EntryPoints.Functions)
	assert.False(t, cfg.EntryPoints.Conventions)
	assert.Equal(t, 3, cfg.Resolution.ReexportDepth)
	assert.Equal(t, []string{"**/generated/**"}, cfg.Ignore)
	assert.False(t, cfg.Scanner.Gitignore)
	assert.Equal(t, int64(1048576), cfg.Scanner.MaxFileSize)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, ".bury.toml", `
[analysis]
min_confidence = "high"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "high", cfg.Analysis.MinConfidence)
	// untouched sections keep their defaults
	assert.Equal(t, 10, cfg.Resolution.ReexportDepth)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, ".bury.json", `{
  "analysis": {"min_confidence": "high"},
  "cache": {"enabled": true, "ttl": 48}
}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "high", cfg.Analysis.MinConfidence)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 48, cfg.Cache.TTL)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, ".bury.yaml", `
analysis:
  min_confidence: medium
entry_points:
  files:
    - src/api.py
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "medium", cfg.Analysis.MinConfidence)
	assert.Equal(t, []string{"src/api.py"}, cfg.EntryPoints.Files)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, ".bury.toml", `
[analysis]
min_confidnce = "high"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadRejectsBadEnum(t *testing.T) {
	path := writeConfig(t, ".bury.toml", `
[analysis]
min_confidence = "absolutely"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadFunctionPattern(t *testing.T) {
	path := writeConfig(t, ".bury.toml", `
[entry_points]
functions = ["*_handler_*"]
`)

	_, err := Load(path)
	assert.Error(t, err, "only one trailing wildcard is allowed")
}

func TestLoadRejectsDepthOutOfRange(t *testing.T) {
	path := writeConfig(t, ".bury.toml", `
[resolution]
reexport_depth = 0
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg := LoadOrDefault()
	assert.Equal(t, "low", cfg.Analysis.MinConfidence, "no config file falls back to defaults")

	require.NoError(t, os.WriteFile(".bury.toml", []byte("[analysis]\nmin_confidence = \"high\"\n"), 0o644))
	cfg = LoadOrDefault()
	assert.Equal(t, "high", cfg.Analysis.MinConfidence)
}
