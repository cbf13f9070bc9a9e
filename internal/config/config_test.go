package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestLoadWalksUpParentDirectories(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "glslmin.json", `{"maxInlines": 3}`)

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, path, err := Load(nested)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, filepath.Join(root, "glslmin.json"), path)
	require.NotNil(t, cfg.MaxInlines)
	require.Equal(t, 3, *cfg.MaxInlines)
}

func TestLoadReturnsNilWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	cfg, path, err := Load(dir)
	require.NoError(t, err)
	require.Nil(t, cfg)
	require.Empty(t, path)
}

func TestToOptionsDefaults(t *testing.T) {
	var cfg *Config
	opts := cfg.ToOptions()
	require.Equal(t, "full", opts.Mode)
	require.Equal(t, -1, opts.MaxInlines)
}

func TestMergePrefersCLIOverConfig(t *testing.T) {
	maxInlinesConfig := 5
	cfg := &Config{MaxInlines: &maxInlinesConfig}

	maxInlinesCLI := 1
	opts := cfg.Merge(MergeOptions{MaxInlines: &maxInlinesCLI})
	require.Equal(t, 1, opts.MaxInlines)
}

func TestMergeFallsBackToConfigWhenCLIUnset(t *testing.T) {
	maxInlinesConfig := 5
	cfg := &Config{MaxInlines: &maxInlinesConfig}

	opts := cfg.Merge(MergeOptions{})
	require.Equal(t, 5, opts.MaxInlines)
}

func TestStageForLooksUpConfiguredStage(t *testing.T) {
	cfg := &Config{Stages: map[string]string{"shader.glsl": "fragment"}}
	require.Equal(t, "fragment", cfg.StageFor("shader.glsl"))
	require.Empty(t, cfg.StageFor("other.glsl"))
}
