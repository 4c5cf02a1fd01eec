package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/mediabatch/internal/config"
)

// makeProject creates a .mediabatch directory under dir.
func makeProject(t *testing.T, dir string) string {
	t.Helper()
	projectDir := filepath.Join(dir, ".mediabatch")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	return projectDir
}

func TestResolveProjectDir_FlagOverride(t *testing.T) {
	t.Setenv(config.EnvProjectDir, "")
	flagDir := t.TempDir()

	got := config.ResolveProjectDir(context.Background(), flagDir, "/does/not/matter")

	assert.Equal(t, filepath.Join(flagDir, ".mediabatch"), got)
	assert.True(t, filepath.IsAbs(got), "returned path must be absolute")
}

func TestResolveProjectDir_FlagOverridesEnv(t *testing.T) {
	envDir := t.TempDir()
	flagDir := t.TempDir()
	t.Setenv(config.EnvProjectDir, envDir)

	got := config.ResolveProjectDir(context.Background(), flagDir, "/does/not/matter")

	assert.Equal(t, filepath.Join(flagDir, ".mediabatch"), got)
}

func TestResolveProjectDir_EnvVarOverride(t *testing.T) {
	envDir := t.TempDir()
	t.Setenv(config.EnvProjectDir, envDir)

	got := config.ResolveProjectDir(context.Background(), "", "/does/not/matter")

	assert.Equal(t, filepath.Join(envDir, ".mediabatch"), got)
}

func TestResolveProjectDir_WalkUp(t *testing.T) {
	t.Setenv(config.EnvProjectDir, "")
	t.Setenv(config.EnvHome, t.TempDir())

	root := t.TempDir()
	projectDir := makeProject(t, root)
	subDir := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(subDir, 0o755))

	got := config.ResolveProjectDir(context.Background(), "", subDir)
	assert.Equal(t, projectDir, got)
}

func TestResolveProjectDir_NoProjectFallback(t *testing.T) {
	t.Setenv(config.EnvProjectDir, "")
	t.Setenv(config.EnvHome, t.TempDir())

	got := config.ResolveProjectDir(context.Background(), "", t.TempDir())
	assert.Empty(t, got)
}

func TestResolveProjectDir_GlobalDirIsNotAProject(t *testing.T) {
	t.Setenv(config.EnvProjectDir, "")
	home := t.TempDir()
	globalDir := makeProject(t, home)
	t.Setenv(config.EnvHome, globalDir)

	got := config.ResolveProjectDir(context.Background(), "", home)
	assert.Empty(t, got)
}

func TestResolveProjectDir_FlagWithSuffix(t *testing.T) {
	t.Setenv(config.EnvProjectDir, "")
	dir := filepath.Join(t.TempDir(), ".mediabatch")

	got := config.ResolveProjectDir(context.Background(), dir, "")
	assert.Equal(t, dir, got, "suffix must not be appended twice")
}

func TestFindProjectRoot_NestedProjects(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())

	outer := t.TempDir()
	makeProject(t, outer)
	inner := filepath.Join(outer, "inner")
	makeProject(t, inner)
	start := filepath.Join(inner, "deeper")
	require.NoError(t, os.MkdirAll(start, 0o755))

	root, err := config.FindProjectRoot(start)
	require.NoError(t, err)
	assert.Equal(t, inner, root, "nearest project wins")
}

func TestSetResolvedProjectDir_RoundTrip(t *testing.T) {
	t.Cleanup(func() { config.SetResolvedProjectDir("") })

	config.SetResolvedProjectDir("/some/project/.mediabatch")
	assert.Equal(t, "/some/project/.mediabatch", config.GetResolvedProjectDir())
}

func TestNewWithProjectDir_EmptyDirMatchesNew(t *testing.T) {
	isolate(t)

	assert.Equal(t, config.New(), config.NewWithProjectDir(context.Background(), ""))
}

func TestNewWithProjectDir_Overlay(t *testing.T) {
	isolate(t)
	projectDir := makeProject(t, t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "config.yaml"), []byte(`
jobs:
  download:
    concurrency: 8
    output_dir: ./downloads
`), 0o600))

	cfg := config.NewWithProjectDir(context.Background(), projectDir)
	assert.Equal(t, 8, cfg.Jobs.Download.Concurrency)
	assert.Equal(t, "./downloads", cfg.Jobs.Download.OutputDir)
	assert.Equal(t, config.DefaultBackendURL, cfg.Backend.URL)
}

func TestNewWithProjectDir_CorruptedYAML(t *testing.T) {
	isolate(t)
	projectDir := makeProject(t, t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "config.yaml"), []byte("jobs: [broken"), 0o600))

	cfg := config.NewWithProjectDir(context.Background(), projectDir)
	assert.Equal(t, config.New(), cfg, "a broken overlay falls back to global config")
}

func TestNewWithProjectDir_MissingConfigYAML(t *testing.T) {
	isolate(t)
	projectDir := makeProject(t, t.TempDir())

	cfg := config.NewWithProjectDir(context.Background(), projectDir)
	assert.Equal(t, config.New(), cfg)
}
