package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubHome points HOME at a temp dir and clears MEDIABATCH_HOME.
func stubHome(t *testing.T) string {
	t.Helper()
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("USERPROFILE", tmpHome)
	t.Setenv(EnvHome, "")
	return tmpHome
}

func TestGlobalConfig(t *testing.T) {
	stubHome(t)
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	cfg := GetGlobalConfig()
	assert.NotNil(t, cfg)
	assert.Equal(t, "table", cfg.Output.DefaultFormat)

	cfg2 := GetGlobalConfig()
	assert.Same(t, cfg, cfg2)

	ResetGlobalConfigForTest()
	cfg3 := GetGlobalConfig()
	assert.NotSame(t, cfg, cfg3)
}

func TestConfigGetters(t *testing.T) {
	stubHome(t)
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	cfg := GetGlobalConfig()
	cfg.Output.DefaultFormat = "json"
	cfg.Logging.Level = "debug"
	cfg.Logging.File = "/tmp/test.log"

	assert.Equal(t, "json", GetDefaultOutputFormat())
	assert.Equal(t, "debug", GetLogLevel())
	assert.Equal(t, "/tmp/test.log", GetLogFile())
	assert.Equal(t, "debug", GetLoggingConfig().Level)
}

func TestEnsureConfigDir(t *testing.T) {
	tmpHome := stubHome(t)

	err := EnsureConfigDir()
	require.NoError(t, err)

	stat, err := os.Stat(filepath.Join(tmpHome, ".mediabatch"))
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}

func TestEnsureLogDir(t *testing.T) {
	stubHome(t)
	tmpDir := t.TempDir()
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	cfg := GetGlobalConfig()
	cfg.Logging.File = filepath.Join(tmpDir, "logs", "subdir", "test.log")

	require.NoError(t, EnsureLogDir())

	stat, err := os.Stat(filepath.Join(tmpDir, "logs", "subdir"))
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}

func TestEnsureLogDirError(t *testing.T) {
	stubHome(t)
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)
	cfg := GetGlobalConfig()

	// A regular file cannot be used as a directory.
	tmpFile, err := os.CreateTemp(t.TempDir(), "test-file")
	require.NoError(t, err)
	tmpFile.Close()

	cfg.Logging.File = filepath.Join(tmpFile.Name(), "subdir", "test.log")
	assert.Error(t, EnsureLogDir())
}

func TestGetConfigDir(t *testing.T) {
	t.Run("home", func(t *testing.T) {
		home := stubHome(t)
		dir, err := GetConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".mediabatch"), dir)
	})

	t.Run("env override", func(t *testing.T) {
		custom := t.TempDir()
		t.Setenv(EnvHome, custom)
		dir, err := GetConfigDir()
		require.NoError(t, err)
		assert.Equal(t, custom, dir)
	})
}

func TestEnsureSubDirs(t *testing.T) {
	home := stubHome(t)
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	require.NoError(t, EnsureSubDirs())

	for _, sub := range []string{"cache", "logs"} {
		stat, err := os.Stat(filepath.Join(home, ".mediabatch", sub))
		require.NoError(t, err, sub)
		assert.True(t, stat.IsDir())
	}

	historyPath, err := GetHistoryPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".mediabatch", "history.json"), historyPath)
}

func TestInitGlobalConfigWithProject(t *testing.T) {
	ctx := context.Background()

	t.Run("project_config_overrides_global_section", func(t *testing.T) {
		ResetGlobalConfigForTest()
		t.Cleanup(ResetGlobalConfigForTest)

		globalDir := t.TempDir()
		t.Setenv(EnvHome, globalDir)
		t.Setenv(EnvBackendURL, "")

		globalCfg := "backend:\n  url: http://global:5001/api\n  timeout: 1m\noutput:\n  default_format: json\n  tui: never\n"
		require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config.yaml"), []byte(globalCfg), 0o644))

		projectDir := filepath.Join(t.TempDir(), ".mediabatch")
		require.NoError(t, os.MkdirAll(projectDir, 0o755))
		projectCfg := "backend:\n  url: http://project:5001/api\n  timeout: 30s\n"
		require.NoError(t, os.WriteFile(filepath.Join(projectDir, "config.yaml"), []byte(projectCfg), 0o644))

		InitGlobalConfigWithProject(ctx, projectDir)
		cfg := GetGlobalConfig()

		require.NotNil(t, cfg)
		assert.Equal(t, "http://project:5001/api", cfg.Backend.URL)
		assert.Equal(t, "json", cfg.Output.DefaultFormat, "sections absent from the overlay come from the global file")
		assert.Equal(t, projectDir, GetResolvedProjectDir())
	})

	t.Run("env_wins_over_project", func(t *testing.T) {
		ResetGlobalConfigForTest()
		t.Cleanup(ResetGlobalConfigForTest)

		t.Setenv(EnvHome, t.TempDir())
		t.Setenv(EnvBackendURL, "http://env:1/api")

		projectDir := filepath.Join(t.TempDir(), ".mediabatch")
		require.NoError(t, os.MkdirAll(projectDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(projectDir, "config.yaml"),
			[]byte("backend:\n  url: http://project:5001/api\n  timeout: 30s\n"), 0o644))

		InitGlobalConfigWithProject(ctx, projectDir)
		assert.Equal(t, "http://env:1/api", GetGlobalConfig().Backend.URL)
	})
}
