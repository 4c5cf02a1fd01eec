package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/mediabatch/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	for _, env := range []string{
		config.EnvBackendURL, config.EnvBackendTimeout, config.EnvLogLevel, config.EnvLogFormat,
		config.EnvGladiaKeys, config.EnvElevenLabsKeys, config.EnvOutputFormat,
	} {
		t.Setenv(env, "")
	}
	return home
}

func TestDefault(t *testing.T) {
	home := isolate(t)
	cfg := config.Default()

	assert.Equal(t, config.DefaultBackendURL, cfg.Backend.URL)
	assert.Equal(t, config.DefaultTTSRetryDelay, cfg.Jobs.TTS.RetryDelay)
	assert.Zero(t, cfg.Jobs.Subtitle.RetryDelay)
	assert.Equal(t, 1, cfg.Jobs.Scene.Concurrency)
	assert.Equal(t, config.DefaultDownloadThread, cfg.Jobs.Download.Concurrency)
	assert.Equal(t, filepath.Join(home, "config.yaml"), cfg.ConfigPath())
	assert.Equal(t, filepath.Join(home, "cache"), cfg.Cache.Directory)
	require.NoError(t, cfg.Validate())
}

func TestNew_LoadsGlobalFile(t *testing.T) {
	home := isolate(t)
	content := `
backend:
  url: http://10.0.0.2:5001/api
  timeout: 45s
keys:
  gladia: [g1, g2]
  elevenlabs:
    - e1
    - key: e2
      enabled: false
    - key: e3
jobs:
  tts:
    retry_delay: 3s
    voice: narrator
`
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(content), 0o600))

	cfg := config.New()
	assert.Equal(t, "http://10.0.0.2:5001/api", cfg.Backend.URL)
	assert.Equal(t, 45*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, []string{"g1", "g2"}, cfg.Keys.Gladia)
	assert.Equal(t, []string{"e1", "e3"}, cfg.Keys.EnabledElevenLabsKeys())
	assert.Equal(t, 3*time.Second, cfg.Jobs.TTS.RetryDelay)
	assert.Equal(t, "narrator", cfg.Jobs.TTS.Voice)
	assert.Equal(t, config.DefaultTTSModel, cfg.Jobs.TTS.Model, "keys absent from the file keep defaults")
}

func TestNew_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvBackendURL, "http://override/api")
	t.Setenv(config.EnvBackendTimeout, "5s")
	t.Setenv(config.EnvLogLevel, "debug")
	t.Setenv(config.EnvGladiaKeys, "a, b,,c")
	t.Setenv(config.EnvElevenLabsKeys, "x")

	cfg := config.New()
	assert.Equal(t, "http://override/api", cfg.Backend.URL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Keys.Gladia)
	assert.Equal(t, []string{"x"}, cfg.Keys.EnabledElevenLabsKeys())
}

func TestSaveAndReload(t *testing.T) {
	isolate(t)
	cfg := config.Default()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg.SetConfigPath(path)
	cfg.Keys.ElevenLabs = []config.ElevenLabsKey{{Key: "k1", Enabled: true}, {Key: "k2", Enabled: false}}
	cfg.Jobs.Download.OutputDir = "/videos"

	require.NoError(t, cfg.Save())

	loaded := config.Default()
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, cfg.Keys.ElevenLabs, loaded.Keys.ElevenLabs)
	assert.Equal(t, "/videos", loaded.Jobs.Download.OutputDir)
	assert.Equal(t, cfg.Backend.Timeout, loaded.Backend.Timeout)
}

func TestSave_NoPath(t *testing.T) {
	cfg := &config.Config{}
	assert.Error(t, cfg.Save())
}

func TestValidate(t *testing.T) {
	isolate(t)

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"relative backend url", func(c *config.Config) { c.Backend.URL = "/api" }},
		{"zero timeout", func(c *config.Config) { c.Backend.Timeout = 0 }},
		{"bad min version", func(c *config.Config) { c.Backend.MinVersion = "not-a-version" }},
		{"negative concurrency", func(c *config.Config) { c.Jobs.TTS.Concurrency = -1 }},
		{"negative retry delay", func(c *config.Config) { c.Jobs.Subtitle.RetryDelay = -time.Second }},
		{"threshold out of range", func(c *config.Config) { c.Jobs.Scene.Threshold = 1.5 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"bad output format", func(c *config.Config) { c.Output.DefaultFormat = "csv" }},
		{"bad tui mode", func(c *config.Config) { c.Output.TUI = "sometimes" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}

	t.Run("valid min version", func(t *testing.T) {
		cfg := config.Default()
		cfg.Backend.MinVersion = "1.2.0"
		assert.NoError(t, cfg.Validate())
	})
}
