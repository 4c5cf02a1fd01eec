package cli

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/pkg/version"
)

// newTestSetupCmd creates a setup command with captured output.
func newTestSetupCmd() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := NewSetupCmd()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd, buf
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name           string
		status         StepStatus
		nonInteractive bool
		expected       string
	}{
		{"success_tty", StepSuccess, false, "✓"},
		{"warning_tty", StepWarning, false, "!"},
		{"skipped_tty", StepSkipped, false, "-"},
		{"error_tty", StepError, false, "✗"},
		{"success_non_interactive", StepSuccess, true, "[OK]"},
		{"warning_non_interactive", StepWarning, true, "[WARN]"},
		{"skipped_non_interactive", StepSkipped, true, "[SKIP]"},
		{"error_non_interactive", StepError, true, "[ERR]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatStatus(tt.status, tt.nonInteractive))
		})
	}
}

func TestStepDisplayVersion(t *testing.T) {
	step := stepDisplayVersion()

	assert.Equal(t, StepSuccess, step.Status)
	assert.Contains(t, step.Message, version.GetVersion())
	assert.Contains(t, step.Message, runtime.Version())
}

func TestStepCreateDirectories(t *testing.T) {
	t.Run("clean system", func(t *testing.T) {
		home := filepath.Join(t.TempDir(), "mediabatch")
		t.Setenv(config.EnvHome, home)

		steps := stepCreateDirectories()

		require.Len(t, steps, 3)
		for _, step := range steps {
			assert.Equal(t, StepSuccess, step.Status)
			assert.True(t, step.Critical)
			assert.Contains(t, step.Message, "Created")
		}
		assert.DirExists(t, filepath.Join(home, "cache"))
		assert.DirExists(t, filepath.Join(home, "logs"))

		if runtime.GOOS != "windows" {
			info, err := os.Stat(filepath.Join(home, "logs"))
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(dirPermBase), info.Mode().Perm())
		}
	})

	t.Run("already exist", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(config.EnvHome, home)
		require.NoError(t, os.MkdirAll(filepath.Join(home, "cache"), dirPermBase))
		require.NoError(t, os.MkdirAll(filepath.Join(home, "logs"), dirPermBase))

		steps := stepCreateDirectories()

		require.Len(t, steps, 3)
		for _, step := range steps {
			assert.Equal(t, StepSuccess, step.Status)
			assert.Contains(t, step.Message, "exists")
		}
	})
}

func TestStepInitConfig(t *testing.T) {
	t.Run("creates config", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(config.EnvHome, home)

		step := stepInitConfig()

		assert.Equal(t, StepSuccess, step.Status)
		assert.Contains(t, step.Message, "Initialized config")
		assert.FileExists(t, filepath.Join(home, "config.yaml"))
	})

	t.Run("keeps existing config", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(config.EnvHome, home)
		path := filepath.Join(home, "config.yaml")
		custom := []byte("backend:\n  url: http://example.test/api\n")
		require.NoError(t, os.WriteFile(path, custom, 0o600))

		step := stepInitConfig()

		assert.Equal(t, StepSuccess, step.Status)
		assert.Contains(t, step.Message, "already exists")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, custom, data)
	})
}

func TestStepCheckBackend(t *testing.T) {
	t.Run("healthy with keys", func(t *testing.T) {
		isolate(t)
		srv := fakeBackend(t, map[string]http.HandlerFunc{
			"settings/gladia-keys": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"keys": []string{"g-key-0001", "g-key-0002"}})
			},
			"settings/elevenlabs/keys": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"keys": []map[string]any{
					{"key": "e-key-0001", "enabled": true},
					{"key": "e-key-0002", "enabled": false},
				}})
			},
		})
		cfg := config.Default()
		cfg.Backend.URL = srv.URL + "/api"

		steps := stepCheckBackend(t.Context(), cfg)

		require.Len(t, steps, 2)
		assert.Equal(t, StepSuccess, steps[0].Status)
		assert.Contains(t, steps[0].Message, "1.4.0")
		assert.Equal(t, StepSuccess, steps[1].Status)
		assert.Contains(t, steps[1].Message, "2 alignment keys, 1 enabled speech keys")
	})

	t.Run("too old", func(t *testing.T) {
		isolate(t)
		srv := fakeBackend(t, map[string]http.HandlerFunc{
			"settings/gladia-keys": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"keys": []string{}})
			},
			"settings/elevenlabs/keys": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"keys": []any{}})
			},
		})
		cfg := config.Default()
		cfg.Backend.URL = srv.URL + "/api"
		cfg.Backend.MinVersion = "2.0.0"

		steps := stepCheckBackend(t.Context(), cfg)

		require.Len(t, steps, 3)
		assert.Equal(t, StepWarning, steps[1].Status)
		assert.Equal(t, "Backend version", steps[1].Name)
		assert.Equal(t, StepWarning, steps[2].Status, "no keys is a warning")
	})

	t.Run("unreachable is a warning", func(t *testing.T) {
		isolate(t)
		srv := fakeBackend(t, nil)
		srv.Close()
		cfg := config.Default()
		cfg.Backend.URL = srv.URL + "/api"

		steps := stepCheckBackend(t.Context(), cfg)

		require.Len(t, steps, 1)
		assert.Equal(t, StepWarning, steps[0].Status)
		assert.False(t, steps[0].Critical)
		assert.Contains(t, steps[0].Message, "not reachable")
	})
}

func TestSetupCommand(t *testing.T) {
	t.Run("skip backend", func(t *testing.T) {
		home := isolate(t)
		cmd, buf := newTestSetupCmd()
		cmd.SetArgs([]string{"--non-interactive", "--skip-backend"})

		require.NoError(t, cmd.Execute())

		out := buf.String()
		assert.Contains(t, out, "[OK] mediabatch v")
		assert.Contains(t, out, "[SKIP] Skipped backend check")
		assert.Contains(t, out, "Setup complete!")
		assert.FileExists(t, filepath.Join(home, "config.yaml"))
	})

	t.Run("idempotent", func(t *testing.T) {
		isolate(t)
		for range 2 {
			cmd, buf := newTestSetupCmd()
			cmd.SetArgs([]string{"--non-interactive", "--skip-backend"})
			require.NoError(t, cmd.Execute())
			assert.NotContains(t, buf.String(), "[ERR]")
		}
	})

	t.Run("unwritable home fails", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Getuid() == 0 {
			t.Skip("permission checks do not apply")
		}
		isolate(t)
		parent := t.TempDir()
		require.NoError(t, os.Chmod(parent, 0o500))
		t.Cleanup(func() { _ = os.Chmod(parent, 0o700) })
		t.Setenv(config.EnvHome, filepath.Join(parent, "home"))

		cmd, buf := newTestSetupCmd()
		cmd.SetArgs([]string{"--non-interactive", "--skip-backend"})

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, buf.String(), "[ERR]")
		assert.Contains(t, buf.String(), "Setup completed with errors")
	})
}
