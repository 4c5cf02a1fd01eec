package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestNewLogger(t *testing.T) {
	t.Run("JSONWithTraceID", func(t *testing.T) {
		var buf bytes.Buffer
		l := ComponentLogger(NewLogger(Config{Level: "info", Format: FormatJSON}, &buf), "batch")
		ctx := ContextWithTraceID(context.Background(), "trace-123")

		l.Info().Ctx(ctx).Msg("hello")
		l.Debug().Msg("filtered")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, "hello", entry["message"])
		assert.Equal(t, "batch", entry["component"])
		assert.Equal(t, "trace-123", entry[FieldTraceID])
	})

	t.Run("Console", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(Config{Level: "debug", Format: FormatConsole}, &buf)
		l.Debug().Msg("visible")
		assert.Contains(t, buf.String(), "visible")
	})
}

func TestNewLoggerWithPath(t *testing.T) {
	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "mediabatch.log")
		result := NewLoggerWithPath(Config{Level: "info", Format: FormatJSON, Output: OutputFile, File: path})
		t.Cleanup(func() { _ = result.Close() })

		assert.True(t, result.UsingFile)
		assert.False(t, result.FallbackUsed)
		result.Logger.Info().Msg("to file")
		require.NoError(t, result.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})

	t.Run("FallbackWithoutPath", func(t *testing.T) {
		result := NewLoggerWithPath(Config{Output: OutputFile})
		assert.False(t, result.UsingFile)
		assert.True(t, result.FallbackUsed)
		assert.NotEmpty(t, result.FallbackReason)
		assert.NoError(t, result.Close())
	})

	t.Run("Stderr", func(t *testing.T) {
		result := NewLoggerWithPath(Config{})
		assert.False(t, result.UsingFile)
		assert.False(t, result.FallbackUsed)
	})
}

func TestTraceIDs(t *testing.T) {
	t.Run("Generated", func(t *testing.T) {
		t.Setenv(EnvTraceID, "")
		id := GetOrGenerateTraceID(context.Background())
		_, err := ulid.Parse(id)
		assert.NoError(t, err)
	})

	t.Run("FromEnvironment", func(t *testing.T) {
		t.Setenv(EnvTraceID, "outer")
		assert.Equal(t, "outer", GetOrGenerateTraceID(context.Background()))
	})

	t.Run("FromContext", func(t *testing.T) {
		ctx := ContextWithTraceID(context.Background(), "ctx-id")
		assert.Equal(t, "ctx-id", GetOrGenerateTraceID(ctx))
		assert.Equal(t, "ctx-id", TraceIDFromContext(ctx))
	})

	t.Run("LoggerInContext", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(Config{Format: FormatJSON}, &buf)
		ctx := l.WithContext(context.Background())
		FromContext(ctx).Info().Msg("via ctx")
		assert.Contains(t, buf.String(), "via ctx")
	})
}

func TestPrintMessages(t *testing.T) {
	var buf bytes.Buffer
	PrintLogPathMessage(&buf, "/tmp/x.log")
	PrintFallbackWarning(&buf, "permission denied")
	assert.Contains(t, buf.String(), "/tmp/x.log")
	assert.Contains(t, buf.String(), "permission denied")
}
