package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/config"
)

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	again, err := InitializeLogger(config.LoggingConfig{Level: "debug"})
	require.NoError(t, err)
	assert.Same(t, logger, again)

	logger.Info("test message", "key", "value")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(content), &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestNewLoggerFormatsAndLevels(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LoggingConfig
		logDebug  bool
		wantJSON  bool
		wantEmpty bool
	}{
		{
			name:      "json info drops debug",
			cfg:       config.LoggingConfig{Level: "info", Format: "json", Output: "console"},
			logDebug:  true,
			wantJSON:  true,
			wantEmpty: true,
		},
		{
			name:     "json debug",
			cfg:      config.LoggingConfig{Level: "debug", Format: "json", Output: "console"},
			logDebug: true,
			wantJSON: true,
		},
		{
			name: "text",
			cfg:  config.LoggingConfig{Level: "warning", Format: "text", Output: "console"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(tt.cfg, &buf)
			require.NoError(t, err)

			if tt.logDebug {
				logger.Debug("hello")
			} else {
				logger.Warn("hello")
			}

			if tt.wantEmpty {
				assert.Zero(t, buf.Len())
				return
			}
			if tt.wantJSON {
				assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
			} else {
				assert.Contains(t, buf.String(), "msg=hello")
			}
		})
	}
}

func TestLoggerInjectsTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "console"}, &buf)
	require.NoError(t, err)

	ctx := WithTraceID(context.Background(), "req-123")
	WithComponent(logger, "upload").InfoContext(ctx, "processed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "req-123", entry["trace_id"])
	assert.Equal(t, "upload", entry["component"])
}

func TestLoggerBothOutputs(t *testing.T) {
	defer CloseLogFile()

	logFile := filepath.Join(t.TempDir(), "both.log")
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Output: "both", FilePath: logFile}, &buf)
	require.NoError(t, err)

	logger.Info("twice")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "twice")
	assert.Contains(t, buf.String(), "twice")
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestTraceIDHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = EnsureTraceID(ctx)
	id := GetTraceID(ctx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)))

	assert.True(t, strings.Count(GenerateTraceID(), "-") == 4)
}

func TestWithError(t *testing.T) {
	logger := slog.Default()
	assert.Same(t, logger, WithError(logger, nil))
	assert.NotSame(t, logger, WithError(logger, os.ErrNotExist))
}
