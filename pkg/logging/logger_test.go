// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for structured logging

package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Level
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.level.String())
	}
}

func TestLevel_ToSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelDebug.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, LevelInfo.toSlogLevel())
	assert.Equal(t, slog.LevelWarn, LevelWarn.toSlogLevel())
	assert.Equal(t, slog.LevelError, LevelError.toSlogLevel())

	// Unknown levels filter at Info rather than letting everything through.
	assert.Equal(t, slog.LevelInfo, Level(42).toSlogLevel())
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_StderrOnly(t *testing.T) {
	// Arrange & Act
	logger := New(Config{Level: LevelInfo, Service: "wildfire-test"})
	defer logger.Close()

	// Assert
	require.NotNil(t, logger.Slog())
	assert.Nil(t, logger.file)
}

func TestNew_WritesServiceLogFile(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "wildfire-test",
		Quiet:   true,
	})

	// Act
	logger.Info("tick complete", "step", 7)
	require.NoError(t, logger.Close())

	// Assert
	want := filepath.Join(dir, "wildfire-test_"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(want)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.Split(strings.TrimSpace(string(data)), "\n")[0]), &entry))
	assert.Equal(t, "tick complete", entry["msg"])
	assert.Equal(t, "wildfire-test", entry["service"])
	assert.Equal(t, float64(7), entry["step"])
}

func TestNew_FileLoggingFiltersByLevel(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "wildfire-test",
		Quiet:   true,
	})

	// Act
	logger.Debug("not emitted")
	logger.Info("not emitted either")
	logger.Warn("analog lookup degraded")
	require.NoError(t, logger.Close())

	// Assert
	path := filepath.Join(dir, "wildfire-test_"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.NotContains(t, content, "not emitted")
	assert.Contains(t, content, "analog lookup degraded")
}

func TestNew_UnnamedServiceDefaultsLogFilename(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Quiet: true})

	// Act
	logger.Info("hello")
	require.NoError(t, logger.Close())

	// Assert
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "wildfireos_"))
}

func TestNew_BadLogDirDegradesToStderr(t *testing.T) {
	// A file where the directory should be makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0640))

	logger := New(Config{LogDir: blocker, Service: "wildfire-test"})
	defer logger.Close()

	require.NotNil(t, logger.Slog())
	assert.Nil(t, logger.file)
}

func TestDefault(t *testing.T) {
	logger := Default()
	defer logger.Close()

	require.NotNil(t, logger.Slog())
	assert.Equal(t, LevelInfo, logger.config.Level)
	assert.Equal(t, "wildfireos", logger.config.Service)
}

// =============================================================================
// Logger behavior
// =============================================================================

func TestWith_ChildCarriesAttributes(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Service: "wildfire-test", Quiet: true})

	// Act
	child := logger.With("request_id", "abc-123")
	child.Info("analysis accepted")
	require.NoError(t, logger.Close())

	// Assert
	path := filepath.Join(dir, "wildfire-test_"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "abc-123", entry["request_id"])
	assert.Equal(t, "analysis accepted", entry["msg"])
}

func TestClose_Idempotent(t *testing.T) {
	logger := New(Config{LogDir: t.TempDir(), Service: "wildfire-test", Quiet: true})

	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".wildfireos/logs"), expandPath("~/.wildfireos/logs"))
	assert.Equal(t, "/var/log/wildfireos", expandPath("/var/log/wildfireos"))
	assert.Equal(t, "relative/path", expandPath("relative/path"))
	assert.Equal(t, "", expandPath(""))
}

// =============================================================================
// Multi-handler
// =============================================================================

func TestMultiHandler_FansOutToBothDestinations(t *testing.T) {
	// Arrange: two file handlers at different levels.
	dir := t.TempDir()
	debugFile, err := os.Create(filepath.Join(dir, "debug.log"))
	require.NoError(t, err)
	errorFile, err := os.Create(filepath.Join(dir, "error.log"))
	require.NoError(t, err)

	handler := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(debugFile, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(errorFile, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	logger := slog.New(handler)

	// Act
	logger.Info("routine event")
	logger.Error("hard failure")
	require.NoError(t, debugFile.Close())
	require.NoError(t, errorFile.Close())

	// Assert: the error-only handler skipped the info record.
	debugOut, err := os.ReadFile(debugFile.Name())
	require.NoError(t, err)
	errorOut, err := os.ReadFile(errorFile.Name())
	require.NoError(t, err)

	assert.Contains(t, string(debugOut), "routine event")
	assert.Contains(t, string(debugOut), "hard failure")
	assert.NotContains(t, string(errorOut), "routine event")
	assert.Contains(t, string(errorOut), "hard failure")
}

func TestMultiHandler_Enabled(t *testing.T) {
	handler := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}

	ctx := t.Context()
	assert.False(t, handler.Enabled(ctx, slog.LevelInfo))
	assert.True(t, handler.Enabled(ctx, slog.LevelWarn))
	assert.True(t, handler.Enabled(ctx, slog.LevelError))
}
