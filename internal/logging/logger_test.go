package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func reset(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		CloseAll()
		optsMu.Lock()
		opts = Options{}
		optsMu.Unlock()
	})
}

func TestGet_ProductionModeIsNoop(t *testing.T) {
	reset(t)
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, Options{DebugMode: false}))

	Get(CategorySubmission).Info("should not be written")

	_, err := os.Stat(filepath.Join(dir, "logs"))
	assert.True(t, os.IsNotExist(err), "logs dir must not exist in production mode")
}

func TestGet_DebugModeWritesCategoryFile(t *testing.T) {
	reset(t)
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, Options{DebugMode: true, Level: "debug"}))

	Get(CategorySubmission).Info("state %s -> %s", "idle", "submitted")
	CloseAll()

	matches, err := filepath.Glob(filepath.Join(dir, "logs", "*_submission.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "state idle -> submitted")
}

func TestIsCategoryEnabled(t *testing.T) {
	reset(t)
	require.NoError(t, Initialize(t.TempDir(), Options{
		DebugMode:  true,
		Categories: map[string]bool{"api": false},
	}))

	assert.False(t, IsCategoryEnabled(CategoryAPI))
	assert.True(t, IsCategoryEnabled(CategoryIngest), "unlisted categories default to enabled")
}

func TestInitialize_RequiresDir(t *testing.T) {
	reset(t)
	assert.Error(t, Initialize("", Options{}))
}

func TestNewWithWriter_JSON(t *testing.T) {
	reset(t)
	optsMu.Lock()
	opts = Options{JSONFormat: true}
	optsMu.Unlock()

	var buf bytes.Buffer
	l := NewWithWriter(CategoryServer, zapcore.AddSync(&buf))
	l.With("path", "/generate").Warn("slow request: %dms", 1200)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"), "expected JSON output, got %q", out)
	assert.Contains(t, out, `"cat":"server"`)
	assert.Contains(t, out, `"path":"/generate"`)
	assert.Contains(t, out, "slow request: 1200ms")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("x")
		l.Error("y")
		_ = l.With("k", "v")
	})
}
