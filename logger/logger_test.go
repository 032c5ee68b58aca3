package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("info"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("loud"))
}

func TestHelpersWriteThroughGlobalLogger(t *testing.T) {
	previous := L()
	t.Cleanup(func() { Set(previous) })

	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))

	Debug("hidden")
	Info("stream finished", String("path", "a.mp3"), Int64("written", 42), Bool("partial", true))
	Error("sync failed", ErrorField(errors.New("boom")))

	require.Equal(t, 2, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "stream finished", entry.Message)
	assert.Equal(t, map[string]interface{}{"path": "a.mp3", "written": int64(42), "partial": true}, entry.ContextMap())
	assert.Equal(t, "boom", logs.All()[1].ContextMap()["error"])
}

func TestInitWritesRotatedFile(t *testing.T) {
	previous := L()
	t.Cleanup(func() { Set(previous) })

	path := filepath.Join(t.TempDir(), "logs", "webplayer.log")
	require.NoError(t, Init(Config{Level: "warn", OutputPath: path, MaxSize: 1}))

	Info("not written")
	Warn("written", String("k", "v"))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written"`)
	assert.Contains(t, string(data), `"level":"warn"`)
	assert.NotContains(t, string(data), "not written")
}
