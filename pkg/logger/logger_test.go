package logger

import (
	"edu_platform_backend/internal/config"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetLevelFollowsMode(t *testing.T) {
	SetLevel("debug")
	assert.True(t, Enabled(zap.DebugLevel))

	SetLevel("release")
	assert.False(t, Enabled(zap.DebugLevel))
	assert.True(t, Enabled(zap.InfoLevel))
}

func TestInitLoggerWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "release"},
		Log:    config.LogConfig{File: file, MaxSizeMB: 1},
	}
	InitLogger(cfg)
	t.Cleanup(func() { Log = zap.NewNop() })

	Log.Info("hello", zap.String("k", "v"))
	_ = Log.Sync()

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"hello"`)
	assert.Contains(t, string(raw), `"k":"v"`)
}
