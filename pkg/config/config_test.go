package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 9090
directory:
  root: /tmp/rc
  data: /tmp/rc/db
camera:
  device: 1
tracking:
  assist-mode: true
  idle-window: 5s
  frame-interval: 50ms
exercises:
  squat:
    up_angle: 165
    down_angle: 85
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 1, cfg.Camera.Device)
	assert.Equal(t, 640, cfg.Camera.Width)
	assert.Equal(t, 480, cfg.Camera.Height)
	assert.True(t, cfg.Tracking.AssistMode)
	assert.Equal(t, 5*time.Second, cfg.Tracking.IdleWindow)
	assert.Equal(t, 50*time.Millisecond, cfg.Tracking.FrameInterval)
	assert.Equal(t, 0.3, cfg.Tracking.MinKeypointScore)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join("/tmp/rc/db", "repcounter.db"), cfg.DBPath())

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	squat, err := catalog.Get("squat")
	require.NoError(t, err)
	assert.Equal(t, 165.0, squat.UpAngle)
	assert.Equal(t, 85.0, squat.DownAngle)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 3*time.Second, cfg.Tracking.IdleWindow)
	assert.Equal(t, 33*time.Millisecond, cfg.Tracking.FrameInterval)
	assert.False(t, cfg.Tracking.AssistMode)
	assert.Len(t, cfg.Directories(), 4)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("REPCOUNTER_HTTP_PORT", "7070")
	cfg, err := Load(writeConfig(t, "http:\n  port: 9090\n"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTP.Port)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "http:\n  port: -1\n"))
	assert.Error(t, err)

	cfg, err := Load(writeConfig(t, "exercises:\n  burpee:\n    up_angle: 10\n"))
	require.NoError(t, err)
	_, err = cfg.Catalog()
	assert.Error(t, err)
}
