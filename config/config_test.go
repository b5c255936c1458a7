package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, float32(0.5), cfg.Analysis.MinConfidence)
	assert.Equal(t, float32(20), cfg.Analysis.UpperThreshold)
	assert.Equal(t, float32(30), cfg.Analysis.LowerThreshold)
	assert.Equal(t, 500*time.Millisecond, cfg.Monitor.Interval)
	assert.Equal(t, 5*time.Second, cfg.Training.SettleDelay)
	assert.Equal(t, time.Second, cfg.Countdown.Tick)
	assert.Equal(t, "Training complete!", cfg.Countdown.CompleteMessage)
	assert.Equal(t, 640, cfg.Camera.Width)
	assert.Equal(t, 480, cfg.Camera.Height)
}

func TestLoadYAMLKeepsUnsetDefaults(t *testing.T) {
	path := writeFile(t, "posture.yaml", `
analysis:
  upper_threshold: 15
monitor:
  interval: 250ms
training:
  settle_delay: 3s
  min_score: 0.4
server:
  address: "127.0.0.1:9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, float32(15), cfg.Analysis.UpperThreshold)
	assert.Equal(t, float32(30), cfg.Analysis.LowerThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.Monitor.Interval)
	assert.Equal(t, 2*time.Second, cfg.Monitor.AcquireTimeout)
	assert.Equal(t, 3*time.Second, cfg.Training.SettleDelay)
	assert.InDelta(t, 0.4, cfg.Training.MinScore, 1e-6)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Address)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown field", content: "analysis:\n  upper: 3\n"},
		{name: "negative threshold", content: "analysis:\n  lower_threshold: -1\n"},
		{name: "confidence above one", content: "analysis:\n  min_confidence: 1.5\n"},
		{name: "zero interval", content: "monitor:\n  interval: 0s\n"},
		{name: "bad log level", content: "log:\n  level: loud\n"},
		{name: "not yaml", content: "analysis: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "posture.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeFile(t, "posture.yaml", "analysis:\n  upper_threshold: 15\n")
	t.Setenv("POSTURE_UPPER_THRESHOLD", "25")
	t.Setenv("POSTURE_MONITOR_INTERVAL", "1s")
	t.Setenv("POSTURE_CAMERA_DEVICE", "2")
	t.Setenv("POSTURE_SERVER_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, float32(25), cfg.Analysis.UpperThreshold)
	assert.Equal(t, time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 2, cfg.Camera.DeviceID)
	assert.False(t, cfg.Server.Enabled)
}

func TestEnvFile(t *testing.T) {
	env := writeFile(t, ".env", "POSTURE_MODEL_PATH=/models/pose.onnx\nPOSTURE_LOG_LEVEL=debug\n")
	t.Setenv("POSTURE_MODEL_PATH", "")
	os.Unsetenv("POSTURE_MODEL_PATH")
	t.Setenv("POSTURE_LOG_LEVEL", "")
	os.Unsetenv("POSTURE_LOG_LEVEL")

	cfg, err := Load("", env, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "/models/pose.onnx", cfg.Estimator.ModelPath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnvMalformed(t *testing.T) {
	tests := map[string]string{
		"POSTURE_CAMERA_DEVICE":    "front",
		"POSTURE_MIN_CONFIDENCE":   "high",
		"POSTURE_SETTLE_DELAY":     "5",
		"POSTURE_SERVER_ENABLED":   "sometimes",
		"POSTURE_MONITOR_INTERVAL": "fast",
	}

	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			err := applyEnv(&cfg, func(key string) (string, bool) {
				if key == name {
					return value, true
				}
				return "", false
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}
