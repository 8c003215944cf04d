package doctor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/lectern/internal/config"
)

// workingConfig returns a config whose single enabled worker actually
// resolves against base.
func workingConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	base := t.TempDir()
	dir := filepath.Join(base, "py", "gesture")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gesture_controller.py"), []byte("print()\n"), 0o644))

	cfg := config.Defaults()
	for kind, wc := range cfg.Workers {
		if kind != config.WorkerGesture {
			wc.Enabled = false
			cfg.Workers[kind] = wc
		}
	}
	wc := cfg.Workers[config.WorkerGesture]
	wc.Interpreters = []string{"sh"}
	cfg.Workers[config.WorkerGesture] = wc
	cfg.OCR.Scripts = nil

	return cfg, base
}

func TestValidateHealthyConfig(t *testing.T) {
	cfg, base := workingConfig(t)

	result := New(cfg, base).Validate()

	assert.True(t, result.Valid, "errors: %+v", result.Errors)
	assert.Empty(t, result.Errors)
}

func TestValidateMissingScript(t *testing.T) {
	cfg, base := workingConfig(t)
	wc := cfg.Workers[config.WorkerGesture]
	wc.Script = "not_there.py"
	cfg.Workers[config.WorkerGesture] = wc

	result := New(cfg, base).Validate()

	require.False(t, result.Valid)
	assert.Equal(t, "workers", result.Errors[0].Category)
}

func TestValidateUnresolvableInterpreter(t *testing.T) {
	cfg, base := workingConfig(t)
	wc := cfg.Workers[config.WorkerGesture]
	wc.Interpreters = []string{"no-such-interpreter-on-path"}
	cfg.Workers[config.WorkerGesture] = wc

	result := New(cfg, base).Validate()
	assert.False(t, result.Valid)
}

func TestDisabledWorkersAreSkipped(t *testing.T) {
	cfg, base := workingConfig(t)
	wc := cfg.Workers[config.WorkerGesture]
	wc.Enabled = false
	wc.Script = "does_not_exist.py"
	cfg.Workers[config.WorkerGesture] = wc

	result := New(cfg, base).Validate()
	assert.True(t, result.Valid)
}

func TestValidateServiceWindows(t *testing.T) {
	cfg, base := workingConfig(t)
	cfg.Service.LockWindow = 0

	result := New(cfg, base).Validate()
	require.False(t, result.Valid)
	assert.Equal(t, "service.lock_window", result.Errors[0].Field)
}

func TestValidateBadListenAddress(t *testing.T) {
	cfg, base := workingConfig(t)
	cfg.Ingress.Listen = "not-an-address"

	result := New(cfg, base).Validate()
	assert.False(t, result.Valid)
}

func TestValidateGestureMapping(t *testing.T) {
	cfg, base := workingConfig(t)
	cfg.Gestures = map[string]string{
		"triangle": "NOT_A_TOKEN",
	}

	result := New(cfg, base).Validate()
	require.False(t, result.Valid)
	assert.Equal(t, "gestures", result.Errors[0].Category)
}

func TestUnnormalizedGestureKeyWarns(t *testing.T) {
	cfg, base := workingConfig(t)
	cfg.Gestures = map[string]string{
		"Circle Clockwise": "5",
	}

	result := New(cfg, base).Validate()
	assert.True(t, result.Valid, "unnormalized key is a warning, not an error")
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateHaptics(t *testing.T) {
	cfg, base := workingConfig(t)
	cfg.Haptics["broken"] = config.HapticPreset{Intensity: 999, Count: 0, Duration: -time.Second}

	result := New(cfg, base).Validate()
	require.False(t, result.Valid)
	assert.Len(t, result.Errors, 3)
}
