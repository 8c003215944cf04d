package fleet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/lectern/internal/config"
	"github.com/mattjoyce/lectern/internal/events"
)

type hapticCollector struct {
	mu      sync.Mutex
	presets []string
}

func (c *hapticCollector) record(preset string) {
	c.mu.Lock()
	c.presets = append(c.presets, preset)
	c.mu.Unlock()
}

func (c *hapticCollector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.presets...)
}

func TestOCRRunPublishesResultAndCompletionHaptic(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "ocr")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	script := filepath.Join(dir, "ink.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho '{\"text\":\"E = mc^2\"}'\n"), 0o755))

	hub := events.NewHub(10)
	cfg := &config.Config{OCR: config.OCRConf{
		Interpreters: []string{"sh"},
		ScriptDirs:   []string{"ocr"},
		Scripts:      map[string]string{"text": "ink.sh"},
		Timeout:      2 * time.Second,
	}}
	m := New(cfg, base, hub, nil, nil)
	t.Cleanup(m.StopAll)

	haptics := &hapticCollector{}
	m.SetHaptics(haptics.record)

	ch, cancel := hub.Subscribe()
	defer cancel()

	m.RunOCR("text")

	d := awaitDirective(t, ch, events.OCRResult)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(d.Data, &payload))
	assert.Equal(t, "E = mc^2", payload["text"])
	assert.Equal(t, "text", payload["mode"])

	assert.Equal(t, []string{"ocr_complete"}, haptics.snapshot())
}

func TestOCRRunFailureSkipsHaptic(t *testing.T) {
	hub := events.NewHub(10)
	cfg := &config.Config{OCR: config.OCRConf{
		Interpreters: []string{"sh"},
		Scripts:      map[string]string{},
	}}
	m := New(cfg, t.TempDir(), hub, nil, nil)
	t.Cleanup(m.StopAll)

	haptics := &hapticCollector{}
	m.SetHaptics(haptics.record)

	ch, cancel := hub.Subscribe()
	defer cancel()

	m.RunOCR("math")

	d := awaitDirective(t, ch, events.OCRResult)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(d.Data, &payload))
	assert.NotEmpty(t, payload["error"])

	assert.Empty(t, haptics.snapshot())
}
