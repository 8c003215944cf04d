package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "00:00", Format(0))
	assert.Equal(t, "00:59", Format(59))
	assert.Equal(t, "01:00", Format(60))
	assert.Equal(t, "12:34", Format(754))
	assert.Equal(t, "90:00", Format(5400))
	assert.Equal(t, "00:00", Format(-5))
}

// updateCollector captures timer callbacks thread-safely.
type updateCollector struct {
	mu      sync.Mutex
	updates []string
	stops   int
}

func (c *updateCollector) onUpdate(s string) {
	c.mu.Lock()
	c.updates = append(c.updates, s)
	c.mu.Unlock()
}

func (c *updateCollector) onStop() {
	c.mu.Lock()
	c.stops++
	c.mu.Unlock()
}

func (c *updateCollector) snapshot() ([]string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.updates...), c.stops
}

func TestStartTicksAndStops(t *testing.T) {
	c := &updateCollector{}
	tm := NewWithInterval(10*time.Millisecond, c.onUpdate, c.onStop)

	tm.Start()
	assert.True(t, tm.Running())

	time.Sleep(60 * time.Millisecond)
	tm.Stop()
	assert.False(t, tm.Running())
	assert.Equal(t, 0, tm.Elapsed())

	updates, stops := c.snapshot()
	require.NotEmpty(t, updates)
	assert.Equal(t, "00:00", updates[0], "Start emits the zero display immediately")
	assert.GreaterOrEqual(t, len(updates), 3)
	assert.Equal(t, 1, stops)
}

func TestStopIsIdempotent(t *testing.T) {
	c := &updateCollector{}
	tm := NewWithInterval(10*time.Millisecond, c.onUpdate, c.onStop)

	tm.Stop()
	tm.Start()
	tm.Stop()
	tm.Stop()

	_, stops := c.snapshot()
	assert.Equal(t, 1, stops)
}

func TestStartResetsElapsed(t *testing.T) {
	c := &updateCollector{}
	tm := NewWithInterval(5*time.Millisecond, c.onUpdate, c.onStop)

	tm.Start()
	time.Sleep(30 * time.Millisecond)
	first := tm.Elapsed()
	require.Greater(t, first, 0)

	tm.Start()
	assert.LessOrEqual(t, tm.Elapsed(), first, "restart begins from zero")
	tm.Stop()
}

func TestToggle(t *testing.T) {
	tm := NewWithInterval(10*time.Millisecond, nil, nil)

	tm.Toggle()
	assert.True(t, tm.Running())
	tm.Toggle()
	assert.False(t, tm.Running())
}
