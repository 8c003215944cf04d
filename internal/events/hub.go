// Package events carries outbound UI directives from the core to the overlay
// renderer and any other observer (watch TUI, tests). The core treats the hub
// as a fire-and-forget sink.
package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Directive types emitted by the dispatcher and fleet surfaces.
const (
	ShowNotice         = "showNotice"
	GestureDetecting   = "gestureDetecting"
	GestureHold        = "gestureHold"
	GestureCancelled   = "gestureCancelled"
	GestureRecognized  = "gestureRecognized"
	OverlayOn          = "overlayOn"
	OverlayOff         = "overlayOff"
	SlideChanged       = "slideChanged"
	ColorChanged       = "colorChanged"
	HandCursor         = "handCursor"
	HandDrawEnable     = "handDrawEnable"
	HandDrawDisable    = "handDrawDisable"
	ModeChanged        = "modeChanged"
	CalibrationStarted = "calibrationStarted"
	CalibrationPoint   = "calibrationPoint"
	CalibrationDone    = "calibrationDone"
	CalibrationFailed  = "calibrationFailed"
	CalibrationReset   = "calibrationReset"
	RecordingStarted   = "recordingStarted"
	RecordingStopped   = "recordingStopped"
	Transcription      = "transcription"
	OCRResult          = "ocrResult"
	SummaryResult      = "summaryResult"
	WordDefinition     = "wordDefinition"
	UpdateTimer        = "updateTimer"
	HideTimer          = "hideTimer"
	ToggleBlackout     = "toggleBlackout"
	ResetAll           = "resetAll"
)

// Directive is one outbound UI message.
type Directive struct {
	ID   int64     `json:"id"`
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data []byte    `json:"data"` // JSON payload
}

// Hub is an in-memory pub/sub with a small ring buffer for late subscribers.
type Hub struct {
	nextID atomic.Int64

	mu    sync.Mutex
	ring  []Directive
	start int
	size  int

	subs      map[int]chan Directive
	nextSubID int
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 100
	}
	return &Hub{
		ring: make([]Directive, capacity),
		subs: make(map[int]chan Directive),
	}
}

func (h *Hub) Publish(directiveType string, data any) {
	id := h.nextID.Add(1)

	payload := []byte("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}

	d := Directive{
		ID:   id,
		Type: directiveType,
		At:   time.Now().UTC(),
		Data: payload,
	}

	h.mu.Lock()
	h.pushLocked(d)
	for _, ch := range h.subs {
		// Don't let slow subscribers block the dispatcher.
		select {
		case ch <- d:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *Hub) Subscribe() (<-chan Directive, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSubID
	h.nextSubID++
	ch := make(chan Directive, 128)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// SnapshotSince returns buffered directives with ID > lastID, oldest-first.
// If lastID is 0, the full ring buffer snapshot is returned.
func (h *Hub) SnapshotSince(lastID int64) []Directive {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Directive, 0, h.size)
	for i := 0; i < h.size; i++ {
		d := h.ring[(h.start+i)%len(h.ring)]
		if lastID == 0 || d.ID > lastID {
			out = append(out, d)
		}
	}
	return out
}

func (h *Hub) pushLocked(d Directive) {
	capacity := len(h.ring)
	if capacity == 0 {
		return
	}

	if h.size < capacity {
		idx := (h.start + h.size) % capacity
		h.ring[idx] = d
		h.size++
		return
	}

	// Overwrite oldest.
	h.ring[h.start] = d
	h.start = (h.start + 1) % capacity
}
