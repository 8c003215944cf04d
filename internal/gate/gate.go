// Package gate normalizes raw inbound frames (ingress clients and the
// gesture worker's stdout) into command tokens, applying the two-stage
// temporal gate: a hard lock window after every committed recognition, and
// a per-token debounce window suppressing duplicate repeats.
package gate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattjoyce/lectern/internal/command"
	"github.com/mattjoyce/lectern/internal/events"
	"github.com/mattjoyce/lectern/internal/log"
)

// Dispatcher receives tokens that survive the gate.
type Dispatcher interface {
	Dispatch(token command.Token, payload []byte)
}

// Requests receives correlated client requests that are not command
// tokens. Implementations must not block. May be nil.
type Requests interface {
	HandleSummarizeRequest()
	HandleLookupRequest(word string)
}

// Config tunes the gate windows.
type Config struct {
	LockWindow time.Duration
	Debounce   time.Duration
	// DetectionWindow is announced to the UI on stage1 frames that carry no
	// duration of their own.
	DetectionWindow time.Duration
	// Requests serves summarize/lookup frames. May be nil.
	Requests Requests
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Gate is the inbound protocol state machine. Frames may arrive from
// multiple goroutines (ingress connections, worker stdout readers); all
// gate state is mutated under one mutex so the check-and-set of lock and
// debounce state is atomic per frame.
type Gate struct {
	cfg        Config
	mapping    command.Mapping
	dispatcher Dispatcher
	ui         *events.Hub
	logger     *slog.Logger

	mu         sync.Mutex
	debounce   *Debouncer
	lastCommit time.Time
}

// New creates a gate. mapping is the gesture-to-command table.
func New(cfg Config, mapping command.Mapping, dispatcher Dispatcher, ui *events.Hub) *Gate {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.LockWindow <= 0 {
		cfg.LockWindow = time.Second
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	return &Gate{
		cfg:        cfg,
		mapping:    mapping,
		dispatcher: dispatcher,
		ui:         ui,
		logger:     log.WithComponent("gate"),
		debounce:   NewDebouncer(cfg.Debounce, cfg.Now),
	}
}

// recognitionFrame is the gesture worker's stage2 commit.
type recognitionFrame struct {
	Type       string  `json:"type"`
	Gesture    string  `json:"gesture"`
	Confidence float64 `json:"confidence"`
}

// HandleFrame processes one trimmed inbound frame. Non-JSON frames are
// treated as bare command tokens.
func (g *Gate) HandleFrame(raw string) {
	frame := strings.TrimSpace(raw)
	if frame == "" {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var head struct {
		Type string          `json:"type"`
		Code json.RawMessage `json:"code"`
	}
	if err := json.Unmarshal([]byte(frame), &head); err != nil {
		// Not JSON: the whole trimmed text is a raw command token.
		if g.lockedLocked() {
			g.logger.Debug("raw token dropped by lock", "token", frame)
			return
		}
		g.forwardLocked(frame, nil)
		return
	}

	if head.Type == "gesture_recognized" {
		g.handleRecognitionLocked(frame)
		return
	}

	// Every non-recognition frame is subject to the lock.
	if g.lockedLocked() {
		g.logger.Debug("frame dropped by lock", "type", head.Type)
		return
	}

	switch head.Type {
	case "stage1_detected":
		var msg struct {
			DurationMs float64 `json:"duration_ms"`
		}
		_ = json.Unmarshal([]byte(frame), &msg)
		duration := g.cfg.DetectionWindow
		if msg.DurationMs > 0 {
			duration = time.Duration(msg.DurationMs) * time.Millisecond
		}
		g.ui.Publish(events.GestureDetecting, map[string]any{
			"duration_ms": duration.Milliseconds(),
		})

	case "hold_extended":
		var msg struct {
			RemainingMs float64 `json:"remaining_ms"`
		}
		_ = json.Unmarshal([]byte(frame), &msg)
		g.ui.Publish(events.GestureHold, map[string]any{
			"remaining_ms": msg.RemainingMs,
		})

	case "stage2_cancelled":
		g.ui.Publish(events.GestureCancelled, nil)

	case "summarize_request":
		if g.cfg.Requests != nil {
			g.cfg.Requests.HandleSummarizeRequest()
		}

	case "lookup_request":
		if g.cfg.Requests == nil {
			return
		}
		var msg struct {
			Word string `json:"word"`
		}
		_ = json.Unmarshal([]byte(frame), &msg)
		g.cfg.Requests.HandleLookupRequest(msg.Word)

	default:
		if len(head.Code) > 0 {
			g.forwardLocked(codeToken(head.Code), []byte(frame))
			return
		}
		g.logger.Debug("unhandled frame type", "type", head.Type)
	}
}

// handleRecognitionLocked is the primary path. The lock is armed
// unconditionally at the end: mapping misses and debounced duplicates still
// commit, so no trailing raw-code message can leak through after a gesture.
func (g *Gate) handleRecognitionLocked(frame string) {
	var msg recognitionFrame
	if err := json.Unmarshal([]byte(frame), &msg); err != nil {
		g.logger.Warn("malformed recognition frame", "error", err)
		return
	}

	normalized := command.Normalize(msg.Gesture)

	// The UI hears about every recognition, mapped or not.
	g.ui.Publish(events.GestureRecognized, map[string]any{
		"gesture":    normalized,
		"confidence": msg.Confidence,
	})

	if token, ok := g.mapping.Lookup(normalized); ok {
		if g.debounce.Pass(token) {
			g.dispatcher.Dispatch(token, []byte(frame))
		} else {
			g.logger.Debug("recognition debounced", "gesture", normalized, "token", token)
		}
	} else {
		g.logger.Warn("gesture has no command mapping", "gesture", normalized)
	}

	g.lastCommit = g.cfg.Now()
}

// forwardLocked debounces and dispatches a raw token. Caller holds g.mu.
func (g *Gate) forwardLocked(token string, payload []byte) {
	if !g.debounce.Pass(token) {
		g.logger.Debug("token debounced", "token", token)
		return
	}
	g.dispatcher.Dispatch(token, payload)
}

// lockedLocked reports whether the post-recognition lock window is open.
// Caller holds g.mu.
func (g *Gate) lockedLocked() bool {
	return g.cfg.Now().Sub(g.lastCommit) < g.cfg.LockWindow
}

// codeToken renders a JSON code value (string or number) as a token.
func codeToken(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return fmt.Sprintf("%s", strings.Trim(string(raw), `"`))
}
