// Package dispatch maps command tokens to side effects and owns the
// active-feature state machine. It is the single switch between the gate
// and everything downstream: UI directives, haptic broadcasts, worker
// lifecycle calls, and slide navigation.
package dispatch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mattjoyce/lectern/internal/command"
	"github.com/mattjoyce/lectern/internal/config"
	"github.com/mattjoyce/lectern/internal/events"
	"github.com/mattjoyce/lectern/internal/gate"
	"github.com/mattjoyce/lectern/internal/log"
	"github.com/mattjoyce/lectern/internal/timer"
)

// Config tunes the dispatcher.
type Config struct {
	// Debounce is the dispatcher's own window, independent of the gate's.
	// It protects against duplicate tokens arriving via different ingress
	// paths.
	Debounce time.Duration
	// Haptics maps preset names to vibration patterns for phone broadcast.
	Haptics map[string]config.HapticPreset
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Dispatcher routes tokens. All state (active feature, debounce) is
// mutated under one mutex; Dispatch never blocks on worker lifecycle.
type Dispatcher struct {
	cfg    Config
	ui     *events.Hub
	fleet  Fleet
	bcast  Broadcaster
	nav    Navigator
	timer  *timer.Timer
	cmdLog CommandLogger
	logger *slog.Logger

	mu       sync.Mutex
	debounce *gate.Debouncer
	feature  Feature
}

// New creates a dispatcher. bcast and cmdLog may be nil.
func New(cfg Config, ui *events.Hub, fleet Fleet, bcast Broadcaster, nav Navigator, cmdLog CommandLogger) *Dispatcher {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if nav == nil {
		nav = NopNavigator{}
	}

	d := &Dispatcher{
		cfg:      cfg,
		ui:       ui,
		fleet:    fleet,
		bcast:    bcast,
		nav:      nav,
		cmdLog:   cmdLog,
		logger:   log.WithComponent("dispatch"),
		debounce: gate.NewDebouncer(cfg.Debounce, cfg.Now),
	}
	d.timer = timer.New(
		func(formatted string) {
			d.ui.Publish(events.UpdateTimer, map[string]any{"display": formatted})
		},
		func() {
			d.ui.Publish(events.HideTimer, nil)
		},
	)
	return d
}

// ActiveFeature returns the currently engaged feature.
func (d *Dispatcher) ActiveFeature() Feature {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.feature
}

// Timer exposes the presentation timer for the reset path and tests.
func (d *Dispatcher) Timer() *timer.Timer {
	return d.timer
}

// Dispatch routes one command token. Unknown tokens are logged and
// ignored; feature conflicts surface as a user-visible notice, never an
// error.
func (d *Dispatcher) Dispatch(token command.Token, payload []byte) {
	d.mu.Lock()
	if !d.debounce.Pass(token) {
		d.mu.Unlock()
		d.logger.Debug("token debounced", "token", token)
		return
	}
	d.mu.Unlock()

	if !command.Known(token) {
		d.logger.Warn("unknown command token", "token", token)
		return
	}

	d.logger.Info("dispatching", "token", token)
	if d.cmdLog != nil {
		d.cmdLog.LogCommand(token)
	}

	switch token {
	case command.TokenSlidePrev:
		d.nav.Prev()
		d.ui.Publish(events.SlideChanged, map[string]any{"direction": "prev"})
		d.Haptic("slide_change")

	case command.TokenSlideNext:
		d.nav.Next()
		d.ui.Publish(events.SlideChanged, map[string]any{"direction": "next"})
		d.Haptic("slide_change")

	case command.TokenJumpBack:
		d.nav.Jump(-3)
		d.ui.Publish(events.SlideChanged, map[string]any{"direction": "jump", "offset": -3})
		d.Haptic("slide_change")

	case command.TokenJumpForward:
		d.nav.Jump(3)
		d.ui.Publish(events.SlideChanged, map[string]any{"direction": "jump", "offset": 3})
		d.Haptic("slide_change")

	case command.TokenOverlayOn:
		d.ui.Publish(events.OverlayOn, nil)

	case command.TokenOverlayOff:
		d.ui.Publish(events.OverlayOff, nil)

	case command.TokenResetAll:
		d.resetAll()

	case command.TokenCaptionStart:
		d.startRecording()

	case command.TokenCaptionStop:
		d.stopRecording()

	case command.TokenHandDraw:
		d.toggleHandDraw()

	case command.TokenDrawing:
		d.toggleDrawing()

	case command.TokenPointer:
		d.togglePointer()

	case command.TokenTimerToggle:
		d.timer.Toggle()

	case command.TokenBlackout:
		d.ui.Publish(events.ToggleBlackout, nil)

	case command.TokenColorPrev:
		d.ui.Publish(events.ColorChanged, map[string]any{"direction": "prev"})
		d.Haptic("selection_tick")

	case command.TokenColorNext:
		d.ui.Publish(events.ColorChanged, map[string]any{"direction": "next"})
		d.Haptic("selection_tick")

	case command.TokenCalibrate:
		if !d.fleet.IsWorkerRunning(config.WorkerHandTracker) {
			d.fleet.StartWorker(config.WorkerHandTracker)
		}
		_ = d.fleet.SendWorker(config.WorkerHandTracker, map[string]string{"command": "start_calibration"})

	case command.TokenCalibrateReset:
		_ = d.fleet.SendWorker(config.WorkerHandTracker, map[string]string{"command": "reset_calibration"})

	case command.TokenOCRStart, command.TokenOCRText:
		d.fleet.RunOCR("text")
		d.Haptic("ocr_start")

	case command.TokenOCRMath:
		d.fleet.RunOCR("math")
		d.Haptic("ocr_start")

	case command.TokenOCREval:
		d.fleet.RunOCR("eval")
		d.Haptic("ocr_start")

	case command.TokenOCRGraph:
		d.fleet.RunOCR("graph")
		d.Haptic("ocr_start")

	case command.TokenDebugRestartGesture:
		d.fleet.RestartWorker(config.WorkerGesture)

	case command.TokenDebugRestartTracker:
		d.fleet.RestartWorker(config.WorkerHandTracker)

	case command.TokenDebugStatus:
		d.publishStatus()
	}
}

// resetAll unconditionally clears the active feature, stops the timer,
// stops the recording and hand-tracking workers, and tells the UI to wipe
// all visual state.
func (d *Dispatcher) resetAll() {
	d.mu.Lock()
	prev := d.feature
	d.feature = FeatureNone
	d.mu.Unlock()

	d.timer.Stop()

	if d.fleet.IsWorkerRunning(config.WorkerSTT) {
		_ = d.fleet.SendWorker(config.WorkerSTT, map[string]string{"command": "stop"})
	}
	if d.fleet.IsWorkerRunning(config.WorkerHandTracker) {
		d.fleet.StopWorker(config.WorkerHandTracker)
	}

	d.logger.Info("reset all", "previous_feature", prev.String())
	d.ui.Publish(events.ResetAll, nil)
}

func (d *Dispatcher) startRecording() {
	if !d.enterFeature(FeatureRecording) {
		return
	}
	if !d.fleet.IsWorkerRunning(config.WorkerSTT) {
		d.fleet.StartWorker(config.WorkerSTT)
	}
	_ = d.fleet.SendWorker(config.WorkerSTT, map[string]string{"command": "start"})
	d.ui.Publish(events.ModeChanged, map[string]any{"mode": "recording", "active": true})
	d.Haptic("recording_toggle")
}

func (d *Dispatcher) stopRecording() {
	d.mu.Lock()
	if d.feature == FeatureRecording {
		d.feature = FeatureNone
	}
	d.mu.Unlock()

	_ = d.fleet.SendWorker(config.WorkerSTT, map[string]string{"command": "stop"})
	d.ui.Publish(events.ModeChanged, map[string]any{"mode": "recording", "active": false})
	d.Haptic("recording_toggle")
}

func (d *Dispatcher) toggleHandDraw() {
	d.mu.Lock()
	active := d.feature == FeatureHandDraw
	d.mu.Unlock()

	if active {
		d.mu.Lock()
		d.feature = FeatureNone
		d.mu.Unlock()
		d.fleet.StopWorker(config.WorkerHandTracker)
		d.ui.Publish(events.ModeChanged, map[string]any{"mode": "hand_draw", "active": false})
		return
	}

	if !d.enterFeature(FeatureHandDraw) {
		return
	}
	d.fleet.StartWorker(config.WorkerHandTracker)
	d.ui.Publish(events.ModeChanged, map[string]any{"mode": "hand_draw", "active": true})
}

func (d *Dispatcher) toggleDrawing() {
	d.mu.Lock()
	active := d.feature == FeatureDrawing
	d.mu.Unlock()

	if active {
		d.mu.Lock()
		d.feature = FeatureNone
		d.mu.Unlock()
		d.ui.Publish(events.ModeChanged, map[string]any{"mode": "drawing", "active": false})
		return
	}

	if !d.enterFeature(FeatureDrawing) {
		return
	}
	d.ui.Publish(events.ModeChanged, map[string]any{"mode": "drawing", "active": true})
}

// togglePointer derives its new state from the feature machine and the
// tracker itself; there is no shadow toggle boolean.
func (d *Dispatcher) togglePointer() {
	d.mu.Lock()
	active := d.feature == FeaturePointer
	d.mu.Unlock()

	if active {
		d.mu.Lock()
		d.feature = FeatureNone
		d.mu.Unlock()
		_ = d.fleet.SendWorker(config.WorkerHandTracker, map[string]string{"command": "toggle_pointer"})
		d.ui.Publish(events.ModeChanged, map[string]any{"mode": "pointer", "active": false})
		return
	}

	if !d.enterFeature(FeaturePointer) {
		return
	}
	if !d.fleet.IsWorkerRunning(config.WorkerHandTracker) {
		d.fleet.StartWorker(config.WorkerHandTracker)
	}
	_ = d.fleet.SendWorker(config.WorkerHandTracker, map[string]string{"command": "toggle_pointer"})
	d.ui.Publish(events.ModeChanged, map[string]any{"mode": "pointer", "active": true})
}

// enterFeature attempts the transition none->f or f->f. A different active
// feature rejects the entry with a user-visible notice; state is unchanged.
func (d *Dispatcher) enterFeature(f Feature) bool {
	d.mu.Lock()
	if d.feature != FeatureNone && d.feature != f {
		current := d.feature
		d.mu.Unlock()
		d.logger.Warn("feature entry rejected", "requested", f.String(), "active", current.String())
		d.ui.Publish(events.ShowNotice, map[string]any{
			"level":   "warn",
			"message": "Finish or reset " + current.String() + " before starting " + f.String(),
		})
		return false
	}
	d.feature = f
	d.mu.Unlock()
	return true
}

// Haptic broadcasts a vibration preset to phone clients. Best-effort.
// Exported so the fleet's OCR runner can signal completion.
func (d *Dispatcher) Haptic(preset string) {
	if d.bcast == nil {
		return
	}
	msg := map[string]any{
		"type":   "haptic_request",
		"preset": preset,
	}
	if pattern, ok := d.cfg.Haptics[preset]; ok {
		msg["pattern"] = map[string]any{
			"intensity":   pattern.Intensity,
			"count":       pattern.Count,
			"duration_ms": pattern.Duration.Milliseconds(),
		}
	}
	d.bcast.Broadcast(msg)
}

func (d *Dispatcher) publishStatus() {
	d.mu.Lock()
	feature := d.feature
	d.mu.Unlock()

	workers := map[string]bool{}
	for _, kind := range []string{
		config.WorkerGesture, config.WorkerHandTracker,
		config.WorkerSTT, config.WorkerSummarizer, config.WorkerDictionary,
	} {
		workers[kind] = d.fleet.IsWorkerRunning(kind)
	}

	d.ui.Publish(events.ShowNotice, map[string]any{
		"level":   "info",
		"message": "status",
		"feature": feature.String(),
		"workers": workers,
		"timer":   d.timer.Running(),
	})
}
