// Package fleet owns one worker handle per worker kind, translates feature
// transitions into lifecycle calls, fans worker stdout into the gate and
// the UI directive hub, and provides correlated request/response calls for
// the summarizer and dictionary workers.
package fleet

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mattjoyce/lectern/internal/config"
	"github.com/mattjoyce/lectern/internal/events"
	"github.com/mattjoyce/lectern/internal/log"
	"github.com/mattjoyce/lectern/internal/worker"
)

// FrameHandler receives raw frames from the gesture worker's stdout. The
// gate implements it.
type FrameHandler interface {
	HandleFrame(raw string)
}

// TranscriptSink archives transcriptions for later summarization.
type TranscriptSink interface {
	AppendTranscript(speaker, text string)
}

// Manager supervises the worker fleet. Worker handles are created eagerly
// for every configured kind; processes spawn lazily.
type Manager struct {
	cfg      *config.Config
	basePath string
	ui       *events.Hub
	frames   FrameHandler
	sink     TranscriptSink
	ocr      *OCRRunner
	logger   *slog.Logger

	handles map[string]*worker.Handle

	mu      sync.Mutex
	pending map[string][]*pendingCall
}

type pendingCall struct {
	id string
	ch chan callResult
}

type callResult struct {
	payload json.RawMessage
	err     error
}

// New builds the fleet. frames handles the gesture worker's output; sink
// may be nil. basePath anchors relative script directories.
func New(cfg *config.Config, basePath string, ui *events.Hub, frames FrameHandler, sink TranscriptSink) *Manager {
	m := &Manager{
		cfg:      cfg,
		basePath: basePath,
		ui:       ui,
		frames:   frames,
		sink:     sink,
		ocr:      NewOCRRunner(cfg.OCR, basePath, ui),
		logger:   log.WithComponent("fleet"),
		handles:  make(map[string]*worker.Handle),
		pending:  make(map[string][]*pendingCall),
	}

	for kind, wc := range cfg.Workers {
		if !wc.Enabled {
			continue
		}
		h := worker.New(worker.Options{
			Kind:         kind,
			Interpreters: wc.Interpreters,
			Script:       wc.Script,
			ScriptDirs:   wc.ScriptDirs,
			GracePeriod:  wc.GracePeriod,
			QuietStderr:  wc.QuietStderr,
		})
		m.wire(kind, h)
		m.handles[kind] = h
	}

	return m
}

// wire connects a handle's message and exit callbacks for its kind.
func (m *Manager) wire(kind string, h *worker.Handle) {
	switch kind {
	case config.WorkerGesture:
		// The gesture worker's whole output is command-stream input: frames
		// go through the gate like any ingress client's.
		h.OnMessage(func(_ string, line []byte) {
			if m.frames != nil {
				m.frames.HandleFrame(string(line))
			}
		})
		h.OnRaw(func(line string) {
			if m.frames != nil {
				m.frames.HandleFrame(line)
			}
		})
	case config.WorkerHandTracker:
		h.OnMessage(func(msgType string, line []byte) { m.onTrackerMessage(msgType, line) })
	case config.WorkerSTT:
		h.OnMessage(func(msgType string, line []byte) { m.onSTTMessage(msgType, line) })
	case config.WorkerSummarizer:
		h.OnMessage(func(msgType string, line []byte) { m.onSummarizerMessage(msgType, line) })
	case config.WorkerDictionary:
		h.OnMessage(func(msgType string, line []byte) { m.onDictionaryMessage(msgType, line) })
	}

	h.OnExit(func(err error) {
		m.failPending(kind, fmt.Errorf("worker %s process exited", kind))
	})
}

// SetHaptics wires the haptic broadcast used to signal OCR completion.
// The dispatcher owns haptics and is built after the fleet, so this is a
// post-construction bind like the gate's frame relay. Call before
// StartBootWorkers.
func (m *Manager) SetHaptics(haptic func(preset string)) {
	m.ocr.haptic = haptic
}

// StartBootWorkers starts the workers that run for the whole session:
// the gesture classifier and the request/response services. Hand tracker
// and STT start on demand from the dispatcher.
func (m *Manager) StartBootWorkers() {
	for _, kind := range []string{config.WorkerGesture, config.WorkerSummarizer, config.WorkerDictionary} {
		m.StartWorker(kind)
	}
}

// StopAll stops every running worker.
func (m *Manager) StopAll() {
	for kind, h := range m.handles {
		if h.IsRunning() {
			m.logger.Info("stopping worker", "kind", kind)
			h.Stop()
		}
	}
}

// StartWorker starts the handle for kind. Resolution and spawn failures
// are logged by the handle and swallowed here; callers observe the outcome
// through IsWorkerRunning.
func (m *Manager) StartWorker(kind string) {
	h, ok := m.handles[kind]
	if !ok {
		m.logger.Warn("start requested for unconfigured worker", "kind", kind)
		return
	}
	_ = h.Start(m.basePath)
}

// StopWorker stops the handle for kind.
func (m *Manager) StopWorker(kind string) {
	if h, ok := m.handles[kind]; ok {
		h.Stop()
	}
}

// RestartWorker restarts the handle for kind.
func (m *Manager) RestartWorker(kind string) {
	if h, ok := m.handles[kind]; ok {
		h.Restart(m.basePath)
	}
}

// IsWorkerRunning reports whether kind's process is live.
func (m *Manager) IsWorkerRunning(kind string) bool {
	h, ok := m.handles[kind]
	return ok && h.IsRunning()
}

// SendWorker writes a command object to kind's stdin.
func (m *Manager) SendWorker(kind string, cmd any) error {
	h, ok := m.handles[kind]
	if !ok {
		return fmt.Errorf("no such worker: %s", kind)
	}
	return h.Send(cmd)
}

// RunOCR launches a one-shot OCR invocation for mode. Asynchronous; the
// result arrives as an OCRResult directive.
func (m *Manager) RunOCR(mode string) {
	m.ocr.Run(mode)
}

// Handle exposes the underlying handle, for the doctor and tests.
func (m *Manager) Handle(kind string) (*worker.Handle, bool) {
	h, ok := m.handles[kind]
	return h, ok
}
