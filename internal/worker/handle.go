// Package worker supervises one external worker subprocess speaking
// newline-delimited JSON over stdio: spawn with resolved interpreter and
// script paths, frame stdout, filter stderr, cooperative quit with a
// force-kill grace window, restart.
package worker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattjoyce/lectern/internal/log"
)

// maxLineBytes caps the stdout/stderr scanner buffer. Hand-tracker cursor
// streams are small; OCR payloads can carry image metadata.
const maxLineBytes = 1 << 20

// Options configures one worker handle.
type Options struct {
	Kind         string
	Interpreters []string
	Script       string
	ScriptDirs   []string
	GracePeriod  time.Duration
	QuietStderr  []string
}

// quitCommand is the cooperative shutdown message every worker understands.
var quitCommand = map[string]string{"command": "quit"}

// Handle owns the process reference for one worker. No other component
// touches the process directly; interaction happens through Send, Stop,
// Restart and the message/exit callbacks.
type Handle struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	killTimer *time.Timer
	// generation increments per spawn so a stale kill timer or exit handler
	// from a previous process cannot touch the current one.
	generation uint64

	onMessage func(msgType string, line []byte)
	onRaw     func(line string)
	onExit    func(err error)
}

// New creates an idle handle.
func New(opts Options) *Handle {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 500 * time.Millisecond
	}
	return &Handle{
		opts:   opts,
		logger: log.WithWorker(opts.Kind),
	}
}

// OnMessage registers the framed-JSON callback. Last registration wins; the
// fleet registers exactly one at startup.
func (h *Handle) OnMessage(fn func(msgType string, line []byte)) {
	h.mu.Lock()
	h.onMessage = fn
	h.mu.Unlock()
}

// OnRaw registers the callback for non-JSON stdout lines.
func (h *Handle) OnRaw(fn func(line string)) {
	h.mu.Lock()
	h.onRaw = fn
	h.mu.Unlock()
}

// OnExit registers the process-exit callback, invoked after refs are
// cleared. The fleet uses it to fail in-flight correlated requests.
func (h *Handle) OnExit(fn func(err error)) {
	h.mu.Lock()
	h.onExit = fn
	h.mu.Unlock()
}

// Kind returns the worker kind tag.
func (h *Handle) Kind() string {
	return h.opts.Kind
}

// IsRunning reports whether the process is live.
func (h *Handle) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == StateRunning
}

// Start resolves the interpreter and script and spawns the worker.
// A failure to resolve or spawn is logged and returned; the handle stays
// idle and the caller is expected to tolerate a worker that never starts.
func (h *Handle) Start(basePath string) error {
	h.mu.Lock()
	if h.state != StateIdle {
		state := h.state
		h.mu.Unlock()
		h.logger.Info("start ignored", "state", state.String())
		return fmt.Errorf("worker %s is %s, not idle", h.opts.Kind, state)
	}
	h.state = StateStarting
	h.mu.Unlock()

	interp, err := ResolveInterpreter(h.opts.Interpreters)
	if err != nil {
		h.failStart("interpreter resolution failed", err)
		return err
	}

	script, err := ResolveScript(basePath, h.opts.Script, h.opts.ScriptDirs)
	if err != nil {
		h.failStart("script resolution failed", err)
		return err
	}

	cmd := exec.Command(interp, script)
	// Workers resolve their own model files relative to the script.
	cmd.Dir = filepath.Dir(script)
	cmd.Env = append(os.Environ(),
		"PYTHONUNBUFFERED=1",
		"PYTHONIOENCODING=utf-8",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		h.failStart("create stdin pipe", err)
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		h.failStart("create stdout pipe", err)
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		h.failStart("create stderr pipe", err)
		return err
	}

	if err := cmd.Start(); err != nil {
		h.failStart("spawn failed", err)
		return err
	}

	h.mu.Lock()
	h.generation++
	gen := h.generation
	h.cmd = cmd
	h.stdin = stdin
	h.state = StateRunning
	h.mu.Unlock()

	h.logger.Info("worker started", "pid", cmd.Process.Pid, "interpreter", interp, "script", script)

	go h.scanStdout(stdout)
	go h.scanStderr(stderr)
	go h.wait(cmd, gen)

	return nil
}

func (h *Handle) failStart(msg string, err error) {
	h.logger.Error(msg, "error", err)
	h.mu.Lock()
	h.state = StateIdle
	h.mu.Unlock()
}

// Send serializes v as a single JSON line and writes it to the worker's
// stdin. There is no queuing: a message sent to a non-running worker is
// lost and an error is returned.
func (h *Handle) Send(v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateRunning || h.stdin == nil {
		h.logger.Warn("send dropped, worker not running", "state", h.state.String())
		return fmt.Errorf("worker %s is not running", h.opts.Kind)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	data = append(data, '\n')

	if _, err := h.stdin.Write(data); err != nil {
		h.logger.Error("stdin write failed", "error", err)
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// Stop sends the quit command and schedules a force-kill after the grace
// period regardless of acknowledgement. Idempotent: stopping an idle or
// already-stopping handle does nothing and arms no second kill timer.
func (h *Handle) Stop() {
	h.mu.Lock()
	if h.state != StateRunning {
		state := h.state
		h.mu.Unlock()
		h.logger.Debug("stop ignored", "state", state.String())
		return
	}
	h.state = StateStopping
	cmd := h.cmd
	stdin := h.stdin
	gen := h.generation
	h.mu.Unlock()

	h.logger.Info("stopping worker", "grace", h.opts.GracePeriod)

	if data, err := json.Marshal(quitCommand); err == nil && stdin != nil {
		_, _ = stdin.Write(append(data, '\n'))
	}

	timer := time.AfterFunc(h.opts.GracePeriod, func() {
		h.mu.Lock()
		stale := h.generation != gen || h.cmd == nil
		h.mu.Unlock()
		if stale {
			return
		}
		h.logger.Warn("worker did not exit within grace period, killing")
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	})

	h.mu.Lock()
	if h.generation == gen {
		h.killTimer = timer
	} else {
		timer.Stop()
	}
	h.mu.Unlock()
}

// Restart stops the worker, waits out the grace period, and starts it
// again. Not awaited: the caller observes the outcome via IsRunning.
func (h *Handle) Restart(basePath string) {
	h.Stop()
	go func() {
		time.Sleep(h.opts.GracePeriod + 200*time.Millisecond)
		if err := h.Start(basePath); err != nil {
			h.logger.Error("restart failed", "error", err)
		}
	}()
}

// wait blocks on process exit, clears refs, and fires the exit callback.
func (h *Handle) wait(cmd *exec.Cmd, gen uint64) {
	err := cmd.Wait()

	h.mu.Lock()
	if h.generation != gen {
		h.mu.Unlock()
		return
	}
	if h.killTimer != nil {
		h.killTimer.Stop()
		h.killTimer = nil
	}
	h.cmd = nil
	h.stdin = nil
	h.state = StateIdle
	onExit := h.onExit
	h.mu.Unlock()

	if err != nil {
		h.logger.Warn("worker exited", "error", err)
	} else {
		h.logger.Info("worker exited")
	}

	if onExit != nil {
		onExit(err)
	}
}

// scanStdout frames stdout as newline-delimited JSON. Objects with a type
// or command discriminator go to the message callback; anything else is
// logged verbatim and optionally forwarded raw. Protocol desync is not
// fatal.
func (h *Handle) scanStdout(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(line), &probe); err != nil || probe.Type == "" {
			h.logger.Info("worker stdout", "line", line)
			h.mu.Lock()
			onRaw := h.onRaw
			h.mu.Unlock()
			if onRaw != nil {
				onRaw(line)
			}
			continue
		}

		h.mu.Lock()
		onMessage := h.onMessage
		h.mu.Unlock()
		if onMessage != nil {
			onMessage(probe.Type, []byte(line))
		}
	}
}

// scanStderr filters known noisy diagnostics and logs the rest at error
// level.
func (h *Handle) scanStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || h.quiet(line) {
			continue
		}
		h.logger.Error("worker stderr", "line", line)
	}
}

func (h *Handle) quiet(line string) bool {
	for _, needle := range h.opts.QuietStderr {
		if needle != "" && strings.Contains(line, needle) {
			return true
		}
	}
	return false
}
