// Package doctor validates lectern configuration and worker setup.
package doctor

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/mattjoyce/lectern/internal/command"
	"github.com/mattjoyce/lectern/internal/config"
	"github.com/mattjoyce/lectern/internal/worker"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates configuration and the worker scripts it points at.
type Doctor struct {
	cfg      *config.Config
	basePath string
}

// New creates a Doctor for a loaded config. basePath anchors relative
// script directories, matching what the fleet uses at runtime.
func New(cfg *config.Config, basePath string) *Doctor {
	return &Doctor{cfg: cfg, basePath: basePath}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateServiceConfig(r)
	d.validateIngressConfig(r)
	d.validateSessionPath(r)
	d.validateWorkers(r)
	d.validateOCR(r)
	d.validateGestureMapping(r)
	d.validateHaptics(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) validateServiceConfig(r *Result) {
	if d.cfg.Service.LockWindow <= 0 {
		d.addError(r, "service", "service.lock_window", "lock_window must be positive")
	}
	if d.cfg.Service.GateDebounce <= 0 {
		d.addError(r, "service", "service.gate_debounce", "gate_debounce must be positive")
	}
	if d.cfg.Service.DispatchDebounce <= 0 {
		d.addError(r, "service", "service.dispatch_debounce", "dispatch_debounce must be positive")
	}
}

func (d *Doctor) validateIngressConfig(r *Result) {
	if d.cfg.Ingress.Listen == "" {
		d.addError(r, "ingress", "ingress.listen", "ingress.listen is required")
		return
	}
	if _, _, err := net.SplitHostPort(d.cfg.Ingress.Listen); err != nil {
		d.addError(r, "ingress", "ingress.listen",
			fmt.Sprintf("invalid listen address %q: %v", d.cfg.Ingress.Listen, err))
	}
	if d.cfg.Ingress.Path == "" {
		d.addError(r, "ingress", "ingress.path", "ingress.path is required")
	}
}

func (d *Doctor) validateSessionPath(r *Result) {
	if d.cfg.Session.Path == "" {
		d.addError(r, "session", "session.path", "session.path is required")
		return
	}
	dir := filepath.Dir(d.cfg.Session.Path)
	if dir == "." {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		d.addWarning(r, "session", "session.path",
			fmt.Sprintf("session directory %q does not exist; it will be created on start", dir))
	}
}

// validateWorkers resolves each enabled worker's interpreter and script the
// same way the fleet does at spawn time, so a broken deployment fails the
// doctor instead of failing on first gesture.
func (d *Doctor) validateWorkers(r *Result) {
	for kind, wc := range d.cfg.Workers {
		if !wc.Enabled {
			continue
		}
		field := fmt.Sprintf("workers.%s", kind)
		if len(wc.Interpreters) == 0 {
			d.addError(r, "workers", field+".interpreters", "no interpreter candidates configured")
		} else if _, err := worker.ResolveInterpreter(wc.Interpreters); err != nil {
			d.addError(r, "workers", field+".interpreters", err.Error())
		}
		if wc.Script == "" {
			d.addError(r, "workers", field+".script", "script is required")
			continue
		}
		if _, err := worker.ResolveScript(d.basePath, wc.Script, wc.ScriptDirs); err != nil {
			d.addError(r, "workers", field+".script", err.Error())
		}
		if wc.GracePeriod < 0 {
			d.addError(r, "workers", field+".grace_period", "grace_period must not be negative")
		}
	}
}

func (d *Doctor) validateOCR(r *Result) {
	if len(d.cfg.OCR.Scripts) == 0 {
		return
	}
	if _, err := worker.ResolveInterpreter(d.cfg.OCR.Interpreters); err != nil {
		d.addError(r, "ocr", "ocr.interpreters", err.Error())
	}
	for mode, script := range d.cfg.OCR.Scripts {
		if _, err := worker.ResolveScript(d.basePath, script, d.cfg.OCR.ScriptDirs); err != nil {
			d.addWarning(r, "ocr", fmt.Sprintf("ocr.scripts.%s", mode), err.Error())
		}
	}
}

// validateGestureMapping checks that every configured gesture override maps
// to a known command token.
func (d *Doctor) validateGestureMapping(r *Result) {
	for gesture, tok := range d.cfg.Gestures {
		if tok != "" && !command.Known(tok) {
			d.addError(r, "gestures", fmt.Sprintf("gestures.%s", gesture),
				fmt.Sprintf("unknown command token %q", tok))
		}
		if normalized := command.Normalize(gesture); normalized != gesture {
			d.addWarning(r, "gestures", fmt.Sprintf("gestures.%s", gesture),
				fmt.Sprintf("gesture name is not in normalized form (want %q)", normalized))
		}
	}
}

func (d *Doctor) validateHaptics(r *Result) {
	for name, p := range d.cfg.Haptics {
		field := fmt.Sprintf("haptics.%s", name)
		if p.Intensity < 0 || p.Intensity > 255 {
			d.addError(r, "haptics", field+".intensity", "intensity must be in 0..255")
		}
		if p.Count <= 0 {
			d.addError(r, "haptics", field+".count", "count must be positive")
		}
		if p.Duration <= 0 {
			d.addError(r, "haptics", field+".duration", "duration must be positive")
		}
	}
}
