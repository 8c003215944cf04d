package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattjoyce/lectern/internal/config"
	"github.com/mattjoyce/lectern/internal/events"
	"github.com/mattjoyce/lectern/internal/log"
	"github.com/mattjoyce/lectern/internal/worker"
)

// maxOCRStderr caps captured stderr from OCR invocations.
const maxOCRStderr = 16 * 1024

// OCRRunner launches one-shot OCR script invocations. Unlike the
// long-lived workers these run to completion per request; the result is
// published as an OCRResult directive.
type OCRRunner struct {
	cfg      config.OCRConf
	basePath string
	ui       *events.Hub
	logger   *slog.Logger

	// haptic signals a successful run to phone clients. May be nil.
	haptic func(preset string)
}

func NewOCRRunner(cfg config.OCRConf, basePath string, ui *events.Hub) *OCRRunner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OCRRunner{
		cfg:      cfg,
		basePath: basePath,
		ui:       ui,
		logger:   log.WithComponent("ocr"),
	}
}

// Run starts the invocation for mode in the background. Failures surface
// as an OCRResult directive with an error field, never as a panic or an
// error return: the overlay decides how to display them.
func (r *OCRRunner) Run(mode string) {
	go r.run(mode)
}

func (r *OCRRunner) run(mode string) {
	script, ok := r.cfg.Scripts[mode]
	if !ok {
		r.logger.Warn("no OCR script configured", "mode", mode)
		r.publishError(mode, "no script configured for mode "+mode)
		return
	}

	interp, err := worker.ResolveInterpreter(r.cfg.Interpreters)
	if err != nil {
		r.logger.Error("interpreter resolution failed", "error", err)
		r.publishError(mode, err.Error())
		return
	}
	scriptPath, err := worker.ResolveScript(r.basePath, script, r.cfg.ScriptDirs)
	if err != nil {
		r.logger.Error("script resolution failed", "mode", mode, "error", err)
		r.publishError(mode, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, interp, scriptPath)
	cmd.Dir = filepath.Dir(scriptPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Info("running OCR", "mode", mode, "script", scriptPath)
	start := time.Now()

	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if len(errText) > maxOCRStderr {
			errText = errText[:maxOCRStderr]
		}
		r.logger.Error("OCR invocation failed", "mode", mode, "error", err, "stderr", errText)
		r.publishError(mode, err.Error())
		return
	}

	r.logger.Info("OCR complete", "mode", mode, "duration_ms", time.Since(start).Milliseconds())

	if r.haptic != nil {
		r.haptic("ocr_complete")
	}

	// The CLI prints one JSON object; fall back to plain text output.
	out := strings.TrimSpace(stdout.String())
	var parsed map[string]any
	if err := json.Unmarshal([]byte(out), &parsed); err == nil {
		parsed["mode"] = mode
		r.ui.Publish(events.OCRResult, parsed)
		return
	}
	r.ui.Publish(events.OCRResult, map[string]any{"mode": mode, "text": out})
}

func (r *OCRRunner) publishError(mode, detail string) {
	r.ui.Publish(events.OCRResult, map[string]any{"mode": mode, "error": detail})
}
