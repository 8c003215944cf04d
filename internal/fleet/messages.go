package fleet

import (
	"encoding/json"

	"github.com/mattjoyce/lectern/internal/events"
)

// onTrackerMessage maps hand-tracker stdout to UI directives. Cursor frames
// are high-rate and pass straight through.
func (m *Manager) onTrackerMessage(msgType string, line []byte) {
	switch msgType {
	case "cursor":
		var msg struct {
			X       float64 `json:"x"`
			Y       float64 `json:"y"`
			Drawing bool    `json:"drawing"`
		}
		if err := json.Unmarshal(line, &msg); err != nil {
			return
		}
		m.ui.Publish(events.HandCursor, msg)

	case "draw_enable":
		m.ui.Publish(events.HandDrawEnable, nil)

	case "draw_disable":
		m.ui.Publish(events.HandDrawDisable, nil)

	case "calibration_started":
		m.ui.Publish(events.CalibrationStarted, nil)

	case "calibration_point":
		m.ui.Publish(events.CalibrationPoint, json.RawMessage(line))

	case "calibration_done", "calibration_restored":
		m.ui.Publish(events.CalibrationDone, json.RawMessage(line))

	case "calibration_failed":
		m.ui.Publish(events.CalibrationFailed, json.RawMessage(line))

	case "calibration_reset":
		m.ui.Publish(events.CalibrationReset, nil)

	case "ready", "fps", "status":
		m.logTrackerInfo(msgType, line)

	case "error":
		m.logWorkerError("handtracker", line)

	case "shutdown":
		m.logger.Info("hand tracker announced shutdown")
	}
}

func (m *Manager) logTrackerInfo(msgType string, line []byte) {
	var msg struct {
		Message string  `json:"message"`
		Value   float64 `json:"value"`
	}
	_ = json.Unmarshal(line, &msg)
	if msgType == "fps" {
		m.logger.Debug("hand tracker fps", "fps", msg.Value)
		return
	}
	m.logger.Info("hand tracker "+msgType, "message", msg.Message)
}

// onSTTMessage maps the speech-to-text worker's lifecycle and
// transcription messages. Transcriptions also land in the session log so
// the summarizer has material to work with.
func (m *Manager) onSTTMessage(msgType string, line []byte) {
	switch msgType {
	case "ready":
		m.logger.Info("stt worker ready")

	case "recording_started":
		m.ui.Publish(events.RecordingStarted, nil)

	case "recording_stopped":
		m.ui.Publish(events.RecordingStopped, nil)

	case "transcription":
		var msg struct {
			Speaker string `json:"speaker"`
			Text    string `json:"text"`
		}
		if err := json.Unmarshal(line, &msg); err != nil || msg.Text == "" {
			return
		}
		if msg.Speaker == "" {
			msg.Speaker = "presenter"
		}
		m.ui.Publish(events.Transcription, msg)
		if m.sink != nil {
			m.sink.AppendTranscript(msg.Speaker, msg.Text)
		}

	case "error":
		m.logWorkerError("stt", line)
	}
}

// onSummarizerMessage resolves pending summarize calls; info/warning lines
// are operator diagnostics only.
func (m *Manager) onSummarizerMessage(msgType string, line []byte) {
	switch msgType {
	case "ready":
		m.logger.Info("summarizer ready")

	case "summary":
		if !m.resolveOldest(workerSummarizerKey, json.RawMessage(line)) {
			m.logger.Debug("summary with no pending call")
		}

	case "info", "warning":
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(line, &msg)
		m.logger.Info("summarizer "+msgType, "message", msg.Message)

	case "error":
		m.logWorkerError("summarizer", line)

	case "shutdown":
		m.logger.Info("summarizer announced shutdown")
	}
}

// onDictionaryMessage resolves pending lookup calls.
func (m *Manager) onDictionaryMessage(msgType string, line []byte) {
	switch msgType {
	case "ready":
		m.logger.Info("dictionary ready")

	case "definition":
		if !m.resolveOldest(workerDictionaryKey, json.RawMessage(line)) {
			m.logger.Debug("definition with no pending call")
		}

	case "pong":
		m.logger.Debug("dictionary pong")

	case "error":
		m.logWorkerError("dictionary", line)

	case "shutdown":
		m.logger.Info("dictionary announced shutdown")
	}
}

func (m *Manager) logWorkerError(kind string, line []byte) {
	var msg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(line, &msg)
	detail := msg.Message
	if detail == "" {
		detail = msg.Error
	}
	m.logger.Error("worker reported error", "kind", kind, "detail", detail)
}
