package config

import "time"

// Config represents the complete lectern configuration.
type Config struct {
	Service  Service                 `yaml:"service"`
	Ingress  Ingress                 `yaml:"ingress"`
	Session  Session                 `yaml:"session"`
	Workers  map[string]WorkerConf   `yaml:"workers"`
	OCR      OCRConf                 `yaml:"ocr,omitempty"`
	Gestures map[string]string       `yaml:"gestures,omitempty"`
	Haptics  map[string]HapticPreset `yaml:"haptics,omitempty"`
}

// Service defines core daemon settings.
type Service struct {
	Name             string        `yaml:"name"`
	LogLevel         string        `yaml:"log_level"`
	LockWindow       time.Duration `yaml:"lock_window"`
	GateDebounce     time.Duration `yaml:"gate_debounce"`
	DispatchDebounce time.Duration `yaml:"dispatch_debounce"`
	// DetectionWindow is the default UI detection-window duration announced
	// on stage1 when the worker payload carries none.
	DetectionWindow time.Duration `yaml:"detection_window"`
}

// Ingress defines the WebSocket listener settings.
type Ingress struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// Session defines the session log storage settings.
type Session struct {
	Path string `yaml:"path"`
}

// WorkerConf defines configuration for a single worker kind.
type WorkerConf struct {
	Enabled bool `yaml:"enabled"`
	// Interpreters is the ordered list of interpreter candidates. Absolute
	// paths are probed for existence; bare names fall back to a PATH lookup.
	// Probe order is a deployment-layout compatibility contract.
	Interpreters []string `yaml:"interpreters"`
	// Script is the worker script filename.
	Script string `yaml:"script"`
	// ScriptDirs is the ordered list of directories probed for Script.
	ScriptDirs []string `yaml:"script_dirs"`
	// GracePeriod is how long Stop waits after the quit command before the
	// process is force-killed.
	GracePeriod time.Duration `yaml:"grace_period,omitempty"`
	// RequestTimeout bounds correlated request/response calls (summarizer,
	// dictionary). Zero means the worker has no correlated calls.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	// QuietStderr lists substrings of stderr lines that are dropped instead
	// of logged (known noisy library diagnostics).
	QuietStderr []string `yaml:"quiet_stderr,omitempty"`
}

// OCRConf defines the on-demand OCR script invocations.
type OCRConf struct {
	Interpreters []string          `yaml:"interpreters,omitempty"`
	ScriptDirs   []string          `yaml:"script_dirs,omitempty"`
	Scripts      map[string]string `yaml:"scripts,omitempty"` // mode -> filename
	Timeout      time.Duration     `yaml:"timeout,omitempty"`
}

// HapticPreset describes one vibration pattern broadcast to phone clients.
type HapticPreset struct {
	Intensity int           `yaml:"intensity" json:"intensity"`
	Count     int           `yaml:"count" json:"count"`
	Duration  time.Duration `yaml:"duration" json:"duration"`
}

// Worker kind names. Workers not present in config are simply never started.
const (
	WorkerGesture     = "gesture"
	WorkerHandTracker = "handtracker"
	WorkerSTT         = "stt"
	WorkerSummarizer  = "summarizer"
	WorkerDictionary  = "dictionary"
)

// Defaults returns a Config with working defaults for a dev-tree layout.
func Defaults() *Config {
	python := []string{"python3", "python"}
	return &Config{
		Service: Service{
			Name:             "lectern",
			LogLevel:         "info",
			LockWindow:       1000 * time.Millisecond,
			GateDebounce:     500 * time.Millisecond,
			DispatchDebounce: 300 * time.Millisecond,
			DetectionWindow:  1500 * time.Millisecond,
		},
		Ingress: Ingress{
			Listen: "127.0.0.1:8765",
			Path:   "/ws",
		},
		Session: Session{
			Path: "lectern.db",
		},
		Workers: map[string]WorkerConf{
			WorkerGesture: {
				Enabled:      true,
				Interpreters: python,
				Script:       "gesture_controller.py",
				ScriptDirs:   []string{"py/gesture"},
				GracePeriod:  800 * time.Millisecond,
				QuietStderr:  []string{"UserWarning", "FutureWarning", "TqdmWarning"},
			},
			WorkerHandTracker: {
				Enabled:      true,
				Interpreters: python,
				Script:       "hand_tracker.py",
				ScriptDirs:   []string{"py/vision"},
				GracePeriod:  1000 * time.Millisecond,
				QuietStderr:  []string{"INFO: Created TensorFlow", "WARNING: All log messages"},
			},
			WorkerSTT: {
				Enabled:      true,
				Interpreters: python,
				Script:       "stt_server.py",
				ScriptDirs:   []string{"py/stt"},
				GracePeriod:  1000 * time.Millisecond,
			},
			WorkerSummarizer: {
				Enabled:        true,
				Interpreters:   python,
				Script:         "qa_summarizer_server.py",
				ScriptDirs:     []string{"py/stt"},
				GracePeriod:    500 * time.Millisecond,
				RequestTimeout: 60 * time.Second,
			},
			WorkerDictionary: {
				Enabled:        true,
				Interpreters:   python,
				Script:         "vocab_server.py",
				ScriptDirs:     []string{"py/vocab"},
				GracePeriod:    500 * time.Millisecond,
				RequestTimeout: 10 * time.Second,
			},
		},
		OCR: OCRConf{
			Interpreters: python,
			ScriptDirs:   []string{"py/ocr"},
			Scripts: map[string]string{
				"text":  "ink_ocr_cli.py",
				"math":  "math_cli.py",
				"eval":  "calc_cli.py",
				"graph": "graph_cli.py",
			},
			Timeout: 30 * time.Second,
		},
		Haptics: map[string]HapticPreset{
			"selection_tick":    {Intensity: 80, Count: 1, Duration: 50 * time.Millisecond},
			"slide_change":      {Intensity: 150, Count: 1, Duration: 80 * time.Millisecond},
			"calibration_point": {Intensity: 200, Count: 1, Duration: 60 * time.Millisecond},
			"calibration_done":  {Intensity: 255, Count: 2, Duration: 150 * time.Millisecond},
			"recording_toggle":  {Intensity: 200, Count: 1, Duration: 100 * time.Millisecond},
			"ocr_start":         {Intensity: 150, Count: 1, Duration: 80 * time.Millisecond},
			"ocr_complete":      {Intensity: 220, Count: 2, Duration: 80 * time.Millisecond},
		},
	}
}
