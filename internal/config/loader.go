package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file. A directory path is
// accepted and resolved to config.yaml inside it.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", absPath, err)
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", absPath, err)
	}

	// Verify against .checksums when present; absence is not an error.
	if err := VerifyChecksums(absPath); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// applyDefaults backfills zero-valued fields that yaml overrode with
// explicit empty sections.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Service.Name == "" {
		cfg.Service.Name = def.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = def.Service.LogLevel
	}
	if cfg.Service.LockWindow <= 0 {
		cfg.Service.LockWindow = def.Service.LockWindow
	}
	if cfg.Service.GateDebounce <= 0 {
		cfg.Service.GateDebounce = def.Service.GateDebounce
	}
	if cfg.Service.DispatchDebounce <= 0 {
		cfg.Service.DispatchDebounce = def.Service.DispatchDebounce
	}
	if cfg.Service.DetectionWindow <= 0 {
		cfg.Service.DetectionWindow = def.Service.DetectionWindow
	}
	if cfg.Ingress.Listen == "" {
		cfg.Ingress.Listen = def.Ingress.Listen
	}
	if cfg.Ingress.Path == "" {
		cfg.Ingress.Path = def.Ingress.Path
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = def.Session.Path
	}
	if cfg.Haptics == nil {
		cfg.Haptics = def.Haptics
	}
	for kind, wc := range cfg.Workers {
		if wc.GracePeriod <= 0 {
			if dwc, ok := def.Workers[kind]; ok && dwc.GracePeriod > 0 {
				wc.GracePeriod = dwc.GracePeriod
			} else {
				wc.GracePeriod = 500 * time.Millisecond
			}
		}
		cfg.Workers[kind] = wc
	}
}

// Validate checks structural requirements the daemon cannot start without.
func Validate(cfg *Config) error {
	if cfg.Ingress.Listen == "" {
		return fmt.Errorf("ingress.listen is required")
	}
	for kind, wc := range cfg.Workers {
		if !wc.Enabled {
			continue
		}
		if wc.Script == "" {
			return fmt.Errorf("workers.%s.script is required", kind)
		}
		if len(wc.Interpreters) == 0 {
			return fmt.Errorf("workers.%s.interpreters must list at least one candidate", kind)
		}
	}
	for name, preset := range cfg.Haptics {
		if preset.Intensity < 0 || preset.Intensity > 255 {
			return fmt.Errorf("haptics.%s.intensity must be in [0,255]", name)
		}
		if preset.Count < 1 {
			return fmt.Errorf("haptics.%s.count must be >= 1", name)
		}
	}
	return nil
}
