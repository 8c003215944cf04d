package worker

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ResolveInterpreter picks the first usable interpreter from an ordered
// candidate list. Candidates containing a path separator are probed for
// existence; bare names fall back to a PATH lookup. The probe order is a
// deployment-layout compatibility contract and must not be reordered.
func ResolveInterpreter(candidates []string) (string, error) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if strings.ContainsRune(candidate, os.PathSeparator) {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
			continue
		}
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no interpreter found among %d candidates", len(candidates))
}

// ResolveScript locates script by probing the ordered directory list.
// Relative directories are joined onto basePath; absolute directories are
// probed as-is. First match wins.
func ResolveScript(basePath, script string, dirs []string) (string, error) {
	if script == "" {
		return "", fmt.Errorf("script name is empty")
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(basePath, dir)
		}
		candidate := filepath.Join(dir, script)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("script %q not found in %d directories", script, len(dirs))
}
