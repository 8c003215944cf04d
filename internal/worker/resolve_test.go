package worker

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveInterpreterBareNameUsesPATH(t *testing.T) {
	t.Parallel()

	path, err := ResolveInterpreter([]string{"definitely-not-a-real-binary-xyz", "sh"})
	if err != nil {
		t.Fatalf("ResolveInterpreter: %v", err)
	}
	if filepath.Base(path) != "sh" {
		t.Fatalf("expected sh from PATH, got %q", path)
	}
}

func TestResolveInterpreterAbsolutePathProbed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fake := filepath.Join(dir, "python3")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// First candidate does not exist, second does. Order decides.
	got, err := ResolveInterpreter([]string{filepath.Join(dir, "missing"), fake, "sh"})
	if err != nil {
		t.Fatalf("ResolveInterpreter: %v", err)
	}
	if got != fake {
		t.Fatalf("expected %q, got %q", fake, got)
	}
}

func TestResolveInterpreterNoneFound(t *testing.T) {
	t.Parallel()

	if _, err := ResolveInterpreter([]string{"", "/nonexistent/interp"}); err == nil {
		t.Fatal("expected error when no candidate resolves")
	}
}

func TestResolveScriptProbesDirsInOrder(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	for _, d := range []string{"first", "second"} {
		if err := os.MkdirAll(filepath.Join(base, d), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}
	script := filepath.Join(base, "second", "worker.py")
	if err := os.WriteFile(script, []byte("print()\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ResolveScript(base, "worker.py", []string{"first", "second"})
	if err != nil {
		t.Fatalf("ResolveScript: %v", err)
	}
	if got != script {
		t.Fatalf("expected %q, got %q", script, got)
	}

	// A copy in an earlier directory wins.
	early := filepath.Join(base, "first", "worker.py")
	if err := os.WriteFile(early, []byte("print()\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err = ResolveScript(base, "worker.py", []string{"first", "second"})
	if err != nil {
		t.Fatalf("ResolveScript: %v", err)
	}
	if got != early {
		t.Fatalf("expected first-match %q, got %q", early, got)
	}
}

func TestResolveScriptMissing(t *testing.T) {
	t.Parallel()

	if _, err := ResolveScript(t.TempDir(), "nope.py", []string{"a", "b"}); err == nil {
		t.Fatal("expected error for missing script")
	}
	if _, err := ResolveScript(t.TempDir(), "", []string{"a"}); err == nil {
		t.Fatal("expected error for empty script name")
	}
}
