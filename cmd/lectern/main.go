package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/lectern/internal/command"
	"github.com/mattjoyce/lectern/internal/config"
	"github.com/mattjoyce/lectern/internal/dispatch"
	"github.com/mattjoyce/lectern/internal/doctor"
	"github.com/mattjoyce/lectern/internal/events"
	"github.com/mattjoyce/lectern/internal/fleet"
	"github.com/mattjoyce/lectern/internal/gate"
	"github.com/mattjoyce/lectern/internal/ingress"
	"github.com/mattjoyce/lectern/internal/lock"
	"github.com/mattjoyce/lectern/internal/log"
	"github.com/mattjoyce/lectern/internal/session"
	"github.com/mattjoyce/lectern/internal/storage"
	"github.com/mattjoyce/lectern/internal/tui/watch"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	// --- NOUNS ---
	case "system":
		os.Exit(runSystemNoun(args))
	case "config":
		os.Exit(runConfigNoun(args))

	// --- ROOT ALIASES ---
	case "start":
		os.Exit(runStart(args))
	case "watch":
		os.Exit(runWatch(args))
	case "doctor":
		os.Exit(runConfigCheck(args))
	case "version":
		fmt.Printf("lectern version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`lectern - Gesture gateway for presentation control

Usage:
  lectern <noun> <action> [flags]

Core Resources (Nouns):
  system    Daemon lifecycle and health
  config    System configuration and integrity

System Commands:
  system start      Start the daemon in foreground
  system watch      Live TUI monitor of a running daemon

Config Commands:
  config lock       Authorize current state (update integrity hashes)
  config check      Validate config and resolve worker scripts
  config show       Print the resolved configuration

General:
  version           Show version information
  help              Show this help message

Use 'lectern <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	case "watch":
		if hasHelpFlag(actionArgs) {
			printWatchHelp()
			return 0
		}
		return runWatch(actionArgs)
	case "help":
		printSystemNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "lock":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigLock(actionArgs)
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: lectern system <action>")
	fmt.Fprintln(w, "Actions: start, watch")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: lectern config <action> [flags]")
	fmt.Fprintln(w, "Actions: lock, check, show")
}

func printSystemStartHelp() {
	fmt.Println("Usage: lectern system start [--config PATH] [--base PATH]")
	fmt.Println("Start the daemon in the foreground.")
}

func printWatchHelp() {
	fmt.Println("Usage: lectern system watch [--addr HOST:PORT] [--path /ws]")
	fmt.Println("Attach a live TUI monitor to a running daemon.")
}

func printConfigLockHelp() {
	fmt.Println("Usage: lectern config lock [--config PATH] [--dry-run]")
	fmt.Println("Authorize current configuration state by regenerating integrity hashes.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: lectern config check [--config PATH] [--base PATH] [--json] [--strict]")
	fmt.Println("Validate configuration and resolve every enabled worker's interpreter and script.")
}

func printConfigShowHelp() {
	fmt.Println("Usage: lectern config show [--config PATH] [--json]")
	fmt.Println("Print the full resolved configuration.")
}

// --- ACTION IMPLEMENTATIONS ---

// frameRelay breaks the construction cycle between the ingress listener,
// the fleet, and the gate: both frame sources are built against the relay
// and the gate is bound in afterwards.
type frameRelay struct {
	mu     sync.RWMutex
	target ingress.FrameHandler
}

func (r *frameRelay) bind(h ingress.FrameHandler) {
	r.mu.Lock()
	r.target = h
	r.mu.Unlock()
}

func (r *frameRelay) HandleFrame(raw string) {
	r.mu.RLock()
	h := r.target
	r.mu.RUnlock()
	if h != nil {
		h.HandleFrame(raw)
	}
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file or directory")
	basePath := fs.String("base", "", "Base directory for worker script resolution (default: cwd)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if *basePath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to resolve working directory: %v\n", err)
			return 1
		}
		*basePath = cwd
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("lectern starting", "version", version, "config", *configPath)

	pidLockPath := filepath.Join(filepath.Dir(cfg.Session.Path), "lectern.pid")
	pidLock, err := lock.Acquire(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)",
			"path", pidLockPath, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLockPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.Session.Path)
	if err != nil {
		logger.Error("failed to open session database", "path", cfg.Session.Path, "error", err)
		return 1
	}
	defer db.Close()

	store := session.NewStore(db)
	logger.Info("session opened", "path", cfg.Session.Path, "session_id", store.SessionID())

	hub := events.NewHub(200)

	relay := &frameRelay{}
	flt := fleet.New(cfg, *basePath, hub, relay, store)
	srv := ingress.New(cfg.Ingress, relay)

	disp := dispatch.New(dispatch.Config{
		Debounce: cfg.Service.DispatchDebounce,
		Haptics:  cfg.Haptics,
	}, hub, flt, srv, nil, store)
	flt.SetHaptics(disp.Haptic)

	responder := fleet.NewResponder(flt, store, hub)

	mapping := command.DefaultMapping().Merge(cfg.Gestures)
	g := gate.New(gate.Config{
		LockWindow:      cfg.Service.LockWindow,
		Debounce:        cfg.Service.GateDebounce,
		DetectionWindow: cfg.Service.DetectionWindow,
		Requests:        responder,
	}, mapping, disp, hub)
	relay.bind(g)

	// Every published directive goes out to all connected clients with the
	// directive type folded into the payload.
	directives, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	go func() {
		for d := range directives {
			envelope := map[string]any{}
			_ = json.Unmarshal(d.Data, &envelope)
			envelope["type"] = d.Type
			srv.Broadcast(envelope)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("ingress: %w", err)
		}
	}()

	flt.StartBootWorkers()

	logger.Info("lectern running (press Ctrl+C to stop)")

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		exitCode = 1
	}

	cancel()
	flt.StopAll()

	logger.Info("lectern stopped")
	return exitCode
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:8765", "Daemon ingress address")
	path := fs.String("path", "/ws", "WebSocket endpoint path")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	wsURL := fmt.Sprintf("ws://%s%s", *addr, *path)
	httpURL := fmt.Sprintf("http://%s", *addr)

	p := tea.NewProgram(watch.New(wsURL, httpURL))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Watch TUI error: %v\n", err)
		return 1
	}
	return 0
}

func runConfigCheck(args []string) int {
	var configPath, basePath string
	var strict, jsonOut bool

	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config.yaml", "Path to configuration")
	fs.StringVar(&basePath, "base", "", "Base directory for worker script resolution (default: cwd)")
	fs.BoolVar(&strict, "strict", false, "Treat warnings as errors")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	if basePath == "" {
		basePath, _ = os.Getwd()
	}

	result := doctor.New(cfg, basePath).Validate()

	if jsonOut {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
	} else {
		printDoctorResult(result)
	}

	if !result.Valid {
		return 1
	}
	if strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func printDoctorResult(r *doctor.Result) {
	for _, issue := range r.Errors {
		fmt.Printf("ERROR [%s] %s: %s\n", issue.Category, issue.Field, issue.Message)
	}
	for _, issue := range r.Warnings {
		fmt.Printf("WARN  [%s] %s: %s\n", issue.Category, issue.Field, issue.Message)
	}
	if r.Valid {
		fmt.Println("Status: Configuration check PASSED.")
	} else {
		fmt.Printf("Status: Configuration check FAILED (%d errors).\n", len(r.Errors))
	}
}

func runConfigLock(args []string) int {
	var configPath string
	var dryRun bool

	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config.yaml", "Path to configuration")
	fs.BoolVar(&dryRun, "dry-run", false, "Preview hashes without writing")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	manifest, err := config.LockConfig(configPath, dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lock error: %v\n", err)
		return 1
	}

	for file, hash := range manifest.Hashes {
		fmt.Printf("  %s  %s\n", hash, file)
	}
	if dryRun {
		fmt.Println("Dry run: no checksums written.")
	} else {
		fmt.Println("Configuration state authorized.")
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Println(string(data))
	} else {
		data, _ := yaml.Marshal(cfg)
		fmt.Print(string(data))
	}
	return 0
}
