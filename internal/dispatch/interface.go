package dispatch

//go:generate mockgen -destination=mocks/mock_fleet.go -package=mocks github.com/mattjoyce/lectern/internal/dispatch Fleet

// Fleet is the worker-lifecycle surface the dispatcher drives. Lifecycle
// failures stay inside the fleet: the dispatcher routes commands and never
// verifies worker health beyond IsWorkerRunning.
type Fleet interface {
	StartWorker(kind string)
	StopWorker(kind string)
	RestartWorker(kind string)
	IsWorkerRunning(kind string) bool
	SendWorker(kind string, cmd any) error
	RunOCR(mode string)
}

// Broadcaster pushes a message to every connected ingress client.
// Best-effort, fire-and-forget.
type Broadcaster interface {
	Broadcast(v any)
}

// Navigator performs slide-navigation side effects. The OS key-injection
// mechanics live behind this interface.
type Navigator interface {
	Prev()
	Next()
	Jump(offset int)
}

// CommandLogger records successfully dispatched tokens.
type CommandLogger interface {
	LogCommand(token string)
}

// NopNavigator discards navigation calls. Used when no presentation
// backend is attached.
type NopNavigator struct{}

func (NopNavigator) Prev()      {}
func (NopNavigator) Next()      {}
func (NopNavigator) Jump(_ int) {}
