package worker

// State tracks a handle's lifecycle. Start and Stop requests arriving while
// a transition is in flight are rejected, which closes the double-spawn
// window between a stop and the previous process's exit notification.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}
