package capture

// State is the lifecycle state of a Session.
type State string

// Session states.
const (
	StateIdle     State = "idle"     // Not started, or failed to start
	StateStarting State = "starting" // Acquiring source and handler
	StateRunning  State = "running"  // Delivering frames
	StateStopping State = "stopping" // Stop requested or source closed
	StateStopped  State = "stopped"  // Resources released
)

// Active reports whether s is starting or running.
func (s State) Active() bool {
	return s == StateStarting || s == StateRunning
}

// StateChangeCallback is called on every transition. err carries the reason a
// start failed or a running session ended.
type StateChangeCallback func(oldState, newState State, err error)
