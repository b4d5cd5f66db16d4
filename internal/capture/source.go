package capture

import "errors"

// ErrSourceClosed is returned by Grab once the monitor is gone.
var ErrSourceClosed = errors.New("capture source closed")

// Grabber yields frames of one monitor.
type Grabber interface {
	// Grab returns the next frame. ErrSourceClosed means the monitor
	// disappeared; any other error is fatal to the session.
	Grab() (Frame, error)
	Close() error
}

// Source enumerates monitors and opens grabbers on them.
type Source interface {
	Monitors() ([]Monitor, error)
	Open(m Monitor) (Grabber, error)
}

// Handler receives the frames of a running session on the session's thread.
// A Handler that implements io.Closer is closed when the session ends.
type Handler interface {
	OnFrame(f Frame) error
	// OnClosed is called when the source closed underneath the session.
	OnClosed() error
}
