package events

// Event type constants for kelindar/event.
const (
	TypeCaptureStateChanged uint32 = iota + 1
	TypeMonitorsChanged
	TypePortsChanged
	TypeSelectionChanged
	TypeWatcherFailed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CaptureStateChangedEvent is published on every primary capture transition.
type CaptureStateChangedEvent struct {
	State     string `json:"state" example:"running" doc:"Session state: idle, starting, running, stopping, stopped"`
	Monitor   int    `json:"monitor" example:"0" doc:"Captured monitor index"`
	Port      string `json:"port" example:"/dev/ttyUSB0" doc:"Serial port driving the strip"`
	Error     string `json:"error,omitempty" example:"write timeout" doc:"Reason the session ended, if it failed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CaptureStateChangedEvent.
func (e CaptureStateChangedEvent) Type() uint32 { return TypeCaptureStateChanged }

// MonitorInfo is the wire form of an attached display.
type MonitorInfo struct {
	Index  int    `json:"index" example:"0" doc:"Monitor index"`
	Title  string `json:"title" example:"Display 1 (2560x1440)" doc:"Display title"`
	X      int    `json:"x" doc:"Left edge in virtual screen coordinates"`
	Y      int    `json:"y" doc:"Top edge in virtual screen coordinates"`
	Width  int    `json:"width" example:"2560" doc:"Width in pixels"`
	Height int    `json:"height" example:"1440" doc:"Height in pixels"`
}

// MonitorsChangedEvent carries the full monitor list after it changed.
type MonitorsChangedEvent struct {
	Monitors  []MonitorInfo `json:"monitors" doc:"Currently attached monitors"`
	Timestamp string        `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for MonitorsChangedEvent.
func (e MonitorsChangedEvent) Type() uint32 { return TypeMonitorsChanged }

// PortsChangedEvent carries the selectable serial ports after they changed.
type PortsChangedEvent struct {
	Ports     []string `json:"ports" example:"[\"/dev/ttyUSB0\"]" doc:"Selectable serial ports"`
	Selected  string   `json:"selected" example:"/dev/ttyUSB0" doc:"Selected port after fallback"`
	Timestamp string   `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PortsChangedEvent.
func (e PortsChangedEvent) Type() uint32 { return TypePortsChanged }

// SelectionChangedEvent is published when the monitor or port selection changes.
type SelectionChangedEvent struct {
	Monitor   int    `json:"monitor" example:"0" doc:"Selected monitor index"`
	Port      string `json:"port" example:"/dev/ttyUSB0" doc:"Selected serial port"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SelectionChangedEvent.
func (e SelectionChangedEvent) Type() uint32 { return TypeSelectionChanged }

// WatcherFailedEvent is published when a hardware watcher stops on an
// enumeration error.
type WatcherFailedEvent struct {
	Watcher   string `json:"watcher" example:"ports" doc:"Watcher name: ports or monitors"`
	Error     string `json:"error" doc:"Enumeration error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for WatcherFailedEvent.
func (e WatcherFailedEvent) Type() uint32 { return TypeWatcherFailed }
