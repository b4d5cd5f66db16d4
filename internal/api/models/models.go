package models

import (
	"time"

	"github.com/smazurov/ambiled/internal/events"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target OS and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Capture models
type CaptureStatusData struct {
	State     string     `json:"state" example:"running" doc:"Primary session state: idle, starting, running, stopping, stopped"`
	Active    bool       `json:"active" doc:"Whether the primary capture owns the screens"`
	Monitor   int        `json:"monitor" example:"0" doc:"Captured or selected monitor index"`
	Port      string     `json:"port" example:"/dev/ttyUSB0" doc:"Selected serial port"`
	Boost     bool       `json:"saturation_boost" doc:"Whether the saturation boost is applied"`
	StartedAt *time.Time `json:"started_at,omitempty" doc:"When the running session started"`
	Uptime    string     `json:"uptime,omitempty" example:"2 minutes ago" doc:"Human-readable session age"`
	Frames    uint64     `json:"frames" example:"7200" doc:"Frames written by the running session"`
	LastError string     `json:"last_error,omitempty" doc:"Why the previous session ended, if it failed"`
}

type CaptureStatusResponse struct {
	Body CaptureStatusData
}

type BoostRequest struct {
	Body struct {
		Enabled bool `json:"enabled" doc:"Apply the saturation boost"`
	}
}

// Hardware models
type MonitorListData struct {
	Monitors []events.MonitorInfo `json:"monitors" doc:"Attached monitors"`
	Count    int                  `json:"count" example:"2" doc:"Number of monitors"`
}

type MonitorListResponse struct {
	Body MonitorListData
}

type PortListData struct {
	Ports    []string `json:"ports" example:"[\"/dev/ttyUSB0\"]" doc:"Selectable serial ports"`
	Selected string   `json:"selected" example:"/dev/ttyUSB0" doc:"Selected serial port"`
}

type PortListResponse struct {
	Body PortListData
}

type SelectionData struct {
	Monitor int    `json:"monitor" minimum:"0" example:"0" doc:"Monitor index"`
	Port    string `json:"port" example:"/dev/ttyUSB0" doc:"Serial port name"`
}

type SelectionRequest struct {
	Body SelectionData
}

type SelectionResponse struct {
	Body SelectionData
}

// Preview models
type PreviewRequest struct {
	Index int `path:"index" minimum:"0" doc:"Monitor index"`
}

type PreviewResponse struct {
	Status       int
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	CapturedAt   string `header:"X-Captured-At"`
	AverageColor string `header:"X-Average-Color"`
	Body         []byte
}
