package watch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/ambiled/internal/capture"
	"github.com/smazurov/ambiled/internal/events"
)

// DefaultMonitorsInterval is the monitor polling interval.
const DefaultMonitorsInterval = 500 * time.Millisecond

// Reconciler brings preview captures in line with the attached monitors.
type Reconciler interface {
	Reconcile(monitors []capture.Monitor)
}

// MonitorWatcherOptions configures a MonitorWatcher.
type MonitorWatcherOptions struct {
	Source   capture.Source
	Previews Reconciler
	Interval time.Duration
	EventBus *events.Bus
	Logger   *slog.Logger
}

// MonitorWatcher tracks the attached monitors and drives preview
// reconciliation.
type MonitorWatcher struct {
	opts   MonitorWatcherOptions
	logger *slog.Logger

	mu       sync.RWMutex
	monitors []capture.Monitor
	seen     bool
}

// NewMonitorWatcher creates a monitor watcher.
func NewMonitorWatcher(opts MonitorWatcherOptions) *MonitorWatcher {
	if opts.Source == nil {
		panic("MonitorWatcherOptions with Source is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultMonitorsInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &MonitorWatcher{opts: opts, logger: opts.Logger}
}

// Name identifies the watcher in events and metrics.
func (w *MonitorWatcher) Name() string { return "monitors" }

// Monitors returns the last enumerated monitors.
func (w *MonitorWatcher) Monitors() []capture.Monitor {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.monitors)
}

// Poll enumerates the monitors once, publishes the list if it changed, and
// reconciles previews. Reconciling on every poll restarts previews that
// ended and resumes them once the primary capture stops.
func (w *MonitorWatcher) Poll() error {
	monitors, err := w.opts.Source.Monitors()
	if err != nil {
		return fmt.Errorf("enumerate monitors: %w", err)
	}

	w.mu.Lock()
	changed := !w.seen || !slices.Equal(monitors, w.monitors)
	w.monitors = monitors
	w.seen = true
	w.mu.Unlock()

	if changed {
		w.logger.Info("Monitors changed", "count", len(monitors))
		if w.opts.EventBus != nil {
			w.opts.EventBus.Publish(events.MonitorsChangedEvent{
				Monitors:  MonitorInfos(monitors),
				Timestamp: time.Now().Format(time.RFC3339),
			})
		}
	}

	if w.opts.Previews != nil {
		w.opts.Previews.Reconcile(monitors)
	}
	return nil
}

// Run polls until ctx is canceled or enumeration fails.
func (w *MonitorWatcher) Run(ctx context.Context) error {
	return poll(ctx, w.opts.Interval, w.Poll)
}

// MonitorInfos converts monitors to their event form.
func MonitorInfos(monitors []capture.Monitor) []events.MonitorInfo {
	infos := make([]events.MonitorInfo, 0, len(monitors))
	for _, m := range monitors {
		infos = append(infos, events.MonitorInfo{
			Index:  m.Index,
			Title:  m.Title(),
			X:      m.Bounds.Min.X,
			Y:      m.Bounds.Min.Y,
			Width:  m.Bounds.Dx(),
			Height: m.Bounds.Dy(),
		})
	}
	return infos
}
