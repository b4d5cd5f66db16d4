// Package watch polls the attached hardware and reports changes.
//
// Each watcher checks immediately, then on a fixed interval, and publishes
// an event only when the enumeration differs from the previous one. An
// enumeration error ends the watcher; Supervise reports it without taking
// the rest of the process down.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/ambiled/internal/events"
)

// DefaultPortsInterval is the serial port polling interval.
const DefaultPortsInterval = time.Second

// PortLister enumerates selectable serial ports.
type PortLister func() ([]string, error)

// PortSelection holds the selected serial port.
type PortSelection interface {
	SelectedPort() string
	SelectPort(port string)
}

// PortWatcherOptions configures a PortWatcher.
type PortWatcherOptions struct {
	List      PortLister
	Selection PortSelection
	Interval  time.Duration
	EventBus  *events.Bus
	Logger    *slog.Logger
}

// PortWatcher tracks the serial ports and keeps the selection valid.
type PortWatcher struct {
	opts   PortWatcherOptions
	logger *slog.Logger

	mu    sync.RWMutex
	ports []string
	seen  bool
}

// NewPortWatcher creates a port watcher.
func NewPortWatcher(opts PortWatcherOptions) *PortWatcher {
	if opts.List == nil || opts.Selection == nil {
		panic("PortWatcherOptions with List and Selection is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPortsInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &PortWatcher{opts: opts, logger: opts.Logger}
}

// Name identifies the watcher in events and metrics.
func (w *PortWatcher) Name() string { return "ports" }

// Ports returns the last enumerated ports.
func (w *PortWatcher) Ports() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.ports)
}

// Poll enumerates the ports once. When the list changed, a selection that is
// no longer present falls back to the first port, or to none.
func (w *PortWatcher) Poll() error {
	ports, err := w.opts.List()
	if err != nil {
		return fmt.Errorf("enumerate serial ports: %w", err)
	}

	w.mu.Lock()
	changed := !w.seen || !slices.Equal(ports, w.ports)
	w.ports = ports
	w.seen = true
	w.mu.Unlock()

	if !changed {
		return nil
	}

	selected := w.opts.Selection.SelectedPort()
	if !slices.Contains(ports, selected) {
		fallback := ""
		if len(ports) > 0 {
			fallback = ports[0]
		}
		if fallback != selected {
			w.logger.Info("Selected port unavailable", "port", selected, "fallback", fallback)
			w.opts.Selection.SelectPort(fallback)
		}
		selected = fallback
	}

	w.logger.Debug("Serial ports changed", "ports", ports, "selected", selected)
	if w.opts.EventBus != nil {
		w.opts.EventBus.Publish(events.PortsChangedEvent{
			Ports:     slices.Clone(ports),
			Selected:  selected,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return nil
}

// Run polls until ctx is canceled or enumeration fails.
func (w *PortWatcher) Run(ctx context.Context) error {
	return poll(ctx, w.opts.Interval, w.Poll)
}

func poll(ctx context.Context, interval time.Duration, check func() error) error {
	if err := check(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := check(); err != nil {
				return err
			}
		}
	}
}
