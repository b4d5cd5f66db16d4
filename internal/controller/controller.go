// Package controller owns the primary capture session: the one session
// that drives the LED strip.
//
// The session lives in an exclusive slot. Stopping takes it out of the slot;
// starting puts a new one in once the previous one fully stopped. While a
// session occupies the slot the capture-active flag is set and previews are
// suspended.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/ambiled/internal/capture"
	"github.com/smazurov/ambiled/internal/events"
	"github.com/smazurov/ambiled/internal/metrics"
	"github.com/smazurov/ambiled/internal/pipeline"
	"github.com/smazurov/ambiled/internal/strip"
)

// PortOpener opens the named serial port for strip frames.
type PortOpener func(port string) (pipeline.FrameWriter, error)

// Suspender stops every preview capture.
type Suspender interface {
	StopAll()
}

// Options configures a Controller.
type Options struct {
	Source   capture.Source
	OpenPort PortOpener
	Topology strip.Topology
	Interval time.Duration

	// Previews is suspended before the primary session acquires a monitor (optional).
	Previews Suspender
	// EventBus receives state and selection changes (optional).
	EventBus *events.Bus

	Monitor         int
	Port            string
	SaturationBoost bool

	Logger *slog.Logger

	// CaptureLogger is handed to sessions and their pipeline; defaults to Logger.
	CaptureLogger *slog.Logger
}

// Status is a snapshot of the primary capture.
type Status struct {
	State     capture.State
	Monitor   int
	Port      string
	Boost     bool
	StartedAt time.Time
	Frames    uint64
	LastError error
}

// Controller starts and stops the primary session.
type Controller struct {
	opts   Options
	logger *slog.Logger

	// mu serializes Start, Stop and Toggle.
	mu      sync.Mutex
	session atomic.Pointer[capture.Session]
	active  atomic.Bool
	boost   atomic.Bool

	selMu   sync.RWMutex
	monitor int
	port    string
	lastErr error
}

// New creates an idle controller.
func New(opts Options) *Controller {
	if opts.Source == nil || opts.OpenPort == nil {
		panic("controller Options with Source and OpenPort is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CaptureLogger == nil {
		opts.CaptureLogger = opts.Logger
	}
	if opts.Topology == (strip.Topology{}) {
		opts.Topology = strip.Default
	}
	c := &Controller{
		opts:    opts,
		logger:  opts.Logger,
		monitor: opts.Monitor,
		port:    opts.Port,
	}
	c.boost.Store(opts.SaturationBoost)
	return c
}

// Toggle stops a running session or starts a new one with the current
// selection. It returns the state after the call.
func (c *Controller) Toggle(ctx context.Context) (capture.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.session.Load(); s != nil && s.State().Active() {
		c.stopLocked()
		return capture.StateStopped, nil
	}
	if err := c.startLocked(ctx); err != nil {
		return capture.StateIdle, err
	}
	return capture.StateRunning, nil
}

// Start begins capturing with the current selection. A second Start while a
// session is running creates nothing and returns an ALREADY_RUNNING error.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.session.Load(); s != nil && s.State().Active() {
		return NewError(ErrCodeAlreadyRunning, "capture is already running", nil)
	}
	return c.startLocked(ctx)
}

// Stop ends the running session and waits until the monitor and serial port
// are released. Stopping when idle is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	s := c.session.Swap(nil)
	if s == nil {
		return
	}
	c.logger.Info("Stopping capture", "monitor", s.Monitor().Index)
	s.Stop()
	c.setActive(false)
}

func (c *Controller) startLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// A session that ended on its own may still be finishing its release.
	if prev := c.session.Load(); prev != nil {
		select {
		case <-prev.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		c.session.CompareAndSwap(prev, nil)
	}

	index, port := c.Selection()
	if port == "" {
		return NewError(ErrCodeInvalidSelection, "select a serial port first", ErrNoPort)
	}
	monitor, err := c.findMonitor(index)
	if err != nil {
		return err
	}

	c.setActive(true)
	if c.opts.Previews != nil {
		c.opts.Previews.StopAll()
	}

	var s *capture.Session
	s = capture.NewSession(capture.SessionOptions{
		Source:  c.opts.Source,
		Monitor: monitor,
		Open: func() (capture.Handler, error) {
			w, err := c.opts.OpenPort(port)
			if err != nil {
				return nil, err
			}
			h, err := pipeline.NewPrimary(pipeline.Context{
				Monitor:  monitor,
				Port:     port,
				Topology: c.opts.Topology,
				Writer:   w,
				Pacer:    pipeline.NewPacer(c.opts.Interval, c.opts.CaptureLogger),
				Boost:    c.boost.Load,
				Logger:   c.opts.CaptureLogger,
			})
			if err != nil {
				w.Close()
				return nil, err
			}
			return h, nil
		},
		OnStateChange: func(oldState, newState capture.State, err error) {
			c.onStateChange(s, monitor.Index, port, oldState, newState, err)
		},
		Logger: c.opts.CaptureLogger,
	})

	c.session.Store(s)
	if err := s.Start(); err != nil {
		c.session.CompareAndSwap(s, nil)
		c.setActive(false)
		return NewError(ErrCodeAcquisitionFailed, fmt.Sprintf("cannot start capture of monitor %d on %s", monitor.Index, port), err)
	}

	c.logger.Info("Capture started", "monitor", monitor.Index, "title", monitor.Title(), "port", port)
	return nil
}

func (c *Controller) findMonitor(index int) (capture.Monitor, error) {
	monitors, err := c.opts.Source.Monitors()
	if err != nil {
		return capture.Monitor{}, NewError(ErrCodeAcquisitionFailed, "cannot enumerate monitors", err)
	}
	for _, m := range monitors {
		if m.Index == index {
			return m, nil
		}
	}
	return capture.Monitor{}, NewError(ErrCodeInvalidSelection, fmt.Sprintf("monitor %d", index), ErrNoMonitor)
}

func (c *Controller) onStateChange(s *capture.Session, monitor int, port string, _, newState capture.State, err error) {
	if newState == capture.StateStopped {
		if err != nil {
			err = sessionError(err)
			c.logger.Error("Capture failed", "monitor", monitor, "port", port, "error", err)
		}
		c.selMu.Lock()
		c.lastErr = err
		c.selMu.Unlock()

		// Sessions that end on their own clear the slot here; Stop already
		// took its session out of the slot.
		if c.session.CompareAndSwap(s, nil) {
			c.setActive(false)
		}
	}
	if (newState == capture.StateIdle && err != nil) || newState == capture.StateRunning {
		c.selMu.Lock()
		c.lastErr = err
		c.selMu.Unlock()
	}

	if c.opts.EventBus == nil {
		return
	}
	ev := events.CaptureStateChangedEvent{
		State:     string(newState),
		Monitor:   monitor,
		Port:      port,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	c.opts.EventBus.Publish(ev)
}

// sessionError classifies why a running session ended: serial link failures
// are transport errors, anything from the frame source is a capture error.
func sessionError(err error) *Error {
	var te *pipeline.TransportError
	if errors.As(err, &te) {
		return NewError(ErrCodeTransportFailed, "serial link failed", err)
	}
	return NewError(ErrCodeCaptureFailed, "frame capture failed", err)
}

func (c *Controller) setActive(active bool) {
	c.active.Store(active)
	metrics.SetCaptureActive(active)
}

// CaptureActive reports whether the primary session owns the screens.
func (c *Controller) CaptureActive() bool {
	return c.active.Load()
}

// State returns the primary session state; idle when there is none.
func (c *Controller) State() capture.State {
	if s := c.session.Load(); s != nil {
		return s.State()
	}
	return capture.StateIdle
}

// Status returns a snapshot of the primary capture.
func (c *Controller) Status() Status {
	index, port := c.Selection()
	c.selMu.RLock()
	st := Status{
		State:     capture.StateIdle,
		Monitor:   index,
		Port:      port,
		Boost:     c.boost.Load(),
		LastError: c.lastErr,
	}
	c.selMu.RUnlock()

	if s := c.session.Load(); s != nil {
		st.State = s.State()
		st.Monitor = s.Monitor().Index
		st.StartedAt = s.StartedAt()
		st.Frames = s.Frames()
	}
	return st
}

// Selection returns the monitor index and port used by the next start.
func (c *Controller) Selection() (monitor int, port string) {
	c.selMu.RLock()
	defer c.selMu.RUnlock()
	return c.monitor, c.port
}

// Select changes the monitor and port used by the next start. A running
// session keeps its resources.
func (c *Controller) Select(monitor int, port string) {
	c.selMu.Lock()
	changed := c.monitor != monitor || c.port != port
	c.monitor = monitor
	c.port = port
	c.selMu.Unlock()

	if !changed {
		return
	}
	c.logger.Info("Selection changed", "monitor", monitor, "port", port)
	if c.opts.EventBus != nil {
		c.opts.EventBus.Publish(events.SelectionChangedEvent{
			Monitor:   monitor,
			Port:      port,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

// SelectedPort returns the selected serial port.
func (c *Controller) SelectedPort() string {
	_, port := c.Selection()
	return port
}

// SelectPort changes only the selected serial port.
func (c *Controller) SelectPort(port string) {
	monitor, _ := c.Selection()
	c.Select(monitor, port)
}

// SetBoost switches the saturation boost; a running session picks it up on
// the next frame.
func (c *Controller) SetBoost(enabled bool) {
	if c.boost.Swap(enabled) != enabled {
		c.logger.Info("Saturation boost changed", "enabled", enabled)
	}
}

// Done returns a channel closed when the current session stopped. With no
// session the channel is already closed.
func (c *Controller) Done() <-chan struct{} {
	if s := c.session.Load(); s != nil {
		return s.Done()
	}
	return closedCh
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
