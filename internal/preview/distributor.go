// Package preview runs low-rate captures of every monitor for display and
// hands the latest rendering of each to a pull-based consumer.
package preview

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/smazurov/ambiled/internal/capture"
	"github.com/smazurov/ambiled/internal/metrics"
)

// Options configures a Distributor.
type Options struct {
	Source capture.Source

	Mode     Mode
	Width    int
	Interval time.Duration

	// Active reports whether the primary capture owns the screens. While it
	// does, Reconcile keeps every preview stopped.
	Active func() bool

	Logger *slog.Logger
}

type entry struct {
	monitor capture.Monitor
	session *capture.Session
	slot    *Slot[Image]
}

func (e *entry) finished() bool {
	select {
	case <-e.session.Done():
		return true
	default:
		return e.session.State() == capture.StateIdle
	}
}

// Distributor keeps one preview session per monitor.
type Distributor struct {
	opts   Options
	logger *slog.Logger

	// mu serializes Reconcile and StopAll and is held while sessions stop.
	mu      sync.Mutex
	entries map[int]*entry

	// slotsMu guards slots only; it is never held across a session call so
	// Poll never waits for a capture.
	slotsMu sync.RWMutex
	slots   map[int]*Slot[Image]
}

// NewDistributor creates a distributor with no sessions.
func NewDistributor(opts Options) *Distributor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Mode == "" {
		opts.Mode = ModeImage
	}
	if opts.Active == nil {
		opts.Active = func() bool { return false }
	}
	return &Distributor{
		opts:    opts,
		logger:  opts.Logger,
		entries: make(map[int]*entry),
		slots:   make(map[int]*Slot[Image]),
	}
}

// Reconcile brings the running previews in line with monitors: sessions of
// vanished or changed monitors stop, new monitors get a session, finished
// sessions restart, and unchanged running sessions are left alone. While
// the primary capture is active every preview is stopped instead.
func (d *Distributor) Reconcile(monitors []capture.Monitor) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.opts.Active() {
		d.stopAllLocked()
		return
	}

	want := make(map[int]capture.Monitor, len(monitors))
	for _, m := range monitors {
		want[m.Index] = m
	}

	for index, e := range d.entries {
		if m, ok := want[index]; !ok || m != e.monitor {
			d.remove(index, e)
		}
	}

	for _, m := range monitors {
		e, ok := d.entries[m.Index]
		switch {
		case !ok:
			d.start(m, &Slot[Image]{})
		case e.finished():
			d.logger.Debug("Restarting finished preview", "monitor", m.Index)
			e.session.Stop()
			d.start(m, e.slot)
		}
	}
}

func (d *Distributor) start(m capture.Monitor, slot *Slot[Image]) {
	h := &handler{
		monitor:  m.Index,
		slot:     slot,
		mode:     d.opts.Mode,
		width:    d.opts.Width,
		interval: d.opts.Interval,
		sleep:    time.Sleep,
		logger:   d.logger,
	}
	s := capture.NewSession(capture.SessionOptions{
		Source:  d.opts.Source,
		Monitor: m,
		Open:    func() (capture.Handler, error) { return h, nil },
		Logger:  d.logger,
	})
	// A failed start stays registered so the next Reconcile retries it.
	d.entries[m.Index] = &entry{monitor: m, session: s, slot: slot}
	d.slotsMu.Lock()
	d.slots[m.Index] = slot
	d.slotsMu.Unlock()
	if err := s.Start(); err != nil {
		d.logger.Warn("Failed to start preview", "monitor", m.Index, "error", err)
		return
	}
	d.logger.Info("Preview started", "monitor", m.Index, "title", m.Title())
}

// remove withdraws the slot from Poll, destroys it and stops the session.
// Caller holds mu.
func (d *Distributor) remove(index int, e *entry) {
	d.slotsMu.Lock()
	if d.slots[index] == e.slot {
		delete(d.slots, index)
	}
	d.slotsMu.Unlock()
	e.slot.Close()

	e.session.Stop()
	delete(d.entries, index)
	metrics.DeletePreview(index)
	d.logger.Info("Preview stopped", "monitor", index)
}

// StopAll stops every preview and destroys their slots. It returns once all
// capture resources are released.
func (d *Distributor) StopAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopAllLocked()
}

func (d *Distributor) stopAllLocked() {
	for index, e := range d.entries {
		d.remove(index, e)
	}
}

// Poll takes the pending preview of monitor index without blocking, even
// while previews are being reconciled or stopped.
func (d *Distributor) Poll(index int) (Image, bool) {
	d.slotsMu.RLock()
	slot, ok := d.slots[index]
	d.slotsMu.RUnlock()
	if !ok {
		return Image{}, false
	}
	return slot.TryTake()
}

// Running returns the monitor indexes with a running preview, ascending.
func (d *Distributor) Running() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	indexes := make([]int, 0, len(d.entries))
	for index, e := range d.entries {
		if e.session.State() == capture.StateRunning {
			indexes = append(indexes, index)
		}
	}
	sort.Ints(indexes)
	return indexes
}

type handler struct {
	monitor  int
	slot     *Slot[Image]
	mode     Mode
	width    int
	interval time.Duration
	sleep    func(time.Duration)
	logger   *slog.Logger
}

func (h *handler) OnFrame(f capture.Frame) error {
	img := render(f, h.mode, h.width)
	img.Monitor = h.monitor
	img.CapturedAt = time.Now()

	metrics.RecordPreview(h.monitor, h.slot.Publish(img))

	if h.interval > 0 {
		h.sleep(h.interval)
	}
	return nil
}

func (h *handler) OnClosed() error {
	h.logger.Debug("Preview source closed", "monitor", h.monitor)
	return nil
}
