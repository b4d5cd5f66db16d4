package preview

import (
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/ambiled/internal/capture"
	"github.com/smazurov/ambiled/internal/strip"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource serves solid frames. Monitors listed in gone report closure.
type fakeSource struct {
	mu     sync.Mutex
	opened map[int]int
	open   map[int]int
	gone   map[int]bool
	delay  time.Duration
}

func newFakeSource() *fakeSource {
	return &fakeSource{opened: map[int]int{}, open: map[int]int{}, gone: map[int]bool{}}
}

func (s *fakeSource) Monitors() ([]capture.Monitor, error) { return nil, nil }

func (s *fakeSource) Open(m capture.Monitor) (capture.Grabber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened[m.Index]++
	s.open[m.Index]++
	return &fakeGrabber{src: s, index: m.Index}, nil
}

func (s *fakeSource) setGone(index int, gone bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gone[index] = gone
}

func (s *fakeSource) counts(index int) (opened, open int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened[index], s.open[index]
}

type fakeGrabber struct {
	src   *fakeSource
	index int
}

func (g *fakeGrabber) Grab() (capture.Frame, error) {
	if g.src.delay > 0 {
		time.Sleep(g.src.delay)
	}
	g.src.mu.Lock()
	gone := g.src.gone[g.index]
	g.src.mu.Unlock()
	if gone {
		return capture.Frame{}, capture.ErrSourceClosed
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = uint8(g.index*50+10), 255
	}
	return capture.FrameFromRGBA(img), nil
}

func (g *fakeGrabber) Close() error {
	g.src.mu.Lock()
	defer g.src.mu.Unlock()
	g.src.open[g.index]--
	return nil
}

func monitor(i int) capture.Monitor {
	return capture.Monitor{Index: i, Name: "Fake", Bounds: image.Rect(0, 0, 64, 36)}
}

func newTestDistributor(src capture.Source, active *atomic.Bool) *Distributor {
	return NewDistributor(Options{
		Source:   src,
		Mode:     ModeImage,
		Width:    16,
		Interval: time.Millisecond,
		Active:   active.Load,
		Logger:   quietLogger(),
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSlotLatestWins(t *testing.T) {
	var s Slot[int]

	if _, ok := s.TryTake(); ok {
		t.Fatal("empty slot returned a value")
	}
	if s.Publish(1) {
		t.Error("first publish should not drop")
	}
	if !s.Publish(2) {
		t.Error("second publish should report a drop")
	}

	v, ok := s.TryTake()
	if !ok || v != 2 {
		t.Errorf("TryTake = %d, %v; want 2, true", v, ok)
	}
	if _, ok := s.TryTake(); ok {
		t.Error("value observed twice; slot must not queue")
	}
	if s.Dropped() != 1 {
		t.Errorf("Dropped = %d", s.Dropped())
	}
}

func TestSlotClosed(t *testing.T) {
	var s Slot[string]
	s.Publish("a")
	s.Close()
	if _, ok := s.TryTake(); ok {
		t.Error("closed slot kept its value")
	}
	s.Publish("b")
	if _, ok := s.TryTake(); ok {
		t.Error("closed slot accepted a publish")
	}
}

func TestSlotConcurrent(t *testing.T) {
	var s Slot[int]
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 1000; i++ {
			s.Publish(i)
		}
	}()
	last := 0
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if v, ok := s.TryTake(); ok {
				if v <= last {
					t.Errorf("value %d after %d; publishes must not reorder", v, last)
				}
				last = v
			}
		}
	}()
	wg.Wait()
}

func TestDownscaleKeepsAspect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1920, 1080))
	dst := Downscale(src, 320)
	if dst.Bounds().Dx() != 320 || dst.Bounds().Dy() != 180 {
		t.Errorf("bounds = %v", dst.Bounds())
	}

	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	if got := Downscale(small, 320).Bounds(); got.Dx() != 100 || got.Dy() != 50 {
		t.Errorf("narrow frame bounds = %v", got)
	}
}

func TestAverageColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{100, 0, 50, 255})
	img.SetRGBA(1, 0, color.RGBA{201, 10, 50, 255})
	if got := AverageColor(img); got != (strip.RGB{150, 5, 50}) {
		t.Errorf("AverageColor = %v", got)
	}
}

func TestReconcileStartsAndPublishes(t *testing.T) {
	src := newFakeSource()
	var active atomic.Bool
	d := newTestDistributor(src, &active)
	defer d.StopAll()

	d.Reconcile([]capture.Monitor{monitor(0), monitor(1)})

	if got := d.Running(); len(got) != 2 {
		t.Fatalf("Running = %v", got)
	}

	var img Image
	waitFor(t, func() bool {
		var ok bool
		img, ok = d.Poll(1)
		return ok
	})
	if img.Monitor != 1 {
		t.Errorf("preview monitor = %d", img.Monitor)
	}
	if img.Image == nil || img.Image.Bounds().Dx() != 16 {
		t.Fatalf("preview image = %v", img.Image)
	}
	if img.Color.R != 60 {
		t.Errorf("preview color = %v", img.Color)
	}
	if _, ok := d.Poll(7); ok {
		t.Error("unknown monitor returned a preview")
	}
}

func TestReconcileLeavesUnchangedSessions(t *testing.T) {
	src := newFakeSource()
	var active atomic.Bool
	d := newTestDistributor(src, &active)
	defer d.StopAll()

	d.Reconcile([]capture.Monitor{monitor(0), monitor(1)})
	d.Reconcile([]capture.Monitor{monitor(0), monitor(2)})

	if opened, _ := src.counts(0); opened != 1 {
		t.Errorf("monitor 0 opened %d times, unchanged session must keep running", opened)
	}
	if _, open := src.counts(1); open != 0 {
		t.Error("vanished monitor still captured")
	}
	if opened, _ := src.counts(2); opened != 1 {
		t.Error("new monitor not started")
	}
	if _, ok := d.Poll(1); ok {
		t.Error("slot of vanished monitor still readable")
	}
}

func TestReconcileRestartsChangedMonitor(t *testing.T) {
	src := newFakeSource()
	var active atomic.Bool
	d := newTestDistributor(src, &active)
	defer d.StopAll()

	d.Reconcile([]capture.Monitor{monitor(0)})
	resized := monitor(0)
	resized.Bounds = image.Rect(0, 0, 128, 72)
	d.Reconcile([]capture.Monitor{resized})

	if opened, open := src.counts(0); opened != 2 || open != 1 {
		t.Errorf("opened %d, open %d; changed monitor should be recaptured once", opened, open)
	}
}

func TestReconcileRestartsFinished(t *testing.T) {
	src := newFakeSource()
	var active atomic.Bool
	d := newTestDistributor(src, &active)
	defer d.StopAll()

	src.setGone(0, true)
	d.Reconcile([]capture.Monitor{monitor(0)})
	waitFor(t, func() bool { return len(d.Running()) == 0 })

	src.setGone(0, false)
	d.Reconcile([]capture.Monitor{monitor(0)})
	if got := d.Running(); len(got) != 1 {
		t.Errorf("Running = %v, finished preview should restart", got)
	}
}

func TestPreviewsSuspendedWhileActive(t *testing.T) {
	src := newFakeSource()
	var active atomic.Bool
	d := newTestDistributor(src, &active)
	defer d.StopAll()

	d.Reconcile([]capture.Monitor{monitor(0)})
	active.Store(true)
	d.Reconcile([]capture.Monitor{monitor(0)})

	if _, open := src.counts(0); open != 0 {
		t.Error("preview must release its capture while the primary is active")
	}
	if _, ok := d.Poll(0); ok {
		t.Error("suspended preview returned a frame")
	}

	active.Store(false)
	d.Reconcile([]capture.Monitor{monitor(0)})
	if got := d.Running(); len(got) != 1 {
		t.Errorf("preview not resumed, Running = %v", got)
	}
}

func TestStopAllReleases(t *testing.T) {
	src := newFakeSource()
	var active atomic.Bool
	d := newTestDistributor(src, &active)

	d.Reconcile([]capture.Monitor{monitor(0), monitor(1)})
	d.StopAll()

	for _, i := range []int{0, 1} {
		if _, open := src.counts(i); open != 0 {
			t.Errorf("monitor %d still open after StopAll", i)
		}
	}
	if got := d.Running(); len(got) != 0 {
		t.Errorf("Running = %v", got)
	}
}

func TestPollDoesNotWaitForStopAll(t *testing.T) {
	src := newFakeSource()
	src.delay = 200 * time.Millisecond
	var active atomic.Bool
	d := newTestDistributor(src, &active)

	d.Reconcile([]capture.Monitor{monitor(0), monitor(1)})
	waitFor(t, func() bool {
		_, ok := d.Poll(0)
		return ok
	})

	stopped := make(chan struct{})
	go func() {
		d.StopAll()
		close(stopped)
	}()
	// Let StopAll block on the grabs in flight.
	time.Sleep(20 * time.Millisecond)

	begin := time.Now()
	d.Poll(0)
	d.Poll(1)
	if took := time.Since(begin); took > 50*time.Millisecond {
		t.Errorf("Poll took %s while previews were stopping", took)
	}

	<-stopped
	if _, ok := d.Poll(0); ok {
		t.Error("preview available after StopAll")
	}
	for i := 0; i < 2; i++ {
		if _, open := src.counts(i); open != 0 {
			t.Errorf("monitor %d still open", i)
		}
	}
}
