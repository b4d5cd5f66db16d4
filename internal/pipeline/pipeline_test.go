package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/ambiled/internal/adalight"
	"github.com/smazurov/ambiled/internal/capture"
	"github.com/smazurov/ambiled/internal/strip"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
}

func (c *fakeClock) pacer(interval time.Duration) *Pacer {
	p := NewPacer(interval, quietLogger())
	p.now = c.now
	p.sleep = c.sleep
	return p
}

func TestPacerConvergesToInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := clock.pacer(16 * time.Millisecond)

	var frameStarts []time.Time
	for i := 0; i < 10; i++ {
		start := p.Start()
		frameStarts = append(frameStarts, start)
		clock.t = clock.t.Add(5 * time.Millisecond)
		elapsed, overrun := p.Pace(start)
		if elapsed != 5*time.Millisecond || overrun {
			t.Fatalf("frame %d: elapsed %s overrun %v", i, elapsed, overrun)
		}
	}

	for i := 1; i < len(frameStarts); i++ {
		if period := frameStarts[i].Sub(frameStarts[i-1]); period != 16*time.Millisecond {
			t.Errorf("period %d = %s, want 16ms", i, period)
		}
	}
}

func TestPacerNeverSleepsWhenOverBudget(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := clock.pacer(16 * time.Millisecond)

	for i := 0; i < 3; i++ {
		start := p.Start()
		clock.t = clock.t.Add(20 * time.Millisecond)
		if _, overrun := p.Pace(start); !overrun {
			t.Errorf("frame %d should be an overrun", i)
		}
	}
	if len(clock.slept) != 0 {
		t.Errorf("slept %v, want no sleep when over budget", clock.slept)
	}
}

func TestPacerCountsTimeBetweenFrames(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := clock.pacer(16 * time.Millisecond)

	var frameEnds []time.Time
	for i := 0; i < 10; i++ {
		clock.t = clock.t.Add(10 * time.Millisecond) // grabbing the next frame
		start := p.Start()
		clock.t = clock.t.Add(5 * time.Millisecond)
		if _, overrun := p.Pace(start); overrun {
			t.Fatalf("frame %d reported as overrun", i)
		}
		frameEnds = append(frameEnds, clock.now())
	}

	for i := 1; i < len(frameEnds); i++ {
		if period := frameEnds[i].Sub(frameEnds[i-1]); period != 16*time.Millisecond {
			t.Errorf("period %d = %s, want 16ms", i, period)
		}
	}
}

func TestPacerDoesNotCatchUpAfterOverrun(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := clock.pacer(16 * time.Millisecond)

	start := p.Start()
	clock.t = clock.t.Add(50 * time.Millisecond)
	if _, overrun := p.Pace(start); !overrun {
		t.Fatal("slow frame should be an overrun")
	}

	start = p.Start()
	clock.t = clock.t.Add(4 * time.Millisecond)
	if _, overrun := p.Pace(start); overrun {
		t.Fatal("frame after an overrun should get a full period")
	}
	if got := clock.slept[len(clock.slept)-1]; got != 12*time.Millisecond {
		t.Errorf("slept %s after overrun, want 12ms", got)
	}
}

func TestPacerUnpaced(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := clock.pacer(0)
	start := p.Start()
	clock.t = clock.t.Add(time.Millisecond)
	p.Pace(start)
	if len(clock.slept) != 0 {
		t.Error("zero interval must not sleep")
	}
}

func TestIntervalForFPS(t *testing.T) {
	if got := IntervalForFPS(60); got != 16666666*time.Nanosecond {
		t.Errorf("60 fps = %s", got)
	}
	if got := IntervalForFPS(0); got != 0 {
		t.Errorf("0 fps = %s", got)
	}
}

type bufferWriter struct {
	buf    bytes.Buffer
	err    error
	closed bool
}

func (w *bufferWriter) WriteFrame(edges strip.Edges) error {
	if w.err != nil {
		return w.err
	}
	w.buf.Write(adalight.Encode(edges))
	return nil
}

func (w *bufferWriter) BytesWritten() uint64 { return uint64(w.buf.Len()) }

func (w *bufferWriter) Close() error {
	w.closed = true
	return nil
}

func solidFrame(w, h int, c color.RGBA) capture.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return capture.FrameFromRGBA(img)
}

func newTestPrimary(t *testing.T, w FrameWriter, boost bool) *Primary {
	t.Helper()
	clock := &fakeClock{t: time.Unix(0, 0)}
	p, err := NewPrimary(Context{
		Monitor:  capture.Monitor{Index: 0, Name: "Test"},
		Port:     "/dev/ttyTEST",
		Topology: strip.Default,
		Writer:   w,
		Pacer:    clock.pacer(DefaultInterval),
		Boost:    func() bool { return boost },
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPrimaryWritesOneFramePerCallback(t *testing.T) {
	w := &bufferWriter{}
	p := newTestPrimary(t, w, false)

	f := solidFrame(56, 40, color.RGBA{10, 20, 30, 255})
	if err := p.OnFrame(f); err != nil {
		t.Fatal(err)
	}

	out := w.buf.Bytes()
	if len(out) != adalight.FrameLen(strip.Default.LEDCount()) {
		t.Fatalf("wrote %d bytes, want %d", len(out), adalight.FrameLen(strip.Default.LEDCount()))
	}
	if string(out[:3]) != "Ada" {
		t.Errorf("header = %q", out[:3])
	}
	for i := 3; i < len(out); i += 3 {
		if out[i] != 10 || out[i+1] != 20 || out[i+2] != 30 {
			t.Fatalf("LED %d = %v", (i-3)/3, out[i:i+3])
		}
	}
}

func TestPrimaryBoost(t *testing.T) {
	w := &bufferWriter{}
	p := newTestPrimary(t, w, true)

	if err := p.OnFrame(solidFrame(56, 40, color.RGBA{150, 100, 20, 255})); err != nil {
		t.Fatal(err)
	}
	if got := w.buf.Bytes()[3:6]; !bytes.Equal(got, []byte{190, 100, 20}) {
		t.Errorf("boosted LED = %v", got)
	}
}

func TestPrimaryTransportErrorIsReturned(t *testing.T) {
	wantErr := errors.New("device gone")
	p := newTestPrimary(t, &bufferWriter{err: wantErr}, false)

	err := p.OnFrame(solidFrame(56, 40, color.RGBA{A: 255}))
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v", err)
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Port != "/dev/ttyTEST" {
		t.Errorf("err = %v, want a TransportError for /dev/ttyTEST", err)
	}
}

func TestPrimaryCloseReleasesWriter(t *testing.T) {
	w := &bufferWriter{}
	p := newTestPrimary(t, w, false)
	if err := p.OnClosed(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
}

func TestNewPrimaryRejectsBadTopology(t *testing.T) {
	_, err := NewPrimary(Context{Writer: &bufferWriter{}, Topology: strip.Topology{Horizontal: 1, Vertical: 1}})
	if !errors.Is(err, strip.ErrInvalidTopology) {
		t.Errorf("err = %v", err)
	}
}

// slowSource takes grabCost to produce every frame, like a synchronous
// screenshot call.
type slowSource struct {
	grabCost time.Duration

	mu    sync.Mutex
	grabs []time.Time
}

func (s *slowSource) Monitors() ([]capture.Monitor, error) {
	return []capture.Monitor{{Index: 0, Name: "Slow"}}, nil
}

func (s *slowSource) Open(capture.Monitor) (capture.Grabber, error) {
	return s, nil
}

func (s *slowSource) Grab() (capture.Frame, error) {
	time.Sleep(s.grabCost)
	s.mu.Lock()
	s.grabs = append(s.grabs, time.Now())
	s.mu.Unlock()
	return solidFrame(56, 40, color.RGBA{40, 80, 120, 255}), nil
}

func (s *slowSource) Close() error { return nil }

func (s *slowSource) meanPeriod() (time.Duration, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.grabs)
	if n < 2 {
		return 0, n
	}
	return s.grabs[n-1].Sub(s.grabs[0]) / time.Duration(n-1), n
}

func TestSessionPeriodIncludesGrabTime(t *testing.T) {
	const interval = 20 * time.Millisecond
	src := &slowSource{grabCost: 8 * time.Millisecond}

	s := capture.NewSession(capture.SessionOptions{
		Source:  src,
		Monitor: capture.Monitor{Index: 0, Name: "Slow"},
		Open: func() (capture.Handler, error) {
			p, err := NewPrimary(Context{
				Port:     "/dev/ttyTEST",
				Topology: strip.Default,
				Writer:   &bufferWriter{},
				Pacer:    NewPacer(interval, quietLogger()),
				Logger:   quietLogger(),
			})
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		Logger: quietLogger(),
	})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)
	s.Stop()

	period, frames := src.meanPeriod()
	if frames < 10 {
		t.Fatalf("only %d frames captured", frames)
	}
	if period < interval*9/10 || period > interval*5/4 {
		t.Errorf("mean period %s over %d frames, want about %s", period, frames, interval)
	}
}
