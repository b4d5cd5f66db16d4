package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// ScreenSource captures attached displays through the platform screenshot API.
type ScreenSource struct {
	numDisplays func() int
	bounds      func(i int) image.Rectangle
	capture     func(r image.Rectangle) (*image.RGBA, error)
}

// NewScreenSource returns a Source backed by kbinani/screenshot.
func NewScreenSource() *ScreenSource {
	return &ScreenSource{
		numDisplays: screenshot.NumActiveDisplays,
		bounds:      screenshot.GetDisplayBounds,
		capture:     screenshot.CaptureRect,
	}
}

// Monitors lists active displays in platform order.
func (s *ScreenSource) Monitors() ([]Monitor, error) {
	n := s.numDisplays()
	monitors := make([]Monitor, 0, n)
	for i := 0; i < n; i++ {
		b := s.bounds(i)
		monitors = append(monitors, Monitor{
			Index:  i,
			ID:     fmt.Sprintf("display%d@%d,%d", i, b.Min.X, b.Min.Y),
			Name:   fmt.Sprintf("Display %d", i+1),
			Bounds: b,
		})
	}
	return monitors, nil
}

// Open checks that m is still attached with the same geometry.
func (s *ScreenSource) Open(m Monitor) (Grabber, error) {
	if !s.attached(m) {
		return nil, fmt.Errorf("monitor %d (%s): %w", m.Index, m.Title(), ErrSourceClosed)
	}
	return &screenGrabber{src: s, monitor: m}, nil
}

func (s *ScreenSource) attached(m Monitor) bool {
	return m.Index >= 0 && m.Index < s.numDisplays() && s.bounds(m.Index) == m.Bounds
}

type screenGrabber struct {
	src     *ScreenSource
	monitor Monitor
}

// Grab treats a display whose index or geometry changed as closed.
func (g *screenGrabber) Grab() (Frame, error) {
	if !g.src.attached(g.monitor) {
		return Frame{}, ErrSourceClosed
	}
	img, err := g.src.capture(g.monitor.Bounds)
	if err != nil {
		return Frame{}, fmt.Errorf("capture %s: %w", g.monitor.Title(), err)
	}
	return FrameFromRGBA(img), nil
}

func (g *screenGrabber) Close() error {
	return nil
}
