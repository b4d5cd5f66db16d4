// Package strip reduces captured frames to the colors of an edge-perimeter
// LED strip.
package strip

import (
	"errors"
	"fmt"
)

// Build-time strip layout.
const (
	HorizontalLEDs       = 28
	VerticalLEDs         = 20
	HorizontalOversample = 2
	VerticalOversample   = 2
)

// ErrInvalidTopology is returned by Topology.Validate.
var ErrInvalidTopology = errors.New("invalid strip topology")

// Topology describes the LED grid laid over the screen.
//
// The frame is split into Horizontal x Vertical cells. The top and bottom
// edges carry one LED per grid column; left and right carry one LED per
// grid row excluding the first and last rows, which belong to top and bottom.
type Topology struct {
	Horizontal int
	Vertical   int

	// HorizontalOversample is the number of cells merged into the band of
	// a left/right LED, VerticalOversample the same for top/bottom LEDs.
	HorizontalOversample int
	VerticalOversample   int
}

// Default is the layout of the strip the firmware is flashed for.
var Default = Topology{
	Horizontal:           HorizontalLEDs,
	Vertical:             VerticalLEDs,
	HorizontalOversample: HorizontalOversample,
	VerticalOversample:   VerticalOversample,
}

// Validate checks that opposite bands can never overlap.
func (t Topology) Validate() error {
	switch {
	case t.HorizontalOversample < 1 || t.VerticalOversample < 1:
		return fmt.Errorf("%w: oversample factors must be >= 1", ErrInvalidTopology)
	case t.Vertical < 3:
		return fmt.Errorf("%w: need at least 3 rows, got %d", ErrInvalidTopology, t.Vertical)
	case t.Horizontal < 2*t.HorizontalOversample:
		return fmt.Errorf("%w: %d columns < 2x horizontal oversample %d",
			ErrInvalidTopology, t.Horizontal, t.HorizontalOversample)
	case t.Vertical < 2*t.VerticalOversample:
		return fmt.Errorf("%w: %d rows < 2x vertical oversample %d",
			ErrInvalidTopology, t.Vertical, t.VerticalOversample)
	}
	return nil
}

// SideLEDs is the LED count of the left and right edges.
func (t Topology) SideLEDs() int {
	return t.Vertical - 2
}

// LEDCount is the total number of LEDs on the strip.
func (t Topology) LEDCount() int {
	return 2*t.Horizontal + 2*t.SideLEDs()
}

// FrameSize is the number of payload bytes one strip update carries.
func (t Topology) FrameSize() int {
	return 3 * t.LEDCount()
}
