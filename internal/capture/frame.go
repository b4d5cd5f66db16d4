package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/smazurov/ambiled/internal/strip"
)

// ErrMalformedFrame is returned by Frame.Validate. It ends the session.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one RGBA pixel buffer. Rows are Stride bytes apart; Stride may
// exceed Width*4. The buffer belongs to the source and is only valid for
// the duration of the OnFrame call.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
}

// FrameFromRGBA wraps img without copying.
func FrameFromRGBA(img *image.RGBA) Frame {
	b := img.Bounds()
	return Frame{Pix: img.Pix, Width: b.Dx(), Height: b.Dy(), Stride: img.Stride}
}

// Validate checks that every addressed pixel lies inside Pix.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrMalformedFrame, f.Width, f.Height)
	}
	if f.Stride < f.Width*4 {
		return fmt.Errorf("%w: stride %d < %d", ErrMalformedFrame, f.Stride, f.Width*4)
	}
	if need := (f.Height-1)*f.Stride + f.Width*4; len(f.Pix) < need {
		return fmt.Errorf("%w: buffer %d bytes, need %d", ErrMalformedFrame, len(f.Pix), need)
	}
	return nil
}

// StripImage exposes the frame to strip.Reduce.
func (f Frame) StripImage() strip.Image {
	return strip.Image{Pix: f.Pix, Width: f.Width, Height: f.Height, Stride: f.Stride}
}

// RGBA views the frame as an image without copying.
func (f Frame) RGBA() *image.RGBA {
	return &image.RGBA{Pix: f.Pix, Stride: f.Stride, Rect: image.Rect(0, 0, f.Width, f.Height)}
}
