package preview

import (
	"image"
	"time"

	"golang.org/x/image/draw"

	"github.com/smazurov/ambiled/internal/capture"
	"github.com/smazurov/ambiled/internal/strip"
)

// Mode selects what a preview renders.
type Mode string

// Preview modes.
const (
	ModeImage Mode = "image" // Downscaled frame
	ModeColor Mode = "color" // Single average color
)

const colorSampleWidth = 32

// Image is one rendered preview.
type Image struct {
	Monitor    int
	Image      *image.RGBA
	Color      strip.RGB
	CapturedAt time.Time
}

// Downscale returns src scaled to width, keeping the aspect ratio. Frames
// already narrower than width are copied unscaled.
func Downscale(src *image.RGBA, width int) *image.RGBA {
	b := src.Bounds()
	if width <= 0 || b.Dx() <= width {
		width = b.Dx()
	}
	height := max(1, b.Dy()*width/max(1, b.Dx()))

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == b.Dx() && height == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// AverageColor is the mean color of img. Alpha is ignored.
func AverageColor(img *image.RGBA) strip.RGB {
	b := img.Bounds()
	n := uint64(b.Dx()) * uint64(b.Dy())
	if n == 0 {
		return strip.RGB{}
	}
	var r, g, bl uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		row := img.Pix[off : off+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			r += uint64(row[x])
			g += uint64(row[x+1])
			bl += uint64(row[x+2])
		}
	}
	return strip.RGB{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n)}
}

func render(f capture.Frame, mode Mode, width int) Image {
	if mode == ModeColor {
		return Image{Color: AverageColor(Downscale(f.RGBA(), colorSampleWidth))}
	}
	img := Downscale(f.RGBA(), width)
	return Image{Image: img, Color: AverageColor(img)}
}
