package strip

import (
	"runtime"
	"sync"
)

// RGB is one LED color.
type RGB struct {
	R, G, B uint8
}

// Edges holds the strip colors per screen edge, already in wire order:
// bottom left-to-right, right bottom-to-top, top right-to-left, left
// top-to-bottom.
type Edges struct {
	Bottom []RGB
	Right  []RGB
	Top    []RGB
	Left   []RGB
}

// Image is the pixel layout Reduce reads: RGBA bytes, row-major, Stride bytes
// per row. *image.RGBA and capture.Frame both satisfy it.
type Image struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
}

// Options tunes a reduction.
type Options struct {
	// SaturationBoost lifts the dominant channel of mid-bright colors.
	SaturationBoost bool
	// Workers bounds the parallel fan-out; zero means GOMAXPROCS.
	Workers int
}

type rect struct {
	x, y, w, h int
}

// Reduce averages the bands along the frame border into strip colors.
//
// The grid cell is Width/Horizontal by Height/Vertical; the remainder at the
// right and bottom is ignored. Top and bottom bands are one cell wide and
// VerticalOversample cells deep; left and right bands are HorizontalOversample
// cells deep and one cell tall, covering grid rows 1..Vertical-2. The
// returned Top and Right slices are reversed.
//
// The topology must be valid. A frame smaller than the grid yields black.
func Reduce(img Image, t Topology, opts Options) Edges {
	cellW := img.Width / t.Horizontal
	cellH := img.Height / t.Vertical

	bandH := cellH * t.VerticalOversample
	bandW := cellW * t.HorizontalOversample
	bottomY := t.Vertical*cellH - bandH
	rightX := t.Horizontal*cellW - bandW

	sides := t.SideLEDs()
	rects := make([]rect, 0, t.LEDCount())
	for i := 0; i < t.Horizontal; i++ {
		rects = append(rects, rect{i * cellW, 0, cellW, bandH})
	}
	for i := 0; i < t.Horizontal; i++ {
		rects = append(rects, rect{i * cellW, bottomY, cellW, bandH})
	}
	for r := 1; r <= sides; r++ {
		rects = append(rects, rect{0, r * cellH, bandW, cellH})
	}
	for r := 1; r <= sides; r++ {
		rects = append(rects, rect{rightX, r * cellH, bandW, cellH})
	}

	colors := make([]RGB, len(rects))
	fanOut(len(rects), opts.Workers, func(i int) {
		c := mean(img, rects[i])
		if opts.SaturationBoost {
			c = Boost(c)
		}
		colors[i] = c
	})

	h := t.Horizontal
	edges := Edges{
		Top:    colors[:h],
		Bottom: colors[h : 2*h],
		Left:   colors[2*h : 2*h+sides],
		Right:  colors[2*h+sides:],
	}
	reverse(edges.Top)
	reverse(edges.Right)
	return edges
}

// fanOut runs fn for 0..n-1 across at most workers goroutines and returns
// when all calls finished.
func fanOut(n, workers int, fn func(i int)) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}()
	}
	wg.Wait()
}

// mean is the floor of the unweighted per-channel mean over r. Alpha is ignored.
func mean(img Image, r rect) RGB {
	n := uint64(r.w) * uint64(r.h)
	if n == 0 {
		return RGB{}
	}

	var sr, sg, sb uint64
	for y := r.y; y < r.y+r.h; y++ {
		row := img.Pix[y*img.Stride+r.x*4 : y*img.Stride+(r.x+r.w)*4]
		for x := 0; x < len(row); x += 4 {
			sr += uint64(row[x])
			sg += uint64(row[x+1])
			sb += uint64(row[x+2])
		}
	}
	return RGB{uint8(sr / n), uint8(sg / n), uint8(sb / n)}
}

func reverse(s []RGB) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
