// Package adalight writes strip colors to a microcontroller speaking the
// Adalight "Ada" serial protocol.
//
// A frame is the ASCII magic "Ada" followed by three bytes (R, G, B) per LED
// in strip order: bottom, right, top, left. There is no length prefix,
// checksum or terminator.
package adalight

import "github.com/smazurov/ambiled/internal/strip"

// Magic starts every frame.
const Magic = "Ada"

// FrameLen is the encoded size of a frame carrying leds colors.
func FrameLen(leds int) int {
	return len(Magic) + 3*leds
}

// AppendFrame appends the encoded frame for edges to dst. Edge order is
// taken as given; Reduce already reversed top and right.
func AppendFrame(dst []byte, edges strip.Edges) []byte {
	dst = append(dst, Magic...)
	for _, edge := range [...][]strip.RGB{edges.Bottom, edges.Right, edges.Top, edges.Left} {
		for _, c := range edge {
			dst = append(dst, c.R, c.G, c.B)
		}
	}
	return dst
}

// Encode returns the encoded frame for edges.
func Encode(edges strip.Edges) []byte {
	n := len(edges.Bottom) + len(edges.Right) + len(edges.Top) + len(edges.Left)
	return AppendFrame(make([]byte, 0, FrameLen(n)), edges)
}
