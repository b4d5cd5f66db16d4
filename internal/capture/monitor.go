package capture

import (
	"fmt"
	"image"
)

const maxTitleLen = 32

// Monitor is an attached display.
type Monitor struct {
	Index  int
	ID     string
	Name   string
	Bounds image.Rectangle
}

// Title is the human-readable label, e.g. "Display 1 (2560x1440)".
// Titles longer than 32 characters are cut and end in "...".
func (m Monitor) Title() string {
	title := fmt.Sprintf("%s (%dx%d)", m.Name, m.Bounds.Dx(), m.Bounds.Dy())
	r := []rune(title)
	if len(r) > maxTitleLen {
		return string(r[:maxTitleLen]) + "..."
	}
	return title
}
