// Package indicator mirrors the capture state on a board status LED, for
// single-board computers that drive the strip headless.
package indicator

// Patterns understood by every Controller.
const (
	PatternSolid = "solid"
	PatternBlink = "blink"
)

// Controller abstracts board LED control across single-board computers.
type Controller interface {
	// Set switches an LED and, when pattern is not empty, its trigger.
	//   ledType: board-specific LED identifier (e.g., "act", "user", "green")
	//   pattern: "solid", "blink", or a raw kernel trigger name
	Set(ledType string, enabled bool, pattern string) error

	// Available returns the LED types this board exposes.
	Available() []string
}
