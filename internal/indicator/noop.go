package indicator

import "log/slog"

// noop stands in on machines without controllable LEDs.
type noop struct {
	logger *slog.Logger
}

func (n *noop) Set(ledType string, enabled bool, pattern string) error {
	n.logger.Debug("LED control not available (no-op)",
		"led_type", ledType,
		"enabled", enabled,
		"pattern", pattern)
	return nil
}

func (n *noop) Available() []string {
	return []string{}
}
