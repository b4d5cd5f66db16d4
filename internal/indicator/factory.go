package indicator

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

type board struct {
	match      string
	leds       map[string]string
	defaultLED string
}

var boards = []board{
	{"Raspberry Pi", map[string]string{"act": "ACT", "pwr": "PWR"}, "act"},
	{"NanoPC-T6", map[string]string{"user": "usr_led", "system": "sys_led"}, "user"},
	{"Orange Pi", map[string]string{"blue": "blue_led", "green": "green_led"}, "green"},
}

// New detects the board and returns its LED controller together with the
// LED used for capture status. Unknown boards get a no-op controller.
func New(logger *slog.Logger) (Controller, string) {
	return detect(deviceTreeModelPath, sysfsLEDPath, logger)
}

func detect(modelPath, ledRoot string, logger *slog.Logger) (Controller, string) {
	model := readModel(modelPath)
	for _, b := range boards {
		if strings.Contains(model, b.match) {
			logger.Info("Using sysfs status LED", "board_model", model, "led", b.defaultLED)
			return newSysfs(ledRoot, b.leds), b.defaultLED
		}
	}
	logger.Info("No status LED support detected", "board_model", model)
	return &noop{logger: logger}, ""
}

// readModel returns the device tree model, which is NUL-terminated.
func readModel(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
