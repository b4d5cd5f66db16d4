package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string `help:"Config file path"`

	SerialPort     string   `toml:"serial.port" env:"SERIAL_PORT"`
	SerialUSBOnly  bool     `toml:"serial.usb_only" env:"SERIAL_USB_ONLY"`
	SerialBaudRate int      `toml:"serial.baud_rate" env:"SERIAL_BAUD_RATE"`
	CaptureFPS     float64  `toml:"capture.fps" env:"CAPTURE_FPS"`
	PreviewModes   []string `toml:"preview.modes" env:"PREVIEW_MODES"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleTOML = `
[serial]
port = "/dev/ttyUSB0"
usb_only = true
baud_rate = 115200

[capture]
fps = 30

[preview]
modes = ["image", "color"]
`

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &testOptions{Config: writeFile(t, sampleTOML)}

	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.SerialPort != "/dev/ttyUSB0" {
		t.Errorf("SerialPort = %q", opts.SerialPort)
	}
	if !opts.SerialUSBOnly {
		t.Error("SerialUSBOnly should be true")
	}
	if opts.SerialBaudRate != 115200 {
		t.Errorf("SerialBaudRate = %d", opts.SerialBaudRate)
	}
	if opts.CaptureFPS != 30 {
		t.Errorf("CaptureFPS = %v, integer TOML values must fill float fields", opts.CaptureFPS)
	}
	if want := []string{"image", "color"}; !reflect.DeepEqual(opts.PreviewModes, want) {
		t.Errorf("PreviewModes = %v, want %v", opts.PreviewModes, want)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	t.Setenv("AMBILED_SERIAL_PORT", "COM3")
	t.Setenv("AMBILED_SERIAL_BAUD_RATE", "250000")
	t.Setenv("AMBILED_CAPTURE_FPS", "59.94")
	t.Setenv("AMBILED_PREVIEW_MODES", "color, image")

	opts := &testOptions{Config: writeFile(t, sampleTOML)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.SerialPort != "COM3" {
		t.Errorf("SerialPort = %q, want env value", opts.SerialPort)
	}
	if opts.SerialBaudRate != 250000 {
		t.Errorf("SerialBaudRate = %d, want env value", opts.SerialBaudRate)
	}
	if opts.CaptureFPS != 59.94 {
		t.Errorf("CaptureFPS = %v", opts.CaptureFPS)
	}
	if want := []string{"color", "image"}; !reflect.DeepEqual(opts.PreviewModes, want) {
		t.Errorf("PreviewModes = %v, want %v", opts.PreviewModes, want)
	}
	if !opts.SerialUSBOnly {
		t.Error("keys without env override should keep the TOML value")
	}
}

func TestLoadConfigCLIWins(t *testing.T) {
	t.Setenv("AMBILED_SERIAL_PORT", "from-env")

	opts := &testOptions{Config: writeFile(t, sampleTOML)}

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.SerialPort, "serial-port", "", "")
	cmd.Flags().IntVar(&opts.SerialBaudRate, "serial-baud-rate", 0, "")
	if err := cmd.Flags().Set("serial-port", "from-cli"); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.SerialPort != "from-cli" {
		t.Errorf("SerialPort = %q, explicit flag must win", opts.SerialPort)
	}
	if opts.SerialBaudRate != 115200 {
		t.Errorf("SerialBaudRate = %d, unchanged flag should take the TOML value", opts.SerialBaudRate)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), SerialBaudRate: 250000}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if opts.SerialBaudRate != 250000 {
		t.Errorf("defaults must survive, got %d", opts.SerialBaudRate)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &testOptions{Config: writeFile(t, "[serial\nport = ")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":                 "port",
		"SerialBaudRate":       "serial-baud-rate",
		"WatchPortsIntervalMs": "watch-ports-interval-ms",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadRuntime(t *testing.T) {
	path := writeFile(t, `
[leds]
saturation_boost = true

[logging]
level = "debug"

[logging.modules]
serial = "warn"
`)

	rt, err := LoadRuntime(path)
	if err != nil {
		t.Fatalf("LoadRuntime failed: %v", err)
	}
	if !rt.SaturationBoost {
		t.Error("SaturationBoost should be true")
	}
	if rt.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", rt.Logging.Level)
	}
	if rt.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want default text", rt.Logging.Format)
	}
	if rt.Logging.Modules["serial"] != "warn" {
		t.Errorf("Logging.Modules = %v", rt.Logging.Modules)
	}
}

func TestLoadRuntimeDefaults(t *testing.T) {
	rt, err := LoadRuntime(writeFile(t, "[server]\nport = \":8090\"\n"))
	if err != nil {
		t.Fatalf("LoadRuntime failed: %v", err)
	}
	if rt.SaturationBoost {
		t.Error("boost should default to off")
	}
	if rt.Logging.Level != "info" || rt.Logging.Format != "text" {
		t.Errorf("unexpected logging defaults: %+v", rt.Logging)
	}
}

func TestLoadRuntimeMissingFile(t *testing.T) {
	if _, err := LoadRuntime(filepath.Join(t.TempDir(), "gone.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
