package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func resetRegistry() {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.config = Config{}
	std.initialized = false
	std.loggers = make(map[string]*slog.Logger)
	std.levels = make(map[string]*slog.LevelVar)
}

func TestModuleLevelOverride(t *testing.T) {
	resetRegistry()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"capture": "debug",
			"watch":   "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"capture", true, true, true},
		{"watch", false, false, true},
		{"preview", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			h := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := h.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := h.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := h.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestLoggerCachedAcrossInitialize(t *testing.T) {
	resetRegistry()

	before := GetLogger("serial")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Format: "text", Modules: map[string]string{"serial": "debug"}})

	after := GetLogger("serial")
	if !after.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("serial logger should accept debug after Initialize")
	}
}

func TestReinitializeChangesLevels(t *testing.T) {
	resetRegistry()

	Initialize(Config{Level: "info", Format: "text"})
	logger := GetLogger("controller")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be disabled at info level")
	}

	Initialize(Config{Level: "debug", Format: "text"})
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("existing logger should follow the new global level")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetRegistry()
	Initialize(Config{Level: "info", Format: "text"})

	logger := GetLogger("api")
	SetModuleLevel("api", "error")

	if logger.Handler().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled after raising api to error")
	}

	SetModuleLevel("api", "bogus")
	if logger.Handler().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("unknown level must leave the module level untouched")
	}
}

func TestMultiHandlerWritesEachOnce(t *testing.T) {
	var debugBuf, infoBuf bytes.Buffer

	multi := NewMultiHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	logger := slog.New(multi).With("module", "test")

	logger.Debug("debug only")
	logger.Info("both")

	if strings.Count(debugBuf.String(), "debug only") != 1 {
		t.Errorf("debug handler output = %q", debugBuf.String())
	}
	if strings.Contains(infoBuf.String(), "debug only") {
		t.Error("info handler should not receive debug records")
	}
	if !strings.Contains(infoBuf.String(), "module=test") {
		t.Errorf("attrs not propagated: %q", infoBuf.String())
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("boom") }

func TestMultiHandlerJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(
		slog.NewTextHandler(&buf, nil),
		failingHandler{slog.NewTextHandler(&buf, nil)},
	)

	err := multi.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "msg", 0))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !strings.Contains(buf.String(), "msg") {
		t.Error("healthy handler should still have written the record")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"", 0, false},
		{"verbose", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseLevel(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("parseLevel(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}
