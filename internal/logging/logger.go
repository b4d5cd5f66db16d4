package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger is satisfied by *slog.Logger. Packages that only emit records
// accept this instead of the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

type registry struct {
	mu          sync.RWMutex
	config      Config
	initialized bool
	output      io.Writer
	loggers     map[string]*slog.Logger
	levels      map[string]*slog.LevelVar
	global      slog.LevelVar
}

var std = &registry{
	output:  os.Stdout,
	loggers: make(map[string]*slog.Logger),
	levels:  make(map[string]*slog.LevelVar),
}

// Initialize sets up the logging system. Calling it again re-applies levels
// to every module logger already handed out, which is how config reloads
// change verbosity without restarting.
func Initialize(config Config) {
	std.mu.Lock()
	defer std.mu.Unlock()

	formatChanged := std.initialized && config.Format != std.config.Format
	firstInit := !std.initialized

	std.config = config
	std.initialized = true
	std.global.Set(levelOrDefault(config.Level, slog.LevelInfo))

	for module, levelVar := range std.levels {
		levelVar.Set(std.moduleLevel(module))
		// Loggers handed out before the first Initialize use the bootstrap
		// text handler without the journal; rebuild them.
		if firstInit || formatChanged {
			std.loggers[module] = slog.New(std.handler(levelVar)).With("module", module)
		}
	}

	slog.SetDefault(slog.New(std.handler(&std.global)))
}

// SetModuleLevel changes a single module's level at runtime.
func SetModuleLevel(module, level string) {
	lvl, ok := parseLevel(level)
	if !ok {
		return
	}
	GetLogger(module)

	std.mu.Lock()
	defer std.mu.Unlock()
	if std.config.Modules == nil {
		std.config.Modules = make(map[string]string)
	}
	std.config.Modules[module] = level
	std.levels[module].Set(lvl)
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	std.mu.RLock()
	logger, ok := std.loggers[module]
	std.mu.RUnlock()
	if ok {
		return logger
	}

	std.mu.Lock()
	defer std.mu.Unlock()

	if logger, ok := std.loggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(std.moduleLevel(module))

	logger = slog.New(std.handler(levelVar)).With("module", module)
	std.loggers[module] = logger
	std.levels[module] = levelVar
	return logger
}

// moduleLevel resolves the effective level of module. Caller holds mu.
func (r *registry) moduleLevel(module string) slog.Level {
	if !r.initialized {
		return slog.LevelInfo
	}
	level := levelOrDefault(r.config.Level, slog.LevelInfo)
	if override, ok := r.config.Modules[module]; ok {
		level = levelOrDefault(override, level)
	}
	return level
}

// handler builds stdout (+ journal when present) output. Caller holds mu.
func (r *registry) handler(level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var out slog.Handler
	if r.initialized && r.config.Format == "json" {
		out = slog.NewJSONHandler(r.output, opts)
	} else {
		out = slog.NewTextHandler(r.output, opts)
	}

	if !r.initialized || !IsJournalAvailable() {
		return out
	}
	if !isStdoutAvailable() {
		return NewJournalHandler(level)
	}
	return NewMultiHandler(out, NewJournalHandler(level))
}

// isStdoutAvailable reports whether stdout goes somewhere other than /dev/null.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&os.ModeCharDevice != 0 || mode&os.ModeNamedPipe != 0 ||
		mode&os.ModeSocket != 0 || mode.IsRegular()
}

func levelOrDefault(s string, fallback slog.Level) slog.Level {
	if l, ok := parseLevel(s); ok {
		return l
	}
	return fallback
}

// parseLevel converts a level name to slog.Level.
func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
