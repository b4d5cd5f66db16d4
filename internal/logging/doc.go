// Package logging provides structured logging with per-module log levels.
//
// Loggers are plain *slog.Logger values tagged with a "module" attribute.
// Each module owns a slog.LevelVar, so a later Initialize (for example after
// the config file changed) adjusts verbosity of loggers already in use.
//
// Output goes to stdout and, when journald is reachable, to the systemd
// journal under the "ambiled" identifier:
//
//	journalctl -t ambiled MODULE=capture
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	capture = "debug"
//	watch = "warn"
package logging
