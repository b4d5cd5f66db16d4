package watch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smazurov/ambiled/internal/events"
	"github.com/smazurov/ambiled/internal/metrics"
)

// Watcher is a polling loop that ends on the first enumeration error.
type Watcher interface {
	Name() string
	Run(ctx context.Context) error
}

// Supervise runs w until ctx is canceled. A watcher failure is logged,
// counted and published; it is not returned, so an errgroup sharing ctx
// keeps running.
func Supervise(ctx context.Context, w Watcher, bus *events.Bus, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	err := w.Run(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}

	logger.Error("Watcher stopped", "watcher", w.Name(), "error", err)
	metrics.RecordWatcherFailure(w.Name())
	if bus != nil {
		bus.Publish(events.WatcherFailedEvent{
			Watcher:   w.Name(),
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return nil
}
