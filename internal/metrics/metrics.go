// Package metrics provides Prometheus metrics for the capture pipeline,
// previews and hardware watchers.
package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ambiled"

var (
	captureFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "frames_total",
		Help:      "Frames reduced and sent to the strip",
	})

	captureFrameSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "frame_processing_seconds",
		Help:      "Time spent reducing and encoding one frame",
		Buckets:   []float64{.001, .002, .004, .008, .012, .016, .025, .05, .1},
	})

	captureOverruns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "overruns_total",
		Help:      "Frames that exceeded the target interval",
	})

	captureActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "active",
		Help:      "1 while the primary capture session owns the strip",
	})

	serialBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "serial",
		Name:      "bytes_total",
		Help:      "Bytes written to the serial port",
	})

	serialErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "serial",
		Name:      "errors_total",
		Help:      "Serial transport failures",
	})

	previewFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "preview",
		Name:      "frames_total",
		Help:      "Preview frames published",
	}, []string{"monitor"})

	previewDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "preview",
		Name:      "frames_dropped_total",
		Help:      "Preview frames overwritten before being consumed",
	}, []string{"monitor"})

	watcherFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "watch",
		Name:      "failures_total",
		Help:      "Enumeration errors that stopped a hardware watcher",
	}, []string{"watcher"})

	// Local copies for the status API.
	frames        atomic.Uint64
	overruns      atomic.Uint64
	bytesSent     atomic.Uint64
	lastFrameNano atomic.Int64
)

// Snapshot holds current capture counters.
type Snapshot struct {
	Frames    uint64
	Overruns  uint64
	BytesSent uint64
	LastFrame time.Duration
}

// RecordFrame accounts one primary frame that took d and wrote n bytes.
func RecordFrame(d time.Duration, n int) {
	captureFrames.Inc()
	captureFrameSeconds.Observe(d.Seconds())
	serialBytes.Add(float64(n))
	frames.Add(1)
	bytesSent.Add(uint64(n))
	lastFrameNano.Store(int64(d))
}

// RecordOverrun accounts a frame that exceeded the target interval.
func RecordOverrun() {
	captureOverruns.Inc()
	overruns.Add(1)
}

// RecordSerialError accounts a transport failure.
func RecordSerialError() {
	serialErrors.Inc()
}

// SetCaptureActive mirrors the capture-active flag.
func SetCaptureActive(active bool) {
	if active {
		captureActive.Set(1)
	} else {
		captureActive.Set(0)
	}
}

// RecordPreview accounts a published preview frame; dropped reports
// whether it replaced an unconsumed one.
func RecordPreview(monitor int, dropped bool) {
	label := strconv.Itoa(monitor)
	previewFrames.WithLabelValues(label).Inc()
	if dropped {
		previewDropped.WithLabelValues(label).Inc()
	}
}

// DeletePreview removes the series of a vanished monitor.
func DeletePreview(monitor int) {
	label := strconv.Itoa(monitor)
	previewFrames.DeleteLabelValues(label)
	previewDropped.DeleteLabelValues(label)
}

// RecordWatcherFailure accounts a watcher that stopped on an enumeration error.
func RecordWatcherFailure(watcher string) {
	watcherFailures.WithLabelValues(watcher).Inc()
}

// Get returns the current capture counters.
func Get() Snapshot {
	return Snapshot{
		Frames:    frames.Load(),
		Overruns:  overruns.Load(),
		BytesSent: bytesSent.Load(),
		LastFrame: time.Duration(lastFrameNano.Load()),
	}
}

// HTTPHandler serves every promauto-registered metric.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
