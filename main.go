package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"golang.org/x/sync/errgroup"

	"github.com/smazurov/ambiled/cmd"
	"github.com/smazurov/ambiled/internal/adalight"
	"github.com/smazurov/ambiled/internal/api"
	"github.com/smazurov/ambiled/internal/capture"
	"github.com/smazurov/ambiled/internal/config"
	"github.com/smazurov/ambiled/internal/controller"
	"github.com/smazurov/ambiled/internal/events"
	"github.com/smazurov/ambiled/internal/indicator"
	"github.com/smazurov/ambiled/internal/logging"
	"github.com/smazurov/ambiled/internal/metrics"
	"github.com/smazurov/ambiled/internal/pipeline"
	"github.com/smazurov/ambiled/internal/preview"
	"github.com/smazurov/ambiled/internal/version"
	"github.com/smazurov/ambiled/internal/watch"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings; empty disables auth
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Serial settings
	SerialPort      string `help:"Serial port of the strip controller" default:"" toml:"serial.port" env:"SERIAL_PORT"`
	SerialBaudRate  int    `help:"Serial baud rate" default:"250000" toml:"serial.baud_rate" env:"SERIAL_BAUD_RATE"`
	SerialTimeoutMs int    `help:"Serial write timeout in milliseconds" default:"100" toml:"serial.timeout_ms" env:"SERIAL_TIMEOUT_MS"`
	SerialUsbOnly   bool   `help:"Only offer USB serial adapters" default:"false" toml:"serial.usb_only" env:"SERIAL_USB_ONLY"`

	// Capture settings
	CaptureMonitor int `help:"Monitor index captured on start" default:"0" toml:"capture.monitor" env:"CAPTURE_MONITOR"`
	CaptureFps     int `help:"Target frames per second; 0 runs unpaced" default:"60" toml:"capture.fps" env:"CAPTURE_FPS"`

	// LED settings
	LedsSaturationBoost bool `help:"Boost the dominant channel of mid-brightness colors" default:"false" toml:"leds.saturation_boost" env:"LEDS_SATURATION_BOOST"`

	// Preview settings
	PreviewEnabled    bool   `help:"Run low-rate previews of every monitor while idle" default:"true" toml:"preview.enabled" env:"PREVIEW_ENABLED"`
	PreviewMode       string `help:"Preview rendering (image, color)" default:"image" toml:"preview.mode" env:"PREVIEW_MODE"`
	PreviewWidth      int    `help:"Preview image width in pixels" default:"320" toml:"preview.width" env:"PREVIEW_WIDTH"`
	PreviewIntervalMs int    `help:"Delay between preview frames in milliseconds" default:"25" toml:"preview.interval_ms" env:"PREVIEW_INTERVAL_MS"`

	// Watch settings
	WatchPortsIntervalMs    int `help:"Serial port polling interval in milliseconds" default:"1000" toml:"watch.ports_interval_ms" env:"WATCH_PORTS_INTERVAL_MS"`
	WatchMonitorsIntervalMs int `help:"Monitor polling interval in milliseconds" default:"500" toml:"watch.monitors_interval_ms" env:"WATCH_MONITORS_INTERVAL_MS"`

	// Status LED settings
	IndicatorEnabled bool `help:"Mirror capture state on the board status LED" default:"false" toml:"indicator.enabled" env:"INDICATOR_ENABLED"`

	// Metrics settings
	MetricsEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture    string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingController string `help:"Controller logging level" default:"info" toml:"logging.controller" env:"LOGGING_CONTROLLER"`
	LoggingPreview    string `help:"Preview logging level" default:"info" toml:"logging.preview" env:"LOGGING_PREVIEW"`
	LoggingWatch      string `help:"Hardware watcher logging level" default:"info" toml:"logging.watch" env:"LOGGING_WATCH"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"capture":    o.LoggingCapture,
			"controller": o.LoggingController,
			"preview":    o.LoggingPreview,
			"watch":      o.LoggingWatch,
			"api":        o.LoggingAPI,
			"http":       o.LoggingAPI,
		},
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")
		logger.Info("Starting ambiled", "version", version.Short())

		eventBus := events.New()
		source := capture.NewScreenSource()

		// Previews ask the controller whether the primary capture is active;
		// the controller suspends previews before it starts.
		var ctrl *controller.Controller
		var previews *preview.Distributor
		if opts.PreviewEnabled {
			previews = preview.NewDistributor(preview.Options{
				Source:   source,
				Mode:     preview.Mode(opts.PreviewMode),
				Width:    opts.PreviewWidth,
				Interval: ms(opts.PreviewIntervalMs),
				Active:   func() bool { return ctrl.CaptureActive() },
				Logger:   logging.GetLogger("preview"),
			})
		}

		ctrlOpts := controller.Options{
			Source:          source,
			OpenPort:        cmd.SerialOpener(opts.SerialBaudRate, ms(opts.SerialTimeoutMs)),
			Interval:        pipeline.IntervalForFPS(float64(opts.CaptureFps)),
			EventBus:        eventBus,
			Monitor:         opts.CaptureMonitor,
			Port:            opts.SerialPort,
			SaturationBoost: opts.LedsSaturationBoost,
			Logger:          logging.GetLogger("controller"),
			CaptureLogger:   logging.GetLogger("capture"),
		}
		if previews != nil {
			ctrlOpts.Previews = previews
		}
		ctrl = controller.New(ctrlOpts)

		watchLogger := logging.GetLogger("watch")
		portWatcher := watch.NewPortWatcher(watch.PortWatcherOptions{
			List: func() ([]string, error) {
				return adalight.PortNames(opts.SerialUsbOnly)
			},
			Selection: ctrl,
			Interval:  ms(opts.WatchPortsIntervalMs),
			EventBus:  eventBus,
			Logger:    watchLogger,
		})
		monitorOpts := watch.MonitorWatcherOptions{
			Source:   source,
			Interval: ms(opts.WatchMonitorsIntervalMs),
			EventBus: eventBus,
			Logger:   watchLogger,
		}
		if previews != nil {
			monitorOpts.Previews = previews
		}
		monitorWatcher := watch.NewMonitorWatcher(monitorOpts)

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Controller:   ctrl,
			Monitors:     monitorWatcher,
			Ports:        portWatcher,
			EventBus:     eventBus,
		}
		if previews != nil {
			apiOpts.Previews = previews
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = metrics.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		var ledManager *indicator.Manager
		if opts.IndicatorEnabled {
			ledLogger := logging.GetLogger("indicator")
			ledController, ledType := indicator.New(ledLogger)
			ledManager = indicator.NewManager(ledController, ledType, eventBus, ledLogger)
		}

		configLogger := logging.GetLogger("config")
		runtimeWatcher := config.NewConfigWatcher(
			opts.Config,
			config.LoadRuntime,
			configLogger,
			config.WithErrorHandler[config.Runtime](func(err error) {
				configLogger.Warn("Config reload failed, keeping current settings", "error", err)
			}),
		)
		runtimeWatcher.OnReload(func(rt config.Runtime) {
			ctrl.SetBoost(rt.SaturationBoost)
			// Loggers already handed out keep their handler, so only levels reload.
			rt.Logging.Format = opts.LoggingFormat
			logging.Initialize(rt.Logging)
		})

		ctx, cancel := context.WithCancel(context.Background())
		g, gctx := errgroup.WithContext(ctx)

		hooks.OnStart(func() {
			if ledManager != nil {
				ledManager.Start()
			}

			g.Go(func() error { return watch.Supervise(gctx, portWatcher, eventBus, watchLogger) })
			g.Go(func() error { return watch.Supervise(gctx, monitorWatcher, eventBus, watchLogger) })

			if _, statErr := os.Stat(opts.Config); statErr == nil {
				if startErr := runtimeWatcher.Start(); startErr != nil {
					logger.Warn("Failed to start config watcher, hot-reload disabled", "error", startErr)
				}
			}

			if ok, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Warn("Failed to notify systemd", "error", notifyErr)
			} else if ok {
				logger.Debug("Notified systemd of readiness")
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			cancel()
			_ = g.Wait()

			// Release the serial port and monitors before exiting
			ctrl.Stop()
			if previews != nil {
				previews.StopAll()
			}
			_ = runtimeWatcher.Stop()
			if ledManager != nil {
				ledManager.Stop()
			}
		})
	})

	cli.Root().Use = "ambiled"
	cli.Root().Version = version.Short()
	cli.Root().AddCommand(cmd.CreateMonitorsCmd())
	cli.Root().AddCommand(cmd.CreatePortsCmd())
	cli.Root().AddCommand(cmd.CreateRunCmd())

	cli.Run()
}
