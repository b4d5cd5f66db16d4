package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/smazurov/ambiled/internal/adalight"
	"github.com/smazurov/ambiled/internal/capture"
	"github.com/smazurov/ambiled/internal/controller"
	"github.com/smazurov/ambiled/internal/logging"
	"github.com/smazurov/ambiled/internal/metrics"
	"github.com/smazurov/ambiled/internal/pipeline"
)

// CreateRunCmd creates the run command.
func CreateRunCmd() *cobra.Command {
	var (
		monitor   int
		port      string
		fps       int
		baudRate  int
		timeoutMs int
		boost     bool
		logJSON   bool
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the strip from one monitor without the API server",
		Long: `Captures a monitor and streams its edge colors to the strip until interrupted ` +
			`or the monitor goes away. Exits non-zero when the capture cannot start or the serial link fails.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := logging.Config{Level: logLevel, Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("capture").With("monitor", monitor, "port", port)

			ctrl := controller.New(controller.Options{
				Source:          capture.NewScreenSource(),
				OpenPort:        SerialOpener(baudRate, time.Duration(timeoutMs)*time.Millisecond),
				Interval:        pipeline.IntervalForFPS(float64(fps)),
				Monitor:         monitor,
				Port:            port,
				SaturationBoost: boost,
				Logger:          logger,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := ctrl.Start(ctx); err != nil {
				logger.Error("Failed to start capture", "error", err)
				os.Exit(1)
			}
			started := time.Now()

			select {
			case <-ctx.Done():
				logger.Info("Interrupted")
				ctrl.Stop()
			case <-ctrl.Done():
			}

			snap := metrics.Get()
			logger.Info("Capture finished",
				"frames", humanize.Comma(int64(snap.Frames)),
				"sent", humanize.Bytes(snap.BytesSent),
				"overruns", snap.Overruns,
				"started", humanize.Time(started))

			if err := ctrl.Status().LastError; err != nil {
				logger.Error("Capture failed", "error", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().IntVarP(&monitor, "monitor", "m", 0, "Monitor index (see ambiled monitors)")
	cmd.Flags().StringVarP(&port, "port", "p", "", "Serial port of the strip controller (see ambiled ports)")
	cmd.Flags().IntVar(&fps, "fps", 60, "Target frames per second; 0 runs unpaced")
	cmd.Flags().IntVar(&baudRate, "baud-rate", adalight.DefaultBaudRate, "Serial baud rate")
	cmd.Flags().IntVar(&timeoutMs, "timeout-ms", int(adalight.DefaultTimeout/time.Millisecond), "Serial write timeout in milliseconds")
	cmd.Flags().BoolVar(&boost, "saturation-boost", false, "Boost the dominant channel of mid-brightness colors")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("port")

	return cmd
}
