package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/smazurov/ambiled/internal/capture"
)

// CreateMonitorsCmd creates the monitors command.
func CreateMonitorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitors",
		Short: "List attached monitors",
		Long:  `Lists the monitors that can be captured, with the index to pass to --monitor.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			monitors, err := capture.NewScreenSource().Monitors()
			if err != nil {
				return fmt.Errorf("enumerate monitors: %w", err)
			}
			if len(monitors) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No monitors attached")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tTITLE\tPOSITION\tPIXELS")
			for _, m := range monitors {
				pixels := float64(m.Bounds.Dx() * m.Bounds.Dy())
				fmt.Fprintf(tw, "%d\t%s\t%d,%d\t%s\n",
					m.Index, m.Title(), m.Bounds.Min.X, m.Bounds.Min.Y, humanize.SIWithDigits(pixels, 1, "px"))
			}
			return tw.Flush()
		},
	}
}
