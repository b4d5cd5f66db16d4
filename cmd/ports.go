package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/ambiled/internal/adalight"
)

// CreatePortsCmd creates the ports command.
func CreatePortsCmd() *cobra.Command {
	var usbOnly bool

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Long:  `Lists the serial ports a strip controller can be attached to. With --usb-only, ports that are not USB adapters are hidden.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := adalight.ListPorts(usbOnly)
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No serial ports found")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PORT\tUSB ID\tPRODUCT\tSERIAL")
			for _, p := range ports {
				id := "-"
				if p.USB {
					id = p.VID + ":" + p.PID
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, id, orDash(p.Product), orDash(p.SerialNumber))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&usbOnly, "usb-only", false, "Only list USB serial adapters")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
