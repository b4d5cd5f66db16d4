package adalight

import (
	"fmt"
	"sort"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Serial defaults expected by the strip firmware.
const (
	DefaultBaudRate = 250000
	DefaultTimeout  = 100 * time.Millisecond
)

// Open opens the named serial port at baud (8N1) and returns a Writer over it.
func Open(name string, baud int, timeout time.Duration) (*Writer, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("configure serial port %s: %w", name, err)
	}
	return NewWriter(port, timeout), nil
}

// PortInfo describes an attached serial port.
type PortInfo struct {
	Name         string `json:"name" example:"/dev/ttyUSB0" doc:"Port name"`
	USB          bool   `json:"usb" doc:"Whether the port is a USB serial adapter"`
	VID          string `json:"vid,omitempty" example:"1a86" doc:"USB vendor ID"`
	PID          string `json:"pid,omitempty" example:"7523" doc:"USB product ID"`
	SerialNumber string `json:"serial_number,omitempty" doc:"USB serial number"`
	Product      string `json:"product,omitempty" example:"USB2.0-Serial" doc:"USB product name"`
}

// ListPorts enumerates serial ports sorted by name. With usbOnly, ports that
// are not USB adapters are skipped.
func ListPorts(usbOnly bool) ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	return portInfos(details, usbOnly), nil
}

func portInfos(details []*enumerator.PortDetails, usbOnly bool) []PortInfo {
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if usbOnly && !d.IsUSB {
			continue
		}
		ports = append(ports, PortInfo{
			Name:         d.Name,
			USB:          d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports
}

// PortNames returns the names of ListPorts.
func PortNames(usbOnly bool) ([]string, error) {
	ports, err := ListPorts(usbOnly)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return names, nil
}
