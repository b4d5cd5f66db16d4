package cmd

import (
	"time"

	"github.com/smazurov/ambiled/internal/adalight"
	"github.com/smazurov/ambiled/internal/controller"
	"github.com/smazurov/ambiled/internal/pipeline"
)

// SerialOpener opens strip ports at baud with the given write timeout.
func SerialOpener(baud int, timeout time.Duration) controller.PortOpener {
	if baud <= 0 {
		baud = adalight.DefaultBaudRate
	}
	return func(port string) (pipeline.FrameWriter, error) {
		w, err := adalight.Open(port, baud, timeout)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
}
