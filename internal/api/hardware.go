package api

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"slices"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/ambiled/internal/api/models"
	"github.com/smazurov/ambiled/internal/capture"
	"github.com/smazurov/ambiled/internal/preview"
	"github.com/smazurov/ambiled/internal/watch"
)

const swatchSize = 16

// registerHardwareRoutes registers monitor, port, selection and preview endpoints.
func (s *Server) registerHardwareRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-monitors",
		Method:      http.MethodGet,
		Path:        "/api/monitors",
		Summary:     "List Monitors",
		Description: "Get the attached monitors",
		Tags:        []string{"hardware"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.MonitorListResponse, error) {
		infos := watch.MonitorInfos(s.monitors())
		return &models.MonitorListResponse{
			Body: models.MonitorListData{Monitors: infos, Count: len(infos)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-ports",
		Method:      http.MethodGet,
		Path:        "/api/ports",
		Summary:     "List Serial Ports",
		Description: "Get the selectable serial ports and the current selection",
		Tags:        []string{"hardware"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.PortListResponse, error) {
		return &models.PortListResponse{
			Body: models.PortListData{
				Ports:    s.ports(),
				Selected: s.options.Controller.Status().Port,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "put-selection",
		Method:      http.MethodPut,
		Path:        "/api/selection",
		Summary:     "Select Monitor and Port",
		Description: "Choose the monitor and serial port used by the next capture start",
		Tags:        []string{"hardware"},
		Errors:      []int{400, 401, 422},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.SelectionRequest) (*models.SelectionResponse, error) {
		sel := input.Body
		if s.options.Monitors != nil && !slices.ContainsFunc(s.monitors(), func(m capture.Monitor) bool {
			return m.Index == sel.Monitor
		}) {
			return nil, huma.Error400BadRequest(fmt.Sprintf("monitor %d is not attached", sel.Monitor))
		}
		if s.options.Ports != nil && sel.Port != "" && !slices.Contains(s.ports(), sel.Port) {
			return nil, huma.Error400BadRequest(fmt.Sprintf("serial port %s is not available", sel.Port))
		}

		s.options.Controller.Select(sel.Monitor, sel.Port)
		return &models.SelectionResponse{Body: sel}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-preview",
		Method:      http.MethodGet,
		Path:        "/api/monitors/{index}/preview",
		Summary:     "Monitor Preview",
		Description: "Take the latest preview of a monitor as PNG. Returns 204 when no new preview is pending.",
		Tags:        []string{"hardware"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.PreviewRequest) (*models.PreviewResponse, error) {
		if s.options.Previews == nil {
			return &models.PreviewResponse{Status: http.StatusNoContent}, nil
		}
		img, ok := s.options.Previews.Poll(input.Index)
		if !ok {
			return &models.PreviewResponse{Status: http.StatusNoContent}, nil
		}

		body, err := encodePreview(img)
		if err != nil {
			return nil, huma.Error500InternalServerError("cannot encode preview", err)
		}
		return &models.PreviewResponse{
			Status:       http.StatusOK,
			ContentType:  "image/png",
			CacheControl: "no-store",
			CapturedAt:   img.CapturedAt.Format(time.RFC3339Nano),
			AverageColor: fmt.Sprintf("#%02x%02x%02x", img.Color.R, img.Color.G, img.Color.B),
			Body:         body,
		}, nil
	})
}

func (s *Server) monitors() []capture.Monitor {
	if s.options.Monitors == nil {
		return nil
	}
	return s.options.Monitors.Monitors()
}

func (s *Server) ports() []string {
	if s.options.Ports == nil {
		return []string{}
	}
	ports := s.options.Ports.Ports()
	if ports == nil {
		return []string{}
	}
	return ports
}

// encodePreview renders a preview as PNG. Color-mode previews become a
// solid swatch.
func encodePreview(p preview.Image) ([]byte, error) {
	var img image.Image = p.Image
	if p.Image == nil {
		c := color.RGBA{R: p.Color.R, G: p.Color.G, B: p.Color.B, A: 255}
		img = swatch(c)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func swatch(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, swatchSize, swatchSize))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}
