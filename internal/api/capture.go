package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dustin/go-humanize"

	"github.com/smazurov/ambiled/internal/api/models"
	"github.com/smazurov/ambiled/internal/controller"
)

// registerCaptureRoutes registers the primary capture endpoints.
func (s *Server) registerCaptureRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-capture",
		Method:      http.MethodGet,
		Path:        "/api/capture",
		Summary:     "Capture Status",
		Description: "Get the primary capture state and selection",
		Tags:        []string{"capture"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.CaptureStatusResponse, error) {
		return s.captureResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "toggle-capture",
		Method:      http.MethodPost,
		Path:        "/api/capture/toggle",
		Summary:     "Toggle Capture",
		Description: "Stop the running capture, or start one with the current selection",
		Tags:        []string{"capture"},
		Errors:      []int{400, 401, 500, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.CaptureStatusResponse, error) {
		if _, err := s.options.Controller.Toggle(ctx); err != nil {
			return nil, s.mapCaptureError(err)
		}
		return s.captureResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-capture",
		Method:      http.MethodPost,
		Path:        "/api/capture/start",
		Summary:     "Start Capture",
		Description: "Start capturing the selected monitor to the selected serial port",
		Tags:        []string{"capture"},
		Errors:      []int{400, 401, 409, 500, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.CaptureStatusResponse, error) {
		if err := s.options.Controller.Start(ctx); err != nil {
			return nil, s.mapCaptureError(err)
		}
		return s.captureResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-capture",
		Method:      http.MethodPost,
		Path:        "/api/capture/stop",
		Summary:     "Stop Capture",
		Description: "Stop the running capture and release the monitor and serial port",
		Tags:        []string{"capture"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.CaptureStatusResponse, error) {
		s.options.Controller.Stop()
		return s.captureResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-boost",
		Method:      http.MethodPut,
		Path:        "/api/capture/boost",
		Summary:     "Saturation Boost",
		Description: "Switch the saturation boost; a running capture applies it on the next frame",
		Tags:        []string{"capture"},
		Errors:      []int{401, 422},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.BoostRequest) (*models.CaptureStatusResponse, error) {
		s.options.Controller.SetBoost(input.Body.Enabled)
		return s.captureResponse(), nil
	})
}

func (s *Server) captureResponse() *models.CaptureStatusResponse {
	st := s.options.Controller.Status()
	data := models.CaptureStatusData{
		State:   string(st.State),
		Active:  s.options.Controller.CaptureActive(),
		Monitor: st.Monitor,
		Port:    st.Port,
		Boost:   st.Boost,
		Frames:  st.Frames,
	}
	if !st.StartedAt.IsZero() {
		startedAt := st.StartedAt
		data.StartedAt = &startedAt
		data.Uptime = humanize.Time(startedAt)
	}
	if st.LastError != nil {
		data.LastError = st.LastError.Error()
	}
	return &models.CaptureStatusResponse{Body: data}
}

// mapCaptureError maps controller errors to HTTP errors
func (s *Server) mapCaptureError(err error) error {
	var ctrlErr *controller.Error
	if !errors.As(err, &ctrlErr) {
		return huma.Error500InternalServerError("internal server error", err)
	}
	switch ctrlErr.Code {
	case controller.ErrCodeAlreadyRunning:
		return huma.Error409Conflict(ctrlErr.Message, err)
	case controller.ErrCodeInvalidSelection:
		return huma.Error400BadRequest(ctrlErr.Message, err)
	case controller.ErrCodeAcquisitionFailed:
		return huma.Error503ServiceUnavailable(ctrlErr.Message, err)
	default:
		return huma.Error500InternalServerError(ctrlErr.Message, err)
	}
}
