package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/ambiled/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of capture state, hardware and selection changes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"capture-state":     events.CaptureStateChangedEvent{},
		"monitors-changed":  events.MonitorsChangedEvent{},
		"ports-changed":     events.PortsChangedEvent{},
		"selection-changed": events.SelectionChangedEvent{},
		"watcher-failed":    events.WatcherFailedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		var unsubscribers []func()
		if s.eventBus != nil {
			unsubscribers = []func(){
				events.SubscribeToChannel[events.CaptureStateChangedEvent](s.eventBus, eventCh),
				events.SubscribeToChannel[events.MonitorsChangedEvent](s.eventBus, eventCh),
				events.SubscribeToChannel[events.PortsChangedEvent](s.eventBus, eventCh),
				events.SubscribeToChannel[events.SelectionChangedEvent](s.eventBus, eventCh),
				events.SubscribeToChannel[events.WatcherFailedEvent](s.eventBus, eventCh),
			}
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// New clients start from the current capture state
		st := s.options.Controller.Status()
		initial := events.CaptureStateChangedEvent{
			State:     string(st.State),
			Monitor:   st.Monitor,
			Port:      st.Port,
			Timestamp: time.Now().Format(time.RFC3339),
		}
		if st.LastError != nil {
			initial.Error = st.LastError.Error()
		}
		if err := send.Data(initial); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
