package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish delivers ev to every subscriber of its concrete type.
// Usage: bus.Publish(PortsChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case CaptureStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case MonitorsChangedEvent:
		event.Publish(b.dispatcher, e)
	case PortsChangedEvent:
		event.Publish(b.dispatcher, e)
	case SelectionChangedEvent:
		event.Publish(b.dispatcher, e)
	case WatcherFailedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type in its signature and
// returns an unsubscribe function. Unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e PortsChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(CaptureStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MonitorsChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PortsChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SelectionChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(WatcherFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
