package indicator

import (
	"log/slog"
	"sync"

	"github.com/smazurov/ambiled/internal/capture"
	"github.com/smazurov/ambiled/internal/events"
)

// Manager follows capture state changes: the LED is solid while capturing,
// blinks while a session starts or after one failed, and is off when idle.
type Manager struct {
	controller  Controller
	ledType     string
	eventBus    *events.Bus
	unsubscribe func()
	logger      *slog.Logger

	mu   sync.Mutex
	last string
}

// NewManager creates a manager driving ledType on controller.
func NewManager(controller Controller, ledType string, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		ledType:    ledType,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Start switches the LED off and begins following capture events.
func (m *Manager) Start() {
	m.apply(false, PatternSolid)
	m.unsubscribe = m.eventBus.Subscribe(func(e events.CaptureStateChangedEvent) {
		m.handleEvent(e)
	})
	m.logger.Info("Status LED manager started", "led", m.ledType)
}

// Stop unsubscribes and switches the LED off.
func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.apply(false, PatternSolid)
	m.logger.Info("Status LED manager stopped")
}

func (m *Manager) handleEvent(e events.CaptureStateChangedEvent) {
	switch capture.State(e.State) {
	case capture.StateRunning:
		m.apply(true, PatternSolid)
	case capture.StateStarting:
		m.apply(true, PatternBlink)
	case capture.StateStopped, capture.StateIdle:
		if e.Error != "" {
			m.apply(true, PatternBlink)
		} else {
			m.apply(false, PatternSolid)
		}
	}
}

func (m *Manager) apply(enabled bool, pattern string) {
	key := pattern
	if !enabled {
		key = "off"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if key == m.last {
		return
	}
	if err := m.controller.Set(m.ledType, enabled, pattern); err != nil {
		m.logger.Warn("Failed to set status LED", "led", m.ledType, "pattern", key, "error", err)
		return
	}
	m.last = key
	m.logger.Debug("Status LED changed", "led", m.ledType, "pattern", key)
}
