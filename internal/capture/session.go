package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	Source  Source
	Monitor Monitor

	// Open builds the frame handler once the source is acquired (required).
	// An error leaves the session idle.
	Open func() (Handler, error)

	// OnStateChange is called on every transition (optional).
	OnStateChange StateChangeCallback

	// Logger for session events. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Session owns one monitor grabber and one frame handler for its lifetime.
// Frames are handled strictly in order on a single locked OS thread.
type Session struct {
	opts   SessionOptions
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	err       error
	startedAt time.Time
	frames    uint64
	cancel    context.CancelFunc

	done chan struct{}
}

// NewSession creates an idle session.
func NewSession(opts SessionOptions) *Session {
	if opts.Source == nil || opts.Open == nil {
		panic("SessionOptions with Source and Open is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		opts:   opts,
		logger: logger.With("monitor", opts.Monitor.Index),
		state:  StateIdle,
		done:   make(chan struct{}),
	}
}

// Start acquires the source and handler and begins delivering frames.
// On failure the session stays idle and the error is returned.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session for monitor %d is %s", s.opts.Monitor.Index, state)
	}
	s.state = StateStarting
	s.mu.Unlock()
	s.notify(StateIdle, StateStarting, nil)

	grabber, err := s.opts.Source.Open(s.opts.Monitor)
	if err != nil {
		return s.abort(fmt.Errorf("acquire monitor %d: %w", s.opts.Monitor.Index, err))
	}
	handler, err := s.opts.Open()
	if err != nil {
		grabber.Close()
		return s.abort(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.state = StateRunning
	s.startedAt = time.Now()
	s.cancel = cancel
	s.mu.Unlock()
	s.notify(StateStarting, StateRunning, nil)
	s.logger.Debug("Capture session running", "title", s.opts.Monitor.Title())

	go s.run(ctx, grabber, handler)
	return nil
}

func (s *Session) abort(err error) error {
	s.mu.Lock()
	s.state = StateIdle
	s.err = err
	s.mu.Unlock()
	s.notify(StateStarting, StateIdle, err)
	return err
}

func (s *Session) run(ctx context.Context, grabber Grabber, handler Handler) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	err := s.loop(ctx, grabber, handler)

	s.mu.Lock()
	prev := s.state
	s.state = StateStopping
	s.mu.Unlock()
	if prev != StateStopping {
		s.notify(prev, StateStopping, nil)
	}

	if cerr := grabber.Close(); cerr != nil {
		s.logger.Warn("Failed to release capture source", "error", cerr)
	}
	if closer, ok := handler.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil {
			s.logger.Warn("Failed to release frame handler", "error", cerr)
		}
	}

	s.mu.Lock()
	s.state = StateStopped
	s.err = err
	frames := s.frames
	uptime := time.Since(s.startedAt)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Capture session failed", "error", err, "frames", frames, "uptime", uptime)
	} else {
		s.logger.Debug("Capture session stopped", "frames", frames, "uptime", uptime)
	}
	s.notify(StateStopping, StateStopped, err)
	close(s.done)
}

func (s *Session) loop(ctx context.Context, grabber Grabber, handler Handler) error {
	for ctx.Err() == nil {
		frame, err := grabber.Grab()
		if errors.Is(err, ErrSourceClosed) {
			s.logger.Info("Capture source closed", "title", s.opts.Monitor.Title())
			return handler.OnClosed()
		}
		if err != nil {
			return err
		}
		if err := frame.Validate(); err != nil {
			return err
		}
		if err := handler.OnFrame(frame); err != nil {
			return err
		}
		s.mu.Lock()
		s.frames++
		s.mu.Unlock()
	}
	return nil
}

// Stop requests cooperative shutdown and waits until resources are released.
// No OnFrame call happens after Stop returns. Stopping an idle session is a
// no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		state := s.state
		s.mu.Unlock()
		if state == StateStopping {
			<-s.done
		}
		return
	}
	s.state = StateStopping
	cancel := s.cancel
	s.mu.Unlock()

	s.notify(StateRunning, StateStopping, nil)
	cancel()
	<-s.done
}

// Done is closed once the session reached StateStopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns why the session failed to start or ended, if it did so with an error.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Monitor returns the captured monitor.
func (s *Session) Monitor() Monitor {
	return s.opts.Monitor
}

// Frames is the number of frames handled so far.
func (s *Session) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// StartedAt is when the session reached StateRunning.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *Session) notify(oldState, newState State, err error) {
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(oldState, newState, err)
	}
}
