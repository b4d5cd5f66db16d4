package adalight

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/ambiled/internal/strip"
)

var (
	// ErrWriteTimeout is returned when the device did not accept a frame in
	// time. The port is closed and the Writer is unusable afterwards.
	ErrWriteTimeout = errors.New("serial write timed out")
	// ErrClosed is returned by writes after Close or a fatal error.
	ErrClosed = errors.New("serial writer closed")
)

// Writer sends one coalesced buffer per frame so a failed write never leaves
// part of a frame queued on the device.
type Writer struct {
	port    io.WriteCloser
	timeout time.Duration

	mu     sync.Mutex
	buf    []byte
	closed bool
	err    error

	frames atomic.Uint64
	bytes  atomic.Uint64
}

// NewWriter wraps port. A zero timeout waits for writes indefinitely.
func NewWriter(port io.WriteCloser, timeout time.Duration) *Writer {
	return &Writer{port: port, timeout: timeout}
}

// WriteFrame encodes edges and writes them in a single call.
func (w *Writer) WriteFrame(edges strip.Edges) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		if w.err != nil {
			return w.err
		}
		return ErrClosed
	}

	w.buf = AppendFrame(w.buf[:0], edges)
	if err := w.write(w.buf); err != nil {
		w.fail(err)
		return err
	}
	w.frames.Add(1)
	w.bytes.Add(uint64(len(w.buf)))
	return nil
}

func (w *Writer) write(p []byte) error {
	if w.timeout <= 0 {
		return writeFull(w.port, p)
	}

	done := make(chan error, 1)
	go func() { done <- writeFull(w.port, p) }()

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		// Closing unblocks the pending write; buf is never reused after this.
		w.port.Close()
		return fmt.Errorf("%w after %s", ErrWriteTimeout, w.timeout)
	}
}

func writeFull(wr io.Writer, p []byte) error {
	n, err := wr.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}

// fail marks the writer dead. Caller holds mu.
func (w *Writer) fail(err error) {
	if w.closed {
		return
	}
	w.closed = true
	w.err = err
	if !errors.Is(err, ErrWriteTimeout) {
		w.port.Close()
	}
	w.buf = nil
}

// Close releases the port. Safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.port.Close()
}

// Frames is the number of frames written.
func (w *Writer) Frames() uint64 {
	return w.frames.Load()
}

// BytesWritten is the number of bytes written.
func (w *Writer) BytesWritten() uint64 {
	return w.bytes.Load()
}
