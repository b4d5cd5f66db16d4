// Package pipeline turns captured frames into strip updates.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/smazurov/ambiled/internal/capture"
	"github.com/smazurov/ambiled/internal/metrics"
	"github.com/smazurov/ambiled/internal/strip"
)

// FrameWriter sends strip colors to the hardware.
type FrameWriter interface {
	WriteFrame(edges strip.Edges) error
	BytesWritten() uint64
	Close() error
}

// TransportError is returned by OnFrame when the serial link failed.
type TransportError struct {
	Port string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send frame to %s: %v", e.Port, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Context is everything a primary handler needs. It is built explicitly by
// the owner of the session.
type Context struct {
	Monitor  capture.Monitor
	Port     string
	Topology strip.Topology
	Writer   FrameWriter
	Pacer    *Pacer

	// Boost is read once per frame so the setting can change while running.
	Boost func() bool

	Logger *slog.Logger
}

// Primary is the frame handler of the LED-driving session: reduce, encode,
// send, pace.
type Primary struct {
	ctx     Context
	logger  *slog.Logger
	started time.Time
	frames  uint64
}

// NewPrimary validates ctx and returns the handler.
func NewPrimary(ctx Context) (*Primary, error) {
	if ctx.Writer == nil {
		return nil, fmt.Errorf("primary handler needs a writer")
	}
	if err := ctx.Topology.Validate(); err != nil {
		return nil, err
	}
	if ctx.Logger == nil {
		ctx.Logger = slog.Default()
	}
	if ctx.Pacer == nil {
		ctx.Pacer = NewPacer(DefaultInterval, ctx.Logger)
	}
	return &Primary{
		ctx:     ctx,
		logger:  ctx.Logger.With("port", ctx.Port),
		started: time.Now(),
	}, nil
}

// OnFrame implements capture.Handler.
func (p *Primary) OnFrame(f capture.Frame) error {
	start := p.ctx.Pacer.Start()

	boost := p.ctx.Boost != nil && p.ctx.Boost()
	edges := strip.Reduce(f.StripImage(), p.ctx.Topology, strip.Options{SaturationBoost: boost})

	before := p.ctx.Writer.BytesWritten()
	if err := p.ctx.Writer.WriteFrame(edges); err != nil {
		metrics.RecordSerialError()
		return &TransportError{Port: p.ctx.Port, Err: err}
	}
	written := int(p.ctx.Writer.BytesWritten() - before)

	elapsed, overrun := p.ctx.Pacer.Pace(start)
	metrics.RecordFrame(elapsed, written)
	if overrun {
		metrics.RecordOverrun()
	}
	p.frames++
	return nil
}

// OnClosed implements capture.Handler.
func (p *Primary) OnClosed() error {
	p.logger.Info("Monitor disconnected, ending capture", "title", p.ctx.Monitor.Title())
	return nil
}

// Close releases the serial port.
func (p *Primary) Close() error {
	sent := p.ctx.Writer.BytesWritten()
	err := p.ctx.Writer.Close()
	p.logger.Info("Serial port released",
		"frames", humanize.Comma(int64(p.frames)),
		"sent", humanize.Bytes(sent),
		"uptime", time.Since(p.started).Round(time.Second))
	return err
}
