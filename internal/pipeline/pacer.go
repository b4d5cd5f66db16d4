package pipeline

import (
	"log/slog"
	"time"
)

// DefaultInterval is the primary session's target frame interval.
const DefaultInterval = time.Second / 60

const overrunWarnEvery = 10 * time.Second

// Pacer holds frames to a fixed period. Deadlines advance by one interval
// per frame, so time spent outside the handler (grabbing the next frame)
// counts against the period too. It never skips frames: after an overrun
// the next deadline is measured from the late frame instead of catching up.
type Pacer struct {
	interval time.Duration
	logger   *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)

	deadline    time.Time
	lastWarning time.Time
}

// NewPacer creates a pacer for interval. A non-positive interval disables sleeping.
func NewPacer(interval time.Duration, logger *slog.Logger) *Pacer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pacer{
		interval: interval,
		logger:   logger,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// IntervalForFPS converts a frame rate to an interval; fps <= 0 means unpaced.
func IntervalForFPS(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

// Start marks the beginning of a frame.
func (p *Pacer) Start() time.Time {
	return p.now()
}

// Pace sleeps until the current frame's deadline. It returns the
// processing time since start and whether the frame period was exceeded.
func (p *Pacer) Pace(start time.Time) (elapsed time.Duration, overrun bool) {
	now := p.now()
	elapsed = now.Sub(start)
	if p.interval <= 0 {
		return elapsed, false
	}

	if p.deadline.IsZero() {
		p.deadline = start
	}
	p.deadline = p.deadline.Add(p.interval)

	if wait := p.deadline.Sub(now); wait >= 0 {
		if wait > 0 {
			p.sleep(wait)
		}
		return elapsed, false
	}

	late := now.Sub(p.deadline)
	p.deadline = now
	if now.Sub(p.lastWarning) > overrunWarnEvery {
		p.logger.Warn("Cannot keep up with target frame interval",
			"elapsed", elapsed, "late", late, "interval", p.interval)
		p.lastWarning = now
	}
	return elapsed, true
}
