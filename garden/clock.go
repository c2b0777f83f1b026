package garden

import (
	"context"
	"time"
)

// Clock steps a session through simulated time. Frames and sweeps fire in
// chronological order; a frame due at the same instant as a sweep runs
// first so hit detection sees the freshest eased positions.
type Clock struct {
	s *Session

	frameEvery time.Duration
	sweepEvery time.Duration

	now       time.Duration
	nextFrame time.Duration
	nextSweep time.Duration
}

func NewClock(s *Session) *Clock {
	cfg := s.Config()
	return &Clock{
		s:          s,
		frameEvery: cfg.FrameInterval,
		sweepEvery: cfg.SweepInterval,
		nextFrame:  cfg.FrameInterval,
		nextSweep:  cfg.SweepInterval,
	}
}

// Elapsed is the simulated time advanced so far
func (c *Clock) Elapsed() time.Duration {
	return c.now
}

// Advance runs every frame and sweep due within the next dt and returns the
// triggers fired along the way
func (c *Clock) Advance(dt time.Duration) []Trigger {
	end := c.now + dt
	var fired []Trigger
	for {
		switch {
		case c.nextFrame <= end && c.nextFrame <= c.nextSweep:
			c.now = c.nextFrame
			c.s.Frame()
			c.nextFrame += c.frameEvery
		case c.nextSweep <= end:
			c.now = c.nextSweep
			fired = append(fired, c.s.Sweep()...)
			c.nextSweep += c.sweepEvery
		default:
			c.now = end
			return fired
		}
	}
}

// Loop drives a Clock from one wall-clock ticker on a single goroutine, so
// headless runs keep the frame-before-sweep order
type Loop struct {
	clock *Clock
}

func NewLoop(s *Session) *Loop {
	return &Loop{clock: NewClock(s)}
}

// Run advances the clock by the wall time between ticks until ctx is done.
// The ticker is stopped before Run returns. A slow tick is caught up on the
// next one rather than overlapping it.
func (l *Loop) Run(ctx context.Context) error {
	cfg := l.clock.s.Config()
	ticker := time.NewTicker(min(cfg.FrameInterval, cfg.SweepInterval))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			l.clock.Advance(now.Sub(last))
			last = now
		}
	}
}
