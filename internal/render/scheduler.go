package render

import (
	"context"
	"time"
)

// DefaultFrameRate is the number of frames per second used by the ticker scheduler
// when no explicit rate is configured.
const DefaultFrameRate = 60

// Scheduler drives a cooperative pass. Run calls frame once per slot until frame
// reports there is no more work or ctx is done. Frames are never run concurrently.
type Scheduler interface {
	Run(ctx context.Context, frame func() bool) error
}

// TickerScheduler yields between frames and resumes on the next tick of a fixed
// frame-rate clock.
type TickerScheduler struct {
	interval time.Duration
}

// NewTickerScheduler creates a scheduler ticking every interval. A non-positive
// interval falls back to DefaultFrameRate.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = time.Second / DefaultFrameRate
	}
	return &TickerScheduler{interval: interval}
}

func (s *TickerScheduler) Interval() time.Duration {
	return s.interval
}

func (s *TickerScheduler) Run(ctx context.Context, frame func() bool) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if !frame() {
				return nil
			}
		}
	}
}

// ImmediateScheduler runs frames back to back without suspending. It still
// honours cancellation between frames.
type ImmediateScheduler struct{}

func (ImmediateScheduler) Run(ctx context.Context, frame func() bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !frame() {
			return nil
		}
	}
}
