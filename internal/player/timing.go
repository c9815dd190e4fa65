package player

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Timer is a pending frame that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler arranges for fn to run on the next frame.
type Scheduler interface {
	AfterFrame(fn func()) Timer
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// WallClock returns a Clock backed by time.Now.
func WallClock() Clock { return wallClock{} }

type frameScheduler struct {
	interval time.Duration
}

// NewFrameScheduler returns a Scheduler that runs each frame after interval
// on its own goroutine.
func NewFrameScheduler(interval time.Duration) Scheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return frameScheduler{interval: interval}
}

func (s frameScheduler) AfterFrame(fn func()) Timer {
	return time.AfterFunc(s.interval, fn)
}

// DefaultFrameInterval is used when no scheduler is supplied.
const DefaultFrameInterval = 250 * time.Millisecond
