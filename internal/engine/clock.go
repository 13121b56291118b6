package engine

import "time"

// Timer is a one-shot timer handle. Stop reports whether the timer was
// stopped before firing.
type Timer interface {
	Stop() bool
}

// Clock abstracts time for the scheduler so tests can drive batch
// transitions deterministically without sleeping.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules f to run in its own goroutine after d.
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NewClock returns the real-time clock.
func NewClock() Clock { return wallClock{} }

// after adapts AfterFunc to a channel for use in select loops. The channel
// is buffered so the callback never blocks.
func after(clock Clock, d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	clock.AfterFunc(d, func() { ch <- clock.Now() })
	return ch
}
