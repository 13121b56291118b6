package engine

import (
	"sort"
	"sync"
	"time"
)

// manualClock is a deterministic Clock for tests. Advance moves time
// forward and fires due callbacks synchronously, in deadline order. It
// records every requested delay and tracks the peak number of live
// timers.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer

	live   int
	peak   int
	delays []time.Duration
}

type manualTimer struct {
	clock   *manualClock
	when    time.Time
	f       func()
	fired   bool
	stopped bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &manualTimer{clock: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	c.delays = append(c.delays, d)
	c.live++
	if c.live > c.peak {
		c.peak = c.live
	}
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	t.clock.live--
	return true
}

// Advance moves the clock forward by d, firing every pending timer whose
// deadline falls within the window, in deadline order. Callbacks run with
// the clock set to their deadline, matching real timer behaviour.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.when.After(target) {
				continue
			}
			if next == nil || t.when.Before(next.when) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.live--
		c.now = next.when
		f := next.f
		c.mu.Unlock()

		f()
	}
}

// peakLive returns the highest concurrent live-timer count observed.
func (c *manualClock) peakLive() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peak
}

// requestedDelays returns a copy of every delay passed to AfterFunc, in
// call order.
func (c *manualClock) requestedDelays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.delays))
	copy(out, c.delays)
	return out
}

// pendingDeadlines returns the deadlines of unfired, unstopped timers in
// ascending order. Test hook for inspecting scheduled work.
func (c *manualClock) pendingDeadlines() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []time.Time
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			out = append(out, t.when)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
