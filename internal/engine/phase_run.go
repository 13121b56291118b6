package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/washcycle-core/internal/cycle"
)

// minTimerDelay is the floor for computed delays. A non-positive delay means
// the event is already late; fire it as soon as possible rather than drop it.
const minTimerDelay = time.Millisecond

// phaseRun owns the execution state of one running phase: the expanded
// event list, the live timers for the current batch, and the boundary
// timer that chains batches.
//
// At most batchSize event timers are live at any instant, regardless of
// how many events the phase contains. Timer callbacks only write outputs,
// decrement the remaining counter and send on the signal channel — they
// never allocate or touch the timer slice; all timer bookkeeping happens
// on the driving goroutine under mu.
type phaseRun struct {
	clock   Clock
	outputs Outputs
	logger  Logger

	events    []cycle.TimelineEvent
	batchSize int
	buffer    time.Duration

	started time.Time

	mu       sync.Mutex
	timers   []Timer // live handles for the current batch, len <= batchSize
	boundary Timer
	batch    int
	batches  int

	remaining atomic.Int64
	active    atomic.Bool

	// signal is sent by the boundary timer callback when the current
	// batch's events should all have fired. Buffered so the callback
	// never blocks; the driving goroutine consumes it.
	signal chan struct{}
}

func newPhaseRun(events []cycle.TimelineEvent, batchSize int, buffer time.Duration, clock Clock, outputs Outputs, logger Logger) *phaseRun {
	if batchSize < 1 {
		batchSize = 1
	}
	return &phaseRun{
		clock:     clock,
		outputs:   outputs,
		logger:    logger,
		events:    events,
		batchSize: batchSize,
		buffer:    buffer,
		signal:    make(chan struct{}, 1),
	}
}

// start records the phase start time and schedules the first batch.
// A phase with no events completes immediately.
func (r *phaseRun) start() {
	r.started = r.clock.Now()
	r.remaining.Store(int64(len(r.events)))
	r.batches = (len(r.events) + r.batchSize - 1) / r.batchSize

	if len(r.events) == 0 {
		return
	}
	r.active.Store(true)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadBatch(0)
}

// isActive reports whether events are still outstanding.
func (r *phaseRun) isActive() bool { return r.active.Load() }

// eventsRemaining returns the count of events not yet fired.
func (r *phaseRun) eventsRemaining() int64 { return r.remaining.Load() }

// startedAt returns the phase start time.
func (r *phaseRun) startedAt() time.Time { return r.started }

// liveTimers returns the number of live event timers. Test hook.
func (r *phaseRun) liveTimers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// advance tears down the current batch's timers and schedules the next
// batch. Called by the driving goroutine after a boundary signal. Returns
// false when no batches remain.
func (r *phaseRun) advance() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active.Load() {
		return false
	}

	r.stopBatchLocked()
	r.batch++
	if r.batch >= r.batches {
		return false
	}
	r.loadBatch(r.batch)
	return true
}

// loadBatch creates one-shot timers for every event in batch i.
//
// Delays are computed against elapsed time since phase start, never against
// the raw fire time: a batch loaded at start+Δ schedules its events at
// fire_time−Δ. Mutex must be held.
func (r *phaseRun) loadBatch(i int) {
	elapsed := r.clock.Now().Sub(r.started)

	lo := i * r.batchSize
	hi := min(lo+r.batchSize, len(r.events))

	var last time.Duration
	for _, ev := range r.events[lo:hi] {
		ev := ev
		delay := ev.FireTime - elapsed
		if delay < minTimerDelay {
			delay = minTimerDelay
		}
		r.timers = append(r.timers, r.clock.AfterFunc(delay, func() { r.fire(ev) }))
		if ev.FireTime > last {
			last = ev.FireTime
		}
	}

	// Boundary delay derives from the latest fire time in the batch, not
	// the last event by array index: timeline events are emitted in
	// declaration order and are not globally time-sorted. No boundary
	// after the final batch; completion is tracked by the event counter.
	if i+1 < r.batches {
		delay := last - elapsed + r.buffer
		if delay < minTimerDelay {
			delay = minTimerDelay
		}
		r.boundary = r.clock.AfterFunc(delay, r.signalBoundary)
	}
}

// fire is the event dispatcher: runs on a timer goroutine, writes the
// output and decrements the completion counter. Marking the phase inactive
// happens exactly once, when the counter reaches zero.
func (r *phaseRun) fire(ev cycle.TimelineEvent) {
	r.outputs.Set(ev.Line, ev.Level)
	if r.remaining.Add(-1) == 0 {
		r.active.Store(false)
	}
}

// signalBoundary wakes the driving goroutine. Runs on a timer goroutine;
// must not allocate or touch timer state.
func (r *phaseRun) signalBoundary() {
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// sweep cancels all live timers and marks the phase inactive. Idempotent;
// called by skip/stop and unconditionally between phases as a guard
// against leaked handles.
func (r *phaseRun) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopBatchLocked()
	if r.boundary != nil {
		r.boundary.Stop()
		r.boundary = nil
	}
	r.batch = r.batches
	r.active.Store(false)

	select {
	case <-r.signal:
	default:
	}
}

// stopBatchLocked stops and releases the current batch's timer handles.
// Mutex must be held.
func (r *phaseRun) stopBatchLocked() {
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = r.timers[:0]
	if r.boundary != nil {
		r.boundary.Stop()
		r.boundary = nil
	}
}
