package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/washcycle-core/internal/cycle"
	"github.com/nerrad567/washcycle-core/internal/gpio"
	"github.com/nerrad567/washcycle-core/internal/sensor"
)

// Defaults for engine tuning knobs.
const (
	// DefaultBatchSize bounds concurrently-live event timers per phase.
	DefaultBatchSize = 200

	// DefaultPollInterval is the sleep between trigger/skip checks while
	// a phase runs. Skip and stop requests are observed within one
	// interval at worst.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultBoundaryBuffer pads the boundary timer past the batch's
	// latest fire time so event timers win the race.
	DefaultBoundaryBuffer = 50 * time.Millisecond
)

// Skip targets stored in Engine.target. Non-negative values are phase
// indices requested by SkipToPhase.
const (
	targetNone int64 = -1
	targetStop int64 = -2
)

// Outputs is the interface the engine needs from the gpio bank: role
// resolution for the timeline builder, level writes for the dispatcher,
// and the all-off sweep for skip/stop.
type Outputs interface {
	Resolve(role string) (gpio.Line, bool)
	Set(line gpio.Line, level gpio.Level)
	AllOff()
}

// Broadcaster is the interface for pushing state events to WebSocket
// clients.
type Broadcaster interface {
	// Broadcast sends an event to all clients subscribed to the channel.
	Broadcast(channel string, payload any)
}

// Logger is the minimal logging interface the engine needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the engine's collaborators and tuning knobs.
type Deps struct {
	Outputs Outputs       // required
	Sensors sensor.Source // required
	Clock   Clock         // nil means the real clock
	Hub     Broadcaster   // may be nil
	Logger  Logger        // nil means no-op

	BatchSize      int           // 0 means DefaultBatchSize
	PollInterval   time.Duration // 0 means DefaultPollInterval
	Cooldown       time.Duration // 0 means DefaultCooldown
	BoundaryBuffer time.Duration // 0 means DefaultBoundaryBuffer
}

// Status is a read-only snapshot of engine state for telemetry and the
// control API.
type Status struct {
	Running         bool   `json:"running"`
	CycleID         string `json:"cycle_id,omitempty"`
	CycleName       string `json:"cycle_name,omitempty"`
	PhaseIndex      int    `json:"phase_index"`
	PhaseID         string `json:"phase_id,omitempty"`
	PhaseName       string `json:"phase_name,omitempty"`
	PhaseCount      int    `json:"phase_count"`
	EventsRemaining int64  `json:"events_remaining"`
}

// Engine executes a loaded cycle: one phase at a time, each phase expanded
// to a timeline and scheduled in bounded batches, with live skip/stop and
// sensor-triggered early phase termination.
//
// Thread Safety: all exported methods are safe for concurrent use. A
// single background goroutine drives execution; timer callbacks write
// outputs but never touch scheduling state.
type Engine struct {
	outputs Outputs
	sensors sensor.Source
	clock   Clock
	hub     Broadcaster
	logger  Logger

	trig           triggerMonitor
	batchSize      int
	pollInterval   time.Duration
	boundaryBuffer time.Duration

	// target carries pending skip-to/stop requests to the driving
	// goroutine: targetNone, targetStop, or a phase index.
	target atomic.Int64

	mu       sync.Mutex
	cyc      *cycle.Cycle
	latched  []bool // per-phase trigger latches, reset on Load
	run      *phaseRun
	running  bool
	phaseIdx int
	done     chan struct{}
}

// New creates an engine over the given collaborators.
//
// Parameters:
//   - deps: Collaborators and tuning; Outputs and Sensors are required
//
// Returns:
//   - *Engine: Idle engine with no cycle loaded
//   - error: If a required collaborator is missing
func New(deps Deps) (*Engine, error) {
	if deps.Outputs == nil {
		return nil, fmt.Errorf("engine: outputs required")
	}
	if deps.Sensors == nil {
		return nil, fmt.Errorf("engine: sensors required")
	}
	if deps.Clock == nil {
		deps.Clock = NewClock()
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = DefaultPollInterval
	}
	if deps.Cooldown <= 0 {
		deps.Cooldown = DefaultCooldown
	}
	if deps.BoundaryBuffer <= 0 {
		deps.BoundaryBuffer = DefaultBoundaryBuffer
	}

	e := &Engine{
		outputs: deps.Outputs,
		sensors: deps.Sensors,
		clock:   deps.Clock,
		hub:     deps.Hub,
		logger:  deps.Logger,
		trig: triggerMonitor{
			clock:    deps.Clock,
			sensors:  deps.Sensors,
			cooldown: deps.Cooldown,
		},
		batchSize:      deps.BatchSize,
		pollInterval:   deps.PollInterval,
		boundaryBuffer: deps.BoundaryBuffer,
	}
	e.target.Store(targetNone)
	return e, nil
}

// Load installs a cycle for execution and resets all trigger latches.
// Rejected while a cycle is running; the previous cycle stays loaded if
// validation fails.
//
// Returns:
//   - int: Number of phases in the loaded cycle
//   - error: ErrCycleRunning, or a validation error from the cycle package
func (e *Engine) Load(c *cycle.Cycle) (int, error) {
	if c == nil {
		return 0, cycle.ErrNoPhases
	}
	if err := c.Validate(); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return 0, ErrCycleRunning
	}

	e.cyc = c
	e.latched = make([]bool, len(c.Phases))
	e.phaseIdx = 0

	e.logger.Info("cycle loaded", "cycle", c.Name, "phases", len(c.Phases))
	return len(c.Phases), nil
}

// Run begins background execution of the loaded cycle. Non-blocking;
// execution continues until the cycle completes, Stop is called, or ctx
// is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cyc == nil {
		return ErrNoCycle
	}
	if e.running {
		return ErrAlreadyRunning
	}

	e.running = true
	e.phaseIdx = 0
	e.target.Store(targetNone)
	e.done = make(chan struct{})

	go e.loop(ctx, e.cyc, e.done)
	return nil
}

// Stop ends the running cycle. The phase loop exits rather than advancing;
// live timers are cancelled synchronously. No-op when idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	r := e.run
	e.mu.Unlock()

	e.target.Store(targetStop)
	if r != nil {
		r.sweep()
	}
}

// SkipCurrentPhase cancels the active phase's timers and lets the cycle
// advance to the next phase. Idempotent: a no-op when no phase is active.
//
// Parameters:
//   - forceOutputsOff: Also drive every output to its safe level
func (e *Engine) SkipCurrentPhase(forceOutputsOff bool) {
	e.mu.Lock()
	r := e.run
	e.mu.Unlock()

	if r == nil {
		return
	}
	r.sweep()
	if forceOutputsOff {
		e.outputs.AllOff()
	}
	e.logger.Info("phase skipped", "force_outputs_off", forceOutputsOff)
}

// SkipToPhase cancels the active phase and resumes execution at the given
// phase index. Out-of-range indices are rejected without disturbing the
// running phase.
func (e *Engine) SkipToPhase(index int) error {
	e.mu.Lock()
	phases := 0
	if e.cyc != nil {
		phases = len(e.cyc.Phases)
	}
	r := e.run
	e.mu.Unlock()

	if index < 0 || index >= phases {
		e.logger.Warn("skip-to-phase ignored", "index", index, "phases", phases)
		return fmt.Errorf("%w: %d (cycle has %d phases)", ErrInvalidPhaseIndex, index, phases)
	}

	e.target.Store(int64(index))
	if r != nil {
		r.sweep()
	}
	return nil
}

// IsRunning reports whether a cycle is executing.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Snapshot returns the current engine state.
func (e *Engine) Snapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		Running:    e.running,
		PhaseIndex: e.phaseIdx,
	}
	if e.cyc != nil {
		s.CycleID = e.cyc.ID
		s.CycleName = e.cyc.Name
		s.PhaseCount = len(e.cyc.Phases)
		if e.phaseIdx >= 0 && e.phaseIdx < len(e.cyc.Phases) {
			s.PhaseID = e.cyc.Phases[e.phaseIdx].ID
			s.PhaseName = e.cyc.Phases[e.phaseIdx].Name
		}
	}
	if e.run != nil {
		s.EventsRemaining = e.run.eventsRemaining()
	}
	return s
}

// Close stops any running cycle and waits for the driving goroutine to
// exit.
func (e *Engine) Close() {
	e.Stop()

	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// loop is the phase/cycle state machine, run on its own goroutine.
func (e *Engine) loop(ctx context.Context, c *cycle.Cycle, done chan struct{}) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.run = nil
		e.mu.Unlock()
		close(done)
		e.broadcastState()
	}()

	warn := func(format string, args ...any) {
		e.logger.Warn(fmt.Sprintf(format, args...))
	}

	idx := 0
	for idx < len(c.Phases) {
		phase := &c.Phases[idx]

		events := cycle.BuildTimeline(phase, e.outputs, 0, warn)
		run := newPhaseRun(events, e.batchSize, e.boundaryBuffer, e.clock, e.outputs, e.logger)

		e.mu.Lock()
		e.phaseIdx = idx
		e.run = run
		e.mu.Unlock()

		e.logger.Info("phase started",
			"phase", phase.ID,
			"index", idx,
			"events", len(events),
		)
		e.broadcastState()

		run.start()
		stopped := e.drivePhase(ctx, idx, phase, run)

		// Unconditional re-sweep between phases, even after normal
		// completion. Guards against leaked timer handles.
		run.sweep()

		e.mu.Lock()
		e.run = nil
		e.mu.Unlock()

		if stopped {
			e.logger.Info("cycle stopped", "cycle", c.Name, "phase", phase.ID)
			return
		}

		switch t := e.target.Swap(targetNone); {
		case t == targetStop:
			e.logger.Info("cycle stopped", "cycle", c.Name, "phase", phase.ID)
			return
		case t >= 0:
			idx = int(t)
		default:
			idx++
		}
	}

	e.logger.Info("cycle complete", "cycle", c.Name)
}

// drivePhase blocks until the phase completes, a skip/stop request
// arrives, or the sensor trigger fires. It consumes boundary signals to
// advance batches and falls back to a fixed poll so a lost signal cannot
// stall the phase. Returns true if ctx was cancelled.
func (e *Engine) drivePhase(ctx context.Context, idx int, phase *cycle.Phase, run *phaseRun) bool {
	for run.isActive() {
		if e.target.Load() != targetNone {
			run.sweep()
			return false
		}

		if t := phase.Trigger; t != nil && !e.latchedAt(idx) && e.trig.satisfied(t, run.startedAt()) {
			e.setLatched(idx)
			e.logger.Info("sensor trigger fired",
				"phase", phase.ID,
				"kind", string(t.Kind),
				"threshold", t.Threshold,
			)
			run.sweep()
			return false
		}

		select {
		case <-ctx.Done():
			run.sweep()
			return true
		case <-run.signal:
			run.advance()
		case <-after(e.clock, e.pollInterval):
		}
	}
	return false
}

func (e *Engine) latchedAt(idx int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return idx < len(e.latched) && e.latched[idx]
}

func (e *Engine) setLatched(idx int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx < len(e.latched) {
		e.latched[idx] = true
	}
}

func (e *Engine) broadcastState() {
	if e.hub == nil {
		return
	}
	e.hub.Broadcast("cycle.state", e.Snapshot())
}
