package cycle

import (
	"time"

	"github.com/nerrad567/washcycle-core/internal/gpio"
)

// Resolver maps a component role to an output line. Satisfied by
// *gpio.Bank.
type Resolver interface {
	Resolve(role string) (gpio.Line, bool)
}

// WarnFunc receives non-fatal timeline-building problems (unknown roles,
// capacity truncation). May be nil.
type WarnFunc func(format string, args ...any)

// BuildTimeline expands one phase into a flat list of absolutely-timed
// output events.
//
// Components are walked in declaration order. A simple component emits an
// ON event at StartTime+Start and an OFF event Duration later. A motor
// component emits, for each pattern step of each repetition, a
// direction-set event and a motor-ON event at the step's cursor time and a
// motor-OFF event StepTime later; the cursor then advances by
// StepTime+PauseTime.
//
// Components whose role cannot be resolved are skipped with a warning.
// Output is hard-capped at capacity: once reached, remaining events are
// silently dropped (after a single warning). The result preserves
// declaration order and is NOT time-sorted; callers scheduling batches
// must derive batch boundaries from the maximum fire time, not the last
// element.
//
// Parameters:
//   - phase: The phase to expand
//   - outputs: Role→line resolution (the gpio bank)
//   - capacity: Hard cap on emitted events (<=0 means MaxEventsPerPhase)
//   - warn: Optional sink for non-fatal problems
//
// Returns:
//   - []TimelineEvent: The expanded timeline, len <= capacity
func BuildTimeline(phase *Phase, outputs Resolver, capacity int, warn WarnFunc) []TimelineEvent {
	if capacity <= 0 {
		capacity = MaxEventsPerPhase
	}
	if warn == nil {
		warn = func(string, ...any) {}
	}

	events := make([]TimelineEvent, 0, minInt(capacity, 2*len(phase.Components)))
	full := false
	emit := func(ev TimelineEvent) {
		if len(events) >= capacity {
			if !full {
				warn("phase %q timeline reached capacity %d, remaining events dropped", phase.ID, capacity)
				full = true
			}
			return
		}
		events = append(events, ev)
	}

	for i := range phase.Components {
		comp := &phase.Components[i]

		if comp.Kind() == KindMotor {
			appendMotorEvents(phase, comp, outputs, emit, warn)
			continue
		}

		line, ok := outputs.Resolve(comp.Role)
		if !ok {
			warn("phase %q: unknown component role %q, skipped", phase.ID, comp.Role)
			continue
		}

		on := phase.StartTime + comp.Start
		emit(TimelineEvent{FireTime: on, Line: line, Level: gpio.LevelOn, Kind: EventOn})
		emit(TimelineEvent{FireTime: on + comp.Duration, Line: line, Level: gpio.LevelOff, Kind: EventOff})
	}

	return events
}

// appendMotorEvents expands a motor component. Three events per pattern
// step per repetition: set direction, energise, release.
func appendMotorEvents(phase *Phase, comp *Component, outputs Resolver, emit func(TimelineEvent), warn WarnFunc) {
	motorLine, okMotor := outputs.Resolve(gpio.MotorRole)
	dirLine, okDir := outputs.Resolve(gpio.MotorDirectionRole)
	if !okMotor || !okDir {
		warn("phase %q: motor roles not mapped, motor component %q skipped", phase.ID, comp.ID)
		return
	}

	cursor := phase.StartTime + comp.Start
	for r := 0; r < comp.Motor.RepeatTimes; r++ {
		for _, step := range comp.Motor.Pattern {
			emit(TimelineEvent{FireTime: cursor, Line: dirLine, Level: step.Direction.Level(), Kind: EventOn})
			emit(TimelineEvent{FireTime: cursor, Line: motorLine, Level: gpio.LevelOn, Kind: EventOn})
			emit(TimelineEvent{FireTime: cursor + step.StepTime, Line: motorLine, Level: gpio.LevelOff, Kind: EventOff})
			cursor += step.StepTime + step.PauseTime
		}
	}
}

// EventCount returns the number of timeline events the phase would expand
// to, before capacity capping. Used for load-time reporting.
func (p *Phase) EventCount() int {
	n := 0
	for i := range p.Components {
		comp := &p.Components[i]
		if comp.Kind() == KindMotor {
			n += 3 * comp.Motor.RepeatTimes * len(comp.Motor.Pattern)
		} else {
			n += 2
		}
	}
	return n
}

// MaxFireTime returns the largest fire time in a slice of events, or zero
// for an empty slice. Batch boundaries are derived from this, never from
// positional order: motor expansion interleaved with later components can
// put the chronologically-last event anywhere in the slice.
func MaxFireTime(events []TimelineEvent) time.Duration {
	var max time.Duration
	for i := range events {
		if events[i].FireTime > max {
			max = events[i].FireTime
		}
	}
	return max
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
