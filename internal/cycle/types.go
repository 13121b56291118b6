package cycle

import (
	"time"

	"github.com/nerrad567/washcycle-core/internal/gpio"
)

// Capacity limits. Oversized input is truncated, never rejected: the
// controller degrades instead of crashing mid-cycle on a bad upload.
const (
	// MaxPhases is the maximum number of phases per cycle.
	MaxPhases = 16

	// MaxComponentsPerPhase is the maximum number of components per phase.
	MaxComponentsPerPhase = 16

	// MaxPatternSteps is the maximum number of steps in one motor pattern.
	MaxPatternSteps = 64

	// MaxEventsPerPhase caps the expanded timeline of a single phase.
	// A motor component expands to 3 events per step per repetition, so
	// patterns multiply quickly.
	MaxEventsPerPhase = 2000
)

// Cycle is a complete appliance programme: an ordered list of phases.
// Immutable once loaded into the engine; replaced as a unit on reload.
type Cycle struct {
	ID     string
	Name   string
	Phases []Phase
}

// Phase is one named stage of a cycle.
type Phase struct {
	ID         string
	Name       string
	StartTime  time.Duration // offset added to every component time
	Components []Component
	Trigger    *SensorTrigger // nil if the phase runs to completion
}

// ComponentKind distinguishes the two component variants.
type ComponentKind int

// Component variants.
const (
	KindSimple ComponentKind = iota
	KindMotor
)

// Component is one controllable sub-unit's behaviour within a phase.
//
// A simple component references an output role and switches it on at
// Start for Duration. A motor component ignores Duration and instead
// expands its MotorConfig into a direction/on/off event sequence.
type Component struct {
	ID       string
	Role     string // output role, resolved against the gpio bank
	Start    time.Duration
	Duration time.Duration
	Motor    *MotorConfig // nil for simple components
}

// Kind reports whether the component is simple or a motor pattern.
func (c Component) Kind() ComponentKind {
	if c.Motor != nil {
		return KindMotor
	}
	return KindSimple
}

// Direction is the motor rotation direction for one pattern step.
type Direction string

// Motor rotation directions.
const (
	Clockwise        Direction = "cw"
	CounterClockwise Direction = "ccw"
)

// Level returns the electrical level for the direction line:
// clockwise is the relaxed level, counter-clockwise drives the line.
func (d Direction) Level() gpio.Level {
	if d == CounterClockwise {
		return gpio.Level(1)
	}
	return gpio.Level(0)
}

// MotorConfig describes a repeating motor agitation pattern.
type MotorConfig struct {
	RepeatTimes int
	Pattern     []PatternStep
}

// PatternStep is one run/pause segment of a motor pattern.
type PatternStep struct {
	StepTime  time.Duration // motor energised
	PauseTime time.Duration // motor released before the next step
	Direction Direction
}

// SensorKind identifies which sensor a trigger reads.
type SensorKind string

// Sensor kinds.
const (
	SensorRPM      SensorKind = "RPM"
	SensorPressure SensorKind = "Pressure"
)

// SensorTrigger ends a phase early when a live sensor reading crosses the
// threshold. Parsed once per load; the fired-latch lives in the engine and
// resets only when the whole cycle is reloaded.
type SensorTrigger struct {
	Kind      SensorKind
	Threshold float64
	Above     bool // true: fire when reading > threshold; false: reading < threshold
}

// EventKind is the output transition an event performs.
type EventKind int

// Event kinds.
const (
	EventOn EventKind = iota
	EventOff
)

// TimelineEvent is a single scheduled output-level change at an absolute
// offset from phase start. Events are emitted in component declaration
// order and are not globally time-sorted; each is scheduled independently
// by its own offset.
type TimelineEvent struct {
	FireTime time.Duration
	Line     gpio.Line
	Level    gpio.Level
	Kind     EventKind
}
