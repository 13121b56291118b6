package gpio

import (
	"fmt"
	"sync/atomic"
)

// Line is a logical output line index within a Bank.
type Line int

// Level is the electrical level driven onto a line.
//
// Outputs are active-low: LevelOn (0) energises the actuator,
// LevelOff (1) releases it.
type Level int

// Electrical levels for active-low outputs.
const (
	LevelOn  Level = 0
	LevelOff Level = 1
)

// NoLine is returned by Resolve for unknown roles.
const NoLine Line = -1

// Driver is the hardware edge of the output bank. Implementations set the
// physical pin backing a line. Set must be non-blocking and allocation-free:
// it is invoked from timer callbacks.
type Driver interface {
	Set(line Line, level Level)
}

// NopDriver discards all writes. Used when running without hardware
// (development, tests) — the shadow still tracks commanded state.
type NopDriver struct{}

// Set implements Driver.
func (NopDriver) Set(Line, Level) {}

// LineState is one line's entry in a Bank snapshot.
type LineState struct {
	Line  Line   `json:"line"`
	Role  string `json:"role"`
	Pin   int    `json:"pin"`
	Level Level  `json:"level"`
}

// Bank maps component roles to output lines and shadows their state.
//
// The role set and pin assignment are fixed at construction. Lines are
// dense indices 0..len-1 in declaration order.
type Bank struct {
	driver Driver
	roles  []string
	pins   []int
	index  map[string]Line
	shadow []atomic.Int32
}

// RoleMap describes the bank layout: role name to physical pin number, in a
// stable order. Pin numbers are opaque to this package; they exist for
// telemetry and for the Driver.
type RoleMap []RolePin

// RolePin is one role→pin assignment.
type RolePin struct {
	Role string
	Pin  int
}

// DefaultRoles is the appliance's wiring: the roles a cycle description may
// reference, with the controller board's pin assignment.
func DefaultRoles() RoleMap {
	return RoleMap{
		{Role: "Retractor", Pin: 7},
		{Role: "Detergent Valve", Pin: 8},
		{Role: "Cold Valve", Pin: 5},
		{Role: "Drain Pump", Pin: 19},
		{Role: "Hot Valve", Pin: 9},
		{Role: "Soft Valve", Pin: 18},
		{Role: "Motor", Pin: 4},
		{Role: "Motor Direction", Pin: 10},
	}
}

// MotorRole and MotorDirectionRole are the roles the timeline builder needs
// to address directly when expanding motor patterns.
const (
	MotorRole          = "Motor"
	MotorDirectionRole = "Motor Direction"
)

// NewBank creates a Bank over the given role map.
//
// All lines start at LevelOff (actuators released) and the driver is told
// so, matching power-on behaviour of the appliance.
//
// Parameters:
//   - roles: Role→pin layout (use DefaultRoles for the stock appliance)
//   - driver: Hardware driver (nil means NopDriver)
//
// Returns:
//   - *Bank: Initialised bank with every line off
//   - error: If the role map is empty or contains duplicates
func NewBank(roles RoleMap, driver Driver) (*Bank, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("gpio: empty role map")
	}
	if driver == nil {
		driver = NopDriver{}
	}

	b := &Bank{
		driver: driver,
		roles:  make([]string, len(roles)),
		pins:   make([]int, len(roles)),
		index:  make(map[string]Line, len(roles)),
		shadow: make([]atomic.Int32, len(roles)),
	}

	for i, rp := range roles {
		if _, dup := b.index[rp.Role]; dup {
			return nil, fmt.Errorf("gpio: duplicate role %q", rp.Role)
		}
		b.roles[i] = rp.Role
		b.pins[i] = rp.Pin
		b.index[rp.Role] = Line(i)
		b.shadow[i].Store(int32(LevelOff))
		driver.Set(Line(i), LevelOff)
	}

	return b, nil
}

// Resolve maps a component role to its output line.
//
// Returns NoLine and false for unknown roles; callers treat this as
// non-fatal and skip the component.
func (b *Bank) Resolve(role string) (Line, bool) {
	line, ok := b.index[role]
	if !ok {
		return NoLine, false
	}
	return line, true
}

// Set drives a line to the given level and updates the shadow.
//
// Safe to call from timer goroutines: one atomic store plus the driver
// write, no allocation, no locks.
func (b *Bank) Set(line Line, level Level) {
	if line < 0 || int(line) >= len(b.shadow) {
		return
	}
	b.driver.Set(line, level)
	b.shadow[line].Store(int32(level))
}

// Get returns the last commanded level of a line.
func (b *Bank) Get(line Line) Level {
	if line < 0 || int(line) >= len(b.shadow) {
		return LevelOff
	}
	return Level(b.shadow[line].Load())
}

// AllOff releases every actuator. Used by skip/stop paths to leave the
// machine in a safe state.
func (b *Bank) AllOff() {
	for i := range b.shadow {
		b.Set(Line(i), LevelOff)
	}
}

// Lines returns the number of lines in the bank.
func (b *Bank) Lines() int {
	return len(b.roles)
}

// Snapshot returns a copy of every line's role, pin and current level,
// ordered by line index. Safe for concurrent use with Set.
func (b *Bank) Snapshot() []LineState {
	states := make([]LineState, len(b.shadow))
	for i := range b.shadow {
		states[i] = LineState{
			Line:  Line(i),
			Role:  b.roles[i],
			Pin:   b.pins[i],
			Level: Level(b.shadow[i].Load()),
		}
	}
	return states
}
