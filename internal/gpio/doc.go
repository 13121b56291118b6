// Package gpio models the appliance's output lines.
//
// The appliance has a small fixed set of actuators (valves, pumps, a
// reversible motor) wired active-low: driving a line to level 0 energises
// the actuator, level 1 releases it. The Bank maps component roles to
// lines, forwards level changes to a hardware Driver, and keeps a shadow
// copy of every line's last commanded level.
//
// # Thread Safety
//
// Bank.Set is called from timer goroutines while Snapshot and AllOff run
// from the control task, so the shadow uses per-line atomics. Everything
// else on the Bank is immutable after construction.
package gpio
