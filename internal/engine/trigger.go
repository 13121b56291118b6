package engine

import (
	"time"

	"github.com/nerrad567/washcycle-core/internal/cycle"
	"github.com/nerrad567/washcycle-core/internal/sensor"
)

// DefaultCooldown is how long after phase start sensor triggers are
// ignored. Actuator transients (fill surge, motor spin-up) produce
// readings that would satisfy most thresholds immediately.
const DefaultCooldown = 15 * time.Second

// triggerMonitor evaluates a phase's sensor trigger against live readings.
//
// The fired-once latch is not held here: it belongs to the engine, per
// phase, and resets only when a cycle is (re)loaded.
type triggerMonitor struct {
	clock    Clock
	sensors  sensor.Source
	cooldown time.Duration
}

// satisfied reports whether the trigger condition currently holds.
// Always false inside the cooldown window following phaseStart.
func (m *triggerMonitor) satisfied(t *cycle.SensorTrigger, phaseStart time.Time) bool {
	if m.clock.Now().Sub(phaseStart) < m.cooldown {
		return false
	}

	var reading float64
	switch t.Kind {
	case cycle.SensorRPM:
		reading = m.sensors.RPM()
	case cycle.SensorPressure:
		reading = m.sensors.PressureFrequency()
	default:
		return false
	}

	if t.Above {
		return reading > t.Threshold
	}
	return reading < t.Threshold
}
