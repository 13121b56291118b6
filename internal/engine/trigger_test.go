package engine

import (
	"testing"
	"time"

	"github.com/nerrad567/washcycle-core/internal/cycle"
	"github.com/nerrad567/washcycle-core/internal/sensor"
)

func TestTriggerCooldownSuppressesEarlyFire(t *testing.T) {
	clock := newManualClock()
	src := sensor.Static{RPMValue: 1200} // already past the threshold
	mon := &triggerMonitor{clock: clock, sensors: src, cooldown: 15 * time.Second}

	trig := &cycle.SensorTrigger{Kind: cycle.SensorRPM, Threshold: 800, Above: true}
	start := clock.Now()

	if mon.satisfied(trig, start) {
		t.Error("trigger fired at t=0, inside cooldown")
	}

	clock.Advance(14 * time.Second)
	if mon.satisfied(trig, start) {
		t.Error("trigger fired at t=14s, inside cooldown")
	}

	clock.Advance(2 * time.Second)
	if !mon.satisfied(trig, start) {
		t.Error("trigger did not fire after cooldown with condition satisfied")
	}
}

func TestTriggerComparisonDirections(t *testing.T) {
	clock := newManualClock()
	clockPastCooldown := func() time.Time {
		// Start far enough in the past that cooldown never suppresses.
		return clock.Now().Add(-time.Minute)
	}

	tests := []struct {
		name      string
		rpm, freq float64
		trig      cycle.SensorTrigger
		want      bool
	}{
		{"rpm above satisfied", 900, 0, cycle.SensorTrigger{Kind: cycle.SensorRPM, Threshold: 800, Above: true}, true},
		{"rpm above not satisfied", 700, 0, cycle.SensorTrigger{Kind: cycle.SensorRPM, Threshold: 800, Above: true}, false},
		{"rpm below satisfied", 700, 0, cycle.SensorTrigger{Kind: cycle.SensorRPM, Threshold: 800, Above: false}, true},
		{"pressure above satisfied", 0, 25.5, cycle.SensorTrigger{Kind: cycle.SensorPressure, Threshold: 22, Above: true}, true},
		{"pressure below not satisfied", 0, 25.5, cycle.SensorTrigger{Kind: cycle.SensorPressure, Threshold: 22, Above: false}, false},
		{"threshold equality is not a fire", 800, 0, cycle.SensorTrigger{Kind: cycle.SensorRPM, Threshold: 800, Above: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mon := &triggerMonitor{
				clock:    clock,
				sensors:  sensor.Static{RPMValue: tt.rpm, PressureValue: tt.freq},
				cooldown: 15 * time.Second,
			}
			trig := tt.trig
			if got := mon.satisfied(&trig, clockPastCooldown()); got != tt.want {
				t.Errorf("satisfied = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTriggerUnknownKindNeverFires(t *testing.T) {
	clock := newManualClock()
	mon := &triggerMonitor{clock: clock, sensors: sensor.Static{RPMValue: 9999, PressureValue: 9999}, cooldown: 0}

	trig := &cycle.SensorTrigger{Kind: "Seismometer", Threshold: 1, Above: true}
	if mon.satisfied(trig, clock.Now().Add(-time.Minute)) {
		t.Error("unknown sensor kind should never fire")
	}
}
