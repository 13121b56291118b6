package sensor

import "sync"

// Source provides current scalar readings for the appliance's sensors.
//
// Implementations must be safe for concurrent use: the engine's trigger
// monitor and the telemetry collector both poll from their own goroutines.
type Source interface {
	// RPM returns the current drum speed in revolutions per minute.
	RPM() float64

	// PressureFrequency returns the pressure switch output frequency in Hz.
	// The water-level sensor encodes pressure as a frequency; thresholds in
	// cycle descriptions are expressed in the same unit.
	PressureFrequency() float64

	// Reset clears any accumulated state. Called before a cycle starts so
	// the first readings of a run are not polluted by the previous one.
	Reset()
}

// Readings is a thread-safe Source fed externally, typically from the MQTT
// sensor topics or from an in-process acquisition goroutine.
type Readings struct {
	mu       sync.RWMutex
	rpm      float64
	pressure float64
}

// NewReadings returns a Readings with both values at zero.
func NewReadings() *Readings {
	return &Readings{}
}

// RPM implements Source.
func (r *Readings) RPM() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rpm
}

// PressureFrequency implements Source.
func (r *Readings) PressureFrequency() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pressure
}

// Reset implements Source.
func (r *Readings) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rpm = 0
	r.pressure = 0
}

// SetRPM records a new drum speed reading.
func (r *Readings) SetRPM(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rpm = v
}

// SetPressureFrequency records a new pressure frequency reading.
func (r *Readings) SetPressureFrequency(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pressure = v
}

// Static is a fixed Source for tests and fixtures.
type Static struct {
	RPMValue      float64
	PressureValue float64
}

// RPM implements Source.
func (s Static) RPM() float64 { return s.RPMValue }

// PressureFrequency implements Source.
func (s Static) PressureFrequency() float64 { return s.PressureValue }

// Reset implements Source.
func (Static) Reset() {}
