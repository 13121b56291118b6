package mqtt

import "fmt"

// Topic prefixes for the Washcycle MQTT hierarchy.
//
// All topics live under a single appliance prefix: washcycle/{category}/...
// The hierarchy carries telemetry and cycle state outwards, and commands
// and live sensor readings inwards.
const (
	// TopicPrefix is the base for all Washcycle topics.
	TopicPrefix = "washcycle"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "washcycle/system"

	// TopicPrefixCycle is the base for cycle execution topics.
	TopicPrefixCycle = "washcycle/cycle"

	// TopicPrefixSensor is the base for inbound sensor readings.
	TopicPrefixSensor = "washcycle/sensor"
)

// Topics provides builders for Washcycle MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.CycleState()
//	// Returns: "washcycle/cycle/state"
type Topics struct{}

// SystemStatus returns the system status topic. Online/offline payloads
// (including the LWT) are published here, retained.
//
// Example: washcycle/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// Telemetry returns the topic for periodic telemetry packets: output
// shadow states, sensor readings and engine status.
//
// Example: washcycle/telemetry
func (Topics) Telemetry() string {
	return fmt.Sprintf("%s/telemetry", TopicPrefix)
}

// CycleState returns the topic for cycle state transitions (phase
// started, cycle complete, stopped).
//
// Example: washcycle/cycle/state
func (Topics) CycleState() string {
	return fmt.Sprintf("%s/state", TopicPrefixCycle)
}

// CycleCommand returns the topic for inbound cycle commands
// (start, stop, skip, skip-to).
//
// Example: washcycle/cycle/command
func (Topics) CycleCommand() string {
	return fmt.Sprintf("%s/command", TopicPrefixCycle)
}

// SensorRPM returns the topic for inbound drum speed readings.
//
// Example: washcycle/sensor/rpm
func (Topics) SensorRPM() string {
	return fmt.Sprintf("%s/rpm", TopicPrefixSensor)
}

// SensorPressure returns the topic for inbound pressure frequency
// readings.
//
// Example: washcycle/sensor/pressure
func (Topics) SensorPressure() string {
	return fmt.Sprintf("%s/pressure", TopicPrefixSensor)
}

// AllSensors returns a pattern matching all inbound sensor readings.
//
// Pattern: washcycle/sensor/+
func (Topics) AllSensors() string {
	return fmt.Sprintf("%s/+", TopicPrefixSensor)
}

// AllTopics returns a pattern matching all Washcycle topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: washcycle/#
func (Topics) AllTopics() string {
	return "washcycle/#"
}
