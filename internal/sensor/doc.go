// Package sensor defines the reading contracts for the appliance's live
// sensors: drum RPM and the pressure-switch frequency.
//
// The engine and telemetry collector only ever ask for a current scalar
// reading; how the value is produced (pulse counting on hardware, MQTT
// feed from an external acquisition board, a fixture in tests) is behind
// the Source interface.
package sensor
