package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorMetric writes a single sensor measurement to InfluxDB.
//
// This is the primary method for recording sensor telemetry data.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - applianceID: Unique identifier for the appliance (e.g., "washer-001")
//   - sensor: The sensor name (e.g., "rpm", "pressure_hz")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteSensorMetric("washer-001", "rpm", 842.5)
//	client.WriteSensorMetric("washer-001", "pressure_hz", 24.1)
func (c *Client) WriteSensorMetric(applianceID string, sensor string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_metrics",
		map[string]string{
			"appliance_id": applianceID,
			"sensor":       sensor,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteOutputLevel records the level of a single output line.
//
// Used for reconstructing what the machine was physically doing at any
// point in a cycle (which valves were open, whether the drain pump ran).
//
// Parameters:
//   - applianceID: Appliance identifier
//   - role: Output role name (e.g., "Cold Valve", "Drain Pump")
//   - level: Electrical level (0 = energised for active-low outputs)
func (c *Client) WriteOutputLevel(applianceID string, role string, level int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"output_levels",
		map[string]string{
			"appliance_id": applianceID,
			"role":         role,
		},
		map[string]interface{}{
			"level": level,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePhaseEvent records a cycle lifecycle transition.
//
// Used for cycle history: when phases started, ended, were skipped, or
// were cut short by a sensor trigger.
//
// Parameters:
//   - applianceID: Appliance identifier
//   - cycleSlug: Slug of the running cycle (e.g., "cotton-60")
//   - event: Transition name (e.g., "phase_start", "phase_complete", "trigger_fired")
//   - phaseIndex: Zero-based index of the phase the event refers to
func (c *Client) WritePhaseEvent(applianceID string, cycleSlug string, event string, phaseIndex int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"phase_events",
		map[string]string{
			"appliance_id": applianceID,
			"cycle":        cycleSlug,
			"event":        event,
		},
		map[string]interface{}{
			"phase_index": phaseIndex,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "washer-001"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
