package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/washcycle-core/internal/engine"
	"github.com/nerrad567/washcycle-core/internal/gpio"
	"github.com/nerrad567/washcycle-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/washcycle-core/internal/sensor"
)

// DefaultInterval is the sampling interval when none is configured.
const DefaultInterval = time.Second

// EngineStatus is the interface the collector needs from the engine.
type EngineStatus interface {
	Snapshot() engine.Status
}

// OutputBank is the interface the collector needs from the gpio bank.
type OutputBank interface {
	Snapshot() []gpio.LineState
}

// Publisher is the interface for publishing telemetry to MQTT.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Subscriber is the interface for receiving live sensor readings from MQTT.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// MetricsWriter is the interface for recording samples to the time-series
// database. Writes are fire-and-forget.
type MetricsWriter interface {
	WriteSensorMetric(applianceID string, sensor string, value float64)
	WriteOutputLevel(applianceID string, role string, level int)
}

// Broadcaster is the interface for pushing samples to WebSocket clients.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Logger is the minimal logging interface the collector needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the collector's collaborators. Engine, Outputs and Sensors are
// required; everything else degrades to a no-op when absent.
type Deps struct {
	ApplianceID string
	Engine      EngineStatus
	Outputs     OutputBank
	Sensors     sensor.Source

	Readings *sensor.Readings // sink for MQTT sensor feed; may be nil
	MQTT     Publisher        // may be nil
	TSDB     MetricsWriter    // may be nil
	Hub      Broadcaster      // may be nil
	Logger   Logger           // nil means no-op

	Interval time.Duration // 0 means DefaultInterval
}

// Sample is one telemetry snapshot: engine state, output levels and sensor
// readings at a single instant.
type Sample struct {
	Timestamp   string           `json:"timestamp"`
	ApplianceID string           `json:"appliance_id"`
	Engine      engine.Status    `json:"engine"`
	Outputs     []gpio.LineState `json:"outputs"`
	Sensors     SensorSample     `json:"sensors"`
}

// SensorSample holds the sensor readings within a Sample.
type SensorSample struct {
	RPM        float64 `json:"rpm"`
	PressureHz float64 `json:"pressure_hz"`
}

// Collector periodically samples the engine, output bank and sensors, and
// fans the sample out to MQTT, the WebSocket hub and InfluxDB.
//
// Thread Safety: Run owns all sampling; the collector holds no mutable
// state of its own.
type Collector struct {
	applianceID string
	eng         EngineStatus
	outputs     OutputBank
	sensors     sensor.Source
	readings    *sensor.Readings
	mqttc       Publisher
	tsdb        MetricsWriter
	hub         Broadcaster
	logger      Logger
	interval    time.Duration
}

// New creates a collector over the given collaborators.
//
// Returns:
//   - *Collector: Ready to Run
//   - error: If a required collaborator is missing
func New(deps Deps) (*Collector, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("telemetry: engine required")
	}
	if deps.Outputs == nil {
		return nil, fmt.Errorf("telemetry: outputs required")
	}
	if deps.Sensors == nil {
		return nil, fmt.Errorf("telemetry: sensors required")
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}

	return &Collector{
		applianceID: deps.ApplianceID,
		eng:         deps.Engine,
		outputs:     deps.Outputs,
		sensors:     deps.Sensors,
		readings:    deps.Readings,
		mqttc:       deps.MQTT,
		tsdb:        deps.TSDB,
		hub:         deps.Hub,
		logger:      deps.Logger,
		interval:    deps.Interval,
	}, nil
}

// Run samples on the configured interval until the context is cancelled.
// Intended to be called on its own goroutine.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.publish(c.Sample())
		}
	}
}

// Sample takes a single telemetry snapshot.
func (c *Collector) Sample() Sample {
	return Sample{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		ApplianceID: c.applianceID,
		Engine:      c.eng.Snapshot(),
		Outputs:     c.outputs.Snapshot(),
		Sensors: SensorSample{
			RPM:        c.sensors.RPM(),
			PressureHz: c.sensors.PressureFrequency(),
		},
	}
}

// publish fans a sample out to every configured sink. Sink failures are
// logged and do not stop the collector.
func (c *Collector) publish(s Sample) {
	if c.hub != nil {
		c.hub.Broadcast("telemetry.update", s)
	}

	if c.mqttc != nil {
		payload, err := json.Marshal(s)
		if err != nil {
			c.logger.Error("failed to marshal telemetry sample", "error", err)
		} else if err := c.mqttc.Publish(mqtt.Topics{}.Telemetry(), payload, 0, false); err != nil {
			c.logger.Warn("telemetry publish failed", "error", err)
		}
	}

	if c.tsdb != nil {
		c.tsdb.WriteSensorMetric(c.applianceID, "rpm", s.Sensors.RPM)
		c.tsdb.WriteSensorMetric(c.applianceID, "pressure_hz", s.Sensors.PressureHz)
		for _, line := range s.Outputs {
			c.tsdb.WriteOutputLevel(c.applianceID, line.Role, int(line.Level))
		}
	}
}

// AttachSensorFeed subscribes to the MQTT sensor topics and routes readings
// into the shared sensor store. RPM arrives on washcycle/sensor/rpm and
// pressure frequency on washcycle/sensor/pressure, both as plain decimal
// payloads.
//
// Returns:
//   - error: If the subscription fails or no readings sink is configured
func (c *Collector) AttachSensorFeed(sub Subscriber) error {
	if c.readings == nil {
		return fmt.Errorf("telemetry: no readings sink configured")
	}

	topics := mqtt.Topics{}
	return sub.Subscribe(topics.AllSensors(), 1, func(t string, payload []byte) error {
		value, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
		if err != nil {
			c.logger.Warn("unparseable sensor payload", "topic", t, "payload", string(payload))
			return nil
		}

		switch t {
		case topics.SensorRPM():
			c.readings.SetRPM(value)
		case topics.SensorPressure():
			c.readings.SetPressureFrequency(value)
		default:
			c.logger.Debug("ignoring unknown sensor topic", "topic", t)
		}
		return nil
	})
}
