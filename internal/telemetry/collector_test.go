package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/washcycle-core/internal/engine"
	"github.com/nerrad567/washcycle-core/internal/gpio"
	"github.com/nerrad567/washcycle-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/washcycle-core/internal/sensor"
)

// ─── Mock Sinks ────────────────────────────────────────────────────

type staticEngine struct {
	status engine.Status
}

func (s staticEngine) Snapshot() engine.Status { return s.status }

type mockPublisher struct {
	mu        sync.Mutex
	published []mqttMessage
}

type mqttMessage struct {
	topic   string
	payload []byte
}

func (m *mockPublisher) Publish(topic string, payload []byte, _ byte, _ bool) error {
	m.mu.Lock()
	m.published = append(m.published, mqttMessage{topic: topic, payload: payload})
	m.mu.Unlock()
	return nil
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

type mockSubscriber struct {
	topic   string
	handler mqtt.MessageHandler
}

func (m *mockSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.topic = topic
	m.handler = handler
	return nil
}

type mockMetrics struct {
	mu      sync.Mutex
	sensors map[string]float64
	outputs map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{sensors: make(map[string]float64), outputs: make(map[string]int)}
}

func (m *mockMetrics) WriteSensorMetric(_ string, name string, value float64) {
	m.mu.Lock()
	m.sensors[name] = value
	m.mu.Unlock()
}

func (m *mockMetrics) WriteOutputLevel(_ string, role string, level int) {
	m.mu.Lock()
	m.outputs[role] = level
	m.mu.Unlock()
}

type captureHub struct {
	mu     sync.Mutex
	events []string
}

func (h *captureHub) Broadcast(channel string, _ any) {
	h.mu.Lock()
	h.events = append(h.events, channel)
	h.mu.Unlock()
}

// ─── Helpers ───────────────────────────────────────────────────────

func testBank(t *testing.T) *gpio.Bank {
	t.Helper()
	bank, err := gpio.NewBank(gpio.DefaultRoles(), gpio.NopDriver{})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}
	return bank
}

// ─── Tests ─────────────────────────────────────────────────────────

func TestNewRequiresCollaborators(t *testing.T) {
	bank := testBank(t)

	if _, err := New(Deps{}); err == nil {
		t.Error("New() with no deps should fail")
	}
	if _, err := New(Deps{Engine: staticEngine{}, Outputs: bank}); err == nil {
		t.Error("New() without sensors should fail")
	}
	if _, err := New(Deps{Engine: staticEngine{}, Outputs: bank, Sensors: sensor.Static{}}); err != nil {
		t.Errorf("New() with required deps failed: %v", err)
	}
}

func TestSampleContents(t *testing.T) {
	bank := testBank(t)
	line, _ := bank.Resolve("Drain Pump")
	bank.Set(line, gpio.LevelOn)

	c, err := New(Deps{
		ApplianceID: "washer-test",
		Engine:      staticEngine{status: engine.Status{Running: true, CycleName: "Cotton 60", PhaseIndex: 1}},
		Outputs:     bank,
		Sensors:     sensor.Static{RPMValue: 842.5, PressureValue: 24.1},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s := c.Sample()

	if s.ApplianceID != "washer-test" {
		t.Errorf("appliance_id = %q, want washer-test", s.ApplianceID)
	}
	if !s.Engine.Running || s.Engine.CycleName != "Cotton 60" {
		t.Errorf("engine status not carried through: %+v", s.Engine)
	}
	if s.Sensors.RPM != 842.5 || s.Sensors.PressureHz != 24.1 {
		t.Errorf("sensor sample = %+v, want 842.5/24.1", s.Sensors)
	}

	found := false
	for _, ls := range s.Outputs {
		if ls.Role == "Drain Pump" {
			found = true
			if ls.Level != gpio.LevelOn {
				t.Errorf("Drain Pump level = %v, want on", ls.Level)
			}
		}
	}
	if !found {
		t.Error("Drain Pump missing from output snapshot")
	}
}

func TestRunFansOutToAllSinks(t *testing.T) {
	bank := testBank(t)
	pub := &mockPublisher{}
	metrics := newMockMetrics()
	hub := &captureHub{}

	c, err := New(Deps{
		ApplianceID: "washer-test",
		Engine:      staticEngine{},
		Outputs:     bank,
		Sensors:     sensor.Static{RPMValue: 100},
		MQTT:        pub,
		TSDB:        metrics,
		Hub:         hub,
		Interval:    5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for pub.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	<-done

	if pub.count() < 2 {
		t.Fatalf("published %d samples, want at least 2", pub.count())
	}

	pub.mu.Lock()
	msg := pub.published[0]
	pub.mu.Unlock()

	if msg.topic != "washcycle/telemetry" {
		t.Errorf("topic = %q, want washcycle/telemetry", msg.topic)
	}
	var s Sample
	if err := json.Unmarshal(msg.payload, &s); err != nil {
		t.Fatalf("unmarshal published sample: %v", err)
	}
	if s.Sensors.RPM != 100 {
		t.Errorf("published RPM = %v, want 100", s.Sensors.RPM)
	}

	metrics.mu.Lock()
	rpm := metrics.sensors["rpm"]
	drain, ok := metrics.outputs["Drain Pump"]
	metrics.mu.Unlock()
	if rpm != 100 {
		t.Errorf("tsdb rpm = %v, want 100", rpm)
	}
	if !ok || drain != int(gpio.LevelOff) {
		t.Errorf("tsdb Drain Pump level = %v (present=%v), want off", drain, ok)
	}

	hub.mu.Lock()
	broadcasts := len(hub.events)
	hub.mu.Unlock()
	if broadcasts < 2 {
		t.Errorf("hub broadcasts = %d, want at least 2", broadcasts)
	}
}

func TestAttachSensorFeedRoutesReadings(t *testing.T) {
	bank := testBank(t)
	readings := sensor.NewReadings()
	sub := &mockSubscriber{}

	c, err := New(Deps{
		Engine:   staticEngine{},
		Outputs:  bank,
		Sensors:  readings,
		Readings: readings,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.AttachSensorFeed(sub); err != nil {
		t.Fatalf("AttachSensorFeed: %v", err)
	}
	if sub.topic != "washcycle/sensor/+" {
		t.Errorf("subscribed topic = %q, want washcycle/sensor/+", sub.topic)
	}

	if err := sub.handler("washcycle/sensor/rpm", []byte("842.5")); err != nil {
		t.Fatalf("rpm handler: %v", err)
	}
	if err := sub.handler("washcycle/sensor/pressure", []byte(" 24.1\n")); err != nil {
		t.Fatalf("pressure handler: %v", err)
	}

	if readings.RPM() != 842.5 {
		t.Errorf("RPM = %v, want 842.5", readings.RPM())
	}
	if readings.PressureFrequency() != 24.1 {
		t.Errorf("PressureFrequency = %v, want 24.1", readings.PressureFrequency())
	}

	// Garbage payloads are logged and dropped, not fatal
	if err := sub.handler("washcycle/sensor/rpm", []byte("not-a-number")); err != nil {
		t.Fatalf("garbage handler: %v", err)
	}
	if readings.RPM() != 842.5 {
		t.Errorf("RPM changed on garbage payload: %v", readings.RPM())
	}
}

func TestAttachSensorFeedRequiresReadings(t *testing.T) {
	bank := testBank(t)

	c, err := New(Deps{
		Engine:  staticEngine{},
		Outputs: bank,
		Sensors: sensor.Static{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.AttachSensorFeed(&mockSubscriber{}); err == nil {
		t.Error("AttachSensorFeed without readings sink should fail")
	}
}
