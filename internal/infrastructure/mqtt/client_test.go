package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/washcycle-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// Tests require a running Mosquitto broker at 127.0.0.1:1883.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "washcycle-test",
			TLS:      false,
		},
		Auth: config.MQTTAuthConfig{
			Username: "",
			Password: "",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
}

func TestConnectInvalidBroker(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999 // Invalid port

	_, err := Connect(cfg)
	if err == nil {
		t.Fatal("Connect() expected error for invalid broker")
	}

	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClose(t *testing.T) {
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	err = client.Close()
	if err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	err := client.Close()
	if err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

// =============================================================================
// HealthCheck Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	err = client.HealthCheck(ctx)
	if err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err = client.HealthCheck(ctx)
	if err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// Disconnect
	client.Close()

	ctx := context.Background()
	err = client.HealthCheck(ctx)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Publish Tests
// =============================================================================

func TestPublish(t *testing.T) {
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topic := Topics{}.Telemetry()
	payload := []byte(`{"test":true}`)

	err = client.Publish(topic, payload, 1, false)
	if err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestPublishValidation(t *testing.T) {
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{
			name:    "empty topic",
			topic:   "",
			payload: []byte("x"),
			qos:     1,
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "invalid QoS",
			topic:   "washcycle/test",
			payload: []byte("x"),
			qos:     3,
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "oversized payload",
			topic:   "washcycle/test",
			payload: make([]byte, maxPayloadSize+1),
			qos:     1,
			wantErr: ErrPublishFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishDisconnected(t *testing.T) {
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	err = client.Publish("washcycle/test", []byte("x"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Subscribe Tests
// =============================================================================

func TestSubscribe(t *testing.T) {
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topic := "washcycle/test/subscribe"

	err = client.Subscribe(topic, 1, func(string, []byte) error { return nil })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if !client.HasSubscription(topic) {
		t.Error("HasSubscription() = false after Subscribe")
	}

	if client.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", client.SubscriptionCount())
	}
}

func TestSubscribeValidation(t *testing.T) {
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty topic) error = %v, want ErrInvalidTopic", err)
	}

	if err := client.Subscribe("washcycle/test", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(bad qos) error = %v, want ErrInvalidQoS", err)
	}

	if err := client.Subscribe("washcycle/test", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	cfg := testConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topic := "washcycle/test/unsubscribe"

	if err := client.Subscribe(topic, 1, func(string, []byte) error { return nil }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := client.Unsubscribe(topic); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}

	if client.HasSubscription(topic) {
		t.Error("HasSubscription() = true after Unsubscribe")
	}
}

// =============================================================================
// Round-trip Tests
// =============================================================================

func TestPublishSubscribeRoundTrip(t *testing.T) {
	pubCfg := testConfig()
	pubCfg.Broker.ClientID = "washcycle-test-pub"

	pub, err := Connect(pubCfg)
	if err != nil {
		t.Fatalf("Connect(pub) error = %v", err)
	}
	defer pub.Close()

	subCfg := testConfig()
	subCfg.Broker.ClientID = "washcycle-test-sub"

	sub, err := Connect(subCfg)
	if err != nil {
		t.Fatalf("Connect(sub) error = %v", err)
	}
	defer sub.Close()

	topic := "washcycle/test/roundtrip"
	received := make(chan []byte, 1)

	err = sub.Subscribe(topic, 1, func(_ string, payload []byte) error {
		received <- payload
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	want := []byte(`{"rpm":842.5}`)
	if err := pub.Publish(topic, want, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if string(got) != string(want) {
			t.Errorf("received %s, want %s", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received within timeout")
	}
}

func TestWildcardSubscription(t *testing.T) {
	pubCfg := testConfig()
	pubCfg.Broker.ClientID = "washcycle-test-wild-pub"

	pub, err := Connect(pubCfg)
	if err != nil {
		t.Fatalf("Connect(pub) error = %v", err)
	}
	defer pub.Close()

	subCfg := testConfig()
	subCfg.Broker.ClientID = "washcycle-test-wild-sub"

	sub, err := Connect(subCfg)
	if err != nil {
		t.Fatalf("Connect(sub) error = %v", err)
	}
	defer sub.Close()

	var mu sync.Mutex
	got := make(map[string]bool)

	err = sub.Subscribe(Topics{}.AllSensors(), 1, func(topic string, _ []byte) error {
		mu.Lock()
		got[topic] = true
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	topics := []string{
		Topics{}.SensorRPM(),
		Topics{}.SensorPressure(),
	}
	for _, topic := range topics {
		if err := pub.Publish(topic, []byte("1.0"), 1, false); err != nil {
			t.Fatalf("Publish(%s) error = %v", topic, err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == len(topics) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("received %d topics, want %d", len(got), len(topics))
}

// =============================================================================
// Callback Tests
// =============================================================================

func TestOnConnectCallback(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "washcycle-test-callback"

	connected := make(chan struct{}, 1)

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.SetOnConnect(func() {
		select {
		case connected <- struct{}{}:
		default:
		}
	})

	// The initial OnConnect may already have fired before the callback was
	// set; what matters is that the client is connected and healthy.
	if !client.IsConnected() {
		t.Error("IsConnected() = false")
	}
}

// =============================================================================
// Topic Builder Tests
// =============================================================================

func TestTopics(t *testing.T) {
	tests := []struct {
		name     string
		build    func() string
		expected string
	}{
		{
			name:     "SystemStatus",
			build:    Topics{}.SystemStatus,
			expected: "washcycle/system/status",
		},
		{
			name:     "Telemetry",
			build:    Topics{}.Telemetry,
			expected: "washcycle/telemetry",
		},
		{
			name:     "CycleState",
			build:    Topics{}.CycleState,
			expected: "washcycle/cycle/state",
		},
		{
			name:     "CycleCommand",
			build:    Topics{}.CycleCommand,
			expected: "washcycle/cycle/command",
		},
		{
			name:     "SensorRPM",
			build:    Topics{}.SensorRPM,
			expected: "washcycle/sensor/rpm",
		},
		{
			name:     "SensorPressure",
			build:    Topics{}.SensorPressure,
			expected: "washcycle/sensor/pressure",
		},
		{
			name:     "AllSensors",
			build:    Topics{}.AllSensors,
			expected: "washcycle/sensor/+",
		},
		{
			name:     "AllTopics",
			build:    Topics{}.AllTopics,
			expected: "washcycle/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build(); got != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}
