// Package mqtt provides MQTT client connectivity for Washcycle Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Washcycle uses MQTT as its outward-facing message bus: telemetry and
// cycle state flow out, commands and live sensor readings flow in. The
// broker (Mosquitto) decouples the controller from its dashboards and
// sensor feeds.
//
//	Washcycle Core ↔ MQTT Broker ↔ Dashboards / Sensor feeds
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to live sensor readings
//	err = client.Subscribe(mqtt.Topics{}.AllSensors(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish cycle state
//	client.Publish(mqtt.Topics{}.CycleState(), payload, 1, true)
package mqtt
