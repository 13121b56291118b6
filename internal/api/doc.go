// Package api implements the HTTP REST API and WebSocket server for Washcycle Core.
//
// This package provides:
//   - REST endpoints for the cycle library, engine control, and output inspection
//   - WebSocket hub for real-time cycle state and telemetry broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between user interfaces (the control panel web UI,
// dashboards) and the cycle engine + output bank. Commands flow from the API
// straight into the engine; state changes flow back out through the WebSocket
// hub, which the engine and telemetry collector broadcast into.
//
//	UI ──HTTP──▶ api ──▶ engine ──▶ gpio outputs
//	UI ◀──WS──── hub ◀── engine / telemetry
//
// # Channels
//
// WebSocket clients subscribe to named channels after connecting:
//   - "cycle.state": engine state snapshots on phase transitions
//   - "telemetry.update": periodic sensor and output samples
//
// # Graceful Degradation
//
// The server operates without MQTT or InfluxDB — the REST surface and
// WebSocket broadcasts are fully local. Manual output control is refused
// while a cycle is running so the dispatcher keeps sole ownership of the bank.
package api
