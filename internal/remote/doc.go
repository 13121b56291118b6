// Package remote bridges the appliance onto MQTT for headless control.
//
// It carries two directions of traffic:
//
//	washcycle/cycle/command ──▶ Bridge ──▶ engine / output bank
//	engine ("cycle.state")  ──▶ StateRelay ──▶ washcycle/cycle/state
//
// The Bridge subscribes to the command topic and dispatches JSON command
// frames to the engine and output bank, mirroring the REST control
// surface. The StateRelay wraps the WebSocket hub so cycle state
// transitions reach MQTT subscribers as well as WebSocket clients.
//
// # Command frames
//
// Commands are JSON objects with an "action" field:
//
//	{"action": "load_cycle", "slug": "cotton-60"}
//	{"action": "start_cycle"}
//	{"action": "stop_cycle"}
//	{"action": "skip_phase", "force_outputs_off": true}
//	{"action": "skip_to_phase", "index": 3}
//	{"action": "set_output", "role": "Drain Pump", "on": true}
//
// Malformed frames and failed commands are logged and dropped; a bad
// command never disturbs the running cycle.
package remote
