package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/nerrad567/washcycle-core/internal/cycle"
	"github.com/nerrad567/washcycle-core/internal/gpio"
	"github.com/nerrad567/washcycle-core/internal/infrastructure/mqtt"
)

// Engine is the interface the bridge needs from the cycle engine.
type Engine interface {
	Load(c *cycle.Cycle) (int, error)
	Run(ctx context.Context) error
	Stop()
	SkipCurrentPhase(forceOutputsOff bool)
	SkipToPhase(index int) error
	IsRunning() bool
}

// OutputBank is the interface the bridge needs for manual output control.
type OutputBank interface {
	Resolve(role string) (gpio.Line, bool)
	Set(line gpio.Line, level gpio.Level)
}

// Subscriber is the interface for receiving command frames from MQTT.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Publisher is the interface for publishing state frames to MQTT.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the minimal logging interface the bridge needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// command is one inbound MQTT command frame.
type command struct {
	Action          string `json:"action"`
	Slug            string `json:"slug"`
	Index           int    `json:"index"`
	ForceOutputsOff bool   `json:"force_outputs_off"`
	Role            string `json:"role"`
	On              bool   `json:"on"`
}

// Deps holds the bridge's collaborators. Engine and Cycles are required;
// Outputs enables the set_output action.
type Deps struct {
	Engine  Engine
	Cycles  cycle.Repository
	Outputs OutputBank // may be nil
	Logger  Logger     // nil means no-op
}

// Bridge dispatches inbound MQTT command frames to the engine and
// output bank.
type Bridge struct {
	engine  Engine
	cycles  cycle.Repository
	outputs OutputBank
	logger  Logger
}

// New creates a command bridge over the given collaborators.
//
// Returns:
//   - *Bridge: Ready to Attach
//   - error: If a required collaborator is missing
func New(deps Deps) (*Bridge, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("remote: engine required")
	}
	if deps.Cycles == nil {
		return nil, fmt.Errorf("remote: cycle repository required")
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	return &Bridge{
		engine:  deps.Engine,
		cycles:  deps.Cycles,
		outputs: deps.Outputs,
		logger:  deps.Logger,
	}, nil
}

// Attach subscribes the bridge to the cycle command topic.
//
// Returns:
//   - error: If the subscription fails
func (b *Bridge) Attach(sub Subscriber) error {
	return sub.Subscribe(mqtt.Topics{}.CycleCommand(), 1, b.handle)
}

// handle dispatches one command frame. Failures are logged, never
// returned: an MQTT handler error would only trigger broker-side
// redelivery of a frame that already failed.
func (b *Bridge) handle(topic string, payload []byte) error {
	var cmd command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("malformed command frame", "topic", topic, "error", err)
		return nil
	}

	b.logger.Info("remote command received", "action", cmd.Action)

	switch cmd.Action {
	case "load_cycle":
		b.loadCycle(cmd.Slug)
	case "start_cycle":
		// The cycle outlives the command frame.
		if err := b.engine.Run(context.Background()); err != nil {
			b.logger.Warn("remote start rejected", "error", err)
		}
	case "stop_cycle":
		b.engine.Stop()
	case "skip_phase":
		b.engine.SkipCurrentPhase(cmd.ForceOutputsOff)
	case "skip_to_phase":
		if err := b.engine.SkipToPhase(cmd.Index); err != nil {
			b.logger.Warn("remote skip-to rejected", "index", cmd.Index, "error", err)
		}
	case "set_output":
		b.setOutput(cmd.Role, cmd.On)
	default:
		b.logger.Warn("unknown command action", "action", cmd.Action)
	}
	return nil
}

// loadCycle fetches a stored cycle by slug, parses it and loads it into
// the engine.
func (b *Bridge) loadCycle(slug string) {
	rec, err := b.cycles.GetBySlug(context.Background(), slug)
	if err != nil {
		b.logger.Warn("remote load failed", "slug", slug, "error", err)
		return
	}

	c, warnings, err := cycle.Parse(rec.Document)
	if err != nil {
		b.logger.Error("stored cycle document is invalid", "slug", slug, "error", err)
		return
	}
	for _, w := range warnings {
		b.logger.Warn("cycle parse warning", "slug", slug, "warning", w)
	}

	if _, err := b.engine.Load(c); err != nil {
		b.logger.Warn("remote load rejected", "slug", slug, "error", err)
	}
}

// setOutput drives one output line manually. Refused while a cycle is
// running so the dispatcher keeps sole bank ownership.
func (b *Bridge) setOutput(role string, on bool) {
	if b.outputs == nil {
		b.logger.Warn("set_output unavailable: no output bank configured")
		return
	}
	if b.engine.IsRunning() {
		b.logger.Warn("set_output refused: a cycle is running", "role", role)
		return
	}

	// Tolerate percent-encoded role names from URL-derived senders.
	if dec, err := url.PathUnescape(role); err == nil {
		role = dec
	}

	line, ok := b.outputs.Resolve(role)
	if !ok {
		b.logger.Warn("set_output: unknown output role", "role", role)
		return
	}

	level := gpio.LevelOff
	if on {
		level = gpio.LevelOn
	}
	b.outputs.Set(line, level)
	b.logger.Info("output set remotely", "role", role, "on", on)
}

// StateRelay wraps a Broadcaster so cycle state events reach MQTT as
// well as WebSocket clients. Other channels pass through untouched.
type StateRelay struct {
	next   Broadcaster
	pub    Publisher
	logger Logger
}

// Broadcaster is the downstream fan-out interface the relay wraps.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// NewStateRelay creates a relay in front of the given broadcaster.
func NewStateRelay(next Broadcaster, pub Publisher, logger Logger) *StateRelay {
	if logger == nil {
		logger = noopLogger{}
	}
	return &StateRelay{next: next, pub: pub, logger: logger}
}

// Broadcast forwards the event downstream and mirrors cycle state events
// onto the MQTT state topic.
func (r *StateRelay) Broadcast(channel string, payload any) {
	if r.next != nil {
		r.next.Broadcast(channel, payload)
	}

	if channel != "cycle.state" || r.pub == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("failed to marshal cycle state", "error", err)
		return
	}
	if err := r.pub.Publish(mqtt.Topics{}.CycleState(), data, 1, false); err != nil {
		r.logger.Warn("cycle state publish failed", "error", err)
	}
}
