// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/remote-motor/internal/logic"
)

// Topic is the MQTT topic for motor events.
const Topic = "motor/remote/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "motor/remote/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a motor event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports the broker connection and the offline buffer.
type ConnectionStatus interface {
	IsConnected() bool
	Buffered() int
	Dropped() int
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Motor MotorPayload `json:"motor"`
}

// MotorPayload contains the motor event details.
type MotorPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Command   string `json:"command,omitempty"`
	Usage     string `json:"usage,omitempty"`
	Changed   bool   `json:"changed"`
	Level     int    `json:"level"`
	Duty      uint8  `json:"duty"`
	Direction string `json:"direction"`
	LongPress bool   `json:"long_press"`
}

// FormatPayload creates the JSON payload for a motor event.
func FormatPayload(event logic.Event) ([]byte, error) {
	p := MotorPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Event:     string(event.Type),
		Changed:   event.Changed,
		Level:     event.State.Level,
		Duty:      event.Output.Duty,
		Direction: event.Output.Direction.String(),
		LongPress: event.State.LongPressActive,
	}
	if event.Command != logic.Unknown {
		p.Command = event.Command.String()
	}
	if event.Usage != 0 {
		p.Usage = fmt.Sprintf("0x%04X", event.Usage)
	}
	return json.Marshal(Payload{Motor: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
