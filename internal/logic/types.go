// Package logic contains pure business logic for remote-controlled motor state.
// This package has NO hardware, transport, or OS dependencies (no GPIO, HID, MQTT,
// or time.Sleep). Time is always injectable via time.Time parameters.
package logic

import "time"

// Command is the semantic meaning of a remote usage code.
type Command int

const (
	Unknown Command = iota
	ShortIncrement
	ShortDecrement
	Stop
	LongIncrementTick
	LongDecrementTick
)

func (c Command) String() string {
	switch c {
	case ShortIncrement:
		return "SHORT_INCREMENT"
	case ShortDecrement:
		return "SHORT_DECREMENT"
	case Stop:
		return "STOP"
	case LongIncrementTick:
		return "LONG_INCREMENT_TICK"
	case LongDecrementTick:
		return "LONG_DECREMENT_TICK"
	default:
		return "UNKNOWN"
	}
}

// IsLongPress reports whether c is one of the repeating long-press ticks.
func (c Command) IsLongPress() bool {
	return c == LongIncrementTick || c == LongDecrementTick
}

// Direction is the motor rotation direction.
type Direction int

const (
	Backward Direction = iota
	Forward
)

func (d Direction) String() string {
	if d == Forward {
		return "FORWARD"
	}
	return "BACKWARD"
}

// Output is what the actuator receives after every transition.
// Direction is meaningless when Duty is 0.
type Output struct {
	Duty      uint8
	Direction Direction
}

// SpeedState is the authoritative motor state.
type SpeedState struct {
	Level           int
	Enabled         bool // always Level != 0
	LongPressActive bool
}

// EventType names a controller transition.
type EventType string

const (
	EventShortIncrement EventType = "SHORT_INCREMENT"
	EventShortDecrement EventType = "SHORT_DECREMENT"
	EventLongStart      EventType = "LONG_START"
	EventLongRelease    EventType = "LONG_RELEASE"
	EventStop           EventType = "STOP"
	EventWatchdogStop   EventType = "WATCHDOG_STOP"
	EventDisconnectStop EventType = "DISCONNECT_STOP"
	EventConnected      EventType = "CONNECTED"
	EventDisconnected   EventType = "DISCONNECTED"
	EventUnknownInput   EventType = "UNKNOWN_INPUT"
	EventMalformedInput EventType = "MALFORMED_INPUT"
)

// Actuates reports whether the run loop must push Output to the actuator
// after this event. No-op motor operations still actuate.
func (t EventType) Actuates() bool {
	switch t {
	case EventShortIncrement, EventShortDecrement, EventLongStart, EventLongRelease,
		EventStop, EventWatchdogStop, EventDisconnectStop:
		return true
	}
	return false
}

// Event is a transition to be actuated, logged and published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Command   Command
	Usage     uint16
	Changed   bool // false for clamped or guarded no-ops
	State     SpeedState
	Output    Output
}

// EventCounts tracks the number of each event kind since startup.
type EventCounts struct {
	ShortIncrement int
	ShortDecrement int
	LongStart      int
	LongRelease    int
	Stop           int
	WatchdogStop   int
	Connected      int
	Disconnected   int
	Unknown        int
	Malformed      int
	Idle           int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	State           SpeedState
	Output          Output
	MaxLevel        int
	Percent         int
	LongPressButton Command // Unknown when the tracker is idle
	Connected       bool
	DisconnectedFor time.Duration
	Counts          EventCounts
}
