package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/remote-motor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Description   string       `json:"description"`
	Motor         MotorJSON    `json:"motor"`
	Remote        RemoteJSON   `json:"remote"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MotorJSON is the motor state.
type MotorJSON struct {
	Level           int    `json:"level"`
	MaxLevel        int    `json:"max_level"`
	Enabled         bool   `json:"enabled"`
	Duty            uint8  `json:"duty"`
	Direction       string `json:"direction"`
	Percent         int    `json:"percent"`
	LongPress       bool   `json:"long_press"`
	LongPressButton string `json:"long_press_button,omitempty"`
}

// RemoteJSON is the remote link state.
type RemoteJSON struct {
	Connected         bool   `json:"connected"`
	DisconnectedForMs int64  `json:"disconnected_for_ms,omitempty"`
	InputDropped      uint64 `json:"input_dropped"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Buffered  int    `json:"buffered"`
	Dropped   int    `json:"dropped"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	ShortIncrement int `json:"short_increment"`
	ShortDecrement int `json:"short_decrement"`
	LongStart      int `json:"long_start"`
	LongRelease    int `json:"long_release"`
	Stop           int `json:"stop"`
	WatchdogStop   int `json:"watchdog_stop"`
	Connected      int `json:"connected"`
	Disconnected   int `json:"disconnected"`
	Unknown        int `json:"unknown"`
	Malformed      int `json:"malformed"`
	Idle           int `json:"idle"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs           int64  `json:"poll_ms"`
	ReleaseTimeoutMs int64  `json:"release_timeout_ms"`
	StopTimeoutMs    int64  `json:"stop_timeout_ms"`
	MaxLevel         int    `json:"max_level"`
	StopOnDisconnect bool   `json:"stop_on_disconnect"`
	Source           string `json:"source"`
	Device           string `json:"device,omitempty"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	Broker           string `json:"broker"`
	HTTPAddr         string `json:"http_addr"`
	WSBroker         string `json:"ws_broker,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	m := snap.Motor
	inner := StatusInner{
		Description: snap.Description(),
		Motor: MotorJSON{
			Level:     m.State.Level,
			MaxLevel:  m.MaxLevel,
			Enabled:   m.State.Enabled,
			Duty:      m.Output.Duty,
			Direction: m.Output.Direction.String(),
			Percent:   m.Percent,
			LongPress: m.State.LongPressActive,
		},
		Remote: RemoteJSON{
			Connected:    m.Connected,
			InputDropped: snap.InputDropped,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Buffered:  snap.MQTTBuffered,
			Dropped:   snap.MQTTDropped,
		},
		Counts: CountsJSON{
			ShortIncrement: m.Counts.ShortIncrement,
			ShortDecrement: m.Counts.ShortDecrement,
			LongStart:      m.Counts.LongStart,
			LongRelease:    m.Counts.LongRelease,
			Stop:           m.Counts.Stop,
			WatchdogStop:   m.Counts.WatchdogStop,
			Connected:      m.Counts.Connected,
			Disconnected:   m.Counts.Disconnected,
			Unknown:        m.Counts.Unknown,
			Malformed:      m.Counts.Malformed,
			Idle:           m.Counts.Idle,
		},
		Config: ConfigJSON{
			PollMs:           snap.Config.PollMs,
			ReleaseTimeoutMs: snap.Config.ReleaseTimeoutMs,
			StopTimeoutMs:    snap.Config.StopTimeoutMs,
			MaxLevel:         snap.Config.MaxLevel,
			StopOnDisconnect: snap.Config.StopOnDisconnect,
			Source:           snap.Config.Source,
			Device:           snap.Config.Device,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
			WSBroker:         snap.Config.WSBroker,
		},
	}
	if m.LongPressButton != logic.Unknown {
		inner.Motor.LongPressButton = m.LongPressButton.String()
	}
	if !m.Connected {
		inner.Remote.DisconnectedForMs = m.DisconnectedFor.Milliseconds()
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
