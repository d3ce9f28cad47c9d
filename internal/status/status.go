// Package status provides a thread-safe status tracker for the remote-motor daemon.
// It is read by HTTP handlers and by MQTT system events.
package status

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sweeney/remote-motor/internal/logic"
)

// NetworkInfo contains network state as written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs           int64
	ReleaseTimeoutMs int64
	StopTimeoutMs    int64
	MaxLevel         int
	StopOnDisconnect bool
	Source           string
	Device           string
	HeartbeatMs      int64
	Broker           string
	HTTPAddr         string
	WSBroker         string // Websocket broker URL for browser MQTT (empty = disabled)
}

// Snapshot is a point-in-time view of daemon state. It is a value type and
// stays valid after the lock is released.
type Snapshot struct {
	Motor         logic.Snapshot
	InputDropped  uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTBuffered  int // messages waiting for the broker
	MQTTDropped   int // buffered messages overwritten since startup
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Description is the one-line motor state, e.g. "Running forward at 60%".
func (s Snapshot) Description() string {
	if !s.Motor.State.Enabled {
		return "Stopped"
	}
	return fmt.Sprintf("Running %s at %d%%", strings.ToLower(s.Motor.Output.Direction.String()), s.Motor.Percent)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Motor:     logic.Snapshot{MaxLevel: cfg.MaxLevel},
		},
	}
}

// Update stores the controller snapshot. Called from runLoop after every
// event and poll.
func (t *Tracker) Update(motor logic.Snapshot) {
	t.mu.Lock()
	t.snap.Motor = motor
	t.mu.Unlock()
}

// SetInputDropped records how many input reports the queue has dropped.
func (t *Tracker) SetInputDropped(n uint64) {
	t.mu.Lock()
	t.snap.InputDropped = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTBuffer records the offline buffer depth and overflow count.
func (t *Tracker) SetMQTTBuffer(buffered, dropped int) {
	t.mu.Lock()
	t.snap.MQTTBuffered = buffered
	t.snap.MQTTDropped = dropped
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
