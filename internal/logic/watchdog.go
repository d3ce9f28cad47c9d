package logic

import "time"

// Watchdog forces a stop after the remote has been disconnected for
// stopTimeout. Invariant: disconnectedSince is only set while !connected.
type Watchdog struct {
	stopTimeout       time.Duration
	connected         bool
	disconnectedSince time.Time
}

// NewWatchdog creates a watchdog that is already counting: the remote is not
// connected at boot.
func NewWatchdog(stopTimeout time.Duration, now time.Time) *Watchdog {
	return &Watchdog{
		stopTimeout:       stopTimeout,
		disconnectedSince: now,
	}
}

// OnConnected marks the remote connected and disarms the timer.
func (w *Watchdog) OnConnected(now time.Time) {
	w.connected = true
	w.disconnectedSince = time.Time{}
}

// OnDisconnected marks the remote disconnected and arms the timer.
func (w *Watchdog) OnDisconnected(now time.Time) {
	w.connected = false
	w.disconnectedSince = now
}

// Check returns true once when the disconnection has lasted stopTimeout.
// The timer is disarmed after firing so it does not repeat.
func (w *Watchdog) Check(now time.Time) bool {
	if w.connected || w.disconnectedSince.IsZero() {
		return false
	}
	if now.Sub(w.disconnectedSince) < w.stopTimeout {
		return false
	}
	w.disconnectedSince = time.Time{}
	return true
}

// Connected reports the current connection state.
func (w *Watchdog) Connected() bool {
	return w.connected
}

// DisconnectedFor returns how long the armed timer has been running, or 0.
func (w *Watchdog) DisconnectedFor(now time.Time) time.Duration {
	if w.connected || w.disconnectedSince.IsZero() {
		return 0
	}
	return now.Sub(w.disconnectedSince)
}
