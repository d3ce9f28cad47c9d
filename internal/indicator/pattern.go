// Package indicator drives the status LED. Patterns are pure functions of
// elapsed time; the Blinker owns the output line.
package indicator

import (
	"time"

	"github.com/sweeney/remote-motor/internal/logic"
)

// DefaultPinLED is the status LED (BCM numbering). 0 disables the LED.
const DefaultPinLED = 2

// Pattern is a symmetric blink: Period on, Period off. Count bounds the number
// of blinks; 0 repeats forever.
type Pattern struct {
	Name   string
	Period time.Duration
	Count  int
}

// Steady patterns follow the motor and link state.
var (
	PatternOff     = Pattern{Name: "off"}
	PatternIdle    = Pattern{Name: "idle", Period: 500 * time.Millisecond}
	PatternRunning = Pattern{Name: "running", Period: 100 * time.Millisecond}
)

// Bursts play once over the steady pattern.
var (
	BurstInput      = Pattern{Name: "input", Period: 50 * time.Millisecond, Count: 1}
	BurstConnect    = Pattern{Name: "connect", Period: 200 * time.Millisecond, Count: 3}
	BurstDisconnect = Pattern{Name: "disconnect", Period: 100 * time.Millisecond, Count: 5}
	BurstWatchdog   = Pattern{Name: "watchdog", Period: 100 * time.Millisecond, Count: 10}
)

// Level returns the LED level (0 or 1) at elapsed time into the pattern and
// whether the pattern has finished.
func (p Pattern) Level(elapsed time.Duration) (int, bool) {
	if p.Period <= 0 {
		return 0, p.Count > 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	phase := int(elapsed / p.Period)
	if p.Count > 0 && phase >= 2*p.Count {
		return 0, true
	}
	if phase%2 == 0 {
		return 1, false
	}
	return 0, false
}

// Duration is the total length of a bounded pattern, 0 for repeating ones.
func (p Pattern) Duration() time.Duration {
	if p.Count <= 0 {
		return 0
	}
	return 2 * time.Duration(p.Count) * p.Period
}

// Steady returns the background pattern for the given link and motor state.
func Steady(connected, running bool) Pattern {
	switch {
	case connected && running:
		return PatternRunning
	case connected:
		return PatternIdle
	default:
		return PatternOff
	}
}

// BurstFor returns the one-shot pattern for an event, if any.
func BurstFor(t logic.EventType) (Pattern, bool) {
	switch t {
	case logic.EventConnected:
		return BurstConnect, true
	case logic.EventDisconnected:
		return BurstDisconnect, true
	case logic.EventWatchdogStop:
		return BurstWatchdog, true
	case logic.EventShortIncrement, logic.EventShortDecrement, logic.EventLongStart, logic.EventStop:
		return BurstInput, true
	}
	return Pattern{}, false
}
