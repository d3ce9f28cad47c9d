package logic

import "time"

// LongPressTracker infers press and release of the repeating long-press
// buttons. The remote emits a tick every few tens of milliseconds while a
// button is held and nothing on release, so release is inferred when no tick
// has arrived for releaseTimeout.
//
// Invariant: button != Unknown exactly when lastTick is set.
type LongPressTracker struct {
	releaseTimeout time.Duration
	button         Command
	lastTick       time.Time
}

// TickResult describes what a tick did to the tracker.
type TickResult struct {
	// Started is true on the first tick of a hold.
	Started bool
	// Released is the previously active button when a tick of a different
	// button pre-empted it, Unknown otherwise.
	Released Command
}

// NewLongPressTracker creates an idle tracker.
func NewLongPressTracker(releaseTimeout time.Duration) *LongPressTracker {
	return &LongPressTracker{releaseTimeout: releaseTimeout}
}

// Tick records a long-press tick. Ticks of the active button only refresh the
// timestamp. Buttons that are not long-press ticks are ignored.
func (t *LongPressTracker) Tick(button Command, now time.Time) TickResult {
	if !button.IsLongPress() {
		return TickResult{}
	}

	if t.button == button {
		t.lastTick = now
		return TickResult{}
	}

	res := TickResult{Started: true}
	if t.button != Unknown {
		res.Released = t.button
	}
	t.button = button
	t.lastTick = now
	return res
}

// CheckRelease returns the active button and clears the tracker once
// releaseTimeout has elapsed since its last tick.
func (t *LongPressTracker) CheckRelease(now time.Time) (Command, bool) {
	if t.button == Unknown || t.lastTick.IsZero() {
		t.reset()
		return Unknown, false
	}
	if now.Sub(t.lastTick) < t.releaseTimeout {
		return Unknown, false
	}
	released := t.button
	t.reset()
	return released, true
}

// Active returns the held button and the time of its last tick.
func (t *LongPressTracker) Active() (Command, time.Time, bool) {
	if t.button == Unknown {
		return Unknown, time.Time{}, false
	}
	return t.button, t.lastTick, true
}

func (t *LongPressTracker) reset() {
	t.button = Unknown
	t.lastTick = time.Time{}
}
