package remote

import (
	"sort"
	"testing"
	"time"

	"github.com/sweeney/remote-motor/internal/logic"
)

const (
	evSyn   = 0x00
	keyCode = 115
)

type kernelEvent struct {
	at    time.Duration
	typ   uint16
	code  uint16
	value int32
}

// press is what hid-input emits for one button transition.
func press(at time.Duration, usage uint16, value int32) []kernelEvent {
	return []kernelEvent{
		{at, evMsc, mscScan, int32(usage)},
		{at, evKey, keyCode, value},
		{at, evSyn, 0, 0},
	}
}

func repeats(from, until time.Duration) []kernelEvent {
	var evs []kernelEvent
	for at := from; at <= until; at += keyRepeatPeriod {
		evs = append(evs, kernelEvent{at, evKey, keyCode, keyRepeat}, kernelEvent{at, evSyn, 0, 0})
	}
	return evs
}

// replay feeds the kernel stream through a keyMapper into c, polling every
// 50ms as the main loop does. check runs after every step.
func replay(c *logic.Controller, start time.Time, evs []kernelEvent, end time.Duration, check func(at time.Duration)) {
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].at < evs[j].at })

	var keys keyMapper
	next := 0
	for poll := time.Duration(0); poll <= end; poll += 50 * time.Millisecond {
		for ; next < len(evs) && evs[next].at <= poll; next++ {
			ev := evs[next]
			if report, ok := keys.mapEvent(ev.typ, ev.code, ev.value); ok {
				c.HandleReport(report, start.Add(ev.at))
				check(ev.at)
			}
		}
		c.Poll(start.Add(poll))
		check(poll)
	}
}

func TestKeyMapperOneReportPerPress(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := logic.NewController(logic.DefaultConfig(), start)
	c.Connected(start)

	var evs []kernelEvent
	evs = append(evs, press(0, logic.UsageShortIncrement, keyDown)...)
	evs = append(evs, press(80*time.Millisecond, logic.UsageShortIncrement, keyUp)...)
	evs = append(evs, press(300*time.Millisecond, logic.UsageShortIncrement, keyDown)...)
	evs = append(evs, press(380*time.Millisecond, logic.UsageShortIncrement, keyUp)...)
	replay(c, start, evs, 500*time.Millisecond, func(time.Duration) {})

	snap := c.Snapshot(start.Add(500 * time.Millisecond))
	if snap.Counts.ShortIncrement != 2 {
		t.Errorf("ShortIncrement: got %d, want 2", snap.Counts.ShortIncrement)
	}
	if snap.State.Level != 2 {
		t.Errorf("Level: got %d, want 2", snap.State.Level)
	}
	if snap.Counts.Idle != 2 {
		t.Errorf("Idle: got %d, want 2", snap.Counts.Idle)
	}
}

func TestKeyMapperAutorepeatHoldsLongPress(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := logic.NewController(logic.DefaultConfig(), start)
	c.Connected(start)

	keyUpAt := 610 * time.Millisecond
	var evs []kernelEvent
	evs = append(evs, press(0, logic.UsageLongIncrement, keyDown)...)
	evs = append(evs, repeats(keyRepeatDelay, 600*time.Millisecond)...)
	evs = append(evs, press(keyUpAt, logic.UsageLongIncrement, keyUp)...)

	released := time.Duration(-1)
	replay(c, start, evs, time.Second, func(at time.Duration) {
		snap := c.Snapshot(start.Add(at))
		if at < keyUpAt && (!snap.State.LongPressActive || snap.LongPressButton != logic.LongIncrementTick) {
			t.Errorf("at %v: long press dropped while the button is held", at)
		}
		if !snap.State.LongPressActive && released < 0 {
			released = at
		}
	})

	snap := c.Snapshot(start.Add(time.Second))
	if snap.Counts.LongStart != 1 {
		t.Errorf("LongStart: got %d, want 1", snap.Counts.LongStart)
	}
	if snap.Counts.LongRelease != 1 {
		t.Errorf("LongRelease: got %d, want 1", snap.Counts.LongRelease)
	}
	if released < keyUpAt {
		t.Errorf("released at %v, want after key-up at %v", released, keyUpAt)
	}
}

func TestKeyMapperIgnoresRepeatWithoutScan(t *testing.T) {
	var m keyMapper
	if _, ok := m.mapEvent(evKey, keyCode, keyRepeat); ok {
		t.Error("repeat before any scan should not produce a report")
	}
	if _, ok := m.mapEvent(evSyn, 0, 0); ok {
		t.Error("sync should not produce a report")
	}
	if _, ok := m.mapEvent(evMsc, mscScan, 0x000C0010); ok {
		t.Error("scan alone should not produce a report")
	}
	got, ok := m.mapEvent(evKey, keyCode, keyDown)
	if !ok || string(got) != "\x10\x00" {
		t.Errorf("key down: got (% x, %v), want (10 00, true)", got, ok)
	}
}
