package indicator

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sweeney/remote-motor/internal/logic"
)

// Line is a single digital output.
type Line interface {
	SetValue(int) error
	Close() error
}

// Indicator reflects controller events on the LED.
type Indicator interface {
	Show(e logic.Event, connected bool, now time.Time)
}

// Nop is an Indicator for boards without an LED.
type Nop struct{}

// Show does nothing.
func (Nop) Show(logic.Event, bool, time.Time) {}

// Blinker plays a steady pattern with optional one-shot bursts on top.
// Show is called by the run loop, Step by the Blinker's own goroutine.
type Blinker struct {
	mu          sync.Mutex
	line        Line
	logger      *zap.SugaredLogger
	steady      Pattern
	steadyStart time.Time
	burst       Pattern
	burstStart  time.Time
	level       int
}

// NewBlinker creates a Blinker driving line. The LED starts off.
func NewBlinker(line Line, logger *zap.SugaredLogger) *Blinker {
	return &Blinker{line: line, logger: logger, steady: PatternOff, level: -1}
}

// Show updates the steady pattern from the event's state and starts the
// event's burst, if it has one.
func (b *Blinker) Show(e logic.Event, connected bool, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	steady := Steady(connected, e.State.Enabled)
	if steady != b.steady {
		b.steady = steady
		b.steadyStart = now
	}
	if burst, ok := BurstFor(e.Type); ok {
		b.burst = burst
		b.burstStart = now
	}
}

// Level returns the LED level due at now.
func (b *Blinker) Level(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.levelLocked(now)
}

func (b *Blinker) levelLocked(now time.Time) int {
	if b.burst.Count > 0 {
		level, done := b.burst.Level(now.Sub(b.burstStart))
		if !done {
			return level
		}
		b.burst = Pattern{}
	}
	level, _ := b.steady.Level(now.Sub(b.steadyStart))
	return level
}

// Step writes the LED level due at now, only when it changed.
func (b *Blinker) Step(now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	level := b.levelLocked(now)
	if level == b.level {
		return nil
	}
	if err := b.line.SetValue(level); err != nil {
		return errors.Wrap(err, "set led")
	}
	b.level = level
	return nil
}

// Run steps the LED on every tick until ctx is done, then turns it off.
func (b *Blinker) Run(ctx context.Context, tick <-chan time.Time, now func() time.Time) {
	for {
		select {
		case <-ctx.Done():
			if err := b.line.SetValue(0); err != nil {
				b.logger.Warnw("led off failed", "error", err)
			}
			return
		case <-tick:
			if err := b.Step(now()); err != nil {
				b.logger.Warnw("led update failed", "error", err)
			}
		}
	}
}
