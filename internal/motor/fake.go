package motor

import (
	"sync"

	"github.com/sweeney/remote-motor/internal/logic"
)

// Call is a single recorded SetMotor invocation.
type Call struct {
	Duty      uint8
	Direction logic.Direction
}

// FakeActuator is a test double that records every SetMotor call.
type FakeActuator struct {
	mu    sync.Mutex
	calls []Call

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by SetMotor. The call is still recorded.
	SetError error
}

// NewFakeActuator creates a FakeActuator.
func NewFakeActuator() *FakeActuator {
	return &FakeActuator{}
}

// SetMotor records the call.
func (f *FakeActuator) SetMotor(duty uint8, dir logic.Direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Duty: duty, Direction: dir})
	return f.SetError
}

// Calls returns a copy of all recorded calls.
func (f *FakeActuator) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Last returns the most recent call, or false if none.
func (f *FakeActuator) Last() (Call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return Call{}, false
	}
	return f.calls[len(f.calls)-1], true
}

// Close marks the actuator as closed and stops the motor.
func (f *FakeActuator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{})
	f.Closed = true
	return nil
}

// Reset clears recorded calls.
func (f *FakeActuator) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.Closed = false
}
