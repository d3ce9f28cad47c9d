package indicator

import "sync"

// FakeLine is a test double that records every value written.
type FakeLine struct {
	mu     sync.Mutex
	values []int

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by SetValue.
	SetError error
}

// SetValue records v.
func (f *FakeLine) SetValue(v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.values = append(f.values, v)
	return nil
}

// Values returns a copy of the written values.
func (f *FakeLine) Values() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.values))
	copy(out, f.values)
	return out
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
