package remote

import (
	"context"
	"errors"
	"sync"
)

// Session is one scripted connection of a FakeSource.
type Session struct {
	// OpenError, if set, fails the Open call for this session.
	OpenError error
	// Reports are pushed by Run in order.
	Reports [][]byte
	// RunError is returned by Run after the reports.
	RunError error
}

// FakeSource is a test double that plays scripted sessions. After the last
// session Open fails until ctx is done.
type FakeSource struct {
	mu       sync.Mutex
	sessions []Session
	index    int

	// Opens and Closes count calls.
	Opens  int
	Closes int
}

// NewFakeSource creates a FakeSource with the given sessions.
func NewFakeSource(sessions ...Session) *FakeSource {
	return &FakeSource{sessions: sessions}
}

// Name returns "fake".
func (f *FakeSource) Name() string { return "fake" }

// Open starts the next session.
func (f *FakeSource) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Opens++
	if f.index >= len(f.sessions) {
		return errors.New("no more sessions")
	}
	if err := f.sessions[f.index].OpenError; err != nil {
		f.index++
		return err
	}
	return nil
}

// Run pushes the current session's reports and ends it.
func (f *FakeSource) Run(ctx context.Context, q *Queue) error {
	f.mu.Lock()
	s := f.sessions[f.index]
	f.index++
	f.mu.Unlock()

	for _, r := range s.Reports {
		q.PushReport(f.Name(), r)
	}
	return s.RunError
}

// Close counts the call.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closes++
	return nil
}
