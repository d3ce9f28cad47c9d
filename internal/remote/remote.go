// Package remote adapts the Bluetooth HID remote to the run loop. Sources
// deliver raw input reports and link changes into a bounded Queue that the
// single run loop drains.
package remote

import (
	"context"
	"sync/atomic"
)

// Kind is the kind of a remote event.
type Kind int

const (
	Report Kind = iota
	Connected
	Disconnected
)

func (k Kind) String() string {
	switch k {
	case Connected:
		return "CONNECTED"
	case Disconnected:
		return "DISCONNECTED"
	default:
		return "REPORT"
	}
}

// Event is one delivery from a source.
type Event struct {
	Kind   Kind
	Report []byte // Report only
	Source string
}

// DefaultQueueSize is the capacity of the event queue.
const DefaultQueueSize = 64

// Queue is a bounded hand-off between sources and the run loop.
type Queue struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewQueue creates a queue holding up to capacity events.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Event, capacity)}
}

// PushReport enqueues an input report without blocking. It returns false and
// counts a drop when the queue is full.
func (q *Queue) PushReport(source string, report []byte) bool {
	select {
	case q.ch <- Event{Kind: Report, Report: report, Source: source}:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// PushLifecycle enqueues a link change, blocking until it is accepted or ctx
// is done.
func (q *Queue) PushLifecycle(ctx context.Context, kind Kind, source string) error {
	select {
	case q.ch <- Event{Kind: kind, Source: source}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C is the receive side for the run loop.
func (q *Queue) C() <-chan Event {
	return q.ch
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Dropped returns the number of reports dropped because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Source is a remote input device.
type Source interface {
	// Open blocks until the remote link is up, or fails.
	Open(ctx context.Context) error
	// Run delivers reports until the link is lost or ctx is done.
	Run(ctx context.Context, q *Queue) error
	// Close releases the device. It is safe to call after a failed Open.
	Close() error
	// Name identifies the device in logs and events.
	Name() string
}
