package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestScanPolicyBootIsImmediate(t *testing.T) {
	p := NewScanPolicy(3*time.Second, 30*time.Second)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !p.ShouldAttempt(t0) {
		t.Error("first attempt at boot should be immediate")
	}
}

func TestScanPolicyCadence(t *testing.T) {
	p := NewScanPolicy(3*time.Second, 30*time.Second)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	p.AttemptStarted(t0)
	if p.ShouldAttempt(t0.Add(time.Minute)) {
		t.Error("no attempt while one is in progress")
	}
	p.Connected()
	if p.ShouldAttempt(t0.Add(time.Hour)) {
		t.Error("no attempt while connected")
	}

	disc := t0.Add(2 * time.Hour)
	p.Disconnected(disc)
	if p.ShouldAttempt(disc.Add(2999 * time.Millisecond)) {
		t.Error("restart attempt before restart delay")
	}
	if !p.ShouldAttempt(disc.Add(3 * time.Second)) {
		t.Error("restart attempt due at restart delay")
	}

	p.AttemptStarted(disc.Add(3 * time.Second))
	p.AttemptFailed()
	if p.ShouldAttempt(disc.Add(32 * time.Second)) {
		t.Error("rescan before interval")
	}
	if !p.ShouldAttempt(disc.Add(33 * time.Second)) {
		t.Error("rescan due at interval")
	}
}

func TestSuperviseCycle(t *testing.T) {
	src := NewFakeSource(
		Session{OpenError: errors.New("not paired")},
		Session{Reports: [][]byte{{0x04, 0x00}, {0x10, 0x00}}, RunError: errors.New("device gone")},
	)
	q := NewQueue(DefaultQueueSize)
	policy := NewScanPolicy(0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tick := make(chan time.Time)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	done := make(chan error, 1)
	go func() {
		done <- Supervise(ctx, src, q, policy, tick, func() time.Time { return t0 }, zaptest.NewLogger(t).Sugar())
	}()

	tick <- t0 // fails
	tick <- t0 // connects, runs, disconnects

	want := []Kind{Connected, Report, Report, Disconnected}
	for i, k := range want {
		select {
		case e := <-q.C():
			if e.Kind != k {
				t.Errorf("event %d: got %s, want %s", i, e.Kind, k)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d", i)
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if src.Opens != 2 {
		t.Errorf("Opens: got %d, want 2", src.Opens)
	}
	if src.Closes != 2 {
		t.Errorf("Closes: got %d, want 2", src.Closes)
	}
}

func TestSuperviseStopsOnCancel(t *testing.T) {
	src := NewFakeSource()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Supervise(ctx, src, NewQueue(1), NewScanPolicy(0, 0), make(chan time.Time), time.Now, zaptest.NewLogger(t).Sugar())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if src.Opens != 0 {
		t.Error("should not open after cancel")
	}
}
