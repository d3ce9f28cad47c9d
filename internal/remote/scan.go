package remote

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reconnect cadence defaults.
const (
	DefaultRestartDelay   = 3 * time.Second
	DefaultRescanInterval = 30 * time.Second
)

// ScanPolicy decides when to try reopening the remote. The first attempt
// after a disconnect waits RestartDelay; further attempts while still
// disconnected are RescanInterval apart. Nothing is attempted while connected
// or while an attempt is in progress. The first attempt at boot is immediate.
type ScanPolicy struct {
	restartDelay   time.Duration
	rescanInterval time.Duration

	connected      bool
	inProgress     bool
	disconnectedAt time.Time
	lastAttempt    time.Time
	attempted      bool // since the last disconnect
	boot           bool
}

// NewScanPolicy creates a policy that attempts immediately.
func NewScanPolicy(restartDelay, rescanInterval time.Duration) *ScanPolicy {
	return &ScanPolicy{
		restartDelay:   restartDelay,
		rescanInterval: rescanInterval,
		boot:           true,
	}
}

// ShouldAttempt reports whether an open attempt is due at now.
func (p *ScanPolicy) ShouldAttempt(now time.Time) bool {
	if p.connected || p.inProgress {
		return false
	}
	if !p.attempted {
		return p.boot || now.Sub(p.disconnectedAt) >= p.restartDelay
	}
	return now.Sub(p.lastAttempt) >= p.rescanInterval
}

// AttemptStarted records the start of an open attempt.
func (p *ScanPolicy) AttemptStarted(now time.Time) {
	p.inProgress = true
	p.attempted = true
	p.lastAttempt = now
}

// AttemptFailed records a failed open attempt.
func (p *ScanPolicy) AttemptFailed() {
	p.inProgress = false
}

// Connected records that the link came up.
func (p *ScanPolicy) Connected() {
	p.connected = true
	p.inProgress = false
	p.boot = false
}

// Disconnected records that the link went down at now.
func (p *ScanPolicy) Disconnected(now time.Time) {
	p.connected = false
	p.inProgress = false
	p.attempted = false
	p.boot = false
	p.disconnectedAt = now
}

// Supervise runs the open/run/close cycle of src until ctx is done, emitting
// Connected and Disconnected events into q. Open attempts are paced by
// policy and checked on every tick.
func Supervise(ctx context.Context, src Source, q *Queue, policy *ScanPolicy, tick <-chan time.Time, now func() time.Time, logger *zap.SugaredLogger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}

		if !policy.ShouldAttempt(now()) {
			continue
		}
		policy.AttemptStarted(now())

		if err := src.Open(ctx); err != nil {
			src.Close()
			policy.AttemptFailed()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Infow("remote not available", "source", src.Name(), "error", err)
			continue
		}

		policy.Connected()
		logger.Infow("remote connected", "source", src.Name())
		if err := q.PushLifecycle(ctx, Connected, src.Name()); err != nil {
			src.Close()
			return err
		}

		runErr := src.Run(ctx, q)
		if err := src.Close(); err != nil {
			logger.Warnw("close remote failed", "source", src.Name(), "error", err)
		}
		policy.Disconnected(now())

		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warnw("remote disconnected", "source", src.Name(), "error", runErr)
		if err := q.PushLifecycle(ctx, Disconnected, src.Name()); err != nil {
			return err
		}
	}
}
