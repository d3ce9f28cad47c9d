package logic

import "time"

// Config holds the controller tunables.
type Config struct {
	MaxLevel       int
	ReleaseTimeout time.Duration
	StopTimeout    time.Duration
	// StopOnDisconnect stops the motor as soon as the remote drops instead of
	// waiting for the watchdog.
	StopOnDisconnect bool
}

// DefaultConfig returns the tunables used by the BT13 remote.
func DefaultConfig() Config {
	return Config{
		MaxLevel:       5,
		ReleaseTimeout: 200 * time.Millisecond,
		StopTimeout:    10 * time.Second,
	}
}

// Controller owns the speed state, the long-press tracker and the connection
// watchdog. It is not safe for concurrent use: a single goroutine must own it
// and feed it reports, connection changes and poll ticks in order.
type Controller struct {
	cfg           Config
	speed         *SpeedController
	tracker       *LongPressTracker
	watchdog      *Watchdog
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewController creates a stopped controller. The watchdog is armed from
// startTime because the remote is not yet connected.
func NewController(cfg Config, startTime time.Time) *Controller {
	return &Controller{
		cfg:           cfg,
		speed:         NewSpeedController(cfg.MaxLevel),
		tracker:       NewLongPressTracker(cfg.ReleaseTimeout),
		watchdog:      NewWatchdog(cfg.StopTimeout, startTime),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// HandleReport classifies a raw input report and applies it.
func (c *Controller) HandleReport(report []byte, now time.Time) []Event {
	usage, ok := ParseReport(report)
	if !ok {
		c.eventCounts.Malformed++
		return []Event{c.event(now, EventMalformedInput, Unknown, 0, false)}
	}

	if usage == UsageIdle {
		// Key-up report: a release may be due before the next poll.
		c.eventCounts.Idle++
		return c.checkRelease(now)
	}

	cmd := Classify(usage)
	var events []Event
	switch cmd {
	case ShortIncrement:
		changed := c.speed.ShortIncrement()
		c.eventCounts.ShortIncrement++
		events = append(events, c.event(now, EventShortIncrement, cmd, usage, changed))
	case ShortDecrement:
		changed := c.speed.ShortDecrement()
		c.eventCounts.ShortDecrement++
		events = append(events, c.event(now, EventShortDecrement, cmd, usage, changed))
	case Stop:
		// Does not clear the tracker; a stale release later hits the
		// EndLongPress guard and changes nothing.
		changed := c.speed.Stop()
		c.eventCounts.Stop++
		events = append(events, c.event(now, EventStop, cmd, usage, changed))
	case LongIncrementTick, LongDecrementTick:
		events = c.handleLongTick(cmd, usage, now)
	default:
		c.eventCounts.Unknown++
		events = append(events, c.event(now, EventUnknownInput, cmd, usage, false))
	}
	return events
}

func (c *Controller) handleLongTick(cmd Command, usage uint16, now time.Time) []Event {
	res := c.tracker.Tick(cmd, now)
	if !res.Started {
		return nil
	}

	var events []Event
	if res.Released != Unknown {
		changed := c.speed.EndLongPress()
		c.eventCounts.LongRelease++
		events = append(events, c.event(now, EventLongRelease, res.Released, 0, changed))
	}

	dir := Backward
	if cmd == LongIncrementTick {
		dir = Forward
	}
	changed := c.speed.StartLongPress(dir)
	c.eventCounts.LongStart++
	events = append(events, c.event(now, EventLongStart, cmd, usage, changed))
	return events
}

// Poll runs the periodic checks: long-press release inference, then the
// connection watchdog.
func (c *Controller) Poll(now time.Time) []Event {
	events := c.checkRelease(now)

	if c.watchdog.Check(now) {
		changed := c.speed.Stop()
		c.eventCounts.WatchdogStop++
		events = append(events, c.event(now, EventWatchdogStop, Stop, 0, changed))
	}
	return events
}

func (c *Controller) checkRelease(now time.Time) []Event {
	released, ok := c.tracker.CheckRelease(now)
	if !ok {
		return nil
	}
	changed := c.speed.EndLongPress()
	c.eventCounts.LongRelease++
	return []Event{c.event(now, EventLongRelease, released, 0, changed)}
}

// Connected records that the remote link is up.
func (c *Controller) Connected(now time.Time) []Event {
	c.watchdog.OnConnected(now)
	c.eventCounts.Connected++
	return []Event{c.event(now, EventConnected, Unknown, 0, false)}
}

// Disconnected records that the remote link is down.
func (c *Controller) Disconnected(now time.Time) []Event {
	c.watchdog.OnDisconnected(now)
	c.eventCounts.Disconnected++
	events := []Event{c.event(now, EventDisconnected, Unknown, 0, false)}
	if c.cfg.StopOnDisconnect {
		changed := c.speed.Stop()
		events = append(events, c.event(now, EventDisconnectStop, Stop, 0, changed))
	}
	return events
}

// IsConnected reports whether the remote link is up.
func (c *Controller) IsConnected() bool {
	return c.watchdog.Connected()
}

// Snapshot returns the current state for status consumers.
func (c *Controller) Snapshot(now time.Time) Snapshot {
	button, _, _ := c.tracker.Active()
	return Snapshot{
		State:           c.speed.State(),
		Output:          c.speed.Output(),
		MaxLevel:        c.speed.MaxLevel(),
		Percent:         c.speed.Percent(),
		LongPressButton: button,
		Connected:       c.watchdog.Connected(),
		DisconnectedFor: c.watchdog.DisconnectedFor(now),
		Counts:          c.eventCounts,
	}
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.eventCounts,
	}
}

func (c *Controller) event(now time.Time, typ EventType, cmd Command, usage uint16, changed bool) Event {
	return Event{
		Timestamp: now,
		Type:      typ,
		Command:   cmd,
		Usage:     usage,
		Changed:   changed,
		State:     c.speed.State(),
		Output:    c.speed.Output(),
	}
}
