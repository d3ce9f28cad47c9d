package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap/zaptest"

	"github.com/sweeney/remote-motor/internal/logic"
)

func TestFormatPayload(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      logic.EventShortIncrement,
		Command:   logic.ShortIncrement,
		Usage:     logic.UsageShortIncrement,
		Changed:   true,
		State:     logic.SpeedState{Level: 3, Enabled: true},
		Output:    logic.Output{Duty: 153, Direction: logic.Forward},
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"motor":{"timestamp":"2026-02-02T22:18:12Z","event":"SHORT_INCREMENT","command":"SHORT_INCREMENT","usage":"0x0004","changed":true,"level":3,"duty":153,"direction":"FORWARD","long_press":false}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadAllEventTypes(t *testing.T) {
	tests := []struct {
		event       logic.Event
		wantEvent   string
		wantCommand string
		wantDir     string
	}{
		{logic.Event{Type: logic.EventLongStart, Command: logic.LongDecrementTick, State: logic.SpeedState{Level: -5, Enabled: true, LongPressActive: true}, Output: logic.Output{Duty: 255}}, "LONG_START", "LONG_DECREMENT_TICK", "BACKWARD"},
		{logic.Event{Type: logic.EventLongRelease, Command: logic.LongIncrementTick}, "LONG_RELEASE", "LONG_INCREMENT_TICK", "BACKWARD"},
		{logic.Event{Type: logic.EventWatchdogStop, Command: logic.Stop}, "WATCHDOG_STOP", "STOP", "BACKWARD"},
		{logic.Event{Type: logic.EventConnected}, "CONNECTED", "", "BACKWARD"},
		{logic.Event{Type: logic.EventUnknownInput, Usage: 0xE9, State: logic.SpeedState{Level: 1, Enabled: true}, Output: logic.Output{Duty: 51, Direction: logic.Forward}}, "UNKNOWN_INPUT", "", "FORWARD"},
	}

	for _, tt := range tests {
		t.Run(tt.wantEvent, func(t *testing.T) {
			tt.event.Timestamp = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)
			payload, err := FormatPayload(tt.event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Motor.Event != tt.wantEvent {
				t.Errorf("event: got %s, want %s", parsed.Motor.Event, tt.wantEvent)
			}
			if parsed.Motor.Command != tt.wantCommand {
				t.Errorf("command: got %s, want %s", parsed.Motor.Command, tt.wantCommand)
			}
			if parsed.Motor.Direction != tt.wantDir {
				t.Errorf("direction: got %s, want %s", parsed.Motor.Direction, tt.wantDir)
			}
			if parsed.Motor.Level != tt.event.State.Level || parsed.Motor.Duty != tt.event.Output.Duty {
				t.Errorf("state: got level %d duty %d", parsed.Motor.Level, parsed.Motor.Duty)
			}
			if parsed.Motor.LongPress != tt.event.State.LongPressActive {
				t.Errorf("long_press: got %v", parsed.Motor.LongPress)
			}
		})
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 3, 12, 0, 0, 500_000_000, loc),
		Type:      logic.EventStop,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Motor.Timestamp != "2026-02-03T10:00:00.5Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Motor.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "motor/remote/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "motor/remote/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	tests := []struct {
		name     string
		event    SystemEvent
		expected string
	}{
		{
			"shutdown",
			SystemEvent{Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC), Event: "SHUTDOWN", Reason: "SIGTERM"},
			`{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`,
		},
		{
			"will",
			SystemEvent{Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC), Event: "OFFLINE", Reason: "MQTT_DISCONNECT"},
			`{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"OFFLINE","reason":"MQTT_DISCONNECT"}}`,
		},
		{
			"reconnected omits reason",
			SystemEvent{Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC), Event: "RECONNECTED"},
			`{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := FormatSystemPayload(tt.event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(payload) != tt.expected {
				t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, tt.expected)
			}
		})
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload should pass through, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(logic.Event{Type: logic.EventStop}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if types := f.EventTypes(); len(types) != 1 || types[0] != logic.EventStop {
		t.Errorf("events: got %v", types)
	}
	if len(f.Payloads) != 1 || len(f.SystemPayloads) != 1 {
		t.Errorf("payloads: got %d/%d", len(f.Payloads), len(f.SystemPayloads))
	}
	if names := f.SystemEventNames(); len(names) != 1 || names[0] != "STARTUP" {
		t.Errorf("system events: got %v", names)
	}
	if !f.SystemEvents[0].Retained {
		t.Error("retained flag should be recorded")
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("publish failed")
	f.PublishSystemError = errors.New("system failed")

	if err := f.Publish(logic.Event{}); err == nil {
		t.Error("expected publish error")
	}
	if err := f.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected system error")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(logic.Event{Type: logic.EventStop})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.Connected = true

	f.Reset()

	if len(f.Events) != 0 || len(f.SystemEvents) != 0 || f.Closed || f.Connected {
		t.Errorf("reset incomplete: %+v", f)
	}
	if err := f.Publish(logic.Event{Type: logic.EventStop}); err != nil || len(f.Events) != 1 {
		t.Error("publisher should be reusable after reset")
	}
}

// fakeToken is an already-completed paho token.
type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

// fakeClient overrides the paho.Client methods RealPublisher uses.
type fakeClient struct {
	paho.Client

	mu           sync.Mutex
	open         bool
	published    []published
	disconnected bool
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeClient) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic, qos, retained, string(payload.([]byte))})
	return fakeToken{}
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func (c *fakeClient) sent() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.published...)
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	client := &fakeClient{open: true}
	now := time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC)
	p := newPublisher(client, func() time.Time { return now }, zaptest.NewLogger(t).Sugar())
	p.onConnect()

	if err := p.Publish(logic.Event{Timestamp: now, Type: logic.EventStop}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Timestamp: now, Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := client.sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sent))
	}
	if sent[0].topic != Topic || sent[0].qos != 0 || sent[0].retained {
		t.Errorf("event message: %+v", sent[0])
	}
	if sent[1].topic != TopicSystem || sent[1].qos != 1 || !sent[1].retained {
		t.Errorf("system message: %+v", sent[1])
	}
	if !p.IsConnected() {
		t.Error("IsConnected should follow the client")
	}
}

func TestRealPublisherBuffersAndReplays(t *testing.T) {
	client := &fakeClient{}
	now := time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC)
	p := newPublisher(client, func() time.Time { return now }, zaptest.NewLogger(t).Sugar())

	// Startup before the broker is reachable.
	p.PublishSystem(SystemEvent{Timestamp: now, Event: "STARTUP", Retained: true})
	if p.Buffered() != 1 || len(client.sent()) != 0 {
		t.Fatalf("expected 1 buffered message, got %d buffered %d sent", p.Buffered(), len(client.sent()))
	}

	// First connection replays without RECONNECTED.
	client.setOpen(true)
	p.onConnect()
	sent := client.sent()
	if len(sent) != 1 || sent[0].topic != TopicSystem {
		t.Fatalf("expected replayed STARTUP, got %+v", sent)
	}

	// Outage.
	client.setOpen(false)
	p.Publish(logic.Event{Timestamp: now, Type: logic.EventShortIncrement})
	p.Publish(logic.Event{Timestamp: now, Type: logic.EventShortDecrement})
	if p.Buffered() != 2 {
		t.Fatalf("expected 2 buffered, got %d", p.Buffered())
	}

	client.setOpen(true)
	p.onConnect()
	sent = client.sent()[1:]
	if len(sent) != 3 {
		t.Fatalf("expected RECONNECTED + 2 replayed, got %d", len(sent))
	}
	if sent[0].payload != `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}` {
		t.Errorf("reconnected payload: %s", sent[0].payload)
	}
	var first Payload
	if err := json.Unmarshal([]byte(sent[1].payload), &first); err != nil || first.Motor.Event != "SHORT_INCREMENT" {
		t.Errorf("replay order: got %s", sent[1].payload)
	}
	if p.Buffered() != 0 {
		t.Error("buffer should be empty after replay")
	}
}

func TestRealPublisherBufferOverflowKeepsNewest(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, time.Now, zaptest.NewLogger(t).Sugar())

	for i := 0; i < BufferSize+10; i++ {
		p.Publish(logic.Event{Type: logic.EventShortIncrement, State: logic.SpeedState{Level: i}})
	}
	if p.Buffered() != BufferSize {
		t.Errorf("expected %d buffered, got %d", BufferSize, p.Buffered())
	}

	client.setOpen(true)
	p.onConnect()
	sent := client.sent()
	var oldest Payload
	if err := json.Unmarshal([]byte(sent[0].payload), &oldest); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if oldest.Motor.Level != 10 {
		t.Errorf("oldest kept message: got level %d, want 10", oldest.Motor.Level)
	}
	if p.Dropped() != 10 {
		t.Errorf("Dropped: got %d, want 10", p.Dropped())
	}
}

func TestRealPublisherBuffersUntilConnectHandlerRuns(t *testing.T) {
	// paho reports the connection open before the handler fires.
	client := &fakeClient{open: true}
	p := newPublisher(client, time.Now, zaptest.NewLogger(t).Sugar())

	p.Publish(logic.Event{Type: logic.EventShortIncrement})
	if p.Buffered() != 1 || len(client.sent()) != 0 {
		t.Fatalf("expected buffering before onConnect, got %d buffered %d sent", p.Buffered(), len(client.sent()))
	}
	p.onConnect()
	if p.Buffered() != 0 || len(client.sent()) != 1 {
		t.Fatalf("expected replay on connect, got %d buffered %d sent", p.Buffered(), len(client.sent()))
	}

	// Lost before the client notices the socket is gone.
	p.onConnectionLost()
	p.Publish(logic.Event{Type: logic.EventStop})
	if p.Buffered() != 1 {
		t.Errorf("expected buffering after connection loss, got %d", p.Buffered())
	}
}

func TestRealPublisherConcurrentPublishDuringConnect(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, time.Now, zaptest.NewLogger(t).Sugar())

	const n = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			p.Publish(logic.Event{Type: logic.EventShortIncrement, State: logic.SpeedState{Level: i}})
		}
	}()
	client.setOpen(true)
	p.onConnect()
	wg.Wait()

	if p.Buffered() != 0 {
		t.Errorf("%d messages stranded in the buffer after connect", p.Buffered())
	}
	sent := client.sent()
	if len(sent) != n {
		t.Fatalf("expected %d sent, got %d", n, len(sent))
	}
	for i, m := range sent {
		var got Payload
		if err := json.Unmarshal([]byte(m.payload), &got); err != nil || got.Motor.Level != i {
			t.Fatalf("message %d out of order: %s", i, m.payload)
		}
	}
}

func TestRealPublisherClose(t *testing.T) {
	client := &fakeClient{open: true}
	p := newPublisher(client, time.Now, zaptest.NewLogger(t).Sugar())
	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !client.disconnected {
		t.Error("Close should disconnect the client")
	}
}
