package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sweeney/remote-motor/internal/logic"
)

// BufferSize is the number of messages kept while the broker is unreachable.
const BufferSize = 100

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker. Publishing never blocks
// the caller on the network: while the connection is down messages go to a
// ring buffer that is replayed, oldest first, on reconnect.
type RealPublisher struct {
	client paho.Client
	logger *zap.SugaredLogger
	now    func() time.Time

	mu            sync.Mutex
	buffer        *ringBuffer
	everConnected bool
	linked        bool // onConnect has run since the last connection loss
}

// NewRealPublisher creates a publisher for the given broker. A broker that is
// unreachable at startup is not an error: paho keeps retrying in the
// background and messages are buffered meanwhile.
func NewRealPublisher(broker string, logger *zap.SugaredLogger) (*RealPublisher, error) {
	p := newPublisher(nil, time.Now, logger)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, errors.Wrap(err, "format will payload")
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("remote-motor").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warnw("mqtt connection lost", "broker", broker, "error", err)
			p.onConnectionLost()
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		logger.Warnw("mqtt broker not reachable yet, buffering", "broker", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "connect to broker %s", broker)
	}
	return p, nil
}

func newPublisher(client paho.Client, now func() time.Time, logger *zap.SugaredLogger) *RealPublisher {
	return &RealPublisher{
		client: client,
		logger: logger,
		now:    now,
		buffer: newRingBuffer(BufferSize, logger),
	}
}

// onConnect announces a reconnection and replays buffered messages. The
// replay is sent under the lock so a concurrent Publish can neither slip
// into the drained buffer nor overtake the replay.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	reconnect := p.everConnected
	p.everConnected = true
	p.linked = true
	pending := p.buffer.drainAll()

	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		if err == nil {
			p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1})
		}
	}
	for _, m := range pending {
		p.send(m)
	}
	p.mu.Unlock()

	p.logger.Infow("mqtt connected", "reconnect", reconnect, "replayed", len(pending))
}

func (p *RealPublisher) onConnectionLost() {
	p.mu.Lock()
	p.linked = false
	p.mu.Unlock()
}

// Publish sends a motor event at QoS 0, not retained.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return errors.Wrap(err, "format payload")
	}
	p.enqueue(bufferedMsg{topic: Topic, payload: payload, qos: 0})
	return nil
}

// PublishSystem sends a system lifecycle event at QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return errors.Wrap(err, "format system payload")
	}
	p.enqueue(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

// enqueue sends m, or buffers it until the next onConnect. The connection
// check and the push share one critical section with onConnect's drain.
func (p *RealPublisher) enqueue(m bufferedMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.linked || !p.client.IsConnectionOpen() {
		p.buffer.push(m)
		return
	}
	p.send(m)
}

// send publishes without waiting on the network; failures are logged from a goroutine.
func (p *RealPublisher) send(m bufferedMsg) {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			p.logger.Warnw("mqtt publish timeout", "topic", m.topic)
			return
		}
		if err := token.Error(); err != nil {
			p.logger.Warnw("mqtt publish failed", "topic", m.topic, "error", err)
		}
	}()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// Dropped returns the number of buffered messages overwritten while the
// broker was unreachable.
func (p *RealPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.dropped
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close flushes outstanding QoS 1 messages for up to a second and disconnects.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
