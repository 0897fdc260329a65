package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/pulse-logger/internal/pulselog"
)

// BacklogSize is how many messages are kept while the broker is unreachable.
const BacklogSize = 512

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are queued and replayed in order on reconnect.
type RealPublisher struct {
	client paho.Client

	mu      sync.Mutex
	backlog *backlog
}

// NewRealPublisher creates a publisher for the given broker. Connection
// happens in the background and is retried; it does not block startup.
func NewRealPublisher(broker, clientID string) *RealPublisher {
	p := &RealPublisher{backlog: newBacklog(BacklogSize)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { p.replay() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

// Publish sends a closed bucket (QoS 1, not retained).
func (p *RealPublisher) Publish(b pulselog.Bucket) error {
	payload, err := FormatPayload(b)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(pendingMsg{topic: TopicBuckets, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(pendingMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(msg pendingMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.backlog.push(msg)
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// replay runs on the paho callback goroutine after each (re)connect.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	msgs, dropped := p.backlog.drain()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	log.Printf("mqtt: connected, replaying %d queued messages (%d dropped)", len(msgs), dropped)
	for _, m := range msgs {
		p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
