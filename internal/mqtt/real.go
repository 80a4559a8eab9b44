package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// BufferSize is how many messages are held while the broker is unreachable.
const BufferSize = 256

// RealPublisher publishes to an actual MQTT broker. While disconnected,
// messages are buffered and replayed in order on reconnect. The broker
// publishes a retained SHUTDOWN on our behalf if the connection drops.
type RealPublisher struct {
	client  paho.Client
	topic   string
	session string

	mu        sync.Mutex
	connected bool
	everUp    bool
	buf       *outbox
	sigs      hotspot.Signals
	sel       Selector
}

// NewRealPublisher creates a publisher for the given broker. The connection is
// retried in the background; an unreachable broker is not an error. session
// tags the will and RECONNECTED events.
func NewRealPublisher(broker, clientID, session string) (*RealPublisher, error) {
	p := &RealPublisher{
		topic:   Topic,
		session: session,
		buf:     newOutbox(BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
		Session:   session,
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	p.connected = true
	reconnect := p.everUp
	p.everUp = true
	pending := p.buf.drainAll()
	dropped := p.buf.droppedTotal()
	sigs, sel := p.sigs, p.sel
	p.mu.Unlock()

	log.Printf("mqtt: connected, replaying %d buffered messages (dropped=%d)", len(pending), dropped)

	if sigs != nil {
		p.subscribe(c, sigs, sel)
	}
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED", Session: p.session})
		c.Publish(TopicSystem, 1, false, payload)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	log.Printf("mqtt: connection lost: %v", err)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Publish sends a hotspot event to the MQTT broker.
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: p.topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for system events - we want to ensure delivery
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(m bufferedMsg) error {
	p.mu.Lock()
	if !p.connected {
		p.buf.push(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// SubscribeSignals routes messages on TopicSignals to sigs and sel. The
// subscription is renewed on every reconnect.
func (p *RealPublisher) SubscribeSignals(sigs hotspot.Signals, sel Selector) {
	p.mu.Lock()
	p.sigs, p.sel = sigs, sel
	connected := p.connected
	p.mu.Unlock()

	if connected {
		p.subscribe(p.client, sigs, sel)
	}
}

func (p *RealPublisher) subscribe(c paho.Client, sigs hotspot.Signals, sel Selector) {
	token := c.Subscribe(TopicSignals, 1, func(_ paho.Client, msg paho.Message) {
		Dispatch(msg.Payload(), sigs, sel)
	})
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: subscribe %s timeout", TopicSignals)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: subscribe %s: %v", TopicSignals, err)
		}
	}()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
