package mqtt

import (
	"log"
	"sync"
	"time"

	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// DefaultQueueSize bounds the events waiting to be published.
const DefaultQueueSize = 64

// EventListener publishes hotspot lifecycle events. Events are queued and
// published from a separate goroutine so a slow broker never stalls the
// handler; when the queue is full new events are dropped and logged.
type EventListener struct {
	pub     Publisher
	session string
	now     func() time.Time

	queue chan Event
	done  chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewEventListener starts a publishing goroutine for pub. Events carry session.
func NewEventListener(pub Publisher, session string, now func() time.Time, queueSize int) *EventListener {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	l := &EventListener{
		pub:     pub,
		session: session,
		now:     now,
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *EventListener) run() {
	defer close(l.done)
	for event := range l.queue {
		if err := l.pub.Publish(event); err != nil {
			log.Printf("mqtt: publish %s %d: %v", event.Type, event.HotspotID, err)
		}
	}
}

func (l *EventListener) HotspotActivating(args hotspot.HotspotArgs) {
	l.enqueue(EventActivating, args.ID, "")
}

func (l *EventListener) HotspotActivated(args hotspot.HotspotArgs) {
	l.enqueue(EventActivated, args.ID, "")
}

func (l *EventListener) HotspotDeactivating(args hotspot.HotspotArgs) {
	l.enqueue(EventDeactivating, args.ID, "")
}

func (l *EventListener) HotspotForcefullyDeactivated(args hotspot.HotspotArgs) {
	l.enqueue(EventForcefullyDeactivated, args.ID, "")
}

func (l *EventListener) HotspotSettled(args hotspot.HotspotArgs, state hotspot.State) {
	l.enqueue(EventSettled, args.ID, state.String())
}

func (l *EventListener) enqueue(t EventType, id int, state string) {
	event := Event{Timestamp: l.now(), Type: t, HotspotID: id, State: state, Session: l.session}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- event:
	default:
		l.dropped++
		if l.dropped == 1 || l.dropped%100 == 0 {
			log.Printf("mqtt: event queue full, dropped %d events", l.dropped)
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (l *EventListener) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close stops accepting events and waits for queued ones to be published.
func (l *EventListener) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()
	<-l.done
}
