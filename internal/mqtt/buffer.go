package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// system reports whether m is a system event rather than a hotspot event.
func (m bufferedMsg) system() bool {
	return m.qos > 0
}

// outbox holds messages published while the broker is unreachable.
//
// Hotspot events are evicted before system events when it is full, and a
// retained message replaces any older retained message on the same topic,
// since the broker keeps only the last one. Not safe for concurrent use.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int
	overflow bool // logged once per disconnect
}

func newOutbox(capacity int) *outbox {
	return &outbox{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.retained {
		for i, m := range o.msgs {
			if m.retained && m.topic == msg.topic {
				o.removeAt(i)
				break
			}
		}
	}

	if len(o.msgs) == o.capacity {
		if !o.overflow {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", o.capacity)
			o.overflow = true
		}
		o.removeAt(o.victim())
		o.dropped++
	}
	o.msgs = append(o.msgs, msg)
}

// victim picks the oldest hotspot event, or the oldest message if only
// system events are queued.
func (o *outbox) victim() int {
	for i, m := range o.msgs {
		if !m.system() {
			return i
		}
	}
	return 0
}

func (o *outbox) removeAt(i int) {
	copy(o.msgs[i:], o.msgs[i+1:])
	o.msgs = o.msgs[:len(o.msgs)-1]
}

// drainAll returns queued messages oldest first and empties the outbox.
func (o *outbox) drainAll() []bufferedMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := make([]bufferedMsg, len(o.msgs))
	copy(out, o.msgs)
	o.msgs = o.msgs[:0]
	o.overflow = false
	return out
}

func (o *outbox) len() int {
	return len(o.msgs)
}

// droppedTotal is the number of messages evicted since creation.
func (o *outbox) droppedTotal() int {
	return o.dropped
}
