package mqtt

import (
	"testing"
)

func hotspotMsg(i int) bufferedMsg {
	return bufferedMsg{topic: Topic, payload: []byte{byte(i)}}
}

func systemMsg(i int, retained bool) bufferedMsg {
	return bufferedMsg{topic: TopicSystem, payload: []byte{byte(i)}, qos: 1, retained: retained}
}

func payloads(msgs []bufferedMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(10)
	if got := o.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestOutboxPushAndDrainInOrder(t *testing.T) {
	o := newOutbox(10)
	for i := 0; i < 5; i++ {
		o.push(hotspotMsg(i))
	}

	got := o.drainAll()
	if string(payloads(got)) != string([]byte{0, 1, 2, 3, 4}) {
		t.Fatalf("drain order: got %v", payloads(got))
	}
	if o.len() != 0 {
		t.Errorf("len after drain: got %d, want 0", o.len())
	}
	if got := o.drainAll(); got != nil {
		t.Errorf("expected nil from second drain, got %d items", len(got))
	}
}

func TestOutboxOverflowDropsOldestHotspotEvent(t *testing.T) {
	o := newOutbox(5)
	for i := 0; i < 8; i++ {
		o.push(hotspotMsg(i))
	}

	got := o.drainAll()
	if string(payloads(got)) != string([]byte{3, 4, 5, 6, 7}) {
		t.Errorf("got %v, want [3 4 5 6 7]", payloads(got))
	}
	if o.droppedTotal() != 3 {
		t.Errorf("dropped: got %d, want 3", o.droppedTotal())
	}
}

func TestOutboxOverflowKeepsSystemEvents(t *testing.T) {
	o := newOutbox(3)
	o.push(systemMsg(0, false))
	o.push(hotspotMsg(1))
	o.push(hotspotMsg(2))
	o.push(hotspotMsg(3))
	o.push(hotspotMsg(4))

	got := o.drainAll()
	if string(payloads(got)) != string([]byte{0, 3, 4}) {
		t.Errorf("got %v, want [0 3 4]", payloads(got))
	}
}

func TestOutboxOverflowAllSystemDropsOldest(t *testing.T) {
	o := newOutbox(2)
	o.push(systemMsg(0, false))
	o.push(systemMsg(1, false))
	o.push(systemMsg(2, false))

	got := o.drainAll()
	if string(payloads(got)) != string([]byte{1, 2}) {
		t.Errorf("got %v, want [1 2]", payloads(got))
	}
}

func TestOutboxRetainedReplacesRetained(t *testing.T) {
	o := newOutbox(10)
	o.push(systemMsg(0, true))  // STARTUP
	o.push(hotspotMsg(1))       // ACTIVATING
	o.push(systemMsg(2, false)) // HEARTBEAT, not retained
	o.push(systemMsg(3, true))  // SHUTDOWN

	got := o.drainAll()
	if string(payloads(got)) != string([]byte{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", payloads(got))
	}
	if o.droppedTotal() != 0 {
		t.Errorf("replacement is not a drop: got %d", o.droppedTotal())
	}
}

func TestOutboxMultipleCycles(t *testing.T) {
	o := newOutbox(5)
	for i := 0; i < 3; i++ {
		o.push(hotspotMsg(i))
	}
	if got := o.drainAll(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	for i := 10; i < 14; i++ {
		o.push(hotspotMsg(i))
	}
	got := o.drainAll()
	if string(payloads(got)) != string([]byte{10, 11, 12, 13}) {
		t.Errorf("cycle 2: got %v", payloads(got))
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(10)
	o.push(bufferedMsg{
		topic:    "exhibit/test",
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	got := o.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	m := got[0]
	if m.topic != "exhibit/test" || string(m.payload) != `{"test":true}` || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
	if !m.system() {
		t.Error("qos 1 message should be a system event")
	}
}
