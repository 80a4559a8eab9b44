package mqtt

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// Signal types accepted on TopicSignals.
const (
	SignalPressed   = "PRESSED"
	SignalUnpressed = "UNPRESSED"
	SignalSelected  = "SELECTED"
)

// Selector receives the single-shot camera-driven activation signal.
type Selector interface {
	HotspotSelected(id int)
}

// SignalMessage is the payload published by remote detectors.
type SignalMessage struct {
	Signal Signal `json:"signal"`
}

// Signal is one remote detection signal.
type Signal struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

// ParseSignal decodes and checks a signal payload.
func ParseSignal(payload []byte) (Signal, error) {
	var msg SignalMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Signal{}, fmt.Errorf("decode signal: %w", err)
	}
	switch msg.Signal.Type {
	case SignalPressed, SignalUnpressed, SignalSelected:
	default:
		return Signal{}, fmt.Errorf("unknown signal type %q", msg.Signal.Type)
	}
	return msg.Signal, nil
}

// Dispatch routes a signal payload to sig or sel. Bad payloads are logged
// and dropped. sel may be nil, in which case SELECTED signals are ignored.
func Dispatch(payload []byte, sig hotspot.Signals, sel Selector) {
	s, err := ParseSignal(payload)
	if err != nil {
		log.Printf("mqtt: ignoring signal: %v", err)
		return
	}
	switch s.Type {
	case SignalPressed:
		sig.OnHotspotPressed(s.ID)
	case SignalUnpressed:
		sig.OnHotspotUnpressed(s.ID)
	case SignalSelected:
		if sel == nil {
			log.Printf("mqtt: ignoring SELECTED %d: no selector", s.ID)
			return
		}
		sel.HotspotSelected(s.ID)
	}
}
