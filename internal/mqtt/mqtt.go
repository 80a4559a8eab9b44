// Package mqtt publishes hotspot lifecycle events to MQTT and accepts remote
// hotspot signals, with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// Topic is the MQTT topic for hotspot lifecycle events.
const Topic = "exhibit/hotspots/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "exhibit/hotspots/system"

// TopicSignals is the MQTT topic remote detectors publish signals on.
const TopicSignals = "exhibit/hotspots/signals"

// EventType names a lifecycle event on the wire.
type EventType string

const (
	EventActivating            EventType = "ACTIVATING"
	EventActivated             EventType = "ACTIVATED"
	EventDeactivating          EventType = "DEACTIVATING"
	EventForcefullyDeactivated EventType = "FORCEFULLY_DEACTIVATED"
	EventSettled               EventType = "SETTLED"
)

// Event is one hotspot lifecycle event.
type Event struct {
	Timestamp time.Time
	Type      EventType
	HotspotID int
	// State is the resting state for EventSettled and empty otherwise.
	State   string
	Session string
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a hotspot event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a daemon lifecycle event: STARTUP, SHUTDOWN, HEARTBEAT,
// RECONNECTED. RawPayload, when set, is sent as is (full status snapshots).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // SIGTERM, SIGINT, MQTT_DISCONNECT
	Session    string
	RawPayload []byte
	Retained   bool
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Hotspot HotspotPayload `json:"hotspot"`
}

// HotspotPayload contains the hotspot event details.
type HotspotPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	ID        int    `json:"id"`
	State     string `json:"state,omitempty"`
	Session   string `json:"session,omitempty"`
}

// FormatPayload creates the JSON payload for a hotspot event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Hotspot: HotspotPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     string(event.Type),
			ID:        event.HotspotID,
			State:     event.State,
			Session:   event.Session,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the envelope for system events without a status snapshot
// (the will and RECONNECTED).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner carries the event name and the session that sent it.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	Session   string `json:"session,omitempty"`
}

// FormatSystemPayload encodes event, or returns RawPayload unchanged.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{System: SystemPayloadInner{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     event.Event,
		Reason:    event.Reason,
		Session:   event.Session,
	}})
}
