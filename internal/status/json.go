package status

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/sweeney/hotspot-projector/internal/projection"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string            `json:"event,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	Session       string            `json:"session"`
	Current       *CurrentJSON      `json:"current"`
	Visible       bool              `json:"visible"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	StartTime     string            `json:"start_time"`
	Timestamp     string            `json:"timestamp"`
	MQTT          MQTTStatus        `json:"mqtt"`
	Hotspots      []HotspotJSON     `json:"hotspots"`
	Projections   []projection.View `json:"projections,omitempty"`
	Network       *NetworkJSON      `json:"network,omitempty"`
	Config        ConfigJSON        `json:"config"`
}

// CurrentJSON is the hotspot holding the slot.
type CurrentJSON struct {
	ID    int    `json:"id"`
	State string `json:"state"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// HotspotJSON is the JSON representation of one hotspot's counts.
type HotspotJSON struct {
	ID          int `json:"id"`
	Activations int `json:"activations"`
	Cancelled   int `json:"cancelled"`
	Forced      int `json:"forced"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ActivationMs           int64    `json:"activation_ms"`
	DeactivationMs         int64    `json:"deactivation_ms"`
	ForcefulDeactivationMs int64    `json:"forceful_deactivation_ms"`
	Preempt                bool     `json:"preempt"`
	HeartbeatMs            int64    `json:"heartbeat_ms"`
	Broker                 string   `json:"broker"`
	HTTPAddr               string   `json:"http_addr"`
	Layout                 string   `json:"layout"`
	Sources                []string `json:"sources"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Session:       snap.Session,
		Visible:       snap.Display.Visible,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Hotspots:      hotspotCounts(snap),
		Config: ConfigJSON{
			ActivationMs:           snap.Config.ActivationMs,
			DeactivationMs:         snap.Config.DeactivationMs,
			ForcefulDeactivationMs: snap.Config.ForcefulDeactivationMs,
			Preempt:                snap.Config.Preempt,
			HeartbeatMs:            snap.Config.HeartbeatMs,
			Broker:                 snap.Config.Broker,
			HTTPAddr:               snap.Config.HTTPAddr,
			Layout:                 snap.Config.Layout,
			Sources:                snap.Config.Sources,
		},
	}
	if inner.Config.Sources == nil {
		inner.Config.Sources = []string{}
	}
	if snap.Current >= 0 {
		inner.Current = &CurrentJSON{ID: snap.Current, State: snap.CurrentState.String()}
	}
	return inner
}

// hotspotCounts lists counts for every projected hotspot plus any counted
// id without a projection, sorted by id.
func hotspotCounts(snap Snapshot) []HotspotJSON {
	ids := map[int]struct{}{}
	for _, p := range snap.Display.Projections {
		ids[p.ID] = struct{}{}
	}
	for id := range snap.Counts {
		ids[id] = struct{}{}
	}

	out := make([]HotspotJSON, 0, len(ids))
	for id := range ids {
		c := snap.Counts[id]
		out = append(out, HotspotJSON{ID: id, Activations: c.Activations, Cancelled: c.Cancelled, Forced: c.Forced})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	inner.Projections = snap.Display.Projections
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
