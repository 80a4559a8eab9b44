// Package status provides a thread-safe status tracker for the hotspot-projector daemon.
// It is designed to be read by HTTP handlers and MQTT system events.
package status

import (
	"maps"
	"sync"
	"time"

	"github.com/sweeney/hotspot-projector/internal/hotspot"
	"github.com/sweeney/hotspot-projector/internal/projection"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	ActivationMs           int64
	DeactivationMs         int64
	ForcefulDeactivationMs int64
	Preempt                bool
	HeartbeatMs            int64
	Broker                 string
	HTTPAddr               string
	Layout                 string
	Sources                []string // enabled detection sources, e.g. "gpio", "camera", "mqtt"
}

// Counts tallies lifecycle outcomes for one hotspot.
type Counts struct {
	Activations int
	Cancelled   int
	Forced      int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Session       string
	StartTime     time.Time
	Now           time.Time
	Current       int // -1 when no hotspot holds the slot
	CurrentState  hotspot.State
	Counts        map[int]Counts
	Display       projection.Snapshot
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex. It is a
// hotspot.Listener and follows the slot from lifecycle events.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, session id and config.
func NewTracker(startTime time.Time, session string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Session:   session,
			StartTime: startTime,
			Current:   -1,
			Counts:    map[int]Counts{},
			Config:    cfg,
		},
	}
}

func (t *Tracker) HotspotActivating(args hotspot.HotspotArgs) {
	t.setSlot(args.ID, hotspot.StateActivating, nil)
}

func (t *Tracker) HotspotActivated(args hotspot.HotspotArgs) {
	t.setSlot(args.ID, hotspot.StateActive, func(c *Counts) { c.Activations++ })
}

func (t *Tracker) HotspotDeactivating(args hotspot.HotspotArgs) {
	t.setSlot(args.ID, hotspot.StateDeactivating, nil)
}

func (t *Tracker) HotspotForcefullyDeactivated(args hotspot.HotspotArgs) {
	t.setSlot(args.ID, hotspot.StateNone, func(c *Counts) { c.Forced++ })
}

func (t *Tracker) HotspotSettled(args hotspot.HotspotArgs, state hotspot.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if state == hotspot.StateNone && t.snap.Current == args.ID && t.snap.CurrentState == hotspot.StateActivating {
		c := t.snap.Counts[args.ID]
		c.Cancelled++
		t.snap.Counts[args.ID] = c
	}
	t.setSlotLocked(args.ID, state)
}

func (t *Tracker) setSlot(id int, state hotspot.State, count func(*Counts)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if count != nil {
		c := t.snap.Counts[id]
		count(&c)
		t.snap.Counts[id] = c
	}
	t.setSlotLocked(id, state)
}

func (t *Tracker) setSlotLocked(id int, state hotspot.State) {
	if state == hotspot.StateNone {
		if t.snap.Current == id {
			t.snap.Current = -1
			t.snap.CurrentState = hotspot.StateNone
		}
		return
	}
	t.snap.Current = id
	t.snap.CurrentState = state
}

// SetDisplay records the latest projection state.
func (t *Tracker) SetDisplay(d projection.Snapshot) {
	t.mu.Lock()
	t.snap.Display = d
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Counts = maps.Clone(t.snap.Counts)
	s.Display.Projections = append([]projection.View(nil), t.snap.Display.Projections...)
	s.Config.Sources = append([]string(nil), t.snap.Config.Sources...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
