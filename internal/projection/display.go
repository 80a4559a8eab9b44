package projection

import (
	"log"
	"maps"
	"slices"
	"sync"

	"github.com/sweeney/hotspot-projector/internal/config"
	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// Snapshot is the full display state after a change.
type Snapshot struct {
	Visible     bool   `json:"visible"`
	Projections []View `json:"projections"`
}

// Active returns the id of the active projection, if any.
func (s Snapshot) Active() (int, bool) {
	for _, p := range s.Projections {
		if p.State == hotspot.StateActive {
			return p.ID, true
		}
	}
	return -1, false
}

// Display owns one Projection per configured hotspot and drives them from
// lifecycle events. It implements hotspot.Listener and hotspot.Settler.
type Display struct {
	cfg hotspot.Config

	mu          sync.Mutex
	projections []*Projection
	byID        map[int]*Projection
	visible     bool
	sub         hotspot.Subscription
	selector    selector
	watchers    map[int]func(Snapshot)
	nextWatch   int
	seq         uint64
	disposed    bool

	// deliverMu serializes watcher calls; delivered is the newest seq handed
	// to them. Older snapshots arriving late are dropped.
	deliverMu sync.Mutex
	delivered uint64
}

// selector is implemented by sources that own the activation slot, such as
// hotspot.Handler.
type selector interface {
	HotspotSelected(id int)
}

// NewDisplay builds the projection set for layout and, if source is non-nil,
// subscribes to its lifecycle events. Projections start idle and the overlay
// starts visible.
func NewDisplay(layout config.Layout, cfg hotspot.Config, source hotspot.Notifier) *Display {
	d := &Display{
		cfg:      cfg,
		byID:     make(map[int]*Projection, len(layout.Hotspots)),
		visible:  true,
		watchers: make(map[int]func(Snapshot)),
	}
	for _, h := range layout.Hotspots {
		p := NewProjection(h, cfg.ForcefulDeactivationTime)
		d.projections = append(d.projections, p)
		d.byID[h.ID] = p
	}
	if source != nil {
		d.sub = source.Subscribe(d)
		d.selector, _ = source.(selector)
	}
	return d
}

func (d *Display) HotspotActivating(args hotspot.HotspotArgs) {
	d.update(args.ID, func(p *Projection) { p.SetActivating(d.cfg.ActivationTime) })
}

func (d *Display) HotspotActivated(args hotspot.HotspotArgs) {
	d.ActivateHotspot(args.ID)
}

func (d *Display) HotspotDeactivating(args hotspot.HotspotArgs) {
	d.update(args.ID, func(p *Projection) { p.SetDeactivating(d.cfg.DeactivationTime) })
}

func (d *Display) HotspotForcefullyDeactivated(args hotspot.HotspotArgs) {
	d.update(args.ID, (*Projection).SetIdle)
}

// HotspotSettled follows the silent transitions so projections never stay
// mid-animation.
func (d *Display) HotspotSettled(args hotspot.HotspotArgs, state hotspot.State) {
	switch state {
	case hotspot.StateActive:
		d.update(args.ID, (*Projection).SetActive)
	case hotspot.StateNone:
		d.update(args.ID, (*Projection).SetIdle)
	}
}

// HotspotSelected is the camera-driven activation signal: it activates id
// at once, bypassing the press-and-hold timing. When the event source owns the
// slot the signal goes through it, so the projections follow its events.
func (d *Display) HotspotSelected(id int) {
	d.mu.Lock()
	sel := d.selector
	d.mu.Unlock()
	if sel != nil {
		sel.HotspotSelected(id)
		return
	}
	d.ActivateHotspot(id)
}

// ActivateHotspot makes id the active projection and returns every other one
// to idle. Unknown ids are ignored.
func (d *Display) ActivateHotspot(id int) {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	target, ok := d.byID[id]
	if !ok {
		d.mu.Unlock()
		log.Printf("projection: no projection for hotspot %d", id)
		return
	}
	for _, p := range d.projections {
		if p != target {
			p.SetIdle()
		}
	}
	target.SetActive()
	d.notifyUnlock()
}

// DeactivateHotspots returns every projection to idle.
func (d *Display) DeactivateHotspots() {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	for _, p := range d.projections {
		p.SetIdle()
	}
	d.notifyUnlock()
}

// Visible reports whether the hotspot overlay is shown.
func (d *Display) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

// DisplayHotspots shows the overlay.
func (d *Display) DisplayHotspots() {
	d.mu.Lock()
	if d.disposed || d.visible {
		d.mu.Unlock()
		return
	}
	d.visible = true
	d.notifyUnlock()
}

// HideHotspots hides the overlay and deactivates every projection.
func (d *Display) HideHotspots() {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	d.visible = false
	for _, p := range d.projections {
		p.SetIdle()
	}
	d.notifyUnlock()
}

// Projections returns the current projection values in layout order.
func (d *Display) Projections() []View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewsLocked()
}

// Snapshot returns the current display state.
func (d *Display) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{Visible: d.visible, Projections: d.viewsLocked()}
}

// Watch calls fn with a snapshot after every change until cancel is called.
// fn runs on the goroutine that caused the change. Calls are serialized and
// never go back in time: a snapshot superseded before delivery is skipped. fn
// must not block or call back into the Display.
func (d *Display) Watch(fn func(Snapshot)) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return func() {}
	}
	d.nextWatch++
	id := d.nextWatch
	d.watchers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.watchers, id)
			d.mu.Unlock()
		})
	}
}

// Dispose unsubscribes from the event source and drops all watchers. Later
// events are ignored. Calling it again is a no-op.
func (d *Display) Dispose() {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	d.disposed = true
	sub := d.sub
	d.sub = nil
	d.selector = nil
	d.watchers = map[int]func(Snapshot){}
	d.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (d *Display) update(id int, set func(*Projection)) {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	p, ok := d.byID[id]
	if !ok {
		d.mu.Unlock()
		log.Printf("projection: no projection for hotspot %d", id)
		return
	}
	set(p)
	d.notifyUnlock()
}

// notifyUnlock snapshots the state, releases d.mu and calls the watchers.
func (d *Display) notifyUnlock() {
	d.seq++
	seq := d.seq
	snap := Snapshot{Visible: d.visible, Projections: d.viewsLocked()}
	fns := make([]func(Snapshot), 0, len(d.watchers))
	for _, id := range slices.Sorted(maps.Keys(d.watchers)) {
		fns = append(fns, d.watchers[id])
	}
	d.mu.Unlock()

	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()
	if seq <= d.delivered {
		return
	}
	d.delivered = seq
	for _, fn := range fns {
		fn(snap)
	}
}

func (d *Display) viewsLocked() []View {
	out := make([]View, len(d.projections))
	for i, p := range d.projections {
		out[i] = p.View()
	}
	return out
}
