// Package camera turns pointer positions seen by a camera into hotspot
// press/unpress signals.
package camera

import (
	"sync"
	"time"

	"github.com/sweeney/hotspot-projector/internal/config"
	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// Point is a pointer position in projector coordinates.
type Point struct {
	X, Y float64
}

type region struct {
	id      int
	x, y    float64
	r2      float64
	inside  bool
	pending bool
	since   time.Time
}

func (r *region) contains(p Point) bool {
	dx, dy := r.x-p.X, r.y-p.Y
	return dx*dx+dy*dy <= r.r2
}

// Tracker follows which hotspot circles hold a pointer from frame to frame.
// A pointer entering a circle is a press and leaving it is an unpress. With a
// non-zero hold, a change must persist for that long before it is reported, so
// a pointer flickering at an edge does not flood the handler.
type Tracker struct {
	sig  hotspot.Signals
	hold time.Duration

	mu      sync.Mutex
	regions []*region
}

// NewTracker tracks every hotspot in layout and reports edges to sig.
func NewTracker(layout config.Layout, hold time.Duration, sig hotspot.Signals) *Tracker {
	t := &Tracker{sig: sig, hold: hold}
	for _, h := range layout.Hotspots {
		t.regions = append(t.regions, &region{id: h.ID, x: h.X, y: h.Y, r2: h.R * h.R})
	}
	return t
}

// Update processes the pointers seen in one frame captured at now.
func (t *Tracker) Update(now time.Time, points []Point) {
	var pressed, released []int

	t.mu.Lock()
	for _, r := range t.regions {
		in := false
		for _, p := range points {
			if r.contains(p) {
				in = true
				break
			}
		}

		if in == r.inside {
			r.pending = false
			continue
		}
		if t.hold > 0 {
			if !r.pending {
				r.pending = true
				r.since = now
			}
			if now.Sub(r.since) < t.hold {
				continue
			}
		}
		r.pending = false
		r.inside = in
		if in {
			pressed = append(pressed, r.id)
		} else {
			released = append(released, r.id)
		}
	}
	t.mu.Unlock()

	// Releases go first so a pointer sliding between hotspots frees the slot.
	for _, id := range released {
		t.sig.OnHotspotUnpressed(id)
	}
	for _, id := range pressed {
		t.sig.OnHotspotPressed(id)
	}
}

// Reset reports an unpress for every hotspot currently holding a pointer and
// forgets all pending changes.
func (t *Tracker) Reset() {
	var released []int
	t.mu.Lock()
	for _, r := range t.regions {
		if r.inside {
			released = append(released, r.id)
		}
		r.inside = false
		r.pending = false
	}
	t.mu.Unlock()

	for _, id := range released {
		t.sig.OnHotspotUnpressed(id)
	}
}
