// Package projection holds the rendering-facing state of each hotspot and the
// coordinator that keeps it in step with the activation state machine.
package projection

import (
	"time"

	"github.com/sweeney/hotspot-projector/internal/config"
	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// Projection is the renderable view of one hotspot: the bounding box of its
// circle, its lifecycle state and how long the current transition should take
// to animate. The setters are unconditional; rules live in the handler.
// Not safe for concurrent use; Display guards its projections.
type Projection struct {
	id       int
	x, y, d  float64
	state    hotspot.State
	duration time.Duration
	forceful time.Duration
}

// NewProjection builds the projection for h. forceful is the animation
// duration for instantaneous transitions to active or idle.
func NewProjection(h config.Hotspot, forceful time.Duration) *Projection {
	return &Projection{
		id:       h.ID,
		x:        h.X - h.R,
		y:        h.Y - h.R,
		d:        2 * h.R,
		forceful: forceful,
	}
}

func (p *Projection) ID() int                          { return p.id }
func (p *Projection) X() float64                       { return p.x }
func (p *Projection) Y() float64                       { return p.y }
func (p *Projection) D() float64                       { return p.d }
func (p *Projection) State() hotspot.State             { return p.state }
func (p *Projection) AnimationDuration() time.Duration { return p.duration }

// SetActivating starts the activation animation lasting d.
func (p *Projection) SetActivating(d time.Duration) {
	p.state = hotspot.StateActivating
	p.duration = d
}

// SetActive shows the hotspot fully active.
func (p *Projection) SetActive() {
	p.state = hotspot.StateActive
	p.duration = p.forceful
}

// SetDeactivating starts the deactivation animation lasting d.
func (p *Projection) SetDeactivating(d time.Duration) {
	p.state = hotspot.StateDeactivating
	p.duration = d
}

// SetIdle returns the hotspot to its resting state.
func (p *Projection) SetIdle() {
	p.state = hotspot.StateNone
	p.duration = p.forceful
}

// View is a value copy of a projection for consumers outside the display lock.
type View struct {
	ID                int           `json:"id"`
	X                 float64       `json:"x"`
	Y                 float64       `json:"y"`
	D                 float64       `json:"d"`
	State             hotspot.State `json:"state"`
	AnimationDuration time.Duration `json:"-"`
	AnimationMs       int64         `json:"animation_ms"`
}

// View returns the current projection values.
func (p *Projection) View() View {
	return View{
		ID:                p.id,
		X:                 p.x,
		Y:                 p.y,
		D:                 p.d,
		State:             p.state,
		AnimationDuration: p.duration,
		AnimationMs:       p.duration.Milliseconds(),
	}
}
