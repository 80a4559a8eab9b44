package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// FakeSource is a test double that turns scripted line edges into signals
// the same way RealSource does.
type FakeSource struct {
	pins Pins
	sig  hotspot.Signals

	mu     sync.Mutex
	held   map[int]bool
	closed bool

	// ReadError, if set, is returned by Pressed.
	ReadError error
}

// NewFakeSource creates a FakeSource delivering to sig.
func NewFakeSource(pins Pins, sig hotspot.Signals) *FakeSource {
	return &FakeSource{pins: pins, sig: sig, held: map[int]bool{}}
}

// Press simulates the button on offset being pushed.
func (f *FakeSource) Press(offset int) {
	f.edge(offset, true)
}

// Release simulates the button on offset being let go.
func (f *FakeSource) Release(offset int) {
	f.edge(offset, false)
}

func (f *FakeSource) edge(offset int, active bool) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.held[offset] = active
	f.mu.Unlock()
	dispatch(f.sig, f.pins, offset, active)
}

// Pressed returns the scripted button states keyed by hotspot id.
func (f *FakeSource) Pressed() (map[int]bool, error) {
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errors.New("gpio: source closed")
	}
	out := make(map[int]bool, len(f.pins))
	for off, id := range f.pins {
		out[id] = f.held[off]
	}
	return out, nil
}

// Close stops edge delivery.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeSource) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
