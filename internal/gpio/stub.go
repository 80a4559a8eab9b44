//go:build !linux

package gpio

import (
	"errors"
	"time"

	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// RealSource is not available on non-Linux platforms.
type RealSource struct{}

// NewRealSource returns an error on non-Linux platforms.
func NewRealSource(chipName string, pins Pins, debounce time.Duration, sig hotspot.Signals) (*RealSource, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Pressed is not implemented on non-Linux platforms.
func (r *RealSource) Pressed() (map[int]bool, error) {
	return nil, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealSource) Close() error {
	return nil
}
