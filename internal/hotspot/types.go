// Package hotspot turns noisy press/unpress detection signals into a
// well-defined hotspot lifecycle.
//
// The Handler is the only synchronization point between detection producers
// (GPIO edge callbacks, camera frames, MQTT messages) and timer callbacks.
// Listeners receive the four lifecycle events synchronously, in order, from
// whichever goroutine caused the transition.
package hotspot

import (
	"fmt"
	"time"
)

// Default timing constants.
const (
	DefaultActivationTime           = 5 * time.Second
	DefaultForcefulDeactivationTime = 500 * time.Millisecond
	DefaultDeactivationTime         = 2 * time.Second
)

// State is the lifecycle state of a single hotspot.
type State int

const (
	StateNone State = iota
	StateActivating
	StateActive
	StateDeactivating
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateActivating:
		return "ACTIVATING"
	case StateActive:
		return "ACTIVE"
	case StateDeactivating:
		return "DEACTIVATING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state as its upper-case name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateNone, StateActivating, StateActive, StateDeactivating} {
		if string(text) == st.String() {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("hotspot: unknown state %q", text)
}

// HotspotArgs is the payload of every lifecycle event.
type HotspotArgs struct {
	ID int
}

// Signals is implemented by anything that accepts raw detection input.
// Implementations must tolerate duplicate, rapid and unknown ids.
type Signals interface {
	OnHotspotPressed(id int)
	OnHotspotUnpressed(id int)
}

// Config holds the handler timing and policy.
type Config struct {
	// ActivationTime is how long a press must be held before the hotspot activates.
	ActivationTime time.Duration
	// DeactivationTime is how long an unpressed active hotspot stays in the
	// deactivating state before returning to none.
	DeactivationTime time.Duration
	// ForcefulDeactivationTime is the animation duration used for instantaneous transitions.
	ForcefulDeactivationTime time.Duration
	// Preempt makes a press on a different hotspot forcefully deactivate the
	// active (or deactivating) one. Without it such presses are ignored.
	Preempt bool
}

// DefaultConfig returns the default timing with preemption enabled.
func DefaultConfig() Config {
	return Config{
		ActivationTime:           DefaultActivationTime,
		DeactivationTime:         DefaultDeactivationTime,
		ForcefulDeactivationTime: DefaultForcefulDeactivationTime,
		Preempt:                  true,
	}
}

func (c Config) withDefaults() Config {
	if c.ActivationTime <= 0 {
		c.ActivationTime = DefaultActivationTime
	}
	if c.DeactivationTime <= 0 {
		c.DeactivationTime = DefaultDeactivationTime
	}
	if c.ForcefulDeactivationTime <= 0 {
		c.ForcefulDeactivationTime = DefaultForcefulDeactivationTime
	}
	return c
}
