//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// RealSource watches button lines on a GPIO chip. Buttons pull the line to
// ground, so lines are requested active-low with the internal pull-up, and
// the kernel debounces each edge.
type RealSource struct {
	chip    *gpiocdev.Chip
	lines   *gpiocdev.Lines
	pins    Pins
	offsets []int
}

// NewRealSource requests every line in pins and starts delivering edges to sig.
func NewRealSource(chipName string, pins Pins, debounce time.Duration, sig hotspot.Signals) (*RealSource, error) {
	if len(pins) == 0 {
		return nil, fmt.Errorf("gpio: no pins configured")
	}

	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	offsets := pins.Offsets()
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.AsActiveLow,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			dispatch(sig, pins, evt.Offset, evt.Type == gpiocdev.LineEventRisingEdge)
		}),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}

	lines, err := chip.RequestLines(offsets, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request lines %v: %w", offsets, err)
	}

	return &RealSource{
		chip:    chip,
		lines:   lines,
		pins:    pins,
		offsets: offsets,
	}, nil
}

// Pressed reads the current logical value of every line.
func (r *RealSource) Pressed() (map[int]bool, error) {
	values := make([]int, len(r.offsets))
	if err := r.lines.Values(values); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	out := make(map[int]bool, len(values))
	for i, off := range r.offsets {
		out[r.pins[off]] = values[i] == 1
	}
	return out, nil
}

// Close stops edge delivery and releases the lines.
// Lines are reconfigured to input with pull-down (matching Pi boot defaults)
// before closing so nothing is left holding them mid-boot.
func (r *RealSource) Close() error {
	var errs []error

	if r.lines != nil {
		if err := r.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure lines: %w", err))
		}
		if err := r.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close lines: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
