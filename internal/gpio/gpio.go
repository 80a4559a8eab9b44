// Package gpio turns physical hotspot buttons into press/unpress signals.
// The real implementation uses Linux GPIO character device edge events.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// Source delivers button edges to a hotspot.Signals until closed.
type Source interface {
	// Pressed returns the current logical state of every button, keyed by hotspot id.
	Pressed() (map[int]bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Consumer is the label the kernel shows for requested lines.
const Consumer = "hotspot-projector"

// Pins maps BCM line offsets to hotspot ids.
type Pins map[int]int

// ParsePins parses "offset:id" pairs separated by commas, e.g. "26:0,16:1".
// An empty string yields an empty map.
func ParsePins(s string) (Pins, error) {
	pins := Pins{}
	s = strings.TrimSpace(s)
	if s == "" {
		return pins, nil
	}

	ids := map[int]int{}
	for _, pair := range strings.Split(s, ",") {
		offStr, idStr, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("pin %q: want offset:id", pair)
		}
		off, err := strconv.Atoi(offStr)
		if err != nil || off < 0 {
			return nil, fmt.Errorf("pin %q: invalid offset", pair)
		}
		id, err := strconv.Atoi(idStr)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("pin %q: invalid hotspot id", pair)
		}
		if _, dup := pins[off]; dup {
			return nil, fmt.Errorf("pin %q: offset %d mapped twice", pair, off)
		}
		if prev, dup := ids[id]; dup {
			return nil, fmt.Errorf("pin %q: hotspot %d already on offset %d", pair, id, prev)
		}
		pins[off] = id
		ids[id] = off
	}
	return pins, nil
}

// Offsets returns the line offsets in ascending order.
func (p Pins) Offsets() []int {
	offs := make([]int, 0, len(p))
	for off := range p {
		offs = append(offs, off)
	}
	sort.Ints(offs)
	return offs
}

// dispatch forwards one logical edge. active is true while the button is held.
func dispatch(sig hotspot.Signals, pins Pins, offset int, active bool) {
	id, ok := pins[offset]
	if !ok {
		log.Printf("gpio: edge on unmapped line %d", offset)
		return
	}
	if active {
		sig.OnHotspotPressed(id)
	} else {
		sig.OnHotspotUnpressed(id)
	}
}
