package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrInvalidID     = errors.New("hotspot id must be non-negative")
	ErrDuplicateID   = errors.New("duplicate hotspot id")
	ErrInvalidRadius = errors.New("hotspot radius must be positive")
)

// Hotspot is one configured region: a circle in projector coordinates.
// Content references in the layout file are ignored.
type Hotspot struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	R  float64 `json:"r"`
}

// Layout is the ordered set of hotspots for a session.
type Layout struct {
	Hotspots []Hotspot `json:"hotspots"`
}

// LoadLayout reads and validates the layout file at path.
func LoadLayout(path string) (Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return Layout{}, fmt.Errorf("open layout: %w", err)
	}
	defer f.Close()

	l, err := ParseLayout(f)
	if err != nil {
		return Layout{}, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// ParseLayout decodes and validates a layout document.
func ParseLayout(r io.Reader) (Layout, error) {
	var l Layout
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate checks ids are unique and non-negative and radii positive.
func (l Layout) Validate() error {
	seen := make(map[int]struct{}, len(l.Hotspots))
	for i, h := range l.Hotspots {
		if h.ID < 0 {
			return fmt.Errorf("hotspot %d: %w (got %d)", i, ErrInvalidID, h.ID)
		}
		if _, dup := seen[h.ID]; dup {
			return fmt.Errorf("hotspot %d: %w %d", i, ErrDuplicateID, h.ID)
		}
		seen[h.ID] = struct{}{}
		if h.R <= 0 {
			return fmt.Errorf("hotspot %d: %w (got %g)", h.ID, ErrInvalidRadius, h.R)
		}
	}
	return nil
}

// IDs returns the hotspot ids in layout order.
func (l Layout) IDs() []int {
	ids := make([]int, len(l.Hotspots))
	for i, h := range l.Hotspots {
		ids[i] = h.ID
	}
	return ids
}
