package camera

import (
	"errors"
	"io"
	"sync"
)

// FakeDetector is a PointSource that replays scripted frames. When the
// frames run out Next returns io.EOF.
type FakeDetector struct {
	mu     sync.Mutex
	frames [][]Point
	errs   map[int]error
	index  int
	closed bool
}

// NewFakeDetector creates a FakeDetector replaying frames in order.
func NewFakeDetector(frames ...[]Point) *FakeDetector {
	return &FakeDetector{frames: frames, errs: map[int]error{}}
}

// FailFrame makes frame i return err instead of its points.
func (f *FakeDetector) FailFrame(i int, err error) {
	f.mu.Lock()
	f.errs[i] = err
	f.mu.Unlock()
}

// Next returns the next scripted frame.
func (f *FakeDetector) Next() ([]Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errors.New("camera: detector closed")
	}
	if f.index >= len(f.frames) {
		return nil, io.EOF
	}
	i := f.index
	f.index++
	if err, ok := f.errs[i]; ok {
		return nil, err
	}
	return f.frames[i], nil
}

// Close marks the detector closed.
func (f *FakeDetector) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeDetector) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
