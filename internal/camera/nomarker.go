//go:build !camera

package camera

import "errors"

// Available reports whether marker detection was compiled in.
const Available = false

// MarkerSource is not available without the camera build tag.
type MarkerSource struct{}

// NewMarkerSource returns an error when built without the camera tag.
func NewMarkerSource(device int, transform func(Point) Point) (*MarkerSource, error) {
	return nil, errors.New("camera: not supported in this build (rebuild with -tags camera)")
}

// Next is not implemented without the camera build tag.
func (m *MarkerSource) Next() ([]Point, error) {
	return nil, errors.New("camera: not supported")
}

// Close is not implemented without the camera build tag.
func (m *MarkerSource) Close() error {
	return nil
}
