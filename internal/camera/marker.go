//go:build camera

package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Available reports whether marker detection was compiled in.
const Available = true

// MarkerSource captures frames from a camera and reports the centre of every
// ArUco marker it sees as a pointer position.
type MarkerSource struct {
	webcam    *gocv.VideoCapture
	detector  gocv.ArucoDetector
	img       gocv.Mat
	transform func(Point) Point
}

// NewMarkerSource opens capture device and prepares a 4x4 ArUco detector.
// transform maps camera pixels to projector coordinates; nil leaves them as is.
func NewMarkerSource(device int, transform func(Point) Point) (*MarkerSource, error) {
	webcam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open capture device %d: %w", device, err)
	}
	webcam.Set(gocv.VideoCaptureBufferSize, 1)

	if transform == nil {
		transform = func(p Point) Point { return p }
	}
	dict := gocv.GetPredefinedDictionary(gocv.ArucoDict4x4_50)
	return &MarkerSource{
		webcam:    webcam,
		detector:  gocv.NewArucoDetectorWithParams(dict, gocv.NewArucoDetectorParameters()),
		img:       gocv.NewMat(),
		transform: transform,
	}, nil
}

// Next reads one frame and returns the marker centres in it.
func (m *MarkerSource) Next() ([]Point, error) {
	if ok := m.webcam.Read(&m.img); !ok || m.img.Empty() {
		return nil, ErrNoFrame
	}

	corners, _, _ := m.detector.DetectMarkers(m.img)
	points := make([]Point, 0, len(corners))
	for _, quad := range corners {
		if len(quad) == 0 {
			continue
		}
		var c Point
		for _, p := range quad {
			c.X += float64(p.X)
			c.Y += float64(p.Y)
		}
		c.X /= float64(len(quad))
		c.Y /= float64(len(quad))
		points = append(points, m.transform(c))
	}
	return points, nil
}

// Close releases the capture device and detector.
func (m *MarkerSource) Close() error {
	m.detector.Close()
	m.img.Close()
	return m.webcam.Close()
}
