package landmark

import (
	"context"
	"sync"

	"github.com/teslashibe/go-blink/pkg/source"
)

// Mock implements Provider for testing.
type Mock struct {
	// LandmarksFunc is called when Landmarks is invoked.
	// Nil means "no face found".
	LandmarksFunc func(ctx context.Context, frame source.Frame) ([]Face, error)

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMock creates a mock that returns the same faces for every frame.
func NewMock(faces ...Face) *Mock {
	return &Mock{
		LandmarksFunc: func(ctx context.Context, frame source.Frame) ([]Face, error) {
			return faces, nil
		},
	}
}

// Landmarks implements Provider.
func (m *Mock) Landmarks(ctx context.Context, frame source.Frame) ([]Face, error) {
	m.mu.Lock()
	m.calls++
	fn := m.LandmarksFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(ctx, frame)
}

// Close implements Provider.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns how many times Landmarks was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SyntheticFace builds a pixel-space face whose left and right eyes have
// exactly the given openness ratios. Eyes are a tenth of the frame wide and
// every other landmark sits at the frame center. Useful for driving the
// detector in tests and demos.
func SyntheticFace(topo *Topology, left, right float64, width, height int) Face {
	w, h := float64(width), float64(height)
	pts := make([]Point, topo.Size)
	for i := range pts {
		pts[i] = Point{X: w / 2, Y: h / 2}
	}

	eyeW := w / 10
	place := func(idx [6]int, cx, ratio float64) {
		half := ratio * eyeW / 2
		cy := h / 2
		pts[idx[0]] = Point{X: cx - eyeW/2, Y: cy}
		pts[idx[3]] = Point{X: cx + eyeW/2, Y: cy}
		pts[idx[1]] = Point{X: cx - eyeW/6, Y: cy - half}
		pts[idx[5]] = Point{X: cx - eyeW/6, Y: cy + half}
		pts[idx[2]] = Point{X: cx + eyeW/6, Y: cy - half}
		pts[idx[4]] = Point{X: cx + eyeW/6, Y: cy + half}
	}
	place(topo.LeftEye, w*0.35, left)
	place(topo.RightEye, w*0.65, right)

	return Face{
		Points:   pts,
		Space:    Pixel,
		Topology: topo,
		Width:    width,
		Height:   height,
	}
}
