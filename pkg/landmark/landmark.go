// Package landmark describes facial landmarks returned by an inference
// provider and the coordinate spaces they live in.
package landmark

import (
	"context"
	"fmt"
	"math"

	"github.com/teslashibe/go-blink/pkg/source"
)

// Space identifies the coordinate space of a set of points.
// Points from different spaces are never combined.
type Space int

const (
	// Pixel coordinates are in image pixels.
	Pixel Space = iota
	// Normalized coordinates are in the 0-1 range of the image size.
	Normalized
)

// String returns the wire name of the space.
func (s Space) String() string {
	switch s {
	case Pixel:
		return "pixel"
	case Normalized:
		return "normalized"
	default:
		return fmt.Sprintf("space(%d)", int(s))
	}
}

// ParseSpace parses a wire name. Empty means normalized, which is what
// MediaPipe-style providers emit.
func ParseSpace(s string) (Space, error) {
	switch s {
	case "", "normalized":
		return Normalized, nil
	case "pixel":
		return Pixel, nil
	default:
		return 0, fmt.Errorf("landmark: unknown coordinate space %q", s)
	}
}

// Point is a landmark position. Z is zero for 2D providers.
type Point struct {
	X, Y, Z float64
}

// Side selects an eye.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// EyeSet is the six ordered points of one eye contour:
// 0 and 3 are the corners, 1-5 and 2-4 the vertical pairs.
type EyeSet struct {
	Points [6]Point
	Space  Space
}

// Face is one detected face.
type Face struct {
	Points     []Point
	Space      Space
	Topology   *Topology
	Width      int     // Frame width in pixels
	Height     int     // Frame height in pixels
	Confidence float64 // Provider score, 0 when not reported
}

// Eye extracts the six-point contour of one eye.
func (f Face) Eye(side Side) (EyeSet, error) {
	if f.Topology == nil {
		return EyeSet{}, ErrNoTopology
	}
	idx := f.Topology.LeftEye
	if side == Right {
		idx = f.Topology.RightEye
	}

	set := EyeSet{Space: f.Space}
	for i, j := range idx {
		if j < 0 || j >= len(f.Points) {
			return EyeSet{}, fmt.Errorf("%w: index %d of %d points", ErrShortFace, j, len(f.Points))
		}
		set.Points[i] = f.Points[j]
	}
	return set, nil
}

// Contour returns the points at the given indices.
func (f Face) Contour(idx []int) ([]Point, error) {
	out := make([]Point, 0, len(idx))
	for _, j := range idx {
		if j < 0 || j >= len(f.Points) {
			return nil, fmt.Errorf("%w: index %d of %d points", ErrShortFace, j, len(f.Points))
		}
		out = append(out, f.Points[j])
	}
	return out, nil
}

// ToPixel returns the face in pixel space.
// Normalized z is scaled by the frame width, matching MediaPipe's convention
// that z uses roughly the same scale as x.
func (f Face) ToPixel() (Face, error) {
	if f.Space == Pixel {
		return f, nil
	}
	if f.Width <= 0 || f.Height <= 0 {
		return Face{}, ErrNoDimensions
	}
	w, h := float64(f.Width), float64(f.Height)
	return f.mapPoints(Pixel, func(p Point) Point {
		return Point{X: p.X * w, Y: p.Y * h, Z: p.Z * w}
	}), nil
}

// ToNormalized returns the face in 0-1 space.
func (f Face) ToNormalized() (Face, error) {
	if f.Space == Normalized {
		return f, nil
	}
	if f.Width <= 0 || f.Height <= 0 {
		return Face{}, ErrNoDimensions
	}
	w, h := float64(f.Width), float64(f.Height)
	return f.mapPoints(Normalized, func(p Point) Point {
		return Point{X: p.X / w, Y: p.Y / h, Z: p.Z / w}
	}), nil
}

func (f Face) mapPoints(space Space, fn func(Point) Point) Face {
	out := f
	out.Space = space
	out.Points = make([]Point, len(f.Points))
	for i, p := range f.Points {
		out.Points[i] = fn(p)
	}
	return out
}

// Bounds returns the bounding box of all points in the face's own space.
func (f Face) Bounds() (minX, minY, maxX, maxY float64) {
	if len(f.Points) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range f.Points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// Area returns the bounding box area as a fraction of the frame.
func (f Face) Area() float64 {
	minX, minY, maxX, maxY := f.Bounds()
	area := (maxX - minX) * (maxY - minY)
	if f.Space == Pixel && f.Width > 0 && f.Height > 0 {
		area /= float64(f.Width * f.Height)
	}
	return area
}

// Provider runs landmark inference on a frame.
// Zero faces is a valid result, not an error.
type Provider interface {
	// Landmarks detects faces in the frame and returns their landmarks
	Landmarks(ctx context.Context, frame source.Frame) ([]Face, error)

	// Close releases resources
	Close() error
}

// SelectPrimary picks the face to track when several are found.
// The largest face wins; ties go to the earlier one.
func SelectPrimary(faces []Face) *Face {
	if len(faces) == 0 {
		return nil
	}

	best := 0
	bestArea := faces[0].Area()
	for i := 1; i < len(faces); i++ {
		if a := faces[i].Area(); a > bestArea {
			best, bestArea = i, a
		}
	}
	return &faces[best]
}
