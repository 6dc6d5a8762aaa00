// Package ear computes the eye aspect ratio (EAR): vertical eyelid
// separation over horizontal eye-corner distance. Low values mean a closed eye.
package ear

import (
	"math"

	"github.com/teslashibe/go-blink/pkg/landmark"
)

// Distance is the Euclidean distance between two points. Z participates, so
// 2D points (Z=0) and 3D points both work.
func Distance(a, b landmark.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Ratio returns the openness ratio of one eye.
// A zero horizontal distance (occluded or degenerate face) yields 0.
func Ratio(eye landmark.EyeSet) float64 {
	p := eye.Points
	hor := Distance(p[0], p[3])
	if hor == 0 {
		return 0
	}
	ver := (Distance(p[1], p[5]) + Distance(p[2], p[4])) / 2.0
	return ver / hor
}

// Pair holds the ratios of both eyes from the same frame.
type Pair struct {
	Left  float64
	Right float64
}

// Combined is the mean of both eyes.
func (p Pair) Combined() float64 {
	return (p.Left + p.Right) / 2.0
}

// FromFace computes both eye ratios in the face's own coordinate space.
func FromFace(face landmark.Face) (Pair, error) {
	left, err := face.Eye(landmark.Left)
	if err != nil {
		return Pair{}, err
	}
	right, err := face.Eye(landmark.Right)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Left: Ratio(left), Right: Ratio(right)}, nil
}
