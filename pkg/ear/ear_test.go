package ear

import (
	"math"
	"math/rand"
	"testing"

	"github.com/teslashibe/go-blink/pkg/landmark"
)

func eye(pts ...landmark.Point) landmark.EyeSet {
	var set landmark.EyeSet
	copy(set.Points[:], pts)
	return set
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b landmark.Point
		want float64
	}{
		{"same point", landmark.Point{X: 1, Y: 1}, landmark.Point{X: 1, Y: 1}, 0},
		{"3-4-5 triangle", landmark.Point{}, landmark.Point{X: 3, Y: 4}, 5},
		{"z participates", landmark.Point{}, landmark.Point{X: 2, Y: 3, Z: 6}, 7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Distance(tc.a, tc.b); math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("Distance = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		set  landmark.EyeSet
		want float64
	}{
		{
			name: "open eye",
			// corners 4 apart, both vertical pairs 2 apart
			set: eye(
				landmark.Point{X: 0, Y: 0},
				landmark.Point{X: 1, Y: -1},
				landmark.Point{X: 3, Y: -1},
				landmark.Point{X: 4, Y: 0},
				landmark.Point{X: 3, Y: 1},
				landmark.Point{X: 1, Y: 1},
			),
			want: 0.5,
		},
		{
			name: "uneven lids",
			// pairs 1↔5 = 2, 2↔4 = 1, corners 6 apart
			set: eye(
				landmark.Point{X: 0, Y: 0},
				landmark.Point{X: 2, Y: -1},
				landmark.Point{X: 4, Y: -0.5},
				landmark.Point{X: 6, Y: 0},
				landmark.Point{X: 4, Y: 0.5},
				landmark.Point{X: 2, Y: 1},
			),
			want: 0.25,
		},
		{
			name: "closed eye",
			set: eye(
				landmark.Point{X: 0, Y: 0},
				landmark.Point{X: 1, Y: 0},
				landmark.Point{X: 2, Y: 0},
				landmark.Point{X: 3, Y: 0},
				landmark.Point{X: 2, Y: 0},
				landmark.Point{X: 1, Y: 0},
			),
			want: 0,
		},
		{
			name: "3D lids",
			set: eye(
				landmark.Point{X: 0, Y: 0, Z: 0},
				landmark.Point{X: 1, Y: 0, Z: 1},
				landmark.Point{X: 2, Y: 0, Z: 1},
				landmark.Point{X: 2, Y: 0, Z: 0},
				landmark.Point{X: 2, Y: 0, Z: -1},
				landmark.Point{X: 1, Y: 0, Z: -1},
			),
			want: 1,
		},
		{
			name: "degenerate corners",
			set: eye(
				landmark.Point{X: 5, Y: 5},
				landmark.Point{X: 5, Y: 4},
				landmark.Point{X: 5, Y: 4},
				landmark.Point{X: 5, Y: 5},
				landmark.Point{X: 5, Y: 6},
				landmark.Point{X: 5, Y: 6},
			),
			want: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Ratio(tc.set); math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("Ratio = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRatio_NeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		var set landmark.EyeSet
		for j := range set.Points {
			set.Points[j] = landmark.Point{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		}
		if r := Ratio(set); r < 0 || math.IsNaN(r) {
			t.Fatalf("Ratio = %v for %+v", r, set)
		}
	}
}

func TestFromFace(t *testing.T) {
	face := landmark.SyntheticFace(landmark.MediaPipe, 0.3, 0.1, 640, 480)

	pair, err := FromFace(face)
	if err != nil {
		t.Fatalf("FromFace: %v", err)
	}
	if math.Abs(pair.Left-0.3) > 1e-9 || math.Abs(pair.Right-0.1) > 1e-9 {
		t.Errorf("got %+v, want left=0.3 right=0.1", pair)
	}
	if math.Abs(pair.Combined()-0.2) > 1e-9 {
		t.Errorf("Combined = %v, want 0.2", pair.Combined())
	}

	if _, err := FromFace(landmark.Face{}); err == nil {
		t.Error("expected error for face without topology")
	}
}
