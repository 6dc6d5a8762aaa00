package landmark

import "fmt"

// Topology names the indices of the eye and mouth contours inside a
// provider's landmark list. Eye order must follow EyeSet's convention.
type Topology struct {
	Name       string
	Size       int // Number of landmarks per face
	LeftEye    [6]int
	RightEye   [6]int
	MouthOuter []int
	MouthInner []int
}

// MediaPipe is the 468-point face mesh.
var MediaPipe = &Topology{
	Name:     "mediapipe",
	Size:     468,
	LeftEye:  [6]int{33, 160, 158, 133, 153, 144},
	RightEye: [6]int{362, 385, 387, 263, 373, 380},
	MouthOuter: []int{
		61, 185, 40, 39, 37, 0, 267, 269, 270, 409,
		291, 375, 321, 405, 314, 17, 84, 181, 91, 146,
	},
	MouthInner: []int{
		78, 191, 80, 81, 82, 13, 312, 311, 310, 415,
		308, 324, 318, 402, 317, 14, 87, 178, 88, 95,
	},
}

// Dlib68 is the 68-point iBUG layout used by dlib's shape predictor.
var Dlib68 = &Topology{
	Name:       "dlib68",
	Size:       68,
	LeftEye:    [6]int{36, 37, 38, 39, 40, 41},
	RightEye:   [6]int{42, 43, 44, 45, 46, 47},
	MouthOuter: indexRange(48, 60),
	MouthInner: indexRange(60, 68),
}

// TopologyByName returns a known topology.
func TopologyByName(name string) (*Topology, error) {
	switch name {
	case "mediapipe", "facemesh":
		return MediaPipe, nil
	case "dlib", "dlib68":
		return Dlib68, nil
	default:
		return nil, fmt.Errorf("landmark: unknown topology %q", name)
	}
}

func indexRange(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
