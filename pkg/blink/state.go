// Package blink turns a per-frame eye-openness signal into debounced
// open/closed transitions and completed-blink counts.
package blink

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-blink/pkg/event"
)

// EyeState is the open/closed state of one tracked region.
type EyeState string

const (
	Open   EyeState = "open"
	Closed EyeState = "closed"
)

// Region is an independently tracked eye region.
type Region string

const (
	Combined Region = "combined"
	Left     Region = "left"
	Right    Region = "right"
)

// AllRegions lists every region in emission order.
var AllRegions = []Region{Combined, Left, Right}

// StateEvent is the event name used for this region's open/closed changes.
func (r Region) StateEvent() string {
	switch r {
	case Left:
		return event.NameLeftEyeState
	case Right:
		return event.NameRightEyeState
	default:
		return event.NameEyeState
	}
}

// BlinkEvent is the event name used for this region's completed blinks.
func (r Region) BlinkEvent() string {
	switch r {
	case Left:
		return event.NameLeftBlink
	case Right:
		return event.NameRightBlink
	default:
		return event.NameBlink
	}
}

// ParseRegion parses a region name.
func ParseRegion(s string) (Region, error) {
	switch r := Region(strings.ToLower(strings.TrimSpace(s))); r {
	case Combined, Left, Right:
		return r, nil
	default:
		return "", fmt.Errorf("unknown region %q", s)
	}
}

// ParseRegions parses a list of region names, dropping duplicates and
// returning them in emission order.
func ParseRegions(names []string) ([]Region, error) {
	seen := make(map[Region]bool, len(names))
	for _, n := range names {
		r, err := ParseRegion(n)
		if err != nil {
			return nil, err
		}
		seen[r] = true
	}
	out := make([]Region, 0, len(seen))
	for _, r := range AllRegions {
		if seen[r] {
			out = append(out, r)
		}
	}
	return out, nil
}

// Strategy selects which signal the state machine compares to the threshold.
type Strategy string

const (
	// Threshold compares the raw ratio and debounces by frame count.
	Threshold Strategy = "threshold"

	// Derivative compares the windowed second difference of the ratio.
	Derivative Strategy = "derivative"
)

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case Threshold, Derivative:
		return st, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}
