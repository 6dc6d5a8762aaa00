// Package calibration derives a person- and lighting-specific detection
// threshold from a warm-up sample of the blink signal.
//
// Calibrators are safe for concurrent use: Reset may be called from a
// control goroutine while the pipeline is inside Observe, and each call is
// applied atomically with respect to the other.
package calibration

import (
	"math"
	"sync"
)

// Result is the outcome of one Observe call.
type Result struct {
	// Calibrating is true while the sample was consumed by calibration.
	Calibrating bool

	// Completed is true exactly once per calibration run, on the sample
	// that reached the target count.
	Completed bool

	// Threshold is the current threshold. During calibration it is the
	// previous (or initial) value and must not be used for detection.
	Threshold float64
}

// State is a snapshot of a calibrator.
type State struct {
	Calibrating bool    `json:"calibrating"`
	Samples     int     `json:"samples"`
	Target      int     `json:"target"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Threshold   float64 `json:"threshold"`
}

// Calibrator accumulates samples and produces a threshold.
type Calibrator interface {
	Observe(v float64) Result
	Reset()
	State() State
}

// accumulator is the shared bookkeeping for both calibrators.
type accumulator struct {
	mu          sync.Mutex
	target      int
	samples     []float64
	min, max    float64
	threshold   float64
	calibrating bool
}

func newAccumulator(target int, initial float64) accumulator {
	if target < 1 {
		target = 1
	}
	return accumulator{
		target:      target,
		samples:     make([]float64, 0, target),
		min:         math.Inf(1),
		max:         math.Inf(-1),
		threshold:   initial,
		calibrating: true,
	}
}

// observe must be called with mu held. derive is invoked once when the
// target is reached.
func (a *accumulator) observe(v float64, derive func() float64) Result {
	if !a.calibrating {
		return Result{Threshold: a.threshold}
	}

	a.min = math.Min(a.min, v)
	a.max = math.Max(a.max, v)
	a.samples = append(a.samples, v)

	if len(a.samples) < a.target {
		return Result{Calibrating: true, Threshold: a.threshold}
	}

	a.threshold = derive()
	a.calibrating = false
	return Result{Calibrating: true, Completed: true, Threshold: a.threshold}
}

func (a *accumulator) reset() {
	a.samples = a.samples[:0]
	a.min = math.Inf(1)
	a.max = math.Inf(-1)
	a.calibrating = true
}

func (a *accumulator) state() State {
	s := State{
		Calibrating: a.calibrating,
		Samples:     len(a.samples),
		Target:      a.target,
		Threshold:   a.threshold,
	}
	// min/max stay at ±Inf until the first sample, which JSON cannot carry
	if len(a.samples) > 0 {
		s.Min, s.Max = a.min, a.max
	}
	return s
}
