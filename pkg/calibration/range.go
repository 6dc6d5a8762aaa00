package calibration

// Default parameters for the range calibrator.
const (
	DefaultRangeSamples   = 30
	DefaultBlend          = 0.4
	DefaultRangeThreshold = 0.25
)

// Range sets the threshold a fixed fraction of the way from the lowest to
// the highest observed ratio: min + (max-min)*blend.
//
// If every sample is identical the threshold equals that value, and
// detection degenerates to "always open" or "always closed". That is
// accepted behaviour.
type Range struct {
	acc   accumulator
	blend float64
}

// NewRange creates a range calibrator that completes after samples
// observations. initial is reported as the threshold until then.
func NewRange(samples int, blend, initial float64) *Range {
	return &Range{
		acc:   newAccumulator(samples, initial),
		blend: blend,
	}
}

// NewDefaultRange uses 30 samples and a 0.4 blend.
func NewDefaultRange() *Range {
	return NewRange(DefaultRangeSamples, DefaultBlend, DefaultRangeThreshold)
}

// Observe implements Calibrator.
func (r *Range) Observe(v float64) Result {
	r.acc.mu.Lock()
	defer r.acc.mu.Unlock()
	return r.acc.observe(v, func() float64 {
		return r.acc.min + (r.acc.max-r.acc.min)*r.blend
	})
}

// Reset implements Calibrator.
func (r *Range) Reset() {
	r.acc.mu.Lock()
	defer r.acc.mu.Unlock()
	r.acc.reset()
}

// State implements Calibrator.
func (r *Range) State() State {
	r.acc.mu.Lock()
	defer r.acc.mu.Unlock()
	return r.acc.state()
}
