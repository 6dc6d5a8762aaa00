package calibration

// Default parameters for the peak calibrator.
const (
	DefaultPeakSamples   = 30
	DefaultPeakFactor    = 0.9
	DefaultPeakThreshold = -0.06
)

// Peak sets the threshold to a fraction of the largest observed value:
// max(samples)*factor. Used for the second-difference signal.
type Peak struct {
	acc    accumulator
	factor float64
}

// NewPeak creates a peak calibrator.
func NewPeak(samples int, factor, initial float64) *Peak {
	return &Peak{
		acc:    newAccumulator(samples, initial),
		factor: factor,
	}
}

// NewDefaultPeak uses 30 samples and a 0.9 factor.
func NewDefaultPeak() *Peak {
	return NewPeak(DefaultPeakSamples, DefaultPeakFactor, DefaultPeakThreshold)
}

// Observe implements Calibrator.
func (p *Peak) Observe(v float64) Result {
	p.acc.mu.Lock()
	defer p.acc.mu.Unlock()
	return p.acc.observe(v, func() float64 {
		return p.acc.max * p.factor
	})
}

// Reset implements Calibrator.
func (p *Peak) Reset() {
	p.acc.mu.Lock()
	defer p.acc.mu.Unlock()
	p.acc.reset()
}

// State implements Calibrator.
func (p *Peak) State() State {
	p.acc.mu.Lock()
	defer p.acc.mu.Unlock()
	return p.acc.state()
}
