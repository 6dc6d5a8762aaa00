package blink

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/teslashibe/go-blink/internal/log"
	"github.com/teslashibe/go-blink/pkg/calibration"
	"github.com/teslashibe/go-blink/pkg/event"
	"github.com/teslashibe/go-blink/pkg/signal"
)

// Sample is one frame's openness ratios.
type Sample struct {
	Left  float64
	Right float64
}

// Value returns the ratio for a region. Combined is the mean of both eyes.
func (s Sample) Value(r Region) float64 {
	switch r {
	case Left:
		return s.Left
	case Right:
		return s.Right
	default:
		return (s.Left + s.Right) / 2.0
	}
}

// RegionStatus is a snapshot of one region's machine.
type RegionStatus struct {
	Region       Region   `json:"region"`
	State        EyeState `json:"state"`
	Total        int      `json:"total"`
	ClosedFrames int      `json:"closed_frames"`
}

// Status is a snapshot of the detector.
type Status struct {
	Strategy    Strategy          `json:"strategy"`
	Calibration calibration.State `json:"calibration"`
	Regions     []RegionStatus    `json:"regions"`
	Frames      uint64            `json:"frames"`
}

// Detector owns the calibrator, the signal histories and one Machine per
// region. Process is called from a single goroutine; Recalibrate and Status
// may be called from any goroutine.
type Detector struct {
	cfg Config
	cal calibration.Calibrator
	log *slog.Logger

	mu       sync.Mutex
	machines []*Machine
	combined *signal.History
	history  []*signal.History // parallel to machines, derivative strategy only
	frames   uint64
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the detector's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		d.log = l
	}
}

// WithCalibrator replaces the calibrator derived from the config.
func WithCalibrator(c calibration.Calibrator) Option {
	return func(d *Detector) {
		d.cal = c
	}
}

// NewDetector builds a detector from cfg.
func NewDetector(cfg Config, opts ...Option) (*Detector, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.New("blink: invalid config: " + strings.Join(errs, "; "))
	}
	regions, err := ParseRegions(regionNames(cfg.Regions))
	if err != nil {
		return nil, err
	}
	cfg.Regions = regions

	d := &Detector{cfg: cfg}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = log.Component("blink")
	}
	if d.cal == nil {
		switch cfg.Strategy {
		case Derivative:
			d.cal = calibration.NewPeak(cfg.DerivativeSamples, cfg.DerivativeFactor, cfg.DerivativeThreshold)
		default:
			d.cal = calibration.NewRange(cfg.CalibrationSamples, cfg.CalibrationBlend, cfg.InitialThreshold)
		}
	}

	if cfg.Strategy == Derivative {
		d.combined = signal.NewHistory(cfg.HistorySize)
	}
	for _, r := range cfg.Regions {
		d.machines = append(d.machines, NewMachine(r, cfg.Strategy, cfg.Debounce))
		if cfg.Strategy != Derivative {
			continue
		}
		if r == Combined {
			d.history = append(d.history, d.combined)
		} else {
			d.history = append(d.history, signal.NewHistory(cfg.HistorySize))
		}
	}

	return d, nil
}

func regionNames(rs []Region) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// Config returns the detector's config.
func (d *Detector) Config() Config {
	return d.cfg
}

// Process feeds one frame's ratios and returns the resulting events in
// emission order: ear_value, then earm_value and calibrated where they
// apply, then each region's transitions.
func (d *Detector) Process(s Sample) []event.Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.frames++
	combined := s.Value(Combined)

	var out []event.Event
	if d.cfg.EmitSignal {
		out = append(out, event.EARValue(combined))
	}

	if d.cfg.Strategy == Derivative {
		return d.processDerivative(s, out)
	}

	res := d.cal.Observe(combined)
	d.log.Debug("ratio",
		"left", s.Left,
		"right", s.Right,
		"combined", combined,
		"threshold", res.Threshold,
		"calibrating", res.Calibrating,
	)
	out = d.calibrated(res, out)
	if res.Calibrating {
		return out
	}

	for _, m := range d.machines {
		out = append(out, m.Step(s.Value(m.Region()), res.Threshold)...)
	}
	return out
}

func (d *Detector) processDerivative(s Sample, out []event.Event) []event.Event {
	d.combined.Push(s.Value(Combined))
	for i, m := range d.machines {
		if m.Region() != Combined {
			d.history[i].Push(s.Value(m.Region()))
		}
	}

	if d.combined.Len() < d.cfg.Window {
		return out
	}

	earm := d.combined.DerivativeAt(d.combined.Center(), d.cfg.Window)
	if d.cfg.EmitSignal {
		out = append(out, event.EARMValue(earm))
	}

	res := d.cal.Observe(earm)
	d.log.Debug("earm",
		"value", earm,
		"threshold", res.Threshold,
		"calibrating", res.Calibrating,
	)
	out = d.calibrated(res, out)
	if res.Calibrating {
		return out
	}

	for i, m := range d.machines {
		h := d.history[i]
		out = append(out, m.Step(h.DerivativeAt(h.Center(), d.cfg.Window), res.Threshold)...)
	}
	return out
}

func (d *Detector) calibrated(res calibration.Result, out []event.Event) []event.Event {
	if !res.Completed {
		return out
	}
	d.log.Info("calibration complete", "strategy", d.cfg.Strategy, "threshold", res.Threshold)
	return append(out, event.Calibrated(res.Threshold))
}

// Recalibrate restarts calibration. Region states and blink totals are kept.
// Safe to call while Process is running on another goroutine.
func (d *Detector) Recalibrate() {
	d.cal.Reset()
	d.log.Info("recalibration requested", "strategy", d.cfg.Strategy)
}

// Status returns a snapshot of the detector.
func (d *Detector) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := Status{
		Strategy:    d.cfg.Strategy,
		Calibration: d.cal.State(),
		Regions:     make([]RegionStatus, 0, len(d.machines)),
		Frames:      d.frames,
	}
	for _, m := range d.machines {
		st.Regions = append(st.Regions, RegionStatus{
			Region:       m.Region(),
			State:        m.State(),
			Total:        m.Total(),
			ClosedFrames: m.ClosedFrames(),
		})
	}
	return st
}
