package blink

import (
	"github.com/teslashibe/go-blink/pkg/calibration"
	"github.com/teslashibe/go-blink/pkg/signal"
)

// Config holds the detector's tunable parameters.
type Config struct {
	Strategy Strategy `json:"strategy"`
	Regions  []Region `json:"regions"` // Tracked regions, emitted in AllRegions order

	// === Threshold strategy ===
	CalibrationSamples int     `json:"calibration_samples"` // Warm-up frames
	CalibrationBlend   float64 `json:"calibration_blend"`   // k in min + (max-min)*k
	InitialThreshold   float64 `json:"initial_threshold"`   // Used before calibration completes
	Debounce           int     `json:"debounce"`            // Closed frames that must be exceeded

	// === Derivative strategy ===
	HistorySize         int     `json:"history_size"`         // Rolling ratio window
	Window              int     `json:"window"`               // Second-difference width W
	DerivativeSamples   int     `json:"derivative_samples"`   // Warm-up derivative values
	DerivativeFactor    float64 `json:"derivative_factor"`    // f in max*f
	DerivativeThreshold float64 `json:"derivative_threshold"` // Used before calibration completes

	// EmitSignal publishes ear_value and earm_value every frame.
	EmitSignal bool `json:"emit_signal"`
}

// DefaultConfig is the single-region ratio-threshold detector with a
// 30-frame warm-up.
func DefaultConfig() Config {
	return Config{
		Strategy: Threshold,
		Regions:  []Region{Combined},

		CalibrationSamples: calibration.DefaultRangeSamples,
		CalibrationBlend:   calibration.DefaultBlend,
		InitialThreshold:   calibration.DefaultRangeThreshold,
		Debounce:           DefaultDebounce,

		HistorySize:         signal.DefaultCapacity,
		Window:              signal.DefaultWindow,
		DerivativeSamples:   calibration.DefaultPeakSamples,
		DerivativeFactor:    calibration.DefaultPeakFactor,
		DerivativeThreshold: calibration.DefaultPeakThreshold,

		EmitSignal: true,
	}
}

// DlibConfig tracks both eyes separately as well as combined and uses a
// longer 100-frame warm-up.
func DlibConfig() Config {
	cfg := DefaultConfig()
	cfg.Regions = []Region{Combined, Left, Right}
	cfg.CalibrationSamples = 100
	return cfg
}

// DerivativeConfig detects blinks from the second difference of the ratio.
func DerivativeConfig() Config {
	cfg := DefaultConfig()
	cfg.Strategy = Derivative
	return cfg
}

// Validate checks the config. Returns a list of problems, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	if c.Strategy != Threshold && c.Strategy != Derivative {
		errs = append(errs, "strategy must be threshold or derivative")
	}
	if len(c.Regions) == 0 {
		errs = append(errs, "at least one region is required")
	}
	for _, r := range c.Regions {
		if _, err := ParseRegion(string(r)); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.CalibrationSamples < 1 {
		errs = append(errs, "calibration_samples must be positive")
	}
	if c.CalibrationBlend < 0 || c.CalibrationBlend > 1 {
		errs = append(errs, "calibration_blend must be between 0 and 1")
	}
	if c.Debounce < 0 {
		errs = append(errs, "debounce must not be negative")
	}
	if c.Window < 1 {
		errs = append(errs, "window must be at least 1")
	}
	if c.HistorySize < c.Window {
		errs = append(errs, "history_size must be at least window")
	}
	if c.DerivativeSamples < 1 {
		errs = append(errs, "derivative_samples must be positive")
	}

	return errs
}
