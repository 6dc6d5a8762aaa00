// Package config loads blinkd's process configuration from BLINK_*
// environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/teslashibe/go-blink/pkg/blink"
	"github.com/teslashibe/go-blink/pkg/camera"
	"github.com/teslashibe/go-blink/pkg/landmark"
	"github.com/teslashibe/go-blink/pkg/pipeline"
)

// Prefix is prepended to every variable name.
const Prefix = "BLINK"

// Frame source kinds
const (
	SourceCamera = "camera"
	SourcePush   = "push"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"5000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Source
	Source       string `envconfig:"SOURCE" default:"camera"`
	AutoStart    bool   `envconfig:"AUTO_START" default:"false"`
	CameraDevice int    `envconfig:"CAMERA_DEVICE" default:"0"`
	CameraPreset string `envconfig:"CAMERA_PRESET" default:"default"`
	CameraFlip   bool   `envconfig:"CAMERA_FLIP" default:"true"`

	// Landmark sidecar
	LandmarkURL      string        `envconfig:"LANDMARK_URL" default:"http://localhost:5001/landmarks"`
	LandmarkTimeout  time.Duration `envconfig:"LANDMARK_TIMEOUT" default:"2s"`
	LandmarkTopology string        `envconfig:"LANDMARK_TOPOLOGY" default:"mediapipe"`

	// Detection
	Strategy           string   `envconfig:"STRATEGY" default:"threshold"`
	Regions            []string `envconfig:"REGIONS" default:"combined"`
	CalibrationSamples int      `envconfig:"CALIBRATION_SAMPLES" default:"30"`
	CalibrationBlend   float64  `envconfig:"CALIBRATION_BLEND" default:"0.4"`
	DebounceFrames     int      `envconfig:"DEBOUNCE_FRAMES" default:"2"`
	HistorySize        int      `envconfig:"HISTORY_SIZE" default:"100"`
	DerivativeWindow   int      `envconfig:"DERIVATIVE_WINDOW" default:"11"`
	DerivativeSamples  int      `envconfig:"DERIVATIVE_SAMPLES" default:"30"`
	DerivativeFactor   float64  `envconfig:"DERIVATIVE_FACTOR" default:"0.9"`

	// Pipeline
	FrameInterval  time.Duration `envconfig:"FRAME_INTERVAL" default:"20ms"`
	StreamInterval time.Duration `envconfig:"STREAM_INTERVAL" default:"25ms"`
	StreamIdle     time.Duration `envconfig:"STREAM_IDLE" default:"100ms"`
	StopTimeout    time.Duration `envconfig:"STOP_TIMEOUT" default:"2s"`
	EventBuffer    int           `envconfig:"EVENT_BUFFER" default:"256"`
	EmitLandmarks  bool          `envconfig:"EMIT_LANDMARKS" default:"true"`
	EmitSignal     bool          `envconfig:"EMIT_SIGNAL" default:"true"`
	Annotate       bool          `envconfig:"ANNOTATE" default:"true"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %v", errs)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate returns a list of problems, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}
	if c.Source != SourceCamera && c.Source != SourcePush {
		errs = append(errs, fmt.Sprintf("source must be %s or %s", SourceCamera, SourcePush))
	}
	if _, err := camera.GetPreset(c.CameraPreset); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := landmark.TopologyByName(c.LandmarkTopology); err != nil {
		errs = append(errs, err.Error())
	}
	if c.EventBuffer < 1 {
		errs = append(errs, "event_buffer must be positive")
	}

	bc, err := c.BlinkConfig()
	if err != nil {
		errs = append(errs, err.Error())
	} else {
		errs = append(errs, bc.Validate()...)
	}
	return errs
}

// BlinkConfig maps the detection settings onto the detector config.
func (c *Config) BlinkConfig() (blink.Config, error) {
	strategy, err := blink.ParseStrategy(c.Strategy)
	if err != nil {
		return blink.Config{}, err
	}
	regions, err := blink.ParseRegions(c.Regions)
	if err != nil {
		return blink.Config{}, err
	}

	cfg := blink.DefaultConfig()
	cfg.Strategy = strategy
	cfg.Regions = regions
	cfg.CalibrationSamples = c.CalibrationSamples
	cfg.CalibrationBlend = c.CalibrationBlend
	cfg.Debounce = c.DebounceFrames
	cfg.HistorySize = c.HistorySize
	cfg.Window = c.DerivativeWindow
	cfg.DerivativeSamples = c.DerivativeSamples
	cfg.DerivativeFactor = c.DerivativeFactor
	cfg.EmitSignal = c.EmitSignal
	return cfg, nil
}

// PipelineConfig maps the timing settings onto the coordinator config.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		FrameInterval:  c.FrameInterval,
		StreamInterval: c.StreamInterval,
		StreamIdle:     c.StreamIdle,
		StopTimeout:    c.StopTimeout,
		EmitLandmarks:  c.EmitLandmarks,
		Annotate:       c.Annotate,
	}
}

// CameraConfig resolves the preset and applies device overrides.
func (c *Config) CameraConfig() (camera.Config, error) {
	cfg, err := camera.GetPreset(c.CameraPreset)
	if err != nil {
		return camera.Config{}, err
	}
	cfg.Device = c.CameraDevice
	cfg.Flip = c.CameraFlip
	return cfg, nil
}

// LandmarkConfig returns the sidecar provider settings.
func (c *Config) LandmarkConfig() landmark.HTTPConfig {
	return landmark.HTTPConfig{
		URL:      c.LandmarkURL,
		Timeout:  c.LandmarkTimeout,
		Topology: c.LandmarkTopology,
	}
}
