package camera

import "fmt"

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetHD      = "hd"
	PresetLow     = "low"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetHD:      HDConfig(),
		PresetLow:     LowConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetDefault, PresetHD, PresetLow}
}

// GetPreset returns a preset config by name.
func GetPreset(name string) (Config, error) {
	cfg, ok := Presets()[name]
	if !ok {
		return Config{}, fmt.Errorf("camera: unknown preset %q (want one of %v)", name, PresetNames())
	}
	return cfg, nil
}

// HDConfig returns 1280x720.
// Sharper eye contours at the cost of slower inference.
func HDConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// LowConfig returns 320x240 at 15 FPS for slow hosts.
func LowConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.Framerate = 15
	cfg.Quality = 70
	return cfg
}
