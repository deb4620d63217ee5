package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Tracker kinds understood by the video adapters.
const (
	TrackerCSRT = "csrt"
	TrackerKCF  = "kcf"
	TrackerMIL  = "mil"
)

// TuningConfig holds the tunable tracking parameters. Every field is
// optional; the Get* methods supply defaults for anything left unset so a
// partial file is always safe to load.
type TuningConfig struct {
	// Motion filter
	ProcessNoisePos         *float64 `json:"process_noise_pos,omitempty" toml:"process_noise_pos"`
	ProcessNoiseVel         *float64 `json:"process_noise_vel,omitempty" toml:"process_noise_vel"`
	MeasurementNoise        *float64 `json:"measurement_noise,omitempty" toml:"measurement_noise"`
	InitialPositionVariance *float64 `json:"initial_position_variance,omitempty" toml:"initial_position_variance"`
	InitialVelocityVariance *float64 `json:"initial_velocity_variance,omitempty" toml:"initial_velocity_variance"`

	// Session policy
	FailThreshold   *int `json:"fail_threshold,omitempty" toml:"fail_threshold"`
	ClickRegionSize *int `json:"click_region_size,omitempty" toml:"click_region_size"`
	CoastRegionSize *int `json:"coast_region_size,omitempty" toml:"coast_region_size"`

	// Collaborators
	TrackerKind *string `json:"tracker_kind,omitempty" toml:"tracker_kind"`
	WaitKeyMs   *int    `json:"wait_key_ms,omitempty" toml:"wait_key_ms"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	empty := EmptyTuningConfig()
	return &TuningConfig{
		ProcessNoisePos:         ptrFloat64(empty.GetProcessNoisePos()),
		ProcessNoiseVel:         ptrFloat64(empty.GetProcessNoiseVel()),
		MeasurementNoise:        ptrFloat64(empty.GetMeasurementNoise()),
		InitialPositionVariance: ptrFloat64(empty.GetInitialPositionVariance()),
		InitialVelocityVariance: ptrFloat64(empty.GetInitialVelocityVariance()),
		FailThreshold:           ptrInt(empty.GetFailThreshold()),
		ClickRegionSize:         ptrInt(empty.GetClickRegionSize()),
		CoastRegionSize:         ptrInt(empty.GetCoastRegionSize()),
		TrackerKind:             ptrString(empty.GetTrackerKind()),
		WaitKeyMs:               ptrInt(empty.GetWaitKeyMs()),
	}
}

// LoadTuningConfig loads a TuningConfig from a .json or .toml file.
// Fields omitted from the file keep their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".toml" {
		return nil, fmt.Errorf("config file must have .json or .toml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseTuningConfig(data, ext)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseTuningConfig decodes raw config bytes in the format named by ext
// (".json" or ".toml") and validates the result.
func ParseTuningConfig(data []byte, ext string) (*TuningConfig, error) {
	cfg := EmptyTuningConfig()
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching the current directory and its parents.
// Panics if the file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"process_noise_pos", c.ProcessNoisePos},
		{"process_noise_vel", c.ProcessNoiseVel},
		{"measurement_noise", c.MeasurementNoise},
	}
	for _, p := range positive {
		if p.v != nil && *p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", p.name, *p.v)
		}
	}

	if c.InitialPositionVariance != nil && *c.InitialPositionVariance < 0 {
		return fmt.Errorf("initial_position_variance must be non-negative, got %f", *c.InitialPositionVariance)
	}
	if c.InitialVelocityVariance != nil && *c.InitialVelocityVariance < 0 {
		return fmt.Errorf("initial_velocity_variance must be non-negative, got %f", *c.InitialVelocityVariance)
	}

	if c.FailThreshold != nil && *c.FailThreshold < 1 {
		return fmt.Errorf("fail_threshold must be >= 1, got %d", *c.FailThreshold)
	}
	if c.ClickRegionSize != nil && *c.ClickRegionSize < 2 {
		return fmt.Errorf("click_region_size must be >= 2, got %d", *c.ClickRegionSize)
	}
	if c.CoastRegionSize != nil && *c.CoastRegionSize < 2 {
		return fmt.Errorf("coast_region_size must be >= 2, got %d", *c.CoastRegionSize)
	}
	if c.WaitKeyMs != nil && *c.WaitKeyMs < 1 {
		return fmt.Errorf("wait_key_ms must be >= 1, got %d", *c.WaitKeyMs)
	}

	if c.TrackerKind != nil {
		switch *c.TrackerKind {
		case TrackerCSRT, TrackerKCF, TrackerMIL:
		default:
			return fmt.Errorf("unknown tracker_kind %q", *c.TrackerKind)
		}
	}

	return nil
}

// GetProcessNoisePos returns the process_noise_pos value or the default.
func (c *TuningConfig) GetProcessNoisePos() float64 {
	if c.ProcessNoisePos == nil {
		return 1e-2
	}
	return *c.ProcessNoisePos
}

// GetProcessNoiseVel returns the process_noise_vel value or the default.
func (c *TuningConfig) GetProcessNoiseVel() float64 {
	if c.ProcessNoiseVel == nil {
		return 5.0
	}
	return *c.ProcessNoiseVel
}

// GetMeasurementNoise returns the measurement_noise value or the default.
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return 1e-1
	}
	return *c.MeasurementNoise
}

// GetInitialPositionVariance returns the initial_position_variance value or the default.
func (c *TuningConfig) GetInitialPositionVariance() float64 {
	if c.InitialPositionVariance == nil {
		return 1.0
	}
	return *c.InitialPositionVariance
}

// GetInitialVelocityVariance returns the initial_velocity_variance value or the default.
func (c *TuningConfig) GetInitialVelocityVariance() float64 {
	if c.InitialVelocityVariance == nil {
		return 10.0
	}
	return *c.InitialVelocityVariance
}

// GetFailThreshold returns the fail_threshold value or the default.
func (c *TuningConfig) GetFailThreshold() int {
	if c.FailThreshold == nil {
		return 50
	}
	return *c.FailThreshold
}

// GetClickRegionSize returns the click_region_size value or the default.
func (c *TuningConfig) GetClickRegionSize() int {
	if c.ClickRegionSize == nil {
		return 60
	}
	return *c.ClickRegionSize
}

// GetCoastRegionSize returns the coast_region_size value or the default.
func (c *TuningConfig) GetCoastRegionSize() int {
	if c.CoastRegionSize == nil {
		return 60
	}
	return *c.CoastRegionSize
}

// GetTrackerKind returns the tracker_kind value or the default.
func (c *TuningConfig) GetTrackerKind() string {
	if c.TrackerKind == nil || *c.TrackerKind == "" {
		return TrackerCSRT
	}
	return *c.TrackerKind
}

// GetWaitKeyMs returns the wait_key_ms value or the default.
func (c *TuningConfig) GetWaitKeyMs() int {
	if c.WaitKeyMs == nil {
		return 30
	}
	return *c.WaitKeyMs
}
