package tracking

import "github.com/banshee-data/trackcam/internal/config"

// Config holds the orchestrator's session policy and the parameters used
// for every new session's motion filter.
type Config struct {
	Filter          FilterConfig
	FailThreshold   int // Consecutive visual failures before the coast counter resets
	CoastRegionSize int // Side of the box drawn around the coasting prediction
}

// DefaultConfig returns the built-in tracking configuration.
func DefaultConfig() Config {
	return Config{
		Filter:          DefaultFilterConfig(),
		FailThreshold:   50,
		CoastRegionSize: 60,
	}
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Filter: FilterConfig{
			ProcessNoisePos:         cfg.GetProcessNoisePos(),
			ProcessNoiseVel:         cfg.GetProcessNoiseVel(),
			MeasurementNoise:        cfg.GetMeasurementNoise(),
			InitialPositionVariance: cfg.GetInitialPositionVariance(),
			InitialVelocityVariance: cfg.GetInitialVelocityVariance(),
		},
		FailThreshold:   cfg.GetFailThreshold(),
		CoastRegionSize: cfg.GetCoastRegionSize(),
	}
}
