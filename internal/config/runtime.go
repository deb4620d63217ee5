package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// RuntimeConfig holds the startup parameters of a tracking run. Values are
// read from TRACKCAM_* environment variables and may be overridden by
// command-line flags.
type RuntimeConfig struct {
	// Source is a camera index ("0") or a video file path.
	Source     string `env:"TRACKCAM_SOURCE" envDefault:"0"`
	TuningPath string `env:"TRACKCAM_TUNING"`
	WindowName string `env:"TRACKCAM_WINDOW" envDefault:"tracking"`
	RecordPath string `env:"TRACKCAM_RECORD"`
	Enhance    bool   `env:"TRACKCAM_ENHANCE"`
	Watch      bool   `env:"TRACKCAM_WATCH" envDefault:"true"`
	Headless   bool   `env:"TRACKCAM_HEADLESS"`
	LogLevel   string `env:"TRACKCAM_LOG_LEVEL" envDefault:"info"`
}

// LoadRuntimeConfig parses the process environment.
func LoadRuntimeConfig() (RuntimeConfig, error) {
	return parseRuntime(env.Options{})
}

// LoadRuntimeConfigFrom parses the given environment instead of the
// process environment.
func LoadRuntimeConfigFrom(environ map[string]string) (RuntimeConfig, error) {
	return parseRuntime(env.Options{Environment: environ})
}

func parseRuntime(opts env.Options) (RuntimeConfig, error) {
	var cfg RuntimeConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks that the runtime configuration can start a run.
func (c RuntimeConfig) Validate() error {
	if strings.TrimSpace(c.Source) == "" {
		return fmt.Errorf("video source is required")
	}
	if c.WindowName == "" && !c.Headless {
		return fmt.Errorf("window name is required unless running headless")
	}
	return nil
}
