package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRuntimeConfigDefaults(t *testing.T) {
	cfg, err := LoadRuntimeConfigFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "0", cfg.Source)
	assert.Equal(t, "tracking", cfg.WindowName)
	assert.True(t, cfg.Watch)
	assert.False(t, cfg.Enhance)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRuntimeConfigFromEnv(t *testing.T) {
	cfg, err := LoadRuntimeConfigFrom(map[string]string{
		"TRACKCAM_SOURCE":   "/videos/clip.mp4",
		"TRACKCAM_RECORD":   "/tmp/track.db",
		"TRACKCAM_ENHANCE":  "true",
		"TRACKCAM_WATCH":    "false",
		"TRACKCAM_HEADLESS": "true",
	})
	require.NoError(t, err)

	assert.Equal(t, "/videos/clip.mp4", cfg.Source)
	assert.Equal(t, "/tmp/track.db", cfg.RecordPath)
	assert.True(t, cfg.Enhance)
	assert.False(t, cfg.Watch)
	assert.True(t, cfg.Headless)
}

func TestLoadRuntimeConfigBadBool(t *testing.T) {
	_, err := LoadRuntimeConfigFrom(map[string]string{"TRACKCAM_ENHANCE": "maybe"})
	assert.Error(t, err)
}

func TestRuntimeConfigValidate(t *testing.T) {
	assert.Error(t, RuntimeConfig{Source: " ", WindowName: "w"}.Validate())
	assert.Error(t, RuntimeConfig{Source: "0"}.Validate())
	assert.NoError(t, RuntimeConfig{Source: "0", Headless: true}.Validate())
}
