package config

import (
	"fmt"

	"github.com/leslieo2/go-asset-reload/internal/constants"
)

// EngineConfig contains frame loop configuration
type EngineConfig struct {
	TargetFPS int `json:"target_fps" yaml:"target_fps" toml:"target_fps"`
}

// DefaultEngineConfig returns default engine configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TargetFPS: constants.DefaultTargetFPS,
	}
}

// Validate validates engine configuration
func (e EngineConfig) Validate() error {
	if e.TargetFPS < 1 || e.TargetFPS > 1000 {
		return fmt.Errorf("target fps must be between 1 and 1000")
	}
	return nil
}
