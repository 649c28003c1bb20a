package config

import (
	"fmt"
	"time"

	"github.com/leslieo2/go-asset-reload/internal/constants"
)

// HotReloadConfig represents hot reload configuration
type HotReloadConfig struct {
	Enabled            bool          `json:"enabled" yaml:"enabled" toml:"enabled"`
	PollInterval       time.Duration `json:"poll_interval" yaml:"poll_interval" toml:"poll_interval"`
	SettleDelay        time.Duration `json:"settle_delay" yaml:"settle_delay" toml:"settle_delay"`
	QueueSize          int           `json:"queue_size" yaml:"queue_size" toml:"queue_size"`
	MaxReloadsPerFrame int           `json:"max_reloads_per_frame" yaml:"max_reloads_per_frame" toml:"max_reloads_per_frame"`
}

// DefaultHotReloadConfig returns default hot reload configuration
func DefaultHotReloadConfig() HotReloadConfig {
	return HotReloadConfig{
		Enabled:            true,
		PollInterval:       constants.DefaultPollInterval,
		SettleDelay:        constants.DefaultSettleDelay,
		QueueSize:          constants.DefaultQueueSize,
		MaxReloadsPerFrame: constants.DefaultMaxReloadsPerFrame,
	}
}

// Validate validates hot reload configuration
func (h HotReloadConfig) Validate() error {
	if h.PollInterval <= 0 {
		return fmt.Errorf("hot reload poll interval must be positive")
	}
	if h.SettleDelay < 0 {
		return fmt.Errorf("hot reload settle delay must be non-negative")
	}
	if h.QueueSize <= 0 {
		return fmt.Errorf("hot reload queue size must be positive")
	}
	if h.MaxReloadsPerFrame < 0 {
		return fmt.Errorf("hot reload max reloads per frame must be non-negative")
	}
	return nil
}
