package config

import (
	"errors"
	"fmt"
)

// Config represents the unified configuration structure
type Config struct {
	Assets        AssetsConfig        `json:"assets" yaml:"assets" toml:"assets"`
	HotReload     HotReloadConfig     `json:"hot_reload" yaml:"hot_reload" toml:"hot_reload"`
	Engine        EngineConfig        `json:"engine" yaml:"engine" toml:"engine"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability" toml:"observability"`
	Catalog       CatalogConfig       `json:"catalog" yaml:"catalog" toml:"catalog"`
	Server        ServerConfig        `json:"server" yaml:"server" toml:"server"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Assets:        DefaultAssetsConfig(),
		HotReload:     DefaultHotReloadConfig(),
		Engine:        DefaultEngineConfig(),
		Observability: DefaultObservabilityConfig(),
		Catalog:       DefaultCatalogConfig(),
		Server:        DefaultServerConfig(),
	}
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errs []error

	if err := c.Assets.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("assets config validation failed: %w", err))
	}
	if err := c.HotReload.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("hot reload config validation failed: %w", err))
	}
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine config validation failed: %w", err))
	}
	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability config validation failed: %w", err))
	}
	if err := c.Catalog.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("catalog config validation failed: %w", err))
	}
	if c.Observability.Metrics.Enabled {
		if err := c.Server.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("server config validation failed: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
