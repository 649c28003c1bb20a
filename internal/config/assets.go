package config

import (
	"fmt"
	"strings"

	"github.com/leslieo2/go-asset-reload/internal/constants"
)

// Load policies understood by the asset registry
const (
	LoadPolicyKeep    = "keep"
	LoadPolicyReplace = "replace"
)

// AssetsConfig contains asset registry configuration
type AssetsConfig struct {
	ResourcesRoot string  `json:"resources_root" yaml:"resources_root" toml:"resources_root"`
	AutoDiscover  bool    `json:"auto_discover" yaml:"auto_discover" toml:"auto_discover"`
	Manifest      string  `json:"manifest" yaml:"manifest" toml:"manifest"`
	LoadPolicy    string  `json:"load_policy" yaml:"load_policy" toml:"load_policy"`
	FontSize      float64 `json:"font_size" yaml:"font_size" toml:"font_size"`
}

// DefaultAssetsConfig returns default asset configuration
func DefaultAssetsConfig() AssetsConfig {
	return AssetsConfig{
		ResourcesRoot: "resources",
		AutoDiscover:  true,
		LoadPolicy:    LoadPolicyKeep,
		FontSize:      constants.DefaultFontSize,
	}
}

// Validate validates asset configuration
func (a AssetsConfig) Validate() error {
	if a.ResourcesRoot == "" {
		return fmt.Errorf("resources root cannot be empty")
	}
	switch strings.ToLower(a.LoadPolicy) {
	case LoadPolicyKeep, LoadPolicyReplace:
	default:
		return fmt.Errorf("invalid load policy: %s, must be one of: %s, %s", a.LoadPolicy, LoadPolicyKeep, LoadPolicyReplace)
	}
	if a.FontSize <= 0 {
		return fmt.Errorf("font size must be positive")
	}
	return nil
}
