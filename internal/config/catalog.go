package config

// CatalogConfig contains the SQLite asset catalog configuration.
// An empty path disables the catalog.
type CatalogConfig struct {
	Path string `json:"path" yaml:"path" toml:"path"`
}

// DefaultCatalogConfig returns default catalog configuration
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{}
}

// Enabled reports whether a catalog path is configured
func (c CatalogConfig) Enabled() bool {
	return c.Path != ""
}

// Validate validates catalog configuration
func (c CatalogConfig) Validate() error {
	if c.Path == "" {
		return nil
	}
	return validateFilePath(c.Path)
}
