package asset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ManifestEntry declares one asset to load
type ManifestEntry struct {
	ID        string `json:"id" yaml:"id" toml:"id"`
	Path      string `json:"path" yaml:"path" toml:"path"`
	Category  string `json:"category,omitempty" yaml:"category,omitempty" toml:"category,omitempty"`
	Pixelated bool   `json:"pixelated,omitempty" yaml:"pixelated,omitempty" toml:"pixelated,omitempty"`
	MipMaps   bool   `json:"mipmaps,omitempty" yaml:"mipmaps,omitempty" toml:"mipmaps,omitempty"`
}

// Manifest is a list of assets read from a YAML, JSON or TOML file
type Manifest struct {
	Assets []ManifestEntry `json:"assets" yaml:"assets" toml:"assets"`
}

// ReadManifest parses the manifest at path, choosing the format by extension
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 - manifest path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("%w: manifest %s: %v", ErrNotFound, path, err)
	}

	m := &Manifest{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, m)
	case ".json":
		err = json.Unmarshal(data, m)
	case ".toml":
		err = toml.Unmarshal(data, m)
	default:
		return nil, fmt.Errorf("unsupported manifest format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return m, nil
}

// LoadManifest loads every entry of the manifest at path.
// Relative entry paths resolve against the manifest's directory and a
// missing category is derived from the file extension.
func (r *Registry) LoadManifest(ctx context.Context, path string) error {
	if !r.IsInitialized() {
		return ErrNotInitialized
	}
	m, err := ReadManifest(path)
	if err != nil {
		r.logger.Error("Failed to read asset manifest", zap.String("path", path), zap.Error(err))
		return err
	}

	base := filepath.Dir(path)
	var errs []error
	for i, e := range m.Assets {
		assetPath := e.Path
		if !filepath.IsAbs(assetPath) {
			assetPath = filepath.Join(base, assetPath)
		}

		category := CategoryForPath(assetPath)
		if e.Category != "" {
			if category, err = ParseCategory(e.Category); err != nil {
				errs = append(errs, fmt.Errorf("manifest entry %d (%s): %w", i, e.ID, err))
				continue
			}
		}

		id := e.ID
		if id == "" {
			id = StemID(assetPath)
		}
		if err := r.Load(ctx, id, assetPath, category, LoadOptions{Pixelated: e.Pixelated, MipMaps: e.MipMaps}); err != nil {
			errs = append(errs, err)
		}
	}

	r.logger.Info("Asset manifest processed",
		zap.String("path", path),
		zap.Int("entries", len(m.Assets)),
		zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}
