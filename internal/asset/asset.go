// Package asset tracks typed resources loaded from disk.
//
// A Registry keeps one metadata record per logical id and one payload store
// per category. An id present in a store always has a metadata record with
// IsLoaded set; a record with IsLoaded unset has no payload. Discovery
// creates records without payloads so they can be preloaded later.
package asset

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrNotInitialized   = errors.New("asset registry not initialized")
	ErrNotFound         = errors.New("asset not found")
	ErrDecode           = errors.New("asset decode failed")
	ErrInvalidID        = errors.New("invalid asset id")
	ErrCategoryConflict = errors.New("asset loaded under a different category")
	ErrDuplicateID      = errors.New("asset id recorded for another file")
)

// LoadOptions are texture options; other categories ignore them
type LoadOptions struct {
	Pixelated bool `json:"pixelated" yaml:"pixelated" toml:"pixelated"`
	MipMaps   bool `json:"mipmaps" yaml:"mipmaps" toml:"mipmaps"`
}

// Asset is the metadata record for one logical id
type Asset struct {
	ID         string      `json:"id"`
	Category   Category    `json:"category"`
	SourcePath string      `json:"source_path"`
	ByteSize   int64       `json:"byte_size"`
	IsLoaded   bool        `json:"is_loaded"`
	LoadID     string      `json:"load_id,omitempty"`
	LoadedAt   time.Time   `json:"loaded_at,omitempty"`
	Options    LoadOptions `json:"options"`
}

// LoadCallback is notified after every decode attempt
type LoadCallback func(id string, c Category, success bool)

// LoadPolicy decides what Load does with an id that is already loaded
type LoadPolicy int

const (
	// LoadPolicyKeep treats the repeated load as a successful no-op
	LoadPolicyKeep LoadPolicy = iota
	// LoadPolicyReplace decodes the file again and swaps the payload on success
	LoadPolicyReplace
)

func (p LoadPolicy) String() string {
	if p == LoadPolicyReplace {
		return "replace"
	}
	return "keep"
}

// ParseLoadPolicy maps "keep" and "replace" to their policies
func ParseLoadPolicy(s string) (LoadPolicy, error) {
	switch strings.ToLower(s) {
	case "", "keep":
		return LoadPolicyKeep, nil
	case "replace":
		return LoadPolicyReplace, nil
	}
	return LoadPolicyKeep, errors.New("unknown load policy " + s)
}

// StemID derives an asset id from a file name without its extension
func StemID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
