package asset

import (
	"os"
	"slices"
	"strings"
)

// LoadedAssets returns the ids of loaded assets, sorted
func (r *Registry) LoadedAssets() []string {
	return r.ids(func(a *Asset) bool { return a.IsLoaded })
}

// AssetsByCategory returns the ids of loaded assets of category c, sorted
func (r *Registry) AssetsByCategory(c Category) []string {
	return r.ids(func(a *Asset) bool { return a.IsLoaded && a.Category == c })
}

func (r *Registry) ids(match func(*Asset) bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, a := range r.assets {
		if match(a) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// TotalMemoryUsage sums the on-disk size of every loaded asset
func (r *Registry) TotalMemoryUsage() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, a := range r.assets {
		if a.IsLoaded {
			total += a.ByteSize
		}
	}
	return total
}

// AssetCount counts every metadata record, loaded or discovered
func (r *Registry) AssetCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assets)
}

func (r *Registry) AssetCountByCategory(c Category) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.assets {
		if a.Category == c {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of every metadata record sorted by id
func (r *Registry) Snapshot() []Asset {
	r.mu.RLock()
	out := make([]Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, *a)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Asset) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// ValidateAsset reports whether id is registered and its source file exists
func (r *Registry) ValidateAsset(id string) bool {
	a, ok := r.Lookup(id)
	if !ok {
		return false
	}
	_, err := os.Stat(a.SourcePath)
	return err == nil
}

// ValidateAll reports whether every registered source file exists
func (r *Registry) ValidateAll() bool {
	return len(r.MissingAssets()) == 0
}

// MissingAssets returns the ids whose source file is gone, sorted
func (r *Registry) MissingAssets() []string {
	var missing []string
	for _, a := range r.Snapshot() {
		if _, err := os.Stat(a.SourcePath); err != nil {
			missing = append(missing, a.ID)
		}
	}
	return missing
}
