package asset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/leslieo2/go-asset-reload/internal/constants"
)

// categoryDirs maps each category to its subdirectory under the resources root
var categoryDirs = map[Category]string{
	CategoryTexture: constants.DirTextures,
	CategoryAudio:   constants.DirAudio,
	CategoryScene:   constants.DirScenes,
	CategoryFont:    constants.DirFonts,
}

// CategoryDir returns the subdirectory holding assets of c
func CategoryDir(c Category) string {
	return categoryDirs[c]
}

// FindFiles lists files under dir carrying one of c's extensions, sorted by path
func FindFiles(dir string, c Category, recursive bool) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, dir)
	}

	var files []string
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && IsValidAssetFile(e.Name(), c) {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
		return files, nil
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsValidAssetFile(path, c) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// LoadDirectory loads every matching file in dir with ids taken from file stems.
// Every file is attempted; the returned error joins each failure.
func (r *Registry) LoadDirectory(ctx context.Context, dir string, c Category, recursive bool) error {
	if !r.IsInitialized() {
		return ErrNotInitialized
	}
	files, err := FindFiles(dir, c, recursive)
	if err != nil {
		r.logger.Error("Failed to scan asset directory", zap.String("dir", dir), zap.Error(err))
		return err
	}

	var errs []error
	loaded := 0
	for _, path := range files {
		id := StemID(path)
		if prev, ok := r.Lookup(id); ok && prev.IsLoaded && filepath.Clean(prev.SourcePath) != path {
			r.logger.Warn("Asset id already loaded from another file",
				zap.String("id", id),
				zap.String("path", path),
				zap.String("loaded_path", prev.SourcePath),
				zap.String("policy", r.Policy().String()))
		}
		if err := r.Load(ctx, id, path, c, LoadOptions{}); err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
	}

	r.logger.Info("Loaded assets from directory",
		zap.String("dir", dir),
		zap.String("category", c.String()),
		zap.Int("loaded", loaded),
		zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// Scan registers metadata for every matching file in dir without decoding it.
// Ids that already have a record for the same file are left alone. A file whose
// stem is already recorded for another file or category is skipped and reported
// with ErrCategoryConflict or ErrDuplicateID. It returns the newly discovered ids.
func (r *Registry) Scan(dir string, c Category, recursive bool) ([]string, error) {
	if !r.IsInitialized() {
		return nil, ErrNotInitialized
	}
	files, err := FindFiles(dir, c, recursive)
	if err != nil {
		return nil, err
	}

	var (
		found []Asset
		errs  []error
	)
	r.mu.Lock()
	for _, path := range files {
		id := StemID(path)
		if id == "" {
			continue
		}
		if existing, exists := r.assets[id]; exists {
			if err := stemCollision(existing, path, c); err != nil {
				r.logger.Warn("Discovered file collides with a recorded asset",
					zap.String("id", id),
					zap.String("path", path),
					zap.String("category", c.String()),
					zap.String("existing_path", existing.SourcePath),
					zap.String("existing_category", existing.Category.String()))
				errs = append(errs, err)
			}
			continue
		}
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		a := &Asset{ID: id, Category: c, SourcePath: path, ByteSize: size}
		r.assets[id] = a
		found = append(found, *a)
	}
	r.mu.Unlock()

	r.logger.Debug("Scanned for assets", zap.String("dir", dir), zap.String("category", c.String()), zap.Int("found", len(found)))
	return sortedIDs(found), errors.Join(errs...)
}

// stemCollision reports whether path under c clashes with the record already held for its stem
func stemCollision(existing *Asset, path string, c Category) error {
	switch {
	case existing.Category != c:
		return fmt.Errorf("%w: %s at %s is already a %s at %s",
			ErrCategoryConflict, existing.ID, path, existing.Category, existing.SourcePath)
	case filepath.Clean(existing.SourcePath) != filepath.Clean(path):
		return fmt.Errorf("%w: %s at %s is already recorded at %s",
			ErrDuplicateID, existing.ID, path, existing.SourcePath)
	}
	return nil
}

// AutoDiscover scans each category subdirectory of the resources root.
// Missing subdirectories are skipped.
func (r *Registry) AutoDiscover() (int, error) {
	if !r.IsInitialized() {
		return 0, ErrNotInitialized
	}
	if _, err := os.Stat(r.root); err != nil {
		return 0, fmt.Errorf("%w: resources root %s: %v", ErrNotFound, r.root, err)
	}

	total := 0
	var errs []error
	for _, c := range Categories() {
		dir := filepath.Join(r.root, categoryDirs[c])
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		ids, err := r.Scan(dir, c, true)
		if err != nil {
			errs = append(errs, err)
		}
		total += len(ids)
	}

	r.logger.Info("Auto-discovered assets", zap.String("root", r.root), zap.Int("count", total))
	return total, errors.Join(errs...)
}

// Preload loads discovered assets. With no ids it loads every discovered record that has no payload.
func (r *Registry) Preload(ctx context.Context, ids ...string) error {
	if !r.IsInitialized() {
		return ErrNotInitialized
	}
	if len(ids) == 0 {
		ids = r.Discovered()
	}

	var errs []error
	for _, id := range ids {
		a, ok := r.Lookup(id)
		if !ok {
			r.logger.Error("Cannot preload unknown asset", zap.String("id", id))
			errs = append(errs, fmt.Errorf("%w: %s", ErrNotFound, id))
			continue
		}
		if a.IsLoaded {
			continue
		}
		if err := r.Load(ctx, id, a.SourcePath, a.Category, a.Options); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discovered returns the ids of records without a payload, sorted
func (r *Registry) Discovered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, a := range r.assets {
		if !a.IsLoaded {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
