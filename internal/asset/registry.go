package asset

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/leslieo2/go-asset-reload/internal/constants"
	"github.com/leslieo2/go-asset-reload/internal/decode"
	"github.com/leslieo2/go-asset-reload/internal/observability"
	"github.com/leslieo2/go-asset-reload/internal/scene"
)

// Registry owns asset metadata and the decoded payload of every loaded asset
type Registry struct {
	mu          sync.RWMutex
	initialized bool
	assets      map[string]*Asset
	textures    map[string]*decode.Texture
	sounds      map[string]*decode.Sound
	scenes      map[string]*scene.Definition
	fonts       map[string]*decode.Font
	callback    LoadCallback

	decoders     decode.Decoders
	policy       LoadPolicy
	root         string
	autoDiscover bool

	logger  *zap.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// Option configures a Registry
type Option func(*Registry)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithTracer(t *observability.Tracer) Option {
	return func(r *Registry) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithDecoders replaces the default decoders; nil members keep their defaults
func WithDecoders(d decode.Decoders) Option {
	return func(r *Registry) {
		if d.Texture != nil {
			r.decoders.Texture = d.Texture
		}
		if d.Sound != nil {
			r.decoders.Sound = d.Sound
		}
		if d.Font != nil {
			r.decoders.Font = d.Font
		}
	}
}

func WithLoadPolicy(p LoadPolicy) Option {
	return func(r *Registry) { r.policy = p }
}

// WithResourcesRoot sets the directory Initialize discovers assets under when autoDiscover is set
func WithResourcesRoot(root string, autoDiscover bool) Option {
	return func(r *Registry) {
		r.root = root
		r.autoDiscover = autoDiscover
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		assets:   make(map[string]*Asset),
		textures: make(map[string]*decode.Texture),
		sounds:   make(map[string]*decode.Sound),
		scenes:   make(map[string]*scene.Definition),
		fonts:    make(map[string]*decode.Font),
		decoders: decode.DefaultDecoders(constants.DefaultFontSize),
		logger:   zap.NewNop(),
		tracer:   observability.NewNopTracer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize makes the registry usable and runs auto-discovery when configured
func (r *Registry) Initialize() error {
	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		return nil
	}
	r.initialized = true
	r.mu.Unlock()

	r.logger.Info("Asset registry initialized", zap.String("root", r.root), zap.String("policy", r.policy.String()))

	if r.autoDiscover && r.root != "" {
		if _, err := r.AutoDiscover(); err != nil {
			r.logger.Warn("Auto-discovery failed", zap.String("root", r.root), zap.Error(err))
		}
	}
	return nil
}

// Shutdown force-unloads every asset and drops all metadata
func (r *Registry) Shutdown() {
	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return
	}
	ids := make([]string, 0, len(r.assets))
	for id, a := range r.assets {
		if a.IsLoaded {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		r.removeLocked(id)
	}
	r.assets = make(map[string]*Asset)
	r.initialized = false
	r.mu.Unlock()

	r.refreshGauges()
	r.logger.Info("Asset registry shut down", zap.Int("unloaded", len(ids)))
}

func (r *Registry) IsInitialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

// SetLoadCallback installs cb; it runs outside the registry lock
func (r *Registry) SetLoadCallback(cb LoadCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = cb
}

// Policy returns the configured load policy
func (r *Registry) Policy() LoadPolicy {
	return r.policy
}

// Root returns the resources root
func (r *Registry) Root() string {
	return r.root
}

func (r *Registry) notify(id string, c Category, ok bool) {
	r.mu.RLock()
	cb := r.callback
	r.mu.RUnlock()
	if cb != nil {
		cb(id, c, ok)
	}
}

// Load decodes path into the store for category under id.
// A repeated load of a loaded id is governed by the load policy.
func (r *Registry) Load(ctx context.Context, id, path string, category Category, opts LoadOptions) (err error) {
	_, span := r.tracer.StartSpan(ctx, "asset.load",
		attribute.String("asset.id", id),
		attribute.String("asset.category", category.String()),
		attribute.String("asset.path", path))
	defer func() { observability.EndSpan(span, err) }()

	if id == "" {
		r.logger.Error("Cannot load asset with empty id", zap.String("path", path))
		return ErrInvalidID
	}

	r.mu.RLock()
	initialized := r.initialized
	existing, exists := r.assets[id]
	var prev Asset
	if exists {
		prev = *existing
	}
	r.mu.RUnlock()

	if !initialized {
		r.logger.Error("Asset registry not initialized", zap.String("id", id))
		return ErrNotInitialized
	}

	if exists && prev.IsLoaded {
		if prev.Category != category {
			r.logger.Error("Asset already loaded under another category",
				zap.String("id", id),
				zap.String("loaded", prev.Category.String()),
				zap.String("requested", category.String()))
			return fmt.Errorf("%w: %s is a %s", ErrCategoryConflict, id, prev.Category)
		}
		if r.policy == LoadPolicyKeep {
			r.logger.Debug("Asset already loaded", zap.String("id", id))
			return nil
		}
	}

	return r.decodeAndStore(id, path, category, opts)
}

// decodeAndStore decodes outside the lock and swaps the payload in on success.
// Nothing is mutated on failure.
func (r *Registry) decodeAndStore(id, path string, category Category, opts LoadOptions) error {
	info, err := os.Stat(path)
	if err != nil {
		r.logger.Error("Asset file not found", zap.String("id", id), zap.String("path", path), zap.Error(err))
		r.metrics.RecordLoad(category.String(), false, 0)
		return fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}

	start := time.Now()
	payload, err := r.decode(category, path, opts)
	elapsed := time.Since(start)
	if err != nil {
		r.logger.Error("Failed to decode asset",
			zap.String("id", id),
			zap.String("category", category.String()),
			zap.String("path", path),
			zap.Error(err))
		r.metrics.RecordLoad(category.String(), false, elapsed)
		r.notify(id, category, false)
		return fmt.Errorf("%w: %s: %w", ErrDecode, id, err)
	}

	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		releasePayload(payload)
		return ErrNotInitialized
	}
	if old, ok := r.assets[id]; ok && old.IsLoaded {
		r.removePayloadLocked(id, old.Category)
	}
	r.storePayloadLocked(id, category, payload)
	r.assets[id] = &Asset{
		ID:         id,
		Category:   category,
		SourcePath: path,
		ByteSize:   info.Size(),
		IsLoaded:   true,
		LoadID:     uuid.NewString(),
		LoadedAt:   time.Now(),
		Options:    opts,
	}
	r.mu.Unlock()

	r.metrics.RecordLoad(category.String(), true, elapsed)
	r.refreshGauges()
	r.logger.Info("Asset loaded",
		zap.String("id", id),
		zap.String("category", category.String()),
		zap.String("path", path),
		zap.Int64("bytes", info.Size()),
		zap.Duration("elapsed", elapsed))
	r.notify(id, category, true)
	return nil
}

func (r *Registry) decode(category Category, path string, opts LoadOptions) (any, error) {
	switch category {
	case CategoryTexture:
		return r.decoders.Texture.DecodeTexture(path, decode.TextureOptions{Pixelated: opts.Pixelated, MipMaps: opts.MipMaps})
	case CategoryAudio:
		return r.decoders.Sound.DecodeSound(path)
	case CategoryScene:
		return scene.ParseFile(path)
	case CategoryFont:
		return r.decoders.Font.DecodeFont(path)
	}
	return nil, fmt.Errorf("unknown category %s", category)
}

func (r *Registry) storePayloadLocked(id string, category Category, payload any) {
	switch category {
	case CategoryTexture:
		r.textures[id] = payload.(*decode.Texture)
	case CategoryAudio:
		r.sounds[id] = payload.(*decode.Sound)
	case CategoryScene:
		r.scenes[id] = payload.(*scene.Definition)
	case CategoryFont:
		r.fonts[id] = payload.(*decode.Font)
	}
}

func (r *Registry) removePayloadLocked(id string, category Category) {
	switch category {
	case CategoryTexture:
		delete(r.textures, id)
	case CategoryAudio:
		delete(r.sounds, id)
	case CategoryScene:
		delete(r.scenes, id)
	case CategoryFont:
		if f, ok := r.fonts[id]; ok {
			_ = f.Close()
		}
		delete(r.fonts, id)
	}
}

func releasePayload(payload any) {
	if f, ok := payload.(*decode.Font); ok {
		_ = f.Close()
	}
}

// removeLocked drops both the payload and the metadata of id
func (r *Registry) removeLocked(id string) (Asset, bool) {
	a, ok := r.assets[id]
	if !ok {
		return Asset{}, false
	}
	if a.IsLoaded {
		r.removePayloadLocked(id, a.Category)
	}
	delete(r.assets, id)
	return *a, true
}

func (r *Registry) LoadTexture(ctx context.Context, id, path string, opts LoadOptions) error {
	return r.Load(ctx, id, path, CategoryTexture, opts)
}

func (r *Registry) LoadAudio(ctx context.Context, id, path string) error {
	return r.Load(ctx, id, path, CategoryAudio, LoadOptions{})
}

func (r *Registry) LoadScene(ctx context.Context, id, path string) error {
	return r.Load(ctx, id, path, CategoryScene, LoadOptions{})
}

func (r *Registry) LoadFont(ctx context.Context, id, path string) error {
	return r.Load(ctx, id, path, CategoryFont, LoadOptions{})
}

// Unload drops the payload and metadata of id. Unknown ids are a no-op.
func (r *Registry) Unload(id string) error {
	return r.unload(id, nil)
}

func (r *Registry) unload(id string, want *Category) error {
	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return ErrNotInitialized
	}
	if a, ok := r.assets[id]; ok && want != nil && a.Category != *want {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s is a %s", ErrCategoryConflict, id, a.Category)
	}
	removed, ok := r.removeLocked(id)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if removed.IsLoaded {
		r.metrics.RecordUnload(removed.Category.String())
		r.refreshGauges()
	}
	r.logger.Debug("Asset unloaded", zap.String("id", id), zap.String("category", removed.Category.String()))
	return nil
}

func (r *Registry) UnloadTexture(id string) error { c := CategoryTexture; return r.unload(id, &c) }
func (r *Registry) UnloadAudio(id string) error   { c := CategoryAudio; return r.unload(id, &c) }
func (r *Registry) UnloadScene(id string) error   { c := CategoryScene; return r.unload(id, &c) }
func (r *Registry) UnloadFont(id string) error    { c := CategoryFont; return r.unload(id, &c) }

// UnloadAll drops every record
func (r *Registry) UnloadAll() error {
	return r.unloadWhere(func(*Asset) bool { return true })
}

// UnloadByCategory drops every record of category c
func (r *Registry) UnloadByCategory(c Category) error {
	return r.unloadWhere(func(a *Asset) bool { return a.Category == c })
}

func (r *Registry) unloadWhere(match func(*Asset) bool) error {
	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return ErrNotInitialized
	}
	var removed []Asset
	for id, a := range r.assets {
		if match(a) {
			if got, ok := r.removeLocked(id); ok {
				removed = append(removed, got)
			}
		}
	}
	r.mu.Unlock()

	for _, a := range removed {
		if a.IsLoaded {
			r.metrics.RecordUnload(a.Category.String())
		}
	}
	r.refreshGauges()
	r.logger.Debug("Assets unloaded", zap.Int("count", len(removed)))
	return nil
}

// Reload unloads id and loads it again from the same path with the same options
func (r *Registry) Reload(ctx context.Context, id string) error {
	a, ok := r.Lookup(id)
	if !ok {
		r.logger.Error("Cannot reload unknown asset", zap.String("id", id))
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := r.Unload(id); err != nil {
		return err
	}
	return r.Load(ctx, id, a.SourcePath, a.Category, a.Options)
}

// Refresh decodes the recorded source of id again and swaps the payload only on success.
// A failed refresh leaves the last good payload in place.
func (r *Registry) Refresh(ctx context.Context, id string) (err error) {
	_, span := r.tracer.StartSpan(ctx, "asset.refresh", attribute.String("asset.id", id))
	defer func() { observability.EndSpan(span, err) }()

	r.mu.RLock()
	initialized := r.initialized
	a, ok := r.assets[id]
	var prev Asset
	if ok {
		prev = *a
	}
	r.mu.RUnlock()

	if !initialized {
		return ErrNotInitialized
	}
	if !ok {
		r.logger.Error("Cannot refresh unknown asset", zap.String("id", id))
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.decodeAndStore(id, prev.SourcePath, prev.Category, prev.Options)
}

// Get returns the payload of id; the value is only valid until id is unloaded or reloaded
func (r *Registry) Get(id string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok || !a.IsLoaded {
		return nil, false
	}
	switch a.Category {
	case CategoryTexture:
		return r.textures[id], true
	case CategoryAudio:
		return r.sounds[id], true
	case CategoryScene:
		return r.scenes[id], true
	case CategoryFont:
		return r.fonts[id], true
	}
	return nil, false
}

func (r *Registry) Texture(id string) (*decode.Texture, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.textures[id]
	return t, ok
}

func (r *Registry) Sound(id string) (*decode.Sound, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sounds[id]
	return s, ok
}

// Scene returns the cached definition; callers must not mutate it
func (r *Registry) Scene(id string) (*scene.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenes[id]
	return s, ok
}

func (r *Registry) Font(id string) (*decode.Font, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fonts[id]
	return f, ok
}

func (r *Registry) IsLoaded(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	return ok && a.IsLoaded
}

// Lookup returns a copy of the metadata record for id
func (r *Registry) Lookup(id string) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok {
		return Asset{}, false
	}
	return *a, true
}

func (r *Registry) refreshGauges() {
	if r.metrics == nil {
		return
	}
	counts := make(map[Category]int, len(categoryNames))
	r.mu.RLock()
	for _, a := range r.assets {
		if a.IsLoaded {
			counts[a.Category]++
		}
	}
	r.mu.RUnlock()
	for _, c := range Categories() {
		r.metrics.SetLoadedAssets(c.String(), counts[c])
	}
}

func sortedIDs(assets []Asset) []string {
	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
	}
	slices.Sort(ids)
	return ids
}
