package hotreload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/leslieo2/go-asset-reload/internal/asset"
	"github.com/leslieo2/go-asset-reload/internal/observability"
	"github.com/leslieo2/go-asset-reload/internal/scene"
)

// AssetStore is the part of the asset registry that hot reload refreshes
type AssetStore interface {
	Lookup(id string) (asset.Asset, bool)
	Refresh(ctx context.Context, id string) error
	Scene(id string) (*scene.Definition, bool)
}

// SceneOwner owns the cached scene definitions and the active world
type SceneOwner interface {
	ActiveScene() string
	Store(name string, def *scene.Definition)
	RestartWith(name string, def *scene.Definition) error
}

// SoundReloader swaps decoded sounds in the audio subsystem
type SoundReloader interface {
	ReloadSound(id, path string) error
}

// Dependencies are the systems owning reloadable state; all are required
type Dependencies struct {
	Registry AssetStore
	Scenes   SceneOwner
	Audio    SoundReloader
}

func (d Dependencies) validate() error {
	var errs []error
	if d.Registry == nil {
		errs = append(errs, errors.New("asset registry is required"))
	}
	if d.Scenes == nil {
		errs = append(errs, errors.New("scene owner is required"))
	}
	if d.Audio == nil {
		errs = append(errs, errors.New("audio system is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrMissingDependency, errors.Join(errs...))
	}
	return nil
}

// Coordinator applies reload requests to the owning systems on the frame loop
type Coordinator struct {
	deps        Dependencies
	broadcaster *Broadcaster
	logger      *zap.Logger
	metrics     *observability.Metrics
	tracer      *observability.Tracer
}

func NewCoordinator(deps Dependencies, broadcaster *Broadcaster, logger *zap.Logger, metrics *observability.Metrics, tracer *observability.Tracer) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = observability.NewNopTracer()
	}
	return &Coordinator{
		deps:        deps,
		broadcaster: broadcaster,
		logger:      logger,
		metrics:     metrics,
		tracer:      tracer,
	}
}

// Apply performs one reload and broadcasts its outcome
func (c *Coordinator) Apply(ctx context.Context, req Request) ReloadEvent {
	ctx, span := c.tracer.StartSpan(ctx, "hotreload.apply",
		attribute.String("asset.id", req.ID),
		attribute.String("asset.category", req.Category.String()),
		attribute.String("asset.path", req.Path))
	defer span.End()

	start := time.Now()
	var err error
	switch req.Category {
	case asset.CategoryScene:
		err = c.reloadScene(ctx, req.ID, req.Path)
	case asset.CategoryAudio:
		err = c.reloadAudio(ctx, req.ID, req.Path)
	case asset.CategoryTexture, asset.CategoryFont:
		err = c.refreshRegistry(ctx, req.ID, req.Path)
	default:
		err = fmt.Errorf("unsupported category %d", req.Category)
	}

	event := ReloadEvent{
		Category: req.Category,
		ID:       req.ID,
		Path:     req.Path,
		Err:      err,
		Duration: time.Since(start),
	}
	c.metrics.RecordReload(req.Category.String(), err == nil, event.Duration)

	if err != nil {
		observability.MarkSpanFailed(span, err)
		c.logger.Error("Hot reload failed",
			zap.String("id", req.ID),
			zap.Stringer("category", req.Category),
			zap.String("path", req.Path),
			zap.Error(err))
	} else {
		c.logger.Info("Hot reload applied",
			zap.String("id", req.ID),
			zap.Stringer("category", req.Category),
			zap.Duration("duration", event.Duration))
	}

	if c.broadcaster != nil {
		if berr := c.broadcaster.Broadcast(ctx, event); berr != nil {
			c.logger.Warn("Reload listeners reported errors", zap.String("id", req.ID), zap.Error(berr))
		}
	}
	return event
}

// tracks reports whether the registry holds id with the given source path
func (c *Coordinator) tracks(id, path string) bool {
	a, ok := c.deps.Registry.Lookup(id)
	return ok && a.IsLoaded && filepath.Clean(a.SourcePath) == filepath.Clean(path)
}

// reloadScene parses path and hands the definition to the scene owner.
// A parse failure leaves every in-memory copy untouched.
func (c *Coordinator) reloadScene(ctx context.Context, id, path string) error {
	var def *scene.Definition
	if c.tracks(id, path) {
		if err := c.deps.Registry.Refresh(ctx, id); err != nil {
			return fmt.Errorf("%w: %w", ErrParse, err)
		}
		cached, ok := c.deps.Registry.Scene(id)
		if !ok {
			return fmt.Errorf("%w: scene %s vanished from registry", ErrParse, id)
		}
		def = cached.Clone()
	} else {
		parsed, err := scene.ParseFile(path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrParse, err)
		}
		def = parsed
	}

	if c.deps.Scenes.ActiveScene() == id {
		if err := c.deps.Scenes.RestartWith(id, def); err != nil {
			return fmt.Errorf("restart scene %s: %w", id, err)
		}
		c.logger.Info("Active scene rebuilt from changed definition", zap.String("scene", id))
		return nil
	}
	c.deps.Scenes.Store(id, def)
	return nil
}

func (c *Coordinator) reloadAudio(ctx context.Context, id, path string) error {
	if err := c.deps.Audio.ReloadSound(id, path); err != nil {
		return err
	}
	if c.tracks(id, path) {
		return c.deps.Registry.Refresh(ctx, id)
	}
	return nil
}

func (c *Coordinator) refreshRegistry(ctx context.Context, id, path string) error {
	if !c.tracks(id, path) {
		return fmt.Errorf("%w: %s is not loaded from %s", ErrNotTracked, id, path)
	}
	return c.deps.Registry.Refresh(ctx, id)
}
