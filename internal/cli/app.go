package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leslieo2/go-asset-reload/internal/asset"
	"github.com/leslieo2/go-asset-reload/internal/audio"
	"github.com/leslieo2/go-asset-reload/internal/catalog"
	"github.com/leslieo2/go-asset-reload/internal/config"
	"github.com/leslieo2/go-asset-reload/internal/decode"
	"github.com/leslieo2/go-asset-reload/internal/engine"
	"github.com/leslieo2/go-asset-reload/internal/hotreload"
	"github.com/leslieo2/go-asset-reload/internal/observability"
	"github.com/leslieo2/go-asset-reload/internal/scene"
	"github.com/leslieo2/go-asset-reload/internal/server"
)

// app holds the systems of one host process
type app struct {
	cfg     *config.Config
	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	registry *asset.Registry
	director *scene.Director
	audio    *audio.System
	manager  *hotreload.Manager
	catalog  *catalog.Catalog
}

// newApp builds observability and an initialized registry; hot reload and audio are left to start
func newApp(cfg *config.Config) (*app, error) {
	logger, err := observability.NewLogger(cfg.Observability.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	metrics := observability.NewMetrics()
	if cfg.Observability.Metrics.Enabled {
		if err := metrics.Register(); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	tracer, err := observability.NewTracer(cfg.Observability.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	policy, err := asset.ParseLoadPolicy(cfg.Assets.LoadPolicy)
	if err != nil {
		return nil, err
	}
	decoders := decode.DefaultDecoders(cfg.Assets.FontSize)

	registry := asset.NewRegistry(
		asset.WithLogger(logger.Named("assets")),
		asset.WithMetrics(metrics),
		asset.WithTracer(tracer),
		asset.WithDecoders(decoders),
		asset.WithLoadPolicy(policy),
		asset.WithResourcesRoot(cfg.Assets.ResourcesRoot, cfg.Assets.AutoDiscover),
	)
	if err := registry.Initialize(); err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		registry: registry,
		director: scene.NewDirector(logger.Named("scenes")),
		audio:    audio.NewSystem(decoders.Sound, logger.Named("audio")),
	}

	if cfg.Catalog.Enabled() {
		if a.catalog, err = catalog.Open(cfg.Catalog.Path, logger.Named("catalog")); err != nil {
			a.close(context.Background())
			return nil, err
		}
	}
	return a, nil
}

// loadAssets applies the manifest, decodes every discovered asset and hands scenes and sounds to their owners.
// Individual failures are logged and do not stop the host.
func (a *app) loadAssets(ctx context.Context) {
	if a.cfg.Assets.Manifest != "" {
		if err := a.registry.LoadManifest(ctx, a.cfg.Assets.Manifest); err != nil {
			a.logger.Warn("Manifest loaded with errors", zap.Error(err))
		}
	}
	if err := a.registry.Preload(ctx); err != nil {
		a.logger.Warn("Some discovered assets failed to load", zap.Error(err))
	}

	a.audio.Initialize()
	for _, id := range a.registry.AssetsByCategory(asset.CategoryScene) {
		if def, ok := a.registry.Scene(id); ok {
			a.director.Store(id, def)
		}
	}
	for _, id := range a.registry.AssetsByCategory(asset.CategoryAudio) {
		rec, _ := a.registry.Lookup(id)
		if err := a.audio.LoadSound(id, rec.SourcePath); err != nil {
			a.logger.Warn("Failed to hand sound to audio system", zap.String("id", id), zap.Error(err))
		}
	}
}

// activate makes name the active scene, or the first scene by name when empty
func (a *app) activate(name string) error {
	if name == "" {
		names := a.director.Names()
		if len(names) == 0 {
			return nil
		}
		name = names[0]
	}
	return a.director.Activate(name)
}

// startHotReload creates the manager and registers every loaded asset with it
func (a *app) startHotReload() error {
	m, err := hotreload.NewManager(a.cfg.HotReload, hotreload.Dependencies{
		Registry: a.registry,
		Scenes:   a.director,
		Audio:    a.audio,
	},
		hotreload.WithLogger(a.logger.Named("hotreload")),
		hotreload.WithMetrics(a.metrics),
		hotreload.WithTracer(a.tracer),
	)
	if err != nil {
		return err
	}
	a.manager = m

	var errs []error
	for _, rec := range a.registry.Snapshot() {
		if !rec.IsLoaded {
			continue
		}
		var err error
		switch rec.Category {
		case asset.CategoryScene:
			err = m.RegisterScene(rec.ID, rec.SourcePath)
		case asset.CategoryAudio:
			err = m.RegisterAudio(rec.ID, rec.SourcePath)
		case asset.CategoryTexture:
			err = m.RegisterTexture(rec.ID, rec.SourcePath)
		case asset.CategoryFont:
			err = m.RegisterFont(rec.ID, rec.SourcePath)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if a.catalog != nil {
		if err := m.AddListener("catalog", a.recordReload); err != nil {
			errs = append(errs, err)
		}
	}
	m.Status()
	return errors.Join(errs...)
}

// recordReload keeps the catalog in step with successful reloads
func (a *app) recordReload(ctx context.Context, ev hotreload.ReloadEvent) error {
	if ev.Err != nil {
		return nil
	}
	rec, ok := a.registry.Lookup(ev.ID)
	if !ok {
		return nil
	}
	return a.catalog.Save(ctx, []asset.Asset{rec})
}

func (a *app) loop() *engine.Loop {
	opts := []engine.Option{
		engine.WithLogger(a.logger.Named("engine")),
		engine.WithMetrics(a.metrics),
		engine.WithUpdaters(a.director, a.audio),
	}
	if a.manager != nil {
		opts = append(opts, engine.WithReloads(a.manager))
	}
	return engine.NewLoop(a.cfg.Engine.TargetFPS, opts...)
}

func (a *app) diagnostics(version string) (*server.Server, error) {
	opts := []server.Option{
		server.WithLogger(a.logger.Named("server")),
		server.WithMetrics(a.metrics),
		server.WithTracer(a.tracer),
		server.WithVersion(version),
	}
	if a.manager != nil {
		opts = append(opts, server.WithReloads(a.manager))
	}
	return server.New(a.cfg.Server, a.registry, opts...)
}

// close releases every system in reverse start order
func (a *app) close(ctx context.Context) {
	if a.manager != nil {
		a.manager.Shutdown()
	}
	a.audio.Shutdown()
	a.director.UnloadAll()
	a.registry.Shutdown()
	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			a.logger.Warn("Failed to close catalog", zap.Error(err))
		}
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("Failed to shutdown tracer", zap.Error(err))
	}
	_ = a.logger.Sync()
}
