package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newRunCommand(load configLoader) *cobra.Command {
	var (
		sceneName string
		duration  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load assets and run the frame loop with hot reload",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			return a.run(ctx, sceneName)
		},
	}

	cmd.Flags().StringVar(&sceneName, "scene", "", "scene to activate (default: first scene by name)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (default: until interrupted)")
	return cmd
}

// run drives the frame loop, and the diagnostics server when metrics are on, until ctx ends
func (a *app) run(ctx context.Context, sceneName string) error {
	a.loadAssets(ctx)
	if err := a.activate(sceneName); err != nil {
		return err
	}
	if err := a.startHotReload(); err != nil {
		a.logger.Warn("Some assets could not be watched", zap.Error(err))
	}

	loop := a.loop()
	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Observability.Metrics.Enabled {
		srv, err := a.diagnostics(Version)
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Start(ctx) })
	}
	g.Go(func() error { return loop.Run(ctx) })

	a.logger.Info("Host running",
		zap.String("scene", a.director.ActiveScene()),
		zap.Int("assets", a.registry.AssetCount()),
		zap.Int("target_fps", a.cfg.Engine.TargetFPS),
	)
	err := g.Wait()
	a.logger.Info("Host stopped", zap.Uint64("frames", loop.Frames()))
	return err
}
