// Package engine runs the host frame loop that drives reload application and simulation.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/leslieo2/go-asset-reload/internal/constants"
	"github.com/leslieo2/go-asset-reload/internal/observability"
)

// ReloadSource applies queued hot reloads; it runs first in every frame
type ReloadSource interface {
	ProcessPending(ctx context.Context) int
}

// Updater advances a subsystem by one frame
type Updater interface {
	Update(dt time.Duration)
}

// Hook runs after the built-in frame steps
type Hook func(ctx context.Context, frame uint64, dt time.Duration) error

// Frame describes one completed frame
type Frame struct {
	Number   uint64
	Delta    time.Duration
	Reloads  int
	Duration time.Duration
}

// Loop calls its systems once per frame at a target rate
type Loop struct {
	reloads  ReloadSource
	updaters []Updater
	hooks    []Hook
	limiter  *rate.Limiter

	mu    sync.Mutex
	frame uint64
	last  time.Time

	logger  *zap.Logger
	metrics *observability.Metrics
}

// Option configures a Loop
type Option func(*Loop)

func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// WithReloads sets the reload source drained at the start of every frame
func WithReloads(r ReloadSource) Option {
	return func(l *Loop) { l.reloads = r }
}

// WithUpdaters appends subsystems updated after reloads, in the given order
func WithUpdaters(u ...Updater) Option {
	return func(l *Loop) { l.updaters = append(l.updaters, u...) }
}

func WithHooks(h ...Hook) Option {
	return func(l *Loop) { l.hooks = append(l.hooks, h...) }
}

// NewLoop creates a loop running at targetFPS frames per second
func NewLoop(targetFPS int, opts ...Option) *Loop {
	if targetFPS <= 0 {
		targetFPS = constants.DefaultTargetFPS
	}
	l := &Loop{
		limiter: rate.NewLimiter(rate.Limit(targetFPS), 1),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run steps frames until ctx is cancelled or a hook fails
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("Frame loop started", zap.Float64("target_fps", float64(l.limiter.Limit())))
	defer l.logger.Info("Frame loop stopped", zap.Uint64("frames", l.Frames()))

	for {
		// Wait also fails when the next frame would start past ctx's deadline
		if err := l.limiter.Wait(ctx); err != nil {
			<-ctx.Done()
			return nil
		}

		now := time.Now()
		l.mu.Lock()
		dt := time.Duration(0)
		if !l.last.IsZero() {
			dt = now.Sub(l.last)
		}
		l.last = now
		l.mu.Unlock()

		if _, err := l.Step(ctx, dt); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Step runs a single frame: reloads first, then updaters in order, then hooks
func (l *Loop) Step(ctx context.Context, dt time.Duration) (Frame, error) {
	start := time.Now()

	l.mu.Lock()
	l.frame++
	f := Frame{Number: l.frame, Delta: dt}
	l.mu.Unlock()

	if l.reloads != nil {
		f.Reloads = l.reloads.ProcessPending(ctx)
	}
	for _, u := range l.updaters {
		u.Update(dt)
	}
	for _, h := range l.hooks {
		if err := h(ctx, f.Number, dt); err != nil {
			l.logger.Error("Frame hook failed", zap.Uint64("frame", f.Number), zap.Error(err))
			return f, err
		}
	}

	f.Duration = time.Since(start)
	l.metrics.RecordFrame(f.Duration)
	if f.Reloads > 0 {
		l.logger.Debug("Applied hot reloads", zap.Uint64("frame", f.Number), zap.Int("reloads", f.Reloads))
	}
	return f, nil
}

// Frames returns the number of frames stepped so far
func (l *Loop) Frames() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frame
}
