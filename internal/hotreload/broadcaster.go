package hotreload

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/go-asset-reload/internal/asset"
)

// ReloadEvent reports the outcome of one applied reload
type ReloadEvent struct {
	Category asset.Category
	ID       string
	Path     string
	Err      error
	Duration time.Duration
}

func (e ReloadEvent) Succeeded() bool { return e.Err == nil }

// Listener receives reload events on the frame loop goroutine
type Listener func(ctx context.Context, event ReloadEvent) error

// Broadcaster fans reload events out to named listeners
type Broadcaster struct {
	listeners map[string]Listener
	mu        sync.RWMutex
	logger    *zap.Logger
}

func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		listeners: make(map[string]Listener),
		logger:    logger,
	}
}

// AddListener adds a listener with a unique name
func (b *Broadcaster) AddListener(name string, listener Listener) error {
	if listener == nil {
		return fmt.Errorf("listener %s is nil", name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.listeners[name]; exists {
		return fmt.Errorf("listener %s already exists", name)
	}

	b.listeners[name] = listener
	b.logger.Debug("Added reload listener", zap.String("name", name))
	return nil
}

func (b *Broadcaster) RemoveListener(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.listeners, name)
	b.logger.Debug("Removed reload listener", zap.String("name", name))
}

// Broadcast calls every listener in name order on the calling goroutine.
// A failing or panicking listener does not stop the others.
func (b *Broadcaster) Broadcast(ctx context.Context, event ReloadEvent) error {
	b.mu.RLock()
	names := make([]string, 0, len(b.listeners))
	for name := range b.listeners {
		names = append(names, name)
	}
	slices.Sort(names)
	listeners := make([]Listener, len(names))
	for i, name := range names {
		listeners[i] = b.listeners[name]
	}
	b.mu.RUnlock()

	var errs []error
	for i, listener := range listeners {
		if err := b.deliver(ctx, names[i], listener, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Broadcaster) deliver(ctx context.Context, name string, listener Listener, event ReloadEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener %s panicked: %v", name, r)
		}
	}()
	if err := listener(ctx, event); err != nil {
		return fmt.Errorf("listener %s failed: %w", name, err)
	}
	return nil
}

// Close removes all listeners
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.listeners)
	b.logger.Debug("Reload broadcaster closed")
}

func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

func (b *Broadcaster) HasListener(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.listeners[name]
	return exists
}
