// Package hotreload watches asset source files and reapplies them while the host runs.
//
// The watcher goroutine never touches game state. It resolves a changed path to a
// registered asset and queues a request; the frame loop drains the queue with
// ProcessPending before any other per-frame work.
package hotreload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/go-asset-reload/internal/asset"
	"github.com/leslieo2/go-asset-reload/internal/config"
	"github.com/leslieo2/go-asset-reload/internal/observability"
)

var (
	ErrMissingDependency = errors.New("hot reload dependency missing")
	ErrNotRegistered     = errors.New("path is not registered for hot reload")
	ErrNotTracked        = errors.New("asset is not tracked by the registry")
	ErrParse             = errors.New("changed definition could not be parsed")
	ErrQueueFull         = errors.New("reload queue full")
)

// Status summarizes the hot reload system
type Status struct {
	Enabled      bool          `json:"enabled"`
	Interval     time.Duration `json:"interval"`
	WatchedFiles int           `json:"watched_files"`
	Scenes       int           `json:"scenes"`
	Audio        int           `json:"audio"`
	Textures     int           `json:"textures"`
	Fonts        int           `json:"fonts"`
	Pending      int           `json:"pending"`
	Listeners    int           `json:"listeners"`
}

// Manager maps watched source files to logical asset ids and applies their reloads
type Manager struct {
	mu            sync.RWMutex
	enabled       bool
	registrations map[asset.Category]map[string]string // path -> id
	directories   map[string][]Request

	watcher     *Watcher
	queue       *Queue
	coordinator *Coordinator
	broadcaster *Broadcaster
	maxPerFrame int

	logger  *zap.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// Option configures a Manager
type Option func(*Manager)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

func WithTracer(tracer *observability.Tracer) Option {
	return func(m *Manager) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

// NewManager creates a manager for deps. When cfg.Enabled is set the watcher starts immediately.
func NewManager(cfg config.HotReloadConfig, deps Dependencies, opts ...Option) (*Manager, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		registrations: make(map[asset.Category]map[string]string, len(asset.Categories())),
		directories:   make(map[string][]Request),
		maxPerFrame:   cfg.MaxReloadsPerFrame,
		logger:        zap.NewNop(),
		tracer:        observability.NewNopTracer(),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, c := range asset.Categories() {
		m.registrations[c] = make(map[string]string)
	}

	m.watcher = NewWatcher(
		WithWatcherLogger(m.logger.Named("watcher")),
		WithWatcherMetrics(m.metrics),
		WithInterval(cfg.PollInterval),
		WithSettleDelay(cfg.SettleDelay),
	)
	m.queue = NewQueue(cfg.QueueSize, m.logger, m.metrics)
	m.broadcaster = NewBroadcaster(m.logger)
	m.coordinator = NewCoordinator(deps, m.broadcaster, m.logger, m.metrics, m.tracer)

	if cfg.Enabled {
		m.Enable()
	}
	return m, nil
}

// Enable starts the watcher; registrations are kept across Disable/Enable
func (m *Manager) Enable() {
	m.mu.Lock()
	m.enabled = true
	m.mu.Unlock()
	m.watcher.SetEnabled(true)
	m.logger.Info("Hot reload enabled")
}

// Disable stops the watcher and blocks until its goroutine exits
func (m *Manager) Disable() {
	m.watcher.SetEnabled(false)
	m.mu.Lock()
	m.enabled = false
	m.mu.Unlock()
	m.logger.Info("Hot reload disabled")
}

func (m *Manager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

func (m *Manager) RegisterScene(name, path string) error {
	return m.register(asset.CategoryScene, name, path)
}

func (m *Manager) RegisterAudio(id, path string) error {
	return m.register(asset.CategoryAudio, id, path)
}

func (m *Manager) RegisterTexture(id, path string) error {
	return m.register(asset.CategoryTexture, id, path)
}

func (m *Manager) RegisterFont(id, path string) error {
	return m.register(asset.CategoryFont, id, path)
}

func (m *Manager) UnregisterScene(name string) { m.unregister(asset.CategoryScene, name) }
func (m *Manager) UnregisterAudio(id string)   { m.unregister(asset.CategoryAudio, id) }
func (m *Manager) UnregisterTexture(id string) { m.unregister(asset.CategoryTexture, id) }
func (m *Manager) UnregisterFont(id string)    { m.unregister(asset.CategoryFont, id) }

// register is a no-op while hot reload is disabled
func (m *Manager) register(c asset.Category, id, path string) error {
	if !m.IsEnabled() {
		m.logger.Debug("Hot reload disabled, ignoring registration",
			zap.Stringer("category", c), zap.String("id", id))
		return nil
	}
	if id == "" {
		return fmt.Errorf("%w: empty id", asset.ErrInvalidID)
	}
	path = filepath.Clean(path)

	if err := m.watcher.Watch(path, c, m.onChange(c)); err != nil {
		m.logger.Error("Failed to register asset for hot reload",
			zap.Stringer("category", c), zap.String("id", id), zap.String("path", path), zap.Error(err))
		return err
	}

	m.mu.Lock()
	byPath := m.registrations[c]
	var stale []string
	for p, existing := range byPath {
		if existing == id && p != path {
			stale = append(stale, p)
		}
	}
	for _, p := range stale {
		delete(byPath, p)
	}
	byPath[path] = id
	m.mu.Unlock()

	for _, p := range stale {
		m.watcher.Unwatch(p)
	}
	m.logger.Info("Registered for hot reload",
		zap.Stringer("category", c), zap.String("id", id), zap.String("path", path))
	return nil
}

// unregister is a no-op while hot reload is disabled
func (m *Manager) unregister(c asset.Category, id string) {
	if !m.IsEnabled() {
		return
	}

	m.mu.Lock()
	var paths []string
	for p, existing := range m.registrations[c] {
		if existing == id {
			paths = append(paths, p)
		}
	}
	for _, p := range paths {
		delete(m.registrations[c], p)
	}
	m.mu.Unlock()

	for _, p := range paths {
		m.watcher.Unwatch(p)
	}
	if len(paths) > 0 {
		m.logger.Info("Unregistered from hot reload", zap.Stringer("category", c), zap.String("id", id))
	}
}

// onChange runs on the watcher goroutine and only queues work
func (m *Manager) onChange(c asset.Category) ChangeFunc {
	return func(path string) error {
		m.mu.RLock()
		id, ok := m.registrations[c][path]
		m.mu.RUnlock()
		if !ok {
			m.logger.Debug("Change on unregistered path", zap.String("path", path))
			return nil
		}
		if !m.queue.Push(Request{Category: c, ID: id, Path: path}) {
			return fmt.Errorf("%w: %s", ErrQueueFull, id)
		}
		return nil
	}
}

// Lookup resolves a registered path to its id
func (m *Manager) Lookup(c asset.Category, path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.registrations[c][filepath.Clean(path)]
	return id, ok
}

// WatchDirectory registers every recognized asset file under dir, using file stems as ids
func (m *Manager) WatchDirectory(dir string, recursive bool) (int, error) {
	if !m.IsEnabled() {
		return 0, nil
	}
	dir = filepath.Clean(dir)

	var (
		registered []Request
		errs       []error
	)
	for _, c := range asset.Categories() {
		files, err := asset.FindFiles(dir, c, recursive)
		if err != nil {
			return 0, err
		}
		for _, path := range files {
			id := asset.StemID(path)
			if err := m.register(c, id, path); err != nil {
				errs = append(errs, err)
				continue
			}
			registered = append(registered, Request{Category: c, ID: id, Path: filepath.Clean(path)})
		}
	}

	m.mu.Lock()
	m.directories[dir] = append(m.directories[dir], registered...)
	m.mu.Unlock()
	return len(registered), errors.Join(errs...)
}

// UnwatchDirectory drops the registrations made by WatchDirectory for dir
func (m *Manager) UnwatchDirectory(dir string) int {
	if !m.IsEnabled() {
		return 0
	}
	dir = filepath.Clean(dir)
	m.mu.Lock()
	entries := m.directories[dir]
	delete(m.directories, dir)
	m.mu.Unlock()

	for _, r := range entries {
		m.unregister(r.Category, r.ID)
	}
	return len(entries)
}

// ProcessPending applies queued reloads on the calling goroutine and returns how many ran.
// Requests left unapplied by a cancelled ctx stay queued.
func (m *Manager) ProcessPending(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	batch := m.queue.Drain(m.maxPerFrame)
	for i, req := range batch {
		if ctx.Err() != nil {
			m.queue.Requeue(batch[i:])
			return i
		}
		m.coordinator.Apply(ctx, req)
	}
	return len(batch)
}

// Pending returns the number of queued reloads
func (m *Manager) Pending() int {
	return m.queue.Len()
}

// CheckNow polls every watched file immediately
func (m *Manager) CheckNow() int {
	return m.watcher.CheckNow()
}

func (m *Manager) ReloadScene(path string) error {
	return m.requestReload(asset.CategoryScene, path)
}

func (m *Manager) ReloadAudio(path string) error {
	return m.requestReload(asset.CategoryAudio, path)
}

func (m *Manager) ReloadTexture(path string) error {
	return m.requestReload(asset.CategoryTexture, path)
}

func (m *Manager) ReloadFont(path string) error {
	return m.requestReload(asset.CategoryFont, path)
}

// requestReload queues a reload for a registered path regardless of its modification time
func (m *Manager) requestReload(c asset.Category, path string) error {
	path = filepath.Clean(path)
	id, ok := m.Lookup(c, path)
	if !ok {
		m.logger.Warn("Manual reload of unregistered path", zap.Stringer("category", c), zap.String("path", path))
		return fmt.Errorf("%w: %s", ErrNotRegistered, path)
	}
	if !m.queue.Push(Request{Category: c, ID: id, Path: path}) {
		return fmt.Errorf("%w: %s", ErrQueueFull, id)
	}
	return nil
}

// ReloadAll queues every registration
func (m *Manager) ReloadAll() error {
	var errs []error
	for _, r := range m.registered() {
		if !m.queue.Push(r) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrQueueFull, r.ID))
		}
	}
	return errors.Join(errs...)
}

// registered returns all registrations ordered by category then path
func (m *Manager) registered() []Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Request
	for _, c := range asset.Categories() {
		paths := make([]string, 0, len(m.registrations[c]))
		for p := range m.registrations[c] {
			paths = append(paths, p)
		}
		slices.Sort(paths)
		for _, p := range paths {
			out = append(out, Request{Category: c, ID: m.registrations[c][p], Path: p})
		}
	}
	return out
}

func (m *Manager) AddListener(name string, listener Listener) error {
	return m.broadcaster.AddListener(name, listener)
}

func (m *Manager) RemoveListener(name string) {
	m.broadcaster.RemoveListener(name)
}

func (m *Manager) SetWatchInterval(d time.Duration) {
	m.watcher.SetInterval(d)
}

func (m *Manager) WatchedFiles() []WatchedFile {
	return m.watcher.WatchedFiles()
}

func (m *Manager) WatchedFileCount() int {
	return m.watcher.WatchedFileCount()
}

// Status reports and logs the current state
func (m *Manager) Status() Status {
	m.mu.RLock()
	s := Status{
		Enabled:  m.enabled,
		Scenes:   len(m.registrations[asset.CategoryScene]),
		Audio:    len(m.registrations[asset.CategoryAudio]),
		Textures: len(m.registrations[asset.CategoryTexture]),
		Fonts:    len(m.registrations[asset.CategoryFont]),
	}
	m.mu.RUnlock()

	s.Interval = m.watcher.Interval()
	s.WatchedFiles = m.watcher.WatchedFileCount()
	s.Pending = m.queue.Len()
	s.Listeners = m.broadcaster.ListenerCount()

	m.logger.Info("Hot reload status",
		zap.Bool("enabled", s.Enabled),
		zap.Duration("interval", s.Interval),
		zap.Int("watched_files", s.WatchedFiles),
		zap.Int("scenes", s.Scenes),
		zap.Int("audio", s.Audio),
		zap.Int("textures", s.Textures),
		zap.Int("fonts", s.Fonts),
		zap.Int("pending", s.Pending))
	return s
}

// Shutdown disables hot reload and forgets every watch, registration and listener
func (m *Manager) Shutdown() {
	m.Disable()
	m.watcher.Shutdown()
	m.queue.Clear()
	m.broadcaster.Close()

	m.mu.Lock()
	for _, c := range asset.Categories() {
		clear(m.registrations[c])
	}
	clear(m.directories)
	m.mu.Unlock()
	m.logger.Info("Hot reload system shut down")
}
