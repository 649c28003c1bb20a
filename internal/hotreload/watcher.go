package hotreload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/leslieo2/go-asset-reload/internal/asset"
	"github.com/leslieo2/go-asset-reload/internal/constants"
	"github.com/leslieo2/go-asset-reload/internal/observability"
)

var (
	// ErrPathNotFound is returned when a watch is requested for a path that does not exist
	ErrPathNotFound = errors.New("watch path not found")
	// ErrNilCallback is returned when a watch is requested without a change callback
	ErrNilCallback = errors.New("change callback is nil")
)

// ChangeFunc is invoked on the watcher goroutine when a watched file's modification time advances
type ChangeFunc func(path string) error

// WatchedFile describes one watched path
type WatchedFile struct {
	Path         string         `json:"path"`
	Category     asset.Category `json:"category"`
	LastModified time.Time      `json:"last_modified"`
}

type watchEntry struct {
	path         string
	category     asset.Category
	lastModified time.Time
	onChange     ChangeFunc
	missingLog   *rate.Sometimes
}

// Watcher polls the modification time of a set of files and reports advances.
// One background goroutine runs while the watcher is enabled.
type Watcher struct {
	mu       sync.RWMutex
	files    map[string]*watchEntry
	interval time.Duration
	settle   time.Duration

	// pollMu serializes sweeps from the worker and CheckNow
	pollMu sync.Mutex

	stateMu sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup

	logger  *zap.Logger
	metrics *observability.Metrics
}

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithWatcherMetrics(m *observability.Metrics) WatcherOption {
	return func(w *Watcher) { w.metrics = m }
}

// WithInterval sets the delay between two sweeps; non-positive values are ignored
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithSettleDelay waits d after a change is seen before the callback runs
func WithSettleDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.settle = d
		}
	}
}

// NewWatcher creates a stopped watcher with no files
func NewWatcher(opts ...WatcherOption) *Watcher {
	w := &Watcher{
		files:    make(map[string]*watchEntry),
		interval: constants.DefaultPollInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch starts tracking path. The current modification time becomes the baseline,
// so an unmodified file never fires. Watching an already watched path replaces its entry.
func (w *Watcher) Watch(path string, category asset.Category, onChange ChangeFunc) error {
	if onChange == nil {
		return ErrNilCallback
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		w.logger.Warn("Cannot watch missing file", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	if info.IsDir() {
		w.logger.Warn("Cannot watch a directory", zap.String("path", path))
		return fmt.Errorf("%w: %s is a directory", ErrPathNotFound, path)
	}

	w.mu.Lock()
	w.files[path] = &watchEntry{
		path:         path,
		category:     category,
		lastModified: info.ModTime(),
		onChange:     onChange,
		missingLog:   &rate.Sometimes{Interval: constants.MissingFileLogInterval},
	}
	count := len(w.files)
	w.mu.Unlock()

	w.metrics.SetWatchedFiles(count)
	w.logger.Debug("Watching file", zap.String("path", path), zap.Stringer("category", category))
	return nil
}

// WatchDetected watches path with the category implied by its extension
func (w *Watcher) WatchDetected(path string, onChange ChangeFunc) error {
	return w.Watch(path, asset.CategoryForPath(path), onChange)
}

// Unwatch stops tracking path; unknown paths are ignored
func (w *Watcher) Unwatch(path string) {
	path = filepath.Clean(path)
	w.mu.Lock()
	_, ok := w.files[path]
	delete(w.files, path)
	count := len(w.files)
	w.mu.Unlock()

	if ok {
		w.metrics.SetWatchedFiles(count)
		w.logger.Debug("Stopped watching file", zap.String("path", path))
	}
}

// UnwatchPrefix removes every watched path located under dir
func (w *Watcher) UnwatchPrefix(dir string) int {
	prefix := filepath.Clean(dir) + string(filepath.Separator)
	w.mu.Lock()
	removed := 0
	for path := range w.files {
		if strings.HasPrefix(path, prefix) {
			delete(w.files, path)
			removed++
		}
	}
	count := len(w.files)
	w.mu.Unlock()

	w.metrics.SetWatchedFiles(count)
	return removed
}

func (w *Watcher) ClearAll() {
	w.mu.Lock()
	clear(w.files)
	w.mu.Unlock()
	w.metrics.SetWatchedFiles(0)
}

// SetEnabled starts or stops the polling goroutine. Disabling blocks until
// the goroutine has returned; an in-flight callback is allowed to finish.
func (w *Watcher) SetEnabled(enabled bool) {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	if enabled {
		if w.stop != nil {
			return
		}
		w.stop = make(chan struct{})
		w.wg.Add(1)
		go w.run(w.stop)
		w.logger.Info("File watcher started", zap.Duration("interval", w.Interval()))
		return
	}

	if w.stop == nil {
		return
	}
	close(w.stop)
	w.wg.Wait()
	w.stop = nil
	w.logger.Info("File watcher stopped")
}

func (w *Watcher) IsEnabled() bool {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.stop != nil
}

// Shutdown stops the goroutine and forgets every watch
func (w *Watcher) Shutdown() {
	w.SetEnabled(false)
	w.ClearAll()
}

// SetInterval changes the poll interval; it takes effect after the current sleep
func (w *Watcher) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	w.mu.Lock()
	w.interval = d
	w.mu.Unlock()
}

func (w *Watcher) Interval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.interval
}

// WatchedFiles returns the watch set sorted by path
func (w *Watcher) WatchedFiles() []WatchedFile {
	w.mu.RLock()
	files := make([]WatchedFile, 0, len(w.files))
	for _, e := range w.files {
		files = append(files, WatchedFile{Path: e.path, Category: e.category, LastModified: e.lastModified})
	}
	w.mu.RUnlock()

	slices.SortFunc(files, func(a, b WatchedFile) int { return strings.Compare(a.Path, b.Path) })
	return files
}

func (w *Watcher) WatchedFileCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.files)
}

func (w *Watcher) IsWatching(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.files[filepath.Clean(path)]
	return ok
}

// CheckNow runs one sweep on the calling goroutine and returns the number of changes seen
func (w *Watcher) CheckNow() int {
	return w.poll(nil)
}

func (w *Watcher) run(stop <-chan struct{}) {
	defer w.wg.Done()

	timer := time.NewTimer(w.Interval())
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		w.poll(stop)
		timer.Reset(w.Interval())
	}
}

type sweepItem struct {
	entry        *watchEntry
	lastModified time.Time
}

func (w *Watcher) snapshot() []sweepItem {
	w.mu.RLock()
	defer w.mu.RUnlock()
	items := make([]sweepItem, 0, len(w.files))
	for _, e := range w.files {
		items = append(items, sweepItem{entry: e, lastModified: e.lastModified})
	}
	slices.SortFunc(items, func(a, b sweepItem) int { return strings.Compare(a.entry.path, b.entry.path) })
	return items
}

// advance records mod as the new baseline if e is still the live entry for its path
func (w *Watcher) advance(e *watchEntry, mod time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[e.path] != e || !mod.After(e.lastModified) {
		return false
	}
	e.lastModified = mod
	return true
}

func (w *Watcher) poll(stop <-chan struct{}) int {
	w.pollMu.Lock()
	defer w.pollMu.Unlock()

	w.metrics.RecordPoll()
	w.mu.RLock()
	settle := w.settle
	w.mu.RUnlock()

	changed := 0
	for _, item := range w.snapshot() {
		e := item.entry
		info, err := os.Stat(e.path)
		if err != nil {
			e.missingLog.Do(func() {
				w.logger.Warn("Watched file no longer exists", zap.String("path", e.path))
			})
			continue
		}
		mod := info.ModTime()
		if !mod.After(item.lastModified) {
			continue
		}

		if settle > 0 {
			select {
			case <-stop:
				return changed
			case <-time.After(settle):
			}
			if info, err := os.Stat(e.path); err == nil {
				mod = info.ModTime()
			}
		}
		if !w.advance(e, mod) {
			continue
		}

		changed++
		w.metrics.RecordChange()
		w.logger.Debug("File change detected", zap.String("path", e.path), zap.Time("modified", mod))
		w.invoke(e)
	}
	return changed
}

func (w *Watcher) invoke(e *watchEntry) {
	defer func() {
		if r := recover(); r != nil {
			w.metrics.RecordCallbackPanic()
			w.logger.Error("Change callback panicked", zap.String("path", e.path), zap.Any("panic", r))
		}
	}()

	if err := e.onChange(e.path); err != nil {
		w.logger.Error("Change callback failed", zap.String("path", e.path), zap.Error(err))
	}
}
