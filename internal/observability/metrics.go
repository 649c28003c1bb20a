package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics collects asset and hot-reload instrumentation.
// All recording methods are safe on a nil *Metrics.
type Metrics struct {
	AssetLoads         *prometheus.CounterVec
	AssetLoadDuration  *prometheus.HistogramVec
	AssetUnloads       *prometheus.CounterVec
	LoadedAssets       *prometheus.GaugeVec
	WatcherPolls       prometheus.Counter
	WatcherChanges     prometheus.Counter
	WatchedFiles       prometheus.Gauge
	CallbackPanics     prometheus.Counter
	ReloadQueueDepth   prometheus.Gauge
	ReloadQueueDropped prometheus.Counter
	Reloads            *prometheus.CounterVec
	ReloadDuration     *prometheus.HistogramVec
	FrameDuration      prometheus.Histogram
	HealthStatus       prometheus.Gauge

	registry *prometheus.Registry
	handler  http.Handler
}

func NewMetrics() *Metrics {
	return &Metrics{
		AssetLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asset_loads_total",
				Help: "Total number of asset load attempts",
			},
			[]string{"category", "result"},
		),
		AssetLoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "asset_load_duration_seconds",
				Help:    "Asset decode duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"category"},
		),
		AssetUnloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asset_unloads_total",
				Help: "Total number of assets released",
			},
			[]string{"category"},
		),
		LoadedAssets: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "assets_loaded",
				Help: "Number of assets currently resident",
			},
			[]string{"category"},
		),
		WatcherPolls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "file_watcher_polls_total",
				Help: "Total number of modification-time sweeps",
			},
		),
		WatcherChanges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "file_watcher_changes_total",
				Help: "Total number of detected file modifications",
			},
		),
		WatchedFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "file_watcher_watched_files",
				Help: "Number of files currently watched",
			},
		),
		CallbackPanics: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "file_watcher_callback_panics_total",
				Help: "Total number of change callbacks that panicked",
			},
		),
		ReloadQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hot_reload_queue_depth",
				Help: "Number of pending reload requests",
			},
		),
		ReloadQueueDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hot_reload_queue_dropped_total",
				Help: "Total number of reload requests dropped because the queue was full",
			},
		),
		Reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hot_reloads_total",
				Help: "Total number of applied hot reloads",
			},
			[]string{"category", "result"},
		),
		ReloadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hot_reload_duration_seconds",
				Help:    "Hot reload apply duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"category"},
		),
		FrameDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "frame_duration_seconds",
				Help:    "Frame loop iteration duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
			},
		),
		HealthStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "app_health_status",
				Help: "Application health status (1 = healthy, 0 = unhealthy)",
			},
		),
	}
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

// RecordLoad records one asset load attempt
func (m *Metrics) RecordLoad(category string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.AssetLoads.WithLabelValues(category, result(ok)).Inc()
	if ok {
		m.AssetLoadDuration.WithLabelValues(category).Observe(duration.Seconds())
	}
}

func (m *Metrics) RecordUnload(category string) {
	if m == nil {
		return
	}
	m.AssetUnloads.WithLabelValues(category).Inc()
}

func (m *Metrics) SetLoadedAssets(category string, count int) {
	if m == nil {
		return
	}
	m.LoadedAssets.WithLabelValues(category).Set(float64(count))
}

func (m *Metrics) RecordPoll() {
	if m == nil {
		return
	}
	m.WatcherPolls.Inc()
}

func (m *Metrics) RecordChange() {
	if m == nil {
		return
	}
	m.WatcherChanges.Inc()
}

func (m *Metrics) SetWatchedFiles(count int) {
	if m == nil {
		return
	}
	m.WatchedFiles.Set(float64(count))
}

func (m *Metrics) RecordCallbackPanic() {
	if m == nil {
		return
	}
	m.CallbackPanics.Inc()
}

func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.ReloadQueueDepth.Set(float64(depth))
}

func (m *Metrics) RecordQueueDrop() {
	if m == nil {
		return
	}
	m.ReloadQueueDropped.Inc()
}

// RecordReload records one applied hot reload
func (m *Metrics) RecordReload(category string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.Reloads.WithLabelValues(category, result(ok)).Inc()
	m.ReloadDuration.WithLabelValues(category).Observe(duration.Seconds())
}

func (m *Metrics) RecordFrame(duration time.Duration) {
	if m == nil {
		return
	}
	m.FrameDuration.Observe(duration.Seconds())
}

func (m *Metrics) SetHealthStatus(healthy bool) {
	if m == nil {
		return
	}
	if healthy {
		m.HealthStatus.Set(1)
	} else {
		m.HealthStatus.Set(0)
	}
}

func (m *Metrics) Handler() http.Handler {
	if m.handler != nil {
		return m.handler
	}
	return promhttp.Handler()
}

// Registry returns the private registry, nil until Register is called
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Register() error {
	m.registry = prometheus.NewRegistry()

	collectors := []prometheus.Collector{
		m.AssetLoads,
		m.AssetLoadDuration,
		m.AssetUnloads,
		m.LoadedAssets,
		m.WatcherPolls,
		m.WatcherChanges,
		m.WatchedFiles,
		m.CallbackPanics,
		m.ReloadQueueDepth,
		m.ReloadQueueDropped,
		m.Reloads,
		m.ReloadDuration,
		m.FrameDuration,
		m.HealthStatus,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}

	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})

	return nil
}
