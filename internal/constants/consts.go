package constants

import "time"

// Environment variable constants
const (
	EnvResourcesRoot       = "ASSET_RELOAD_RESOURCES_ROOT"
	EnvAutoDiscover        = "ASSET_RELOAD_AUTO_DISCOVER"
	EnvManifest            = "ASSET_RELOAD_MANIFEST"
	EnvLoadPolicy          = "ASSET_RELOAD_LOAD_POLICY"
	EnvHotReload           = "ASSET_RELOAD_HOT_RELOAD"
	EnvPollInterval        = "ASSET_RELOAD_POLL_INTERVAL"
	EnvSettleDelay         = "ASSET_RELOAD_SETTLE_DELAY"
	EnvQueueSize           = "ASSET_RELOAD_QUEUE_SIZE"
	EnvTargetFPS           = "ASSET_RELOAD_TARGET_FPS"
	EnvLogLevel            = "ASSET_RELOAD_LOG_LEVEL"
	EnvLogFormat           = "ASSET_RELOAD_LOG_FORMAT"
	EnvMetricsEnabled      = "ASSET_RELOAD_METRICS_ENABLED"
	EnvTracingEnabled      = "ASSET_RELOAD_TRACING_ENABLED"
	EnvCatalogPath         = "ASSET_RELOAD_CATALOG_PATH"
	EnvServerHost          = "ASSET_RELOAD_SERVER_HOST"
	EnvServerPort          = "ASSET_RELOAD_SERVER_PORT"
	EnvServerShutdownGrace = "ASSET_RELOAD_SERVER_SHUTDOWN_TIMEOUT"
)

// Resource layout: one subdirectory per asset category under the resources root.
const (
	DirTextures = "textures"
	DirAudio    = "audio"
	DirScenes   = "scenes"
	DirFonts    = "fonts"
)

// Watcher constants
const (
	// DefaultPollInterval is the delay between two modification-time sweeps
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultSettleDelay gives writers a moment to finish before the callback runs
	DefaultSettleDelay = 100 * time.Millisecond
	// MissingFileLogInterval throttles "file no longer exists" warnings per path
	MissingFileLogInterval = 10 * time.Second
)

// Reload queue constants
const (
	// DefaultQueueSize bounds pending reload requests between watcher and frame loop
	DefaultQueueSize = 64
	// DefaultMaxReloadsPerFrame caps how many reloads a single frame applies (0 = all pending)
	DefaultMaxReloadsPerFrame = 0
)

// Engine constants
const (
	DefaultTargetFPS = 60
)

// Font constants
const (
	DefaultFontSize = 16.0
	DefaultFontDPI  = 72.0
)

// Diagnostics server paths
const (
	PathHealth  = "/health"
	PathReady   = "/ready"
	PathMetrics = "/metrics"
	PathAssets  = "/assets"
)

// Header constants
const (
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
)
