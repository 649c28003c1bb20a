package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/leslieo2/go-asset-reload/internal/constants"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Flag names recognised by overrideWithFlags
const (
	FlagResources    = "resources"
	FlagAutoDiscover = "auto-discover"
	FlagManifest     = "manifest"
	FlagLoadPolicy   = "load-policy"
	FlagHotReload    = "hot-reload"
	FlagPollInterval = "poll-interval"
	FlagSettleDelay  = "settle-delay"
	FlagQueueSize    = "queue-size"
	FlagTargetFPS    = "target-fps"
	FlagLogLevel     = "log-level"
	FlagLogFormat    = "log-format"
	FlagMetrics      = "metrics"
	FlagTracing      = "tracing"
	FlagCatalog      = "catalog"
	FlagHost         = "host"
	FlagPort         = "port"
)

// LoadConfig loads configuration with precedence:
// 1. Explicitly set flags (highest priority)
// 2. Environment variables
// 3. Configuration file values
// 4. Default configuration values (lowest priority)
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	config := DefaultConfig()

	if configFile != "" {
		if err := loadFromFile(configFile, config); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	loadFromEnv(config)

	if flags != nil {
		if err := overrideWithFlags(config, flags); err != nil {
			return nil, fmt.Errorf("failed to apply flags: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile decodes a YAML, JSON or TOML file over config.
// Keys absent from the file keep their current values.
func loadFromFile(filePath string, config *Config) error {
	if !filepath.IsAbs(filePath) {
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for %s: %w", filePath, err)
		}
		filePath = absPath
	}

	if err := validateFilePath(filePath); err != nil {
		return fmt.Errorf("invalid config file path %s: %w", filePath, err)
	}

	data, err := os.ReadFile(filePath) // #nosec G304 - file path validated by validateFilePath()
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	ext := filepath.Ext(filePath)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	case ".toml":
		err = toml.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
// Values that fail to parse are ignored.
func loadFromEnv(config *Config) {
	if val := os.Getenv(constants.EnvResourcesRoot); val != "" {
		config.Assets.ResourcesRoot = val
	}
	if val := os.Getenv(constants.EnvAutoDiscover); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Assets.AutoDiscover = enabled
		}
	}
	if val := os.Getenv(constants.EnvManifest); val != "" {
		config.Assets.Manifest = val
	}
	if val := os.Getenv(constants.EnvLoadPolicy); val != "" {
		config.Assets.LoadPolicy = strings.ToLower(val)
	}
	if val := os.Getenv(constants.EnvHotReload); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.HotReload.Enabled = enabled
		}
	}
	if val := os.Getenv(constants.EnvPollInterval); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.HotReload.PollInterval = duration
		}
	}
	if val := os.Getenv(constants.EnvSettleDelay); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.HotReload.SettleDelay = duration
		}
	}
	if val := os.Getenv(constants.EnvQueueSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.HotReload.QueueSize = size
		}
	}
	if val := os.Getenv(constants.EnvTargetFPS); val != "" {
		if fps, err := strconv.Atoi(val); err == nil {
			config.Engine.TargetFPS = fps
		}
	}
	if val := os.Getenv(constants.EnvLogLevel); val != "" {
		config.Observability.Logging.Level = val
	}
	if val := os.Getenv(constants.EnvLogFormat); val != "" {
		config.Observability.Logging.Format = val
	}
	if val := os.Getenv(constants.EnvMetricsEnabled); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Observability.Metrics.Enabled = enabled
		}
	}
	if val := os.Getenv(constants.EnvTracingEnabled); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Observability.Tracing.Enabled = enabled
		}
	}
	if val := os.Getenv(constants.EnvCatalogPath); val != "" {
		config.Catalog.Path = val
	}
	if val := os.Getenv(constants.EnvServerHost); val != "" {
		config.Server.Host = val
	}
	if val := os.Getenv(constants.EnvServerPort); val != "" {
		config.Server.Port = val
	}
	if val := os.Getenv(constants.EnvServerShutdownGrace); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Server.ShutdownTimeout = duration
		}
	}
}

// overrideWithFlags applies flags that were set explicitly on the command line.
// Flags missing from the set are skipped.
func overrideWithFlags(config *Config, flags *pflag.FlagSet) error {
	var err error
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed && err == nil
	}

	if changed(FlagResources) {
		config.Assets.ResourcesRoot, err = flags.GetString(FlagResources)
	}
	if changed(FlagAutoDiscover) {
		config.Assets.AutoDiscover, err = flags.GetBool(FlagAutoDiscover)
	}
	if changed(FlagManifest) {
		config.Assets.Manifest, err = flags.GetString(FlagManifest)
	}
	if changed(FlagLoadPolicy) {
		config.Assets.LoadPolicy, err = flags.GetString(FlagLoadPolicy)
	}
	if changed(FlagHotReload) {
		config.HotReload.Enabled, err = flags.GetBool(FlagHotReload)
	}
	if changed(FlagPollInterval) {
		config.HotReload.PollInterval, err = flags.GetDuration(FlagPollInterval)
	}
	if changed(FlagSettleDelay) {
		config.HotReload.SettleDelay, err = flags.GetDuration(FlagSettleDelay)
	}
	if changed(FlagQueueSize) {
		config.HotReload.QueueSize, err = flags.GetInt(FlagQueueSize)
	}
	if changed(FlagTargetFPS) {
		config.Engine.TargetFPS, err = flags.GetInt(FlagTargetFPS)
	}
	if changed(FlagLogLevel) {
		config.Observability.Logging.Level, err = flags.GetString(FlagLogLevel)
	}
	if changed(FlagLogFormat) {
		config.Observability.Logging.Format, err = flags.GetString(FlagLogFormat)
	}
	if changed(FlagMetrics) {
		config.Observability.Metrics.Enabled, err = flags.GetBool(FlagMetrics)
	}
	if changed(FlagTracing) {
		config.Observability.Tracing.Enabled, err = flags.GetBool(FlagTracing)
	}
	if changed(FlagCatalog) {
		config.Catalog.Path, err = flags.GetString(FlagCatalog)
	}
	if changed(FlagHost) {
		config.Server.Host, err = flags.GetString(FlagHost)
	}
	if changed(FlagPort) {
		config.Server.Port, err = flags.GetString(FlagPort)
	}

	return err
}

// validateFilePath checks if the file path is safe to read
func validateFilePath(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	cleanPath := filepath.Clean(absPath)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains directory traversal attempts")
	}

	return nil
}
