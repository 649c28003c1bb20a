// Package cli implements the asset-reload command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leslieo2/go-asset-reload/internal/config"
)

var (
	Version   = "0.1.0"
	GitCommit = "development"
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree with fresh flag sets
func NewRootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "asset-reload",
		Short: "Asset registry with polling hot reload",
		Long: `asset-reload loads textures, sounds, fonts and scenes from a resources
directory and keeps them current while a frame loop runs.

Subdirectories of the resources root:
  textures  - png, jpg, bmp, tga
  audio     - wav, ogg, mp3, flac
  fonts     - ttf, otf
  scenes    - scene files`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file (YAML, JSON or TOML)")
	addConfigFlags(root.PersistentFlags())

	load := func(cmd *cobra.Command) (*config.Config, error) {
		return config.LoadConfig(cfgFile, cmd.Flags())
	}

	root.AddCommand(
		newRunCommand(load),
		newScanCommand(load),
		newValidateCommand(load),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command against os.Args
func Execute() error {
	return NewRootCommand().Execute()
}

type configLoader func(cmd *cobra.Command) (*config.Config, error)

// addConfigFlags registers every flag LoadConfig knows how to override
func addConfigFlags(fs *pflag.FlagSet) {
	d := config.DefaultConfig()

	fs.String(config.FlagResources, d.Assets.ResourcesRoot, "resources root directory")
	fs.Bool(config.FlagAutoDiscover, d.Assets.AutoDiscover, "discover assets under the resources root on startup")
	fs.String(config.FlagManifest, d.Assets.Manifest, "asset manifest file")
	fs.String(config.FlagLoadPolicy, d.Assets.LoadPolicy, "behaviour when loading an id that exists: keep or replace")

	fs.Bool(config.FlagHotReload, d.HotReload.Enabled, "watch loaded assets for changes")
	fs.Duration(config.FlagPollInterval, d.HotReload.PollInterval, "file watcher poll interval")
	fs.Duration(config.FlagSettleDelay, d.HotReload.SettleDelay, "wait after a change before reloading")
	fs.Int(config.FlagQueueSize, d.HotReload.QueueSize, "pending reload capacity")
	fs.Int(config.FlagTargetFPS, d.Engine.TargetFPS, "frame loop rate")

	fs.String(config.FlagLogLevel, d.Observability.Logging.Level, "log level: debug, info, warn, error")
	fs.String(config.FlagLogFormat, d.Observability.Logging.Format, "log format: console or json")
	fs.Bool(config.FlagMetrics, d.Observability.Metrics.Enabled, "serve diagnostics and Prometheus metrics")
	fs.Bool(config.FlagTracing, d.Observability.Tracing.Enabled, "export traces to stdout")

	fs.String(config.FlagCatalog, d.Catalog.Path, "sqlite asset catalog path")
	fs.String(config.FlagHost, d.Server.Host, "diagnostics host")
	fs.String(config.FlagPort, d.Server.Port, "diagnostics port")
}

func fprintf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
