package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(FlagResources, "resources", "")
	fs.Bool(FlagAutoDiscover, true, "")
	fs.String(FlagLoadPolicy, LoadPolicyKeep, "")
	fs.Bool(FlagHotReload, true, "")
	fs.Duration(FlagPollInterval, 500*time.Millisecond, "")
	fs.Int(FlagTargetFPS, 60, "")
	fs.String(FlagPort, "9090", "")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return fs
}

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name           string
		fileName       string
		fileContent    string
		envVars        map[string]string
		args           []string
		expectedConfig func() *Config
		wantErr        bool
	}{
		{
			name:           "Default Config Only",
			expectedConfig: DefaultConfig,
		},
		{
			name:        "Load from YAML file",
			fileName:    "config.yaml",
			fileContent: "assets: {resources_root: game}\nhot_reload: {poll_interval: 250ms}\n",
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Assets.ResourcesRoot = "game"
				cfg.HotReload.PollInterval = 250 * time.Millisecond
				return cfg
			},
		},
		{
			name:        "Load from JSON file",
			fileName:    "config.json",
			fileContent: `{"engine": {"target_fps": 30}, "assets": {"auto_discover": false}}`,
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Engine.TargetFPS = 30
				cfg.Assets.AutoDiscover = false
				return cfg
			},
		},
		{
			name:        "Load from TOML file",
			fileName:    "config.toml",
			fileContent: "[assets]\nload_policy = \"replace\"\n\n[hot_reload]\nenabled = false\n",
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Assets.LoadPolicy = LoadPolicyReplace
				cfg.HotReload.Enabled = false
				return cfg
			},
		},
		{
			name:        "Unsupported extension",
			fileName:    "config.ini",
			fileContent: "x=1",
			wantErr:     true,
		},
		{
			name:        "Invalid file content",
			fileName:    "config.yaml",
			fileContent: `assets: {resources_root: "game"`,
			wantErr:     true,
		},
		{
			name: "Load from Environment Variables",
			envVars: map[string]string{
				"ASSET_RELOAD_RESOURCES_ROOT": "env-root",
				"ASSET_RELOAD_QUEUE_SIZE":     "8",
				"ASSET_RELOAD_HOT_RELOAD":     "false",
			},
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Assets.ResourcesRoot = "env-root"
				cfg.HotReload.QueueSize = 8
				cfg.HotReload.Enabled = false
				return cfg
			},
		},
		{
			name: "Unparseable env values are ignored",
			envVars: map[string]string{
				"ASSET_RELOAD_TARGET_FPS":    "fast",
				"ASSET_RELOAD_POLL_INTERVAL": "soon",
			},
			expectedConfig: DefaultConfig,
		},
		{
			name: "Override with flags",
			args: []string{"--target-fps=120", "--load-policy=replace"},
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Engine.TargetFPS = 120
				cfg.Assets.LoadPolicy = LoadPolicyReplace
				return cfg
			},
		},
		{
			name:        "Unchanged flags do not override file",
			fileName:    "config.yaml",
			fileContent: "engine: {target_fps: 24}\n",
			args:        []string{},
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Engine.TargetFPS = 24
				return cfg
			},
		},
		{
			name:        "Precedence: flags > env > file > default",
			fileName:    "config.yaml",
			fileContent: "assets: {resources_root: file-root}\n",
			envVars:     map[string]string{"ASSET_RELOAD_RESOURCES_ROOT": "env-root"},
			args:        []string{"--resources=flag-root"},
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Assets.ResourcesRoot = "flag-root"
				return cfg
			},
		},
		{
			name:    "Validation error from flags",
			args:    []string{"--target-fps=0"},
			wantErr: true,
		},
		{
			name:        "Validation error from file",
			fileName:    "config.yaml",
			fileContent: "hot_reload: {queue_size: -1}\n",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			configFile := ""
			if tt.fileName != "" {
				configFile = writeConfigFile(t, tt.fileName, tt.fileContent)
			}

			var flags *pflag.FlagSet
			if tt.args != nil {
				flags = newFlagSet(t, tt.args...)
			}

			cfg, err := LoadConfig(configFile, flags)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if want := tt.expectedConfig(); !reflect.DeepEqual(cfg, want) {
				t.Errorf("LoadConfig() got = %+v, want %+v", cfg, want)
			}
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateFilePath(t *testing.T) {
	if err := validateFilePath("config.yaml"); err != nil {
		t.Errorf("validateFilePath() unexpected error: %v", err)
	}
}
