package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".warp"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for warp settings.
const envPrefix = "WARP"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default configuration values.
const (
	DefaultDeleteGuardPolicy    = "warn"
	DefaultTombstoneRatio       = 0.3
	DefaultPatchesThreshold     = 500
	DefaultSeekCacheSize        = 256
	DefaultCheckpointEnabled    = true
	DefaultCheckpointInterval   = 100
	DefaultCheckpointCoverage   = true
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultLoggingOutput        = "stderr"
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("namespace", "")

	viperCfg.SetDefault("delete_guard.policy", DefaultDeleteGuardPolicy)

	viperCfg.SetDefault("gc.tombstone_ratio_threshold", DefaultTombstoneRatio)
	viperCfg.SetDefault("gc.patches_since_compaction_threshold", DefaultPatchesThreshold)

	viperCfg.SetDefault("seek_cache.size", DefaultSeekCacheSize)

	viperCfg.SetDefault("checkpoint.enabled", DefaultCheckpointEnabled)
	viperCfg.SetDefault("checkpoint.patch_interval", DefaultCheckpointInterval)
	viperCfg.SetDefault("checkpoint.coverage_enabled", DefaultCheckpointCoverage)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.format", DefaultLoggingFormat)
	viperCfg.SetDefault("logging.output", DefaultLoggingOutput)
}
