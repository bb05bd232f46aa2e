// Package config loads per-graph operational settings: delete-guard policy,
// GC policy thresholds, seek cache sizing, checkpoint-on-interval settings,
// and a product namespace override for ref layout.
package config

import "errors"

// Config is the top-level configuration struct for a warp graph process.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Namespace   string            `mapstructure:"namespace"`
	DeleteGuard DeleteGuardConfig `mapstructure:"delete_guard"`
	GC          GCConfig          `mapstructure:"gc"`
	SeekCache   SeekCacheConfig   `mapstructure:"seek_cache"`
	Checkpoint  CheckpointConfig  `mapstructure:"checkpoint"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// DeleteGuardConfig selects the node-delete guard policy patch.Builder
// enforces. Policy is one of "reject", "warn", "cascade".
type DeleteGuardConfig struct {
	Policy string `mapstructure:"policy"`
}

// GCConfig holds the thresholds gc.ShouldRun checks against.
type GCConfig struct {
	TombstoneRatioThreshold         float64 `mapstructure:"tombstone_ratio_threshold"`
	PatchesSinceCompactionThreshold int     `mapstructure:"patches_since_compaction_threshold"`
}

// SeekCacheConfig holds the seekcache.Cache sizing knob.
type SeekCacheConfig struct {
	Size int `mapstructure:"size"`
}

// CheckpointConfig holds the checkpoint-on-interval settings a long-running
// writer process consults between patch submissions.
type CheckpointConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	PatchInterval   int  `mapstructure:"patch_interval"`
	CoverageEnabled bool `mapstructure:"coverage_enabled"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidDeleteGuardPolicy indicates delete_guard.policy is unrecognized.
	ErrInvalidDeleteGuardPolicy = errors.New("delete_guard.policy must be one of reject, warn, cascade")
	// ErrInvalidTombstoneRatio indicates gc.tombstone_ratio_threshold is out of range.
	ErrInvalidTombstoneRatio = errors.New("gc.tombstone_ratio_threshold must be between 0 and 1")
	// ErrInvalidPatchesThreshold indicates gc.patches_since_compaction_threshold is negative.
	ErrInvalidPatchesThreshold = errors.New("gc.patches_since_compaction_threshold must be non-negative")
	// ErrInvalidSeekCacheSize indicates seek_cache.size is not positive.
	ErrInvalidSeekCacheSize = errors.New("seek_cache.size must be positive")
	// ErrInvalidPatchInterval indicates checkpoint.patch_interval is not positive while enabled.
	ErrInvalidPatchInterval = errors.New("checkpoint.patch_interval must be positive when checkpointing is enabled")
)

// maxTombstoneRatio is the upper bound for the tombstone ratio threshold.
const maxTombstoneRatio = 1.0

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	switch c.DeleteGuard.Policy {
	case "reject", "warn", "cascade":
	default:
		return ErrInvalidDeleteGuardPolicy
	}

	if c.GC.TombstoneRatioThreshold < 0 || c.GC.TombstoneRatioThreshold > maxTombstoneRatio {
		return ErrInvalidTombstoneRatio
	}

	if c.GC.PatchesSinceCompactionThreshold < 0 {
		return ErrInvalidPatchesThreshold
	}

	if c.SeekCache.Size <= 0 {
		return ErrInvalidSeekCacheSize
	}

	if c.Checkpoint.Enabled && c.Checkpoint.PatchInterval <= 0 {
		return ErrInvalidPatchInterval
	}

	return nil
}
