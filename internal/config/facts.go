package config

import (
	"github.com/warpgraph/warp/pkg/gc"
	"github.com/warpgraph/warp/pkg/patch"
)

// positive constrains types eligible for skip-on-zero fact application.
type positive interface {
	~int | ~float64
}

// applyPositive sets facts[key] = value when value is positive.
// Zero values are skipped, allowing the caller's built-in default to stand.
func applyPositive[T positive](facts map[string]any, key string, value T) {
	if value > 0 {
		facts[key] = value
	}
}

// applyBool sets facts[key] = value unconditionally.
// Boolean config fields are always applied because false is a meaningful override.
func applyBool(facts map[string]any, key string, value bool) {
	facts[key] = value
}

// ApplyToFacts merges config values into a facts map suitable for logging or
// a debug endpoint. Only non-zero numeric values override; zero means "use
// the package default". Boolean fields are always applied.
func (c *Config) ApplyToFacts(facts map[string]any) {
	applyPositive(facts, "GC.TombstoneRatioThreshold", c.GC.TombstoneRatioThreshold)
	applyPositive(facts, "GC.PatchesSinceCompactionThreshold", float64(c.GC.PatchesSinceCompactionThreshold))
	applyPositive(facts, "SeekCache.Size", float64(c.SeekCache.Size))
	applyBool(facts, "Checkpoint.Enabled", c.Checkpoint.Enabled)
	applyPositive(facts, "Checkpoint.PatchInterval", float64(c.Checkpoint.PatchInterval))
	applyBool(facts, "Checkpoint.CoverageEnabled", c.Checkpoint.CoverageEnabled)
}

// GCPolicy converts the loaded GC thresholds into a gc.Policy.
func (c *Config) GCPolicy() gc.Policy {
	return gc.Policy{
		TombstoneRatioThreshold:         c.GC.TombstoneRatioThreshold,
		PatchesSinceCompactionThreshold: c.GC.PatchesSinceCompactionThreshold,
	}
}

// DeleteGuardPolicy resolves the configured delete-guard policy name into a
// patch.DeleteGuardPolicy. Validate must have run first; an unrecognized
// name falls back to DeleteGuardWarn.
func (c *Config) DeleteGuardPolicy() patch.DeleteGuardPolicy {
	switch c.DeleteGuard.Policy {
	case "reject":
		return patch.DeleteGuardReject
	case "cascade":
		return patch.DeleteGuardCascade
	default:
		return patch.DeleteGuardWarn
	}
}
