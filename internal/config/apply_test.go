package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warpgraph/warp/internal/config"
	"github.com/warpgraph/warp/pkg/gc"
	"github.com/warpgraph/warp/pkg/patch"
)

func TestApplyToFacts_SkipsZeroNumericValues(t *testing.T) {
	t.Parallel()

	cfg := config.Config{}
	facts := make(map[string]any)
	cfg.ApplyToFacts(facts)

	_, hasRatio := facts["GC.TombstoneRatioThreshold"]
	assert.False(t, hasRatio)
	_, hasSize := facts["SeekCache.Size"]
	assert.False(t, hasSize)

	// Booleans are always applied, even when false.
	assert.Equal(t, false, facts["Checkpoint.Enabled"])
	assert.Equal(t, false, facts["Checkpoint.CoverageEnabled"])
}

func TestApplyToFacts_AppliesNonZeroValues(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	facts := make(map[string]any)
	cfg.ApplyToFacts(facts)

	assert.InDelta(t, 0.3, facts["GC.TombstoneRatioThreshold"], 0.0001)
	assert.Equal(t, float64(500), facts["GC.PatchesSinceCompactionThreshold"])
	assert.Equal(t, float64(256), facts["SeekCache.Size"])
	assert.Equal(t, true, facts["Checkpoint.Enabled"])
	assert.Equal(t, float64(100), facts["Checkpoint.PatchInterval"])
}

func TestGCPolicy_MatchesConfiguredThresholds(t *testing.T) {
	t.Parallel()

	cfg := validConfig()

	assert.Equal(t, gc.Policy{
		TombstoneRatioThreshold:         0.3,
		PatchesSinceCompactionThreshold: 500,
	}, cfg.GCPolicy())
}

func TestDeleteGuardPolicy_ResolvesEachName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		policy string
		want   patch.DeleteGuardPolicy
	}{
		{"reject", "reject", patch.DeleteGuardReject},
		{"warn", "warn", patch.DeleteGuardWarn},
		{"cascade", "cascade", patch.DeleteGuardCascade},
		{"unknown falls back to warn", "bogus", patch.DeleteGuardWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.DeleteGuard.Policy = tt.policy

			assert.Equal(t, tt.want, cfg.DeleteGuardPolicy())
		})
	}
}
