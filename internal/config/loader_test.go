package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpgraph/warp/internal/config"
)

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	emptyPath := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(emptyPath, []byte(""), 0o600))

	cfg, err := config.LoadConfig(emptyPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, config.DefaultDeleteGuardPolicy, cfg.DeleteGuard.Policy)
	assert.InDelta(t, config.DefaultTombstoneRatio, cfg.GC.TombstoneRatioThreshold, 0.0001)
	assert.Equal(t, config.DefaultPatchesThreshold, cfg.GC.PatchesSinceCompactionThreshold)
	assert.Equal(t, config.DefaultSeekCacheSize, cfg.SeekCache.Size)
	assert.Equal(t, config.DefaultCheckpointEnabled, cfg.Checkpoint.Enabled)
	assert.Equal(t, config.DefaultCheckpointInterval, cfg.Checkpoint.PatchInterval)
	assert.Equal(t, config.DefaultLoggingLevel, cfg.Logging.Level)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".warp.yaml")
	content := `namespace: prod
delete_guard:
  policy: reject
gc:
  tombstone_ratio_threshold: 0.5
  patches_since_compaction_threshold: 1000
seek_cache:
  size: 1024
checkpoint:
  enabled: false
  patch_interval: 50
  coverage_enabled: false
logging:
  level: debug
  format: text
  output: stdout
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	cfg, err := config.LoadConfig(cfgPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "prod", cfg.Namespace)
	assert.Equal(t, "reject", cfg.DeleteGuard.Policy)
	assert.InDelta(t, 0.5, cfg.GC.TombstoneRatioThreshold, 0.0001)
	assert.Equal(t, 1000, cfg.GC.PatchesSinceCompactionThreshold)
	assert.Equal(t, 1024, cfg.SeekCache.Size)
	assert.False(t, cfg.Checkpoint.Enabled)
	assert.Equal(t, 50, cfg.Checkpoint.PatchInterval)
	assert.False(t, cfg.Checkpoint.CoverageEnabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
}

func TestLoadConfig_MalformedYAML_ReturnsError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	content := `gc:
  tombstone_ratio_threshold: [invalid yaml
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	cfg, err := config.LoadConfig(cfgPath)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_UnknownKeys_NoError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".warp.yaml")
	content := `unknown_section:
  unknown_key: "value"
seek_cache:
  size: 64
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	cfg, err := config.LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.SeekCache.Size)
}

func TestLoadConfig_PartialConfig_MergesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".warp.yaml")
	content := `seek_cache:
  size: 64
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	cfg, err := config.LoadConfig(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.SeekCache.Size)
	assert.Equal(t, config.DefaultDeleteGuardPolicy, cfg.DeleteGuard.Policy)
	assert.Equal(t, config.DefaultPatchesThreshold, cfg.GC.PatchesSinceCompactionThreshold)
}

func TestLoadConfig_EnvOverride_SeekCacheSize(t *testing.T) {
	dir := t.TempDir()
	emptyPath := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(emptyPath, []byte(""), 0o600))

	t.Setenv("WARP_SEEK_CACHE_SIZE", "32")

	cfg, err := config.LoadConfig(emptyPath)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.SeekCache.Size)
}

func TestLoadConfig_EnvOverride_NestedKey(t *testing.T) {
	dir := t.TempDir()
	emptyPath := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(emptyPath, []byte(""), 0o600))

	t.Setenv("WARP_DELETE_GUARD_POLICY", "cascade")

	cfg, err := config.LoadConfig(emptyPath)
	require.NoError(t, err)

	assert.Equal(t, "cascade", cfg.DeleteGuard.Policy)
}

func TestLoadConfig_ExplicitPath_NotFound_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Nil(t, cfg)
}
