package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 24000, cfg.Budget.Ceiling)
	assert.Equal(t, 0.9, cfg.Budget.SafetyMargin)
	assert.Equal(t, []string{"recent", "mid", "long"}, cfg.TierIDs())
	assert.Equal(t, 1, cfg.Priorities.PreviousChapter)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`budget:
  ceiling: 12000
windows:
  recent: 8
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12000, cfg.Budget.Ceiling)
	assert.Equal(t, 8, cfg.Windows.Recent)
	// Defaults preserved for unset fields.
	assert.Equal(t, 0.9, cfg.Budget.SafetyMargin)
	assert.Equal(t, "mid", cfg.Windows.MediumTier)
}

func TestLoadConfigFileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err, "missing config file should return defaults, not error")
	assert.Equal(t, 24000, cfg.Budget.Ceiling)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	// Tier target above the ceiling.
	content := []byte(`budget:
  ceiling: 1000
  min_ceiling: 100
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidateLadder(t *testing.T) {
	cfg := Default()
	cfg.Ladder = []float64{0.5, 0.1}
	assert.Error(t, cfg.Validate(), "decreasing fractions must be rejected")

	cfg.Ladder = []float64{0, 0.5}
	assert.Error(t, cfg.Validate())

	cfg.Ladder = nil
	assert.Error(t, cfg.Validate())

	cfg.Ladder = []float64{0.1, 0.25, 0.4}
	assert.NoError(t, cfg.Validate())
}

func TestValidateTiers(t *testing.T) {
	cfg := Default()
	cfg.Tiers = nil
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Tiers = append(cfg.Tiers, cfg.Tiers[0])
	assert.Error(t, cfg.Validate(), "duplicate tier ids must be rejected")

	cfg = Default()
	cfg.Tiers[0].TargetTokens = cfg.Budget.Ceiling
	assert.Error(t, cfg.Validate(), "tier target at or above ceiling must be rejected")
}

func TestValidatePriorities(t *testing.T) {
	cfg := Default()
	delete(cfg.Priorities.Tiers, "mid")
	assert.Error(t, cfg.Validate())
}

func TestDirLayout(t *testing.T) {
	cfg := Default()
	cfg.BaseDir = t.TempDir()

	require.NoError(t, cfg.EnsureDirs())
	for _, d := range []string{cfg.ChaptersDir(), cfg.ReferenceDir(), cfg.OutlinesDir()} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.Equal(t, filepath.Join(cfg.BaseDir, "loom.db"), cfg.DBPath())
}
