// Package config loads and validates the loom project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lyndonlyu/loom/internal/assemble"
	"github.com/lyndonlyu/loom/internal/budget"
	"github.com/lyndonlyu/loom/internal/tier"
)

// ErrInvalid wraps every validation failure. Invalid configuration is
// fatal at load time; nothing is silently defaulted after validation.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Budget     budget.Budget          `yaml:"budget"`
	Tiers      []tier.Policy          `yaml:"tiers"`
	Ladder     []float64              `yaml:"degrade_ladder"`
	Windows    assemble.Windows       `yaml:"windows"`
	Priorities assemble.PriorityTable `yaml:"priorities"`
	BaseDir    string                 `yaml:"-"`
}

// Default returns the stock configuration: a per-chapter "recent" tier, a
// "mid" tier every 10 chapters, and a "long" tier every 50.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Budget: budget.Budget{
			Ceiling:      24000,
			SafetyMargin: 0.9,
			MinCeiling:   4000,
		},
		Tiers: []tier.Policy{
			{ID: "recent", TargetTokens: 2000, RetentionRatio: 0.5, TriggerPeriod: 1},
			{ID: "mid", TargetTokens: 800, RetentionRatio: 0.2, TriggerPeriod: 10},
			{ID: "long", TargetTokens: 300, RetentionRatio: 0.05, TriggerPeriod: 50},
		},
		Ladder: append([]float64(nil), tier.DefaultLadder...),
		Windows: assemble.Windows{
			Recent:     5,
			Medium:     20,
			LongStride: 10,
			RecentTier: "recent",
			MediumTier: "mid",
			LongTier:   "long",
		},
		Priorities: assemble.PriorityTable{
			PreviousChapter: 1,
			Instruction:     2,
			StaticReference: 3,
			Tiers: map[string]int{
				"recent": 4,
				"mid":    5,
				"long":   6,
			},
		},
		BaseDir: filepath.Join(home, ".loom"),
	}
}

// Load reads the config file at path, merging over defaults. A missing
// file yields the defaults. The result is validated before return.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if cfg.BaseDir == "" {
		home, _ := os.UserHomeDir()
		cfg.BaseDir = filepath.Join(home, ".loom")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration: budget bounds, tier policies,
// per-tier targets against the ceiling, the degrade ladder, the priority
// table, and the window rule.
func (c *Config) Validate() error {
	if err := c.Budget.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: no tiers configured", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Tiers))
	for _, p := range c.Tiers {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate tier id %q", ErrInvalid, p.ID)
		}
		seen[p.ID] = true
		if p.TargetTokens >= c.Budget.Ceiling {
			return fmt.Errorf("%w: tier %q target %d must be below ceiling %d",
				ErrInvalid, p.ID, p.TargetTokens, c.Budget.Ceiling)
		}
	}

	if len(c.Ladder) == 0 {
		return fmt.Errorf("%w: degrade_ladder must have at least one step", ErrInvalid)
	}
	prev := 0.0
	for i, f := range c.Ladder {
		if f <= 0 || f > 1 {
			return fmt.Errorf("%w: degrade_ladder[%d] must be in (0,1], got %g", ErrInvalid, i, f)
		}
		if f < prev {
			return fmt.Errorf("%w: degrade_ladder fractions must not decrease (step %d: %g < %g)",
				ErrInvalid, i, f, prev)
		}
		prev = f
	}

	ids := c.TierIDs()
	if err := c.Priorities.Validate(ids); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Windows.Validate(ids); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// TierIDs returns the configured tier ids in declaration order.
func (c *Config) TierIDs() []string {
	ids := make([]string, 0, len(c.Tiers))
	for _, p := range c.Tiers {
		ids = append(ids, p.ID)
	}
	return ids
}

// ChaptersDir returns the chapter text directory.
func (c *Config) ChaptersDir() string {
	return filepath.Join(c.BaseDir, "chapters")
}

// ReferenceDir returns the static reference material directory.
func (c *Config) ReferenceDir() string {
	return filepath.Join(c.BaseDir, "reference")
}

// OutlinesDir returns the per-chapter outline/instruction directory.
func (c *Config) OutlinesDir() string {
	return filepath.Join(c.BaseDir, "outlines")
}

// DBPath returns the summary database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.BaseDir, "loom.db")
}

// EnsureDirs creates the project directory layout.
func (c *Config) EnsureDirs() error {
	for _, d := range []string{c.ChaptersDir(), c.ReferenceDir(), c.OutlinesDir()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}
