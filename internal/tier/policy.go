// Package tier defines retention tiers and the compressor that shrinks
// chapter content to fit each tier's token target.
package tier

import "fmt"

// Policy configures one retention tier. Policies are immutable once loaded;
// a hot-reloaded policy only affects future triggers and compressions.
type Policy struct {
	ID             string  `yaml:"id"`
	TargetTokens   int     `yaml:"target_tokens"`
	RetentionRatio float64 `yaml:"retention_ratio"`
	TriggerPeriod  int     `yaml:"trigger_period"`
}

// Validate checks the policy fields. RetentionRatio is advisory (it guides
// tuning, not the degrade ladder) but still must be a sane fraction.
func (p Policy) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("tier: policy missing id")
	}
	if p.TargetTokens <= 0 {
		return fmt.Errorf("tier %q: target_tokens must be positive, got %d", p.ID, p.TargetTokens)
	}
	if p.RetentionRatio <= 0 || p.RetentionRatio > 1 {
		return fmt.Errorf("tier %q: retention_ratio must be in (0,1], got %g", p.ID, p.RetentionRatio)
	}
	if p.TriggerPeriod < 1 {
		return fmt.Errorf("tier %q: trigger_period must be at least 1, got %d", p.ID, p.TriggerPeriod)
	}
	return nil
}

// Lookup returns the policy with the given id from policies.
func Lookup(policies []Policy, id string) (Policy, bool) {
	for _, p := range policies {
		if p.ID == id {
			return p, true
		}
	}
	return Policy{}, false
}
