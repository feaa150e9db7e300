// Package schedule decides which retention tiers are due for a given
// chapter. It is a pure decision function over the policy table; it keeps
// no state of its own.
package schedule

import (
	"sort"

	"github.com/lyndonlyu/loom/internal/tier"
)

// Due returns the sorted IDs of tiers that must be (re)compressed for
// chapter n. A tier is due iff n is a multiple of its trigger period; a
// period-1 tier is due for every chapter.
func Due(n int, policies []tier.Policy) []string {
	var due []string
	for _, p := range policies {
		if p.TriggerPeriod == 1 || n%p.TriggerPeriod == 0 {
			due = append(due, p.ID)
		}
	}
	sort.Strings(due)
	return due
}

// Batch describes a recompression of one tier over an inclusive chapter
// range.
type Batch struct {
	Tier string
	From int
	To   int
}

// BatchPlan returns the milestone recompressions for chapter n: every due
// tier with a period above 1 covers its trailing period window, and the
// tier with the single largest period covers the entire history. Running
// the plan is a distinct, explicitly requested operation; Due never
// triggers it implicitly.
func BatchPlan(n int, policies []tier.Policy) []Batch {
	maxPeriod := 0
	for _, p := range policies {
		if p.TriggerPeriod > maxPeriod {
			maxPeriod = p.TriggerPeriod
		}
	}

	var plan []Batch
	for _, p := range policies {
		if p.TriggerPeriod <= 1 || n%p.TriggerPeriod != 0 {
			continue
		}
		from := n - p.TriggerPeriod + 1
		if from < 1 || p.TriggerPeriod == maxPeriod {
			from = 1
		}
		plan = append(plan, Batch{Tier: p.ID, From: from, To: n})
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].Tier < plan[j].Tier })
	return plan
}
