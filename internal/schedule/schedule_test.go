package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lyndonlyu/loom/internal/tier"
)

var testPolicies = []tier.Policy{
	{ID: "recent", TargetTokens: 2000, RetentionRatio: 0.5, TriggerPeriod: 1},
	{ID: "mid", TargetTokens: 800, RetentionRatio: 0.2, TriggerPeriod: 10},
	{ID: "long", TargetTokens: 300, RetentionRatio: 0.05, TriggerPeriod: 50},
}

func TestDuePeriodicity(t *testing.T) {
	assert.Equal(t, []string{"mid", "recent"}, Due(10, testPolicies))
	assert.Equal(t, []string{"recent"}, Due(11, testPolicies))
	assert.Equal(t, []string{"long", "mid", "recent"}, Due(50, testPolicies))
	assert.Equal(t, []string{"mid", "recent"}, Due(20, testPolicies))
}

func TestDuePerChapterTierAlwaysDue(t *testing.T) {
	for n := 1; n <= 60; n++ {
		assert.Contains(t, Due(n, testPolicies), "recent", "chapter %d", n)
	}
}

func TestDueMatchesModulo(t *testing.T) {
	for n := 1; n <= 100; n++ {
		due := Due(n, testPolicies)
		if n%10 == 0 {
			assert.Contains(t, due, "mid", "chapter %d", n)
		} else {
			assert.NotContains(t, due, "mid", "chapter %d", n)
		}
	}
}

func TestBatchPlanMidTier(t *testing.T) {
	plan := BatchPlan(20, testPolicies)
	assert.Equal(t, []Batch{{Tier: "mid", From: 11, To: 20}}, plan)
}

func TestBatchPlanTopTierCoversHistory(t *testing.T) {
	plan := BatchPlan(100, testPolicies)
	assert.Equal(t, []Batch{
		{Tier: "long", From: 1, To: 100},
		{Tier: "mid", From: 91, To: 100},
	}, plan)
}

func TestBatchPlanNoMilestone(t *testing.T) {
	// Only the per-chapter tier fires; it never plans batches.
	assert.Empty(t, BatchPlan(7, testPolicies))
}

func TestBatchPlanClampsToFirstChapter(t *testing.T) {
	policies := []tier.Policy{
		{ID: "mid", TargetTokens: 800, RetentionRatio: 0.2, TriggerPeriod: 10},
	}
	// With a single milestone tier, it is also the largest-period tier
	// and covers the whole history.
	plan := BatchPlan(10, policies)
	assert.Equal(t, []Batch{{Tier: "mid", From: 1, To: 10}}, plan)
}
