package assemble

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyndonlyu/loom/internal/budget"
	"github.com/lyndonlyu/loom/internal/tier"
)

type fakeChapters struct {
	texts map[int]string
}

func (f *fakeChapters) RawText(chapter int) (string, error) {
	text, ok := f.texts[chapter]
	if !ok {
		return "", fmt.Errorf("%w: chapter %d", ErrNotFound, chapter)
	}
	return text, nil
}

type fakeSummaries struct {
	summaries map[string]tier.Summary
}

func summaryKey(chapter int, tierID string) string {
	return fmt.Sprintf("%d/%s", chapter, tierID)
}

func (f *fakeSummaries) Get(chapter int, tierID string) (tier.Summary, error) {
	s, ok := f.summaries[summaryKey(chapter, tierID)]
	if !ok {
		return tier.Summary{}, ErrNotFound
	}
	return s, nil
}

type fakeReference struct {
	components []Component
}

func (f *fakeReference) StaticComponents(chapter int) ([]Component, error) {
	out := make([]Component, len(f.components))
	copy(out, f.components)
	return out, nil
}

var testWindows = Windows{
	Recent:     3,
	Medium:     4,
	LongStride: 5,
	RecentTier: "recent",
	MediumTier: "mid",
	LongTier:   "long",
}

var testPriorities = PriorityTable{
	PreviousChapter: 1,
	Instruction:     2,
	StaticReference: 3,
	Tiers:           map[string]int{"recent": 4, "mid": 5, "long": 6},
}

func fullHistory(n int) (*fakeChapters, *fakeSummaries) {
	chapters := &fakeChapters{texts: make(map[int]string)}
	summaries := &fakeSummaries{summaries: make(map[string]tier.Summary)}
	for ch := 1; ch <= n; ch++ {
		chapters.texts[ch] = strings.Repeat("word ", 100)
		for _, id := range []string{"recent", "mid", "long"} {
			summaries.summaries[summaryKey(ch, id)] = tier.Summary{
				Chapter:         ch,
				Tier:            id,
				Components:      []tier.Component{{Label: "synopsis", Text: "chapter " + fmt.Sprint(ch)}},
				EstimatedTokens: 50,
			}
		}
	}
	return chapters, summaries
}

func TestAssembleWindowSelection(t *testing.T) {
	chapters, summaries := fullHistory(30)
	a := New(chapters, summaries, &fakeReference{}, testWindows, testPriorities)

	r, err := a.Assemble(30, budget.Budget{Ceiling: 100000, SafetyMargin: 0.9, MinCeiling: 1})
	require.NoError(t, err)

	var prev, recent, mid, long []int
	for _, c := range r.Components {
		switch {
		case c.Kind == KindPreviousChapter:
			prev = append(prev, c.Chapter)
		case c.Kind == KindTierSummary && c.Label == "recent":
			recent = append(recent, c.Chapter)
		case c.Kind == KindTierSummary && c.Label == "mid":
			mid = append(mid, c.Chapter)
		case c.Kind == KindTierSummary && c.Label == "long":
			long = append(long, c.Chapter)
		}
	}

	assert.Equal(t, []int{29}, prev)
	assert.Equal(t, []int{28, 27, 26}, recent)
	assert.Equal(t, []int{25, 24, 23, 22}, mid)
	// Beyond the medium window (chapters 1-21), every 5th chapter.
	assert.Equal(t, []int{20, 15, 10, 5}, long)
}

func TestAssembleFirstChapter(t *testing.T) {
	chapters := &fakeChapters{texts: map[int]string{}}
	summaries := &fakeSummaries{summaries: map[string]tier.Summary{}}
	reference := &fakeReference{components: []Component{
		{Kind: KindStaticReference, Label: "world", Body: "The realm of Aldenmoor spans three kingdoms."},
		{Kind: KindInstruction, Label: "chapter-1", Body: "Open with the lighthouse keeper."},
	}}
	a := New(chapters, summaries, reference, testWindows, testPriorities)

	r, err := a.Assemble(1, budget.Budget{Ceiling: 10000, SafetyMargin: 0.9, MinCeiling: 1})
	require.NoError(t, err)

	// No prior chapters: only the static material contributes.
	require.Len(t, r.Components, 2)
	for _, c := range r.Components {
		assert.NotEqual(t, KindPreviousChapter, c.Kind)
		assert.NotEqual(t, KindTierSummary, c.Kind)
	}
	assert.Empty(t, r.Dropped)
	assert.Greater(t, r.TotalTokens, 0)
}

func TestAssembleMissingPreviousChapterDegrades(t *testing.T) {
	// Chapter 4 exists in summaries but chapter 4's raw text is gone:
	// assembly proceeds without the previous-chapter component.
	chapters := &fakeChapters{texts: map[int]string{}}
	summaries := &fakeSummaries{summaries: map[string]tier.Summary{
		summaryKey(3, "recent"): {Chapter: 3, Tier: "recent", EstimatedTokens: 40},
	}}
	a := New(chapters, summaries, &fakeReference{}, testWindows, testPriorities)

	r, err := a.Assemble(5, budget.Budget{Ceiling: 10000, SafetyMargin: 0.9, MinCeiling: 1})
	require.NoError(t, err)

	for _, c := range r.Components {
		assert.NotEqual(t, KindPreviousChapter, c.Kind)
	}
}

func TestAssembleBudgetConservation(t *testing.T) {
	chapters, summaries := fullHistory(60)
	a := New(chapters, summaries, &fakeReference{}, testWindows, testPriorities)

	// A ceiling tight enough to force eviction at every chapter.
	b := budget.Budget{Ceiling: 300, SafetyMargin: 0.9, MinCeiling: 1}
	for n := 2; n <= 60; n++ {
		r, err := a.Assemble(n, b)
		if err != nil {
			// The previous chapter alone may exceed a tight ceiling.
			assert.ErrorIs(t, err, ErrBudgetUnsatisfiable, "chapter %d", n)
			continue
		}
		assert.LessOrEqual(t, r.TotalTokens, b.Ceiling, "chapter %d", n)
	}
}

func TestAssembleEvictsHistoricalTiersFirst(t *testing.T) {
	chapters, summaries := fullHistory(30)
	a := New(chapters, summaries, &fakeReference{}, testWindows, testPriorities)

	// Room for the previous chapter and little else.
	r, err := a.Assemble(30, budget.Budget{Ceiling: 260, SafetyMargin: 0.9, MinCeiling: 1})
	require.NoError(t, err)

	require.NotEmpty(t, r.Dropped)
	// The previous chapter is never dropped while summaries survive.
	for _, d := range r.Dropped {
		assert.NotEqual(t, KindPreviousChapter, d.Kind)
	}
}

func TestAssembleRejectsBadIndex(t *testing.T) {
	a := New(&fakeChapters{}, &fakeSummaries{}, &fakeReference{}, testWindows, testPriorities)
	_, err := a.Assemble(0, budget.Budget{Ceiling: 100, SafetyMargin: 0.9, MinCeiling: 1})
	assert.Error(t, err)
}

func TestWindowsValidate(t *testing.T) {
	ids := []string{"recent", "mid", "long"}
	require.NoError(t, testWindows.Validate(ids))

	bad := testWindows
	bad.LongStride = 0
	assert.Error(t, bad.Validate(ids))

	bad = testWindows
	bad.MediumTier = "nope"
	assert.Error(t, bad.Validate(ids))

	bad = testWindows
	bad.Recent = -1
	assert.Error(t, bad.Validate(ids))
}

func TestPriorityTableValidate(t *testing.T) {
	ids := []string{"recent", "mid", "long"}
	require.NoError(t, testPriorities.Validate(ids))

	bad := testPriorities
	bad.PreviousChapter = 0
	assert.Error(t, bad.Validate(ids))

	assert.Error(t, testPriorities.Validate([]string{"recent", "extra"}))
}

func TestResultMarkdown(t *testing.T) {
	r := &Result{
		Chapter: 5,
		Components: []Component{
			{Kind: KindPreviousChapter, Chapter: 4, Body: "The ship sailed."},
			{Kind: KindInstruction, Label: "chapter-5", Body: "Storm at sea."},
			{Kind: KindStaticReference, Label: "world", Body: "Three kingdoms."},
			{Kind: KindTierSummary, Label: "mid", Chapter: 2, Body: "### synopsis\n\nEarlier events."},
		},
	}
	out := r.Markdown()
	assert.Contains(t, out, "## Previous Chapter (4)")
	assert.Contains(t, out, "## Instructions: chapter-5")
	assert.Contains(t, out, "## Reference: world")
	assert.Contains(t, out, "## Summary (mid, chapter 2)")
}
