package tier

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listExtractor returns list components with one single-word item per
// requested token, so component costs are exact. Fresh slices every call.
type listExtractor struct {
	sizes map[string]int
	order []string
}

func (e *listExtractor) Extract(raw string) ([]Component, error) {
	var comps []Component
	for _, label := range e.order {
		items := make([]string, e.sizes[label])
		for i := range items {
			items[i] = "w"
		}
		comps = append(comps, Component{Label: label, Items: items})
	}
	return comps, nil
}

type failingExtractor struct{}

func (failingExtractor) Extract(raw string) ([]Component, error) {
	return nil, errors.New("model unavailable")
}

func TestCompressUnderTarget(t *testing.T) {
	ex := &listExtractor{
		sizes: map[string]int{"synopsis": 100, "detail": 200},
		order: []string{"synopsis", "detail"},
	}
	c := NewCompressor(ex, nil)

	s, err := c.Compress(3, "some raw text", Policy{ID: "recent", TargetTokens: 500, RetentionRatio: 0.5, TriggerPeriod: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, s.Chapter)
	assert.Equal(t, "recent", s.Tier)
	assert.Equal(t, 300, s.EstimatedTokens)
	// Nothing degraded.
	assert.Len(t, s.Components[0].Items, 100)
	assert.Len(t, s.Components[1].Items, 200)
}

func TestCompressDegradeLadder(t *testing.T) {
	// Chapter estimated at 5000 tokens: plot 3000, dialogue 1500, scene 500.
	ex := &listExtractor{
		sizes: map[string]int{"plot": 3000, "dialogue": 1500, "scene": 500},
		order: []string{"plot", "dialogue", "scene"},
	}
	c := NewCompressor(ex, nil)

	s, err := c.Compress(5, "long chapter", Policy{ID: "recent", TargetTokens: 2000, RetentionRatio: 0.5, TriggerPeriod: 1})
	require.NoError(t, err)

	assert.LessOrEqual(t, s.EstimatedTokens, 2000)
	// Ladder walks scene (x0.1), dialogue (x0.25), then plot (x0.4).
	assert.Len(t, s.Components[2].Items, 50)
	assert.Len(t, s.Components[1].Items, 375)
	assert.Len(t, s.Components[0].Items, 1200)
	assert.Equal(t, 1625, s.EstimatedTokens)
}

func TestCompressStopsEarly(t *testing.T) {
	// Cutting only the most disposable component already reaches target;
	// the core components must be untouched.
	ex := &listExtractor{
		sizes: map[string]int{"plot": 100, "scene": 2000},
		order: []string{"plot", "scene"},
	}
	c := NewCompressor(ex, nil)

	s, err := c.Compress(1, "raw", Policy{ID: "recent", TargetTokens: 400, RetentionRatio: 0.5, TriggerPeriod: 1})
	require.NoError(t, err)

	assert.Len(t, s.Components[0].Items, 100)
	assert.Len(t, s.Components[1].Items, 200)
	assert.Equal(t, 300, s.EstimatedTokens)
}

func TestCompressIdempotent(t *testing.T) {
	ex := &listExtractor{
		sizes: map[string]int{"plot": 3000, "dialogue": 1500, "scene": 500},
		order: []string{"plot", "dialogue", "scene"},
	}
	c := NewCompressor(ex, nil)
	policy := Policy{ID: "recent", TargetTokens: 2000, RetentionRatio: 0.5, TriggerPeriod: 1}

	first, err := c.Compress(5, "long chapter", policy)
	require.NoError(t, err)
	second, err := c.Compress(5, "long chapter", policy)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b, "recompression of unchanged input must be byte-identical")
}

func TestCompressEmptyText(t *testing.T) {
	c := NewCompressor(failingExtractor{}, nil)

	s, err := c.Compress(7, "   \n ", Policy{ID: "recent", TargetTokens: 100, RetentionRatio: 0.5, TriggerPeriod: 1})
	require.NoError(t, err, "empty text never reaches the extractor")

	assert.Equal(t, 7, s.Chapter)
	assert.Equal(t, 0, s.EstimatedTokens)
	assert.Empty(t, s.Components)
}

func TestCompressExtractionFailure(t *testing.T) {
	c := NewCompressor(failingExtractor{}, nil)

	_, err := c.Compress(2, "raw text", Policy{ID: "recent", TargetTokens: 100, RetentionRatio: 0.5, TriggerPeriod: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestCompressLadderTerminates(t *testing.T) {
	// A target no ladder can reach: the walk must still terminate after
	// visiting every component once, with nothing negative.
	ex := &listExtractor{
		sizes: map[string]int{"a": 1000, "b": 1000, "c": 1000},
		order: []string{"a", "b", "c"},
	}
	c := NewCompressor(ex, nil)

	s, err := c.Compress(1, "raw", Policy{ID: "tiny", TargetTokens: 1, RetentionRatio: 0.5, TriggerPeriod: 1})
	require.NoError(t, err)
	for _, comp := range s.Components {
		assert.GreaterOrEqual(t, len(comp.Items), 0)
	}
	assert.GreaterOrEqual(t, s.EstimatedTokens, 0)
}

func TestTruncateTextKeepsWholeSentences(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one is last."
	out := truncateText(text, 0.6)

	assert.True(t, strings.HasPrefix(text, out), "truncation must keep a sentence prefix")
	assert.NotEmpty(t, out)
	assert.Less(t, len(out), len(text))
}

func TestTruncateTextFallsBackToWords(t *testing.T) {
	// One long sentence: whole-sentence truncation cannot help, so the
	// cut falls back to whole words, never mid-word.
	text := "one two three four five six seven eight nine ten"
	out := truncateText(text, 0.4)

	assert.True(t, strings.HasPrefix(text, out))
	for _, w := range strings.Fields(out) {
		assert.Contains(t, []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}, w)
	}
}

func TestPolicyValidate(t *testing.T) {
	valid := Policy{ID: "recent", TargetTokens: 2000, RetentionRatio: 0.5, TriggerPeriod: 1}
	require.NoError(t, valid.Validate())

	cases := []Policy{
		{ID: "", TargetTokens: 100, RetentionRatio: 0.5, TriggerPeriod: 1},
		{ID: "x", TargetTokens: 0, RetentionRatio: 0.5, TriggerPeriod: 1},
		{ID: "x", TargetTokens: 100, RetentionRatio: 0, TriggerPeriod: 1},
		{ID: "x", TargetTokens: 100, RetentionRatio: 1.5, TriggerPeriod: 1},
		{ID: "x", TargetTokens: 100, RetentionRatio: 0.5, TriggerPeriod: 0},
	}
	for i, p := range cases {
		assert.Error(t, p.Validate(), "case %d", i)
	}
}

func TestSummaryRender(t *testing.T) {
	s := Summary{
		Chapter: 4,
		Tier:    "recent",
		Components: []Component{
			{Label: "synopsis", Text: "The heroes reach the city."},
			{Label: "scenes", Items: []string{"Gate", "Market"}},
		},
	}
	out := s.Render()
	assert.Contains(t, out, "### synopsis")
	assert.Contains(t, out, "The heroes reach the city.")
	assert.Contains(t, out, "- Gate")
	assert.Contains(t, out, "- Market")
}

func TestLookup(t *testing.T) {
	policies := []Policy{
		{ID: "recent", TargetTokens: 2000, RetentionRatio: 0.5, TriggerPeriod: 1},
		{ID: "mid", TargetTokens: 800, RetentionRatio: 0.2, TriggerPeriod: 10},
	}
	p, ok := Lookup(policies, "mid")
	require.True(t, ok)
	assert.Equal(t, 10, p.TriggerPeriod)

	_, ok = Lookup(policies, "missing")
	assert.False(t, ok)
}
