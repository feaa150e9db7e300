package tier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrExtraction wraps extractor failures. A failed extraction aborts the
// whole compression for that (chapter, tier) pair; nothing partial is
// persisted and the caller may retry the tier independently of others.
var ErrExtraction = errors.New("tier: extraction failed")

// Extractor turns raw chapter text into labeled components ordered
// most-important-first. Implementations range from naive heuristics to
// model-backed summarizers; the compressor treats them as opaque.
type Extractor interface {
	Extract(raw string) ([]Component, error)
}

// DefaultLadder holds the retention fractions applied while degrading, one
// step per component walked from the most disposable end. The harshest cut
// lands on the most disposable component; fractions grow toward the core.
// Steps past the end of the ladder reuse the final fraction.
var DefaultLadder = []float64{0.1, 0.25, 0.4, 0.6, 0.8}

// Compressor produces tier summaries under per-tier token targets.
type Compressor struct {
	extractor Extractor
	ladder    []float64
}

// NewCompressor creates a compressor using the given extractor and degrade
// ladder. A nil or empty ladder falls back to DefaultLadder.
func NewCompressor(extractor Extractor, ladder []float64) *Compressor {
	if len(ladder) == 0 {
		ladder = DefaultLadder
	}
	return &Compressor{extractor: extractor, ladder: ladder}
}

// Extractor returns the extractor this compressor was built with.
func (c *Compressor) Extractor() Extractor {
	return c.extractor
}

// Compress extracts components from raw and degrades them until the total
// estimated cost fits policy.TargetTokens or the ladder is exhausted. The
// result is a pure function of (raw, extractor output, ladder), so
// recompressing unchanged input yields a byte-identical summary.
//
// Empty raw text produces an empty summary with zero tokens, which is still
// persisted as a valid "no content" marker.
func (c *Compressor) Compress(chapter int, raw string, policy Policy) (Summary, error) {
	if strings.TrimSpace(raw) == "" {
		return Summary{Chapter: chapter, Tier: policy.ID}, nil
	}

	comps, err := c.extractor.Extract(raw)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: chapter %d tier %s: %v", ErrExtraction, chapter, policy.ID, err)
	}

	total := totalTokens(comps)
	if total > policy.TargetTokens {
		// Walk from the most disposable component (last) toward the
		// core, recomputing the total after every step.
		step := 0
		for i := len(comps) - 1; i >= 0 && total > policy.TargetTokens; i-- {
			comps[i] = shrink(comps[i], c.fraction(step))
			step++
			total = totalTokens(comps)
		}
	}

	return Summary{
		Chapter:         chapter,
		Tier:            policy.ID,
		Components:      comps,
		EstimatedTokens: total,
	}, nil
}

func (c *Compressor) fraction(step int) float64 {
	if step >= len(c.ladder) {
		return c.ladder[len(c.ladder)-1]
	}
	return c.ladder[step]
}

func totalTokens(comps []Component) int {
	total := 0
	for _, c := range comps {
		total += c.Tokens()
	}
	return total
}

// shrink reduces a component to roughly fraction of its current size. Lists
// keep their first floor(n*fraction) items; prose keeps whole sentences,
// falling back to whole words when even the first sentence is too long.
// Content is never cut mid-word and never goes negative.
func shrink(c Component, fraction float64) Component {
	if c.IsList() {
		keep := int(float64(len(c.Items)) * fraction)
		if keep < 0 {
			keep = 0
		}
		c.Items = c.Items[:keep]
		return c
	}
	c.Text = truncateText(c.Text, fraction)
	return c
}

var sentenceRe = regexp.MustCompile(`[^.!?。！？]+[.!?。！？]*\s*`)

func truncateText(text string, fraction float64) string {
	limit := int(float64(utf8.RuneCountInString(text)) * fraction)
	if limit >= utf8.RuneCountInString(text) {
		return text
	}

	var sb strings.Builder
	kept := 0
	for _, s := range sentenceRe.FindAllString(text, -1) {
		n := utf8.RuneCountInString(s)
		if kept+n > limit {
			break
		}
		sb.WriteString(s)
		kept += n
	}
	if sb.Len() > 0 {
		return strings.TrimSpace(sb.String())
	}

	// The first sentence alone exceeds the limit: keep whole words.
	var words []string
	kept = 0
	for _, w := range strings.Fields(text) {
		n := utf8.RuneCountInString(w) + 1
		if kept+n > limit {
			break
		}
		words = append(words, w)
		kept += n
	}
	return strings.Join(words, " ")
}
