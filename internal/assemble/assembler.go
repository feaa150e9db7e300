package assemble

import (
	"errors"
	"fmt"

	"github.com/lyndonlyu/loom/internal/budget"
	"github.com/lyndonlyu/loom/internal/tier"
	"github.com/lyndonlyu/loom/internal/token"
)

// ErrNotFound must be returned (or wrapped) by sources for absent chapters
// and summaries so the assembler can degrade gracefully instead of failing.
var ErrNotFound = errors.New("assemble: not found")

// ChapterSource provides raw chapter text.
type ChapterSource interface {
	RawText(chapter int) (string, error)
}

// SummarySource provides persisted tier summaries.
type SummarySource interface {
	Get(chapter int, tierID string) (tier.Summary, error)
}

// ReferenceSource provides static reference material and the current
// chapter's instructions as ready-made components. Priorities and token
// costs are filled in by the assembler.
type ReferenceSource interface {
	StaticComponents(chapter int) ([]Component, error)
}

// Windows configures which historical chapters contribute which tiers.
// The constants are tunable configuration, not business rules.
type Windows struct {
	// Recent is how many chapters before the previous one contribute
	// their finest-grained summaries.
	Recent int `yaml:"recent"`
	// Medium is how many chapters further back contribute mid summaries.
	Medium int `yaml:"medium"`
	// LongStride samples every K-th chapter beyond the medium window.
	LongStride int `yaml:"long_stride"`

	RecentTier string `yaml:"recent_tier"`
	MediumTier string `yaml:"medium_tier"`
	LongTier   string `yaml:"long_tier"`
}

// Validate checks window sizes and that referenced tiers exist.
func (w Windows) Validate(tierIDs []string) error {
	if w.Recent < 0 || w.Medium < 0 {
		return fmt.Errorf("windows: recent and medium must not be negative")
	}
	if w.LongStride < 1 {
		return fmt.Errorf("windows: long_stride must be at least 1, got %d", w.LongStride)
	}
	known := make(map[string]bool, len(tierIDs))
	for _, id := range tierIDs {
		known[id] = true
	}
	for _, ref := range []string{w.RecentTier, w.MediumTier, w.LongTier} {
		if !known[ref] {
			return fmt.Errorf("windows: unknown tier %q", ref)
		}
	}
	return nil
}

// Assembler gathers context components per the window rule and fits them
// under the budget.
type Assembler struct {
	chapters   ChapterSource
	summaries  SummarySource
	reference  ReferenceSource
	windows    Windows
	priorities PriorityTable
}

// New creates an Assembler over the given sources.
func New(chapters ChapterSource, summaries SummarySource, reference ReferenceSource, windows Windows, priorities PriorityTable) *Assembler {
	return &Assembler{
		chapters:   chapters,
		summaries:  summaries,
		reference:  reference,
		windows:    windows,
		priorities: priorities,
	}
}

// Assemble builds the context for writing chapter n under budget b.
//
// Selection: the previous chapter's full raw text (when it exists), the
// reference material and instructions, fine summaries for the recent
// window, mid summaries for the medium window, and a sparse long-tier
// sample of every LongStride-th chapter beyond that. A missing previous
// chapter or a not-yet-compressed summary degrades to an absent component.
func (a *Assembler) Assemble(n int, b budget.Budget) (*Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("assemble: chapter index must be at least 1, got %d", n)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	var components []Component

	prev := n - 1
	if prev >= 1 {
		raw, err := a.chapters.RawText(prev)
		switch {
		case err == nil:
			components = append(components, Component{
				Kind:     KindPreviousChapter,
				Priority: a.priorities.For(KindPreviousChapter, ""),
				Tokens:   token.Estimate(raw),
				Label:    fmt.Sprintf("chapter-%d", prev),
				Chapter:  prev,
				Body:     raw,
			})
		case errors.Is(err, ErrNotFound):
			// Graceful degrade: assemble without it.
		default:
			return nil, fmt.Errorf("assemble: previous chapter %d: %w", prev, err)
		}
	}

	static, err := a.reference.StaticComponents(n)
	if err != nil {
		return nil, fmt.Errorf("assemble: reference material: %w", err)
	}
	for _, c := range static {
		if c.Priority == 0 {
			c.Priority = a.priorities.For(c.Kind, "")
		}
		if c.Tokens == 0 {
			c.Tokens = token.Estimate(c.Body)
		}
		components = append(components, c)
	}

	recentEnd := prev - 1
	recentStart := recentEnd - a.windows.Recent + 1
	components = a.appendSummaries(components, a.windows.RecentTier, recentStart, recentEnd)

	mediumEnd := recentStart - 1
	mediumStart := mediumEnd - a.windows.Medium + 1
	components = a.appendSummaries(components, a.windows.MediumTier, mediumStart, mediumEnd)

	components = a.appendLongSample(components, mediumStart-1)

	return Fit(n, components, b)
}

// appendSummaries adds summaries for chapters start..end (inclusive, newest
// first) at the given tier, skipping chapters without a persisted summary.
func (a *Assembler) appendSummaries(components []Component, tierID string, start, end int) []Component {
	if start < 1 {
		start = 1
	}
	for ch := end; ch >= start; ch-- {
		c, ok := a.summaryComponent(ch, tierID)
		if ok {
			components = append(components, c)
		}
	}
	return components
}

// appendLongSample adds every LongStride-th chapter at or below limit at
// the long tier, newest first.
func (a *Assembler) appendLongSample(components []Component, limit int) []Component {
	if limit < 1 {
		return components
	}
	stride := a.windows.LongStride
	for ch := limit - limit%stride; ch >= stride; ch -= stride {
		c, ok := a.summaryComponent(ch, a.windows.LongTier)
		if ok {
			components = append(components, c)
		}
	}
	return components
}

func (a *Assembler) summaryComponent(chapter int, tierID string) (Component, bool) {
	s, err := a.summaries.Get(chapter, tierID)
	if err != nil {
		return Component{}, false
	}
	return Component{
		Kind:     KindTierSummary,
		Priority: a.priorities.For(KindTierSummary, tierID),
		Tokens:   s.EstimatedTokens,
		Label:    tierID,
		Chapter:  chapter,
		Body:     s.Render(),
	}, true
}
