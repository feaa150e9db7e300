// Package assemble builds the final context for a chapter from raw text,
// tier summaries, and static reference material, enforcing the global
// token ceiling with deterministic priority eviction.
package assemble

import "fmt"

// Kind identifies the variant of a context component.
type Kind int

const (
	// KindPreviousChapter is the full raw text of the chapter
	// immediately before the one being assembled.
	KindPreviousChapter Kind = iota
	// KindStaticReference is world/style/plot reference material.
	KindStaticReference
	// KindTierSummary is a persisted summary of one chapter at one tier.
	KindTierSummary
	// KindInstruction is the outline or writing instruction for the
	// chapter being assembled.
	KindInstruction
)

func (k Kind) String() string {
	switch k {
	case KindPreviousChapter:
		return "previous_chapter"
	case KindStaticReference:
		return "static_reference"
	case KindTierSummary:
		return "tier_summary"
	case KindInstruction:
		return "instruction"
	default:
		return "unknown"
	}
}

// Component is one candidate entry in an assembled context. Priority is an
// eviction rank: lower numbers are retained longer under overflow. Tokens
// is the estimated cost, taken from the persisted summary for tier
// summaries and from the estimator for raw text.
type Component struct {
	Kind     Kind
	Priority int
	Tokens   int
	// Label names the component for display: the reference kind, the
	// tier id, or a fixed tag.
	Label   string
	Chapter int
	Body    string
}

// Describe returns a short diagnostic string for the component.
func (c Component) Describe() string {
	switch c.Kind {
	case KindTierSummary:
		return fmt.Sprintf("%s[%s ch%d] p%d %dtok", c.Kind, c.Label, c.Chapter, c.Priority, c.Tokens)
	case KindPreviousChapter:
		return fmt.Sprintf("%s[ch%d] p%d %dtok", c.Kind, c.Chapter, c.Priority, c.Tokens)
	default:
		return fmt.Sprintf("%s[%s] p%d %dtok", c.Kind, c.Label, c.Priority, c.Tokens)
	}
}

// PriorityTable declares the eviction priority for every component class.
// It is explicit configuration, validated at startup, never re-derived per
// call. Lower numbers survive eviction longer.
type PriorityTable struct {
	PreviousChapter int            `yaml:"previous_chapter"`
	Instruction     int            `yaml:"instruction"`
	StaticReference int            `yaml:"static_reference"`
	Tiers           map[string]int `yaml:"tiers"`
}

// Validate checks that every class has a positive priority and that every
// tier in tierIDs is covered.
func (t PriorityTable) Validate(tierIDs []string) error {
	if t.PreviousChapter < 1 {
		return fmt.Errorf("priorities: previous_chapter must be at least 1, got %d", t.PreviousChapter)
	}
	if t.Instruction < 1 {
		return fmt.Errorf("priorities: instruction must be at least 1, got %d", t.Instruction)
	}
	if t.StaticReference < 1 {
		return fmt.Errorf("priorities: static_reference must be at least 1, got %d", t.StaticReference)
	}
	for _, id := range tierIDs {
		p, ok := t.Tiers[id]
		if !ok {
			return fmt.Errorf("priorities: no priority declared for tier %q", id)
		}
		if p < 1 {
			return fmt.Errorf("priorities: tier %q priority must be at least 1, got %d", id, p)
		}
	}
	return nil
}

// For returns the priority for a component of the given kind, using tierID
// only for KindTierSummary.
func (t PriorityTable) For(kind Kind, tierID string) int {
	switch kind {
	case KindPreviousChapter:
		return t.PreviousChapter
	case KindInstruction:
		return t.Instruction
	case KindStaticReference:
		return t.StaticReference
	case KindTierSummary:
		return t.Tiers[tierID]
	default:
		return 0
	}
}
