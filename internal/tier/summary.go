package tier

import (
	"fmt"
	"strings"

	"github.com/lyndonlyu/loom/internal/token"
)

// Component is one labeled piece of extracted chapter content: either a
// prose string (Text) or an ordered list (Items). Exactly one of the two is
// populated; a list component keeps Items non-nil even when empty so the
// two shapes stay distinguishable after a round trip through storage.
type Component struct {
	Label string   `json:"label"`
	Text  string   `json:"text,omitempty"`
	Items []string `json:"items"`
}

// IsList reports whether the component holds an ordered list.
func (c Component) IsList() bool {
	return c.Items != nil
}

// Tokens returns the estimated token cost of the component.
func (c Component) Tokens() int {
	if c.IsList() {
		return token.EstimateAll(c.Items)
	}
	return token.Estimate(c.Text)
}

// Summary is the output of compressing one chapter at one tier. It is
// replaced wholesale on recompression, never merged. An empty component set
// with zero tokens is a valid "no content" marker, distinct from a chapter
// that has not been compressed yet.
type Summary struct {
	Chapter         int         `json:"chapter"`
	Tier            string      `json:"tier"`
	Components      []Component `json:"components,omitempty"`
	EstimatedTokens int         `json:"estimated_tokens"`
}

// Render serializes the summary components into markdown for inclusion in
// an assembled context.
func (s Summary) Render() string {
	var sb strings.Builder
	for i, c := range s.Components {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "### %s\n\n", c.Label)
		if c.IsList() {
			for _, item := range c.Items {
				fmt.Fprintf(&sb, "- %s\n", item)
			}
		} else {
			sb.WriteString(c.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
