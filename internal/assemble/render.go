package assemble

import (
	"fmt"
	"strings"
)

// Markdown serializes the assembled context, components in priority order
// (most important first), for the downstream generator.
func (r *Result) Markdown() string {
	var sb strings.Builder
	for i, c := range r.Components {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch c.Kind {
		case KindPreviousChapter:
			fmt.Fprintf(&sb, "## Previous Chapter (%d)\n\n%s", c.Chapter, strings.TrimSpace(c.Body))
		case KindInstruction:
			fmt.Fprintf(&sb, "## Instructions: %s\n\n%s", c.Label, strings.TrimSpace(c.Body))
		case KindStaticReference:
			fmt.Fprintf(&sb, "## Reference: %s\n\n%s", c.Label, strings.TrimSpace(c.Body))
		case KindTierSummary:
			fmt.Fprintf(&sb, "## Summary (%s, chapter %d)\n\n%s", c.Label, c.Chapter, strings.TrimSpace(c.Body))
		}
	}
	sb.WriteString("\n")
	return sb.String()
}
