// Package extract provides the default heuristic chapter extractor. It
// derives labeled components from chapter markdown with no model calls;
// replace it with a smarter tier.Extractor when summary quality matters.
package extract

import (
	"regexp"
	"strings"

	"github.com/lyndonlyu/loom/internal/tier"
)

// headerRe matches markdown headers (h1-h6) at the start of a line.
var headerRe = regexp.MustCompile(`(?m)^(#{1,6})\s+([^\n]+?)[ \t]*$`)

// fenceRe matches fenced code block delimiters at the start of a line.
var fenceRe = regexp.MustCompile("(?m)^[ ]{0,3}(`{3,}|~{3,})")

// quoteRe matches quoted speech in straight, curly, or CJK corner quotes.
var quoteRe = regexp.MustCompile(`"[^"\n]+"|“[^”\n]+”|「[^」\n]+」`)

// Chapter extracts components from chapter markdown. Components are
// returned most-important-first: synopsis, dialogue, scenes, then detail,
// so the degrade ladder cuts detail hardest and synopsis last.
type Chapter struct {
	// MaxDialogue caps the number of quoted lines collected.
	MaxDialogue int
}

// New returns a Chapter extractor with default limits.
func New() *Chapter {
	return &Chapter{MaxDialogue: 40}
}

// Extract implements tier.Extractor. It never fails: arbitrary text always
// yields at least a synopsis and detail component.
func (e *Chapter) Extract(raw string) ([]tier.Component, error) {
	body := stripFences(raw)

	var comps []tier.Component

	paras := paragraphs(body)
	synopsis := ""
	if len(paras) > 0 {
		synopsis = paras[0]
	}
	comps = append(comps, tier.Component{Label: "synopsis", Text: synopsis})

	if quotes := e.dialogue(body); len(quotes) > 0 {
		comps = append(comps, tier.Component{Label: "dialogue", Items: quotes})
	}

	if scenes := headings(raw); len(scenes) > 0 {
		comps = append(comps, tier.Component{Label: "scenes", Items: scenes})
	}

	if len(paras) > 1 {
		comps = append(comps, tier.Component{Label: "detail", Text: strings.Join(paras[1:], "\n\n")})
	}

	return comps, nil
}

func (e *Chapter) dialogue(text string) []string {
	max := e.MaxDialogue
	if max <= 0 {
		max = 40
	}
	quotes := quoteRe.FindAllString(text, -1)
	if len(quotes) > max {
		quotes = quotes[:max]
	}
	return quotes
}

// headings returns the header names in document order, skipping headers
// inside fenced code blocks.
func headings(text string) []string {
	fences := fencedRanges(text)
	var names []string
	for _, m := range headerRe.FindAllStringSubmatchIndex(text, -1) {
		if insideFence(m[0], fences) {
			continue
		}
		names = append(names, text[m[4]:m[5]])
	}
	return names
}

// paragraphs splits text into blank-line-separated paragraphs, dropping
// heading lines.
func paragraphs(text string) []string {
	var paras []string
	for _, block := range strings.Split(text, "\n\n") {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			lines = append(lines, trimmed)
		}
		if len(lines) > 0 {
			paras = append(paras, strings.Join(lines, " "))
		}
	}
	return paras
}

// fencedRanges returns byte offset ranges [start, end) for fenced code
// blocks. A closing fence must use the same character as the opener and be
// at least as long.
func fencedRanges(text string) [][2]int {
	matches := fenceRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) < 2 {
		return nil
	}

	var ranges [][2]int
	var openChar byte
	var openLen, openStart int
	inFence := false

	for _, m := range matches {
		chars := text[m[2]:m[3]]
		if !inFence {
			openChar = chars[0]
			openLen = len(chars)
			openStart = m[0]
			inFence = true
		} else if chars[0] == openChar && len(chars) >= openLen {
			ranges = append(ranges, [2]int{openStart, m[1]})
			inFence = false
		}
	}
	return ranges
}

func insideFence(pos int, ranges [][2]int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// stripFences removes fenced code blocks so quotes and paragraphs inside
// them are not mistaken for narrative content.
func stripFences(text string) string {
	ranges := fencedRanges(text)
	if len(ranges) == 0 {
		return text
	}
	var sb strings.Builder
	last := 0
	for _, r := range ranges {
		sb.WriteString(text[last:r[0]])
		last = r[1]
	}
	sb.WriteString(text[last:])
	return sb.String()
}
