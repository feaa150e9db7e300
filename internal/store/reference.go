package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lyndonlyu/loom/internal/assemble"
)

// Provider serves static reference material (world, style, plot notes) and
// per-chapter outline/instruction files as assembler components. Reference
// files are markdown documents in a flat directory; outlines are named
// chapter-NNNN.md like chapters.
type Provider struct {
	refDir     string
	outlineDir string
}

// NewProvider creates a provider over the two directories. Missing
// directories are treated as empty, not as errors.
func NewProvider(refDir, outlineDir string) *Provider {
	return &Provider{refDir: refDir, outlineDir: outlineDir}
}

// StaticComponents implements assemble.ReferenceSource. Components come
// back without priorities or token costs; the assembler fills those in
// from its priority table and estimator.
func (p *Provider) StaticComponents(chapter int) ([]assemble.Component, error) {
	var components []assemble.Component

	entries, err := os.ReadDir(p.refDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(p.refDir, name))
		if err != nil {
			return nil, err
		}
		components = append(components, assemble.Component{
			Kind:  assemble.KindStaticReference,
			Label: strings.TrimSuffix(name, ".md"),
			Body:  string(data),
		})
	}

	outline := filepath.Join(p.outlineDir, fmt.Sprintf("chapter-%04d.md", chapter))
	if data, err := os.ReadFile(outline); err == nil {
		components = append(components, assemble.Component{
			Kind:    assemble.KindInstruction,
			Label:   fmt.Sprintf("chapter-%d", chapter),
			Chapter: chapter,
			Body:    string(data),
		})
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return components, nil
}
