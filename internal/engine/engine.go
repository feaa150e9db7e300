// Package engine drives the per-chapter cycle: trigger scheduling, tier
// compression, milestone batch recompression, and context assembly. The
// engine is synchronous and single-writer; callers must not invoke
// compression for the same (chapter, tier) pair concurrently, since the
// summary store's atomic replace is the only write discipline. It never
// retries on its own — retry policy belongs to the caller.
package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lyndonlyu/loom/internal/assemble"
	"github.com/lyndonlyu/loom/internal/budget"
	"github.com/lyndonlyu/loom/internal/config"
	"github.com/lyndonlyu/loom/internal/schedule"
	"github.com/lyndonlyu/loom/internal/store"
	"github.com/lyndonlyu/loom/internal/tier"
)

// Engine wires the stores, compressor, scheduler, and assembler for one
// project.
type Engine struct {
	cfg        *config.Config
	budget     *budget.Store
	chapters   *store.ChapterStore
	summaries  *store.SummaryDB
	compressor *tier.Compressor
	assembler  *assemble.Assembler
}

// New opens the project stores and builds an engine. The configuration
// must already be validated.
func New(cfg *config.Config, extractor tier.Extractor) (*Engine, error) {
	budgetStore, err := budget.NewStore(cfg.Budget)
	if err != nil {
		return nil, err
	}

	chapters, err := store.NewChapterStore(cfg.ChaptersDir())
	if err != nil {
		return nil, fmt.Errorf("engine: chapter store: %w", err)
	}

	summaries, err := store.OpenSummaryDB(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("engine: summary store: %w", err)
	}

	reference := store.NewProvider(cfg.ReferenceDir(), cfg.OutlinesDir())

	return &Engine{
		cfg:        cfg,
		budget:     budgetStore,
		chapters:   chapters,
		summaries:  summaries,
		compressor: tier.NewCompressor(extractor, cfg.Ladder),
		assembler:  assemble.New(chapters, summaries, reference, cfg.Windows, cfg.Priorities),
	}, nil
}

// Close releases the summary store.
func (e *Engine) Close() error {
	return e.summaries.Close()
}

// Reload swaps in a hot-reloaded configuration. Changes only affect future
// triggers, compressions, and assemblies; persisted summaries are left
// untouched. Must not be called concurrently with other engine methods —
// callers funnel reloads onto their driving goroutine.
func (e *Engine) Reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := e.budget.Replace(cfg.Budget); err != nil {
		return err
	}
	reference := store.NewProvider(cfg.ReferenceDir(), cfg.OutlinesDir())
	e.cfg = cfg
	e.compressor = tier.NewCompressor(e.compressor.Extractor(), cfg.Ladder)
	e.assembler = assemble.New(e.chapters, e.summaries, reference, cfg.Windows, cfg.Priorities)
	return nil
}

// Budget returns the live budget store, for runtime ceiling updates.
func (e *Engine) Budget() *budget.Store {
	return e.budget
}

// Chapters returns the chapter store, for ingestion.
func (e *Engine) Chapters() *store.ChapterStore {
	return e.chapters
}

// Summaries returns the summary store, for diagnostics.
func (e *Engine) Summaries() *store.SummaryDB {
	return e.summaries
}

// CycleReport describes one per-chapter processing cycle. Failed tiers are
// isolated: one tier failing never prevents the others from persisting.
type CycleReport struct {
	Chapter    int
	Due        []string
	Compressed []string
	Failed     map[string]error
}

// ProcessChapter runs the compression cycle for chapter n: asks the
// scheduler which tiers are due and compresses each one independently.
// A missing chapter is an error for every due tier (per-chapter tiers
// cannot proceed without raw text).
func (e *Engine) ProcessChapter(n int) (*CycleReport, error) {
	if n < 1 {
		return nil, fmt.Errorf("engine: chapter index must be at least 1, got %d", n)
	}

	raw, err := e.chapters.RawText(n)
	if err != nil {
		return nil, fmt.Errorf("engine: process chapter %d: %w", n, err)
	}

	report := &CycleReport{
		Chapter: n,
		Due:     schedule.Due(n, e.cfg.Tiers),
		Failed:  make(map[string]error),
	}

	for _, id := range report.Due {
		policy, ok := tier.Lookup(e.cfg.Tiers, id)
		if !ok {
			report.Failed[id] = fmt.Errorf("engine: unknown tier %q", id)
			continue
		}
		s, err := e.compressor.Compress(n, raw, policy)
		if err != nil {
			// No partial write: the summary store is only touched
			// on success.
			report.Failed[id] = err
			continue
		}
		if err := e.summaries.Put(s); err != nil {
			report.Failed[id] = err
			continue
		}
		report.Compressed = append(report.Compressed, id)
	}

	return report, nil
}

// BatchReport describes one milestone recompression run.
type BatchReport struct {
	Record store.BatchRecord
	Failed map[int]error
}

// Recompress executes the milestone plan for chapter n. Each batch gets a
// recorded run; chapters that fail within a batch are collected and the
// remaining chapters still processed.
func (e *Engine) Recompress(n int) ([]BatchReport, error) {
	plan := schedule.BatchPlan(n, e.cfg.Tiers)
	if len(plan) == 0 {
		return nil, nil
	}

	var reports []BatchReport
	for _, batch := range plan {
		policy, ok := tier.Lookup(e.cfg.Tiers, batch.Tier)
		if !ok {
			return reports, fmt.Errorf("engine: unknown tier %q in batch plan", batch.Tier)
		}

		rec := store.BatchRecord{
			ID:          uuid.New().String(),
			Tier:        batch.Tier,
			FromChapter: batch.From,
			ToChapter:   batch.To,
		}
		if err := e.summaries.InsertBatch(rec); err != nil {
			return reports, err
		}

		report := BatchReport{Record: rec, Failed: make(map[int]error)}
		for ch := batch.From; ch <= batch.To; ch++ {
			raw, err := e.chapters.RawText(ch)
			if err != nil {
				report.Failed[ch] = err
				continue
			}
			s, err := e.compressor.Compress(ch, raw, policy)
			if err != nil {
				report.Failed[ch] = err
				continue
			}
			if err := e.summaries.Put(s); err != nil {
				report.Failed[ch] = err
			}
		}

		status := "COMPLETED"
		if len(report.Failed) > 0 {
			status = "FAILED"
		}
		if err := e.summaries.UpdateBatchStatus(rec.ID, status); err != nil {
			return reports, err
		}
		report.Record.Status = status
		reports = append(reports, report)
	}

	return reports, nil
}

// Assemble builds the context for chapter n. A positive ceilingOverride
// replaces the configured ceiling for this call only, subject to the
// budget floor.
func (e *Engine) Assemble(n int, ceilingOverride int) (*assemble.Result, error) {
	b := e.budget.Current()
	if ceilingOverride > 0 {
		if ceilingOverride < b.MinCeiling {
			return nil, fmt.Errorf("%w: override %d < %d", budget.ErrBelowFloor, ceilingOverride, b.MinCeiling)
		}
		b.Ceiling = ceilingOverride
	}
	return e.assembler.Assemble(n, b)
}

// DueTiers exposes the scheduler's decision for chapter n.
func (e *Engine) DueTiers(n int) []string {
	return schedule.Due(n, e.cfg.Tiers)
}

// BatchPlan exposes the milestone plan for chapter n.
func (e *Engine) BatchPlan(n int) []schedule.Batch {
	return schedule.BatchPlan(n, e.cfg.Tiers)
}

// IsNotFound reports whether err means a missing chapter or summary.
func IsNotFound(err error) bool {
	return errors.Is(err, assemble.ErrNotFound)
}
