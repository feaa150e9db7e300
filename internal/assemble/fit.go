package assemble

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lyndonlyu/loom/internal/budget"
)

// ErrBudgetUnsatisfiable is returned when even the highest-priority
// components alone exceed the ceiling. Nothing is silently truncated.
var ErrBudgetUnsatisfiable = errors.New("assemble: budget unsatisfiable")

// UnsatisfiableError carries the retained breakdown for diagnostics.
type UnsatisfiableError struct {
	Retained []Component
	Total    int
	Ceiling  int
}

func (e *UnsatisfiableError) Error() string {
	return fmt.Sprintf("assemble: budget unsatisfiable: %d tokens retained against ceiling %d", e.Total, e.Ceiling)
}

func (e *UnsatisfiableError) Unwrap() error {
	return ErrBudgetUnsatisfiable
}

// Result is an assembled context: components ordered most-important-first,
// the total estimated usage, and whatever eviction dropped. It is created
// fresh per call and never mutated after return.
type Result struct {
	Chapter     int
	Components  []Component
	TotalTokens int
	Dropped     []Component
}

// Fit enforces the budget over the collected components. If the total fits
// the ceiling the set is returned whole. Otherwise components are evicted
// strictly most-disposable-first (highest priority number, ties broken by
// insertion order) until usage reaches the safety-margin target; the
// highest-priority group is never evicted. If the survivors still exceed
// the ceiling, Fit fails with an UnsatisfiableError.
func Fit(chapter int, components []Component, b budget.Budget) (*Result, error) {
	total := 0
	for _, c := range components {
		total += c.Tokens
	}

	if total <= b.Ceiling {
		return &Result{
			Chapter:     chapter,
			Components:  orderByPriority(components),
			TotalTokens: total,
		}, nil
	}

	minPriority := components[0].Priority
	for _, c := range components[1:] {
		if c.Priority < minPriority {
			minPriority = c.Priority
		}
	}

	// Disposable candidates in eviction order: priority descending,
	// insertion order within a priority level.
	type candidate struct {
		index int
		c     Component
	}
	var candidates []candidate
	for i, c := range components {
		if c.Priority > minPriority {
			candidates = append(candidates, candidate{index: i, c: c})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].c.Priority > candidates[j].c.Priority
	})

	target := b.EvictionTarget()
	evicted := make(map[int]bool)
	var dropped []Component
	for _, cand := range candidates {
		if total <= target {
			break
		}
		evicted[cand.index] = true
		dropped = append(dropped, cand.c)
		total -= cand.c.Tokens
	}

	if total > b.Ceiling {
		var retained []Component
		for i, c := range components {
			if !evicted[i] {
				retained = append(retained, c)
			}
		}
		return nil, &UnsatisfiableError{
			Retained: orderByPriority(retained),
			Total:    total,
			Ceiling:  b.Ceiling,
		}
	}

	var kept []Component
	for i, c := range components {
		if !evicted[i] {
			kept = append(kept, c)
		}
	}
	return &Result{
		Chapter:     chapter,
		Components:  orderByPriority(kept),
		TotalTokens: total,
		Dropped:     dropped,
	}, nil
}

// orderByPriority returns a copy sorted most-important-first, preserving
// insertion order within a priority level.
func orderByPriority(components []Component) []Component {
	out := make([]Component, len(components))
	copy(out, components)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}
