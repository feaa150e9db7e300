// Package budget holds the global context budget and its update lifecycle.
package budget

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBelowFloor is returned when a ceiling update falls below the
// configured minimum.
var ErrBelowFloor = errors.New("budget: ceiling below configured minimum")

// Budget is the global context budget: a hard token ceiling, the fraction
// of it that eviction targets, and the floor below which the ceiling may
// never be lowered at runtime.
type Budget struct {
	Ceiling      int     `yaml:"ceiling"`
	SafetyMargin float64 `yaml:"safety_margin"`
	MinCeiling   int     `yaml:"min_ceiling"`
}

// Validate checks the budget fields.
func (b Budget) Validate() error {
	if b.Ceiling <= 0 {
		return fmt.Errorf("budget: ceiling must be positive, got %d", b.Ceiling)
	}
	if b.SafetyMargin <= 0 || b.SafetyMargin > 1 {
		return fmt.Errorf("budget: safety_margin must be in (0,1], got %g", b.SafetyMargin)
	}
	if b.MinCeiling < 0 {
		return fmt.Errorf("budget: min_ceiling must not be negative, got %d", b.MinCeiling)
	}
	if b.MinCeiling > b.Ceiling {
		return fmt.Errorf("budget: min_ceiling %d exceeds ceiling %d", b.MinCeiling, b.Ceiling)
	}
	return nil
}

// EvictionTarget returns the usage eviction must reach once it starts.
func (b Budget) EvictionTarget() int {
	return int(float64(b.Ceiling) * b.SafetyMargin)
}

// Store holds the current budget for readers. Ceiling updates take effect
// for subsequent assemblies only; results already returned are never
// revisited. The mutex exists for the config hot-reload watcher, which
// swaps budgets from its own goroutine.
type Store struct {
	mu sync.RWMutex
	b  Budget
}

// NewStore validates b and wraps it in a Store.
func NewStore(b Budget) (*Store, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &Store{b: b}, nil
}

// Current returns the budget in effect.
func (s *Store) Current() Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b
}

// UpdateCeiling replaces the ceiling, rejecting values below MinCeiling.
func (s *Store) UpdateCeiling(ceiling int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ceiling < s.b.MinCeiling {
		return fmt.Errorf("%w: %d < %d", ErrBelowFloor, ceiling, s.b.MinCeiling)
	}
	next := s.b
	next.Ceiling = ceiling
	if err := next.Validate(); err != nil {
		return err
	}
	s.b = next
	return nil
}

// Replace swaps in a whole new budget after validating it. Used by config
// hot reload.
func (s *Store) Replace(b Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.b = b
	s.mu.Unlock()
	return nil
}
