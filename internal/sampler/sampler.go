// Package sampler draws weighted, duplicate-free item sets for quiz rounds.
package sampler

import (
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
)

// Sampler selects items proportionally to their weight.
type Sampler struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// New creates a sampler seeded from the clock.
func New() *Sampler {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource creates a sampler backed by src; tests pass a seeded source.
func NewWithSource(src rand.Source) *Sampler {
	return &Sampler{rand: rand.New(src)}
}

// Select draws min(count, len(pool)) distinct items without replacement,
// each draw weighted by the remaining items' weights, then shuffles the
// chosen set so presentation order is independent of draw order.
func (s *Sampler) Select(pool []catalog.Item, count int) []catalog.Item {
	if count <= 0 || len(pool) == 0 {
		return []catalog.Item{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := slices.Clone(pool)
	selected := make([]catalog.Item, 0, min(count, len(pool)))
	for len(selected) < count && len(remaining) > 0 {
		idx := s.pick(remaining)
		selected = append(selected, remaining[idx])
		remaining = slices.Delete(remaining, idx, idx+1)
	}

	s.rand.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	return selected
}

// pick returns the index of the first item whose cumulative weight exceeds
// a uniform draw in [0, total).
func (s *Sampler) pick(items []catalog.Item) int {
	total := 0
	for _, it := range items {
		total += it.EffectiveWeight()
	}
	r := s.rand.Intn(total)
	cumulative := 0
	for i, it := range items {
		cumulative += it.EffectiveWeight()
		if cumulative > r {
			return i
		}
	}
	return len(items) - 1
}
