package weights

import (
	"strings"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
)

// Config holds the weight adjustment constants (defaults match gameplay tuning).
type Config struct {
	Decay        int // default: 20, subtracted on a correct answer
	Floor        int // default: 1
	ReviewWeight int // default: 60, assigned on a wrong, attempted answer
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Decay:        20,
		Floor:        1,
		ReviewWeight: 60,
	}
}

// Outcome is one graded quiz answer.
type Outcome struct {
	ItemName string
	Correct  bool
	Input    string
}

// Adjuster rewrites item weights after a quiz round so missed items recur sooner.
type Adjuster struct {
	config Config
}

// NewAdjuster creates an adjuster. A zero config falls back to DefaultConfig.
func NewAdjuster(config Config) *Adjuster {
	if config == (Config{}) {
		config = DefaultConfig()
	}
	if config.Floor < 1 {
		config.Floor = 1
	}
	return &Adjuster{config: config}
}

// Adjust returns a copy of pool with weights revised by outcomes, plus the
// items whose weight changed in outcome order. Outcomes naming unknown items
// are skipped. An item appears in changed at most once, with its final weight.
func (a *Adjuster) Adjust(pool []catalog.Item, outcomes []Outcome) (updated []catalog.Item, changed []catalog.Item) {
	updated = make([]catalog.Item, len(pool))
	copy(updated, pool)

	index := make(map[string]int, len(updated))
	for i, it := range updated {
		if _, dup := index[it.Name]; !dup {
			index[it.Name] = i
		}
	}

	touched := make([]int, 0, len(outcomes))
	seen := make(map[int]bool, len(outcomes))
	for _, o := range outcomes {
		i, ok := index[o.ItemName]
		if !ok {
			continue
		}
		before := updated[i].Weight
		updated[i].Weight = a.Next(before, o)
		if updated[i].Weight != before && !seen[i] {
			seen[i] = true
			touched = append(touched, i)
		}
	}

	changed = make([]catalog.Item, 0, len(touched))
	for _, i := range touched {
		changed = append(changed, updated[i])
	}
	return updated, changed
}

// Next computes the weight that follows current for a single outcome.
func (a *Adjuster) Next(current int, o Outcome) int {
	switch {
	case o.Correct:
		return max(current-a.config.Decay, a.config.Floor)
	case strings.TrimSpace(o.Input) != "":
		return a.config.ReviewWeight
	default:
		return current
	}
}
