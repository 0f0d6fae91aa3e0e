package quiz

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
	"github.com/gokatarajesh/trivia-engine/internal/sampler"
	"github.com/gokatarajesh/trivia-engine/internal/schedule"
	"github.com/gokatarajesh/trivia-engine/internal/weights"
)

func countries() catalog.Package {
	item := func(name, capital, continent string, pop float64, accepted ...string) catalog.Item {
		return catalog.Item{
			ID:       name,
			Name:     name,
			Weight:   30,
			Accepted: accepted,
			Attrs: map[string]catalog.Value{
				"capital":    catalog.StringValue(capital),
				"continent":  catalog.StringValue(continent),
				"population": catalog.NumberValue(pop),
			},
		}
	}
	return catalog.Package{
		ID:    "countries",
		Name:  "countries",
		Title: "Countries",
		Attributes: []catalog.Attribute{
			{Name: "name", Title: "Name", Type: catalog.TypeString, Question: true, Answer: true},
			{Name: "capital", Title: "Capital", Type: catalog.TypeString, Question: true, Answer: true},
			{Name: "population", Title: "Population", Type: catalog.TypeNumber, Answer: true},
		},
		Divisions: []catalog.Division{{Name: "continent", Options: []catalog.DivisionOption{{Name: "Europe"}, {Name: "Asia"}}}},
		Items: []catalog.Item{
			item("France", "Paris", "Europe", 67),
			item("Japan", "Tokyo", "Asia", 125),
			item("United Kingdom", "London", "Europe", 67, "UK", "Britain"),
			item("Iceland", "Reykjavik", "Europe", 0.4),
			item("Nepal", "Kathmandu", "Asia", 30),
		},
	}
}

func newTestMachine() *Machine {
	return NewMachine(Options{
		Sampler:  sampler.NewWithSource(rand.NewSource(1)),
		Adjuster: weights.NewAdjuster(weights.DefaultConfig()),
	})
}

func capitalSettings(total, timeLimit int) Settings {
	return Settings{
		PackageID:      "countries",
		QuestionAttr:   "name",
		AnswerAttr:     "capital",
		TotalQuestions: total,
		TimeLimit:      timeLimit,
	}
}

func mustInit(t *testing.T, m *Machine, settings Settings) Session {
	t.Helper()
	s, _, err := m.Apply(Session{}, Initialize{Package: countries(), Settings: settings})
	require.NoError(t, err)
	return s
}

func hasEffect[T Effect](effects []Effect) bool {
	for _, e := range effects {
		if _, ok := e.(T); ok {
			return true
		}
	}
	return false
}

func effectOf[T Effect](effects []Effect) (T, bool) {
	for _, e := range effects {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// fakeScheduler records timers and fires them only when a test asks.
type fakeScheduler struct {
	timers []*fakeTimer
}

type fakeTimer struct {
	after     time.Duration
	repeat    bool
	fn        func()
	cancelled bool
}

func (f *fakeScheduler) AfterFunc(d time.Duration, fn func()) *schedule.Token {
	t := &fakeTimer{after: d, fn: fn}
	f.timers = append(f.timers, t)
	return schedule.NewToken(func() { t.cancelled = true })
}

func (f *fakeScheduler) Every(d time.Duration, fn func()) *schedule.Token {
	t := &fakeTimer{after: d, repeat: true, fn: fn}
	f.timers = append(f.timers, t)
	return schedule.NewToken(func() { t.cancelled = true })
}

func (f *fakeScheduler) active(repeat bool) []*fakeTimer {
	var out []*fakeTimer
	for _, t := range f.timers {
		if !t.cancelled && t.repeat == repeat {
			out = append(out, t)
		}
	}
	return out
}

// tick fires every live repeating timer once.
func (f *fakeScheduler) tick() {
	for _, t := range f.active(true) {
		if !t.cancelled {
			t.fn()
		}
	}
}

// elapse fires every live one-shot timer.
func (f *fakeScheduler) elapse() {
	for _, t := range f.active(false) {
		if !t.cancelled {
			t.cancelled = true
			t.fn()
		}
	}
}
