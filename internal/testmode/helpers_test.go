package testmode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
	"github.com/gokatarajesh/trivia-engine/internal/schedule"
)

func africaAndFrance() catalog.Package {
	item := func(name, capital, continent string, pop float64, accepted ...string) catalog.Item {
		return catalog.Item{
			Name:     name,
			Weight:   1,
			Accepted: accepted,
			Attrs: map[string]catalog.Value{
				"capital":    catalog.StringValue(capital),
				"continent":  catalog.StringValue(continent),
				"population": catalog.NumberValue(pop),
				"flag":       catalog.ImageValue(name + ".png"),
			},
		}
	}
	return catalog.Package{
		ID:       "countries",
		Title:    "Countries",
		TestTime: 300,
		Attributes: []catalog.Attribute{
			{Name: "name", Title: "Name", Type: catalog.TypeString},
			{Name: "capital", Title: "Capital", Type: catalog.TypeString},
			{Name: "population", Title: "Population", Type: catalog.TypeNumber},
			{Name: "flag", Title: "Flag", Type: catalog.TypeImage},
		},
		Items: []catalog.Item{
			item("Republic of the Congo", "Brazzaville", "Africa", 6, "Congo"),
			item("Democratic Republic of the Congo", "Kinshasa", "Africa", 100, "Congo", "DRC"),
			item("France", "Paris", "Europe", 67),
		},
	}
}

func allAttrs() Settings {
	return Settings{PackageID: "countries", Attributes: []string{"capital", "population", "flag", "name"}}
}

func mustInit(t *testing.T, m *Machine, pkg catalog.Package, settings Settings) Session {
	t.Helper()
	s, _, err := m.Apply(Session{}, Initialize{Package: pkg, Settings: settings})
	require.NoError(t, err)
	return s
}

func apply(t *testing.T, m *Machine, s Session, events ...Event) Session {
	t.Helper()
	for _, ev := range events {
		var err error
		s, _, err = m.Apply(s, ev)
		require.NoError(t, err)
	}
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

type fakeScheduler struct {
	timers []*fakeTimer
}

type fakeTimer struct {
	fn        func()
	cancelled bool
}

func (f *fakeScheduler) AfterFunc(_ time.Duration, fn func()) *schedule.Token {
	return f.add(fn)
}

func (f *fakeScheduler) Every(_ time.Duration, fn func()) *schedule.Token {
	return f.add(fn)
}

func (f *fakeScheduler) add(fn func()) *schedule.Token {
	t := &fakeTimer{fn: fn}
	f.timers = append(f.timers, t)
	return schedule.NewToken(func() { t.cancelled = true })
}

func (f *fakeScheduler) live() []*fakeTimer {
	var out []*fakeTimer
	for _, t := range f.timers {
		if !t.cancelled {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeScheduler) tick() {
	for _, t := range f.live() {
		if !t.cancelled {
			t.fn()
		}
	}
}
