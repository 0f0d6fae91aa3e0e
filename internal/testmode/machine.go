// Package testmode implements the open-ended discovery test: players find
// items by name, then fill in attribute answers for the items they found.
package testmode

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
	"github.com/gokatarajesh/trivia-engine/internal/matcher"
)

// Options configures grading thresholds. Zero values use the matcher defaults.
type Options struct {
	NameThreshold   float64
	AnswerThreshold float64
}

// Machine holds the test transition rules. Apply never mutates its input.
type Machine struct {
	nameThreshold   float64
	answerThreshold float64
}

func NewMachine(opts Options) *Machine {
	if opts.NameThreshold <= 0 {
		opts.NameThreshold = matcher.NameThreshold
	}
	if opts.AnswerThreshold <= 0 {
		opts.AnswerThreshold = matcher.AnswerThreshold
	}
	return &Machine{nameThreshold: opts.NameThreshold, answerThreshold: opts.AnswerThreshold}
}

// Apply returns the session that follows ev and the effects the caller must
// run. Events that do not apply return s unchanged with no effects.
func (m *Machine) Apply(s Session, ev Event) (Session, []Effect, error) {
	switch e := ev.(type) {
	case Initialize:
		return m.initialize(e.Package, e.Settings)
	case NameGuess:
		if !s.acceptsInput() || strings.TrimSpace(e.Input) == "" {
			return s, nil, nil
		}
		next, effects := m.guessName(s, e.Input)
		return next, effects, nil
	case AttributeAnswer:
		if !s.acceptsInput() || strings.TrimSpace(e.Input) == "" {
			return s, nil, nil
		}
		next, effects := m.answerAttribute(s, e)
		return next, effects, nil
	case SetView:
		if !e.View.Valid() || (!s.Started && !s.Ended) {
			return s, nil, nil
		}
		s.View = e.View
		return s, nil, nil
	case Tick:
		if !s.acceptsInput() || !s.timed() {
			return s, nil, nil
		}
		s.TimeLeft--
		if s.TimeLeft > 0 {
			return s, nil, nil
		}
		s.TimeLeft = 0
		next, effects := end(s, ReasonTimeout)
		return next, effects, nil
	case Pause:
		if !s.Started || s.Ended || s.Paused {
			return s, nil, nil
		}
		s.Paused = true
		return s, []Effect{StopCountdown{}}, nil
	case Resume:
		if !s.Paused || s.Ended {
			return s, nil, nil
		}
		s.Paused = false
		if !s.timed() {
			return s, nil, nil
		}
		return s, []Effect{StartCountdown{}}, nil
	case End:
		if !s.Started || s.Ended {
			return s, nil, nil
		}
		next, effects := end(s, ReasonEnded)
		return next, effects, nil
	case QuickRestart:
		if len(s.Items) == 0 {
			return s, nil, ErrNotInitialized
		}
		next, effects := seed(s)
		return next, effects, nil
	case Reset:
		return Session{}, []Effect{StopCountdown{}}, nil
	default:
		return s, nil, fmt.Errorf("unsupported test event %T", ev)
	}
}

func (m *Machine) initialize(pkg catalog.Package, settings Settings) (Session, []Effect, error) {
	nameAttr, _ := pkg.Attribute(catalog.NameAttr)
	attrs := []catalog.Attribute{nameAttr}
	for _, name := range settings.Attributes {
		if name == catalog.NameAttr || slices.ContainsFunc(attrs, func(a catalog.Attribute) bool { return a.Name == name }) {
			continue
		}
		attr, ok := pkg.Attribute(name)
		if !ok {
			return Session{}, nil, fmt.Errorf("attribute %q: %w", name, ErrUnknownAttribute)
		}
		if attr.Gradeable() {
			attrs = append(attrs, attr)
		}
	}

	items := catalog.Filter(pkg.Items, settings.Division, catalog.Range{})
	if len(items) == 0 {
		return Session{}, nil, ErrEmptyPool
	}

	limit := settings.TimeLimit
	if limit <= 0 {
		limit = pkg.TestTime
	}

	next, effects := seed(Session{
		Settings:     settings,
		PackageTitle: pkg.Title,
		Attributes:   attrs,
		Items:        items,
		TimeLimit:    limit,
	})
	return next, effects, nil
}

// seed rebuilds results and discovery for the session's items and attributes.
func seed(s Session) (Session, []Effect) {
	results := make([]Result, 0, len(s.Items)*len(s.Attributes))
	for _, it := range s.Items {
		for _, attr := range s.Attributes {
			v, _ := it.Value(attr.Name)
			results = append(results, Result{ItemName: it.Name, AttributeName: attr.Name, Answer: v.String()})
		}
	}

	next := Session{
		Settings:     s.Settings,
		PackageTitle: s.PackageTitle,
		Attributes:   s.Attributes,
		Items:        s.Items,
		Discovered:   []string{},
		Results:      results,
		TotalPoints:  len(results),
		View:         ViewName,
		TimeLimit:    s.TimeLimit,
		TimeLeft:     s.TimeLimit,
		Started:      true,
	}
	effects := []Effect{StopCountdown{}}
	if next.timed() {
		effects = append(effects, StartCountdown{})
	}
	return next, effects
}

// guessName scans the pool in order. The first matching item not yet
// discovered wins; when every match is already discovered the last one
// scanned is reported.
func (m *Machine) guessName(s Session, input string) (Session, []Effect) {
	found, already := -1, -1
	for i, it := range s.Items {
		if !matcher.Match(input, it.Name, catalog.TypeString, m.nameThreshold, it.Accepted...).Correct() {
			continue
		}
		if !s.IsDiscovered(it.Name) {
			found = i
			break
		}
		already = i
	}

	switch {
	case found >= 0:
		name := s.Items[found].Name
		s.Discovered = append(slices.Clone(s.Discovered), name)
		s.Results = slices.Clone(s.Results)
		if row := s.Row(name, catalog.NameAttr); row >= 0 {
			s.Results[row].Input = input
			s.Results[row].Correct = true
			s.Results[row].Answered = true
		}
		s.Feedback = &Feedback{Kind: FeedbackFound, ItemName: name}
		return settle(s)
	case already >= 0:
		s.Feedback = &Feedback{Kind: FeedbackAlready, ItemName: s.Items[already].Name}
		return s, nil
	default:
		s.Feedback = &Feedback{Kind: FeedbackWrong}
		return s, nil
	}
}

// answerAttribute grades a fill-in answer. Correct rows never change again.
func (m *Machine) answerAttribute(s Session, e AttributeAnswer) (Session, []Effect) {
	if e.AttributeName == catalog.NameAttr || !s.IsDiscovered(e.ItemName) {
		return s, nil
	}
	row := s.Row(e.ItemName, e.AttributeName)
	if row < 0 || s.Results[row].Correct {
		return s, nil
	}

	var typ catalog.AttrType
	for _, a := range s.Attributes {
		if a.Name == e.AttributeName {
			typ = a.Type
		}
	}
	correct := matcher.Match(e.Input, s.Results[row].Answer, typ, m.answerThreshold).Correct()

	s.Results = slices.Clone(s.Results)
	s.Results[row].Input = e.Input
	s.Results[row].Answered = true
	s.Results[row].Correct = correct

	kind := FeedbackWrong
	if correct {
		kind = FeedbackCorrect
	}
	s.Feedback = &Feedback{Kind: kind, ItemName: e.ItemName, AttributeName: e.AttributeName}
	return settle(s)
}

// settle recounts points and ends the test on full completion.
func settle(s Session) (Session, []Effect) {
	points := 0
	for _, r := range s.Results {
		if r.Correct {
			points++
		}
	}
	s.PointsEarned = points
	if s.TotalPoints > 0 && s.PointsEarned == s.TotalPoints {
		return end(s, ReasonCompleted)
	}
	return s, nil
}

func end(s Session, reason string) (Session, []Effect) {
	s.Ended = true
	s.Started = false
	s.Paused = false
	return s, []Effect{StopCountdown{}, Finished{Reason: reason}}
}
