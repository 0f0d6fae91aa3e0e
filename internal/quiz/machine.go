// Package quiz implements the timed, fixed-length question/answer mode.
package quiz

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
	"github.com/gokatarajesh/trivia-engine/internal/matcher"
	"github.com/gokatarajesh/trivia-engine/internal/sampler"
	"github.com/gokatarajesh/trivia-engine/internal/weights"
)

// DefaultCooldown is how long a graded answer stays on screen before advancing.
const DefaultCooldown = 2500 * time.Millisecond

// Options configures a Machine. Zero values fall back to defaults.
type Options struct {
	Cooldown time.Duration
	Sampler  *sampler.Sampler
	Adjuster *weights.Adjuster
}

// Machine holds the quiz transition rules. Apply never mutates its input.
type Machine struct {
	cooldown time.Duration
	sampler  *sampler.Sampler
	adjuster *weights.Adjuster
}

func NewMachine(opts Options) *Machine {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Sampler == nil {
		opts.Sampler = sampler.New()
	}
	if opts.Adjuster == nil {
		opts.Adjuster = weights.NewAdjuster(weights.DefaultConfig())
	}
	return &Machine{
		cooldown: opts.Cooldown,
		sampler:  opts.Sampler,
		adjuster: opts.Adjuster,
	}
}

// Apply returns the session that follows ev and the effects the caller must
// run. Events that do not apply to the current phase return s unchanged and
// no effects. Only Initialize and QuickRestart can fail.
func (m *Machine) Apply(s Session, ev Event) (Session, []Effect, error) {
	switch e := ev.(type) {
	case Initialize:
		return m.initialize(e.Package, e.Settings)
	case Submit:
		if !s.acceptsInput() || strings.TrimSpace(e.Input) == "" {
			return s, nil, nil
		}
		next, effects := m.grade(s, e.Input)
		return next, effects, nil
	case Tick:
		if !s.acceptsInput() || !s.timed() {
			return s, nil, nil
		}
		s.TimeLeft--
		if s.TimeLeft > 0 {
			return s, nil, nil
		}
		s.TimeLeft = 0
		next, effects := m.grade(s, "")
		return next, effects, nil
	case Advance:
		if !s.Updating || s.Ended {
			return s, nil, nil
		}
		next, effects := m.advance(s)
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
		if s.Updating || !s.timed() {
			return s, nil, nil
		}
		return s, []Effect{StartCountdown{}}, nil
	case End:
		if !s.Started || s.Ended {
			return s, nil, nil
		}
		s.Ended = true
		s.Paused = false
		s.Updating = false
		return s, []Effect{StopCountdown{}, CancelCooldown{}, Finished{Reason: ReasonEnded}}, nil
	case QuickRestart:
		if len(s.Pool) == 0 {
			return s, nil, ErrNotInitialized
		}
		next, effects := m.seed(s, s.Pool)
		return next, effects, nil
	case Reset:
		return Session{}, []Effect{StopCountdown{}, CancelCooldown{}}, nil
	default:
		return s, nil, fmt.Errorf("unsupported quiz event %T", ev)
	}
}

func (s Session) acceptsInput() bool {
	return s.Started && !s.Ended && !s.Paused && !s.Updating
}

func (m *Machine) initialize(pkg catalog.Package, settings Settings) (Session, []Effect, error) {
	qAttr, ok := pkg.Attribute(settings.QuestionAttr)
	if !ok {
		return Session{}, nil, fmt.Errorf("question attribute %q: %w", settings.QuestionAttr, ErrUnknownAttribute)
	}
	aAttr, ok := pkg.Attribute(settings.AnswerAttr)
	if !ok {
		return Session{}, nil, fmt.Errorf("answer attribute %q: %w", settings.AnswerAttr, ErrUnknownAttribute)
	}

	if settings.Range.Ranged {
		if settings.Range.Attr == "" {
			settings.Range.Attr = pkg.Ranged
		}
		if rAttr, ok := pkg.Attribute(settings.Range.Attr); !ok || rAttr.Type != catalog.TypeNumber {
			return Session{}, nil, fmt.Errorf("range attribute %q: %w", settings.Range.Attr, ErrUnknownAttribute)
		}
	}

	var pool []catalog.Item
	for _, it := range catalog.Filter(pkg.Items, settings.Division, settings.Range) {
		_, hasQ := it.Value(qAttr.Name)
		_, hasA := it.Value(aAttr.Name)
		if hasQ && hasA {
			pool = append(pool, it)
		}
	}
	if len(pool) == 0 {
		return Session{}, nil, ErrEmptyPool
	}

	s := Session{
		Settings:     settings,
		PackageTitle: pkg.Title,
		QuestionType: qAttr.Type,
		AnswerType:   aAttr.Type,
	}
	next, effects := m.seed(s, pool)
	return next, effects, nil
}

// seed draws a fresh round from pool and resets scores and flags.
func (m *Machine) seed(s Session, pool []catalog.Item) (Session, []Effect) {
	count := s.Settings.TotalQuestions
	if count <= 0 {
		count = len(pool)
	}
	items := m.sampler.Select(pool, count)

	results := make([]Result, len(items))
	for i, it := range items {
		q, _ := it.Value(s.Settings.QuestionAttr)
		a, _ := it.Value(s.Settings.AnswerAttr)
		results[i] = Result{ItemName: it.Name, Question: q.String(), Answer: a.String()}
	}

	next := Session{
		Settings:     s.Settings,
		PackageTitle: s.PackageTitle,
		QuestionType: s.QuestionType,
		AnswerType:   s.AnswerType,
		Items:        items,
		Results:      results,
		TimeLeft:     s.Settings.TimeLimit,
		Started:      true,
		Pool:         pool,
	}
	effects := []Effect{CancelCooldown{}, StopCountdown{}}
	if next.timed() {
		effects = append(effects, StartCountdown{})
	}
	return next, effects
}

// grade records input against the current item and enters the cooldown.
func (m *Machine) grade(s Session, input string) (Session, []Effect) {
	res := s.Results[s.Index]
	var accepted []string
	if s.AnswerType == catalog.TypeString {
		accepted = s.Items[s.Index].Accepted
	}
	correct := matcher.Match(input, res.Answer, s.AnswerType, matcher.AnswerThreshold, accepted...).Correct()

	s.Results = slices.Clone(s.Results)
	s.Results[s.Index].Input = input
	s.Results[s.Index].Correct = correct
	if correct {
		s.Points++
	}
	s.Updating = true

	return s, []Effect{
		StopCountdown{},
		Graded{Index: s.Index, Input: input, Correct: correct},
		StartCooldown{After: m.cooldown},
	}
}

// advance moves to the next item, or finishes the round and rewrites weights.
func (m *Machine) advance(s Session) (Session, []Effect) {
	s.Updating = false
	if s.Index+1 < len(s.Items) {
		s.Index++
		s.TimeLeft = s.Settings.TimeLimit
		if s.Paused || !s.timed() {
			return s, nil
		}
		return s, []Effect{StartCountdown{}}
	}

	outcomes := make([]weights.Outcome, len(s.Results))
	for i, r := range s.Results {
		outcomes[i] = weights.Outcome{ItemName: r.ItemName, Correct: r.Correct, Input: r.Input}
	}
	pool, changed := m.adjuster.Adjust(s.Pool, outcomes)
	s.Pool = pool

	byName := make(map[string]int, len(changed))
	for _, it := range changed {
		byName[it.Name] = it.Weight
	}
	s.Items = slices.Clone(s.Items)
	for i := range s.Items {
		if w, ok := byName[s.Items[i].Name]; ok {
			s.Items[i].Weight = w
		}
	}

	s.Ended = true
	s.Paused = false
	return s, []Effect{
		StopCountdown{},
		PersistWeights{PackageID: s.Settings.PackageID, Items: changed},
		Finished{Reason: ReasonCompleted},
	}
}
