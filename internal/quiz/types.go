package quiz

import (
	"errors"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
)

var (
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrEmptyPool        = errors.New("no items match the selected filters")
	ErrNotInitialized   = errors.New("quiz not initialized")
)

// Settings are chosen on the quiz option screen.
type Settings struct {
	PackageID      string                 `json:"package_id"`
	QuestionAttr   string                 `json:"question_attr"`
	AnswerAttr     string                 `json:"answer_attr"`
	Division       catalog.DivisionFilter `json:"division"`
	Range          catalog.Range          `json:"range"`
	TotalQuestions int                    `json:"total_questions"`
	TimeLimit      int                    `json:"time_limit"` // seconds per question, 0 disables the countdown
}

// Result is the outcome slot for one drawn item.
type Result struct {
	ItemName string `json:"item_name"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Input    string `json:"input"`
	Correct  bool   `json:"correct"`
}

// Phase is a coarse view of the session flags.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhasePaused   Phase = "paused"
	PhaseUpdating Phase = "updating"
	PhaseEnded    Phase = "ended"
)

// Session is the state of one quiz round. Results always has one slot per item.
type Session struct {
	Settings     Settings         `json:"settings"`
	PackageTitle string           `json:"package_title"`
	QuestionType catalog.AttrType `json:"question_type"`
	AnswerType   catalog.AttrType `json:"answer_type"`
	Items        []catalog.Item   `json:"items"`
	Results      []Result         `json:"results"`
	Points       int              `json:"points"`
	Index        int              `json:"index"`
	TimeLeft     int              `json:"time_left"`
	Started      bool             `json:"started"`
	Paused       bool             `json:"paused"`
	Updating     bool             `json:"updating"`
	Ended        bool             `json:"ended"`

	// Pool is the filtered item pool; it carries adjusted weights after a
	// completed round so a quick restart samples from them.
	Pool []catalog.Item `json:"-"`
}

// Phase derives the state machine phase from the flags.
func (s Session) Phase() Phase {
	switch {
	case s.Ended:
		return PhaseEnded
	case !s.Started:
		return PhaseIdle
	case s.Paused:
		return PhasePaused
	case s.Updating:
		return PhaseUpdating
	default:
		return PhaseRunning
	}
}

// Current returns the result slot of the item being asked.
func (s Session) Current() (Result, bool) {
	if s.Index < 0 || s.Index >= len(s.Results) {
		return Result{}, false
	}
	return s.Results[s.Index], true
}

func (s Session) timed() bool {
	return s.Settings.TimeLimit > 0
}
