package quiz

import (
	"time"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
)

// Event is an input to Machine.Apply.
type Event interface{ quizEvent() }

// Initialize starts a new round from a package.
type Initialize struct {
	Package  catalog.Package
	Settings Settings
}

// Submit grades the player's answer for the current item.
type Submit struct {
	Input string
}

// Tick decrements the per-question countdown by one second.
type Tick struct{}

// Advance closes the grading cooldown.
type Advance struct{}

type (
	Pause        struct{}
	Resume       struct{}
	End          struct{}
	QuickRestart struct{}
	Reset        struct{}
)

func (Initialize) quizEvent()   {}
func (Submit) quizEvent()       {}
func (Tick) quizEvent()         {}
func (Advance) quizEvent()      {}
func (Pause) quizEvent()        {}
func (Resume) quizEvent()       {}
func (End) quizEvent()          {}
func (QuickRestart) quizEvent() {}
func (Reset) quizEvent()        {}

// Finish reasons.
const (
	ReasonCompleted = "completed"
	ReasonEnded     = "ended"
)

// Effect is a side effect requested by a transition.
type Effect interface{ quizEffect() }

type (
	StartCountdown struct{}
	StopCountdown  struct{}
	CancelCooldown struct{}
)

// StartCooldown schedules an Advance after the grading display pause.
type StartCooldown struct {
	After time.Duration
}

// Graded reports the verdict for one submission.
type Graded struct {
	Index   int
	Input   string
	Correct bool
}

// PersistWeights carries the items whose weight changed at round end.
type PersistWeights struct {
	PackageID string
	Items     []catalog.Item
}

type Finished struct {
	Reason string
}

func (StartCountdown) quizEffect() {}
func (StopCountdown) quizEffect()  {}
func (StartCooldown) quizEffect()  {}
func (CancelCooldown) quizEffect() {}
func (Graded) quizEffect()         {}
func (PersistWeights) quizEffect() {}
func (Finished) quizEffect()       {}
