package testmode

import "github.com/gokatarajesh/trivia-engine/internal/catalog"

// Event is an input to Machine.Apply.
type Event interface{ testEvent() }

// Initialize seeds a test over the division-filtered package items.
type Initialize struct {
	Package  catalog.Package
	Settings Settings
}

// NameGuess tries to discover an item by name.
type NameGuess struct {
	Input string
}

// AttributeAnswer fills in one attribute of a discovered item.
type AttributeAnswer struct {
	ItemName      string
	AttributeName string
	Input         string
}

type SetView struct {
	View View
}

type (
	Tick         struct{}
	Pause        struct{}
	Resume       struct{}
	End          struct{}
	QuickRestart struct{}
	Reset        struct{}
)

func (Initialize) testEvent()      {}
func (NameGuess) testEvent()       {}
func (AttributeAnswer) testEvent() {}
func (SetView) testEvent()         {}
func (Tick) testEvent()            {}
func (Pause) testEvent()           {}
func (Resume) testEvent()          {}
func (End) testEvent()             {}
func (QuickRestart) testEvent()    {}
func (Reset) testEvent()           {}

// Finish reasons.
const (
	ReasonCompleted = "completed"
	ReasonTimeout   = "timeout"
	ReasonEnded     = "ended"
)

// Effect is a side effect requested by a transition.
type Effect interface{ testEffect() }

type (
	StartCountdown struct{}
	StopCountdown  struct{}
)

type Finished struct {
	Reason string
}

func (StartCountdown) testEffect() {}
func (StopCountdown) testEffect()  {}
func (Finished) testEffect()       {}
