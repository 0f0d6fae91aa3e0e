package testmode

import (
	"errors"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
)

var (
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrEmptyPool        = errors.New("no items match the selected division")
	ErrNotInitialized   = errors.New("test not initialized")
)

// View is the panel the player is using. All views share one session.
type View string

const (
	ViewName  View = "name"
	ViewCards View = "cards"
	ViewList  View = "list"
	ViewMap   View = "map"
)

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	switch v {
	case ViewName, ViewCards, ViewList, ViewMap:
		return true
	}
	return false
}

// Settings are chosen on the test option screen.
type Settings struct {
	PackageID  string                 `json:"package_id"`
	Attributes []string               `json:"attributes"`
	Division   catalog.DivisionFilter `json:"division"`
	TimeLimit  int                    `json:"time_limit"` // seconds; 0 uses the package test_time
}

// Result is one (item, attribute) row.
type Result struct {
	ItemName      string `json:"item_name"`
	AttributeName string `json:"attribute_name"`
	Answer        string `json:"answer"`
	Input         string `json:"input"`
	Correct       bool   `json:"correct"`
	Answered      bool   `json:"answered"`
}

// FeedbackKind classifies the last submission.
type FeedbackKind string

const (
	FeedbackFound   FeedbackKind = "found"
	FeedbackAlready FeedbackKind = "already"
	FeedbackWrong   FeedbackKind = "wrong"
	FeedbackCorrect FeedbackKind = "correct"
)

type Feedback struct {
	Kind          FeedbackKind `json:"kind"`
	ItemName      string       `json:"item_name,omitempty"`
	AttributeName string       `json:"attribute_name,omitempty"`
}

// Session is the state of one discovery test. Results holds exactly one row
// per (item, gradeable attribute) pair, item-major, created at initialize.
type Session struct {
	Settings     Settings            `json:"settings"`
	PackageTitle string              `json:"package_title"`
	Attributes   []catalog.Attribute `json:"attributes"`
	Items        []catalog.Item      `json:"-"`
	Discovered   []string            `json:"discovered"`
	Results      []Result            `json:"results"`
	PointsEarned int                 `json:"points_earned"`
	TotalPoints  int                 `json:"total_points"`
	View         View                `json:"view"`
	TimeLimit    int                 `json:"time_limit"`
	TimeLeft     int                 `json:"time_left"`
	Started      bool                `json:"started"`
	Paused       bool                `json:"paused"`
	Ended        bool                `json:"ended"`
	Feedback     *Feedback           `json:"feedback,omitempty"`
}

// IsDiscovered reports whether the named item has been found.
func (s Session) IsDiscovered(name string) bool {
	for _, d := range s.Discovered {
		if d == name {
			return true
		}
	}
	return false
}

// Row returns the index of the (item, attribute) result row, or -1.
func (s Session) Row(itemName, attrName string) int {
	attrIdx := -1
	for i, a := range s.Attributes {
		if a.Name == attrName {
			attrIdx = i
			break
		}
	}
	if attrIdx < 0 {
		return -1
	}
	for i, it := range s.Items {
		if it.Name == itemName {
			return i*len(s.Attributes) + attrIdx
		}
	}
	return -1
}

func (s Session) timed() bool {
	return s.TimeLimit > 0
}

func (s Session) acceptsInput() bool {
	return s.Started && !s.Ended && !s.Paused
}
