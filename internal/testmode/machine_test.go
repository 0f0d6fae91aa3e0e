package testmode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
)

func TestInitializeSeedsOneRowPerPair(t *testing.T) {
	m := NewMachine(Options{})
	s, effects, err := m.Apply(Session{}, Initialize{Package: africaAndFrance(), Settings: allAttrs()})
	require.NoError(t, err)

	names := []string{}
	for _, a := range s.Attributes {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"name", "capital", "population"}, names, "name comes first and images are not gradeable")

	require.Len(t, s.Results, 9)
	assert.Equal(t, 9, s.TotalPoints)
	assert.Equal(t, 0, s.PointsEarned)
	assert.Empty(t, s.Discovered)
	assert.Equal(t, ViewName, s.View)
	assert.Equal(t, 300, s.TimeLeft, "falls back to the package test time")
	assert.True(t, s.Started)
	assert.True(t, hasEffect[StartCountdown](effects))

	seen := map[[2]string]bool{}
	for _, r := range s.Results {
		key := [2]string{r.ItemName, r.AttributeName}
		assert.False(t, seen[key], "duplicate row %v", key)
		seen[key] = true
		assert.False(t, r.Answered)
		assert.False(t, r.Correct)
		assert.Empty(t, r.Input)
	}
	assert.Equal(t, "Kinshasa", s.Results[s.Row("Democratic Republic of the Congo", "capital")].Answer)
	assert.Equal(t, "67", s.Results[s.Row("France", "population")].Answer)
}

func TestInitializeDivisionOnly(t *testing.T) {
	m := NewMachine(Options{})
	settings := allAttrs()
	settings.Division = catalog.DivisionFilter{Division: "continent", Option: "Europe"}
	settings.TimeLimit = 60

	s := mustInit(t, m, africaAndFrance(), settings)
	require.Len(t, s.Items, 1)
	assert.Equal(t, "France", s.Items[0].Name)
	assert.Equal(t, 3, s.TotalPoints)
	assert.Equal(t, 60, s.TimeLeft)
}

func TestInitializeErrors(t *testing.T) {
	m := NewMachine(Options{})

	_, _, err := m.Apply(Session{}, Initialize{Package: africaAndFrance(), Settings: Settings{Attributes: []string{"gdp"}}})
	assert.ErrorIs(t, err, ErrUnknownAttribute)

	settings := allAttrs()
	settings.Division = catalog.DivisionFilter{Division: "continent", Option: "Oceania"}
	_, _, err = m.Apply(Session{}, Initialize{Package: africaAndFrance(), Settings: settings})
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestNameGuessDiscovers(t *testing.T) {
	m := NewMachine(Options{})
	s := mustInit(t, m, africaAndFrance(), allAttrs())

	s, effects, err := m.Apply(s, NameGuess{Input: "france"})
	require.NoError(t, err)
	assert.Nil(t, effects)
	assert.Equal(t, []string{"France"}, s.Discovered)
	assert.Equal(t, 1, s.PointsEarned)
	assert.Equal(t, &Feedback{Kind: FeedbackFound, ItemName: "France"}, s.Feedback)

	row := s.Results[s.Row("France", "name")]
	assert.True(t, row.Correct)
	assert.True(t, row.Answered)
	assert.Equal(t, "france", row.Input)
}

func TestNameGuessAlreadyFoundIsIdempotent(t *testing.T) {
	m := NewMachine(Options{})
	s := mustInit(t, m, africaAndFrance(), allAttrs())
	s = apply(t, m, s, NameGuess{Input: "France"})

	again := apply(t, m, s, NameGuess{Input: "FRANCE"})
	assert.Equal(t, &Feedback{Kind: FeedbackAlready, ItemName: "France"}, again.Feedback)
	assert.Len(t, again.Discovered, 1)
	assert.Equal(t, 1, again.PointsEarned)
	assert.Equal(t, s.Results, again.Results)
}

func TestNameGuessWrong(t *testing.T) {
	m := NewMachine(Options{})
	s := mustInit(t, m, africaAndFrance(), allAttrs())

	next := apply(t, m, s, NameGuess{Input: "Germany"})
	assert.Equal(t, &Feedback{Kind: FeedbackWrong}, next.Feedback)
	assert.Empty(t, next.Discovered)
	assert.Equal(t, 0, next.PointsEarned)
}

func TestNameGuessBlankIgnored(t *testing.T) {
	m := NewMachine(Options{})
	s := mustInit(t, m, africaAndFrance(), allAttrs())

	next, effects, err := m.Apply(s, NameGuess{Input: "  "})
	require.NoError(t, err)
	assert.Nil(t, effects)
	assert.Equal(t, s, next)
}

func TestNameGuessSharedAlternate(t *testing.T) {
	m := NewMachine(Options{})
	s := mustInit(t, m, africaAndFrance(), allAttrs())

	// discover the second Congo first through its own alternate
	s = apply(t, m, s, NameGuess{Input: "DRC"})
	assert.Equal(t, []string{"Democratic Republic of the Congo"}, s.Discovered)

	// the first undiscovered match in pool order wins
	s = apply(t, m, s, NameGuess{Input: "congo"})
	assert.Equal(t, FeedbackFound, s.Feedback.Kind)
	assert.Equal(t, "Republic of the Congo", s.Feedback.ItemName)

	// with every match discovered, the last one scanned is reported
	s = apply(t, m, s, NameGuess{Input: "congo"})
	assert.Equal(t, FeedbackAlready, s.Feedback.Kind)
	assert.Equal(t, "Democratic Republic of the Congo", s.Feedback.ItemName)
	assert.Len(t, s.Discovered, 2)
	assert.Equal(t, 2, s.PointsEarned)
}

func TestAttributeAnswerRequiresDiscovery(t *testing.T) {
	m := NewMachine(Options{})
	s := mustInit(t, m, africaAndFrance(), allAttrs())

	next := apply(t, m, s, AttributeAnswer{ItemName: "France", AttributeName: "capital", Input: "Paris"})
	assert.Equal(t, s, next)
}

func TestAttributeAnswerRatchet(t *testing.T) {
	m := NewMachine(Options{})
	s := mustInit(t, m, africaAndFrance(), allAttrs())
	s = apply(t, m, s, NameGuess{Input: "France"})

	s = apply(t, m, s, AttributeAnswer{ItemName: "France", AttributeName: "capital", Input: "Lyon"})
	row := s.Results[s.Row("France", "capital")]
	assert.True(t, row.Answered)
	assert.False(t, row.Correct)
	assert.Equal(t, "Lyon", row.Input)
	assert.Equal(t, FeedbackWrong, s.Feedback.Kind)
	assert.Equal(t, 1, s.PointsEarned)

	s = apply(t, m, s, AttributeAnswer{ItemName: "France", AttributeName: "capital", Input: "paris"})
	row = s.Results[s.Row("France", "capital")]
	assert.True(t, row.Correct)
	assert.Equal(t, "paris", row.Input)
	assert.Equal(t, &Feedback{Kind: FeedbackCorrect, ItemName: "France", AttributeName: "capital"}, s.Feedback)
	assert.Equal(t, 2, s.PointsEarned)

	locked := apply(t, m, s, AttributeAnswer{ItemName: "France", AttributeName: "capital", Input: "Marseille"})
	assert.Equal(t, s, locked, "correct rows are immutable")
}

func TestAttributeAnswerNumeric(t *testing.T) {
	m := NewMachine(Options{})
	s := mustInit(t, m, africaAndFrance(), allAttrs())
	s = apply(t, m, s,
		NameGuess{Input: "France"},
		AttributeAnswer{ItemName: "France", AttributeName: "population", Input: "67.0"},
	)
	assert.True(t, s.Results[s.Row("France", "population")].Correct)
}

func TestAttributeAnswerIgnoresNameAndUnknownAttributes(t *testing.T) {
	m := NewMachine(Options{})
	s := mustInit(t, m, africaAndFrance(), allAttrs())
	s = apply(t, m, s, NameGuess{Input: "France"})

	assert.Equal(t, s, apply(t, m, s, AttributeAnswer{ItemName: "France", AttributeName: "name", Input: "France"}))
	assert.Equal(t, s, apply(t, m, s, AttributeAnswer{ItemName: "France", AttributeName: "flag", Input: "France.png"}))
	assert.Equal(t, s, apply(t, m, s, AttributeAnswer{ItemName: "France", AttributeName: "capital", Input: " "}))
}

func TestSetViewIsAProjection(t *testing.T) {
	m := NewMachine(Options{})
	s := mustInit(t, m, africaAndFrance(), allAttrs())
	s = apply(t, m, s, NameGuess{Input: "France"})

	for _, v := range []View{ViewCards, ViewList, ViewMap, ViewName} {
		next := apply(t, m, s, SetView{View: v})
		assert.Equal(t, v, next.View)
		assert.Equal(t, s.Results, next.Results)
		assert.Equal(t, s.Discovered, next.Discovered)
		assert.Equal(t, s.PointsEarned, next.PointsEarned)
	}

	assert.Equal(t, s, apply(t, m, s, SetView{View: "globe"}))
}

func TestFullCompletionEndsTest(t *testing.T) {
	m := NewMachine(Options{})
	settings := Settings{Attributes: []string{"capital", "population"}, Division: catalog.DivisionFilter{Division: "continent", Option: "Europe"}}
	s := mustInit(t, m, africaAndFrance(), settings)

	s = apply(t, m, s,
		NameGuess{Input: "France"},
		AttributeAnswer{ItemName: "France", AttributeName: "capital", Input: "Paris"},
	)
	require.False(t, s.Ended)

	s, effects, err := m.Apply(s, AttributeAnswer{ItemName: "France", AttributeName: "population", Input: "67"})
	require.NoError(t, err)
	assert.True(t, s.Ended)
	assert.False(t, s.Started)
	assert.Equal(t, s.TotalPoints, s.PointsEarned)
	assert.Equal(t, []Effect{StopCountdown{}, Finished{Reason: ReasonCompleted}}, effects)
}

func TestCountdownForcesEnd(t *testing.T) {
	m := NewMachine(Options{})
	settings := allAttrs()
	settings.TimeLimit = 2
	s := mustInit(t, m, africaAndFrance(), settings)

	s, effects, _ := m.Apply(s, Tick{})
	assert.Equal(t, 1, s.TimeLeft)
	assert.Nil(t, effects)

	s, effects, _ = m.Apply(s, Tick{})
	assert.True(t, s.Ended)
	assert.Equal(t, 0, s.TimeLeft)
	assert.Equal(t, []Effect{StopCountdown{}, Finished{Reason: ReasonTimeout}}, effects)

	after, effects, _ := m.Apply(s, Tick{})
	assert.Nil(t, effects)
	assert.Equal(t, s, after)
}

func TestPauseSuspendsCountdownAndInput(t *testing.T) {
	m := NewMachine(Options{})
	settings := allAttrs()
	settings.TimeLimit = 10
	s := mustInit(t, m, africaAndFrance(), settings)

	s, effects, _ := m.Apply(s, Pause{})
	assert.Equal(t, []Effect{StopCountdown{}}, effects)

	paused := s
	s = apply(t, m, s, Tick{}, NameGuess{Input: "France"})
	assert.Equal(t, paused, s)

	s, effects, _ = m.Apply(s, Resume{})
	assert.Equal(t, []Effect{StartCountdown{}}, effects)
	assert.Equal(t, 10, s.TimeLeft)
}

func TestEndTest(t *testing.T) {
	m := NewMachine(Options{})
	s := mustInit(t, m, africaAndFrance(), allAttrs())
	s = apply(t, m, s, NameGuess{Input: "France"})

	s, effects, err := m.Apply(s, End{})
	require.NoError(t, err)
	assert.True(t, s.Ended)
	assert.False(t, s.Started)
	assert.Equal(t, 1, s.PointsEarned)
	assert.Equal(t, []Effect{StopCountdown{}, Finished{Reason: ReasonEnded}}, effects)

	assert.Equal(t, s, apply(t, m, s, NameGuess{Input: "congo"}))
	summary := apply(t, m, s, SetView{View: ViewList})
	assert.Equal(t, ViewList, summary.View, "views stay switchable on the results screen")
}

func TestQuickRestartKeepsSelection(t *testing.T) {
	m := NewMachine(Options{})
	settings := allAttrs()
	settings.Division = catalog.DivisionFilter{Division: "continent", Option: "Africa"}
	s := mustInit(t, m, africaAndFrance(), settings)
	s = apply(t, m, s,
		NameGuess{Input: "DRC"},
		SetView{View: ViewMap},
		End{},
	)

	s, effects, err := m.Apply(s, QuickRestart{})
	require.NoError(t, err)
	assert.True(t, s.Started)
	assert.False(t, s.Ended)
	assert.Empty(t, s.Discovered)
	assert.Equal(t, ViewName, s.View)
	assert.Equal(t, 0, s.PointsEarned)
	assert.Equal(t, 6, s.TotalPoints)
	assert.Len(t, s.Items, 2)
	assert.Len(t, s.Attributes, 3)
	assert.Nil(t, s.Feedback)
	assert.True(t, hasEffect[StartCountdown](effects))
	for _, r := range s.Results {
		assert.False(t, r.Answered)
	}
}

func TestQuickRestartRequiresSession(t *testing.T) {
	m := NewMachine(Options{})
	_, _, err := m.Apply(Session{}, QuickRestart{})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestUntimedTest(t *testing.T) {
	m := NewMachine(Options{})
	pkg := africaAndFrance()
	pkg.TestTime = 0

	s, effects, err := m.Apply(Session{}, Initialize{Package: pkg, Settings: allAttrs()})
	require.NoError(t, err)
	assert.False(t, hasEffect[StartCountdown](effects))

	next, effects, _ := m.Apply(s, Tick{})
	assert.Nil(t, effects)
	assert.Equal(t, s, next)
}

func TestReset(t *testing.T) {
	m := NewMachine(Options{})
	s := mustInit(t, m, africaAndFrance(), allAttrs())

	s, effects, err := m.Apply(s, Reset{})
	require.NoError(t, err)
	assert.Equal(t, Session{}, s)
	assert.Equal(t, []Effect{StopCountdown{}}, effects)
}
