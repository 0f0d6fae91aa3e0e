package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) (*Runner, *fakeScheduler, *[]Session) {
	t.Helper()
	sched := &fakeScheduler{}
	var snapshots []Session
	r := NewRunner(newTestMachine(), sched, func(s Session, _ []Effect) {
		snapshots = append(snapshots, s)
	})
	return r, sched, &snapshots
}

func TestRunnerDrivesCountdownAndCooldown(t *testing.T) {
	r, sched, snapshots := newTestRunner(t)

	s, err := r.Dispatch(Initialize{Package: countries(), Settings: capitalSettings(2, 3)})
	require.NoError(t, err)
	require.Len(t, sched.active(true), 1)
	assert.Equal(t, 3, s.TimeLeft)

	sched.tick()
	sched.tick()
	assert.Equal(t, 1, r.Session().TimeLeft)

	sched.tick()
	s = r.Session()
	assert.True(t, s.Updating)
	assert.Empty(t, sched.active(true), "countdown stops while grading")
	cooldowns := sched.active(false)
	require.Len(t, cooldowns, 1)
	assert.Equal(t, DefaultCooldown, cooldowns[0].after)

	sched.elapse()
	s = r.Session()
	assert.Equal(t, 1, s.Index)
	assert.Equal(t, 3, s.TimeLeft)
	assert.Len(t, sched.active(true), 1)

	assert.Len(t, *snapshots, 5, "one snapshot per applied event")
}

func TestRunnerCompletesRound(t *testing.T) {
	r, sched, _ := newTestRunner(t)
	_, err := r.Dispatch(Initialize{Package: countries(), Settings: capitalSettings(2, 10)})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		s, err := r.Dispatch(Submit{Input: r.Session().Results[i].Answer})
		require.NoError(t, err)
		require.True(t, s.Updating)
		sched.elapse()
	}

	s := r.Session()
	assert.True(t, s.Ended)
	assert.Equal(t, 2, s.Points)
	assert.Empty(t, sched.active(true))
	assert.Empty(t, sched.active(false))
}

func TestRunnerDropsStaleTimerCallbacks(t *testing.T) {
	r, sched, snapshots := newTestRunner(t)
	_, err := r.Dispatch(Initialize{Package: countries(), Settings: capitalSettings(3, 10)})
	require.NoError(t, err)

	countdown := sched.active(true)[0]
	_, err = r.Dispatch(End{})
	require.NoError(t, err)
	assert.True(t, countdown.cancelled)

	before := len(*snapshots)
	ended := r.Session()
	countdown.fn()
	assert.Equal(t, ended, r.Session(), "a cancelled countdown cannot touch an ended session")
	assert.Len(t, *snapshots, before)
}

func TestRunnerRestartReplacesTimers(t *testing.T) {
	r, sched, _ := newTestRunner(t)
	_, err := r.Dispatch(Initialize{Package: countries(), Settings: capitalSettings(3, 10)})
	require.NoError(t, err)
	first := sched.active(true)[0]

	_, err = r.Dispatch(QuickRestart{})
	require.NoError(t, err)
	assert.True(t, first.cancelled)
	assert.Len(t, sched.active(true), 1)

	first.fn()
	assert.Equal(t, 10, r.Session().TimeLeft)
}

func TestRunnerPauseResume(t *testing.T) {
	r, sched, _ := newTestRunner(t)
	_, err := r.Dispatch(Initialize{Package: countries(), Settings: capitalSettings(3, 10)})
	require.NoError(t, err)
	sched.tick()

	_, err = r.Dispatch(Pause{})
	require.NoError(t, err)
	assert.Empty(t, sched.active(true))

	_, err = r.Dispatch(Resume{})
	require.NoError(t, err)
	assert.Len(t, sched.active(true), 1)
	sched.tick()
	assert.Equal(t, 8, r.Session().TimeLeft)
}

func TestRunnerInitializeErrorKeepsSession(t *testing.T) {
	r, _, snapshots := newTestRunner(t)
	_, err := r.Dispatch(Initialize{Package: countries(), Settings: Settings{QuestionAttr: "nope", AnswerAttr: "name"}})
	assert.ErrorIs(t, err, ErrUnknownAttribute)
	assert.Equal(t, Session{}, r.Session())
	assert.Empty(t, *snapshots)
}

func TestRunnerClose(t *testing.T) {
	r, sched, _ := newTestRunner(t)
	_, err := r.Dispatch(Initialize{Package: countries(), Settings: capitalSettings(3, 10)})
	require.NoError(t, err)
	_, err = r.Dispatch(Submit{Input: "wrong"})
	require.NoError(t, err)

	r.Close()
	assert.Empty(t, sched.active(true))
	assert.Empty(t, sched.active(false))

	s, err := r.Dispatch(Submit{Input: "x"})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Index)
}
