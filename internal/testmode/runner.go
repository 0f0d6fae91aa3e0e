package testmode

import (
	"sync"
	"time"

	"github.com/gokatarajesh/trivia-engine/internal/schedule"
)

// Observer is called after every applied event while the runner lock is held.
// It must not call back into the Runner.
type Observer func(s Session, effects []Effect)

// Runner owns one test session and its continuous countdown.
type Runner struct {
	mu        sync.Mutex
	machine   *Machine
	scheduler schedule.Scheduler
	observer  Observer

	session   Session
	countdown *schedule.Token
	closed    bool
}

func NewRunner(machine *Machine, scheduler schedule.Scheduler, observer Observer) *Runner {
	return &Runner{
		machine:   machine,
		scheduler: scheduler,
		observer:  observer,
	}
}

// Dispatch applies ev and returns the resulting session.
func (r *Runner) Dispatch(ev Event) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.session, nil
	}
	return r.apply(ev)
}

func (r *Runner) Session() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Close stops the countdown. Pending callbacks become no-ops.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.stopCountdown()
}

func (r *Runner) apply(ev Event) (Session, error) {
	next, effects, err := r.machine.Apply(r.session, ev)
	if err != nil {
		return r.session, err
	}
	r.session = next
	for _, eff := range effects {
		switch eff.(type) {
		case StartCountdown:
			r.stopCountdown()
			var tok *schedule.Token
			tok = r.scheduler.Every(time.Second, func() { r.tick(&tok) })
			r.countdown = tok
		case StopCountdown:
			r.stopCountdown()
		}
	}
	if r.observer != nil {
		r.observer(next, effects)
	}
	return next, nil
}

// tick receives the token's address so it is read only under the lock.
func (r *Runner) tick(tok **schedule.Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.countdown != *tok {
		return
	}
	_, _ = r.apply(Tick{})
}

func (r *Runner) stopCountdown() {
	r.countdown.Cancel()
	r.countdown = nil
}
