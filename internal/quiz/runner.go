package quiz

import (
	"sync"
	"time"

	"github.com/gokatarajesh/trivia-engine/internal/schedule"
)

// Observer is called after every applied event, while the runner lock is
// held, so snapshots arrive in order. It must not call back into the Runner.
type Observer func(s Session, effects []Effect)

// Runner owns one quiz session: it serializes events and turns countdown and
// cooldown effects into scheduler timers.
type Runner struct {
	mu        sync.Mutex
	machine   *Machine
	scheduler schedule.Scheduler
	observer  Observer

	session   Session
	countdown *schedule.Token
	cooldown  *schedule.Token
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

// Session returns the current snapshot.
func (r *Runner) Session() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Close stops all timers. Pending callbacks become no-ops.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.stopCountdown()
	r.stopCooldown()
}

func (r *Runner) apply(ev Event) (Session, error) {
	next, effects, err := r.machine.Apply(r.session, ev)
	if err != nil {
		return r.session, err
	}
	r.session = next
	for _, eff := range effects {
		r.run(eff)
	}
	if r.observer != nil {
		r.observer(next, effects)
	}
	return next, nil
}

func (r *Runner) run(eff Effect) {
	switch e := eff.(type) {
	case StartCountdown:
		r.stopCountdown()
		var tok *schedule.Token
		tok = r.scheduler.Every(time.Second, func() { r.fire(func() bool { return r.countdown == tok }, Tick{}) })
		r.countdown = tok
	case StopCountdown:
		r.stopCountdown()
	case StartCooldown:
		r.stopCooldown()
		var tok *schedule.Token
		tok = r.scheduler.AfterFunc(e.After, func() {
			r.fire(func() bool {
				if r.cooldown != tok {
					return false
				}
				r.cooldown = nil
				return true
			}, Advance{})
		})
		r.cooldown = tok
	case CancelCooldown:
		r.stopCooldown()
	}
}

// fire applies ev from a timer callback if current still reports the timer live.
func (r *Runner) fire(current func() bool, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !current() {
		return
	}
	_, _ = r.apply(ev)
}

func (r *Runner) stopCountdown() {
	r.countdown.Cancel()
	r.countdown = nil
}

func (r *Runner) stopCooldown() {
	r.cooldown.Cancel()
	r.cooldown = nil
}
