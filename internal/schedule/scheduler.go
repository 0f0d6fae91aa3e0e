// Package schedule provides cancellable one-shot and repeating timers.
package schedule

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler starts timers that can be stopped through the returned Token.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) *Token
	Every(d time.Duration, fn func()) *Token
}

// Token cancels a scheduled timer. Cancel is idempotent and safe on a nil token.
// Tokens are compared by identity to discard callbacks from replaced timers.
type Token struct {
	once sync.Once
	stop func()
}

// NewToken wraps a stop function.
func NewToken(stop func()) *Token {
	return &Token{stop: stop}
}

func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		if t.stop != nil {
			t.stop()
		}
	})
}

// ClockScheduler runs timers on a clock.Clock so tests can swap in clock.NewMock.
type ClockScheduler struct {
	clock clock.Clock
}

// New creates a scheduler on c, or on the wall clock when c is nil.
func New(c clock.Clock) *ClockScheduler {
	if c == nil {
		c = clock.New()
	}
	return &ClockScheduler{clock: c}
}

func (s *ClockScheduler) AfterFunc(d time.Duration, fn func()) *Token {
	timer := s.clock.AfterFunc(d, fn)
	return NewToken(func() { timer.Stop() })
}

func (s *ClockScheduler) Every(d time.Duration, fn func()) *Token {
	ticker := s.clock.Ticker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()
	return NewToken(func() {
		ticker.Stop()
		close(done)
	})
}
