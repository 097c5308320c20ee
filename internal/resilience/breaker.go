package resilience

import (
	"time"

	"github.com/rotisserie/eris"
)

// ErrBreakerOpen is returned while a tripped breaker is cooling down.
var ErrBreakerOpen = eris.New("resilience: breaker open")

// Breaker stops calls to a service after Threshold consecutive failures and
// lets a single probe through once Cooldown has passed.
type Breaker struct {
	Threshold int
	Cooldown  time.Duration

	failures int
	openedAt time.Time
	now      func() time.Time
}

// NewBreaker returns a closed breaker.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	return &Breaker{Threshold: threshold, Cooldown: cooldown, now: time.Now}
}

// Open reports whether calls are currently refused.
func (b *Breaker) Open() bool {
	return b.failures >= b.Threshold && b.now().Sub(b.openedAt) < b.Cooldown
}

// Allow returns ErrBreakerOpen while the breaker is open.
func (b *Breaker) Allow() error {
	if b.Open() {
		return eris.Wrapf(ErrBreakerOpen, "%d consecutive failures", b.failures)
	}
	return nil
}

// Record counts a failure or resets the count on success.
func (b *Breaker) Record(err error) {
	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.Threshold {
		b.openedAt = b.now()
	}
}

// Failures returns the current run of consecutive failures.
func (b *Breaker) Failures() int { return b.failures }
