package race

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// tickInterval is how often the countdown re-reads the wall clock. Each
// tick recomputes remaining time from the fixed deadline, so missed ticks
// (scheduler stalls, process suspension) never desynchronize the countdown.
const tickInterval = 250 * time.Millisecond

// Countdown converts one absolute start deadline into a locally ticking
// remaining-time stream. It is armed exactly once, ticks until the deadline
// passes, emits a final zero, and stops.
type Countdown struct {
	clock    clockwork.Clock
	deadline time.Time

	updates chan time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// NewCountdown arms a countdown against an absolute deadline and starts
// ticking immediately.
func NewCountdown(clock clockwork.Clock, deadline time.Time) *Countdown {
	c := &Countdown{
		clock:    clock,
		deadline: deadline,
		updates:  make(chan time.Duration, 4),
		stop:     make(chan struct{}),
	}
	go c.run()
	return c
}

// Updates streams remaining durations, never negative and non-increasing.
// The final value is exactly zero; the channel is closed after it.
func (c *Countdown) Updates() <-chan time.Duration { return c.updates }

// Stop cancels the countdown. Idempotent.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Countdown) run() {
	defer close(c.updates)

	ticker := c.clock.NewTicker(tickInterval)
	defer ticker.Stop()

	if c.emit() {
		return
	}
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.Chan():
			if c.emit() {
				return
			}
		}
	}
}

// emit recomputes remaining time from the deadline and publishes it.
// Intermediate values may be dropped if the consumer lags; the terminal
// zero is always delivered.
func (c *Countdown) emit() (done bool) {
	remaining := c.deadline.Sub(c.clock.Now())
	if remaining <= 0 {
		select {
		case c.updates <- 0:
		case <-c.stop:
		}
		return true
	}
	select {
	case c.updates <- remaining:
	default:
	}
	return false
}

// WholeSeconds rounds a remaining duration up to display seconds, so a
// countdown armed 5s out reads 5 until the clock actually advances and
// reaches 0 only at the deadline.
func WholeSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
