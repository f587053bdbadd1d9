package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown drives fixed-duration media (static and animated images). Progress
// is linear over the configured duration; the expiry callback fires exactly
// once, and never after Stop.
type Countdown struct {
	clock    clockwork.Clock
	total    time.Duration
	onExpire func()

	mu        sync.Mutex
	timer     clockwork.Timer
	startedAt time.Time
	elapsed   time.Duration // accumulated across pauses
	running   bool
	expired   bool
	stopped   bool
}

func NewCountdown(clock clockwork.Clock, total time.Duration, onExpire func()) *Countdown {
	return &Countdown{
		clock:    clock,
		total:    total,
		onExpire: onExpire,
	}
}

// Start begins the countdown from zero.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.running || c.expired {
		return
	}
	c.startedAt = c.clock.Now()
	c.running = true
	c.timer = c.clock.AfterFunc(c.total-c.elapsed, c.fire)
}

// Pause stops advancement, keeping the accumulated ratio.
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.stopped || c.expired {
		return
	}
	c.elapsed += c.clock.Since(c.startedAt)
	if c.elapsed > c.total {
		c.elapsed = c.total
	}
	c.running = false
	c.timer.Stop()
}

// Resume restarts the timer with the remaining duration,
// remaining = (1 - progress) * total.
func (c *Countdown) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.stopped || c.expired {
		return
	}
	c.startedAt = c.clock.Now()
	c.running = true
	c.timer = c.clock.AfterFunc(c.total-c.elapsed, c.fire)
}

// Stop permanently disables the countdown. The expiry callback will not fire
// afterwards even if the timer goroutine already woke up.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.running = false
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Progress reports the linear ratio in [0, 1].
func (c *Countdown) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total <= 0 || c.expired {
		return 1
	}
	ratio := float64(c.elapsedLocked()) / float64(c.total)
	if ratio > 1 {
		return 1
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}

// Elapsed reports watched time across pauses.
func (c *Countdown) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expired {
		return c.total
	}
	return c.elapsedLocked()
}

func (c *Countdown) elapsedLocked() time.Duration {
	elapsed := c.elapsed
	if c.running {
		elapsed += c.clock.Since(c.startedAt)
	}
	if elapsed > c.total {
		return c.total
	}
	return elapsed
}

func (c *Countdown) fire() {
	c.mu.Lock()
	if c.stopped || c.expired || !c.running {
		c.mu.Unlock()
		return
	}
	c.expired = true
	c.running = false
	c.elapsed = c.total
	cb := c.onExpire
	c.mu.Unlock()

	if cb != nil {
		cb()
	}
}

var _ Source = (*Countdown)(nil)
