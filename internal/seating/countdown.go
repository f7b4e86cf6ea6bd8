package seating

import (
	"sync"
	"time"
)

// Countdown keeps one expiry deadline per holder. The deadline starts with the
// holder's first hold and is shared by every later hold until it is stopped.
type Countdown struct {
	mu       sync.Mutex
	window   time.Duration
	timers   map[string]*countdownTimer
	gen      uint64
	now      func() time.Time
	onExpire func(holderID string)
}

type countdownTimer struct {
	timer    *time.Timer
	deadline time.Time
	gen      uint64
}

func NewCountdown(window time.Duration) *Countdown {
	if window <= 0 {
		window = DefaultHoldWindow
	}

	return &Countdown{
		window: window,
		timers: make(map[string]*countdownTimer),
		now:    time.Now,
	}
}

func (c *Countdown) Window() time.Duration {
	return c.window
}

// OnExpire sets the callback run, on its own goroutine, when a deadline passes.
func (c *Countdown) OnExpire(fn func(holderID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onExpire = fn
}

// Arm starts the holder's countdown and returns its deadline. Arming a running
// countdown returns the existing deadline unchanged.
func (c *Countdown) Arm(holderID string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[holderID]; ok {
		return t.deadline
	}

	return c.start(holderID, c.window)
}

func (c *Countdown) start(holderID string, d time.Duration) time.Time {
	c.gen++
	gen := c.gen

	t := &countdownTimer{
		deadline: c.now().Add(d),
		gen:      gen,
	}
	t.timer = time.AfterFunc(d, func() {
		c.fire(holderID, gen)
	})

	c.timers[holderID] = t

	return t.deadline
}

func (c *Countdown) fire(holderID string, gen uint64) {
	c.mu.Lock()

	t, ok := c.timers[holderID]
	if !ok || t.gen != gen {
		c.mu.Unlock()
		return
	}

	delete(c.timers, holderID)
	fn := c.onExpire
	c.mu.Unlock()

	if fn != nil {
		fn(holderID)
	}
}

// Stop cancels the holder's countdown. It reports whether one was running.
func (c *Countdown) Stop(holderID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.timers[holderID]
	if !ok {
		return false
	}

	t.timer.Stop()
	delete(c.timers, holderID)

	return true
}

func (c *Countdown) Deadline(holderID string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.timers[holderID]
	if !ok {
		return time.Time{}, false
	}

	return t.deadline, true
}

// Move carries the remaining time of from over to to. A countdown already
// running for to is kept.
func (c *Countdown) Move(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.timers[from]
	if !ok {
		return
	}

	t.timer.Stop()
	delete(c.timers, from)

	if _, ok := c.timers[to]; ok {
		return
	}

	remaining := t.deadline.Sub(c.now())
	if remaining < 0 {
		remaining = 0
	}

	c.start(to, remaining)
}

func (c *Countdown) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.timers)
}

func (c *Countdown) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for holderID, t := range c.timers {
		t.timer.Stop()
		delete(c.timers, holderID)
	}
}
