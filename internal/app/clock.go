package app

import (
	"sync"
	"time"
)

// ClockState is the lifecycle state of a SessionClock.
type ClockState int

const (
	ClockArmed ClockState = iota
	ClockExpired
	ClockCancelled
)

func (s ClockState) String() string {
	switch s {
	case ClockArmed:
		return "armed"
	case ClockExpired:
		return "expired"
	case ClockCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TickSource produces ticks every interval until stop is called.
type TickSource func(interval time.Duration) (ticks <-chan time.Time, stop func())

func realTicker(interval time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(interval)
	return t.C, t.Stop
}

// SessionClock bounds the wall-clock time of one quiz session.
// Armed is the initial state; Expired and Cancelled are terminal.
type SessionClock struct {
	interval time.Duration
	ticks    TickSource
	now      func() time.Time

	mu        sync.Mutex
	state     ClockState
	remaining time.Duration
	last      time.Time
	started   bool
	stop      chan struct{}
	done      chan struct{}
}

// ClockOption customizes a SessionClock.
type ClockOption func(*SessionClock)

// WithTickInterval sets the tick granularity (default 1s).
func WithTickInterval(d time.Duration) ClockOption {
	return func(c *SessionClock) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTickSource replaces the ticker, for deterministic tests.
func WithTickSource(src TickSource, now func() time.Time) ClockOption {
	return func(c *SessionClock) {
		c.ticks = src
		if now != nil {
			c.now = now
		}
	}
}

func NewSessionClock(limit time.Duration, opts ...ClockOption) *SessionClock {
	c := &SessionClock{
		interval:  time.Second,
		ticks:     realTicker,
		now:       time.Now,
		state:     ClockArmed,
		remaining: limit,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start runs the countdown. onTick receives the remaining time after every tick; onExpire is
// called at most once, when the remaining time reaches zero. Neither is called after Cancel
// has returned. Start is a no-op after the first call.
func (c *SessionClock) Start(onTick func(remaining time.Duration), onExpire func()) {
	c.mu.Lock()
	if c.started || c.state != ClockArmed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.last = c.now()
	c.mu.Unlock()

	ticks, stopTicks := c.ticks(c.interval)
	go func() {
		defer close(c.done)
		defer stopTicks()
		for {
			select {
			case <-c.stop:
				return
			case at := <-ticks:
				remaining, expired, ok := c.advance(at)
				if !ok {
					return
				}
				if expired {
					if onExpire != nil {
						onExpire()
					}
					return
				}
				if onTick != nil {
					onTick(remaining)
				}
			}
		}
	}()
}

// advance applies one tick. ok is false when the clock is no longer armed.
func (c *SessionClock) advance(at time.Time) (remaining time.Duration, expired, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ClockArmed {
		return 0, false, false
	}
	if elapsed := at.Sub(c.last); elapsed > 0 {
		c.remaining -= elapsed
		c.last = at
	}
	if c.remaining <= 0 {
		c.remaining = 0
		c.state = ClockExpired
		return 0, true, true
	}
	return c.remaining, false, true
}

// Cancel stops an armed countdown. It reports whether the clock was still armed.
func (c *SessionClock) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ClockArmed {
		return false
	}
	c.state = ClockCancelled
	close(c.stop)
	if !c.started {
		close(c.done)
	}
	return true
}

// State returns the current clock state.
func (c *SessionClock) State() ClockState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remaining returns the time left as of the last tick.
func (c *SessionClock) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Done is closed once the countdown goroutine has exited.
func (c *SessionClock) Done() <-chan struct{} {
	return c.done
}
