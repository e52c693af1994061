package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"
)

// ErrGuardOpen is returned while the guard is cooling down.
var ErrGuardOpen = errors.New("llm temporarily disabled after repeated failures")

// Guard counts consecutive failures and disables calls for a cooldown
// once maxFailures is reached.
type Guard struct {
	mu            sync.Mutex
	maxFailures   int
	cooldown      time.Duration
	failures      int
	disabledUntil time.Time
	now           func() time.Time
}

// NewGuard creates a guard. maxFailures <= 0 never trips.
func NewGuard(maxFailures int, cooldown time.Duration) *Guard {
	return &Guard{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

func (g *Guard) Allow() bool {
	if g == nil {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disabledUntil.IsZero() {
		return true
	}
	return g.now().After(g.disabledUntil)
}

func (g *Guard) RecordFailure() {
	if g == nil || g.maxFailures <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures++
	if g.failures >= g.maxFailures {
		g.disabledUntil = g.now().Add(g.cooldown)
	}
}

func (g *Guard) RecordSuccess() {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = 0
	g.disabledUntil = time.Time{}
}

func (g *Guard) DisabledUntil() time.Time {
	if g == nil {
		return time.Time{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disabledUntil
}

func (g *Guard) Failures() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures
}

// GuardedClient fails fast while its guard is open.
type GuardedClient struct {
	next  StreamClient
	guard *Guard
}

// NewGuardedClient wraps next with guard.
func NewGuardedClient(next StreamClient, guard *Guard) *GuardedClient {
	return &GuardedClient{next: next, guard: guard}
}

// StreamText forwards to the wrapped client. A stream that ends with an error
// counts as a failure; one that completes, or is abandoned by the consumer,
// counts as a success. Cancellation of ctx is not held against the backend.
func (c *GuardedClient) StreamText(ctx context.Context, req TextRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !c.guard.Allow() {
			yield("", fmt.Errorf("%w until %s", ErrGuardOpen, c.guard.DisabledUntil().Format(time.RFC3339)))
			return
		}

		for fragment, err := range c.next.StreamText(ctx, req) {
			if err != nil {
				if ctx.Err() == nil {
					c.guard.RecordFailure()
				}
				yield("", err)
				return
			}
			if !yield(fragment, nil) {
				c.guard.RecordSuccess()
				return
			}
		}
		c.guard.RecordSuccess()
	}
}
