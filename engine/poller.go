package engine

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultPollInterval is the delay between the end of one cycle and the start of the next.
const DefaultPollInterval = 2500 * time.Millisecond

// TickFunc runs one fetch-and-apply cycle.
type TickFunc func(ctx context.Context) error

// Poller runs a TickFunc repeatedly with a fixed delay between cycles.
//
// The delay starts when a cycle completes, so a slow backend slows polling
// down instead of piling requests up. A failed cycle is logged and the next
// one runs on schedule; there is no backoff.
type Poller struct {
	name     string
	clock    clock.Clock
	interval time.Duration
	tick     TickFunc

	failures atomic.Int64
	cycles   atomic.Int64
}

// NewPoller creates a Poller. A nil clk uses the wall clock; a non-positive
// interval uses DefaultPollInterval.
func NewPoller(name string, clk clock.Clock, interval time.Duration, tick TickFunc) *Poller {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		name:     name,
		clock:    clk,
		interval: interval,
		tick:     tick,
	}
}

// Run ticks immediately, then after every interval, until ctx is cancelled.
// It always returns nil; cancellation is the normal way to stop it.
func (p *Poller) Run(ctx context.Context) error {
	log.Printf("[poller] %s started (interval %s)", p.name, p.interval)
	defer log.Printf("[poller] %s stopped", p.name)

	for {
		if ctx.Err() != nil {
			return nil
		}

		p.runOnce(ctx)

		timer := p.clock.Timer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	p.cycles.Add(1)

	if err := p.tick(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		n := p.failures.Add(1)
		log.Printf("[poller] %s cycle failed (consecutive_failures=%d): %v", p.name, n, err)
		return
	}

	if n := p.failures.Swap(0); n > 0 {
		log.Printf("[poller] %s recovered after %d failures", p.name, n)
	}
}

// ConsecutiveFailures returns how many cycles in a row have failed.
func (p *Poller) ConsecutiveFailures() int64 {
	return p.failures.Load()
}

// Cycles returns how many cycles have run.
func (p *Poller) Cycles() int64 {
	return p.cycles.Load()
}
