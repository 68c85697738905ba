package rpc

import (
	"sync"
	"time"
)

// probeScheduler implements the liveness-probe state machine (spec
// §4.C). It holds a single timer: arming for a new originating action
// replaces any timer armed for an earlier one, so only the most
// recently armed action is probed. While that action is PROBING no
// timer is pending, so its own firings send one currentStatus probe at
// a time; fire does not check whether some other currentStatus request
// is already in flight.
//
//	IDLE    --action sent-->    ARMED
//	ARMED   --timer fires-->    PROBING
//	ARMED   --resolve/reject--> IDLE   (timer cancelled)
//	PROBING --currentStatusResult--> ARMED (re-armed)
//	PROBING --resolve/reject--> IDLE
//
// A generation counter stands in for the timer handle's identity: arm
// bumps it, disarm invalidates it, and a fired-but-superseded timer
// callback observes the mismatch and becomes a no-op.
type probeScheduler struct {
	mu         sync.Mutex
	interval   time.Duration
	generation int64
	timer      *time.Timer
	onFire     func(generation int64)
}

func newProbeScheduler(interval time.Duration, onFire func(generation int64)) *probeScheduler {
	return &probeScheduler{interval: interval, onFire: onFire}
}

// arm moves IDLE -> ARMED for a new originating action and returns the
// generation token the caller must later pass to disarm. If the probe
// is disabled (interval <= 0) no timer is started, but a token is still
// returned so disarm remains a no-op-safe call.
func (p *probeScheduler) arm() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	gen := p.generation
	if p.interval <= 0 {
		return gen
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.interval, func() { p.fire(gen) })
	return gen
}

// fire is the timer callback: ARMED -> PROBING.
func (p *probeScheduler) fire(gen int64) {
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return
	}
	// Entering PROBING: no timer is pending until rearm (on
	// currentStatusResult) or disarm (on resolve/reject) runs.
	p.timer = nil
	onFire := p.onFire
	p.mu.Unlock()

	if onFire != nil {
		onFire(gen)
	}
}

// rearm moves PROBING -> ARMED after a currentStatusResult is received
// for the still-outstanding originating action.
func (p *probeScheduler) rearm(gen int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation || p.interval <= 0 {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.interval, func() { p.fire(gen) })
}

// disarm moves ARMED or PROBING -> IDLE: cancels any pending timer and
// invalidates gen so a fired-but-not-yet-delivered callback becomes a
// no-op. Safe to call multiple times and safe to call with a stale gen.
func (p *probeScheduler) disarm(gen int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.generation++
}

// cancel unconditionally stops any pending timer, used at shutdown.
func (p *probeScheduler) cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.generation++
}

// pending reports whether a timer is currently armed (ARMED state), for
// tests that assert the scheduler's timer count. It is false while
// PROBING, since no timer is pending until rearm runs.
func (p *probeScheduler) pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}
