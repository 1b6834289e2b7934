// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// Poll interval bounds.
const (
	MinInterval     = 100 * time.Millisecond
	MaxInterval     = 5 * time.Second
	DefaultInterval = 500 * time.Millisecond
)

// tickTotal counts poller ticks by result (run/skipped)
var tickTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_poll_ticks_total",
	Help: "Poller ticks by result",
}, []string{"result"})

// ValidateInterval returns ErrInvalidInterval when d is outside
// [MinInterval, MaxInterval].
func ValidateInterval(d time.Duration) error {
	if d < MinInterval || d > MaxInterval {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidInterval, d, MinInterval, MaxInterval)
	}
	return nil
}

// PassFunc runs one validation pass. It is called on the main loop.
type PassFunc func(ctx context.Context, now time.Time)

// Poller runs a pass on every scheduler tick, at most once per cooldown.
//
// Description:
//
//	The cooldown is half the interval, enforced with a token bucket of
//	size one. Regular ticks always pass; a stale tick that lands right
//	after a pass (for example from a registration that is being replaced)
//	is skipped.
//
// Thread Safety: Start, SetInterval and Stop are safe for concurrent use.
type Poller struct {
	sched  Scheduler
	pass   PassFunc
	logger *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	interval time.Duration
	limiter  *rate.Limiter
	cancel   func()
	skipped  int
	runs     int
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the initial interval. Validated by NewPoller.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithPollerLogger sets the logger.
func WithPollerLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPoller creates a stopped poller.
//
// Inputs:
//   - sched: Where ticks come from. Usually a *Loop.
//   - pass: The validation pass.
//   - opts: Optional interval and logger.
//
// Outputs:
//   - *Poller: The poller.
//   - error: ErrInvalidInterval if the interval is out of range.
func NewPoller(sched Scheduler, pass PassFunc, opts ...PollerOption) (*Poller, error) {
	p := &Poller{
		sched:    sched,
		pass:     pass,
		logger:   slog.Default(),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := ValidateInterval(p.interval); err != nil {
		return nil, err
	}
	p.limiter = newCooldown(p.interval)
	return p, nil
}

func newCooldown(interval time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(interval/2), 1)
}

// Start registers the pass with the scheduler. Calling Start on a running
// poller re-registers it.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctx = ctx
	p.registerLocked()
}

// SetInterval changes the interval and re-registers a running poller.
func (p *Poller) SetInterval(d time.Duration) error {
	if err := ValidateInterval(d); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
	p.limiter.SetLimit(rate.Every(d / 2))
	if p.cancel != nil {
		p.registerLocked()
	}
	return nil
}

// Interval returns the current interval.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Stop cancels the registration. The poller can be started again.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Counts returns how many ticks ran a pass and how many were skipped.
func (p *Poller) Counts() (runs, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs, p.skipped
}

func (p *Poller) registerLocked() {
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = p.sched.Schedule(p.interval, p.Tick)
	p.logger.Debug("poller registered",
		slog.String("component", "poll"),
		slog.Duration("interval", p.interval))
}

// Tick runs one pass unless the cooldown has not elapsed. It is the
// callback registered with the scheduler and must run on the main loop.
func (p *Poller) Tick(now time.Time) {
	p.mu.Lock()
	allowed := p.limiter.AllowN(now, 1)
	ctx := p.ctx
	if allowed {
		p.runs++
	} else {
		p.skipped++
	}
	p.mu.Unlock()

	if !allowed {
		tickTotal.WithLabelValues("skipped").Inc()
		return
	}
	tickTotal.WithLabelValues("run").Inc()

	if ctx == nil {
		ctx = context.Background()
	}
	p.pass(ctx, now)
}
