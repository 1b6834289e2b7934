// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package poll drives periodic scene validation.
//
// A host application owns its scene graph on one thread and calls plugins
// back from its main loop. Loop reproduces that model: a single goroutine
// runs every submitted function and every scheduled callback, one at a
// time. Anything that touches the scene (HTTP handlers, file watchers,
// the poller) goes through Loop.Do or Loop.Schedule.
//
// Poller registers a periodic validation pass on a Scheduler and applies a
// cooldown so that a late tick from a previous registration does not run a
// second pass back to back.
//
// Sinks receive published results: Latest keeps the most recent one for
// readers on other goroutines, Broadcast fans it out to subscribers.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Scheduler registers periodic callbacks on the host main loop.
type Scheduler interface {
	// Schedule calls cb on the main loop every interval until cancel is
	// called. Registering again with a new interval is done by cancelling
	// and scheduling anew.
	Schedule(interval time.Duration, cb func(now time.Time)) (cancel func())
}

type job struct {
	fn   func() error
	done chan error
}

// Loop is a single-goroutine executor that owns the scene graph.
//
// Thread Safety: Do and Schedule are safe for concurrent use. The functions
// they run execute sequentially on the goroutine that called Run.
type Loop struct {
	jobs    chan job
	stopped chan struct{}
	logger  *slog.Logger

	runOnce sync.Once
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLoopLogger sets the logger for recovered callback panics.
func WithLoopLogger(l *slog.Logger) LoopOption {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// NewLoop creates a Loop. Nothing executes until Run is called.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		jobs:    make(chan job),
		stopped: make(chan struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes submitted work until ctx is cancelled. It may be called once;
// later calls return ErrStopped immediately.
func (l *Loop) Run(ctx context.Context) error {
	started := false
	l.runOnce.Do(func() { started = true })
	if !started {
		return ErrStopped
	}
	defer close(l.stopped)

	for {
		select {
		case <-ctx.Done():
			return nil
		case j := <-l.jobs:
			err := l.execute(j.fn)
			if j.done != nil {
				j.done <- err
			}
		}
	}
}

// Do runs fn on the loop goroutine and waits for it.
//
// Description:
//
//	Blocks until the loop picks fn up and fn returns, ctx is done, or the
//	loop stops. A panic in fn is recovered and returned as an error
//	wrapping ErrPanicked; the loop keeps running.
//
// Outputs:
//   - error: fn's error, ErrPanicked, ErrStopped or ctx.Err().
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case l.jobs <- j:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule implements Scheduler.
//
// A tick that arrives while the loop is busy waits; ticks that pile up
// meanwhile are dropped, so callbacks never queue behind each other.
func (l *Loop) Schedule(interval time.Duration, cb func(now time.Time)) (cancel func()) {
	stop := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-l.stopped:
				return
			case now := <-ticker.C:
				j := job{fn: func() error {
					select {
					case <-stop:
						return nil
					default:
					}
					cb(now)
					return nil
				}}
				select {
				case l.jobs <- j:
				case <-stop:
					return
				case <-l.stopped:
					return
				}
			}
		}
	}()

	return func() {
		once.Do(func() { close(stop) })
	}
}

// Stopped is closed when Run returns.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}

func (l *Loop) execute(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, p)
			l.logger.Error("recovered panic on main loop",
				slog.String("component", "poll.loop"),
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	return fn()
}
