// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

const (
	spinnerTick = 100 * time.Millisecond

	// spinnerShowElapsed is when the elapsed time starts being shown.
	spinnerShowElapsed = time.Second
)

// Spinner draws a progress line on stderr while a slow step runs, such as
// an external image conversion. It never writes to stdout, so reports and
// machine output stay clean.
type Spinner struct {
	message string
	out     io.Writer
	started time.Time

	once    sync.Once
	stop    chan struct{}
	done    chan struct{}
	running bool
	mu      sync.Mutex
}

// NewSpinner creates a stopped spinner.
func NewSpinner(message string) *Spinner {
	_, errOut := writers()
	return &Spinner{
		message: message,
		out:     errOut,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start draws the spinner until Stop. Machine output gets a single
// PROGRESS line instead. Starting twice has no effect.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.started = time.Now()
	s.mu.Unlock()

	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(s.out, "PROGRESS: %s\n", s.message)
		close(s.done)
		return
	}

	go s.draw()
}

func (s *Spinner) draw() {
	defer close(s.done)
	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.stop:
			fmt.Fprint(s.out, "\r\033[K")
			return
		case <-ticker.C:
			line := Styles.Highlight.Render(spinnerFrames[frame%len(spinnerFrames)]) + " " + s.message
			if elapsed := time.Since(s.started); elapsed >= spinnerShowElapsed {
				line += Styles.Muted.Render(fmt.Sprintf(" (%ds)", int(elapsed.Seconds())))
			}
			fmt.Fprintf(s.out, "\r%s", line)
		}
	}
}

// Stop clears the spinner line and waits for the drawing goroutine.
func (s *Spinner) Stop() {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return
	}
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// WithSpinner runs fn behind a spinner and returns its error. Reporting
// the outcome is left to the caller.
func WithSpinner(message string, fn func() error) error {
	spin := NewSpinner(message)
	spin.Start()
	defer spin.Stop()
	return fn()
}
