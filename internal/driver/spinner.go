// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package driver

import (
	"fmt"
	"io"
	"os"
	"time"
)

// =============================================================================
// SPINNER
// =============================================================================

// Spinner shows an animated progress indicator while a request is in
// flight. It is purely cosmetic: it runs in its own goroutine and
// never blocks the work it decorates.
type Spinner struct {
	message  string
	out      io.Writer
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

var spinnerFrames = []string{"-", "/", "|", "\\"}

// NewSpinner creates a spinner writing to stdout.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message:  message,
		out:      os.Stdout,
		interval: 100 * time.Millisecond,
	}
}

// Start begins the animation. Call Stop to clear the line.
func (s *Spinner) Start() {
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.spin()
}

func (s *Spinner) spin() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frame := 0
	for {
		fmt.Fprintf(s.out, "\r%s %s", s.message, spinnerFrames[frame%len(spinnerFrames)])
		frame++
		select {
		case <-s.stop:
			fmt.Fprint(s.out, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Stop ends the animation and clears the line. It waits for the
// spinner goroutine, so nothing is written after Stop returns.
func (s *Spinner) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
}
