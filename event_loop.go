// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spezifisch/mprisd/player"
)

// Do schedules fn onto the dispatch stream. It is how bus goroutines reach
// the shared state; the closure runs in run's loop, never concurrently with
// another handler.
func (a *app) Do(fn func()) {
	a.calls <- fn
}

// run is the single dispatch stream. Inbound calls are processed one at a
// time in arrival order, so the player, track list and playlist state need
// no locks.
func (a *app) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	statusTicker := time.NewTicker(10 * time.Second)
	defer statusTicker.Stop()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case fn := <-a.calls:
			fn()

		case msg := <-a.logger.Prints:
			// handle log output
			fmt.Println(msg)

		case <-ticker.C:
			a.player.Tick(time.Second)

		case <-statusTicker.C:
			if a.player.Status() == player.StatusPlaying {
				a.logger.Print(formatPlayerStatus(a.player.Status(), a.player.Position(), a.tracks.CurrentDuration()))
			}

		case <-sigc:
			return

		case <-a.quit:
			return
		}
	}
}
