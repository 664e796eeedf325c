// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"

	"github.com/spezifisch/mprisd/player"
)

func microsecondsToMinAndSec(us int64) (int, int) {
	seconds := us / 1_000_000
	return int(seconds / 60), int(seconds % 60)
}

func formatPlayerStatus(status player.Status, position, duration int64) string {
	posMin, posSec := microsecondsToMinAndSec(position)
	durMin, durSec := microsecondsToMinAndSec(duration)
	return fmt.Sprintf("[%s] %d:%02d/%d:%02d", status, posMin, posSec, durMin, durSec)
}
