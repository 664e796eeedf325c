// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spezifisch/mprisd/player"
)

func TestMicrosecondsToMinAndSec(t *testing.T) {
	min, sec := microsecondsToMinAndSec(0)
	assert.Equal(t, 0, min)
	assert.Equal(t, 0, sec)

	min, sec = microsecondsToMinAndSec(42_000_000)
	assert.Equal(t, 0, min)
	assert.Equal(t, 42, sec)

	min, sec = microsecondsToMinAndSec(100_000_000)
	assert.Equal(t, 1, min)
	assert.Equal(t, 40, sec)

	// sub-second remainders truncate
	min, sec = microsecondsToMinAndSec(61_999_999)
	assert.Equal(t, 1, min)
	assert.Equal(t, 1, sec)
}

func TestFormatPlayerStatus(t *testing.T) {
	status := formatPlayerStatus(player.StatusPlaying, 42_000_000, 100_000_000)
	assert.Equal(t, "[Playing] 0:42/1:40", status)

	status = formatPlayerStatus(player.StatusPaused, 0, 5_000_000)
	assert.Equal(t, "[Paused] 0:00/0:05", status)
}
