// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

package remote

// ControlledApp is the application shell driven by the root
// org.mpris.MediaPlayer2 interface.
type ControlledApp interface {
	Identity() string
	DesktopEntry() string
	SupportedUriSchemes() []string
	SupportedMimeTypes() []string

	Fullscreen() bool
	SetFullscreen(v bool)

	Raise()
	Quit()
}

// Runner schedules a function onto the application's single dispatch stream.
// Calls arriving on bus goroutines are funneled through it so no two handler
// invocations ever run concurrently against the shared state.
type Runner interface {
	Do(fn func())
}
