// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package player is the playback state machine: status, rate, loop mode,
// shuffle and position over the live track list. All mutation happens on the
// dispatch stream.
package player

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/spezifisch/mprisd/logger"
	"github.com/spezifisch/mprisd/tracklist"
)

const InterfaceName = "org.mpris.MediaPlayer2.Player"

type Status string

const (
	StatusPlaying Status = "Playing"
	StatusPaused  Status = "Paused"
	StatusStopped Status = "Stopped"
)

type LoopStatus string

const (
	LoopNone     LoopStatus = "None"
	LoopTrack    LoopStatus = "Track"
	LoopPlaylist LoopStatus = "Playlist"
)

// Emitter is the signal sink state changes are reported to.
// *dispatch.Dispatcher satisfies it.
type Emitter interface {
	EmitSignal(iface, name string, args ...interface{}) error
	EmitPropertiesChanged(iface string, names ...string) error
}

type Player struct {
	status   Status
	loop     LoopStatus
	rate     float64
	minRate  float64
	maxRate  float64
	shuffle  bool
	position int64 // µs into the current track

	tracks  *tracklist.Manager
	emitter Emitter
	logger  logger.LoggerInterface
}

func New(tracks *tracklist.Manager, minRate, maxRate float64, emitter Emitter, logger_ logger.LoggerInterface) *Player {
	return &Player{
		status:  StatusStopped,
		loop:    LoopNone,
		rate:    1.0,
		minRate: minRate,
		maxRate: maxRate,
		tracks:  tracks,
		emitter: emitter,
		logger:  logger_,
	}
}

// Play starts playback. Already playing, or an empty track list, is a no-op.
func (p *Player) Play() {
	if p.status == StatusPlaying || p.tracks.Len() == 0 {
		return
	}
	p.setStatus(StatusPlaying)
}

// Pause suspends playback; a no-op unless playing.
func (p *Player) Pause() {
	if p.status == StatusPlaying {
		p.setStatus(StatusPaused)
	}
}

// PlayPause toggles between Playing and Paused. From Stopped it behaves as
// Play.
func (p *Player) PlayPause() {
	switch p.status {
	case StatusPlaying:
		p.setStatus(StatusPaused)
	case StatusPaused:
		p.setStatus(StatusPlaying)
	case StatusStopped:
		p.Play()
	}
}

// Stop halts playback from any state and rewinds to the track start.
func (p *Player) Stop() {
	p.position = 0
	if p.status != StatusStopped {
		p.setStatus(StatusStopped)
	}
}

func (p *Player) Next()     { p.skip(1) }
func (p *Player) Previous() { p.skip(-1) }

// skip advances or retreats the current track per the loop mode: Track
// replays the same track, Playlist wraps around the list ends, None stops at
// a boundary.
func (p *Player) skip(delta int) {
	if p.tracks.Len() == 0 {
		return
	}
	switch p.loop {
	case LoopTrack:
		p.position = 0
	case LoopPlaylist:
		p.tracks.Step(delta, true)
		p.position = 0
	default:
		if !p.tracks.Step(delta, false) {
			p.Stop()
			return
		}
		p.position = 0
	}
}

// Seek moves the position by offset µs, clamped to the current track. The
// Seeked signal carries the clamped value even when clamping kicked in.
// Without a current track this is a signal-suppressed no-op.
func (p *Player) Seek(offset int64) {
	if _, ok := p.tracks.Current(); !ok {
		return
	}
	p.position = clamp(p.position+offset, p.tracks.CurrentDuration())
	p.emitSeeked()
}

// SetPosition jumps to position on the given track, but only if it still is
// the current track; a stale or foreign id is silently ignored.
func (p *Player) SetPosition(trackID dbus.ObjectPath, position int64) {
	if trackID != p.tracks.CurrentID() || trackID == tracklist.NoTrack {
		p.logger.Printf("SetPosition: id %s is not the current track, ignored", trackID)
		return
	}
	p.position = clamp(position, p.tracks.CurrentDuration())
	p.emitSeeked()
}

// OpenUri inserts a track for uri and switches to it. An unsupported scheme
// is reported and otherwise a no-op.
func (p *Player) OpenUri(uri string) {
	if err := p.tracks.Open(uri); err != nil {
		p.logger.PrintError("OpenUri", err)
		return
	}
	p.position = 0
}

// Rewind resets the position without touching the playback status, e.g.
// after the track list was swapped underneath us.
func (p *Player) Rewind() {
	p.position = 0
}

// Tick advances the position by dt of wall time, scaled by the playback
// rate. Crossing the end of the track behaves like Next with the current
// loop mode; the excess past the boundary carries into the next track.
func (p *Player) Tick(dt time.Duration) {
	if p.status != StatusPlaying {
		return
	}
	p.position += int64(float64(dt.Microseconds()) * p.rate)
	duration := p.tracks.CurrentDuration()
	if p.position < duration {
		return
	}
	excess := p.position - duration
	p.position = duration
	p.skip(1)
	if p.status == StatusPlaying {
		p.position = clamp(excess, p.tracks.CurrentDuration())
	}
}

func (p *Player) Status() Status         { return p.status }
func (p *Player) LoopStatus() LoopStatus { return p.loop }
func (p *Player) Rate() float64          { return p.rate }
func (p *Player) MinimumRate() float64   { return p.minRate }
func (p *Player) MaximumRate() float64   { return p.maxRate }
func (p *Player) Shuffle() bool          { return p.shuffle }
func (p *Player) Position() int64        { return p.position }

// Metadata returns the current track's metadata map.
func (p *Player) Metadata() map[string]dbus.Variant {
	return p.tracks.CurrentMetadata()
}

func (p *Player) SetLoopStatus(v string) error {
	switch LoopStatus(v) {
	case LoopNone, LoopTrack, LoopPlaylist:
		p.loop = LoopStatus(v)
		return nil
	}
	return fmt.Errorf("invalid loop status %q", v)
}

// SetRate clamps the written value to [MinimumRate, MaximumRate].
func (p *Player) SetRate(v float64) error {
	if v < p.minRate {
		v = p.minRate
	} else if v > p.maxRate {
		v = p.maxRate
	}
	p.rate = v
	return nil
}

func (p *Player) SetShuffle(v bool) error {
	p.shuffle = v
	return nil
}

func (p *Player) setStatus(status Status) {
	p.status = status
	if err := p.emitter.EmitPropertiesChanged(InterfaceName, "PlaybackStatus"); err != nil {
		p.logger.PrintError("PlaybackStatus properties", err)
	}
}

func (p *Player) emitSeeked() {
	if err := p.emitter.EmitSignal(InterfaceName, "Seeked", p.position); err != nil {
		p.logger.PrintError("Seeked", err)
	}
}

func clamp(position, duration int64) int64 {
	if position < 0 {
		return 0
	}
	if position > duration {
		return duration
	}
	return position
}
