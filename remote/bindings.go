// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

package remote

import (
	"github.com/godbus/dbus/v5"

	"github.com/spezifisch/mprisd/playlists"
)

// register fills the dispatcher's registration table: one bound function per
// descriptor member. Bind checks completeness afterwards, so a member
// missing here fails at startup, not at dispatch time.
func (m *Mpris) register() {
	d := m.d

	// org.mpris.MediaPlayer2

	d.HandleMethod(RootInterface, "Raise", func([]interface{}) ([]interface{}, error) {
		m.app.Raise()
		return nil, nil
	})
	d.HandleMethod(RootInterface, "Quit", func([]interface{}) ([]interface{}, error) {
		m.app.Quit()
		return nil, nil
	})

	d.HandleProperty(RootInterface, "CanQuit", func() interface{} { return true }, nil)
	d.HandleProperty(RootInterface, "Fullscreen",
		func() interface{} { return m.app.Fullscreen() },
		func(v interface{}) error {
			m.app.SetFullscreen(v.(bool))
			return nil
		})
	d.HandleProperty(RootInterface, "CanRaise", func() interface{} { return false }, nil)
	d.HandleProperty(RootInterface, "HasTrackList", func() interface{} { return true }, nil)
	d.HandleProperty(RootInterface, "Identity", func() interface{} { return m.app.Identity() }, nil)
	d.HandleProperty(RootInterface, "DesktopEntry", func() interface{} { return m.app.DesktopEntry() }, nil)
	d.HandleProperty(RootInterface, "SupportedUriSchemes", func() interface{} { return m.app.SupportedUriSchemes() }, nil)
	d.HandleProperty(RootInterface, "SupportedMimeTypes", func() interface{} { return m.app.SupportedMimeTypes() }, nil)

	// org.mpris.MediaPlayer2.Player

	d.HandleMethod(PlayerInterface, "Next", func([]interface{}) ([]interface{}, error) {
		m.player.Next()
		return nil, nil
	})
	d.HandleMethod(PlayerInterface, "Previous", func([]interface{}) ([]interface{}, error) {
		m.player.Previous()
		return nil, nil
	})
	d.HandleMethod(PlayerInterface, "Pause", func([]interface{}) ([]interface{}, error) {
		m.player.Pause()
		return nil, nil
	})
	d.HandleMethod(PlayerInterface, "PlayPause", func([]interface{}) ([]interface{}, error) {
		m.player.PlayPause()
		return nil, nil
	})
	d.HandleMethod(PlayerInterface, "Stop", func([]interface{}) ([]interface{}, error) {
		m.player.Stop()
		return nil, nil
	})
	d.HandleMethod(PlayerInterface, "Play", func([]interface{}) ([]interface{}, error) {
		m.player.Play()
		return nil, nil
	})
	d.HandleMethod(PlayerInterface, "Seek", func(args []interface{}) ([]interface{}, error) {
		m.player.Seek(args[0].(int64))
		return nil, nil
	})
	d.HandleMethod(PlayerInterface, "SetPosition", func(args []interface{}) ([]interface{}, error) {
		m.player.SetPosition(args[0].(dbus.ObjectPath), args[1].(int64))
		return nil, nil
	})
	d.HandleMethod(PlayerInterface, "OpenUri", func(args []interface{}) ([]interface{}, error) {
		m.player.OpenUri(args[0].(string))
		return nil, nil
	})

	d.HandleProperty(PlayerInterface, "PlaybackStatus", func() interface{} { return string(m.player.Status()) }, nil)
	d.HandleProperty(PlayerInterface, "LoopStatus",
		func() interface{} { return string(m.player.LoopStatus()) },
		func(v interface{}) error { return m.player.SetLoopStatus(v.(string)) })
	d.HandleProperty(PlayerInterface, "Rate",
		func() interface{} { return m.player.Rate() },
		func(v interface{}) error { return m.player.SetRate(v.(float64)) })
	d.HandleProperty(PlayerInterface, "Shuffle",
		func() interface{} { return m.player.Shuffle() },
		func(v interface{}) error { return m.player.SetShuffle(v.(bool)) })
	d.HandleProperty(PlayerInterface, "Metadata", func() interface{} { return m.player.Metadata() }, nil)
	d.HandleProperty(PlayerInterface, "Position", func() interface{} { return m.player.Position() }, nil)
	d.HandleProperty(PlayerInterface, "MinimumRate", func() interface{} { return m.player.MinimumRate() }, nil)
	d.HandleProperty(PlayerInterface, "MaximumRate", func() interface{} { return m.player.MaximumRate() }, nil)
	d.HandleProperty(PlayerInterface, "CanGoNext", func() interface{} { return true }, nil)
	d.HandleProperty(PlayerInterface, "CanGoPrevious", func() interface{} { return true }, nil)
	d.HandleProperty(PlayerInterface, "CanPlay", func() interface{} { return true }, nil)
	d.HandleProperty(PlayerInterface, "CanPause", func() interface{} { return true }, nil)
	d.HandleProperty(PlayerInterface, "CanSeek", func() interface{} { return true }, nil)
	d.HandleProperty(PlayerInterface, "CanControl", func() interface{} { return true }, nil)

	// org.mpris.MediaPlayer2.TrackList

	d.HandleMethod(TrackListInterface, "GetTracksMetadata", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{m.tracks.MetadataFor(args[0].([]dbus.ObjectPath))}, nil
	})
	d.HandleMethod(TrackListInterface, "AddTrack", func(args []interface{}) ([]interface{}, error) {
		before := m.tracks.CurrentID()
		if err := m.tracks.Add(args[0].(string), args[1].(dbus.ObjectPath), args[2].(bool)); err != nil {
			return nil, err
		}
		m.rewindIfCurrentChanged(before)
		return nil, nil
	})
	d.HandleMethod(TrackListInterface, "RemoveTrack", func(args []interface{}) ([]interface{}, error) {
		before := m.tracks.CurrentID()
		m.tracks.Remove(args[0].(dbus.ObjectPath))
		m.rewindIfCurrentChanged(before)
		return nil, nil
	})
	d.HandleMethod(TrackListInterface, "GoTo", func(args []interface{}) ([]interface{}, error) {
		before := m.tracks.CurrentID()
		if err := m.tracks.GoTo(args[0].(dbus.ObjectPath)); err != nil {
			return nil, err
		}
		m.rewindIfCurrentChanged(before)
		return nil, nil
	})

	d.HandleProperty(TrackListInterface, "Tracks", func() interface{} { return m.tracks.IDs() }, nil)
	d.HandleProperty(TrackListInterface, "CanEditTracks", func() interface{} { return true }, nil)

	// org.mpris.MediaPlayer2.Playlists

	d.HandleMethod(PlaylistsInterface, "ActivatePlaylist", func(args []interface{}) ([]interface{}, error) {
		return nil, m.activatePlaylist(args[0].(dbus.ObjectPath))
	})
	d.HandleMethod(PlaylistsInterface, "GetPlaylists", func(args []interface{}) ([]interface{}, error) {
		entries, err := m.lists.Get(args[0].(uint32), args[1].(uint32), args[2].(string), args[3].(bool))
		if err != nil {
			return nil, err
		}
		return []interface{}{entries}, nil
	})

	d.HandleProperty(PlaylistsInterface, "PlaylistCount", func() interface{} { return m.lists.Count() }, nil)
	d.HandleProperty(PlaylistsInterface, "Orderings", func() interface{} { return playlists.Orderings }, nil)
	d.HandleProperty(PlaylistsInterface, "ActivePlaylist", func() interface{} { return m.lists.Active() }, nil)
}

// rewindIfCurrentChanged resets the playback position after a track-list
// operation moved the current track reference; the position must never
// outlive the track it was taken on.
func (m *Mpris) rewindIfCurrentChanged(before dbus.ObjectPath) {
	if m.tracks.CurrentID() != before {
		m.player.Rewind()
	}
}

// activatePlaylist swaps the live track list for the activated playlist's
// tracks. The first track becomes current and playback rewinds; the playback
// status itself is untouched.
func (m *Mpris) activatePlaylist(id dbus.ObjectPath) error {
	pl, err := m.lists.Activate(id)
	if err != nil {
		return err
	}
	if status := m.tracks.ReplaceAllURIs(pl.URIs()); !status.OK() {
		m.logger.Printf("playlist %s: %d of %d tracks unusable",
			pl.Name(), status.Skipped, status.Skipped+status.Entries)
	}
	m.player.Rewind()
	return nil
}
