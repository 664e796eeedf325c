// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package tracklist owns the ordered sequence of playable tracks with stable
// per-track identifiers. All mutation happens on the dispatch stream; the
// Manager carries no locks.
package tracklist

import (
	"errors"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/spezifisch/mprisd/logger"
)

const (
	InterfaceName       = "org.mpris.MediaPlayer2.TrackList"
	playerInterfaceName = "org.mpris.MediaPlayer2.Player"
)

var ErrInvalidTrackId = errors.New("no track with this id in the track list")

// Emitter is the signal sink structural changes are reported to.
// *dispatch.Dispatcher satisfies it.
type Emitter interface {
	EmitSignal(iface, name string, args ...interface{}) error
	EmitPropertiesChanged(iface string, names ...string) error
}

// ParseStatus aggregates the outcome of a bulk source parse. Malformed
// entries are skipped and counted instead of failing the whole parse.
type ParseStatus struct {
	Entries int
	Skipped int
}

func (s ParseStatus) OK() bool { return s.Skipped == 0 }

type Manager struct {
	tracks  []Track
	current int // index into tracks, -1 when no current track
	schemes []string
	meta    *resolveCache
	emitter Emitter
	logger  logger.LoggerInterface

	lastParse ParseStatus
}

func NewManager(schemes []string, emitter Emitter, logger_ logger.LoggerInterface) *Manager {
	return &Manager{
		current: -1,
		schemes: schemes,
		meta:    newResolveCache(256, resolveURI, logger_),
		emitter: emitter,
		logger:  logger_,
	}
}

func (m *Manager) checkScheme(uri string) error {
	scheme, err := uriScheme(uri)
	if err != nil {
		return err
	}
	for _, s := range m.schemes {
		if s == scheme {
			return nil
		}
	}
	return errors.New("unsupported URI scheme " + scheme)
}

// LoadText replaces the whole list from its textual source, one URI per
// line, blank lines ignored. Malformed entries are skipped and counted.
// The first track becomes current.
func (m *Manager) LoadText(text string) ParseStatus {
	var uris []string
	var skipped int
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := m.checkScheme(line); err != nil {
			m.logger.Printf("skipping track list entry: %s", err)
			skipped++
			continue
		}
		uris = append(uris, line)
	}
	return m.replaceAll(uris, skipped)
}

// ReplaceAllURIs replaces the whole list from already-split URIs, e.g. when
// a playlist is activated.
func (m *Manager) ReplaceAllURIs(uris []string) ParseStatus {
	var kept []string
	var skipped int
	for _, uri := range uris {
		if err := m.checkScheme(uri); err != nil {
			m.logger.Printf("skipping track list entry: %s", err)
			skipped++
			continue
		}
		kept = append(kept, uri)
	}
	return m.replaceAll(kept, skipped)
}

func (m *Manager) replaceAll(uris []string, skipped int) ParseStatus {
	m.tracks = make([]Track, 0, len(uris))
	for _, uri := range uris {
		m.tracks = append(m.tracks, newTrack(uri))
	}
	m.current = -1
	if len(m.tracks) > 0 {
		m.current = 0
	}
	m.lastParse = ParseStatus{Entries: len(m.tracks), Skipped: skipped}
	m.notifyReplaced()
	m.notifyCurrentChanged()
	return m.lastParse
}

// Text serializes the list back to its textual source form.
func (m *Manager) Text() string {
	var b strings.Builder
	for _, t := range m.tracks {
		b.WriteString(t.uri)
		b.WriteByte('\n')
	}
	return b.String()
}

// LastParseStatus reports the outcome of the most recent bulk parse.
func (m *Manager) LastParseStatus() ParseStatus { return m.lastParse }

func (m *Manager) Len() int { return len(m.tracks) }

// IDs returns the ordered track ids.
func (m *Manager) IDs() []dbus.ObjectPath {
	ids := make([]dbus.ObjectPath, len(m.tracks))
	for i, t := range m.tracks {
		ids[i] = t.id
	}
	return ids
}

// CurrentID returns the current track's id, or NoTrack.
func (m *Manager) CurrentID() dbus.ObjectPath {
	if m.current < 0 {
		return NoTrack
	}
	return m.tracks[m.current].id
}

// Current returns the current track, if any.
func (m *Manager) Current() (Track, bool) {
	if m.current < 0 {
		return Track{}, false
	}
	return m.tracks[m.current], true
}

// CurrentDuration returns the current track's length in µs, 0 without one.
func (m *Manager) CurrentDuration() int64 {
	if m.current < 0 {
		return 0
	}
	return m.meta.Get(m.tracks[m.current].uri).duration
}

// CurrentMetadata returns the current track's metadata map, empty without a
// current track.
func (m *Manager) CurrentMetadata() map[string]dbus.Variant {
	if m.current < 0 {
		return map[string]dbus.Variant{}
	}
	t := m.tracks[m.current]
	return metadataMap(t, m.meta.Get(t.uri))
}

// MetadataFor resolves metadata per id, omitting unknown ids from the result
// instead of failing the whole call.
func (m *Manager) MetadataFor(ids []dbus.ObjectPath) []map[string]dbus.Variant {
	metadatas := make([]map[string]dbus.Variant, 0, len(ids))
	for _, id := range ids {
		if idx := m.indexOf(id); idx >= 0 {
			t := m.tracks[idx]
			metadatas = append(metadatas, metadataMap(t, m.meta.Get(t.uri)))
		}
	}
	return metadatas
}

func (m *Manager) indexOf(id dbus.ObjectPath) int {
	for i, t := range m.tracks {
		if t.id == id {
			return i
		}
	}
	return -1
}

// Add inserts a new track after the track with the given anchor id, or at
// the head when the anchor is NoTrack. An unknown anchor appends at the end.
func (m *Manager) Add(uri string, after dbus.ObjectPath, setAsCurrent bool) error {
	if err := m.checkScheme(uri); err != nil {
		return err
	}

	pos := len(m.tracks)
	if after == NoTrack {
		pos = 0
	} else if idx := m.indexOf(after); idx >= 0 {
		pos = idx + 1
	} else {
		m.logger.Printf("AddTrack: unknown anchor %s, appending", after)
	}

	t := newTrack(uri)
	m.tracks = append(m.tracks, Track{})
	copy(m.tracks[pos+1:], m.tracks[pos:])
	m.tracks[pos] = t

	if setAsCurrent {
		m.current = pos
	} else if m.current >= pos {
		m.current++
	}

	m.notifyReplaced()
	if setAsCurrent {
		m.notifyCurrentChanged()
	}
	return nil
}

// Remove drops the track with the given id and invalidates the id
// permanently. Unknown ids are a no-op.
func (m *Manager) Remove(id dbus.ObjectPath) {
	idx := m.indexOf(id)
	if idx < 0 {
		m.logger.Printf("RemoveTrack: unknown id %s ignored", id)
		return
	}
	removedCurrent := idx == m.current

	m.tracks = append(m.tracks[:idx], m.tracks[idx+1:]...)
	if idx < m.current {
		m.current--
	} else if removedCurrent {
		// the following track takes over, if there is one
		if m.current >= len(m.tracks) {
			m.current = len(m.tracks) - 1
		}
	}

	m.notifyReplaced()
	if removedCurrent {
		m.notifyCurrentChanged()
	}
}

// GoTo makes the track with the given id current.
func (m *Manager) GoTo(id dbus.ObjectPath) error {
	idx := m.indexOf(id)
	if idx < 0 {
		return ErrInvalidTrackId
	}
	m.current = idx
	m.notifyCurrentChanged()
	return nil
}

// Open appends a track for uri and makes it current.
func (m *Manager) Open(uri string) error {
	if err := m.checkScheme(uri); err != nil {
		return err
	}
	m.tracks = append(m.tracks, newTrack(uri))
	m.current = len(m.tracks) - 1
	m.notifyReplaced()
	m.notifyCurrentChanged()
	return nil
}

// Step moves the current track reference by delta positions. With wrap it
// cycles around the ends; without, it reports false at a boundary and leaves
// the reference as-is. An empty list always reports false; a list without a
// current track starts at the first.
func (m *Manager) Step(delta int, wrap bool) bool {
	if len(m.tracks) == 0 {
		return false
	}
	if m.current < 0 {
		m.current = 0
		m.notifyCurrentChanged()
		return true
	}
	idx := m.current + delta
	if idx >= len(m.tracks) {
		if !wrap {
			return false
		}
		idx %= len(m.tracks)
	}
	if idx < 0 {
		if !wrap {
			return false
		}
		idx = (idx%len(m.tracks) + len(m.tracks)) % len(m.tracks)
	}
	m.current = idx
	m.notifyCurrentChanged()
	return true
}

func (m *Manager) notifyReplaced() {
	if err := m.emitter.EmitSignal(InterfaceName, "TrackListReplaced", m.IDs(), m.CurrentID()); err != nil {
		m.logger.PrintError("TrackListReplaced", err)
	}
	if err := m.emitter.EmitPropertiesChanged(InterfaceName, "Tracks"); err != nil {
		m.logger.PrintError("TrackListReplaced properties", err)
	}
}

func (m *Manager) notifyCurrentChanged() {
	if err := m.emitter.EmitPropertiesChanged(playerInterfaceName, "Metadata"); err != nil {
		m.logger.PrintError("current track properties", err)
	}
}
