// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package playlists owns the collection of named, ordered playlists and the
// active-playlist pointer. The source representation is YAML, an ordered
// list of {name, tracks} records.
package playlists

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/spezifisch/mprisd/logger"
)

const InterfaceName = "org.mpris.MediaPlayer2.Playlists"

const playlistIDPrefix = "/org/mpris/MediaPlayer2/mprisd/Playlist/"

// Orderings is the fixed set of supported GetPlaylists orderings, advertised
// through the Orderings property. CreationDate is store insertion order.
var Orderings = []string{"Alphabetical", "CreationDate"}

var ErrInvalidPlaylistId = errors.New("no playlist with this id")

// Emitter is the signal sink playlist changes are reported to.
// *dispatch.Dispatcher satisfies it.
type Emitter interface {
	EmitSignal(iface, name string, args ...interface{}) error
	EmitPropertiesChanged(iface string, names ...string) error
}

// Entry is the wire tuple (id, display name, icon URI) describing one
// playlist. We never carry icons, so Icon stays empty.
type Entry struct {
	ID   dbus.ObjectPath
	Name string
	Icon string
}

// Active is the wire value of the ActivePlaylist property: a validity flag
// plus the entry it refers to when valid.
type Active struct {
	Valid    bool
	Playlist Entry
}

type Playlist struct {
	id   dbus.ObjectPath
	name string
	uris []string
	seq  int
}

func (p *Playlist) ID() dbus.ObjectPath { return p.id }
func (p *Playlist) Name() string        { return p.name }

// URIs returns a copy of the playlist's ordered track URIs.
func (p *Playlist) URIs() []string {
	uris := make([]string, len(p.uris))
	copy(uris, p.uris)
	return uris
}

func (p *Playlist) entry() Entry {
	return Entry{ID: p.id, Name: p.name, Icon: ""}
}

// ParseStatus aggregates the outcome of a bulk source parse.
type ParseStatus struct {
	Entries int
	Skipped int
	Err     error // set when the document as a whole did not parse
}

func (s ParseStatus) OK() bool { return s.Err == nil && s.Skipped == 0 }

// playlistDoc is the YAML shape of one playlist record.
type playlistDoc struct {
	Name   string   `yaml:"name"`
	Tracks []string `yaml:"tracks"`
}

type Store struct {
	lists   []*Playlist
	active  int // index into lists, -1 when none
	nextSeq int
	emitter Emitter
	logger  logger.LoggerInterface

	lastParse ParseStatus
}

func NewStore(emitter Emitter, logger_ logger.LoggerInterface) *Store {
	return &Store{active: -1, emitter: emitter, logger: logger_}
}

// LoadText replaces the collection from its YAML source. Records that fail
// to decode, or that lack a name, are skipped and counted; the store keeps
// whatever parsed successfully. A document-level parse failure leaves the
// collection unchanged and is reported through the status.
func (s *Store) LoadText(text string) ParseStatus {
	var nodes []yaml.Node
	if err := yaml.Unmarshal([]byte(text), &nodes); err != nil {
		s.lastParse = ParseStatus{Err: fmt.Errorf("playlist source: %w", err)}
		s.logger.PrintError("playlist parse", s.lastParse.Err)
		return s.lastParse
	}

	var status ParseStatus
	lists := make([]*Playlist, 0, len(nodes))
	for i := range nodes {
		var doc playlistDoc
		if err := nodes[i].Decode(&doc); err != nil {
			s.logger.Printf("skipping playlist record %d: %s", i, err)
			status.Skipped++
			continue
		}
		if strings.TrimSpace(doc.Name) == "" {
			s.logger.Printf("skipping playlist record %d: no name", i)
			status.Skipped++
			continue
		}
		lists = append(lists, s.newPlaylist(doc.Name, doc.Tracks))
		status.Entries++
	}

	s.lists = lists
	s.active = -1
	s.lastParse = status
	s.notifyCollectionChanged()
	return status
}

func (s *Store) newPlaylist(name string, uris []string) *Playlist {
	id := playlistIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	p := &Playlist{
		id:   dbus.ObjectPath(id),
		name: name,
		uris: append([]string(nil), uris...),
		seq:  s.nextSeq,
	}
	s.nextSeq++
	return p
}

// Text serializes the collection back to its YAML source form. Re-parsing
// the result reproduces the same ordered (name, track URIs) records, with
// fresh identifiers.
func (s *Store) Text() string {
	docs := make([]playlistDoc, len(s.lists))
	for i, p := range s.lists {
		docs[i] = playlistDoc{Name: p.name, Tracks: p.URIs()}
	}
	out, err := yaml.Marshal(docs)
	if err != nil {
		s.logger.PrintError("playlist serialize", err)
		return ""
	}
	return string(out)
}

// LastParseStatus reports the outcome of the most recent LoadText.
func (s *Store) LastParseStatus() ParseStatus { return s.lastParse }

func (s *Store) Count() uint32 { return uint32(len(s.lists)) }

// Get returns up to maxCount entries starting at index into the collection
// sorted by order, direction reversed on request. An index beyond the
// collection yields an empty result, not an error.
func (s *Store) Get(index, maxCount uint32, order string, reverseOrder bool) ([]Entry, error) {
	sorted := make([]*Playlist, len(s.lists))
	copy(sorted, s.lists)
	switch order {
	case "Alphabetical":
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })
	case "CreationDate":
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].seq < sorted[j].seq })
	default:
		return nil, fmt.Errorf("unsupported playlist ordering %q", order)
	}
	if reverseOrder {
		for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
			sorted[i], sorted[j] = sorted[j], sorted[i]
		}
	}

	entries := make([]Entry, 0, maxCount)
	for i := int(index); i < len(sorted) && len(entries) < int(maxCount); i++ {
		entries = append(entries, sorted[i].entry())
	}
	return entries, nil
}

// Activate makes the playlist with the given id active and returns it so the
// caller can load its tracks.
func (s *Store) Activate(id dbus.ObjectPath) (*Playlist, error) {
	for i, p := range s.lists {
		if p.id == id {
			s.active = i
			if err := s.emitter.EmitSignal(InterfaceName, "PlaylistChanged", p.entry()); err != nil {
				s.logger.PrintError("PlaylistChanged", err)
			}
			if err := s.emitter.EmitPropertiesChanged(InterfaceName, "ActivePlaylist"); err != nil {
				s.logger.PrintError("ActivePlaylist properties", err)
			}
			return p, nil
		}
	}
	return nil, ErrInvalidPlaylistId
}

// Active returns the active-playlist wire value. Without an active playlist
// the entry is the conventional invalid placeholder.
func (s *Store) Active() Active {
	if s.active < 0 {
		return Active{Valid: false, Playlist: Entry{ID: "/", Name: "", Icon: ""}}
	}
	return Active{Valid: true, Playlist: s.lists[s.active].entry()}
}

func (s *Store) notifyCollectionChanged() {
	if err := s.emitter.EmitPropertiesChanged(InterfaceName, "PlaylistCount", "ActivePlaylist"); err != nil {
		s.logger.PrintError("playlist properties", err)
	}
}
