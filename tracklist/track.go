// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

package tracklist

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

const trackIDPrefix = "/org/mpris/MediaPlayer2/mprisd/Track/"

// NoTrack is the sentinel path meaning "no track". It doubles as the
// AddTrack anchor for inserting at the head of the list.
const NoTrack = dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")

// Demo tracks carry no real media, so they get a fixed nominal length unless
// the URI says otherwise.
const defaultDuration = int64(100_000_000) // µs

// Track is one entry of the track list. The id is unique within the current
// list and is never reused: ids are minted from random UUIDs, so a removed
// track's id stays invalid forever.
type Track struct {
	id  dbus.ObjectPath
	uri string
}

func newTrack(uri string) Track {
	id := trackIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	return Track{id: dbus.ObjectPath(id), uri: uri}
}

func (t Track) ID() dbus.ObjectPath { return t.id }
func (t Track) URI() string         { return t.uri }

// trackMeta is what resolving a track URI yields.
type trackMeta struct {
	title    string
	artist   string
	duration int64 // µs
}

// resolveURI derives metadata from a track URI of the form
// scheme://host?artist=A&track=T&length=µs. Missing fields fall back to
// "Unknown" and the default duration.
func resolveURI(uri string) (trackMeta, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return trackMeta{}, fmt.Errorf("track URI %q: %w", uri, err)
	}
	meta := trackMeta{title: "Unknown", artist: "Unknown", duration: defaultDuration}
	q := u.Query()
	if v := q.Get("track"); v != "" {
		meta.title = v
	}
	if v := q.Get("artist"); v != "" {
		meta.artist = v
	}
	if v := q.Get("length"); v != "" {
		length, err := strconv.ParseInt(v, 10, 64)
		if err != nil || length < 0 {
			return trackMeta{}, fmt.Errorf("track URI %q: bad length %q", uri, v)
		}
		meta.duration = length
	}
	return meta, nil
}

func uriScheme(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("track URI %q: %w", uri, err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("track URI %q: no scheme", uri)
	}
	return u.Scheme, nil
}

// metadataMap builds the variant map for one resolved track, with the keys
// the MPRIS metadata contract names.
func metadataMap(t Track, meta trackMeta) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(t.id),
		"mpris:length":  dbus.MakeVariant(meta.duration),
		"xesam:url":     dbus.MakeVariant(t.uri),
		"xesam:title":   dbus.MakeVariant(meta.title),
		"xesam:artist":  dbus.MakeVariant([]string{meta.artist}),
	}
}
