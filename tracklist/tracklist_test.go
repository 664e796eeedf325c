// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

package tracklist

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"

	"github.com/spezifisch/mprisd/logger"
)

type recordedSignal struct {
	iface string
	name  string
	args  []interface{}
}

type fakeEmitter struct {
	signals []recordedSignal
	props   []recordedSignal
}

func (f *fakeEmitter) EmitSignal(iface, name string, args ...interface{}) error {
	f.signals = append(f.signals, recordedSignal{iface, name, args})
	return nil
}

func (f *fakeEmitter) EmitPropertiesChanged(iface string, names ...string) error {
	args := make([]interface{}, len(names))
	for i, n := range names {
		args[i] = n
	}
	f.props = append(f.props, recordedSignal{iface, "PropertiesChanged", args})
	return nil
}

func newTestManager() (*Manager, *fakeEmitter) {
	emitter := &fakeEmitter{}
	return NewManager([]string{"dummy"}, emitter, logger.Init()), emitter
}

const twoTracks = "dummy://one?artist=Foo&track=Bar\ndummy://two?artist=GNOME&track=Desktop\n"

func TestLoadText(t *testing.T) {
	m, emitter := newTestManager()

	status := m.LoadText(twoTracks)
	assert.True(t, status.OK())
	assert.Equal(t, 2, status.Entries)
	assert.Equal(t, 2, m.Len())

	ids := m.IDs()
	assert.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, ids[0], m.CurrentID())

	if len(emitter.signals) != 1 {
		t.Fatalf("want one TrackListReplaced, got %d signals", len(emitter.signals))
	}
	assert.Equal(t, InterfaceName, emitter.signals[0].iface)
	assert.Equal(t, "TrackListReplaced", emitter.signals[0].name)
	assert.Equal(t, ids, emitter.signals[0].args[0])
	assert.Equal(t, ids[0], emitter.signals[0].args[1])
}

func TestLoadTextSkipsMalformed(t *testing.T) {
	m, _ := newTestManager()

	status := m.LoadText("dummy://ok\nhttps://rejected.example/stream\n\n  \nnoscheme\n")
	assert.False(t, status.OK())
	assert.Equal(t, 1, status.Entries)
	assert.Equal(t, 2, status.Skipped)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, status, m.LastParseStatus())
}

func TestLoadTextEmpty(t *testing.T) {
	m, _ := newTestManager()
	status := m.LoadText("")
	assert.True(t, status.OK())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, NoTrack, m.CurrentID())
	_, ok := m.Current()
	assert.False(t, ok)
}

func TestTextRoundTrip(t *testing.T) {
	m, _ := newTestManager()
	m.LoadText(twoTracks)
	assert.Equal(t, twoTracks, m.Text())
}

func TestIDsStableAcrossReload(t *testing.T) {
	m, _ := newTestManager()
	m.LoadText(twoTracks)
	before := m.IDs()
	m.LoadText(twoTracks)
	after := m.IDs()
	// same source text, but a replaced list mints fresh ids
	assert.NotEqual(t, before[0], after[0])
	assert.NotEqual(t, before[1], after[1])
}

func TestCurrentMetadata(t *testing.T) {
	m, _ := newTestManager()
	m.LoadText(twoTracks)

	meta := m.CurrentMetadata()
	assert.Equal(t, m.CurrentID(), meta["mpris:trackid"].Value())
	assert.Equal(t, "dummy://one?artist=Foo&track=Bar", meta["xesam:url"].Value())
	assert.Equal(t, "Bar", meta["xesam:title"].Value())
	assert.Equal(t, []string{"Foo"}, meta["xesam:artist"].Value())
	assert.Equal(t, defaultDuration, meta["mpris:length"].Value())
}

func TestMetadataDefaults(t *testing.T) {
	m, _ := newTestManager()
	m.LoadText("dummy://bare\n")

	meta := m.CurrentMetadata()
	assert.Equal(t, "Unknown", meta["xesam:title"].Value())
	assert.Equal(t, []string{"Unknown"}, meta["xesam:artist"].Value())
	assert.Equal(t, defaultDuration, m.CurrentDuration())
}

func TestLengthParameter(t *testing.T) {
	m, _ := newTestManager()
	m.LoadText("dummy://timed?length=5000000\n")
	assert.Equal(t, int64(5_000_000), m.CurrentDuration())

	// a bad length makes resolution fail, falling back to defaults
	m.LoadText("dummy://timed?length=soon\n")
	assert.Equal(t, defaultDuration, m.CurrentDuration())
}

func TestMetadataFor(t *testing.T) {
	m, _ := newTestManager()
	m.LoadText(twoTracks)
	ids := m.IDs()

	metas := m.MetadataFor([]dbus.ObjectPath{ids[1], "/does/not/exist", ids[0]})
	// unknown ids are omitted, not errors
	assert.Len(t, metas, 2)
	assert.Equal(t, ids[1], metas[0]["mpris:trackid"].Value())
	assert.Equal(t, ids[0], metas[1]["mpris:trackid"].Value())
}

func TestAdd(t *testing.T) {
	t.Run("after anchor", func(t *testing.T) {
		m, _ := newTestManager()
		m.LoadText(twoTracks)
		ids := m.IDs()

		err := m.Add("dummy://three", ids[1], true)
		assert.NoError(t, err)
		assert.Equal(t, 3, m.Len())
		current, ok := m.Current()
		assert.True(t, ok)
		assert.Equal(t, "dummy://three", current.URI())
		assert.Equal(t, m.IDs()[2], current.ID())
	})

	t.Run("NoTrack anchor inserts at head", func(t *testing.T) {
		m, _ := newTestManager()
		m.LoadText(twoTracks)
		oldCurrent := m.CurrentID()

		err := m.Add("dummy://head", NoTrack, false)
		assert.NoError(t, err)
		tracks := m.IDs()
		assert.Len(t, tracks, 3)
		// the previous current track keeps being current after the shift
		assert.Equal(t, oldCurrent, m.CurrentID())
		assert.Equal(t, oldCurrent, tracks[1])
	})

	t.Run("unknown anchor appends", func(t *testing.T) {
		m, _ := newTestManager()
		m.LoadText(twoTracks)
		err := m.Add("dummy://tail", "/org/mpris/MediaPlayer2/mprisd/Track/gone", false)
		assert.NoError(t, err)
		assert.Equal(t, 3, m.Len())
		current, ok := m.Current()
		assert.True(t, ok)
		assert.NotEqual(t, "dummy://tail", current.URI())
	})

	t.Run("rejects unsupported scheme", func(t *testing.T) {
		m, _ := newTestManager()
		m.LoadText(twoTracks)
		err := m.Add("ftp://nope", NoTrack, false)
		assert.Error(t, err)
		assert.Equal(t, 2, m.Len())
	})
}

func TestRemove(t *testing.T) {
	t.Run("unknown id is a no-op", func(t *testing.T) {
		m, _ := newTestManager()
		m.LoadText(twoTracks)
		m.Remove("/org/mpris/MediaPlayer2/mprisd/Track/gone")
		assert.Equal(t, 2, m.Len())
	})

	t.Run("before current shifts the reference", func(t *testing.T) {
		m, _ := newTestManager()
		m.LoadText(twoTracks)
		ids := m.IDs()
		assert.NoError(t, m.GoTo(ids[1]))

		m.Remove(ids[0])
		assert.Equal(t, ids[1], m.CurrentID())
	})

	t.Run("removing current promotes the next track", func(t *testing.T) {
		m, _ := newTestManager()
		m.LoadText(twoTracks)
		ids := m.IDs()

		m.Remove(ids[0])
		assert.Equal(t, ids[1], m.CurrentID())

		m.Remove(ids[1])
		assert.Equal(t, NoTrack, m.CurrentID())
	})

	t.Run("removed id stays invalid", func(t *testing.T) {
		m, _ := newTestManager()
		m.LoadText(twoTracks)
		ids := m.IDs()
		m.Remove(ids[0])
		assert.ErrorIs(t, m.GoTo(ids[0]), ErrInvalidTrackId)
	})
}

func TestGoTo(t *testing.T) {
	m, _ := newTestManager()
	m.LoadText(twoTracks)
	ids := m.IDs()

	assert.NoError(t, m.GoTo(ids[1]))
	assert.Equal(t, ids[1], m.CurrentID())

	err := m.GoTo("/org/mpris/MediaPlayer2/mprisd/Track/bogus")
	assert.ErrorIs(t, err, ErrInvalidTrackId)
	// a failed GoTo leaves the current track untouched
	assert.Equal(t, ids[1], m.CurrentID())
}

func TestOpen(t *testing.T) {
	m, _ := newTestManager()
	m.LoadText(twoTracks)

	assert.NoError(t, m.Open("dummy://opened?track=New"))
	assert.Equal(t, 3, m.Len())
	current, _ := m.Current()
	assert.Equal(t, "dummy://opened?track=New", current.URI())

	assert.Error(t, m.Open("ssh://host/file"))
	assert.Equal(t, 3, m.Len())
}

func TestStep(t *testing.T) {
	m, _ := newTestManager()

	assert.False(t, m.Step(1, false))

	m.LoadText(twoTracks)
	ids := m.IDs()

	assert.True(t, m.Step(1, false))
	assert.Equal(t, ids[1], m.CurrentID())

	// at the end without wrap: refused, reference untouched
	assert.False(t, m.Step(1, false))
	assert.Equal(t, ids[1], m.CurrentID())

	assert.True(t, m.Step(1, true))
	assert.Equal(t, ids[0], m.CurrentID())

	assert.False(t, m.Step(-1, false))
	assert.True(t, m.Step(-1, true))
	assert.Equal(t, ids[1], m.CurrentID())
}

func TestResolveCache(t *testing.T) {
	calls := 0
	cache := newResolveCache(2, func(uri string) (trackMeta, error) {
		calls++
		return resolveURI(uri)
	}, logger.Init())

	a := cache.Get("dummy://a?track=A")
	assert.Equal(t, "A", a.title)
	cache.Get("dummy://a?track=A")
	assert.Equal(t, 1, calls)

	cache.Get("dummy://b")
	cache.Get("dummy://c") // evicts a
	assert.Equal(t, 3, calls)
	cache.Get("dummy://a?track=A")
	assert.Equal(t, 4, calls)
}

func TestResolveCacheFailureNotCached(t *testing.T) {
	calls := 0
	cache := newResolveCache(8, func(uri string) (trackMeta, error) {
		calls++
		return resolveURI(uri)
	}, logger.Init())

	meta := cache.Get("dummy://x?length=broken")
	assert.Equal(t, "Unknown", meta.title)
	assert.Equal(t, defaultDuration, meta.duration)
	cache.Get("dummy://x?length=broken")
	assert.Equal(t, 2, calls)
}
