// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package remote binds the application's state-owning components to the
// MPRIS interface descriptor and, optionally, exports the bound object on
// the D-Bus session bus.
package remote

import (
	"errors"
	"sort"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/spezifisch/mprisd/descriptor"
	"github.com/spezifisch/mprisd/dispatch"
	"github.com/spezifisch/mprisd/logger"
	"github.com/spezifisch/mprisd/player"
	"github.com/spezifisch/mprisd/playlists"
	"github.com/spezifisch/mprisd/tracklist"
)

const (
	RootInterface      = "org.mpris.MediaPlayer2"
	PlayerInterface    = player.InterfaceName
	TrackListInterface = tracklist.InterfaceName
	PlaylistsInterface = playlists.InterfaceName

	// ObjectPath is where the media player object lives on the bus.
	ObjectPath = dbus.ObjectPath("/org/mpris/MediaPlayer2")

	// BusName is our unique name on the session bus.
	BusName = "org.mpris.MediaPlayer2.mprisd"
)

type Mpris struct {
	d      *dispatch.Dispatcher
	app    ControlledApp
	player *player.Player
	tracks *tracklist.Manager
	lists  *playlists.Store
	runner Runner
	logger logger.LoggerInterface

	conn *dbus.Conn
	sub  *dispatch.Subscription
}

// NewMpris registers handlers for the complete MPRIS descriptor surface on
// the given dispatcher and binds them. A missing or mismatched binding is a
// startup failure.
func NewMpris(d *dispatch.Dispatcher, app ControlledApp, pl *player.Player,
	tracks *tracklist.Manager, lists *playlists.Store, runner Runner,
	logger_ logger.LoggerInterface) (*Mpris, error) {

	m := &Mpris{
		d:      d,
		app:    app,
		player: pl,
		tracks: tracks,
		lists:  lists,
		runner: runner,
		logger: logger_,
	}
	m.register()
	if err := d.Bind(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mpris) Dispatcher() *dispatch.Dispatcher {
	return m.d
}

// ExportSessionBus connects to the session bus, exports the player object
// tree and claims our bus name. Dispatcher signals are forwarded to the bus
// for as long as the connection lives.
func (m *Mpris) ExportSessionBus() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return err
	}
	m.conn = conn

	if err = conn.Export(rootObject{m}, ObjectPath, RootInterface); err != nil {
		return err
	}
	if err = conn.Export(playerObject{m}, ObjectPath, PlayerInterface); err != nil {
		return err
	}
	if err = conn.Export(trackListObject{m}, ObjectPath, TrackListInterface); err != nil {
		return err
	}
	if err = conn.Export(playlistsObject{m}, ObjectPath, PlaylistsInterface); err != nil {
		return err
	}
	if err = conn.Export(propsObject{m}, ObjectPath, dispatch.PropertiesInterface); err != nil {
		return err
	}
	node := m.introspectNode()
	if err = conn.Export(introspect.NewIntrospectable(node), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return err
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already owned")
	}

	m.sub = m.d.Subscribe()
	go m.pumpSignals(conn, m.sub)
	return nil
}

// Close stops signal forwarding and drops the bus connection. It must run on
// the dispatch stream, or after the stream has stopped: cancelling the
// subscription mutates dispatcher state.
func (m *Mpris) Close() {
	if m.conn == nil {
		return
	}
	if m.sub != nil {
		m.sub.Cancel()
		m.sub = nil
	}
	if err := m.conn.Close(); err != nil {
		m.logger.PrintError("mpris Close", err)
	}
	m.conn = nil
}

// do runs fn on the dispatch stream and waits for it.
func (m *Mpris) do(fn func()) {
	done := make(chan struct{})
	m.runner.Do(func() {
		defer close(done)
		fn()
	})
	<-done
}

// call invokes a descriptor method through the dispatcher from a bus
// goroutine.
func (m *Mpris) call(iface, member string, args ...interface{}) (results []dbus.Variant, err error) {
	variants := make([]dbus.Variant, len(args))
	for i, a := range args {
		variants[i] = dbus.MakeVariant(a)
	}
	m.do(func() {
		results, err = m.d.InvokeMethod(iface, member, variants)
	})
	return
}

// pumpSignals forwards dispatcher signals to the bus until the subscription
// is cancelled.
func (m *Mpris) pumpSignals(conn *dbus.Conn, sub *dispatch.Subscription) {
	for sig := range sub.C {
		body := make([]interface{}, len(sig.Body))
		for i, v := range sig.Body {
			body[i] = v.Value()
		}
		if err := conn.Emit(ObjectPath, sig.Interface+"."+sig.Name, body...); err != nil {
			m.logger.PrintError("mpris signal emit", err)
		}
	}
}

// introspectNode rebuilds the introspection tree from the descriptor so the
// bus advertises exactly what the dispatcher dispatches.
func (m *Mpris) introspectNode() *introspect.Node {
	desc := m.d.Descriptor()
	node := &introspect.Node{
		Name:       string(ObjectPath),
		Interfaces: []introspect.Interface{introspect.IntrospectData},
	}
	for _, name := range desc.Names() {
		iface, _ := desc.Interface(name)
		node.Interfaces = append(node.Interfaces, introspectInterface(iface))
	}
	return node
}

func introspectInterface(iface *descriptor.Interface) introspect.Interface {
	out := introspect.Interface{Name: iface.Name}

	methodNames := make([]string, 0, len(iface.Methods))
	for name := range iface.Methods {
		methodNames = append(methodNames, name)
	}
	sort.Strings(methodNames)
	for _, name := range methodNames {
		method := iface.Methods[name]
		im := introspect.Method{Name: name}
		for _, arg := range method.In {
			im.Args = append(im.Args, introspect.Arg{Name: arg.Name, Type: arg.Type.String(), Direction: "in"})
		}
		for _, arg := range method.Out {
			im.Args = append(im.Args, introspect.Arg{Name: arg.Name, Type: arg.Type.String(), Direction: "out"})
		}
		out.Methods = append(out.Methods, im)
	}

	propNames := make([]string, 0, len(iface.Properties))
	for name := range iface.Properties {
		propNames = append(propNames, name)
	}
	sort.Strings(propNames)
	for _, name := range propNames {
		prop := iface.Properties[name]
		access := "read"
		if prop.Writable {
			access = "readwrite"
		}
		out.Properties = append(out.Properties, introspect.Property{Name: name, Type: prop.Type.String(), Access: access})
	}

	signalNames := make([]string, 0, len(iface.Signals))
	for name := range iface.Signals {
		signalNames = append(signalNames, name)
	}
	sort.Strings(signalNames)
	for _, name := range signalNames {
		sig := iface.Signals[name]
		is := introspect.Signal{Name: name}
		for _, arg := range sig.Args {
			is.Args = append(is.Args, introspect.Arg{Name: arg.Name, Type: arg.Type.String()})
		}
		out.Signals = append(out.Signals, is)
	}

	return out
}

func mapDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	var derr *dispatch.Error
	if errors.As(err, &derr) {
		return dbus.NewError(derr.DBusName(), []interface{}{derr.Message})
	}
	return dbus.NewError("org.freedesktop.DBus.Error.Failed", []interface{}{err.Error()})
}

// The bus-facing proxies below hold no state; they funnel every call through
// the dispatcher, which revalidates against the descriptor.

type rootObject struct{ m *Mpris }

func (o rootObject) Raise() *dbus.Error {
	_, err := o.m.call(RootInterface, "Raise")
	return mapDBusError(err)
}

func (o rootObject) Quit() *dbus.Error {
	_, err := o.m.call(RootInterface, "Quit")
	return mapDBusError(err)
}

type playerObject struct{ m *Mpris }

func (o playerObject) Next() *dbus.Error {
	_, err := o.m.call(PlayerInterface, "Next")
	return mapDBusError(err)
}

func (o playerObject) Previous() *dbus.Error {
	_, err := o.m.call(PlayerInterface, "Previous")
	return mapDBusError(err)
}

func (o playerObject) Pause() *dbus.Error {
	_, err := o.m.call(PlayerInterface, "Pause")
	return mapDBusError(err)
}

func (o playerObject) PlayPause() *dbus.Error {
	_, err := o.m.call(PlayerInterface, "PlayPause")
	return mapDBusError(err)
}

func (o playerObject) Stop() *dbus.Error {
	_, err := o.m.call(PlayerInterface, "Stop")
	return mapDBusError(err)
}

func (o playerObject) Play() *dbus.Error {
	_, err := o.m.call(PlayerInterface, "Play")
	return mapDBusError(err)
}

func (o playerObject) Seek(offset int64) *dbus.Error {
	_, err := o.m.call(PlayerInterface, "Seek", offset)
	return mapDBusError(err)
}

func (o playerObject) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	_, err := o.m.call(PlayerInterface, "SetPosition", trackID, position)
	return mapDBusError(err)
}

func (o playerObject) OpenUri(uri string) *dbus.Error {
	_, err := o.m.call(PlayerInterface, "OpenUri", uri)
	return mapDBusError(err)
}

type trackListObject struct{ m *Mpris }

func (o trackListObject) GetTracksMetadata(trackIDs []dbus.ObjectPath) ([]map[string]dbus.Variant, *dbus.Error) {
	results, err := o.m.call(TrackListInterface, "GetTracksMetadata", trackIDs)
	if err != nil {
		return nil, mapDBusError(err)
	}
	return results[0].Value().([]map[string]dbus.Variant), nil
}

func (o trackListObject) AddTrack(uri string, afterTrack dbus.ObjectPath, setAsCurrent bool) *dbus.Error {
	_, err := o.m.call(TrackListInterface, "AddTrack", uri, afterTrack, setAsCurrent)
	return mapDBusError(err)
}

func (o trackListObject) RemoveTrack(trackID dbus.ObjectPath) *dbus.Error {
	_, err := o.m.call(TrackListInterface, "RemoveTrack", trackID)
	return mapDBusError(err)
}

func (o trackListObject) GoTo(trackID dbus.ObjectPath) *dbus.Error {
	_, err := o.m.call(TrackListInterface, "GoTo", trackID)
	return mapDBusError(err)
}

type playlistsObject struct{ m *Mpris }

func (o playlistsObject) ActivatePlaylist(playlistID dbus.ObjectPath) *dbus.Error {
	_, err := o.m.call(PlaylistsInterface, "ActivatePlaylist", playlistID)
	return mapDBusError(err)
}

func (o playlistsObject) GetPlaylists(index, maxCount uint32, order string, reverseOrder bool) ([]playlists.Entry, *dbus.Error) {
	results, err := o.m.call(PlaylistsInterface, "GetPlaylists", index, maxCount, order, reverseOrder)
	if err != nil {
		return nil, mapDBusError(err)
	}
	return results[0].Value().([]playlists.Entry), nil
}

// propsObject implements the generic two-argument property protocol:
// get(interface, name) -> variant, set(interface, name, variant).

type propsObject struct{ m *Mpris }

func (o propsObject) Get(iface, prop string) (v dbus.Variant, _ *dbus.Error) {
	var err error
	o.m.do(func() {
		v, err = o.m.d.GetProperty(iface, prop)
	})
	return v, mapDBusError(err)
}

func (o propsObject) Set(iface, prop string, value dbus.Variant) *dbus.Error {
	var err error
	o.m.do(func() {
		err = o.m.d.SetProperty(iface, prop, value)
	})
	return mapDBusError(err)
}

func (o propsObject) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	spec, ok := o.m.d.Descriptor().Interface(iface)
	if !ok {
		return nil, mapDBusError(errors.New("unknown interface " + iface))
	}
	all := make(map[string]dbus.Variant, len(spec.Properties))
	var err error
	o.m.do(func() {
		for name := range spec.Properties {
			var v dbus.Variant
			if v, err = o.m.d.GetProperty(iface, name); err != nil {
				return
			}
			all[name] = v
		}
	})
	if err != nil {
		return nil, mapDBusError(err)
	}
	return all, nil
}
