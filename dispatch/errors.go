// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

package dispatch

import "fmt"

type ErrorKind int

const (
	KindUnknownInterface ErrorKind = iota
	KindUnknownMember
	KindTypeMismatch
	KindReadOnlyProperty
)

// Error is a dispatch-layer protocol error. It is always surfaced to the
// caller as an error reply, never swallowed.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// DBusName maps the error kind to the matching standard D-Bus error name so
// a bus frontend can produce a proper error reply.
func (e *Error) DBusName() string {
	switch e.Kind {
	case KindUnknownInterface:
		return "org.freedesktop.DBus.Error.UnknownInterface"
	case KindUnknownMember:
		return "org.freedesktop.DBus.Error.UnknownMethod"
	case KindTypeMismatch:
		return "org.freedesktop.DBus.Error.InvalidArgs"
	case KindReadOnlyProperty:
		return "org.freedesktop.DBus.Error.PropertyReadOnly"
	}
	return "org.freedesktop.DBus.Error.Failed"
}

func errUnknownInterface(name string) *Error {
	return &Error{Kind: KindUnknownInterface, Message: fmt.Sprintf("unknown interface %s", name)}
}

func errUnknownMember(iface, member string) *Error {
	return &Error{Kind: KindUnknownMember, Message: fmt.Sprintf("unknown member %s.%s", iface, member)}
}

func errTypeMismatch(iface, member string, err error) *Error {
	return &Error{Kind: KindTypeMismatch, Message: fmt.Sprintf("%s.%s: %s", iface, member, err)}
}

func errReadOnlyProperty(iface, name string) *Error {
	return &Error{Kind: KindReadOnlyProperty, Message: fmt.Sprintf("property %s.%s is read-only", iface, name)}
}
