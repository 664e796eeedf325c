// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

package codec

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestParseTypeRoundTrip(t *testing.T) {
	// every signature the MPRIS surface uses
	for _, sig := range []string{
		"b", "i", "u", "x", "t", "d", "s", "o", "v",
		"as", "ao", "a{sv}", "aa{sv}", "(oss)", "a(oss)", "(b(oss))",
	} {
		typ, err := ParseType(sig)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", sig, err)
		}
		if got := typ.String(); got != sig {
			t.Errorf("round trip of %q yielded %q", sig, got)
		}
	}
}

func TestParseTypeRejects(t *testing.T) {
	for _, sig := range []string{
		"", "z", "a", "a{si}", "a{sv", "(", "()", "(ss", "xx", "sx",
	} {
		if _, err := ParseType(sig); err == nil {
			t.Errorf("ParseType(%q) should have failed", sig)
		}
	}
}

func TestParseTypes(t *testing.T) {
	types, err := ParseTypes("uusb")
	assert.NoError(t, err)
	assert.Len(t, types, 4)
	assert.Equal(t, "u", types[0].String())
	assert.Equal(t, "b", types[3].String())
}

func mustType(t *testing.T, sig string) Type {
	typ, err := ParseType(sig)
	if err != nil {
		t.Fatalf("ParseType(%q): %v", sig, err)
	}
	return typ
}

func TestValidateMatches(t *testing.T) {
	cases := []struct {
		sig   string
		value interface{}
	}{
		{"b", true},
		{"x", int64(-5)},
		{"u", uint32(7)},
		{"d", 0.5},
		{"s", "hello"},
		{"o", dbus.ObjectPath("/org/mpris/MediaPlayer2")},
		{"v", dbus.MakeVariant("inner")},
		{"as", []string{"a", "b"}},
		{"ao", []dbus.ObjectPath{"/a", "/b"}},
		{"a{sv}", map[string]dbus.Variant{"xesam:title": dbus.MakeVariant("t")}},
		{"aa{sv}", []map[string]dbus.Variant{{}}},
		{"(oss)", []interface{}{dbus.ObjectPath("/p"), "name", "icon"}},
		{"(oss)", struct {
			ID   dbus.ObjectPath
			Name string
			Icon string
		}{"/p", "name", ""}},
		{"(b(oss))", []interface{}{true, []interface{}{dbus.ObjectPath("/p"), "n", ""}}},
	}
	for _, c := range cases {
		if err := Validate(c.value, mustType(t, c.sig)); err != nil {
			t.Errorf("Validate(%v, %s): %v", c.value, c.sig, err)
		}
	}
}

func TestValidateNoCoercion(t *testing.T) {
	// exact type match, no widening or narrowing between numeric kinds
	cases := []struct {
		sig   string
		value interface{}
	}{
		{"x", int32(5)},
		{"x", uint64(5)},
		{"u", int32(5)},
		{"d", int64(5)},
		{"b", "true"},
		{"s", 5},
		{"o", "/looks/like/a/path"},
		{"as", []interface{}{1}},
		{"ao", []string{"/a"}},
		{"a{sv}", map[string]string{"k": "v"}},
		{"(oss)", []interface{}{dbus.ObjectPath("/p"), "name"}},
	}
	for _, c := range cases {
		err := Validate(c.value, mustType(t, c.sig))
		if err == nil {
			t.Errorf("Validate(%v, %s) should have failed", c.value, c.sig)
			continue
		}
		var mismatch *TypeMismatchError
		if !errors.As(err, &mismatch) {
			t.Errorf("Validate(%v, %s): want TypeMismatchError, got %v", c.value, c.sig, err)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	t.Run("variant carries declared signature", func(t *testing.T) {
		v, err := Encode(int64(99), mustType(t, "x"))
		assert.NoError(t, err)
		assert.Equal(t, "x", v.Signature().String())
		assert.Equal(t, int64(99), v.Value())
	})

	t.Run("decode validates payload", func(t *testing.T) {
		got, err := Decode(dbus.MakeVariant(int64(3)), mustType(t, "x"))
		assert.NoError(t, err)
		assert.Equal(t, int64(3), got)

		_, err = Decode(dbus.MakeVariant(int32(3)), mustType(t, "x"))
		assert.Error(t, err)
	})

	t.Run("encode rejects mismatched value", func(t *testing.T) {
		_, err := Encode("oops", mustType(t, "x"))
		assert.Error(t, err)
	})
}
