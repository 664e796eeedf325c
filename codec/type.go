// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

package codec

import (
	"fmt"
	"strings"
)

// Kind enumerates the closed set of wire type kinds supported by the codec.
// The letters match the D-Bus signature alphabet so that Type.String can
// reproduce the signature a Type was parsed from.
type Kind byte

const (
	Bool       Kind = 'b'
	Int32      Kind = 'i'
	Uint32     Kind = 'u'
	Int64      Kind = 'x'
	Uint64     Kind = 't'
	Double     Kind = 'd'
	String     Kind = 's'
	ObjectPath Kind = 'o'
	Variant    Kind = 'v'
	Array      Kind = 'a'
	Struct     Kind = 'r'
	// Dict is the string-keyed variant map "a{sv}". It is the only map
	// shape the codec accepts; other key or value types are rejected at
	// signature parse time.
	Dict Kind = 'e'
)

// Type is a parsed wire type. It is immutable after ParseType returns it.
type Type struct {
	Kind   Kind
	Elem   *Type  // set for Array
	Fields []Type // set for Struct
}

// ParseType parses a single complete D-Bus type signature. Trailing input
// after the first complete type is an error.
func ParseType(sig string) (Type, error) {
	t, rest, err := parseOne(sig)
	if err != nil {
		return Type{}, err
	}
	if rest != "" {
		return Type{}, fmt.Errorf("trailing input %q after type in signature %q", rest, sig)
	}
	return t, nil
}

// ParseTypes parses a concatenation of type signatures, e.g. "uusb".
func ParseTypes(sig string) ([]Type, error) {
	var types []Type
	rest := sig
	for rest != "" {
		t, r, err := parseOne(rest)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
		rest = r
	}
	return types, nil
}

func parseOne(sig string) (Type, string, error) {
	if sig == "" {
		return Type{}, "", fmt.Errorf("empty type signature")
	}
	c := sig[0]
	rest := sig[1:]
	switch Kind(c) {
	case Bool, Int32, Uint32, Int64, Uint64, Double, String, ObjectPath, Variant:
		return Type{Kind: Kind(c)}, rest, nil
	case Array:
		if strings.HasPrefix(rest, "{") {
			if !strings.HasPrefix(rest, "{sv}") {
				return Type{}, "", fmt.Errorf("unsupported dict signature in %q, only a{sv} is supported", sig)
			}
			return Type{Kind: Dict}, rest[4:], nil
		}
		elem, r, err := parseOne(rest)
		if err != nil {
			return Type{}, "", fmt.Errorf("array element: %w", err)
		}
		return Type{Kind: Array, Elem: &elem}, r, nil
	case '(':
		var fields []Type
		r := rest
		for {
			if r == "" {
				return Type{}, "", fmt.Errorf("unterminated struct in signature %q", sig)
			}
			if r[0] == ')' {
				if len(fields) == 0 {
					return Type{}, "", fmt.Errorf("empty struct in signature %q", sig)
				}
				return Type{Kind: Struct, Fields: fields}, r[1:], nil
			}
			field, r2, err := parseOne(r)
			if err != nil {
				return Type{}, "", fmt.Errorf("struct field: %w", err)
			}
			fields = append(fields, field)
			r = r2
		}
	default:
		return Type{}, "", fmt.Errorf("unsupported type code %q in signature %q", string(c), sig)
	}
}

// String renders the type back to its signature form.
func (t Type) String() string {
	switch t.Kind {
	case Dict:
		return "a{sv}"
	case Array:
		return "a" + t.Elem.String()
	case Struct:
		var b strings.Builder
		b.WriteByte('(')
		for _, f := range t.Fields {
			b.WriteString(f.String())
		}
		b.WriteByte(')')
		return b.String()
	default:
		return string(t.Kind)
	}
}
