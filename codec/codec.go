// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package codec validates and converts values crossing the protocol boundary.
//
// Every inbound and outbound value is checked structurally against the type
// declared in the interface descriptor. There is no coercion between numeric
// kinds: an int32 where an int64 is declared is a TypeMismatchError, not a
// widening.
package codec

import (
	"fmt"
	"reflect"

	"github.com/godbus/dbus/v5"
)

type TypeMismatchError struct {
	Want string // declared signature
	Got  string // description of the offending value
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: want %s, got %s", e.Want, e.Got)
}

func mismatch(t Type, v interface{}) error {
	return &TypeMismatchError{Want: t.String(), Got: fmt.Sprintf("%T", v)}
}

// Validate checks that v structurally matches t. Struct-typed values may be
// either a Go struct with matching field count or a []interface{} tuple; the
// latter is what a generic transport hands us for inbound compound values.
func Validate(v interface{}, t Type) error {
	switch t.Kind {
	case Bool:
		if _, ok := v.(bool); !ok {
			return mismatch(t, v)
		}
	case Int32:
		if _, ok := v.(int32); !ok {
			return mismatch(t, v)
		}
	case Uint32:
		if _, ok := v.(uint32); !ok {
			return mismatch(t, v)
		}
	case Int64:
		if _, ok := v.(int64); !ok {
			return mismatch(t, v)
		}
	case Uint64:
		if _, ok := v.(uint64); !ok {
			return mismatch(t, v)
		}
	case Double:
		if _, ok := v.(float64); !ok {
			return mismatch(t, v)
		}
	case String:
		if _, ok := v.(string); !ok {
			return mismatch(t, v)
		}
	case ObjectPath:
		if _, ok := v.(dbus.ObjectPath); !ok {
			return mismatch(t, v)
		}
	case Variant:
		if _, ok := v.(dbus.Variant); !ok {
			return mismatch(t, v)
		}
	case Array:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || rv.Kind() != reflect.Slice {
			return mismatch(t, v)
		}
		for i := 0; i < rv.Len(); i++ {
			if err := Validate(rv.Index(i).Interface(), *t.Elem); err != nil {
				return fmt.Errorf("array index %d: %w", i, err)
			}
		}
	case Dict:
		if _, ok := v.(map[string]dbus.Variant); !ok {
			return mismatch(t, v)
		}
	case Struct:
		if tuple, ok := v.([]interface{}); ok {
			if len(tuple) != len(t.Fields) {
				return &TypeMismatchError{Want: t.String(), Got: fmt.Sprintf("tuple of arity %d", len(tuple))}
			}
			for i, field := range t.Fields {
				if err := Validate(tuple[i], field); err != nil {
					return fmt.Errorf("tuple member %d: %w", i, err)
				}
			}
			return nil
		}
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || rv.Kind() != reflect.Struct {
			return mismatch(t, v)
		}
		if rv.NumField() != len(t.Fields) {
			return &TypeMismatchError{Want: t.String(), Got: fmt.Sprintf("struct with %d fields", rv.NumField())}
		}
		for i, field := range t.Fields {
			if err := Validate(rv.Field(i).Interface(), field); err != nil {
				return fmt.Errorf("struct field %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unknown type kind %q", string(t.Kind))
	}
	return nil
}

// Encode wraps v in a variant carrying the declared signature after
// validating it against t.
func Encode(v interface{}, t Type) (dbus.Variant, error) {
	if err := Validate(v, t); err != nil {
		return dbus.Variant{}, err
	}
	return dbus.MakeVariantWithSignature(v, dbus.ParseSignatureMust(t.String())), nil
}

// Decode unwraps a variant and validates its payload against t.
func Decode(v dbus.Variant, t Type) (interface{}, error) {
	inner := v.Value()
	if err := Validate(inner, t); err != nil {
		return nil, err
	}
	return inner, nil
}
