// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package descriptor parses D-Bus introspection XML into an immutable,
// lookup-friendly description of interfaces: methods with typed in/out
// arguments, properties with access modes, and signals with typed arguments.
// All dispatch shares a single Descriptor read-only.
package descriptor

import (
	_ "embed"
	"encoding/xml"
	"fmt"
	"sort"
	"sync"

	"github.com/godbus/dbus/v5/introspect"

	"github.com/spezifisch/mprisd/codec"
)

//go:embed mpris.xml
var mprisXML []byte

type Descriptor struct {
	interfaces map[string]*Interface
}

type Interface struct {
	Name       string
	Methods    map[string]*Method
	Properties map[string]*Property
	Signals    map[string]*Signal
}

type Arg struct {
	Name string
	Type codec.Type
}

type Method struct {
	Name string
	In   []Arg
	Out  []Arg
}

type Property struct {
	Name     string
	Type     codec.Type
	Writable bool
}

type Signal struct {
	Name string
	Args []Arg
}

// Parse builds a Descriptor from introspection XML. Unknown type signatures,
// bad access modes and duplicate member names are parse errors.
func Parse(data []byte) (*Descriptor, error) {
	var node introspect.Node
	if err := xml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("introspection XML: %w", err)
	}

	d := &Descriptor{interfaces: make(map[string]*Interface)}
	for _, xmlIface := range node.Interfaces {
		if _, ok := d.interfaces[xmlIface.Name]; ok {
			return nil, fmt.Errorf("duplicate interface %s", xmlIface.Name)
		}
		iface := &Interface{
			Name:       xmlIface.Name,
			Methods:    make(map[string]*Method),
			Properties: make(map[string]*Property),
			Signals:    make(map[string]*Signal),
		}

		for _, m := range xmlIface.Methods {
			if _, ok := iface.Methods[m.Name]; ok {
				return nil, fmt.Errorf("%s: duplicate method %s", iface.Name, m.Name)
			}
			method := &Method{Name: m.Name}
			for _, a := range m.Args {
				arg, err := parseArg(a, iface.Name, m.Name)
				if err != nil {
					return nil, err
				}
				// a method arg with no direction is an input
				if a.Direction == "out" {
					method.Out = append(method.Out, arg)
				} else {
					method.In = append(method.In, arg)
				}
			}
			iface.Methods[m.Name] = method
		}

		for _, p := range xmlIface.Properties {
			if _, ok := iface.Properties[p.Name]; ok {
				return nil, fmt.Errorf("%s: duplicate property %s", iface.Name, p.Name)
			}
			typ, err := codec.ParseType(p.Type)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", iface.Name, p.Name, err)
			}
			var writable bool
			switch p.Access {
			case "read":
				writable = false
			case "readwrite":
				writable = true
			default:
				return nil, fmt.Errorf("%s.%s: unsupported access mode %q", iface.Name, p.Name, p.Access)
			}
			iface.Properties[p.Name] = &Property{Name: p.Name, Type: typ, Writable: writable}
		}

		for _, s := range xmlIface.Signals {
			if _, ok := iface.Signals[s.Name]; ok {
				return nil, fmt.Errorf("%s: duplicate signal %s", iface.Name, s.Name)
			}
			sig := &Signal{Name: s.Name}
			for _, a := range s.Args {
				arg, err := parseArg(a, iface.Name, s.Name)
				if err != nil {
					return nil, err
				}
				sig.Args = append(sig.Args, arg)
			}
			iface.Signals[s.Name] = sig
		}

		d.interfaces[iface.Name] = iface
	}
	return d, nil
}

func parseArg(a introspect.Arg, ifaceName, memberName string) (Arg, error) {
	typ, err := codec.ParseType(a.Type)
	if err != nil {
		return Arg{}, fmt.Errorf("%s.%s arg %q: %w", ifaceName, memberName, a.Name, err)
	}
	return Arg{Name: a.Name, Type: typ}, nil
}

func (d *Descriptor) Interface(name string) (*Interface, bool) {
	iface, ok := d.interfaces[name]
	return iface, ok
}

// Names returns all interface names in sorted order.
func (d *Descriptor) Names() []string {
	names := make([]string, 0, len(d.interfaces))
	for name := range d.interfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	mprisOnce sync.Once
	mprisDesc *Descriptor
)

// MPRIS returns the descriptor for the MPRIS interface subset we implement.
// The XML ships with the binary, so a parse failure is a build defect.
func MPRIS() *Descriptor {
	mprisOnce.Do(func() {
		d, err := Parse(mprisXML)
		if err != nil {
			panic(fmt.Sprintf("embedded mpris.xml: %v", err))
		}
		mprisDesc = d
	})
	return mprisDesc
}
