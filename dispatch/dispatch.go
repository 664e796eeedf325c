// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package dispatch routes inbound method calls, property accesses and
// outbound signals through an interface descriptor.
//
// Binding is registration-based: the application registers a named function
// for every method and property accessor at startup, then calls Bind, which
// checks the registration table against the descriptor in both directions.
// Nothing is inferred from naming conventions or reflection; an unresolved
// binding is a startup-time configuration error.
//
// All entry points must run on a single dispatch stream (one goroutine at a
// time). The dispatcher carries no locks; callers arriving from other
// goroutines must funnel through the application's event loop.
package dispatch

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/spezifisch/mprisd/codec"
	"github.com/spezifisch/mprisd/descriptor"
	"github.com/spezifisch/mprisd/logger"
)

// PropertiesInterface is the pseudo-interface PropertiesChanged notifications
// are broadcast on.
const PropertiesInterface = "org.freedesktop.DBus.Properties"

// MethodFunc handles one method. args are decoded values matching the
// method's input spec positionally; the return values must match the output
// spec positionally.
type MethodFunc func(args []interface{}) ([]interface{}, error)

// GetterFunc returns the live value of a property. Property reads are
// infallible; the value is validated against the declared type on the way
// out.
type GetterFunc func() interface{}

// SetterFunc applies a decoded property write.
type SetterFunc func(v interface{}) error

// Signal is a broadcast notification with pre-encoded arguments.
type Signal struct {
	Interface string
	Name      string
	Body      []dbus.Variant
}

type Subscription struct {
	C  <-chan Signal
	d  *Dispatcher
	ch chan Signal
}

// Cancel removes the subscription. Signals emitted afterwards are no longer
// delivered; the channel is closed once removed.
func (s *Subscription) Cancel() {
	for i, sub := range s.d.subs {
		if sub == s {
			s.d.subs = append(s.d.subs[:i], s.d.subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}

type Dispatcher struct {
	desc   *descriptor.Descriptor
	logger logger.LoggerInterface

	methods map[string]map[string]MethodFunc
	getters map[string]map[string]GetterFunc
	setters map[string]map[string]SetterFunc

	// registration problems collected for Bind
	regErrs []string

	bound bool
	subs  []*Subscription
}

func New(desc *descriptor.Descriptor, logger_ logger.LoggerInterface) *Dispatcher {
	return &Dispatcher{
		desc:    desc,
		logger:  logger_,
		methods: make(map[string]map[string]MethodFunc),
		getters: make(map[string]map[string]GetterFunc),
		setters: make(map[string]map[string]SetterFunc),
	}
}

func (d *Dispatcher) Descriptor() *descriptor.Descriptor {
	return d.desc
}

// HandleMethod registers the handler for iface.name. Problems are reported
// by Bind, so registration calls chain without error checking.
func (d *Dispatcher) HandleMethod(iface, name string, fn MethodFunc) {
	if d.methods[iface] == nil {
		d.methods[iface] = make(map[string]MethodFunc)
	}
	if _, dup := d.methods[iface][name]; dup {
		d.regErrs = append(d.regErrs, fmt.Sprintf("duplicate method handler %s.%s", iface, name))
	}
	d.methods[iface][name] = fn
}

// HandleProperty registers the accessors for iface.name. set must be nil for
// a read-only property and non-nil for a writable one.
func (d *Dispatcher) HandleProperty(iface, name string, get GetterFunc, set SetterFunc) {
	if d.getters[iface] == nil {
		d.getters[iface] = make(map[string]GetterFunc)
		d.setters[iface] = make(map[string]SetterFunc)
	}
	if _, dup := d.getters[iface][name]; dup {
		d.regErrs = append(d.regErrs, fmt.Sprintf("duplicate property handler %s.%s", iface, name))
	}
	d.getters[iface][name] = get
	if set != nil {
		d.setters[iface][name] = set
	}
}

// Bind validates the registration table against the descriptor: every
// registered handler must exist in the descriptor, every descriptor member
// must have a handler, and property setters must match the declared access
// mode. After a successful Bind the dispatcher accepts calls.
func (d *Dispatcher) Bind() error {
	if len(d.regErrs) > 0 {
		return fmt.Errorf("dispatch binding: %s", d.regErrs[0])
	}

	// registered but not declared
	for iface, methods := range d.methods {
		spec, ok := d.desc.Interface(iface)
		if !ok {
			return fmt.Errorf("dispatch binding: method handlers for undeclared interface %s", iface)
		}
		for name := range methods {
			if _, ok := spec.Methods[name]; !ok {
				return fmt.Errorf("dispatch binding: handler for undeclared method %s.%s", iface, name)
			}
		}
	}
	for iface, getters := range d.getters {
		spec, ok := d.desc.Interface(iface)
		if !ok {
			return fmt.Errorf("dispatch binding: property handlers for undeclared interface %s", iface)
		}
		for name := range getters {
			prop, ok := spec.Properties[name]
			if !ok {
				return fmt.Errorf("dispatch binding: handler for undeclared property %s.%s", iface, name)
			}
			_, hasSetter := d.setters[iface][name]
			if hasSetter && !prop.Writable {
				return fmt.Errorf("dispatch binding: setter registered for read-only property %s.%s", iface, name)
			}
			if !hasSetter && prop.Writable {
				return fmt.Errorf("dispatch binding: missing setter for writable property %s.%s", iface, name)
			}
		}
	}

	// declared but not registered
	for _, ifaceName := range d.desc.Names() {
		spec, _ := d.desc.Interface(ifaceName)
		for name := range spec.Methods {
			if _, ok := d.methods[ifaceName][name]; !ok {
				return fmt.Errorf("dispatch binding: no handler for method %s.%s", ifaceName, name)
			}
		}
		for name := range spec.Properties {
			if _, ok := d.getters[ifaceName][name]; !ok {
				return fmt.Errorf("dispatch binding: no accessor for property %s.%s", ifaceName, name)
			}
		}
	}

	d.bound = true
	return nil
}

// InvokeMethod decodes args against the method's input spec, runs the bound
// handler and encodes its results against the output spec.
func (d *Dispatcher) InvokeMethod(iface, member string, args []dbus.Variant) ([]dbus.Variant, error) {
	spec, ok := d.desc.Interface(iface)
	if !ok {
		return nil, errUnknownInterface(iface)
	}
	method, ok := spec.Methods[member]
	if !ok {
		return nil, errUnknownMember(iface, member)
	}

	if len(args) != len(method.In) {
		return nil, errTypeMismatch(iface, member,
			fmt.Errorf("want %d arguments, got %d", len(method.In), len(args)))
	}
	decoded := make([]interface{}, len(args))
	for i, arg := range args {
		v, err := codec.Decode(arg, method.In[i].Type)
		if err != nil {
			return nil, errTypeMismatch(iface, member, fmt.Errorf("argument %s: %w", method.In[i].Name, err))
		}
		decoded[i] = v
	}

	results, err := d.methods[iface][member](decoded)
	if err != nil {
		return nil, err
	}

	if len(results) != len(method.Out) {
		return nil, fmt.Errorf("%s.%s: handler returned %d values, descriptor declares %d",
			iface, member, len(results), len(method.Out))
	}
	encoded := make([]dbus.Variant, len(results))
	for i, res := range results {
		v, err := codec.Encode(res, method.Out[i].Type)
		if err != nil {
			return nil, errTypeMismatch(iface, member, fmt.Errorf("result %s: %w", method.Out[i].Name, err))
		}
		encoded[i] = v
	}
	return encoded, nil
}

// GetProperty reads a property and returns it encoded as a variant of the
// declared type.
func (d *Dispatcher) GetProperty(iface, name string) (dbus.Variant, error) {
	spec, ok := d.desc.Interface(iface)
	if !ok {
		return dbus.Variant{}, errUnknownInterface(iface)
	}
	prop, ok := spec.Properties[name]
	if !ok {
		return dbus.Variant{}, errUnknownMember(iface, name)
	}
	v, err := codec.Encode(d.getters[iface][name](), prop.Type)
	if err != nil {
		return dbus.Variant{}, errTypeMismatch(iface, name, err)
	}
	return v, nil
}

// SetProperty decodes value against the declared type and applies it through
// the bound setter. Writes to read-only properties fail; they are never a
// silent no-op. A successful write broadcasts PropertiesChanged.
func (d *Dispatcher) SetProperty(iface, name string, value dbus.Variant) error {
	spec, ok := d.desc.Interface(iface)
	if !ok {
		return errUnknownInterface(iface)
	}
	prop, ok := spec.Properties[name]
	if !ok {
		return errUnknownMember(iface, name)
	}
	if !prop.Writable {
		return errReadOnlyProperty(iface, name)
	}
	v, err := codec.Decode(value, prop.Type)
	if err != nil {
		return errTypeMismatch(iface, name, err)
	}
	if err := d.setters[iface][name](v); err != nil {
		return err
	}
	if err := d.EmitPropertiesChanged(iface, name); err != nil {
		d.logger.PrintError("SetProperty PropertiesChanged", err)
	}
	return nil
}

// EmitSignal encodes args against the signal's spec and broadcasts to all
// current subscribers, in emission order, before the triggering call's reply
// is produced.
func (d *Dispatcher) EmitSignal(iface, name string, args ...interface{}) error {
	spec, ok := d.desc.Interface(iface)
	if !ok {
		return errUnknownInterface(iface)
	}
	sig, ok := spec.Signals[name]
	if !ok {
		return errUnknownMember(iface, name)
	}
	if len(args) != len(sig.Args) {
		return errTypeMismatch(iface, name,
			fmt.Errorf("want %d arguments, got %d", len(sig.Args), len(args)))
	}
	body := make([]dbus.Variant, len(args))
	for i, arg := range args {
		v, err := codec.Encode(arg, sig.Args[i].Type)
		if err != nil {
			return errTypeMismatch(iface, name, fmt.Errorf("argument %s: %w", sig.Args[i].Name, err))
		}
		body[i] = v
	}
	d.broadcast(Signal{Interface: iface, Name: name, Body: body})
	return nil
}

// EmitPropertiesChanged reads the named properties live and broadcasts a
// PropertiesChanged notification carrying their current values.
func (d *Dispatcher) EmitPropertiesChanged(iface string, names ...string) error {
	spec, ok := d.desc.Interface(iface)
	if !ok {
		return errUnknownInterface(iface)
	}
	changed := make(map[string]dbus.Variant, len(names))
	for _, name := range names {
		prop, ok := spec.Properties[name]
		if !ok {
			return errUnknownMember(iface, name)
		}
		v, err := codec.Encode(d.getters[iface][name](), prop.Type)
		if err != nil {
			return errTypeMismatch(iface, name, err)
		}
		changed[name] = v
	}
	d.broadcast(Signal{
		Interface: PropertiesInterface,
		Name:      "PropertiesChanged",
		Body: []dbus.Variant{
			dbus.MakeVariant(iface),
			dbus.MakeVariantWithSignature(changed, dbus.ParseSignatureMust("a{sv}")),
			dbus.MakeVariantWithSignature([]string{}, dbus.ParseSignatureMust("as")),
		},
	})
	return nil
}

// Subscribe registers a signal sink. A subscriber joining mid-stream only
// receives signals emitted after subscription.
func (d *Dispatcher) Subscribe() *Subscription {
	sub := &Subscription{d: d, ch: make(chan Signal, 64)}
	sub.C = sub.ch
	d.subs = append(d.subs, sub)
	return sub
}

func (d *Dispatcher) broadcast(sig Signal) {
	for _, sub := range d.subs {
		select {
		case sub.ch <- sig:
		default:
			// a stalled subscriber must not stall the dispatch stream
			d.logger.Printf("dropping signal %s.%s for slow subscriber", sig.Interface, sig.Name)
		}
	}
}
