package property

import (
	"reflect"
)

// probe reports whether a property of recv has been set.
type probe func(recv reflect.Value) (bool, error)

func alwaysSet(reflect.Value) (bool, error) {
	return true, nil
}

// Accessor describes one property of a Binding.
type Accessor struct {
	name     string
	typ      reflect.Type
	kind     Kind
	owner    reflect.Type
	defn     reflect.Type
	index    int
	probe    probe
	hasProbe bool
	setter   reflect.Method
	metadata []any
}

// Name returns the property name, identical to the accessor method name.
func (a *Accessor) Name() string { return a.name }

// Type returns the property type.
func (a *Accessor) Type() reflect.Type { return a.typ }

// Kind returns the construction strategy of the owning binding.
func (a *Accessor) Kind() Kind { return a.kind }

// Probed reports whether the implementation exposes a presence probe for
// this property. Properties without one are always present.
func (a *Accessor) Probed() bool { return a.hasProbe }

// SetterType returns the parameter type of the setter writes go through.
func (a *Accessor) SetterType() reflect.Type { return a.setter.Type.In(1) }

// Metadata returns the first metadata value attached to the property whose
// type is kind, or implements kind when kind is an interface.
func (a *Accessor) Metadata(kind reflect.Type) (any, bool) {
	if kind == nil {
		return nil, false
	}

	for _, m := range a.metadata {
		mt := reflect.TypeOf(m)
		if mt == kind || (kind.Kind() == reflect.Interface && mt != nil && mt.Implements(kind)) {
			return m, true
		}
	}

	return nil, false
}

// MetadataOf is the typed form of Accessor.Metadata.
func MetadataOf[K any](a *Accessor) (K, bool) {
	m, ok := a.Metadata(reflect.TypeFor[K]())
	if !ok {
		var zero K
		return zero, false
	}

	return m.(K), true
}

// IsSet reports whether the property of v has been set. It is always true
// for properties without a presence probe.
func (a *Accessor) IsSet(v any) (bool, error) {
	recv, err := a.receiver(v)
	if err != nil {
		return false, err
	}

	return a.isSet(recv)
}

// Get returns the property value of v. When the presence probe reports the
// property as unset, Get returns (nil, false, nil): absence is ordinary
// state, not an error.
func (a *Accessor) Get(v any) (any, bool, error) {
	recv, err := a.receiver(v)
	if err != nil {
		return nil, false, err
	}

	set, err := a.isSet(recv)
	if err != nil || !set {
		return nil, false, err
	}

	iface := reflect.New(a.defn).Elem()
	iface.Set(recv)

	return iface.Method(a.index).Call(nil)[0].Interface(), true, nil
}

func (a *Accessor) isSet(recv reflect.Value) (bool, error) {
	set, err := a.probe(recv)
	if err != nil {
		return false, constructionError(OpProbe, a.owner, a.name, err)
	}

	return set, nil
}

func (a *Accessor) receiver(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return reflect.Value{}, constructionError(OpGet, a.owner, a.name, ErrNilValue)
	}

	if !rv.Type().Implements(a.defn) {
		return reflect.Value{}, constructionError(OpGet, a.owner, a.name, ErrNotImplemented)
	}

	return rv, nil
}

// write passes value to the setter on recv. It returns the setter results so
// builder sessions can fold a returned builder back in.
func (a *Accessor) write(recv reflect.Value, value any) ([]reflect.Value, error) {
	arg, skip, err := argument(value, a.SetterType())
	if err != nil {
		return nil, constructionError(OpSet, a.owner, a.name, err)
	}

	if skip {
		return nil, nil
	}

	out, err := call(a.setter.Func, recv, arg)
	if err != nil {
		return nil, constructionError(OpSet, a.owner, a.name, err)
	}

	return out, nil
}
