// Package optional provides a small container for values that may be absent.
//
// The zero Value is empty, so a blank builder or modifiable instance holds an
// empty optional without any extra bookkeeping.
package optional

import (
	"fmt"
	"reflect"
)

// Value holds either a T or nothing.
type Value[T any] struct {
	value   T
	present bool
}

// Of returns a present Value holding v.
func Of[T any](v T) Value[T] {
	return Value[T]{value: v, present: true}
}

// Empty returns an empty Value.
func Empty[T any]() Value[T] {
	return Value[T]{}
}

// FromPointer returns Of(*p), or Empty when p is nil.
func FromPointer[T any](p *T) Value[T] {
	if p == nil {
		return Empty[T]()
	}

	return Of(*p)
}

// Get returns the held value and whether it is present.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.present
}

// IsPresent reports whether a value is held.
func (v Value[T]) IsPresent() bool {
	return v.present
}

// OrElse returns the held value or def when empty.
func (v Value[T]) OrElse(def T) T {
	if !v.present {
		return def
	}

	return v.value
}

func (v Value[T]) String() string {
	if !v.present {
		return "Optional.empty"
	}

	return fmt.Sprintf("Optional[%v]", v.value)
}

func (v Value[T]) elemType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (v Value[T]) unwrap() (any, bool) {
	return v.value, v.present
}

func (v Value[T]) wrap(elem reflect.Value) reflect.Value {
	var value T
	reflect.ValueOf(&value).Elem().Set(elem)

	return reflect.ValueOf(Of(value))
}

type container interface {
	elemType() reflect.Type
	unwrap() (any, bool)
	wrap(elem reflect.Value) reflect.Value
}

// ElemType returns the element type when t is an instantiation of Value.
func ElemType(t reflect.Type) (reflect.Type, bool) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, false
	}

	c, ok := reflect.Zero(t).Interface().(container)
	if !ok {
		return nil, false
	}

	return c.elemType(), true
}

// Wrap builds a present Value of type t around elem. elem must be assignable
// to the element type of t.
func Wrap(t reflect.Type, elem reflect.Value) (reflect.Value, bool) {
	et, ok := ElemType(t)
	if !ok || !elem.IsValid() || !elem.Type().AssignableTo(et) {
		return reflect.Value{}, false
	}

	return reflect.Zero(t).Interface().(container).wrap(elem), true
}

// Unwrap returns the held value of v when v is a Value. The second result is
// false when v is not a Value at all; the third reports presence.
func Unwrap(v any) (inner any, isOptional, present bool) {
	c, ok := v.(container)
	if !ok {
		return v, false, false
	}

	inner, present = c.unwrap()

	return inner, true, present
}
