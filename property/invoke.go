package property

import (
	"reflect"

	"github.com/pkg/errors"

	"property-binder/optional"
)

var errorType = reflect.TypeFor[error]()

// call invokes fn and splits a trailing error result off. Panics raised by
// fn are not recovered.
func call(fn reflect.Value, args ...reflect.Value) ([]reflect.Value, error) {
	out := fn.Call(args)

	n := len(out)
	if n == 0 || out[n-1].Type() != errorType {
		return out, nil
	}

	if last := out[n-1]; !last.IsNil() {
		return out[:n-1], last.Interface().(error)
	}

	return out[:n-1], nil
}

// returnsValue reports whether a method type yields exactly want, optionally
// followed by an error.
func returnsValue(ft reflect.Type, want reflect.Type) bool {
	switch ft.NumOut() {
	case 1:
		return ft.Out(0) == want
	case 2:
		return ft.Out(0) == want && ft.Out(1) == errorType
	default:
		return false
	}
}

// argument adapts value to the setter parameter type want. A nil value
// becomes the zero value. Optional containers are wrapped or unwrapped when
// only the element fits; skip is true for an empty optional written to a
// setter taking the bare element type, which leaves the property unset.
func argument(value any, want reflect.Type) (arg reflect.Value, skip bool, err error) {
	if value == nil {
		return reflect.Zero(want), false, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(want) {
		return rv, false, nil
	}

	if wrapped, ok := optional.Wrap(want, rv); ok {
		return wrapped, false, nil
	}

	if inner, isOpt, present := optional.Unwrap(value); isOpt {
		if !present {
			return reflect.Value{}, true, nil
		}

		if inner != nil && reflect.TypeOf(inner).AssignableTo(want) {
			return reflect.ValueOf(inner), false, nil
		}
	}

	return reflect.Value{}, false, errors.Wrapf(ErrArgumentType, "%s is not assignable to %s", rv.Type(), want)
}
