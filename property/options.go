package property

import "reflect"

type options struct {
	factory  any
	metadata map[string][]any
}

// Option configures binding discovery.
type Option func(*options)

// WithFactory injects the zero-argument function that produces a builder
// (KindImmutable) or a blank instance (KindModifiable). It may also return a
// trailing error. Without it the factory is looked up as a Builder or Create
// method on the implementation's zero value.
func WithFactory(fn any) Option {
	return func(o *options) {
		o.factory = fn
	}
}

// WithMetadata attaches metadata values to a property. Values are later
// found by their type through Accessor.Metadata.
func WithMetadata(property string, values ...any) Option {
	return func(o *options) {
		if o.metadata == nil {
			o.metadata = make(map[string][]any)
		}

		o.metadata[property] = append(o.metadata[property], values...)
	}
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// factoryFunc returns the factory to call for impl, either the injected one
// or the named method bound to impl's zero value.
func (o options) factoryFunc(impl reflect.Type, method string) (reflect.Value, bool) {
	if o.factory != nil {
		fn := reflect.ValueOf(o.factory)
		if fn.Kind() != reflect.Func || fn.IsNil() {
			return reflect.Value{}, false
		}

		return fn, true
	}

	if _, ok := impl.MethodByName(method); !ok {
		return reflect.Value{}, false
	}

	// value-receiver methods of a pointer implementation are bound to the
	// zero element, never to the nil zero pointer
	if impl.Kind() == reflect.Pointer {
		if _, ok := impl.Elem().MethodByName(method); ok {
			return reflect.Zero(impl.Elem()).MethodByName(method), true
		}
	}

	return reflect.Zero(impl).MethodByName(method), true
}
