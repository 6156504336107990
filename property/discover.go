package property

import (
	"reflect"

	"property-binder/internal/common"
	"property-binder/internal/diagnostic"
)

// Property is a discovered property: the method name and its result type.
type Property struct {
	Name string
	Type reflect.Type
	// Index is the method index on the definition interface.
	Index int
}

// Discover lists the properties of defn in method order. A property is an
// exported method taking no arguments and returning exactly one value.
func Discover(defn reflect.Type) ([]Property, error) {
	if defn == nil || defn.Kind() != reflect.Interface {
		return nil, &ConfigurationError{
			Type:   defn,
			Reason: "definition must be an interface type",
		}
	}

	props := make([]Property, 0, defn.NumMethod())
	for i := range defn.NumMethod() {
		m := defn.Method(i)
		if !isProperty(m) {
			continue
		}

		props = append(props, Property{Name: m.Name, Type: m.Type.Out(0), Index: i})
	}

	return props, nil
}

func isProperty(m reflect.Method) bool {
	return m.IsExported() &&
		m.Type.NumIn() == 0 &&
		m.Type.NumOut() == 1
}

// discovery carries the state shared by both variants while a binding is
// being built.
type discovery struct {
	resolved reflect.Type
	defn     reflect.Type
	impl     reflect.Type
	opts     options
	diags    diagnostic.Diagnostics
}

func newDiscovery(resolved, defn, impl reflect.Type, opts []Option) (*discovery, []Property, error) {
	props, err := Discover(defn)
	if err != nil {
		return nil, nil, err
	}

	if impl == nil || impl.Kind() == reflect.Interface {
		return nil, nil, &ConfigurationError{
			Type:   impl,
			Reason: "implementation must be a concrete type, not an interface",
		}
	}

	if !impl.Implements(defn) {
		return nil, nil, &ConfigurationError{
			Type:   impl,
			Reason: "does not implement " + common.TypeName(defn),
			Err:    ErrNotImplemented,
		}
	}

	if resolved == nil {
		resolved = defn
	}

	return &discovery{
		resolved: resolved,
		defn:     defn,
		impl:     impl,
		opts:     collect(opts),
	}, props, nil
}

func (d *discovery) fail(code, message string, t reflect.Type, property string, suggestions ...string) {
	d.diags.AddError(code, message, common.TypeName(t), property, suggestions...)
}

// err turns collected diagnostics into one ConfigurationError.
func (d *discovery) err() error {
	if !d.diags.HasErrors() {
		return nil
	}

	cfgErr := &ConfigurationError{Type: d.resolved, Problems: d.diags.Problems()}
	if first, ok := common.First(d.diags.Errors); ok && len(d.diags.Errors) == 1 {
		cfgErr.Property = first.Property
	}

	return cfgErr
}

// factory validates the factory for the implementation and returns it with
// the type it produces.
func (d *discovery) factory(method string) (reflect.Value, reflect.Type, bool) {
	fn, ok := d.opts.factoryFunc(d.impl, method)
	if !ok {
		d.fail(diagnostic.CodeMissingFactory,
			"no injected factory and no zero-argument "+method+"() method", d.impl, "")

		return reflect.Value{}, nil, false
	}

	ft := fn.Type()
	if ft.NumIn() != 0 || ft.IsVariadic() || ft.NumOut() == 0 || ft.NumOut() > 2 ||
		(ft.NumOut() == 2 && ft.Out(1) != errorType) {
		d.fail(diagnostic.CodeMissingFactory,
			"factory must take no arguments and return one value and an optional error, got "+ft.String(), d.impl, "")

		return reflect.Value{}, nil, false
	}

	return fn, ft.Out(0), true
}

func (d *discovery) metadata(name string) []any {
	return d.opts.metadata[name]
}
