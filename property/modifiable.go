package property

import (
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"

	"property-binder/internal/common"
	"property-binder/internal/diagnostic"
)

// CreateMethod is the factory method looked up on a modifiable
// implementation when no factory is injected.
const CreateMethod = "Create"

// SetterName returns the direct setter name of a property: "Set" followed by
// the capitalized property name.
func SetterName(property string) string {
	r, size := utf8.DecodeRuneInString(property)
	if r == utf8.RuneError {
		return "Set" + property
	}

	return "Set" + string(unicode.ToUpper(r)) + property[size:]
}

// ProbeName returns the presence probe name of a property.
func ProbeName(property string) string {
	return property + "IsSet"
}

type modifiable struct {
	binding

	factory reflect.Value
}

// NewModifiable builds the binding of resolved for a mutable implementation
// of defn. impl is normally a pointer type.
func NewModifiable(resolved, defn, impl reflect.Type, opts ...Option) (Binding, error) {
	d, props, err := newDiscovery(resolved, defn, impl, opts)
	if err != nil {
		return nil, err
	}

	m := &modifiable{}

	fn, out, ok := d.factory(CreateMethod)
	if ok && out != impl {
		d.fail(diagnostic.CodeMissingFactory,
			fmt.Sprintf("factory must return %s, got %s", impl, out), impl, "")
	}

	m.factory = fn

	accessors := make([]*Accessor, 0, len(props))
	for _, p := range props {
		if a, ok := m.discoverProperty(d, p); ok {
			accessors = append(accessors, a)
		}
	}

	if err := d.err(); err != nil {
		return nil, err
	}

	m.binding = newBinding(KindModifiable, d, accessors)

	return m, nil
}

func (m *modifiable) discoverProperty(d *discovery, p Property) (*Accessor, bool) {
	name := SetterName(p.Name)

	setter, ok := d.impl.MethodByName(name)
	if !ok || setter.Type.NumIn() != 2 || setter.Type.In(1) != p.Type || !fluentOrVoid(setter.Type, d.impl) {
		d.fail(diagnostic.CodeMissingSetter,
			fmt.Sprintf("no setter %s(%s) returning %s or nothing", name, p.Type, d.impl),
			d.impl, p.Name)

		return nil, false
	}

	a := newAccessor(KindModifiable, d, p)
	a.setter = setter

	if probe, ok := d.impl.MethodByName(ProbeName(p.Name)); ok {
		if probe.Type.NumIn() == 1 && probe.Type.NumOut() == 1 && probe.Type.Out(0).Kind() == reflect.Bool {
			a.probe = methodProbe(d.impl, probe)
			a.hasProbe = true
		} else {
			d.diags.AddWarning(diagnostic.CodeBadProbe,
				fmt.Sprintf("%s has signature %s, treating the property as always set", probe.Name, probe.Type),
				common.TypeName(d.impl), p.Name)
		}
	}

	return a, true
}

func fluentOrVoid(ft reflect.Type, impl reflect.Type) bool {
	return ft.NumOut() == 0 || (ft.NumOut() == 1 && ft.Out(0) == impl)
}

// methodProbe calls the probe method on values of impl. Other types that
// implement the definition are looked up by name and treated as always set
// when they have no probe.
func methodProbe(impl reflect.Type, probe reflect.Method) probe {
	return func(recv reflect.Value) (bool, error) {
		if recv.Type() == impl {
			return probe.Func.Call([]reflect.Value{recv})[0].Bool(), nil
		}

		m := recv.MethodByName(probe.Name)
		if !m.IsValid() || m.Type().NumIn() != 0 || m.Type().NumOut() != 1 || m.Type().Out(0).Kind() != reflect.Bool {
			return true, nil
		}

		return m.Call(nil)[0].Bool(), nil
	}
}

func (m *modifiable) Open() (Session, error) {
	out, err := call(m.factory)
	if err != nil {
		return nil, constructionError(OpFactory, m.typ, "", err)
	}

	instance := out[0]
	if instance.Kind() == reflect.Pointer && instance.IsNil() {
		return nil, constructionError(OpFactory, m.typ, "", ErrNilValue)
	}

	return &instanceSession{binding: m, instance: instance}, nil
}

// instanceSession mutates the value it returns: the session and the value
// are the same object from Open on.
type instanceSession struct {
	binding  *modifiable
	instance reflect.Value
	done     bool
}

func (s *instanceSession) Write(name string, value any) error {
	if s.done {
		return constructionError(OpSet, s.binding.typ, name, ErrSessionFinished)
	}

	a, err := s.binding.lookup(name)
	if err != nil {
		return err
	}

	_, err = a.write(s.instance, value)

	return err
}

func (s *instanceSession) Finish() (any, error) {
	if s.done {
		return nil, constructionError(OpBuild, s.binding.typ, "", ErrSessionFinished)
	}

	s.done = true

	return s.instance.Interface(), nil
}
