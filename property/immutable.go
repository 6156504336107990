package property

import (
	"fmt"
	"reflect"

	"property-binder/internal/common"
	"property-binder/internal/diagnostic"
)

// BuilderMethod and BuildMethod are the method names looked up on the
// immutable implementation and on its builder.
const (
	BuilderMethod = "Builder"
	BuildMethod   = "Build"
)

type immutable struct {
	binding

	factory reflect.Value
	// builder is the session receiver type. Factories returning a
	// non-pointer builder are boxed, so this is always a pointer type.
	builder reflect.Type
	boxed   bool
	build   reflect.Method
}

// NewImmutable builds the binding of resolved for a builder-constructed
// implementation of defn.
func NewImmutable(resolved, defn, impl reflect.Type, opts ...Option) (Binding, error) {
	d, props, err := newDiscovery(resolved, defn, impl, opts)
	if err != nil {
		return nil, err
	}

	b := &immutable{}
	if !b.discoverBuilder(d) {
		return nil, d.err()
	}

	accessors := make([]*Accessor, 0, len(props))
	for _, p := range props {
		if a, ok := b.discoverSetter(d, p); ok {
			accessors = append(accessors, a)
		}
	}

	if err := d.err(); err != nil {
		return nil, err
	}

	b.binding = newBinding(KindImmutable, d, accessors)

	return b, nil
}

func (b *immutable) discoverBuilder(d *discovery) bool {
	fn, out, ok := d.factory(BuilderMethod)
	if !ok {
		return false
	}

	switch out.Kind() {
	case reflect.Interface:
		d.fail(diagnostic.CodeMissingFactory, "builder must be a concrete type, got "+out.String(), d.impl, "")
		return false
	case reflect.Pointer:
		b.builder = out
	default:
		b.builder = reflect.PointerTo(out)
		b.boxed = true
	}

	b.factory = fn

	build, ok := b.builder.MethodByName(BuildMethod)
	if !ok || build.Type.NumIn() != 1 || !returnsValue(build.Type, d.impl) {
		d.fail(diagnostic.CodeMissingBuild,
			fmt.Sprintf("builder has no %s() method returning %s", BuildMethod, common.TypeName(d.impl)),
			b.builder, "")

		return false
	}

	b.build = build

	return true
}

// discoverSetter finds the builder method named exactly like the property.
// A parameter of the property type is preferred; any single-argument method
// of that name is accepted, which covers builders taking the element type of
// an optional property.
func (b *immutable) discoverSetter(d *discovery, p Property) (*Accessor, bool) {
	m, ok := b.builder.MethodByName(p.Name)
	if !ok || m.Type.NumIn() != 2 || m.Type.IsVariadic() {
		d.fail(diagnostic.CodeMissingSetter,
			fmt.Sprintf("builder has no method %s(%s)", p.Name, p.Type),
			b.builder, p.Name)

		return nil, false
	}

	a := newAccessor(KindImmutable, d, p)
	a.setter = m

	return a, true
}

func (b *immutable) Open() (Session, error) {
	out, err := call(b.factory)
	if err != nil {
		return nil, constructionError(OpFactory, b.typ, "", err)
	}

	builder := out[0]
	if b.boxed {
		boxed := reflect.New(builder.Type())
		boxed.Elem().Set(builder)
		builder = boxed
	} else if builder.IsNil() {
		return nil, constructionError(OpFactory, b.typ, "", ErrNilValue)
	}

	return &builderSession{binding: b, builder: builder}, nil
}

// builderSession wraps a builder that is distinct from the value it builds.
type builderSession struct {
	binding *immutable
	builder reflect.Value
	done    bool
}

func (s *builderSession) Write(name string, value any) error {
	if s.done {
		return constructionError(OpSet, s.binding.typ, name, ErrSessionFinished)
	}

	a, err := s.binding.lookup(name)
	if err != nil {
		return err
	}

	out, err := a.write(s.builder, value)
	if err != nil {
		return err
	}

	s.fold(out)

	return nil
}

// fold adopts the builder returned by a setter. Pointer builders usually
// return themselves; value builders return an updated copy.
func (s *builderSession) fold(out []reflect.Value) {
	if len(out) == 0 {
		return
	}

	switch r := out[0]; r.Type() {
	case s.builder.Type():
		if !r.IsNil() {
			s.builder = r
		}
	case s.builder.Type().Elem():
		s.builder.Elem().Set(r)
	}
}

func (s *builderSession) Finish() (any, error) {
	if s.done {
		return nil, constructionError(OpBuild, s.binding.typ, "", ErrSessionFinished)
	}

	s.done = true
	builder := s.builder
	s.builder = reflect.Value{}

	out, err := call(s.binding.build.Func, builder)
	if err != nil {
		return nil, constructionError(OpBuild, s.binding.typ, "", err)
	}

	return out[0].Interface(), nil
}
