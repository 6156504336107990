package property

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"property-binder/internal/common"
	"property-binder/internal/diagnostic"
	"property-binder/internal/match"
)

// Binding is the property table of one resolved type. It never changes
// after it is built and is safe for concurrent use; the sessions it opens
// are not.
type Binding interface {
	// Kind returns the construction strategy.
	Kind() Kind
	// Type returns the resolved type the binding was built for.
	Type() reflect.Type
	// Definition returns the definition interface.
	Definition() reflect.Type
	// Implementation returns the type Open produces values of.
	Implementation() reflect.Type
	// Names returns the property names in method order.
	Names() []string
	// Properties returns the accessors in method order.
	Properties() []*Accessor
	// Property returns the accessor for name.
	Property(name string) (*Accessor, bool)
	// Warnings lists discovery findings that did not prevent the binding,
	// such as a presence probe with the wrong signature.
	Warnings() []string
	// Open starts a new construction.
	Open() (Session, error)
}

// Session is a single construction. It is driven by one goroutine: Write
// any number of properties, then Finish once.
type Session interface {
	// Write sets a property. Writing the same property twice keeps the last
	// value.
	Write(name string, value any) error
	// Finish returns the constructed value. The session cannot be used
	// afterwards.
	Finish() (any, error)
}

type binding struct {
	kind     Kind
	typ      reflect.Type
	defn     reflect.Type
	impl     reflect.Type
	order    []*Accessor
	byName   map[string]*Accessor
	warnings []string
}

func newBinding(kind Kind, d *discovery, accessors []*Accessor) binding {
	return binding{
		kind:  kind,
		typ:   d.resolved,
		defn:  d.defn,
		impl:  d.impl,
		order: accessors,
		byName: lo.SliceToMap(accessors, func(a *Accessor) (string, *Accessor) {
			return a.name, a
		}),
		warnings: lo.Map(d.diags.Warnings, func(w diagnostic.Diagnostic, _ int) string {
			return w.String()
		}),
	}
}

func (b *binding) Kind() Kind                   { return b.kind }
func (b *binding) Type() reflect.Type           { return b.typ }
func (b *binding) Definition() reflect.Type     { return b.defn }
func (b *binding) Implementation() reflect.Type { return b.impl }

func (b *binding) Warnings() []string { return b.warnings }

func (b *binding) Names() []string {
	return lo.Map(b.order, func(a *Accessor, _ int) string { return a.name })
}

func (b *binding) Properties() []*Accessor {
	return append([]*Accessor(nil), b.order...)
}

func (b *binding) Property(name string) (*Accessor, bool) {
	a, ok := b.byName[name]
	return a, ok
}

// lookup resolves name for a session write.
func (b *binding) lookup(name string) (*Accessor, error) {
	if a, ok := b.byName[name]; ok {
		return a, nil
	}

	err := errors.Wrap(ErrUnknownProperty, name)
	if s, ok := match.Suggest(name, b.Names()); ok {
		err = errors.Wrapf(ErrUnknownProperty, "%s (did you mean %s?)", name, s)
	}

	return nil, constructionError(OpSet, b.typ, name, err)
}

func newAccessor(kind Kind, d *discovery, p Property) *Accessor {
	return &Accessor{
		name:     p.Name,
		typ:      p.Type,
		kind:     kind,
		owner:    d.resolved,
		defn:     d.defn,
		index:    p.Index,
		probe:    alwaysSet,
		metadata: d.metadata(p.Name),
	}
}

// Describe renders a binding on one line, e.g.
// "immutable train.Train -> train.ImmutableTrain {Carriages int, Name string}".
func Describe(b Binding) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s -> %s {", b.Kind(), common.TypeName(b.Type()), common.TypeName(b.Implementation()))
	for i, a := range b.Properties() {
		if i > 0 {
			sb.WriteString(", ")
		}

		fmt.Fprintf(&sb, "%s %s", a.Name(), common.TypeName(a.Type()))
		if a.Probed() {
			sb.WriteString(" (probed)")
		}
	}

	sb.WriteString("}")

	return sb.String()
}
