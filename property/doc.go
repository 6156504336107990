// Package property discovers the properties of a definition interface and
// drives their construction through one of two strategies.
//
// A definition is an interface whose exported, zero-argument, single-result
// methods are its properties. Property names are the method names verbatim.
//
// Key types:
//   - Binding: the accessor table for one resolved type, built once
//   - Accessor: per-property name, type, presence probe, getter and metadata
//   - Session: a single construction, opened from a Binding and finished
//     into a value
//
// Two variants exist, selected by Kind:
//   - KindImmutable: values are produced by a builder. The builder comes from
//     an injected factory or a Builder() method on the implementation's zero
//     value; each property is written through the builder method named
//     exactly like the property and Build() finishes the value.
//   - KindModifiable: a blank instance is created by an injected factory or a
//     Create() method on the implementation's zero value, mutated through
//     Set<Name> setters, and returned as is. An optional <Name>IsSet() bool
//     method reports whether a property was ever written.
package property
