// Package registry maps value types to their property bindings.
//
// A definition interface is registered together with its immutable
// implementation and, optionally, its modifiable implementation. Resolving a
// type returns the binding of the exact registration, or of the first
// registered definition the type implements. Bindings are discovered lazily
// and cached until they have been idle for the cache TTL.
package registry

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"property-binder/internal/cache"
	"property-binder/internal/common"
	"property-binder/internal/metrics"
	"property-binder/property"
)

// factory builds the binding of one registered implementation.
type factory struct {
	id   uint64
	kind property.Kind
	defn reflect.Type
	impl reflect.Type
	opts []property.Option
}

func (f *factory) build(resolved reflect.Type) (property.Binding, error) {
	if f.kind == property.KindModifiable {
		return property.NewModifiable(resolved, f.defn, f.impl, f.opts...)
	}

	return property.NewImmutable(resolved, f.defn, f.impl, f.opts...)
}

type cacheKey struct {
	factory uint64
	typ     reflect.Type
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%d/%p", k.factory, k.typ)
}

// Registry resolves types to property bindings. Register everything before
// resolving concurrently; Resolve is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	factories   map[reflect.Type]*factory
	definitions []reflect.Type

	ids       *atomic.Uint64
	bindings  *cache.Cache[cacheKey, property.Binding]
	cacheOpts []cache.Option
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		factories: make(map[reflect.Type]*factory),
		ids:       new(atomic.Uint64),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	cacheOpts := append([]cache.Option{
		cache.WithLogger(r.logger),
		cache.WithObserver(r.metrics),
	}, r.cacheOpts...)
	r.bindings = cache.New[cacheKey, property.Binding](cacheKey.String, cacheOpts...)
	r.cacheOpts = nil

	return r
}

// Register records defn with its immutable implementation and, when
// modifiable is not nil, its modifiable implementation. Resolving defn or
// immutable yields the immutable binding; resolving modifiable yields the
// modifiable one.
func (r *Registry) Register(defn, immutable, modifiable reflect.Type, opts ...RegisterOption) error {
	if err := r.validate(defn, immutable, modifiable); err != nil {
		r.metrics.ConfigurationError()
		r.logger.Warn("rejected registration", zap.Stringer("definition", typeStringer{defn}), zap.Error(err))

		return err
	}

	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	imm := &factory{id: r.ids.Add(1), kind: property.KindImmutable, defn: defn, impl: immutable, opts: o.immutable}
	if _, seen := r.factories[defn]; !seen {
		r.definitions = append(r.definitions, defn)
	}

	r.factories[defn] = imm
	r.factories[immutable] = imm

	if modifiable != nil {
		r.factories[modifiable] = &factory{
			id: r.ids.Add(1), kind: property.KindModifiable, defn: defn, impl: modifiable, opts: o.modifiable,
		}
	}

	r.logger.Debug("registered value type",
		zap.Stringer("definition", defn),
		zap.Stringer("immutable", immutable),
		zap.Stringer("modifiable", typeStringer{modifiable}))

	return nil
}

func (r *Registry) validate(defn, immutable, modifiable reflect.Type) error {
	if defn == nil || defn.Kind() != reflect.Interface {
		return &property.ConfigurationError{Type: defn, Reason: "definition must be an interface type"}
	}

	if immutable == nil || immutable.Kind() == reflect.Interface {
		return &property.ConfigurationError{
			Type:   immutable,
			Reason: "immutable implementation must be a concrete type, not an interface",
		}
	}

	for _, impl := range []reflect.Type{immutable, modifiable} {
		if impl == nil {
			continue
		}

		if impl.Kind() == reflect.Interface {
			return &property.ConfigurationError{Type: impl, Reason: "implementation must be a concrete type"}
		}

		if !impl.Implements(defn) {
			return &property.ConfigurationError{
				Type:   impl,
				Reason: "does not implement " + common.TypeName(defn),
				Err:    property.ErrNotImplemented,
			}
		}
	}

	return nil
}

// RegisterImmutable registers definition D with immutable implementation I.
func RegisterImmutable[D, I any](r *Registry, opts ...RegisterOption) error {
	return r.Register(reflect.TypeFor[D](), reflect.TypeFor[I](), nil, opts...)
}

// RegisterModifiable registers definition D with immutable implementation I
// and modifiable implementation M.
func RegisterModifiable[D, I, M any](r *Registry, opts ...RegisterOption) error {
	return r.Register(reflect.TypeFor[D](), reflect.TypeFor[I](), reflect.TypeFor[M](), opts...)
}

// Resolve returns the binding for t. It reports false with a nil error when
// nothing registered covers t; a type that is covered but cannot be bound
// yields a *property.ConfigurationError.
func (r *Registry) Resolve(t reflect.Type) (property.Binding, bool, error) {
	if t == nil {
		return nil, false, nil
	}

	f, ok := r.factoryFor(t)
	if !ok {
		return nil, false, nil
	}

	b, err := r.bindings.GetOrCreate(cacheKey{factory: f.id, typ: t}, func() (property.Binding, error) {
		return r.discover(f, t)
	})
	if err != nil {
		return nil, false, err
	}

	return b, true, nil
}

// ResolveFor is the generic form of Resolve.
func ResolveFor[T any](r *Registry) (property.Binding, bool, error) {
	return r.Resolve(reflect.TypeFor[T]())
}

func (r *Registry) factoryFor(t reflect.Type) (*factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.factories[t]; ok {
		return f, true
	}

	for _, defn := range r.definitions {
		if t.Implements(defn) {
			return r.factories[defn], true
		}
	}

	return nil, false
}

func (r *Registry) discover(f *factory, t reflect.Type) (property.Binding, error) {
	start := time.Now()

	b, err := f.build(t)
	if err != nil {
		var cfgErr *property.ConfigurationError
		if errors.As(err, &cfgErr) {
			r.metrics.ConfigurationError()
		}

		r.logger.Warn("binding discovery failed", zap.Stringer("type", t), zap.Error(err))

		return nil, err
	}

	r.metrics.BindingBuilt(b.Kind().String(), time.Since(start))
	r.logger.Debug("discovered binding",
		zap.Stringer("type", t),
		zap.Stringer("kind", b.Kind()),
		zap.Int("properties", len(b.Names())))

	for _, w := range b.Warnings() {
		r.logger.Warn("binding discovery warning", zap.Stringer("type", t), zap.String("warning", w))
	}

	return b, nil
}

// CreateCopy returns a registry with the same registrations. Later
// registrations on either registry are not visible to the other. Both keep
// sharing the binding cache.
func (r *Registry) CreateCopy() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factories := make(map[reflect.Type]*factory, len(r.factories))
	for t, f := range r.factories {
		factories[t] = f
	}

	return &Registry{
		factories:   factories,
		definitions: append([]reflect.Type(nil), r.definitions...),
		ids:         r.ids,
		bindings:    r.bindings,
		logger:      r.logger,
		metrics:     r.metrics,
	}
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]reflect.Type(nil), r.definitions...)
}

// Run evicts idle bindings every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	r.bindings.Run(ctx, interval)
}

// typeStringer renders a possibly nil type for log fields.
type typeStringer struct {
	t reflect.Type
}

func (s typeStringer) String() string {
	return common.TypeName(s.t)
}
