package registry

import (
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	testingclock "k8s.io/utils/clock/testing"

	"property-binder/examples/foobarbaz"
	"property-binder/examples/subvalue"
	"property-binder/examples/train"
	"property-binder/internal/metrics"
	"property-binder/property"
)

type named interface {
	Name() string
}

type immutableNamed struct{ name string }

func (n immutableNamed) Name() string         { return n.name }
func (immutableNamed) Builder() *namedBuilder { return &namedBuilder{} }

type namedBuilder struct{ name string }

func (b *namedBuilder) Name(name string) *namedBuilder {
	b.name = name
	return b
}

func (b *namedBuilder) Build() immutableNamed { return immutableNamed{name: b.name} }

// customTrain implements both Train and named.
type customTrain struct{}

func (customTrain) Name() string         { return "custom" }
func (customTrain) Carriages() int       { return 1 }
func (customTrain) ObservationCar() bool { return false }

func newRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()

	r := New(opts...)
	require.NoError(t, RegisterImmutable[train.Train, train.ImmutableTrain](r))
	require.NoError(t, RegisterModifiable[foobarbaz.FooBarBaz, foobarbaz.ImmutableFooBarBaz, *foobarbaz.ModifiableFooBarBaz](r))

	return r
}

func TestResolve_ExactRegistrations(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		name string
		typ  reflect.Type
		kind property.Kind
		impl reflect.Type
	}{
		{"definition", reflect.TypeFor[train.Train](), property.KindImmutable, reflect.TypeFor[train.ImmutableTrain]()},
		{"immutable", reflect.TypeFor[train.ImmutableTrain](), property.KindImmutable, reflect.TypeFor[train.ImmutableTrain]()},
		{"modifiable", reflect.TypeFor[*foobarbaz.ModifiableFooBarBaz](), property.KindModifiable, reflect.TypeFor[*foobarbaz.ModifiableFooBarBaz]()},
		{"immutable with modifiable", reflect.TypeFor[foobarbaz.ImmutableFooBarBaz](), property.KindImmutable, reflect.TypeFor[foobarbaz.ImmutableFooBarBaz]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok, err := r.Resolve(tt.typ)
			require.NoError(t, err)
			require.True(t, ok)

			assert.Equal(t, tt.kind, b.Kind())
			assert.Equal(t, tt.typ, b.Type())
			assert.Equal(t, tt.impl, b.Implementation())
		})
	}
}

func TestResolve_Unregistered(t *testing.T) {
	r := newRegistry(t)

	b, ok, err := r.Resolve(reflect.TypeFor[string]())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, b)

	_, ok, err = r.Resolve(nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolve_FallsBackToImplementedDefinition(t *testing.T) {
	r := newRegistry(t)

	b, ok, err := r.Resolve(reflect.TypeFor[*train.ImmutableTrain]())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[*train.ImmutableTrain](), b.Type())
	assert.Equal(t, reflect.TypeFor[train.Train](), b.Definition())
}

func TestResolve_FallbackFollowsRegistrationOrder(t *testing.T) {
	first := New()
	require.NoError(t, RegisterImmutable[named, immutableNamed](first))
	require.NoError(t, RegisterImmutable[train.Train, train.ImmutableTrain](first))

	second := New()
	require.NoError(t, RegisterImmutable[train.Train, train.ImmutableTrain](second))
	require.NoError(t, RegisterImmutable[named, immutableNamed](second))

	b, ok, err := ResolveFor[customTrain](first)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[named](), b.Definition())

	b, ok, err = ResolveFor[customTrain](second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[train.Train](), b.Definition())
}

func TestResolve_GenericDefinition(t *testing.T) {
	r := New()
	require.NoError(t, RegisterImmutable[subvalue.SubValue[string, int], subvalue.ImmutableSubValue[string, int]](r))

	b, ok, err := ResolveFor[subvalue.SubValue[string, int]](r)
	require.NoError(t, err)
	require.True(t, ok)

	x, _ := b.Property("X")
	tp, _ := b.Property("T")
	assert.Equal(t, reflect.TypeFor[string](), x.Type())
	assert.Equal(t, reflect.TypeFor[int](), tp.Type())
}

func TestResolve_CachesUntilIdle(t *testing.T) {
	fake := testingclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	m := metrics.NewCollector("registry_cache")
	r := newRegistry(t, WithClock(fake), WithMetrics(m), WithCacheTTL(10*time.Minute))

	first, _, err := ResolveFor[train.Train](r)
	require.NoError(t, err)

	fake.Step(9 * time.Minute)
	second, _, err := ResolveFor[train.Train](r)
	require.NoError(t, err)
	assert.Same(t, first, second)

	fake.Step(10 * time.Minute)
	third, _, err := ResolveFor[train.Train](r)
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	assert.InDelta(t, 2, testutil.ToFloat64(m.BindingsBuilt.WithLabelValues("immutable")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheHits), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.CacheMisses), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheEvictions), 0)
}

func TestResolve_Concurrent(t *testing.T) {
	r := newRegistry(t)

	p := pool.NewWithResults[property.Binding]().WithErrors()
	for range 32 {
		p.Go(func() (property.Binding, error) {
			b, _, err := ResolveFor[*foobarbaz.ModifiableFooBarBaz](r)
			return b, err
		})
	}

	bindings, err := p.Wait()
	require.NoError(t, err)
	require.Len(t, bindings, 32)

	for _, b := range bindings {
		assert.Same(t, bindings[0], b)
	}
}

func TestRegister_ConfigurationErrors(t *testing.T) {
	m := metrics.NewCollector("registry_errors")
	core, logs := observer.New(zapcore.WarnLevel)
	r := New(WithMetrics(m), WithLogger(zap.New(core)))

	tests := []struct {
		name                  string
		defn, imm, modifiable reflect.Type
	}{
		{"interface as immutable", reflect.TypeFor[train.Train](), reflect.TypeFor[train.Train](), nil},
		{"definition not an interface", reflect.TypeFor[train.ImmutableTrain](), reflect.TypeFor[train.ImmutableTrain](), nil},
		{"immutable does not implement", reflect.TypeFor[train.Train](), reflect.TypeFor[immutableNamed](), nil},
		{"modifiable does not implement", reflect.TypeFor[train.Train](), reflect.TypeFor[train.ImmutableTrain](), reflect.TypeFor[*foobarbaz.ModifiableFooBarBaz]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.defn, tt.imm, tt.modifiable)

			var ce *property.ConfigurationError
			require.True(t, errors.As(err, &ce), "got %v", err)
		})
	}

	assert.Empty(t, r.Definitions())
	assert.InDelta(t, 4, testutil.ToFloat64(m.ConfigurationErrors), 0)
	assert.Equal(t, 4, logs.FilterMessage("rejected registration").Len())
}

type broken interface {
	Name() string
	Color() string
}

type brokenImpl struct{}

func (brokenImpl) Name() string            { return "" }
func (brokenImpl) Color() string           { return "" }
func (brokenImpl) Builder() *brokenBuilder { return &brokenBuilder{} }

type brokenBuilder struct{}

func (b *brokenBuilder) Name(string) *brokenBuilder { return b }
func (b *brokenBuilder) Build() brokenImpl          { return brokenImpl{} }

func TestResolve_DiscoveryErrorsAreNotCached(t *testing.T) {
	m := metrics.NewCollector("registry_discovery")
	r := New(WithMetrics(m))
	require.NoError(t, RegisterImmutable[broken, brokenImpl](r))

	for range 2 {
		_, ok, err := ResolveFor[broken](r)
		assert.False(t, ok)

		var ce *property.ConfigurationError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "Color", ce.Property)
	}

	assert.InDelta(t, 2, testutil.ToFloat64(m.ConfigurationErrors), 0)
}

func TestCreateCopy(t *testing.T) {
	original := newRegistry(t)
	cp := original.CreateCopy()

	require.NoError(t, RegisterImmutable[named, immutableNamed](cp))
	require.NoError(t, RegisterImmutable[subvalue.SubValue[int, int], subvalue.ImmutableSubValue[int, int]](original))

	_, ok, err := ResolveFor[named](original)
	require.NoError(t, err)
	assert.False(t, ok, "copy registrations do not leak into the original")

	_, ok, err = ResolveFor[subvalue.SubValue[int, int]](cp)
	require.NoError(t, err)
	assert.False(t, ok, "original registrations do not leak into the copy")

	a, _, err := ResolveFor[train.Train](original)
	require.NoError(t, err)
	b, _, err := ResolveFor[train.Train](cp)
	require.NoError(t, err)
	assert.Same(t, a, b, "copies share cached bindings of shared registrations")

	assert.Equal(t, []reflect.Type{
		reflect.TypeFor[train.Train](),
		reflect.TypeFor[foobarbaz.FooBarBaz](),
		reflect.TypeFor[named](),
	}, cp.Definitions())
}

func TestCreateCopy_ReRegistrationGetsOwnBinding(t *testing.T) {
	original := newRegistry(t)
	cp := original.CreateCopy()

	require.NoError(t, RegisterImmutable[train.Train, train.ImmutableTrain](cp,
		WithBuilder(train.NewBuilder),
		WithMetadata("Name", "column:train_name"),
	))

	a, _, err := ResolveFor[train.Train](original)
	require.NoError(t, err)
	b, _, err := ResolveFor[train.Train](cp)
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	name, _ := b.Property("Name")
	tag, ok := property.MetadataOf[string](name)
	require.True(t, ok)
	assert.Equal(t, "column:train_name", tag)

	name, _ = a.Property("Name")
	_, ok = property.MetadataOf[string](name)
	assert.False(t, ok)
}

func TestWithCreate(t *testing.T) {
	r := New()
	require.NoError(t, RegisterModifiable[foobarbaz.FooBarBaz, foobarbaz.ImmutableFooBarBaz, *foobarbaz.ModifiableFooBarBaz](r,
		WithCreate(func() *foobarbaz.ModifiableFooBarBaz { return foobarbaz.New().SetID(-1) }),
	))

	b, _, err := ResolveFor[*foobarbaz.ModifiableFooBarBaz](r)
	require.NoError(t, err)

	s, err := b.Open()
	require.NoError(t, err)
	v, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, -1, v.(foobarbaz.FooBarBaz).ID())
}
