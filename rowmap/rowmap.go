// Package rowmap maps database rows onto registered value types and binds
// their properties as named statement arguments.
package rowmap

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"property-binder/internal/common"
	"property-binder/internal/match"
	"property-binder/optional"
	"property-binder/primitive"
	"property-binder/property"
	"property-binder/registry"
)

var (
	// ErrNoBinding is returned for types the registry does not cover.
	ErrNoBinding = errors.New("no property binding registered")
	// ErrNoColumns is returned when no result column matches a property.
	ErrNoColumns = errors.New("no column matches a property")
	// ErrUnmatchedColumn is returned in strict mode for a column that
	// matches no property.
	ErrUnmatchedColumn = errors.New("column matches no property")
)

// Mapper converts between rows and value types registered in a registry.
type Mapper struct {
	reg    *registry.Registry
	logger *zap.Logger
	strict bool
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Mapper) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithStrictColumns makes every result column required to match a property.
func WithStrictColumns() Option {
	return func(m *Mapper) {
		m.strict = true
	}
}

// New returns a Mapper resolving types through reg.
func New(reg *registry.Registry, opts ...Option) *Mapper {
	m := &Mapper{reg: reg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Mapper) binding(t reflect.Type) (property.Binding, error) {
	b, ok, err := m.reg.Resolve(t)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, errors.Wrap(ErrNoBinding, common.TypeName(t))
	}

	return b, nil
}

// plan assigns an accessor to each column; unmatched columns get nil.
func (m *Mapper) plan(b property.Binding, columns []string) ([]*property.Accessor, error) {
	byColumn := make(map[string]string, len(b.Names()))
	for _, a := range b.Properties() {
		if c, ok := property.MetadataOf[Column](a); ok {
			byColumn[string(c)] = a.Name()
		}
	}

	idx := match.NewIndex(b.Names())
	plan := make([]*property.Accessor, len(columns))

	for i, col := range columns {
		name, ok := byColumn[col]
		if !ok {
			name, ok = idx.Lookup(col)
		}

		if !ok {
			if m.strict {
				return nil, errors.Wrapf(ErrUnmatchedColumn, "%s for %s", col, common.TypeName(b.Type()))
			}

			m.logger.Debug("ignoring column", zap.String("column", col), zap.Stringer("type", b.Type()))

			continue
		}

		plan[i], _ = b.Property(name)
	}

	if lo.EveryBy(plan, func(a *property.Accessor) bool { return a == nil }) {
		return nil, errors.Wrapf(ErrNoColumns, "%v for %s", columns, common.TypeName(b.Type()))
	}

	return plan, nil
}

// Map reads every remaining row into a value of target. The caller still
// owns rows and must close it.
func (m *Mapper) Map(ctx context.Context, rows *sql.Rows, target reflect.Type) ([]any, error) {
	b, err := m.binding(target)
	if err != nil {
		return nil, err
	}

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read columns")
	}

	plan, err := m.plan(b, columns)
	if err != nil {
		return nil, err
	}

	var out []any

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		values := make([]any, len(columns))
		dest := lo.Map(values, func(_ any, i int) any { return &values[i] })

		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}

		v, err := construct(b, plan, values)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}

	m.logger.Debug("mapped rows", zap.Stringer("type", target), zap.Int("rows", len(out)))

	return out, nil
}

// MapRow builds one value of target from already scanned column values.
func (m *Mapper) MapRow(target reflect.Type, columns []string, values []any) (any, error) {
	if len(columns) != len(values) {
		return nil, errors.Errorf("%d columns but %d values", len(columns), len(values))
	}

	b, err := m.binding(target)
	if err != nil {
		return nil, err
	}

	plan, err := m.plan(b, columns)
	if err != nil {
		return nil, err
	}

	return construct(b, plan, values)
}

// construct writes every non-NULL value through its accessor. NULL columns
// are skipped so presence probes keep reporting the property as unset.
func construct(b property.Binding, plan []*property.Accessor, values []any) (any, error) {
	s, err := b.Open()
	if err != nil {
		return nil, err
	}

	for i, a := range plan {
		if a == nil || values[i] == nil {
			continue
		}

		arg, err := primitive.Coerce(values[i], a.SetterType())
		if err != nil {
			return nil, errors.Wrapf(err, "column for property %s", a.Name())
		}

		if err := s.Write(a.Name(), arg.Interface()); err != nil {
			return nil, err
		}
	}

	return s.Finish()
}

// Collect maps every remaining row into a T.
func Collect[T any](ctx context.Context, m *Mapper, rows *sql.Rows) ([]T, error) {
	values, err := m.Map(ctx, rows, reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(values))
	for _, v := range values {
		t, ok := v.(T)
		if !ok {
			return nil, errors.Errorf("mapped %T is not a %s", v, reflect.TypeFor[T]())
		}

		out = append(out, t)
	}

	return out, nil
}

// Bind returns the properties of v as sql.Named arguments, one per property
// under its column name. Unset properties and empty optionals bind as NULL.
func (m *Mapper) Bind(v any) ([]any, error) {
	if v == nil {
		return nil, errors.Wrap(property.ErrNilValue, "bind")
	}

	b, err := m.binding(reflect.TypeOf(v))
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, len(b.Names()))

	for _, a := range b.Properties() {
		value, present, err := a.Get(v)
		if err != nil {
			return nil, err
		}

		if inner, isOpt, set := optional.Unwrap(value); isOpt {
			value, present = inner, set
		}

		if !present {
			value = nil
		}

		args = append(args, sql.Named(ColumnName(a), value))
	}

	return args, nil
}
